package ranges

import (
	"errors"
	"sort"
	"strings"

	"range-equity/server/engine"
)

var ErrWeightsNotSupported = errors.New("weights are not supported")

// Expansion is the blocker-filtered, deduplicated combo list for a range
// plus one warning per token that matched no form.
type Expansion struct {
	Combos   []engine.Combo
	Warnings []string
}

type Validation struct {
	OK       bool
	Warnings []string
}

// Expand parses text and generates its combos, dropping any that share a
// card with board. The result is a pure function of (text, board).
func Expand(text string, board []engine.Card) (Expansion, error) {
	classes, warnings, err := parse(text)
	if err != nil {
		return Expansion{}, err
	}
	dead := engine.SetOf(board...)
	seen := make(map[engine.Combo]struct{})
	var combos []engine.Combo
	for _, cl := range classes {
		for _, c := range cl.Combos() {
			if c.A == c.B || dead.Has(c.A) || dead.Has(c.B) {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			combos = append(combos, c)
		}
	}
	sortCombos(combos)
	return Expansion{Combos: combos, Warnings: warnings}, nil
}

// Validate checks syntax only. It fails on weight syntax and otherwise
// reports unrecognized tokens as warnings.
func Validate(text string) (Validation, error) {
	_, warnings, err := parse(text)
	if err != nil {
		return Validation{}, err
	}
	return Validation{OK: true, Warnings: warnings}, nil
}

// parse rejects weights before looking at any token, so a bad token never
// masks the weights error.
func parse(text string) ([]Class, []string, error) {
	if strings.Contains(text, ":") {
		return nil, nil, ErrWeightsNotSupported
	}
	var classes []Class
	var warnings []string
	for _, tok := range Tokens(text) {
		cs, ok := ParseToken(tok)
		if !ok {
			warnings = append(warnings, "Unrecognized token: "+tok)
			continue
		}
		classes = append(classes, cs...)
	}
	return classes, warnings, nil
}

// sortCombos orders by rank sum, then by the text of each card.
func sortCombos(cs []engine.Combo) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		sa, sb := a.A.Rank+a.B.Rank, b.A.Rank+b.B.Rank
		if sa != sb {
			return sa < sb
		}
		if x, y := a.A.String(), b.A.String(); x != y {
			return x < y
		}
		return a.B.String() < b.B.String()
	})
}

// ComboPercent is n as a share of the 1326 starting hands.
func ComboPercent(n int) float64 {
	return float64(n) / 1326 * 100
}
