// Package ranges expands range shorthand ("AKs, 77-99, Ax") into concrete
// two-card combos.
package ranges

import (
	"strings"
	"unicode"

	"range-equity/server/engine"
)

type Kind int

const (
	Pair Kind = iota
	Suited
	Offsuit
	Any // suited and offsuit together
)

// Class is one (kind, high, low) triple such as AKs or 77.
type Class struct {
	Kind Kind
	High int
	Low  int
}

func (c Class) String() string {
	s := string([]byte{engine.RankChar(c.High), engine.RankChar(c.Low)})
	switch c.Kind {
	case Suited:
		s += "s"
	case Offsuit:
		s += "o"
	}
	return s
}

// Combos generates every suit assignment for the class: 6 for a pair, 4
// suited, 12 offsuit, 16 for Any.
func (c Class) Combos() []engine.Combo {
	suits := engine.SuitChars
	var out []engine.Combo
	switch c.Kind {
	case Pair:
		for i := 0; i < 4; i++ {
			for j := i + 1; j < 4; j++ {
				out = append(out, combo(c.High, suits[i], c.High, suits[j]))
			}
		}
	case Suited:
		for i := 0; i < 4; i++ {
			out = append(out, combo(c.High, suits[i], c.Low, suits[i]))
		}
	case Offsuit:
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				if i != j {
					out = append(out, combo(c.High, suits[i], c.Low, suits[j]))
				}
			}
		}
	case Any:
		out = append(Class{Suited, c.High, c.Low}.Combos(), Class{Offsuit, c.High, c.Low}.Combos()...)
	}
	return out
}

func combo(r1 int, s1 byte, r2 int, s2 byte) engine.Combo {
	return engine.NewCombo(engine.Card{Rank: r1, Suit: s1}, engine.Card{Rank: r2, Suit: s2})
}

// Tokens splits range text on commas and whitespace.
func Tokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
}

// ParseToken expands one token (no weights). ok is false when the token does
// not match the grammar or names no hands.
func ParseToken(tok string) (classes []Class, ok bool) {
	tok = strings.TrimSpace(tok)
	if len(tok) >= 2 && (tok[1] == 'x' || tok[1] == 'X') {
		classes = parseWildcard(tok)
	} else {
		classes = parseRanks(tok)
	}
	return classes, len(classes) > 0
}

// scanner walks a token one byte at a time.
type scanner struct {
	s   string
	pos int
}

func (p *scanner) done() bool { return p.pos == len(p.s) }

func (p *scanner) rank() (int, bool) {
	if p.done() {
		return 0, false
	}
	r := engine.RankValue(p.s[p.pos])
	if r < 0 {
		return 0, false
	}
	p.pos++
	return r, true
}

// qualifier consumes an optional 's' or 'o'; 0 when absent.
func (p *scanner) qualifier() byte {
	if !p.done() && (p.s[p.pos] == 's' || p.s[p.pos] == 'o') {
		p.pos++
		return p.s[p.pos-1]
	}
	return 0
}

func (p *scanner) accept(b byte) bool {
	if !p.done() && p.s[p.pos] == b {
		p.pos++
		return true
	}
	return false
}

func kindOf(q byte) Kind {
	switch q {
	case 's':
		return Suited
	case 'o':
		return Offsuit
	}
	return Any
}

// parseRanks handles pairs (77, 77+, 77-99) and non-pairs (AKs, KTs+,
// A2s-A5s). Rank characters are upper case, qualifiers lower case.
func parseRanks(tok string) []Class {
	p := &scanner{s: tok}
	a, ok1 := p.rank()
	b, ok2 := p.rank()
	if !ok1 || !ok2 {
		return nil
	}

	if a == b {
		switch {
		case p.done():
			return []Class{{Pair, a, a}}
		case p.accept('+'):
			if !p.done() {
				return nil
			}
			return pairs(a, 14)
		case p.accept('-'):
			c, ok3 := p.rank()
			d, ok4 := p.rank()
			if !ok3 || !ok4 || c != d || !p.done() {
				return nil
			}
			return pairs(min(a, c), max(a, c))
		}
		return nil
	}

	hi, lo := max(a, b), min(a, b)
	q := p.qualifier()
	kind := kindOf(q)
	switch {
	case p.done():
		return []Class{{kind, hi, lo}}
	case p.accept('+'):
		if !p.done() {
			return nil
		}
		return lows(kind, hi, lo, hi-1)
	case p.accept('-'):
		c, ok3 := p.rank()
		d, ok4 := p.rank()
		if !ok3 || !ok4 || c == d {
			return nil
		}
		if q2 := p.qualifier(); q2 != 0 && q2 != q {
			return nil
		}
		if !p.done() || max(c, d) != hi {
			return nil
		}
		lo2 := min(c, d)
		return lows(kind, hi, min(lo, lo2), max(lo, lo2))
	}
	return nil
}

// parseWildcard handles Ax, Axs, Kxo: the fixed rank against every lower
// rank. Case-insensitive.
func parseWildcard(tok string) []Class {
	up := strings.ToUpper(tok[:1])
	hi := engine.RankValue(up[0])
	if hi < 0 {
		return nil
	}
	var q byte
	switch rest := strings.ToLower(tok[2:]); rest {
	case "":
	case "s", "o":
		q = rest[0]
	default:
		return nil
	}
	return lows(kindOf(q), hi, 2, hi-1)
}

func pairs(from, to int) []Class {
	var out []Class
	for r := from; r <= to; r++ {
		out = append(out, Class{Pair, r, r})
	}
	return out
}

// lows holds the high card fixed and walks the low card from..to, skipping
// the high rank itself.
func lows(kind Kind, hi, from, to int) []Class {
	var out []Class
	for r := from; r <= to; r++ {
		if r == hi {
			continue
		}
		out = append(out, Class{kind, hi, r})
	}
	return out
}
