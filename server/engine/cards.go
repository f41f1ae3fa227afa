package engine

import (
	"fmt"
	"math/bits"
	"strings"
)

const (
	RankChars = "23456789TJQKA"
	SuitChars = "shdc"
)

// Built once, read-only afterwards.
var (
	rankOf = charTable(RankChars, 2)
	suitOf = charTable(SuitChars, 0)
)

func charTable(chars string, base int) [256]int {
	var t [256]int
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(chars); i++ {
		t[chars[i]] = base + i
	}
	return t
}

// RankValue maps a rank character (2-9, T, J, Q, K, A) to 2..14, or -1.
func RankValue(b byte) int { return rankOf[b] }

// RankChar is the inverse of RankValue.
func RankChar(r int) byte {
	if r < 2 || r > 14 {
		return '?'
	}
	return RankChars[r-2]
}

func (c Card) String() string {
	return string([]byte{RankChar(c.Rank), c.Suit})
}

// Index places the card in 0..51 following FullDeck order.
func (c Card) Index() int {
	return (c.Rank-2)*4 + suitOf[c.Suit]
}

func (c Card) Valid() bool {
	return c.Rank >= 2 && c.Rank <= 14 && suitOf[c.Suit] >= 0
}

// ParseCard reads a two character token such as "As" or "td". The rank is
// read case-insensitively as upper case and the suit as lower case.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	r := rankOf[upper(s[0])]
	su := lower(s[1])
	if r < 0 || suitOf[su] < 0 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	return Card{Rank: r, Suit: su}, nil
}

// ParseCards parses every token, stopping at the first bad one.
func ParseCards(tokens ...string) ([]Card, error) {
	out := make([]Card, 0, len(tokens))
	for _, t := range tokens {
		c, err := ParseCard(t)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ParseBoard parses board tokens in order and rejects repeated cards.
func ParseBoard(tokens []string) ([]Card, error) {
	board := make([]Card, 0, len(tokens))
	var seen CardSet
	for _, t := range tokens {
		c, err := ParseCard(t)
		if err != nil {
			return nil, err
		}
		if seen.Has(c) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		seen = seen.Add(c)
		board = append(board, c)
	}
	return board, nil
}

// FullDeck returns the 52 cards ordered by rank (2..A), then suit (s, h, d, c).
func FullDeck() []Card {
	deck := make([]Card, 0, 52)
	for r := 2; r <= 14; r++ {
		for i := 0; i < len(SuitChars); i++ {
			deck = append(deck, Card{Rank: r, Suit: SuitChars[i]})
		}
	}
	return deck
}

// RemoveCards drops every dead card and keeps the order of the rest.
func RemoveCards(deck []Card, dead CardSet) []Card {
	out := make([]Card, 0, len(deck))
	for _, c := range deck {
		if !dead.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func CardsString(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

// CardSet is a bitmask over Card.Index.
type CardSet uint64

func SetOf(cs ...Card) CardSet {
	var s CardSet
	for _, c := range cs {
		s = s.Add(c)
	}
	return s
}

func (s CardSet) Add(c Card) CardSet {
	return s | 1<<uint(c.Index())
}

func (s CardSet) Has(c Card) bool {
	return s&(1<<uint(c.Index())) != 0
}

func (s CardSet) Overlaps(o CardSet) bool {
	return s&o != 0
}

func (s CardSet) Len() int {
	return bits.OnesCount64(uint64(s))
}

// NewCombo orders the two cards by canonical text.
func NewCombo(a, b Card) Combo {
	if b.String() < a.String() {
		a, b = b, a
	}
	return Combo{A: a, B: b}
}

func (c Combo) Set() CardSet { return SetOf(c.A, c.B) }

func (c Combo) String() string { return c.A.String() + c.B.String() }

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}
