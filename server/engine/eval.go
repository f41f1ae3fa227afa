package engine

import (
	"fmt"
	"math/bits"
	"os"
	"strings"
)

// Strength orders hands: a greater value is a strictly stronger hand and
// equal values tie. The numeric encoding belongs to the Evaluator.
type Strength int32

// Evaluator ranks 5, 6 or 7 cards. For 6 or 7 cards it scores the best
// 5-card subset.
type Evaluator interface {
	Evaluate(cards []Card) Strength
	Name() string
}

// NewEvaluator picks an implementation by name: "fast" (or "table", the
// default) for the lookup-table evaluator, "pure" for the computed one.
// EQUITY_FORCE_PURE=1 always selects the pure evaluator.
func NewEvaluator(name string) (Evaluator, error) {
	if os.Getenv("EQUITY_FORCE_PURE") == "1" {
		return Pure(), nil
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fast", "table":
		return Table(), nil
	case "pure":
		return Pure(), nil
	}
	return nil, fmt.Errorf("unknown evaluator %q", name)
}

type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (c Category) String() string {
	names := []string{
		"High Card", "One Pair", "Two Pair", "Three of a Kind", "Straight",
		"Flush", "Full House", "Four of a Kind", "Straight Flush",
	}
	if c >= 0 && int(c) < len(names) {
		return names[c]
	}
	return "Unknown"
}

// HandValue is the category plus its tie-break ranks, unused slots zero.
type HandValue struct {
	Category Category
	Ranks    [5]int
}

func (v HandValue) Strength() Strength {
	s := Strength(v.Category) << 20
	for i, r := range v.Ranks {
		s |= Strength(r) << uint(16-4*i)
	}
	return s
}

type pureEvaluator struct{}

// Pure returns the computed evaluator.
func Pure() Evaluator { return pureEvaluator{} }

func (pureEvaluator) Name() string { return "pure" }

func (pureEvaluator) Evaluate(cards []Card) Strength {
	return Score(cards).Strength()
}

// Score evaluates 5 to 7 cards with the computed algorithm, keeping the best
// 5-card subset.
func Score(cards []Card) HandValue {
	n := len(cards)
	if n < 5 || n > 7 {
		panic(fmt.Sprintf("engine: cannot score %d cards", n))
	}
	if n == 5 {
		return score5(cards)
	}
	var best HandValue
	var five [5]Card
	first := true
	forEachFive(n, func(idx [5]int) {
		for i, j := range idx {
			five[i] = cards[j]
		}
		v := score5(five[:])
		if first || v.Strength() > best.Strength() {
			best, first = v, false
		}
	})
	return best
}

// forEachFive calls fn with every ascending 5-index subset of 0..n-1.
func forEachFive(n int, fn func([5]int)) {
	var idx [5]int
	var rec func(start, k int)
	rec = func(start, k int) {
		if k == 5 {
			fn(idx)
			return
		}
		for i := start; i <= n-(5-k); i++ {
			idx[k] = i
			rec(i+1, k+1)
		}
	}
	rec(0, 0)
}

func score5(cards []Card) HandValue {
	var counts [15]int
	var suitMask [4]uint16
	var rankMask uint16
	for _, c := range cards {
		counts[c.Rank]++
		rankMask |= 1 << uint(c.Rank)
		suitMask[suitOf[c.Suit]] |= 1 << uint(c.Rank)
	}

	flushSuit := -1
	for s, m := range suitMask {
		if bits.OnesCount16(m) >= 5 {
			flushSuit = s
			break
		}
	}

	if flushSuit >= 0 {
		if top := straightTop(suitMask[flushSuit]); top > 0 {
			return HandValue{Category: StraightFlush, Ranks: [5]int{top}}
		}
	}

	// Ranks with their multiplicity, scanned high to low.
	var quads, trips, pairs, desc []int
	for r := 14; r >= 2; r-- {
		switch counts[r] {
		case 4:
			quads = append(quads, r)
		case 3:
			trips = append(trips, r)
		case 2:
			pairs = append(pairs, r)
		}
		for i := 0; i < counts[r]; i++ {
			desc = append(desc, r)
		}
	}

	switch {
	case len(quads) > 0:
		k := kickers(desc, 1, quads[0])
		return HandValue{Category: FourOfAKind, Ranks: [5]int{quads[0], k[0]}}
	case len(trips) > 0 && (len(trips) > 1 || len(pairs) > 0):
		pair := 0
		if len(trips) > 1 {
			pair = trips[1]
		}
		if len(pairs) > 0 && pairs[0] > pair {
			pair = pairs[0]
		}
		return HandValue{Category: FullHouse, Ranks: [5]int{trips[0], pair}}
	case flushSuit >= 0:
		v := HandValue{Category: Flush}
		i := 0
		for r := 14; r >= 2 && i < 5; r-- {
			if suitMask[flushSuit]&(1<<uint(r)) != 0 {
				v.Ranks[i] = r
				i++
			}
		}
		return v
	}

	if top := straightTop(rankMask); top > 0 {
		return HandValue{Category: Straight, Ranks: [5]int{top}}
	}

	switch {
	case len(trips) > 0:
		k := kickers(desc, 2, trips[0])
		return HandValue{Category: ThreeOfAKind, Ranks: [5]int{trips[0], k[0], k[1]}}
	case len(pairs) >= 2:
		k := kickers(desc, 1, pairs[0], pairs[1])
		return HandValue{Category: TwoPair, Ranks: [5]int{pairs[0], pairs[1], k[0]}}
	case len(pairs) == 1:
		k := kickers(desc, 3, pairs[0])
		return HandValue{Category: OnePair, Ranks: [5]int{pairs[0], k[0], k[1], k[2]}}
	}
	v := HandValue{Category: HighCard}
	copy(v.Ranks[:], desc)
	return v
}

// straightTop returns the top card of the highest straight in a rank bitmask
// (bit r set for rank r), 5 for the wheel, 0 when there is none.
func straightTop(mask uint16) int {
	for top := 14; top >= 6; top-- {
		w := uint16(0x1F) << uint(top-4)
		if mask&w == w {
			return top
		}
	}
	const wheel = 1<<14 | 1<<5 | 1<<4 | 1<<3 | 1<<2
	if mask&wheel == wheel {
		return 5
	}
	return 0
}

// kickers takes the n highest ranks from desc that are not excluded.
func kickers(desc []int, n int, exclude ...int) []int {
	out := make([]int, 0, n)
next:
	for _, r := range desc {
		for _, x := range exclude {
			if r == x {
				continue next
			}
		}
		out = append(out, r)
		if len(out) == n {
			break
		}
	}
	for len(out) < n {
		out = append(out, 0)
	}
	return out
}
