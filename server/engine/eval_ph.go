package engine

import (
	poker "github.com/paulhankin/poker"
)

// Library card for every Card.Index, filled at init.
var phCards [52]poker.Card

// The library's score direction, probed at init rather than assumed.
var phHigherIsBetter bool

func init() {
	for _, c := range FullDeck() {
		phCards[c.Index()] = toPH(c)
	}
	royal := phEval5(mustCards("As", "Ks", "Qs", "Js", "Ts"))
	sevenHigh := phEval5(mustCards("7c", "5d", "4h", "3s", "2c"))
	phHigherIsBetter = royal > sevenHigh
}

// Convert our engine.Card -> library card.
func toPH(c Card) poker.Card {
	var s poker.Suit
	switch c.Suit {
	case 'c':
		s = poker.Club
	case 'd':
		s = poker.Diamond
	case 'h':
		s = poker.Heart
	default:
		s = poker.Spade
	}
	// Our ranks: 2..14 (Ace=14). Library: 1..13 (Ace=1).
	var r poker.Rank
	if c.Rank == 14 {
		r = poker.Rank(1)
	} else {
		r = poker.Rank(c.Rank)
	}
	card, _ := poker.MakeCard(s, r)
	return card
}

type tableEvaluator struct{}

// Table returns the lookup-table evaluator backed by github.com/paulhankin/poker.
func Table() Evaluator { return tableEvaluator{} }

func (tableEvaluator) Name() string { return "fast" }

func (tableEvaluator) Evaluate(cards []Card) Strength {
	switch len(cards) {
	case 7:
		var a7 [7]poker.Card
		for i, c := range cards {
			a7[i] = phCards[c.Index()]
		}
		return orient(poker.Eval7(&a7))
	case 5:
		return orient(phEval5(cards))
	case 6:
		var best Strength
		var five [5]Card
		first := true
		forEachFive(6, func(idx [5]int) {
			for i, j := range idx {
				five[i] = cards[j]
			}
			if s := orient(phEval5(five[:])); first || s > best {
				best, first = s, false
			}
		})
		return best
	}
	panic("engine: table evaluator needs 5 to 7 cards")
}

func phEval5(cards []Card) int16 {
	var a5 [5]poker.Card
	for i, c := range cards {
		a5[i] = phCards[c.Index()]
	}
	return poker.Eval5(&a5)
}

func orient(score int16) Strength {
	if phHigherIsBetter {
		return Strength(score)
	}
	return -Strength(score)
}

func mustCards(tokens ...string) []Card {
	cs, err := ParseCards(tokens...)
	if err != nil {
		panic(err)
	}
	return cs
}
