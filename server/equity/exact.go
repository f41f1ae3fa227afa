package equity

import (
	"context"

	"range-equity/server/engine"
)

// exactCounts are heads-up enumeration totals. Ties are counted whole.
type exactCounts struct {
	win1, win2, ties, total int64
}

// comb is C(n, k) for the small k used here.
func comb(n, k int) int64 {
	if k < 0 || k > n {
		return 0
	}
	r := int64(1)
	for i := 0; i < k; i++ {
		r = r * int64(n-i) / int64(i+1)
	}
	return r
}

// ExactWork estimates the evaluations an exact run needs: every combo pair
// times every completion of the board from the undealt deck.
func ExactWork(n1, n2, boardLen int) int64 {
	return int64(n1) * int64(n2) * comb(52-boardLen, 5-boardLen)
}

// exact enumerates every non-overlapping combo pair and every board
// completion. ok is false when the spot is over the cutoff or no pair is
// compatible; the caller then samples instead. A cancelled context aborts
// with its error since a partial enumeration is biased.
func (e *Engine) exact(ctx context.Context, c1, c2 []engine.Combo, board []engine.Card) (exactCounts, bool, error) {
	var n exactCounts
	if len(c1) == 0 || len(c2) == 0 || len(board) < 3 || len(board) > 5 {
		return n, false, nil
	}
	if ExactWork(len(c1), len(c2), len(board)) > e.exactCutoff {
		return n, false, nil
	}

	boardSet := engine.SetOf(board...)
	deck := engine.RemoveCards(engine.FullDeck(), boardSet)
	k := 5 - len(board)

	h1 := make([]engine.Card, 7)
	h2 := make([]engine.Card, 7)
	copy(h1[2:], board)
	copy(h2[2:], board)
	free := make([]engine.Card, 0, len(deck))

	score := func() {
		s1, s2 := e.eval.Evaluate(h1), e.eval.Evaluate(h2)
		n.total++
		switch {
		case s1 > s2:
			n.win1++
		case s2 > s1:
			n.win2++
		default:
			n.ties++
		}
	}

	for _, a := range c1 {
		if err := ctx.Err(); err != nil {
			return exactCounts{}, false, err
		}
		h1[0], h1[1] = a.A, a.B
		for _, b := range c2 {
			if a.Set().Overlaps(b.Set()) {
				continue
			}
			h2[0], h2[1] = b.A, b.B
			used := a.Set() | b.Set()
			free = free[:0]
			for _, c := range deck {
				if !used.Has(c) {
					free = append(free, c)
				}
			}
			switch k {
			case 0:
				score()
			case 1:
				for _, x := range free {
					h1[6], h2[6] = x, x
					score()
				}
			case 2:
				for i := 0; i < len(free); i++ {
					h1[5], h2[5] = free[i], free[i]
					for j := i + 1; j < len(free); j++ {
						h1[6], h2[6] = free[j], free[j]
						score()
					}
				}
			}
		}
	}
	if n.total == 0 {
		return n, false, nil
	}
	return n, true, nil
}

// shares converts counts to the two seats' (equity, tie) percentages.
func (n exactCounts) shares() (eq1, tie1, eq2, tie2 float64) {
	t := float64(n.total)
	half := 0.5 * float64(n.ties)
	tie := half / t * 100
	return (float64(n.win1) + half) / t * 100, tie, (float64(n.win2) + half) / t * 100, tie
}
