package equity

import (
	"context"
	"math/rand"
	"sync"

	"range-equity/server/engine"
)

// mcCounts are sampling totals. A k-way split adds 1/k to each tied seat's
// wins and ties.
type mcCounts struct {
	wins     []float64
	ties     []float64
	trials   int64
	attempts int64
}

func (c *mcCounts) add(o mcCounts) {
	for i := range c.wins {
		c.wins[i] += o.wins[i]
		c.ties[i] += o.ties[i]
	}
	c.trials += o.trials
	c.attempts += o.attempts
}

// Rejection draws per seat before falling back to filtering the range.
const rejectTries = 8

// monteCarlo samples until iterations trials complete, the attempt cap is
// hit or ctx ends. seats[i] is nil for seats that are not dealt in. The
// bool reports that ctx stopped sampling early.
func (e *Engine) monteCarlo(ctx context.Context, seats [][]engine.Combo, board []engine.Card, iterations int, base uint64) (mcCounts, bool) {
	total := mcCounts{wins: make([]float64, len(seats)), ties: make([]float64, len(seats))}
	if iterations <= 0 {
		return total, false
	}
	workers := min(e.workers, iterations)

	simsPerWorker := iterations / workers
	remainder := iterations % workers

	stream := newSeedStream(base)
	seeds := make([]uint64, workers)
	for w := range seeds {
		seeds[w] = stream.next()
	}

	var wg sync.WaitGroup
	results := make([]mcCounts, workers)
	stopped := make([]bool, workers)
	for w := 0; w < workers; w++ {
		quota := simsPerWorker
		if w < remainder {
			quota++
		}
		wg.Add(1)
		go func(w, quota int) {
			defer wg.Done()
			results[w], stopped[w] = e.sample(ctx, seats, board, quota, seeds[w])
		}(w, quota)
	}
	wg.Wait()

	truncated := false
	for w := range results {
		total.add(results[w])
		truncated = truncated || stopped[w]
	}
	return total, truncated
}

// sample is one worker's loop over a private random stream.
func (e *Engine) sample(ctx context.Context, seats [][]engine.Combo, board []engine.Card, quota int, seed uint64) (mcCounts, bool) {
	rng := rand.New(rand.NewSource(int64(seed)))
	out := mcCounts{wins: make([]float64, len(seats)), ties: make([]float64, len(seats))}

	boardSet := engine.SetOf(board...)
	deck := engine.FullDeck()
	known := len(board)

	hands := make([][]engine.Card, len(seats))
	for i, cs := range seats {
		if cs != nil {
			hands[i] = make([]engine.Card, 7)
			copy(hands[i][2:], board)
		}
	}
	scores := make([]engine.Strength, len(seats))
	winners := make([]int, 0, len(seats))
	var scratch []engine.Combo

	maxAttempts := int64(quota) * int64(e.attemptFactor)
	for out.trials < int64(quota) && out.attempts < maxAttempts {
		if out.attempts&255 == 0 && ctx.Err() != nil {
			return out, true
		}
		out.attempts++

		used := boardSet
		dealt := true
		for i, cs := range seats {
			if cs == nil {
				continue
			}
			c, ok := pick(rng, cs, used, &scratch)
			if !ok {
				dealt = false
				break
			}
			used |= c.Set()
			hands[i][0], hands[i][1] = c.A, c.B
		}
		if !dealt {
			continue
		}

		// Uniform draw without replacement from the undealt cards.
		for slot := 2 + known; slot < 7; {
			c := deck[rng.Intn(len(deck))]
			if used.Has(c) {
				continue
			}
			used = used.Add(c)
			for i := range hands {
				if hands[i] != nil {
					hands[i][slot] = c
				}
			}
			slot++
		}

		winners = winners[:0]
		var best engine.Strength
		for i, h := range hands {
			if h == nil {
				continue
			}
			scores[i] = e.eval.Evaluate(h)
			switch {
			case len(winners) == 0 || scores[i] > best:
				best = scores[i]
				winners = append(winners[:0], i)
			case scores[i] == best:
				winners = append(winners, i)
			}
		}
		out.trials++
		if len(winners) == 1 {
			out.wins[winners[0]]++
			continue
		}
		share := 1 / float64(len(winners))
		for _, i := range winners {
			out.wins[i] += share
			out.ties[i] += share
		}
	}
	return out, false
}

// pick draws uniformly from the combos that share no card with used.
func pick(rng *rand.Rand, cs []engine.Combo, used engine.CardSet, scratch *[]engine.Combo) (engine.Combo, bool) {
	for t := 0; t < rejectTries; t++ {
		if c := cs[rng.Intn(len(cs))]; !c.Set().Overlaps(used) {
			return c, true
		}
	}
	free := (*scratch)[:0]
	for _, c := range cs {
		if !c.Set().Overlaps(used) {
			free = append(free, c)
		}
	}
	*scratch = free
	if len(free) == 0 {
		return engine.Combo{}, false
	}
	return free[rng.Intn(len(free))], true
}
