package equity

import (
	"context"
	"fmt"
	"time"

	"range-equity/server/engine"
	"range-equity/server/ranges"
)

// Compute validates the request, expands every live range once and runs
// the selected method. Nothing is computed when any input is invalid.
//
// Auto runs exact only heads-up with at least a turn on board; exact falls
// back to sampling when the spot is not heads-up postflop or is over the
// cutoff. A preflop board never runs exact.
func (e *Engine) Compute(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	switch len(req.Board) {
	case 0, 3, 4, 5:
	default:
		return Result{}, fmt.Errorf("%w: got %d", ErrBoardLength, len(req.Board))
	}
	if engine.SetOf(req.Board...).Len() != len(req.Board) {
		return Result{}, fmt.Errorf("%w: %v", engine.ErrDuplicateCard, engine.CardsString(req.Board))
	}
	for _, c := range req.Board {
		if !c.Valid() {
			return Result{}, fmt.Errorf("%w: %s", engine.ErrInvalidCard, c)
		}
	}
	method, err := ParseMethod(string(req.Method))
	if err != nil {
		return Result{}, err
	}
	if req.Iterations < 0 || req.Iterations > e.maxIters {
		return Result{}, fmt.Errorf("%w: %d (max %d)", ErrIterations, req.Iterations, e.maxIters)
	}
	seen := map[engine.Seat]bool{}
	for _, p := range req.Players {
		if !p.Seat.Valid() {
			return Result{}, fmt.Errorf("%w: %q", ErrInvalidSeat, p.Seat)
		}
		if seen[p.Seat] {
			return Result{}, fmt.Errorf("%w: %s listed twice", ErrInvalidSeat, p.Seat)
		}
		seen[p.Seat] = true
	}

	// seats[i] stays nil for folded seats and ranges with no legal combo.
	seats := make([][]engine.Combo, len(req.Players))
	var warnings []string
	var active []int
	for i, p := range req.Players {
		if p.Folded {
			continue
		}
		x, err := ranges.Expand(p.Range, req.Board)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", p.Seat, err)
		}
		warnings = append(warnings, x.Warnings...)
		if len(x.Combos) > 0 {
			seats[i] = x.Combos
			active = append(active, i)
		}
	}

	res := Result{Method: MonteCarlo, Warnings: warnings}
	if len(active) < 2 {
		res.PerSeat = idle(req.Players)
		res.Elapsed = time.Since(start)
		return res, nil
	}

	tryExact := len(active) == 2 && len(req.Board) >= 3 &&
		(method == Exact || (method == Auto && len(req.Board) >= 4))
	if tryExact {
		a, b := active[0], active[1]
		n, ok, err := e.exact(ctx, seats[a], seats[b], req.Board)
		if err != nil {
			return Result{}, err
		}
		if ok {
			res.Method = Exact
			res.Trials = n.total
			res.PerSeat = idle(req.Players)
			eq1, tie1, eq2, tie2 := n.shares()
			res.PerSeat[a] = SeatEquity{Seat: req.Players[a].Seat, Equity: eq1, Tie: tie1, Participating: true, Low: eq1, High: eq1}
			res.PerSeat[b] = SeatEquity{Seat: req.Players[b].Seat, Equity: eq2, Tie: tie2, Participating: true, Low: eq2, High: eq2}
			res.Elapsed = time.Since(start)
			return res, nil
		}
	}

	iters := req.Iterations
	if iters == 0 {
		iters = e.DefaultIterations(len(req.Board))
	}
	var base uint64
	if req.Seed != nil {
		base = uint64(*req.Seed)
	} else {
		base = secureBaseSeed()
	}
	if e.timeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeBudget)
		defer cancel()
	}

	n, stopped := e.monteCarlo(ctx, seats, req.Board, iters, base)
	res.Iterations = iters
	res.Trials = n.trials
	res.Truncated = stopped || n.trials < int64(iters)
	res.PerSeat = idle(req.Players)
	if n.trials > 0 {
		t := float64(n.trials)
		for _, i := range active {
			p := n.wins[i] / t
			lo, hi := WilsonCI95(p, n.trials)
			res.PerSeat[i] = SeatEquity{
				Seat:          req.Players[i].Seat,
				Equity:        p * 100,
				Tie:           n.ties[i] / t * 100,
				Participating: true,
				Low:           lo * 100,
				High:          hi * 100,
			}
		}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// idle is the all-zero, non-participating result for every seat.
func idle(players []Player) []SeatEquity {
	out := make([]SeatEquity, len(players))
	for i, p := range players {
		out[i] = SeatEquity{Seat: p.Seat}
	}
	return out
}
