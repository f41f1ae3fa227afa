package equity

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"range-equity/server/engine"
	"range-equity/server/ranges"
)

func cards(t *testing.T, s string) []engine.Card {
	t.Helper()
	b, err := engine.ParseBoard(strings.Fields(s))
	if err != nil {
		t.Fatalf("bad board %q: %v", s, err)
	}
	return b
}

func seed(v int64) *int64 { return &v }

func headsUp(r1, r2 string) []Player {
	return []Player{
		{Seat: engine.UTG, Range: r1},
		{Seat: engine.BB, Range: r2},
	}
}

func compute(t *testing.T, e *Engine, req Request) Result {
	t.Helper()
	res, err := e.Compute(context.Background(), req)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	return res
}

func TestOneComboRiverIsDeterministic(t *testing.T) {
	e := New()
	req := Request{
		Players:    headsUp("AA", "KK"),
		Board:      cards(t, "As Ah Ks Kh 3c"),
		Method:     MonteCarlo,
		Iterations: 1000,
		Seed:       seed(3),
	}
	a := compute(t, e, req)
	b := compute(t, e, req)
	if a.Method != MonteCarlo || a.Trials != 1000 {
		t.Fatalf("expected 1000 mc trials, got %s %d", a.Method, a.Trials)
	}
	if a.PerSeat[0].Equity != 100 || a.PerSeat[1].Equity != 0 {
		t.Fatalf("quad aces should win every trial: %+v", a.PerSeat)
	}
	for i := range a.PerSeat {
		if a.PerSeat[i] != b.PerSeat[i] {
			t.Fatalf("seat %d differs between runs: %+v vs %+v", i, a.PerSeat[i], b.PerSeat[i])
		}
	}

	req.Method = Exact
	x := compute(t, e, req)
	if x.Method != Exact || x.Trials != 1 || x.PerSeat[0].Equity != 100 {
		t.Fatalf("exact river: %+v", x)
	}
}

func TestBoardTieSplits(t *testing.T) {
	e := New()
	res := compute(t, e, Request{
		Players:    headsUp("22", "33"),
		Board:      cards(t, "Ts Js Qs Ks As"),
		Method:     MonteCarlo,
		Iterations: 500,
		Seed:       seed(1),
	})
	for _, s := range res.PerSeat {
		if s.Equity != 50 || s.Tie != 50 {
			t.Fatalf("board royal should split: %+v", s)
		}
	}
}

func TestExactMatchesMonteCarlo(t *testing.T) {
	board := cards(t, "Jh Tc 2d")
	x := compute(t, New(), Request{Players: headsUp("AKs", "QQ"), Board: board, Method: Exact})
	if x.Method != Exact {
		t.Fatalf("expected exact, got %s", x.Method)
	}
	// 24 combo pairs, each completing the board from 45 unseen cards.
	if want := int64(24 * 990); x.Trials != want {
		t.Fatalf("expected %d enumerated spots, got %d", want, x.Trials)
	}
	if sum := x.PerSeat[0].Equity + x.PerSeat[1].Equity; math.Abs(sum-100) > 1e-9 {
		t.Fatalf("exact equities sum to %v", sum)
	}

	mc := compute(t, New(), Request{Players: headsUp("AKs", "QQ"), Board: board, Method: MonteCarlo, Iterations: 60000, Seed: seed(7)})
	for i := range x.PerSeat {
		if d := math.Abs(x.PerSeat[i].Equity - mc.PerSeat[i].Equity); d > 1 {
			t.Fatalf("seat %d: exact %.3f vs mc %.3f", i, x.PerSeat[i].Equity, mc.PerSeat[i].Equity)
		}
		if s := mc.PerSeat[i]; s.Low > s.Equity || s.High < s.Equity {
			t.Fatalf("interval [%v, %v] misses %v", s.Low, s.High, s.Equity)
		}
	}
}

func TestPureAndTableExactAgree(t *testing.T) {
	req := Request{Players: headsUp("AKs, 99", "QQ, JTs"), Board: cards(t, "Jh Tc 2d 7s"), Method: Exact}
	a := compute(t, New(WithEvaluator(engine.Pure())), req)
	b := compute(t, New(WithEvaluator(engine.Table())), req)
	if a.Method != Exact || b.Method != Exact {
		t.Fatalf("expected exact runs")
	}
	for i := range a.PerSeat {
		if math.Abs(a.PerSeat[i].Equity-b.PerSeat[i].Equity) > 1e-9 {
			t.Fatalf("seat %d: pure %v vs table %v", i, a.PerSeat[i].Equity, b.PerSeat[i].Equity)
		}
	}
}

func TestSeedReproduciblePerWorkerCount(t *testing.T) {
	for _, w := range []int{1, 4} {
		e := New(WithWorkers(w))
		req := Request{Players: headsUp("TT+, AQs+", "A2s+, KJo+"), Board: cards(t, "9c 5d 2h"), Method: MonteCarlo, Iterations: 4000, Seed: seed(99)}
		a, b := compute(t, e, req), compute(t, e, req)
		for i := range a.PerSeat {
			if a.PerSeat[i] != b.PerSeat[i] {
				t.Fatalf("workers=%d: seat %d not reproducible", w, i)
			}
		}
		if a.Trials != 4000 {
			t.Fatalf("workers=%d: expected 4000 trials, got %d", w, a.Trials)
		}
	}
}

func TestMultiwaySharesSumToHundred(t *testing.T) {
	res := compute(t, New(), Request{
		Players: []Player{
			{Seat: engine.UTG, Range: "QQ+, AKs"},
			{Seat: engine.CO, Range: "77-99, AJs+"},
			{Seat: engine.BTN, Range: "Ax"},
			{Seat: engine.BB, Folded: true, Range: "KK"},
		},
		Method:     Auto,
		Iterations: 3000,
		Seed:       seed(5),
	})
	sum := 0.0
	for _, s := range res.PerSeat[:3] {
		if !s.Participating {
			t.Fatalf("%s should participate", s.Seat)
		}
		if s.Tie > s.Equity {
			t.Fatalf("%s: tie %v exceeds equity %v", s.Seat, s.Tie, s.Equity)
		}
		sum += s.Equity
	}
	if math.Abs(sum-100) > 1e-6 {
		t.Fatalf("equities sum to %v", sum)
	}
	if bb := res.PerSeat[3]; bb.Participating || bb.Equity != 0 {
		t.Fatalf("folded seat should be idle: %+v", bb)
	}
	if res.Iterations != 3000 || res.Method != MonteCarlo {
		t.Fatalf("unexpected result meta %s %d", res.Method, res.Iterations)
	}
}

func TestNoCompetition(t *testing.T) {
	cases := [][]Player{
		{{Seat: engine.UTG, Range: "AA"}, {Seat: engine.BB, Folded: true, Range: "KK"}},
		{{Seat: engine.UTG, Range: "AA"}, {Seat: engine.BB, Range: ""}},
		{{Seat: engine.UTG, Range: "AA"}, {Seat: engine.BB, Range: "KK"}, {Seat: engine.SB, Folded: true}},
	}
	board := [][]engine.Card{nil, nil, cards(t, "Kd Kc Ks")}
	// third case: KK is blocked out by three kings on board
	for n, players := range cases {
		res := compute(t, New(), Request{Players: players, Board: board[n], Seed: seed(1)})
		for _, s := range res.PerSeat {
			if s.Participating || s.Equity != 0 || s.Tie != 0 {
				t.Fatalf("case %d: expected idle seat, got %+v", n, s)
			}
		}
		if len(res.PerSeat) != len(players) {
			t.Fatalf("case %d: expected %d seats, got %d", n, len(players), len(res.PerSeat))
		}
	}
}

func TestImpossibleDealTerminates(t *testing.T) {
	// Both seats hold only AdAc once the board takes two aces.
	res := compute(t, New(), Request{
		Players:    headsUp("AA", "AA"),
		Board:      cards(t, "As Ah 2c"),
		Method:     MonteCarlo,
		Iterations: 200,
		Seed:       seed(1),
	})
	if res.Trials != 0 || !res.Truncated {
		t.Fatalf("expected zero trials and truncation, got %d %v", res.Trials, res.Truncated)
	}
	for _, s := range res.PerSeat {
		if s.Participating || s.Equity != 0 {
			t.Fatalf("zero trials should report idle seats: %+v", s)
		}
	}
}

func TestEndToEndPreflop(t *testing.T) {
	res := compute(t, New(), Request{
		Players:    headsUp("AKs, AKo, QQ-TT", "JJ-99, AQs-AJs, KQs, JTo+"),
		Method:     MonteCarlo,
		Iterations: 2000,
		Seed:       seed(42),
	})
	if res.Method != MonteCarlo || len(res.PerSeat) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	sum := 0.0
	for _, s := range res.PerSeat {
		if !s.Participating {
			t.Fatalf("%s should participate", s.Seat)
		}
		sum += s.Equity
	}
	if math.Abs(sum-100) > 1e-6 {
		t.Fatalf("equities sum to %v", sum)
	}
}

func TestMethodSelection(t *testing.T) {
	tests := []struct {
		name   string
		board  string
		method Method
		opts   []Option
		want   Method
	}{
		{"preflop exact runs mc", "", Exact, nil, MonteCarlo},
		{"auto flop samples", "Jh Tc 2d", Auto, nil, MonteCarlo},
		{"auto turn enumerates", "Jh Tc 2d 7s", Auto, nil, Exact},
		{"exact flop enumerates", "Jh Tc 2d", Exact, nil, Exact},
		{"over cutoff falls back", "Jh Tc 2d", Exact, []Option{WithExactCutoff(10)}, MonteCarlo},
		{"mc stays mc", "Jh Tc 2d 7s 8s", MonteCarlo, nil, MonteCarlo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var board []engine.Card
			if tt.board != "" {
				board = cards(t, tt.board)
			}
			res := compute(t, New(tt.opts...), Request{
				Players:    headsUp("AKs", "QQ"),
				Board:      board,
				Method:     tt.method,
				Iterations: 500,
				Seed:       seed(1),
			})
			if res.Method != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, res.Method)
			}
		})
	}
}

func TestAutoWithThreeSeatsSamples(t *testing.T) {
	res := compute(t, New(), Request{
		Players: []Player{
			{Seat: engine.UTG, Range: "AKs"},
			{Seat: engine.HJ, Range: "QQ"},
			{Seat: engine.BB, Range: "JTs"},
		},
		Board:      cards(t, "2c 3d 4h 5s"),
		Method:     Exact,
		Iterations: 500,
		Seed:       seed(2),
	})
	if res.Method != MonteCarlo {
		t.Fatalf("three live seats cannot enumerate, got %s", res.Method)
	}
}

func TestDefaultIterations(t *testing.T) {
	e := New(WithIterations(300, 400))
	pre := compute(t, e, Request{Players: headsUp("AA", "KK"), Seed: seed(1)})
	post := compute(t, e, Request{Players: headsUp("AA", "KK"), Board: cards(t, "2c 3d 9h"), Seed: seed(1)})
	if pre.Iterations != 300 || post.Iterations != 400 {
		t.Fatalf("defaults not applied: %d %d", pre.Iterations, post.Iterations)
	}
}

func TestComputeErrors(t *testing.T) {
	e := New(WithMaxIterations(1000))
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"board length", Request{Players: headsUp("AA", "KK"), Board: cards(t, "2c 3d")}, ErrBoardLength},
		{"duplicate board", Request{Players: headsUp("AA", "KK"), Board: []engine.Card{{Rank: 2, Suit: 'c'}, {Rank: 2, Suit: 'c'}, {Rank: 3, Suit: 'd'}}}, engine.ErrDuplicateCard},
		{"weights", Request{Players: headsUp("AA", "KK:50")}, ranges.ErrWeightsNotSupported},
		{"seat", Request{Players: []Player{{Seat: "MP", Range: "AA"}, {Seat: engine.BB, Range: "KK"}}}, ErrInvalidSeat},
		{"repeated seat", Request{Players: []Player{{Seat: engine.BB, Range: "AA"}, {Seat: engine.BB, Range: "KK"}}}, ErrInvalidSeat},
		{"method", Request{Players: headsUp("AA", "KK"), Method: "gto"}, ErrInvalidMethod},
		{"negative iterations", Request{Players: headsUp("AA", "KK"), Iterations: -1}, ErrIterations},
		{"too many iterations", Request{Players: headsUp("AA", "KK"), Iterations: 1001}, ErrIterations},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Compute(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New().Compute(ctx, Request{Players: headsUp("AKs", "QQ"), Method: MonteCarlo, Iterations: 10000, Seed: seed(1)})
	if err != nil {
		t.Fatalf("sampling should return partial counts, got %v", err)
	}
	if !res.Truncated || res.Trials != 0 {
		t.Fatalf("expected truncated empty run, got %v %d", res.Truncated, res.Trials)
	}

	_, err = New().Compute(ctx, Request{Players: headsUp("AKs", "QQ"), Board: cards(t, "Jh Tc 2d 7s"), Method: Exact})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("exact should abort on cancel, got %v", err)
	}
}

// stopAfter reports cancellation once Err has been polled n times, so a
// run stops at a known point mid-sampling.
type stopAfter struct {
	context.Context
	left atomic.Int32
}

func newStopAfter(n int32) *stopAfter {
	c := &stopAfter{Context: context.Background()}
	c.left.Store(n)
	return c
}

func (c *stopAfter) Err() error {
	if c.left.Add(-1) < 0 {
		return context.Canceled
	}
	return nil
}

func checkPartial(t *testing.T, res Result, live int) {
	t.Helper()
	if !res.Truncated {
		t.Fatalf("expected a truncated run")
	}
	if res.Trials <= 0 || res.Trials >= int64(res.Iterations) {
		t.Fatalf("expected 0 < trials < %d, got %d", res.Iterations, res.Trials)
	}
	sum := 0.0
	for _, s := range res.PerSeat[:live] {
		if !s.Participating || s.Tie > s.Equity || s.Low > s.Equity || s.High < s.Equity {
			t.Fatalf("inconsistent partial seat %+v", s)
		}
		sum += s.Equity
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("partial equities sum to %v", sum)
	}
}

func TestCancellationMidRun(t *testing.T) {
	// One worker polls every 256 attempts: three polls allow 768 attempts.
	ctx := newStopAfter(3)
	e := New(WithWorkers(1))
	res, err := e.Compute(ctx, Request{
		Players:    headsUp("AA", "KK"),
		Method:     MonteCarlo,
		Iterations: 100000,
		Seed:       seed(3),
	})
	if err != nil {
		t.Fatalf("sampling should return partial counts, got %v", err)
	}
	checkPartial(t, res, 2)
	if res.Trials > 768 {
		t.Fatalf("sampling continued after cancellation: %d trials", res.Trials)
	}
}

func TestTimeBudgetTruncates(t *testing.T) {
	e := New(WithTimeBudget(50 * time.Millisecond))
	res, err := e.Compute(context.Background(), Request{
		Players: []Player{
			{Seat: engine.UTG, Range: "22+, A2s+, K9s+, ATo+"},
			{Seat: engine.CO, Range: "Ax, Kx"},
			{Seat: engine.BB, Range: "22+, Qx, Jx, T9s"},
		},
		Method:     MonteCarlo,
		Iterations: DefaultMaxIterations,
		Seed:       seed(8),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkPartial(t, res, 3)
}

func TestWilsonCI95(t *testing.T) {
	lo, hi := WilsonCI95(0.5, 100)
	if math.Abs(lo-0.4038) > 0.001 || math.Abs(hi-0.5962) > 0.001 {
		t.Fatalf("unexpected interval [%v, %v]", lo, hi)
	}
	if lo, hi := WilsonCI95(1, 10); math.Abs(hi-1) > 1e-9 || lo >= 1 || lo <= 0 {
		t.Fatalf("unexpected interval at p=1: [%v, %v]", lo, hi)
	}
	if lo, hi := WilsonCI95(0.3, 0); lo != 0 || hi != 1 {
		t.Fatalf("empty sample should span [0, 1]")
	}
}

func TestExactWork(t *testing.T) {
	if got := ExactWork(4, 6, 3); got != 4*6*1176 {
		t.Fatalf("flop work = %d", got)
	}
	if got := ExactWork(10, 10, 5); got != 100 {
		t.Fatalf("river work = %d", got)
	}
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{"": Auto, "AUTO": Auto, "exact": Exact, " mc ": MonteCarlo} {
		got, err := ParseMethod(in)
		if err != nil || got != want {
			t.Fatalf("ParseMethod(%q) = %s, %v", in, got, err)
		}
	}
}

func BenchmarkMonteCarloPreflop(b *testing.B) {
	e := New()
	req := Request{Players: headsUp("AKs, AKo, QQ-TT", "JJ-99, AQs-AJs, KQs, JTo+"), Method: MonteCarlo, Iterations: 10000, Seed: seed(1)}
	for i := 0; i < b.N; i++ {
		if _, err := e.Compute(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}
