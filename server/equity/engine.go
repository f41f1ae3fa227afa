package equity

import (
	"time"

	"range-equity/server/engine"
)

const (
	DefaultExactCutoff        = 1_500_000
	DefaultWorkers            = 4
	DefaultAttemptFactor      = 20
	DefaultPreflopIterations  = 20_000
	DefaultPostflopIterations = 30_000
	DefaultMaxIterations      = 2_000_000
)

// Engine holds configuration only and is safe for concurrent use. Every
// computation owns its deck, random streams and counters.
type Engine struct {
	eval          engine.Evaluator
	exactCutoff   int64
	workers       int
	attemptFactor int
	preflopIters  int
	postflopIters int
	maxIters      int
	timeBudget    time.Duration
}

// Option is a functional option for configuring the Engine
type Option func(*Engine)

func WithEvaluator(ev engine.Evaluator) Option {
	return func(e *Engine) {
		if ev != nil {
			e.eval = ev
		}
	}
}

// WithExactCutoff bounds the estimated evaluations an exact run may take
// before it declines in favour of sampling.
func WithExactCutoff(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.exactCutoff = n
		}
	}
}

// WithWorkers sets the number of Monte Carlo goroutines. Results for a seed
// depend on it, so keep it fixed where reproducibility matters.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithAttemptFactor caps sampling attempts at factor x target trials.
func WithAttemptFactor(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.attemptFactor = n
		}
	}
}

func WithIterations(preflop, postflop int) Option {
	return func(e *Engine) {
		if preflop > 0 {
			e.preflopIters = preflop
		}
		if postflop > 0 {
			e.postflopIters = postflop
		}
	}
}

func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIters = n
		}
	}
}

// WithTimeBudget stops sampling after d and returns what was counted.
func WithTimeBudget(d time.Duration) Option {
	return func(e *Engine) {
		e.timeBudget = d
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		eval:          engine.Table(),
		exactCutoff:   DefaultExactCutoff,
		workers:       DefaultWorkers,
		attemptFactor: DefaultAttemptFactor,
		preflopIters:  DefaultPreflopIterations,
		postflopIters: DefaultPostflopIterations,
		maxIters:      DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Evaluator() engine.Evaluator { return e.eval }

func (e *Engine) MaxIterations() int { return e.maxIters }

// DefaultIterations is the trial target used when a request leaves it zero.
func (e *Engine) DefaultIterations(boardLen int) int {
	if boardLen == 0 {
		return e.preflopIters
	}
	return e.postflopIters
}
