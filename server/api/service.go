package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"range-equity/server/engine"
	"range-equity/server/equity"
	"range-equity/server/ranges"
	"range-equity/server/store"
)

// Error carries the status a transport should answer with.
type Error struct {
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Err }

// Classify maps engine errors to client-facing ones. Errors that are
// already *Error pass through, anything unknown is a 500.
func Classify(err error) *Error {
	var ae *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, ranges.ErrWeightsNotSupported):
		return &Error{Status: http.StatusUnprocessableEntity, Msg: "weights are not supported", Err: err}
	case errors.Is(err, equity.ErrBoardLength):
		return &Error{Status: http.StatusBadRequest, Msg: err.Error(), Err: err}
	case errors.Is(err, engine.ErrInvalidCard),
		errors.Is(err, engine.ErrDuplicateCard),
		errors.Is(err, equity.ErrInvalidSeat),
		errors.Is(err, equity.ErrInvalidMethod),
		errors.Is(err, equity.ErrIterations):
		return &Error{Status: http.StatusUnprocessableEntity, Msg: err.Error(), Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Error{Status: http.StatusServiceUnavailable, Msg: "computation cancelled", Err: err}
	}
	return &Error{Status: http.StatusInternalServerError, Msg: "internal error", Err: err}
}

// Recorder persists run metadata; *store.DB implements it.
type Recorder interface {
	RecordRun(ctx context.Context, r store.Run) error
}

type Service struct {
	eng  *equity.Engine
	runs Recorder
}

// NewService wires the engine; runs may be nil to skip the run log.
func NewService(eng *equity.Engine, runs Recorder) *Service {
	return &Service{eng: eng, runs: runs}
}

func (s *Service) Evaluator() string { return s.eng.Evaluator().Name() }

// Preflop ignores any board and never enumerates.
func (s *Service) Preflop(ctx context.Context, req EquityRequest) (EquityResponse, error) {
	return s.run(ctx, "preflop", req, nil)
}

// Postflop needs a 3 to 5 card board.
func (s *Service) Postflop(ctx context.Context, req EquityRequest) (EquityResponse, error) {
	if n := len(req.Board); n < 3 || n > 5 {
		return EquityResponse{}, &Error{Status: http.StatusBadRequest, Msg: fmt.Sprintf("postflop board needs 3 to 5 cards, got %d", n)}
	}
	board, err := engine.ParseBoard(req.Board)
	if err != nil {
		return EquityResponse{}, Classify(err)
	}
	return s.run(ctx, "postflop", req, board)
}

func (s *Service) run(ctx context.Context, endpoint string, req EquityRequest, board []engine.Card) (EquityResponse, error) {
	ereq, err := req.toEquity(board)
	if err != nil {
		return EquityResponse{}, Classify(err)
	}
	res, err := s.eng.Compute(ctx, ereq)
	if err != nil {
		return EquityResponse{}, Classify(err)
	}
	s.record(endpoint, ereq, res)
	return fromEquity(res), nil
}

// record is best effort: a failed insert never fails the computation.
func (s *Service) record(endpoint string, req equity.Request, res equity.Result) {
	if s.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r := store.Run{
		Endpoint:   endpoint,
		MethodReq:  string(req.Method),
		MethodRun:  string(res.Method),
		Players:    len(req.Players),
		BoardLen:   len(req.Board),
		Iterations: res.Iterations,
		Trials:     res.Trials,
		DurationMS: res.Elapsed.Milliseconds(),
		Truncated:  res.Truncated,
		Evaluator:  s.Evaluator(),
	}
	if err := s.runs.RecordRun(ctx, r); err != nil {
		log.Printf("run log: %v", err)
	}
}

func (s *Service) Expand(req ExpandRequest) (ExpandResponse, error) {
	if strings.Contains(req.Range, ":") {
		return ExpandResponse{}, Classify(ranges.ErrWeightsNotSupported)
	}
	board, err := engine.ParseBoard(req.Board)
	if err != nil {
		return ExpandResponse{}, Classify(err)
	}
	x, err := ranges.Expand(req.Range, board)
	if err != nil {
		return ExpandResponse{}, Classify(err)
	}
	out := ExpandResponse{
		Combos:   make([]ComboOut, len(x.Combos)),
		Count:    len(x.Combos),
		Percent:  ranges.ComboPercent(len(x.Combos)),
		Warnings: x.Warnings,
	}
	for i, c := range x.Combos {
		out.Combos[i] = ComboOut{C1: c.A.String(), C2: c.B.String()}
	}
	return out, nil
}

// ParseRange reports unrecognized tokens; only weights are an error.
func (s *Service) ParseRange(req RangeRequest) (ParseRangeResponse, error) {
	v, err := ranges.Validate(req.Range)
	if err != nil {
		return ParseRangeResponse{}, Classify(err)
	}
	return ParseRangeResponse{OK: v.OK, Errors: v.Warnings}, nil
}

func (s *Service) Matrix(req RangeRequest) (MatrixResponse, error) {
	g, warnings, err := ranges.BuildGrid(req.Range)
	if err != nil {
		return MatrixResponse{}, Classify(err)
	}
	out := MatrixResponse{Grid: g.Matrix(), Classes: []string{}, Errors: warnings}
	classes, _, _ := ranges.Classes(req.Range)
	for _, c := range classes {
		out.Classes = append(out.Classes, c.String())
	}
	return out, nil
}
