// Package equity computes win/tie shares for seats holding hand ranges, by
// exact enumeration for heads-up postflop spots and by Monte Carlo sampling
// otherwise.
package equity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"range-equity/server/engine"
)

type Method string

const (
	Auto       Method = "auto"
	Exact      Method = "exact"
	MonteCarlo Method = "mc"
)

// ParseMethod accepts "auto", "exact" or "mc"; empty means auto.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return Auto, nil
	case Auto, Exact, MonteCarlo:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
}

var (
	ErrBoardLength   = errors.New("board must have 0, 3, 4 or 5 cards")
	ErrInvalidMethod = errors.New("invalid method")
	ErrInvalidSeat   = errors.New("invalid seat")
	ErrIterations    = errors.New("iterations out of range")
)

type Player struct {
	Seat   engine.Seat
	Folded bool
	Range  string
}

// SeatEquity is one seat's share in percent. Tie is the part of Equity won
// through split pots. Low and High bound Equity at 95% for sampled results
// and equal it for exact ones.
type SeatEquity struct {
	Seat          engine.Seat
	Equity        float64
	Tie           float64
	Participating bool
	Low           float64
	High          float64
}

type Request struct {
	Players []Player
	Board   []engine.Card
	Method  Method
	// Iterations is the Monte Carlo trial target; 0 picks the street default.
	Iterations int
	// Seed makes sampling reproducible; nil draws a fresh one.
	Seed *int64
}

type Result struct {
	PerSeat []SeatEquity
	// Method is the one that actually ran.
	Method     Method
	Iterations int
	Trials     int64
	Truncated  bool
	Elapsed    time.Duration
	// Warnings collects unrecognized range tokens across seats.
	Warnings []string
}
