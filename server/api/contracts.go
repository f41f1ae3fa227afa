// Package api holds the JSON contracts shared by the HTTP router, the NATS
// worker and the CLI, and the Service that maps them onto the engines.
package api

import (
	"strings"

	"range-equity/server/engine"
	"range-equity/server/equity"
)

type RangeIn struct {
	Text string `json:"text"`
}

type PlayerIn struct {
	Seat   string  `json:"seat"` // UTG|HJ|CO|BTN|SB|BB
	Folded bool    `json:"folded"`
	Range  RangeIn `json:"range"`
}

type EquityRequest struct {
	Players    []PlayerIn `json:"players"`
	Board      []string   `json:"board,omitempty"`  // 0, 3, 4 or 5 cards
	Method     string     `json:"method,omitempty"` // auto|exact|mc
	Iterations *int       `json:"iterations,omitempty"`
	Seed       *int64     `json:"seed,omitempty"`
}

type SeatOut struct {
	Seat          string   `json:"seat"`
	Equity        float64  `json:"equity"`
	Tie           float64  `json:"tie"`
	Participating bool     `json:"participating"`
	Low           *float64 `json:"low,omitempty"` // 95% interval, sampled results only
	High          *float64 `json:"high,omitempty"`
}

type EquityResponse struct {
	PerSeat    []SeatOut `json:"perSeat"`
	Method     string    `json:"method"`
	Iterations int       `json:"iterations,omitempty"`
	Trials     int64     `json:"trials,omitempty"`
	Truncated  bool      `json:"truncated,omitempty"`
	ElapsedMS  int64     `json:"elapsedMs"`
	Warnings   []string  `json:"warnings,omitempty"`
}

type ExpandRequest struct {
	Range string   `json:"range"`
	Board []string `json:"board,omitempty"`
}

type ComboOut struct {
	C1 string `json:"c1"`
	C2 string `json:"c2"`
}

type ExpandResponse struct {
	Combos   []ComboOut `json:"combos"`
	Count    int        `json:"count"`
	Percent  float64    `json:"percent"`
	Warnings []string   `json:"warnings,omitempty"`
}

type RangeRequest struct {
	Range string `json:"range"`
}

type ParseRangeResponse struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors,omitempty"`
}

type MatrixResponse struct {
	Grid    [][]float64 `json:"grid"`
	Classes []string    `json:"classes"`
	Errors  []string    `json:"errors,omitempty"`
}

// toEquity converts the wire request; seat names are matched case-insensitively.
func (r EquityRequest) toEquity(board []engine.Card) (equity.Request, error) {
	method, err := equity.ParseMethod(r.Method)
	if err != nil {
		return equity.Request{}, err
	}
	out := equity.Request{Board: board, Method: method, Seed: r.Seed}
	if r.Iterations != nil {
		out.Iterations = *r.Iterations
	}
	for _, p := range r.Players {
		out.Players = append(out.Players, equity.Player{
			Seat:   engine.Seat(strings.ToUpper(strings.TrimSpace(p.Seat))),
			Folded: p.Folded,
			Range:  p.Range.Text,
		})
	}
	return out, nil
}

func fromEquity(res equity.Result) EquityResponse {
	out := EquityResponse{
		PerSeat:   make([]SeatOut, len(res.PerSeat)),
		Method:    string(res.Method),
		Trials:    res.Trials,
		Truncated: res.Truncated,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Warnings:  res.Warnings,
	}
	if res.Method == equity.MonteCarlo {
		out.Iterations = res.Iterations
	}
	for i, s := range res.PerSeat {
		so := SeatOut{Seat: string(s.Seat), Equity: s.Equity, Tie: s.Tie, Participating: s.Participating}
		if res.Method == equity.MonteCarlo && s.Participating {
			lo, hi := s.Low, s.High
			so.Low, so.High = &lo, &hi
		}
		out.PerSeat[i] = so
	}
	return out
}
