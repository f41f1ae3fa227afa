package main

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"range-equity/server/api"
	"range-equity/server/broker"
	"range-equity/server/ranges"
)

type calcFlags struct {
	players    []string
	folded     []string
	board      string
	method     string
	iterations int
	seed       int64
	remote     bool
}

func calcCmd(cfg *Config) *cobra.Command {
	var f calcFlags
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute equity from the command line",
		Example: `  range-equity calc -p UTG="AKs, AKo, QQ-TT" -p BB="JJ-99, AQs-AJs, KQs, JTo+"
  range-equity calc -p BTN=AA -p BB=KK --board "Jh Tc 2d" --method exact`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd.Flags().Changed("iterations"), cmd.Flags().Changed("seed"))
			if err != nil {
				return err
			}
			subject := broker.SubjectPreflop
			if len(req.Board) > 0 {
				subject = broker.SubjectPostflop
			}

			var out api.EquityResponse
			spinner, _ := pterm.DefaultSpinner.Start("Computing equity ...")
			if f.remote {
				err = callRemote(*cfg, subject, req, &out)
			} else {
				out, err = callLocal(*cfg, subject, req)
			}
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success(fmt.Sprintf("%s in %dms", out.Method, out.ElapsedMS))
			return renderEquity(out)
		},
	}
	cmd.Flags().StringArrayVarP(&f.players, "player", "p", nil, `seat and range, e.g. BTN="AKs, QQ+" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.folded, "fold", nil, "seat that has folded (repeatable)")
	cmd.Flags().StringVarP(&f.board, "board", "b", "", `board cards, e.g. "Jh Tc 2d"`)
	cmd.Flags().StringVarP(&f.method, "method", "m", "auto", "auto|exact|mc")
	cmd.Flags().IntVarP(&f.iterations, "iterations", "n", 0, "Monte Carlo trials (default depends on street)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Monte Carlo seed")
	cmd.Flags().BoolVar(&f.remote, "nats", false, "send the request to a worker over NATS")

	cmd.AddCommand(rangeCmd())
	return cmd
}

func rangeCmd() *cobra.Command {
	var board string
	cmd := &cobra.Command{
		Use:   "range <text>",
		Short: "Expand a range and show its grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := api.NewService(nil, nil)
			out, err := svc.Expand(api.ExpandRequest{Range: args[0], Board: splitCards(board)})
			if err != nil {
				return err
			}
			g, _, err := ranges.BuildGrid(args[0])
			if err != nil {
				return err
			}
			for _, w := range out.Warnings {
				pterm.Warning.Println(w)
			}
			if err := renderGrid(g); err != nil {
				return err
			}
			pterm.Info.Printfln("%d combos (%.2f%%)", out.Count, out.Percent)
			return nil
		},
	}
	cmd.Flags().StringVarP(&board, "board", "b", "", "board cards removed as blockers")
	return cmd
}

// request builds the api request from the flags. Iterations and seed are
// only sent when given so the engine defaults apply otherwise.
func (f calcFlags) request(withIterations, withSeed bool) (api.EquityRequest, error) {
	req := api.EquityRequest{Board: splitCards(f.board), Method: f.method}
	seen := map[string]bool{}
	for _, p := range f.players {
		seat, text, ok := strings.Cut(p, "=")
		if !ok {
			return req, fmt.Errorf("bad --player %q, want SEAT=range", p)
		}
		seat = strings.ToUpper(strings.TrimSpace(seat))
		seen[seat] = true
		req.Players = append(req.Players, api.PlayerIn{Seat: seat, Range: api.RangeIn{Text: text}})
	}
	for _, s := range f.folded {
		s = strings.ToUpper(strings.TrimSpace(s))
		if seen[s] {
			return req, fmt.Errorf("seat %s is both folded and dealt a range", s)
		}
		req.Players = append(req.Players, api.PlayerIn{Seat: s, Folded: true})
	}
	if withIterations {
		n := f.iterations
		req.Iterations = &n
	}
	if withSeed {
		s := f.seed
		req.Seed = &s
	}
	return req, nil
}

func callLocal(cfg Config, subject string, req api.EquityRequest) (api.EquityResponse, error) {
	svc, err := newService(cfg, nil)
	if err != nil {
		return api.EquityResponse{}, err
	}
	if subject == broker.SubjectPostflop {
		return svc.Postflop(context.Background(), req)
	}
	return svc.Preflop(context.Background(), req)
}

func callRemote(cfg Config, subject string, req api.EquityRequest, out *api.EquityResponse) error {
	nc, err := broker.Connect(cfg.NATSURL, "range-equity-calc")
	if err != nil {
		return err
	}
	defer nc.Drain()
	ctx, cancel := withTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return broker.Call(ctx, nc, subject, req, out)
}

func renderEquity(out api.EquityResponse) error {
	for _, w := range out.Warnings {
		pterm.Warning.Println(w)
	}
	data := pterm.TableData{{"Seat", "Equity %", "Tie %", "95% interval"}}
	for _, s := range out.PerSeat {
		if !s.Participating {
			data = append(data, []string{s.Seat, "-", "-", ""})
			continue
		}
		ci := ""
		if s.Low != nil && s.High != nil {
			ci = fmt.Sprintf("%.2f - %.2f", *s.Low, *s.High)
		}
		data = append(data, []string{s.Seat, fmt.Sprintf("%.2f", s.Equity), fmt.Sprintf("%.2f", s.Tie), ci})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if out.Method == "mc" {
		line := fmt.Sprintf("%d of %d trials", out.Trials, out.Iterations)
		if out.Truncated {
			line += " (truncated)"
		}
		pterm.Info.Println(line)
	}
	return nil
}

func renderGrid(g ranges.Grid) error {
	data := make(pterm.TableData, 13)
	for i := range g {
		row := make([]string, 13)
		for j, on := range g[i] {
			if on {
				row[j] = pterm.LightGreen(ranges.ClassAt(i, j).String())
			} else {
				row[j] = pterm.Gray(ranges.ClassAt(i, j).String())
			}
		}
		data[i] = row
	}
	return pterm.DefaultTable.WithData(data).Render()
}

func splitCards(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
}
