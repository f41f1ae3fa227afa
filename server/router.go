package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"range-equity/server/api"
	"range-equity/server/store"
)

const maxBody = 1 << 20

// Router serves the equity API. db may be nil, which disables /api/runs.
func Router(svc *api.Service, db *store.DB, cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           600,
	}))

	// Health
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "evaluator": svc.Evaluator(), "db": dbStatus(r.Context(), db)})
	})

	equityHandler := func(endpoint string, run func(context.Context, api.EquityRequest) (api.EquityResponse, error)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var req api.EquityRequest
			if !decode(w, r, &req) {
				return
			}
			out, err := run(r.Context(), req)
			if err != nil {
				writeErr(w, err)
				return
			}
			if cfg.Debug {
				log.Printf("[%s] %s %s players=%d trials=%d %dms", middleware.GetReqID(r.Context()),
					endpoint, out.Method, len(req.Players), out.Trials, out.ElapsedMS)
			}
			writeJSON(w, http.StatusOK, out)
		}
	}
	r.Post("/equity/preflop", equityHandler("preflop", svc.Preflop))
	r.Post("/equity/postflop", equityHandler("postflop", svc.Postflop))

	r.Post("/range/expand", func(w http.ResponseWriter, r *http.Request) {
		var req api.ExpandRequest
		if !decode(w, r, &req) {
			return
		}
		out, err := svc.Expand(req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Post("/parse-range", func(w http.ResponseWriter, r *http.Request) {
		var req api.RangeRequest
		if !decode(w, r, &req) {
			return
		}
		out, err := svc.ParseRange(req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Post("/range/matrix", func(w http.ResponseWriter, r *http.Request) {
		var req api.RangeRequest
		if !decode(w, r, &req) {
			return
		}
		out, err := svc.Matrix(req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	// Run log
	r.Get("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			writeDetail(w, http.StatusServiceUnavailable, "run log disabled")
			return
		}
		limit := atoiDef(r.URL.Query().Get("limit"), 50)
		ctx, cancel := withTimeout(r.Context(), 5*time.Second)
		defer cancel()
		runs, err := db.RecentRuns(ctx, limit)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})
	r.Get("/api/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			writeDetail(w, http.StatusServiceUnavailable, "run log disabled")
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "bad run id")
			return
		}
		ctx, cancel := withTimeout(r.Context(), 5*time.Second)
		defer cancel()
		run, ok, err := db.GetRun(ctx, id)
		switch {
		case err != nil:
			writeDetail(w, http.StatusInternalServerError, err.Error())
		case !ok:
			writeDetail(w, http.StatusNotFound, "no such run")
		default:
			writeJSON(w, http.StatusOK, run)
		}
	})

	return r
}

// decode reads a JSON body, answering 400 itself when it cannot.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad json: "+err.Error())
		return false
	}
	return true
}

func writeErr(w http.ResponseWriter, err error) {
	var ae *api.Error
	if !errors.As(err, &ae) {
		ae = api.Classify(err)
	}
	if ae.Status >= 500 {
		log.Printf("request failed: %v", err)
	}
	writeDetail(w, ae.Status, ae.Msg)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}

// dbStatus is "disabled" without a run log, otherwise "ok" or "down".
func dbStatus(ctx context.Context, db *store.DB) string {
	if db == nil {
		return "disabled"
	}
	ctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		log.Printf("health: db ping: %v", err)
		return "down"
	}
	return "ok"
}
