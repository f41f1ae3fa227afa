package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"range-equity/server/api"
	"range-equity/server/broker"
	"range-equity/server/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var cfg Config

	root := &cobra.Command{
		Use:          "range-equity",
		Short:        "Hold'em range vs range equity service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("EQUITY_CONFIG")
			}
			var err error
			cfg, err = LoadConfig(configPath)
			return err
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $EQUITY_CONFIG)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API",
			RunE:  func(cmd *cobra.Command, args []string) error { return serve(cfg) },
		},
		&cobra.Command{
			Use:   "worker",
			Short: "Answer equity requests over NATS",
			RunE:  func(cmd *cobra.Command, args []string) error { return work(cfg) },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the run log schema and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				if cfg.DatabaseURL == "" {
					return errors.New("DATABASE_URL is not set")
				}
				db, err := store.Open(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer db.Close(context.Background())
				if err := store.Migrate(context.Background(), db); err != nil {
					return err
				}
				log.Println("migrated")
				return nil
			},
		},
		calcCmd(&cfg),
	)
	return root
}

// openStore returns nil when no database is configured or it cannot be
// reached; the service then runs without a run log.
func openStore(cfg Config) *store.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Printf("DB disabled (open failed): %v", err)
		return nil
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(context.Background(), db); err != nil {
			log.Printf("migrate failed (continuing without DB): %v", err)
			db.Close(context.Background())
			return nil
		}
		log.Println("migrated")
	}
	return db
}

func newService(cfg Config, db *store.DB) (*api.Service, error) {
	eng, err := cfg.Engine()
	if err != nil {
		return nil, err
	}
	if db == nil {
		return api.NewService(eng, nil), nil
	}
	return api.NewService(eng, db), nil
}

func serve(cfg Config) error {
	db := openStore(cfg)
	if db != nil {
		defer db.Close(context.Background())
	}
	svc, err := newService(cfg, db)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      Router(svc, db, cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on http://localhost:%s (evaluator=%s, Ctrl+C to stop)", cfg.Port, svc.Evaluator())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down")
	shutdownCtx, cancel := withTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func work(cfg Config) error {
	db := openStore(cfg)
	if db != nil {
		defer db.Close(context.Background())
	}
	svc, err := newService(cfg, db)
	if err != nil {
		return err
	}
	nc, err := broker.Connect(cfg.NATSURL, "range-equity-worker")
	if err != nil {
		return err
	}
	defer nc.Drain()

	timeout := time.Duration(cfg.Equity.TimeBudgetMS) * time.Millisecond * 2
	w := broker.NewWorker(nc, svc, timeout)
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	log.Printf("worker subscribed to %v on %s (queue %s)", broker.Subjects, nc.ConnectedUrl(), broker.QueueGroup)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Println("worker stopping")
	return nil
}
