package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"

	"lcp-engine/internal/config"
	"lcp-engine/internal/datepolicy"
	"lcp-engine/internal/handler"
	"lcp-engine/internal/session"
	"lcp-engine/internal/steps"
	"lcp-engine/internal/valuation"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := cfg.Log.Logger()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	var svc valuation.Service = valuation.Unavailable{}
	if cfg.Valuation.URL != "" {
		svc = valuation.NewHTTPService(cfg.Valuation.URL, valuation.WithTimeout(cfg.Valuation.Timeout))
	} else {
		log.Warn("no valuation service configured, calculations will fail")
	}

	policy := datepolicy.Default()
	registry := steps.NewRegistry(policy)
	sessions := session.NewManager(registry, valuation.NewAdapter(svc, log), store, log)
	h := handler.New(sessions, policy, log)

	srv := &fasthttp.Server{
		Handler: h.Handle,
		Name:    "lcp-engine",
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("LCP engine starting", "listen", cfg.Listen, "db", cfg.Database.Path)
		return srv.ListenAndServe(cfg.Listen)
	})
	g.Go(func() error {
		return sessions.RunEviction(gctx, cfg.Sessions.SweepInterval, cfg.Sessions.IdleTimeout)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return srv.ShutdownWithContext(context.Background())
	})
	return g.Wait()
}

func openStore(cfg config.Config, log *slog.Logger) (session.Store, error) {
	if cfg.Database.Path == "" {
		log.Info("using in-memory session store")
		return session.NewMemoryStore(), nil
	}
	return session.NewSQLiteStore(cfg.Database.Path)
}
