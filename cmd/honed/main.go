package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/xtding233/honing-forecast/internal/anneal"
	"github.com/xtding233/honing-forecast/internal/config"
	"github.com/xtding233/honing-forecast/internal/metrics"
	"github.com/xtding233/honing-forecast/internal/rpc"
	"github.com/xtding233/honing-forecast/internal/rules"
	"github.com/xtding233/honing-forecast/internal/server"
	"github.com/xtding233/honing-forecast/internal/service"
)

func main() {
	loaded := config.LoadEnvFiles()
	cfg := config.Load()
	if err := config.SetupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("logging")
	}
	if len(loaded) > 0 {
		log.Info().Strs("files", loaded).Msg("loaded env files")
	}

	loader := rules.NewLoader(cfg.RulesDir)
	// fail fast on a broken rules directory
	if _, p, err := loader.Resolve(cfg.Profile, rules.Overrides{}); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.RulesDir).Str("profile", cfg.Profile).Msg("rules")
	} else {
		log.Info().Str("version", p.Version).Str("annealer", anneal.FeatureVersion).Msg("rules loaded")
	}

	m := metrics.New(true)
	svc := service.New(loader, m, cfg.Profile)

	if cfg.WatchRules && cfg.RulesDir != "" {
		w, err := rules.NewWatcher(loader, 0, func(string) { m.Reloaded() })
		if err != nil {
			log.Fatal().Err(err).Msg("rules watcher")
		}
		if err := w.Start(); err != nil {
			log.Fatal().Err(err).Msg("rules watcher")
		}
		defer w.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gs *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("grpc listen")
		}
		gs = grpc.NewServer()
		rpc.Register(gs, rpc.NewHandler(svc))
		go func() {
			log.Info().Str("addr", cfg.GRPCAddr).Msg("grpc listening")
			if err := gs.Serve(lis); err != nil {
				log.Error().Err(err).Msg("grpc serve")
				stop()
			}
		}()
	}

	hs := &http.Server{Addr: cfg.HTTPAddr, Handler: server.New(svc, m, cfg.MaxBodyBytes)}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http serve")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if gs != nil {
		done := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-sctx.Done():
			gs.Stop()
		}
	}
}
