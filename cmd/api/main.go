package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ytthumbs/internal/bootstrap"
	"ytthumbs/internal/http/handlers"
	httpapi "ytthumbs/internal/http/httpapi"
	"ytthumbs/internal/infra"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	svc, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to assemble pipeline")
	}
	defer svc.Close()

	var history handlers.HistoryReader
	if svc.History != nil {
		history = svc.History
	}
	app := handlers.NewApp(svc.Orchestrator, history, infra.Component(logger, "http"))

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:             logger,
		Gatherer:           svc.Registry,
		RateLimitPerMin:    cfg.RateLimitPerMin,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StaticDir:          svc.StaticDir,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("storage", cfg.StorageDriver).
			Bool("history", svc.History != nil).
			Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	// In-flight generations may run up to the generation timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GenerationTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
