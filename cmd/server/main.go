package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/api"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/config"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/oracle"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository/docstore"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/service"
)

func main() {
	godotenv.Load()

	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := docstore.NewConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	repos := docstore.NewRepositories(db)

	if err := docstore.SeedQuestions(context.Background(), repos.Questions); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed question pool")
	}

	var gen oracle.Generator
	if cfg.GeneratorEndpoint != "" {
		gen = oracle.NewHTTPGenerator(cfg.GeneratorEndpoint, cfg.GeneratorToken, cfg.GeneratorTimeout)
	} else {
		logger.Warn().Msg("no generator endpoint configured, bots use local answer tables only")
	}
	answers := oracle.New(gen, rand.New(rand.NewSource(time.Now().UnixNano())), logger)

	services := service.NewServices(repos, answers, cfg, logger)
	router := api.NewRouter(services, cfg, logger)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
