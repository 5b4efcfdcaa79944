package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"example.com/snapshot/internal/api"
	"example.com/snapshot/internal/auth"
	"example.com/snapshot/internal/config"
	"example.com/snapshot/internal/domain"
	"example.com/snapshot/internal/gateway"
	httptransport "example.com/snapshot/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "snapshot-api").Logger()

	source := gateway.NewClient(gateway.Config{
		BaseURL:           cfg.GatewayURL,
		Token:             cfg.GatewayToken,
		RequestsPerSecond: cfg.GatewayRateLimit,
		Timeout:           cfg.GatewayTimeout,
	})

	aggregator := domain.NewAggregator(source, cfg.Location(), logger)

	handler := api.NewHandler(aggregator, logger)
	router := chi.NewRouter()
	router.Use(requestLogger(logger))
	handler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:     cfg.HTTPAddress,
		ReadTimeout: 5 * time.Second,
		// One request runs a full 14-day aggregation against the gateway.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(router))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress).Msg("snapshot-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// requestLogger logs one line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			next.ServeHTTP(w, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("elapsed", time.Since(started)).
				Msg("request")
		})
	}
}
