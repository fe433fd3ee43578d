package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/subsplit/internal/auth"
	"github.com/mmynk/subsplit/internal/config"
	"github.com/mmynk/subsplit/internal/middleware"
	"github.com/mmynk/subsplit/internal/notify"
	"github.com/mmynk/subsplit/internal/reconcile"
	"github.com/mmynk/subsplit/internal/service"
	"github.com/mmynk/subsplit/internal/storage/sqlite"
	"github.com/mmynk/subsplit/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup structured logging
	logging.Configure(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	logger := slog.Default()

	if cfg.JWTSecret == config.DevJWTSecret {
		slog.Warn("JWT_SECRET not set, using the development secret")
	}

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	mux := http.NewServeMux()

	// Register Connect services
	service.Register(mux, service.Deps{
		Users:         store,
		Reconciler:    reconcile.New(store, cfg.ReconcilerConfig()),
		Authenticator: auth.NewPasswordAuthenticator(store),
		JWT:           jwtManager,
		Dispatcher:    notify.NewLogDispatcher(logger),
		Logger:        logger,
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Add logging and CORS middleware
	handler := middleware.Logging(middleware.CORS(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Connect server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
