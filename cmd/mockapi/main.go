// Command mockapi serves the in-memory commerce API for local development.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/commerce/commercetest"
	"storefront/internal/config"
	"storefront/internal/domain"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	var (
		addr     string
		email    string
		password string
	)
	flag.StringVar(&addr, "addr", cfg.MockAPIAddr, "Listen address")
	flag.StringVar(&email, "user", "demo@example.com", "Email of the seeded demo user")
	flag.StringVar(&password, "password", "Demo1234", "Password of the seeded demo user")
	flag.Parse()

	logger := cfg.Logger(os.Stdout, "mockapi")
	fake := commercetest.New(logger)
	if email != "" {
		if _, err := fake.AddUser(domain.RegisterInput{FirstName: "Demo", LastName: "User", Email: email, Password: password}); err != nil {
			logger.Error("seed demo user", "error", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           fake.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("serving mock commerce api", "addr", addr, "base_path", commercetest.BasePath, "user", email)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stopCh:
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
