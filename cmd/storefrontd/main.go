package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/httpserver"
	"storefront/internal/session"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger(os.Stdout, "storefrontd")

	ctx := context.Background()
	hub := httpserver.NewHub()
	location := httpserver.NewUILocation(hub)

	shop, err := app.New(ctx, cfg, logger, session.WithLocation(location))
	if err != nil {
		logger.Error("init storefront", "error", err)
		os.Exit(1)
	}
	defer shop.Close()

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Session:     shop.Session,
		Cart:        shop.Cart,
		Checkout:    shop.Checkout,
		Catalog:     shop.Client,
		Hub:         hub,
		Location:    location,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Error("init server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := shop.Session.Restore(ctx); err != nil {
			logger.Warn("restore session", "error", err)
			return
		}
		logger.Info("session restored", "phase", shop.Session.State().Phase.String())
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "api", cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("server stopped")
	}
}
