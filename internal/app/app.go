// Package app wires the storefront components for the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/commerce"
	"storefront/internal/config"
	"storefront/internal/credential"
	"storefront/internal/db"
	"storefront/internal/session"
)

// App holds the process-wide storefront state.
type App struct {
	Config   config.Config
	Client   *commerce.Client
	Session  *session.Manager
	Cart     *cart.Manager
	Checkout *checkout.Service

	closers []func()
}

// New builds every component and binds the cart to the session. The
// session is not restored; callers run Session.Restore when ready.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...session.Option) (*App, error) {
	creds, closeCreds, err := OpenCredentials(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	client := commerce.New(commerce.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.APITimeout,
		Logger:  logger,
	})

	sessOpts := append([]session.Option{
		session.WithLoginPath(cfg.LoginPath),
		session.WithAuthPrefix(cfg.AuthPathPrefix),
	}, opts...)
	sess := session.New(client, creds, logger, sessOpts...)
	client.OnUnauthorized(sess.Invalidate)

	carts := cart.New(client, sess, logger)
	unbind := carts.Bind()

	return &App{
		Config:   cfg,
		Client:   client,
		Session:  sess,
		Cart:     carts,
		Checkout: checkout.New(client, sess, carts, logger),
		closers:  []func(){unbind, carts.Close, closeCreds},
	}, nil
}

// Close stops background cart work and releases the credential backend.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

// OpenCredentials opens the backend named by CREDENTIAL_BACKEND. The
// returned func releases its connections.
func OpenCredentials(ctx context.Context, cfg config.Config) (credential.Store, func(), error) {
	switch cfg.CredentialBackend {
	case config.BackendMemory:
		return credential.NewMemory(), func() {}, nil

	case config.BackendFile:
		return credential.NewFile(cfg.CredentialFile, cfg.CredentialSlot), func() {}, nil

	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
		return credential.NewPostgres(pool, cfg.CredentialSlot), pool.Close, nil

	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return credential.NewRedis(rdb, cfg.CredentialSlot), func() { _ = rdb.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
}
