// Package httpserver exposes the process-wide session and cart to a browser
// UI: a JSON API for state and actions and an event stream of changes.
package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/session"
)

// Server wraps the HTTP server setup.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	unbind     func()
}

// New builds a Server and starts forwarding state changes to the hub.
func New(addr string, logger *slog.Logger, deps Deps) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	router, err := buildRouter(logger, deps)
	if err != nil {
		return nil, err
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		httpServer: httpSrv,
		logger:     logger,
		unbind:     publishState(deps),
	}, nil
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops forwarding events and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.unbind()
	return s.httpServer.Shutdown(ctx)
}

// publishState forwards every session and cart state to the hub.
func publishState(deps Deps) func() {
	unsubSession := deps.Session.Subscribe(func(s session.State) {
		deps.Hub.Publish(Event{Name: EventSession, Data: newSessionView(s)})
	})
	unsubCart := deps.Cart.Subscribe(func(s cart.State) {
		deps.Hub.Publish(Event{Name: EventCart, Data: newCartView(s)})
	})
	deps.Hub.Publish(Event{Name: EventSession, Data: newSessionView(deps.Session.State())})
	deps.Hub.Publish(Event{Name: EventCart, Data: newCartView(deps.Cart.State())})
	return func() {
		unsubSession()
		unsubCart()
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyHandler reports ready once the persisted session has been restored.
func readyHandler(sess SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch phase := sess.State().Phase; phase {
		case session.Uninitialized, session.Restoring:
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "session " + phase.String()})
		default:
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
		}
	}
}
