// Package commercetest serves an in-memory commerce API with the same
// envelope and routes as the real backend. It backs the manager tests and
// the local mock API binary.
package commercetest

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

// BasePath is the prefix every route is served under.
const BasePath = "/api"

// Request is one recorded call. Path is relative to BasePath.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	Body          []byte
}

// Failure replaces the normal handling of a route. A zero Status with a
// Message answers 200 with a success:false envelope. A Failure carrying only
// a Delay slows the route down and then handles it normally.
type Failure struct {
	Status  int
	Message string
	Delay   time.Duration
}

// Server is the fake API. The zero value is not usable; call New.
type Server struct {
	logger *slog.Logger
	engine *gin.Engine

	mu       sync.Mutex
	accounts *accounts
	catalog  []domain.Product
	carts    map[int64]*domain.Cart
	orders   map[int64][]domain.Order
	nextID   int64
	requests []Request
	failures map[string]Failure
}

// New builds a Server seeded with the demo catalogue.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		logger:   logger,
		accounts: newAccounts(),
		catalog:  demoCatalog(),
		carts:    make(map[int64]*domain.Cart),
		orders:   make(map[int64][]domain.Order),
		nextID:   1000,
		failures: make(map[string]Failure),
	}
	s.engine = s.buildRouter()
	return s
}

// Handler exposes the gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())

	api := router.Group(BasePath, s.record(), s.injectFailures())

	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/register", s.handleRegister)
	api.GET("/products", s.handleListProducts)
	api.GET("/products/:id", s.handleGetProduct)

	authed := api.Group("", s.requireBearer())
	authed.POST("/auth/logout", s.handleLogout)
	authed.GET("/users/profile", s.handleProfile)
	authed.GET("/cart", s.handleGetCart)
	authed.POST("/cart/items", s.handleAddItem)
	authed.PUT("/cart/items/:id", s.handleUpdateItem)
	authed.DELETE("/cart/items/:id", s.handleRemoveItem)
	authed.DELETE("/cart", s.handleClearCart)
	authed.POST("/orders", s.handleCreateOrder)
	authed.GET("/orders", s.handleListOrders)
	authed.GET("/orders/:id", s.handleGetOrder)

	return router
}

// Requests returns a copy of every call recorded so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many recorded calls match method and path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// ResetRequests drops the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

// Fail makes every call to method and path answer with f until Recover.
func (s *Server) Fail(method, path string, f Failure) {
	s.mu.Lock()
	s.failures[method+" "+path] = f
	s.mu.Unlock()
}

// Recover restores normal handling of method and path.
func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	delete(s.failures, method+" "+path)
	s.mu.Unlock()
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug("mock api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", c.GetHeader("X-Request-ID"),
			"duration", time.Since(started))
	}
}

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        c.Request.Method,
			Path:          strings.TrimPrefix(c.Request.URL.Path, BasePath),
			Query:         c.Request.URL.RawQuery,
			Authorization: c.GetHeader("Authorization"),
			Body:          body,
		})
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + strings.TrimPrefix(c.Request.URL.Path, BasePath)
		s.mu.Lock()
		f, ok := s.failures[key]
		s.mu.Unlock()
		if !ok {
			c.Next()
			return
		}
		if f.Delay > 0 {
			select {
			case <-time.After(f.Delay):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		if f.Status == 0 && f.Message == "" {
			c.Next()
			return
		}
		status := f.Status
		if status == 0 {
			status = http.StatusOK
		}
		c.AbortWithStatusJSON(status, domain.Fail(f.Message))
	}
}

const userKey = "commercetest.user"

func (s *Server) requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, domain.Fail("Full authentication is required"))
			return
		}
		s.mu.Lock()
		user, ok := s.accounts.lookup(token)
		s.mu.Unlock()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, domain.Fail("Invalid or expired token"))
			return
		}
		c.Set(userKey, user.ID)
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userKey)
}

func respond[T any](c *gin.Context, status int, data T, message string) {
	c.JSON(status, domain.OK(data, message))
}

func reject(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, domain.Fail(message))
}

func (s *Server) newID() int64 {
	s.nextID++
	return s.nextID
}

func now() domain.Timestamp {
	return domain.Timestamp{Time: time.Now().UTC()}
}
