package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/commerce"
	"storefront/internal/domain"
	"storefront/internal/session"
)

type SessionService interface {
	State() session.State
	Subscribe(fn func(session.State)) (unsubscribe func())
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, in domain.RegisterInput) error
	Logout(ctx context.Context)
}

type CartService interface {
	State() cart.State
	Subscribe(fn func(cart.State)) (unsubscribe func())
	Refresh(ctx context.Context) (*domain.Cart, error)
	AddItem(ctx context.Context, productID int64, quantity int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, itemID int64, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, itemID int64) (*domain.Cart, error)
	Clear(ctx context.Context) error
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (*domain.Order, error)
	Orders(ctx context.Context) ([]domain.Order, error)
	Order(ctx context.Context, id int64) (*domain.Order, error)
}

type CatalogService interface {
	ListProducts(ctx context.Context, q commerce.ProductQuery) (*domain.Page[domain.Product], error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// Deps groups the collaborators the router needs.
type Deps struct {
	Session  SessionService
	Cart     CartService
	Checkout CheckoutService
	Catalog  CatalogService
	Hub      *Hub
	Location *UILocation
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.Session == nil:
		return errors.New("session service is required")
	case d.Cart == nil:
		return errors.New("cart service is required")
	case d.Checkout == nil:
		return errors.New("checkout service is required")
	case d.Catalog == nil:
		return errors.New("catalog service is required")
	case d.Hub == nil:
		return errors.New("event hub is required")
	case d.Location == nil:
		return errors.New("ui location is required")
	}
	return nil
}

// buildRouter wires routes for the storefront API.
func buildRouter(logger *slog.Logger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(slog.NewLogLogger(logger.Handler(), slog.LevelInfo).Writer()), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", UIPathHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Session))
	router.GET("/events", eventsHandler(deps.Hub))

	h := &handlers{deps: deps, logger: logger}
	api := router.Group("/api", uiPathMiddleware(deps.Location))

	api.GET("/session", h.getSession)
	api.POST("/session/login", h.login)
	api.POST("/session/register", h.register)
	api.POST("/session/logout", h.logout)

	api.GET("/cart", h.getCart)
	api.POST("/cart/refresh", h.refreshCart)
	api.POST("/cart/items", h.addItem)
	api.PUT("/cart/items/:id", h.updateItem)
	api.DELETE("/cart/items/:id", h.removeItem)
	api.DELETE("/cart", h.clearCart)

	api.GET("/checkout/summary", h.summary)
	api.POST("/checkout", h.placeOrder)
	api.GET("/orders", h.listOrders)
	api.GET("/orders/:id", h.getOrder)

	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)

	return router, nil
}
