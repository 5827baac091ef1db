package httpserver

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/commerce"
	"storefront/internal/domain"
	"storefront/internal/session"
)

// sessionView is the session as the UI sees it. The credential stays in
// the daemon.
type sessionView struct {
	Phase         session.Phase `json:"phase"`
	Authenticated bool          `json:"authenticated"`
	User          *domain.User  `json:"user"`
	Loading       bool          `json:"loading"`
}

func newSessionView(s session.State) sessionView {
	return sessionView{
		Phase:         s.Phase,
		Authenticated: s.Authenticated(),
		User:          s.Identity,
		Loading:       s.Loading,
	}
}

type cartView struct {
	Cart    *domain.Cart    `json:"cart"`
	Loading bool            `json:"loading"`
	Version uint64          `json:"version"`
	Totals  checkout.Totals `json:"totals"`
}

func newCartView(s cart.State) cartView {
	return cartView{
		Cart:    s.Cart.Clone(),
		Loading: s.Loading,
		Version: s.Version,
		Totals:  checkout.SummarizeCart(s.Cart),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

func (h *handlers) getSession(c *gin.Context) {
	respond(c, http.StatusOK, newSessionView(h.deps.Session.State()), "")
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.deps.Session.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, newSessionView(h.deps.Session.State()), "Login successful")
}

func (h *handlers) register(c *gin.Context) {
	var req domain.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.deps.Session.Register(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, newSessionView(h.deps.Session.State()), "Registration successful")
}

func (h *handlers) logout(c *gin.Context) {
	h.deps.Session.Logout(c.Request.Context())
	respond(c, http.StatusOK, newSessionView(h.deps.Session.State()), "Logged out")
}

func (h *handlers) getCart(c *gin.Context) {
	respond(c, http.StatusOK, newCartView(h.deps.Cart.State()), "")
}

func (h *handlers) refreshCart(c *gin.Context) {
	if _, err := h.deps.Cart.Refresh(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.cartResponse(c, "")
}

func (h *handlers) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID <= 0 {
		badRequest(c, "invalid request body")
		return
	}
	if _, err := h.deps.Cart.AddItem(c.Request.Context(), req.ProductID, req.Quantity); err != nil {
		h.fail(c, err)
		return
	}
	h.cartResponse(c, "Item added to cart")
}

func (h *handlers) updateItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if _, err := h.deps.Cart.UpdateQuantity(c.Request.Context(), id, req.Quantity); err != nil {
		h.fail(c, err)
		return
	}
	h.cartResponse(c, "Cart updated")
}

func (h *handlers) removeItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := h.deps.Cart.RemoveItem(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.cartResponse(c, "Item removed from cart")
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.deps.Cart.Clear(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.cartResponse(c, "Cart cleared")
}

// cartResponse answers with the applied cart state, which may be newer than
// the snapshot the call itself returned.
func (h *handlers) cartResponse(c *gin.Context, message string) {
	respond(c, http.StatusOK, newCartView(h.deps.Cart.State()), message)
}

func (h *handlers) summary(c *gin.Context) {
	respond(c, http.StatusOK, checkout.SummarizeCart(h.deps.Cart.State().Cart), "")
}

func (h *handlers) placeOrder(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	order, err := h.deps.Checkout.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, order, "Order placed")
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.deps.Checkout.Orders(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respond(c, http.StatusOK, orders, "")
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.deps.Checkout.Order(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, order, "")
}

func (h *handlers) listProducts(c *gin.Context) {
	q := commerce.ProductQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Featured: c.Query("featured") == "true",
	}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "invalid page")
			return
		}
		q.Page = n
	}
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(c, "invalid size")
			return
		}
		q.Size = n
	}
	page, err := h.deps.Catalog.ListProducts(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, page, "")
}

func (h *handlers) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	product, err := h.deps.Catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, product, "")
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WarnContext(c.Request.Context(), "request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	writeError(c, err)
}
