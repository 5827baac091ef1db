package commercetest

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	freeShippingOver domain.Money = 5000
	flatShipping     domain.Money = 1000
	taxPercent                    = 8
)

func (s *Server) createOrder(userID int64, in domain.PlaceOrderInput) (*domain.Order, error) {
	if err := checkAddress(in.ShippingAddress); err != nil {
		return nil, err
	}
	cart := s.cartFor(userID)
	if len(cart.Items) == 0 {
		return nil, &cartError{http.StatusBadRequest, "Cart is empty"}
	}

	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		p := s.product(line.ProductID)
		if p == nil {
			return nil, &cartError{http.StatusBadRequest, "Product " + line.ProductName + " is no longer available"}
		}
		if p.StockQuantity < line.Quantity {
			return nil, &cartError{http.StatusBadRequest, "Insufficient stock for " + p.Name}
		}
		items = append(items, domain.OrderItem{
			ID:          s.newID(),
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ProductSKU:  p.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.TotalPrice,
		})
	}
	for _, line := range cart.Items {
		s.product(line.ProductID).StockQuantity -= line.Quantity
	}

	subtotal := cart.TotalPrice
	shipping := flatShipping
	if subtotal > freeShippingOver {
		shipping = 0
	}
	tax := subtotal.Percent(taxPercent)
	stamp := now()
	id := s.newID()
	order := domain.Order{
		ID:              id,
		OrderNumber:     fmt.Sprintf("ORD-%06d", id),
		UserID:          userID,
		Status:          "PENDING",
		TotalAmount:     subtotal + shipping + tax,
		SubtotalAmount:  subtotal,
		TaxAmount:       tax,
		ShippingAmount:  shipping,
		Currency:        "USD",
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		StatusHistory:   []domain.StatusHistory{{Status: "PENDING", Timestamp: stamp}},
		CreatedAt:       stamp,
		UpdatedAt:       stamp,
	}
	s.orders[userID] = append(s.orders[userID], order)
	s.clearCart(userID)
	return &order, nil
}

func checkAddress(a domain.Address) error {
	if strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.State) == "" || strings.TrimSpace(a.ZipCode) == "" ||
		strings.TrimSpace(a.Country) == "" {
		return &cartError{http.StatusBadRequest, "Shipping address is incomplete"}
	}
	return nil
}

// Orders returns the orders placed by userID, oldest first.
func (s *Server) Orders(userID int64) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.orders[userID]))
	copy(out, s.orders[userID])
	return out
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req domain.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		reject(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	order, err := s.createOrder(currentUser(c), req)
	s.mu.Unlock()
	if err != nil {
		status := http.StatusInternalServerError
		if ce, ok := err.(*cartError); ok {
			status = ce.status
		}
		reject(c, status, err.Error())
		return
	}
	respond(c, http.StatusCreated, order, "Order placed successfully")
}

// handleListOrders answers newest first, as a page.
func (s *Server) handleListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	s.mu.Lock()
	placed := s.orders[currentUser(c)]
	newest := make([]domain.Order, 0, len(placed))
	for i := len(placed) - 1; i >= 0; i-- {
		newest = append(newest, placed[i])
	}
	s.mu.Unlock()

	respond(c, http.StatusOK, domain.NewPage(newest, page, size), "")
}

func (s *Server) handleGetOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		reject(c, http.StatusBadRequest, "Invalid order id")
		return
	}
	s.mu.Lock()
	var found *domain.Order
	for _, o := range s.orders[currentUser(c)] {
		if o.ID == id {
			o := o
			found = &o
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		reject(c, http.StatusNotFound, "Order not found")
		return
	}
	respond(c, http.StatusOK, found, "")
}
