package commercetest

import (
	"net/http"
	"strconv"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartError struct {
	status  int
	message string
}

func (e *cartError) Error() string { return e.message }

// cartFor returns the user's cart, creating it on first use. Callers hold
// s.mu.
func (s *Server) cartFor(userID int64) *domain.Cart {
	cart, ok := s.carts[userID]
	if !ok {
		cart = &domain.Cart{CartID: s.newID(), UserID: userID, Items: []domain.CartItem{}, UpdatedAt: now()}
		s.carts[userID] = cart
	}
	return cart
}

// Cart returns a copy of the server-side cart of userID.
func (s *Server) Cart(userID int64) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartFor(userID).Clone()
}

func (s *Server) addItem(userID, productID int64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, &cartError{http.StatusBadRequest, "Quantity must be at least 1"}
	}
	p := s.product(productID)
	if p == nil || !p.IsActive {
		return nil, &cartError{http.StatusNotFound, "Product not found"}
	}

	cart := s.cartFor(userID)
	for i := range cart.Items {
		line := &cart.Items[i]
		if line.ProductID != productID {
			continue
		}
		newQty := line.Quantity + quantity
		if newQty > p.StockQuantity {
			return nil, &cartError{http.StatusBadRequest, "Insufficient stock for " + p.Name}
		}
		line.Quantity = newQty
		line.TotalPrice = line.UnitPrice * domain.Money(newQty)
		recompute(cart)
		return cart.Clone(), nil
	}

	if quantity > p.StockQuantity {
		return nil, &cartError{http.StatusBadRequest, "Insufficient stock for " + p.Name}
	}
	cart.Items = append(cart.Items, domain.CartItem{
		ID:              s.newID(),
		ProductID:       p.ID,
		ProductName:     p.Name,
		ProductImageURL: p.ImageURL,
		Quantity:        quantity,
		UnitPrice:       p.BasePrice,
		TotalPrice:      p.BasePrice * domain.Money(quantity),
	})
	recompute(cart)
	return cart.Clone(), nil
}

func (s *Server) updateItem(userID, itemID int64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, &cartError{http.StatusBadRequest, "Quantity must be at least 1"}
	}
	cart := s.cartFor(userID)
	for i := range cart.Items {
		line := &cart.Items[i]
		if line.ID != itemID {
			continue
		}
		if p := s.product(line.ProductID); p != nil && quantity > p.StockQuantity {
			return nil, &cartError{http.StatusBadRequest, "Insufficient stock for " + p.Name}
		}
		line.Quantity = quantity
		line.TotalPrice = line.UnitPrice * domain.Money(quantity)
		recompute(cart)
		return cart.Clone(), nil
	}
	return nil, &cartError{http.StatusNotFound, "Cart item not found"}
}

func (s *Server) removeItem(userID, itemID int64) (*domain.Cart, error) {
	cart := s.cartFor(userID)
	for i := range cart.Items {
		if cart.Items[i].ID != itemID {
			continue
		}
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		recompute(cart)
		return cart.Clone(), nil
	}
	return nil, &cartError{http.StatusNotFound, "Cart item not found"}
}

func (s *Server) clearCart(userID int64) {
	cart := s.cartFor(userID)
	cart.Items = []domain.CartItem{}
	recompute(cart)
}

func recompute(cart *domain.Cart) {
	var items int
	var total domain.Money
	for _, line := range cart.Items {
		items += line.Quantity
		total += line.TotalPrice
	}
	cart.TotalItems = items
	cart.TotalPrice = total
	cart.UpdatedAt = now()
}

func (s *Server) handleGetCart(c *gin.Context) {
	s.mu.Lock()
	cart := s.cartFor(currentUser(c)).Clone()
	s.mu.Unlock()
	respond(c, http.StatusOK, cart, "")
}

func (s *Server) handleAddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reject(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	cart, err := s.addItem(currentUser(c), req.ProductID, req.Quantity)
	s.mu.Unlock()
	writeCart(c, cart, err, "Item added to cart")
}

func (s *Server) handleUpdateItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		reject(c, http.StatusBadRequest, "Invalid item id")
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reject(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	cart, err := s.updateItem(currentUser(c), itemID, req.Quantity)
	s.mu.Unlock()
	writeCart(c, cart, err, "Cart item updated")
}

func (s *Server) handleRemoveItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		reject(c, http.StatusBadRequest, "Invalid item id")
		return
	}
	s.mu.Lock()
	cart, err := s.removeItem(currentUser(c), itemID)
	s.mu.Unlock()
	writeCart(c, cart, err, "Item removed from cart")
}

func (s *Server) handleClearCart(c *gin.Context) {
	s.mu.Lock()
	s.clearCart(currentUser(c))
	s.mu.Unlock()
	respond[any](c, http.StatusOK, nil, "Cart cleared")
}

func writeCart(c *gin.Context, cart *domain.Cart, err error, message string) {
	if err != nil {
		status := http.StatusInternalServerError
		if ce, ok := err.(*cartError); ok {
			status = ce.status
		}
		reject(c, status, err.Error())
		return
	}
	respond(c, http.StatusOK, cart, message)
}
