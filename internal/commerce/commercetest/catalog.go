package commercetest

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

type productSeed struct {
	Slug        string
	SKU         string
	Name        string
	Description string
	Category    string
	Price       domain.Money
	Stock       int
	Featured    bool
}

var demoProducts = []productSeed{
	{
		Slug:        "demo-shirt",
		SKU:         "SKU-DEMO-TSHIRT",
		Name:        "Demo T-Shirt",
		Description: "Soft cotton tee for demo purposes",
		Category:    "apparel",
		Price:       1999,
		Stock:       100,
		Featured:    true,
	},
	{
		Slug:        "demo-mug",
		SKU:         "SKU-DEMO-MUG",
		Name:        "Demo Mug",
		Description: "Ceramic mug with demo logo",
		Category:    "home",
		Price:       1299,
		Stock:       50,
	},
	{
		Slug:        "demo-hoodie",
		SKU:         "SKU-DEMO-HOODIE",
		Name:        "Demo Hoodie",
		Description: "Heavyweight fleece hoodie",
		Category:    "apparel",
		Price:       4000,
		Stock:       25,
		Featured:    true,
	},
	{
		Slug:        "demo-backpack",
		SKU:         "SKU-DEMO-BACKPACK",
		Name:        "Demo Backpack",
		Description: "Water resistant 20l daypack",
		Category:    "accessories",
		Price:       6000,
		Stock:       10,
	},
	{
		Slug:        "demo-sticker",
		SKU:         "SKU-DEMO-STICKER",
		Name:        "Demo Sticker Pack",
		Description: "Five vinyl stickers",
		Category:    "accessories",
		Price:       250,
		Stock:       1000,
	},
	{
		Slug:        "demo-poster",
		SKU:         "SKU-DEMO-POSTER",
		Name:        "Demo Poster",
		Description: "Limited print, sold out",
		Category:    "home",
		Price:       1500,
		Stock:       0,
	},
}

// Product ids start at 1 and follow the seed order.
func demoCatalog() []domain.Product {
	stamp := now()
	out := make([]domain.Product, 0, len(demoProducts))
	for i, p := range demoProducts {
		out = append(out, domain.Product{
			ID:            int64(i + 1),
			Name:          p.Name,
			Slug:          p.Slug,
			Description:   p.Description,
			SKU:           p.SKU,
			BasePrice:     p.Price,
			ImageURL:      "/images/" + p.Slug + ".jpg",
			Category:      p.Category,
			StockQuantity: p.Stock,
			IsActive:      true,
			IsFeatured:    p.Featured,
			CreatedAt:     stamp,
			UpdatedAt:     stamp,
		})
	}
	return out
}

// Products returns the catalogue.
func (s *Server) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// SetPrice changes the base price of a product. Existing cart lines keep
// the price they were added at.
func (s *Server) SetPrice(productID int64, price domain.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.product(productID); p != nil {
		p.BasePrice = price
	}
}

// product returns a pointer into the catalogue. Callers hold s.mu.
func (s *Server) product(id int64) *domain.Product {
	for i := range s.catalog {
		if s.catalog[i].ID == id {
			return &s.catalog[i]
		}
	}
	return nil
}

func (s *Server) handleListProducts(c *gin.Context) {
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))
	category := strings.ToLower(strings.TrimSpace(c.Query("category")))
	featured := c.Query("featured") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	s.mu.Lock()
	matched := make([]domain.Product, 0, len(s.catalog))
	for _, p := range s.catalog {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if category != "" && strings.ToLower(p.Category) != category {
			continue
		}
		if featured && !p.IsFeatured {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.Unlock()

	respond(c, http.StatusOK, domain.NewPage(matched, page, size), "")
}

func (s *Server) handleGetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		reject(c, http.StatusBadRequest, "Invalid product id")
		return
	}
	s.mu.Lock()
	p := s.product(id)
	var out domain.Product
	if p != nil {
		out = *p
	}
	s.mu.Unlock()
	if p == nil {
		reject(c, http.StatusNotFound, "Product not found")
		return
	}
	respond(c, http.StatusOK, out, "")
}
