package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront/internal/domain"
)

type added struct {
	productID int64
	quantity  int
}

type stubCart struct {
	items  []added
	failOn int64
}

func (s *stubCart) AddItem(_ context.Context, productID int64, quantity int) (*domain.Cart, error) {
	if productID == s.failOn {
		return nil, &domain.DomainError{Message: "Product not found"}
	}
	s.items = append(s.items, added{productID, quantity})
	return &domain.Cart{}, nil
}

func TestCartImporter_Run(t *testing.T) {
	csvData := `productId,quantity
1,2
3,1

1,1
4,`

	cart := &stubCart{}
	imp := NewCartImporter(strings.NewReader(csvData), cart)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 lines imported, got %d", count)
	}
	want := []added{{1, 3}, {3, 1}, {4, 1}}
	if len(cart.items) != len(want) {
		t.Fatalf("expected %d adds, got %+v", len(want), cart.items)
	}
	for i, w := range want {
		if cart.items[i] != w {
			t.Fatalf("add %d: expected %+v, got %+v", i, w, cart.items[i])
		}
	}
}

func TestCartImporter_HeaderAliases(t *testing.T) {
	csvData := "Qty, Product_ID\n5, 2\n"

	cart := &stubCart{}
	count, err := NewCartImporter(strings.NewReader(csvData), cart).Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 1 || cart.items[0] != (added{2, 5}) {
		t.Fatalf("unexpected adds: %+v", cart.items)
	}
}

func TestCartImporter_MalformedFileAddsNothing(t *testing.T) {
	csvData := `productId,quantity
1,2
2,0`

	cart := &stubCart{}
	_, err := NewCartImporter(strings.NewReader(csvData), cart).Run(context.Background())
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 3") {
		t.Fatalf("expected row number in %q", err)
	}
	if len(cart.items) != 0 {
		t.Fatalf("expected no adds, got %+v", cart.items)
	}
}

func TestCartImporter_MissingProductColumn(t *testing.T) {
	_, err := NewCartImporter(strings.NewReader("sku,quantity\nA,1\n"), &stubCart{}).Run(context.Background())
	if err == nil {
		t.Fatalf("expected error for missing productId column")
	}
}

func TestCartImporter_StopsAtFirstFailure(t *testing.T) {
	csvData := `productId,quantity
1,1
9,1
2,1`

	cart := &stubCart{failOn: 9}
	count, err := NewCartImporter(strings.NewReader(csvData), cart).Run(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.Message(err) != "Product not found" {
		t.Fatalf("expected server message, got %q", domain.Message(err))
	}
	if count != 1 {
		t.Fatalf("expected 1 line imported before failure, got %d", count)
	}
}
