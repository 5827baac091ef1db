package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"
)

type CartWriter interface {
	AddItem(ctx context.Context, productID int64, quantity int) (*domain.Cart, error)
}

// CartImporter reads a productId,quantity CSV and adds each product to the
// signed-in user's cart.
type CartImporter struct {
	reader *csv.Reader
	cart   CartWriter
}

func NewCartImporter(r io.Reader, cart CartWriter) *CartImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CartImporter{
		reader: csvr,
		cart:   cart,
	}
}

type line struct {
	ProductID int64
	Quantity  int
}

// Run parses the whole file first so a malformed file adds nothing. Rows
// naming the same product are merged, in order of first appearance. It
// returns the number of lines added before any failure.
func (i *CartImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := lookup(index, productColumns); !ok {
		return 0, fmt.Errorf("missing productId column")
	}

	var (
		lines []line
		pos   = map[int64]int{}
		row   = 1
	)
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return 0, fmt.Errorf("read row %d: %w", row, err)
		}

		l, skip, err := parseRow(record, index)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", row, err)
		}
		if skip {
			continue
		}
		if at, seen := pos[l.ProductID]; seen {
			lines[at].Quantity += l.Quantity
			continue
		}
		pos[l.ProductID] = len(lines)
		lines = append(lines, l)
	}

	imported := 0
	for _, l := range lines {
		if _, err := i.cart.AddItem(ctx, l.ProductID, l.Quantity); err != nil {
			return imported, fmt.Errorf("add product %d: %w", l.ProductID, err)
		}
		imported++
	}
	return imported, nil
}

var (
	productColumns  = []string{"productid", "product_id", "product"}
	quantityColumns = []string{"quantity", "qty"}
)

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func lookup(index map[string]int, names []string) (int, bool) {
	for _, n := range names {
		if pos, ok := index[n]; ok {
			return pos, true
		}
	}
	return 0, false
}

// parseRow reports skip for blank rows. A missing quantity means 1.
func parseRow(record []string, index map[string]int) (line, bool, error) {
	idStr := pick(record, index, productColumns)
	qtyStr := pick(record, index, quantityColumns)
	if idStr == "" && qtyStr == "" {
		return line{}, true, nil
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return line{}, false, fmt.Errorf("invalid productId %q", idStr)
	}
	qty := 1
	if qtyStr != "" {
		qty, err = strconv.Atoi(qtyStr)
		if err != nil {
			return line{}, false, fmt.Errorf("invalid quantity %q", qtyStr)
		}
	}
	if qty < 1 {
		return line{}, false, &domain.ValidationError{Field: "quantity", Message: "must be at least 1"}
	}
	return line{ProductID: id, Quantity: qty}, false, nil
}

func pick(record []string, index map[string]int, names []string) string {
	pos, ok := lookup(index, names)
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
