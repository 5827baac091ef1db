package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"storefront/internal/app"
	"storefront/internal/checkout"
	"storefront/internal/commerce"
	"storefront/internal/domain"
)

var errUsage = errors.New("invalid arguments, see `shop help`")

func cmdLogin(ctx context.Context, s *app.App, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	if s.Session.State().Authenticated() {
		s.Session.Logout(ctx)
	}
	if err := s.Session.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", s.Session.State().Identity.Email)
	return nil
}

func cmdRegister(ctx context.Context, s *app.App, args []string) error {
	in, err := parseRegisterArgs(args)
	if err != nil {
		return err
	}
	if s.Session.State().Authenticated() {
		s.Session.Logout(ctx)
	}
	if err := s.Session.Register(ctx, in); err != nil {
		return err
	}
	fmt.Printf("Registered and signed in as %s\n", s.Session.State().Identity.Email)
	return nil
}

// parseRegisterArgs reads <email> <password> [first] [last] [phone].
func parseRegisterArgs(args []string) (domain.RegisterInput, error) {
	if len(args) < 2 || len(args) > 5 {
		return domain.RegisterInput{}, errUsage
	}
	in := domain.RegisterInput{Email: args[0], Password: args[1]}
	optional := []*string{&in.FirstName, &in.LastName, &in.Phone}
	for i, v := range args[2:] {
		*optional[i] = v
	}
	return in, nil
}

func cmdLogout(ctx context.Context, s *app.App) error {
	if !s.Session.State().Authenticated() {
		fmt.Println("Not signed in")
		return nil
	}
	s.Session.Logout(ctx)
	fmt.Println("Signed out")
	return nil
}

func cmdWhoami(s *app.App) error {
	st := s.Session.State()
	if !st.Authenticated() {
		fmt.Println("Not signed in")
		return nil
	}
	u := st.Identity
	fmt.Printf("%s <%s> (id %d)\n", u.FullName(), u.Email, u.ID)
	return nil
}

func cmdCart(ctx context.Context, s *app.App, args []string) error {
	if len(args) == 0 || args[0] == "show" {
		c, err := s.Cart.Refresh(ctx)
		if err != nil {
			return err
		}
		printCart(c)
		return nil
	}

	var (
		c   *domain.Cart
		err error
	)
	switch args[0] {
	case "add":
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		id, perr := parseID(args[1])
		if perr != nil {
			return perr
		}
		qty := 1
		if len(args) == 3 {
			if qty, err = strconv.Atoi(args[2]); err != nil {
				return errUsage
			}
		}
		c, err = s.Cart.AddItem(ctx, id, qty)
	case "set":
		if len(args) != 3 {
			return errUsage
		}
		id, perr := parseID(args[1])
		if perr != nil {
			return perr
		}
		qty, perr := strconv.Atoi(args[2])
		if perr != nil {
			return errUsage
		}
		c, err = s.Cart.UpdateQuantity(ctx, id, qty)
	case "remove":
		if len(args) != 2 {
			return errUsage
		}
		id, perr := parseID(args[1])
		if perr != nil {
			return perr
		}
		c, err = s.Cart.RemoveItem(ctx, id)
	case "clear":
		if err = s.Cart.Clear(ctx); err == nil {
			c = s.Cart.State().Cart
		}
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	printCart(c)
	return nil
}

func cmdCheckout(ctx context.Context, s *app.App, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	var req checkout.Request
	fs.StringVar(&req.Shipping.Street, "street", "", "Shipping street")
	fs.StringVar(&req.Shipping.City, "city", "", "Shipping city")
	fs.StringVar(&req.Shipping.State, "state", "", "Shipping state")
	fs.StringVar(&req.Shipping.ZipCode, "zip", "", "Shipping zip code")
	fs.StringVar(&req.Shipping.Country, "country", "", "Shipping country (default US)")
	fs.StringVar(&req.Billing.Street, "billing-street", "", "Billing street")
	fs.StringVar(&req.Billing.City, "billing-city", "", "Billing city")
	fs.StringVar(&req.Billing.State, "billing-state", "", "Billing state")
	fs.StringVar(&req.Billing.ZipCode, "billing-zip", "", "Billing zip code")
	fs.StringVar(&req.Billing.Country, "billing-country", "", "Billing country (default US)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.SameAsShipping = req.Billing == (domain.Address{})

	if _, err := s.Cart.Refresh(ctx); err != nil {
		return err
	}
	totals := checkout.SummarizeCart(s.Cart.State().Cart)
	order, err := s.Checkout.PlaceOrder(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Placed order %s (%s), estimated %s, charged %s\n", order.OrderNumber, order.Status, totals.Total, order.TotalAmount)
	return nil
}

func cmdOrders(ctx context.Context, s *app.App, args []string) error {
	if len(args) == 2 && args[0] == "show" {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		o, err := s.Checkout.Order(ctx, id)
		if err != nil {
			return err
		}
		printOrder(o)
		return nil
	}
	if len(args) != 0 {
		return errUsage
	}

	orders, err := s.Checkout.Orders(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("No orders yet")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tSTATUS\tITEMS\tTOTAL")
	for _, o := range orders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", o.ID, o.OrderNumber, o.Status, len(o.Items), o.TotalAmount)
	}
	return w.Flush()
}

func cmdProducts(ctx context.Context, s *app.App, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	var q commerce.ProductQuery
	fs.StringVar(&q.Search, "search", "", "Search term")
	fs.StringVar(&q.Category, "category", "", "Category filter")
	fs.BoolVar(&q.Featured, "featured", false, "Featured products only")
	fs.IntVar(&q.Page, "page", 0, "Zero-based page")
	fs.IntVar(&q.Size, "size", 20, "Page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	page, err := s.Client.ListProducts(ctx, q)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range page.Content {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Category, p.BasePrice, p.StockQuantity)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("page %d of %d (%d products)\n", page.Number+1, max(page.TotalPages, 1), page.TotalElements)
	return nil
}

func printCart(c *domain.Cart) {
	if c.IsEmpty() {
		fmt.Println("Cart is empty")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tPRODUCT\tQTY\tUNIT\tTOTAL")
	for _, it := range c.Items {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", it.ID, it.ProductName, it.Quantity, it.UnitPrice, it.TotalPrice)
	}
	t := checkout.SummarizeCart(c)
	fmt.Fprintf(w, "\t\t\tSubtotal\t%s\n", t.Subtotal)
	fmt.Fprintf(w, "\t\t\tShipping\t%s\n", t.Shipping)
	fmt.Fprintf(w, "\t\t\tTax\t%s\n", t.Tax)
	fmt.Fprintf(w, "\t\t\tTotal\t%s\n", t.Total)
	_ = w.Flush()
}

func printOrder(o *domain.Order) {
	fmt.Printf("Order %s  %s  placed %s\n", o.OrderNumber, o.Status, o.CreatedAt.Format("2006-01-02 15:04"))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, it := range o.Items {
		fmt.Fprintf(w, "  %s\t%d x %s\t%s\n", it.ProductName, it.Quantity, it.UnitPrice, it.TotalPrice)
	}
	fmt.Fprintf(w, "  Subtotal\t\t%s\n", o.SubtotalAmount)
	fmt.Fprintf(w, "  Shipping\t\t%s\n", o.ShippingAmount)
	fmt.Fprintf(w, "  Tax\t\t%s\n", o.TaxAmount)
	fmt.Fprintf(w, "  Total\t\t%s\n", o.TotalAmount)
	_ = w.Flush()
	a := o.ShippingAddress
	fmt.Printf("Ship to: %s, %s, %s %s, %s\n", a.Street, a.City, a.State, a.ZipCode, a.Country)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
