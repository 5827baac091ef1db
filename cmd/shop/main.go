// Command shop is a terminal storefront. The credential is persisted, so
// consecutive invocations share one session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/domain"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "login":
		err = withShop(ctx, func(s *app.App) error { return cmdLogin(ctx, s, os.Args[2:]) })
	case "register":
		err = withShop(ctx, func(s *app.App) error { return cmdRegister(ctx, s, os.Args[2:]) })
	case "logout":
		err = withShop(ctx, func(s *app.App) error { return cmdLogout(ctx, s) })
	case "whoami":
		err = withShop(ctx, func(s *app.App) error { return cmdWhoami(s) })
	case "cart":
		err = withShop(ctx, func(s *app.App) error { return cmdCart(ctx, s, os.Args[2:]) })
	case "checkout":
		err = withShop(ctx, func(s *app.App) error { return cmdCheckout(ctx, s, os.Args[2:]) })
	case "orders":
		err = withShop(ctx, func(s *app.App) error { return cmdOrders(ctx, s, os.Args[2:]) })
	case "products":
		err = withShop(ctx, func(s *app.App) error { return cmdProducts(ctx, s, os.Args[2:]) })
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("shop %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", domain.Message(err))
		os.Exit(1)
	}
}

// withShop builds the storefront, restores the persisted session and runs fn.
func withShop(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	shop, err := app.New(ctx, cfg, cfg.Logger(os.Stderr, "shop"))
	if err != nil {
		return err
	}
	defer shop.Close()

	if err := shop.Session.Restore(ctx); err != nil {
		return err
	}
	return fn(shop)
}

func printUsage() {
	fmt.Println(`shop - terminal storefront

Usage:
  shop <command> [arguments]

Session Commands:
  login <email> <password>            Sign in
  register <email> <password> [first] [last] [phone]
                                      Create an account and sign in
  logout                              Sign out
  whoami                              Show the signed-in user

Cart Commands:
  cart                                Show the cart with totals
  cart add <productId> [quantity]     Add a product
  cart set <itemId> <quantity>        Change a line's quantity
  cart remove <itemId>                Remove a line
  cart clear                          Empty the cart

Order Commands:
  checkout [flags]                    Place an order for the cart
  orders                              List your orders
  orders show <id>                    Show one order

Catalogue:
  products [-search s] [-category c] [-featured] [-page n] [-size n]

Other:
  help                                Show this help message
  version                             Show version information

Environment:
  STOREFRONT_API_URL   commerce API base URL (default http://localhost:8080/api)
  CREDENTIAL_BACKEND   file, postgres, redis or memory (default file)`)
}
