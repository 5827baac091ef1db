package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/importer"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a productId,quantity CSV")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()

	shop, err := app.New(ctx, cfg, cfg.Logger(os.Stderr, "importer"))
	if err != nil {
		log.Fatalf("init storefront: %v", err)
	}
	defer shop.Close()

	if err := shop.Session.Restore(ctx); err != nil {
		log.Fatalf("restore session: %v", err)
	}
	if !shop.Session.State().Authenticated() {
		log.Fatalf("not signed in: run `shop login` first")
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCartImporter(f, shop.Cart)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed after %d lines: %v", count, err)
	}

	fmt.Printf("Imported %d cart lines in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
