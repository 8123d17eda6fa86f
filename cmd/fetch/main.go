package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"coinproxy/internal/app"
	"coinproxy/internal/config"
	"coinproxy/internal/logger"
	"coinproxy/internal/provider"
)

func main() {
	var (
		listing    string
		coin       string
		page       int
		perPage    int
		limit      int
		configPath string
	)
	flag.StringVar(&listing, "listing", "", "quote currency of the market listing to fetch (e.g. usd)")
	flag.StringVar(&coin, "coin", "", "coin id to fetch (e.g. bitcoin)")
	flag.IntVar(&page, "page", 1, "listing page")
	flag.IntVar(&perPage, "per-page", 0, "listing page size (default from config)")
	flag.IntVar(&limit, "limit", 10, "print at most this many listing rows")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json or config.yaml (optional)")
	flag.Parse()

	if (listing == "") == (coin == "") {
		log.Fatal("exactly one of -listing or -coin is required")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env: %v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Log.Level, cfg.Stage)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout()+5*time.Second)
	defer cancel()

	svc, cleanup, err := app.Build(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	defer cleanup()

	var (
		payload   any
		source    string
		fetchedAt time.Time
	)
	if listing != "" {
		res, err := svc.Listing(ctx, provider.ListingQuery{Currency: listing, Page: page, PerPage: perPage})
		if err != nil {
			log.Fatalf("listing %s: %v", listing, err)
		}
		rows := res.Payload
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
		log.Printf("%s listing: %d rows", listing, len(res.Payload))
		payload, source, fetchedAt = rows, string(res.Source), res.FetchedAt
	} else {
		res, err := svc.Detail(ctx, coin)
		if err != nil {
			log.Fatalf("coin %s: %v", coin, err)
		}
		payload, source, fetchedAt = res.Payload, string(res.Source), res.FetchedAt
	}

	b, _ := json.MarshalIndent(payload, "", "  ")
	fmt.Println(string(b))
	fmt.Fprintf(os.Stderr, "source=%s fetched_at=%s\n", source, fetchedAt.UTC().Format(time.RFC3339))
}
