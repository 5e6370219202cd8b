package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"watchface-scraper/extractor"
	"watchface-scraper/internal/store"
	"watchface-scraper/internal/types"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	defaults := types.DefaultConfig()

	// Parse command line flags
	var (
		configPath  = flag.String("config", os.Getenv("SCRAPER_CONFIG"), "YAML config file")
		listingURL  = flag.String("listing", defaults.ListingURL, "Listing page to crawl")
		siteURL     = flag.String("site", defaults.SiteBaseURL, "Site root used to build detail URLs")
		storeDSN    = flag.String("store", defaults.StoreDSN, "Store DSN (memory://, sqlite://path, postgres://...)")
		engine      = flag.String("engine", defaults.Engine, "Rendering engine (chromedp, rod, http)")
		maxRetries  = flag.Int("retries", defaults.MaxRetries, "Maximum navigation attempts per listing page")
		maxPages    = flag.Int("max-pages", defaults.MaxPages, "Maximum listing pages, including the first")
		maxEnrich   = flag.Int("max-enrich", defaults.MaxEnrichDetails, "Maximum detail pages to visit")
		pageDelay   = flag.Duration("page-delay", defaults.InterPageDelay, "Delay between listing pages")
		detailDelay = flag.Duration("detail-delay", defaults.InterDetailDelay, "Delay between detail pages")
		headful     = flag.Bool("headful", false, "Show the browser window")
		debug       = flag.Bool("debug", false, "Write page captures on failures")
		debugDir    = flag.String("debug-dir", defaults.DebugDir, "Directory for page captures")
		dryRun      = flag.Bool("dry-run", false, "Scrape without saving and print the records as JSON")
		outputFlag  = flag.String("output", "", "Dry-run output file path (default: stdout)")
		timeout     = flag.Duration("timeout", 15*time.Minute, "Overall run timeout")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := types.NewLogger(*verbose)

	// Create configuration: defaults, then file, then env, then explicit flags
	config, err := types.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	config.ApplyEnv()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listing":
			config.ListingURL = *listingURL
		case "site":
			config.SiteBaseURL = *siteURL
		case "store":
			config.StoreDSN = *storeDSN
		case "engine":
			config.Engine = *engine
		case "retries":
			config.MaxRetries = *maxRetries
		case "max-pages":
			config.MaxPages = *maxPages
		case "max-enrich":
			config.MaxEnrichDetails = *maxEnrich
		case "page-delay":
			config.InterPageDelay = *pageDelay
		case "detail-delay":
			config.InterDetailDelay = *detailDelay
		case "headful":
			config.Headless = !*headful
		case "debug":
			config.DebugCaptureEnabled = *debug
		case "debug-dir":
			config.DebugDir = *debugDir
		}
	})

	var opts []extractor.Option
	var memory *store.MemoryStore
	if *dryRun {
		memory = store.NewMemoryStore()
		config.StoreDSN = "memory://"
		opts = append(opts, extractor.WithStoreFactory(func(context.Context, string) (store.Store, error) {
			return memory, nil
		}))
	}

	// Create context with timeout, cancelled on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	result, err := extractor.NewWatchfaceExtractor(config, logger, opts...).Run(ctx)
	if err != nil {
		logger.Fatalf("Scrape failed: %v", err)
	}

	var jsonData []byte
	if memory != nil {
		jsonData, err = json.MarshalIndent(memory.Records(), "", "  ")
	} else {
		jsonData, err = json.MarshalIndent(result, "", "  ")
	}
	if err != nil {
		logger.Fatalf("Failed to marshal results: %v", err)
	}

	// Output results
	if *outputFlag != "" {
		if err := os.WriteFile(*outputFlag, jsonData, 0644); err != nil {
			logger.Fatalf("Failed to write output file: %v", err)
		}
		logger.Infof("Results written to: %s", *outputFlag)
	} else {
		fmt.Println(string(jsonData))
	}

	// Print summary
	logger.Infof("Saved: %d, updated: %d, skipped: %d", result.Saved, result.Updated, result.Skipped)
}
