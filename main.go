package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"listing-harvester/config"
	"listing-harvester/models"
	"listing-harvester/scraper"
	"listing-harvester/scraper/chrome"
	"listing-harvester/scraper/harvest"
	"listing-harvester/scraper/rodbrowser"
	"listing-harvester/scraper/static"
	"listing-harvester/services"
	"listing-harvester/storage"
	"listing-harvester/utils"
)

func main() {
	cfg := config.Load()

	flag.StringVar(&cfg.TargetURL, "url", cfg.TargetURL, "page to harvest")
	flag.StringVar(&cfg.Driver, "driver", cfg.Driver, "browser driver: chromedp, rod or static")
	flag.StringVar(&cfg.ReplayDir, "replay", cfg.ReplayDir, "directory of page-*.html snapshots for the static driver")
	flag.Parse()

	// -replay alone implies the static driver.
	if cfg.ReplayDir != "" && !isFlagSet("driver") {
		cfg.Driver = config.DriverStatic
	}

	logger := utils.NewLevelLogger(utils.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	logger.Info("=== Listing Harvester starting ===")
	logger.Info("Config: driver %s | reveal cap %d | batch %d | scroll pause %v",
		cfg.Driver, cfg.MaxRevealAttempts, cfg.BatchSize, cfg.ScrollPause)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := openSinks(cfg)
	if err != nil {
		logger.Error("Failed to open output: %v", err)
		os.Exit(1)
	}
	defer sink.Close()

	var pgWriter *storage.PostgresWriter
	if cfg.PostgresEnabled {
		pgWriter, err = storage.NewPostgresWriter(cfg.DSN(), logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			os.Exit(1)
		}
		defer pgWriter.Close()

		if err := pgWriter.Clear(); err != nil {
			logger.Warn("Could not clear listings table: %v", err)
		}
	}

	browser, err := openBrowser(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start %s driver: %v", cfg.Driver, err)
		os.Exit(1)
	}

	cleaner := services.NewCleaner(logger)
	session := harvest.NewSession(browser, harvest.OptionsFromConfig(cfg), logger).WithSink(sink)
	if pgWriter != nil {
		session.OnBatch(persistBatches(pgWriter, cleaner))
	}

	result, err := session.Run(ctx)
	if result == nil {
		logger.Error("Harvest failed: %v", err)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("Harvest finished with errors: %v", err)
	}

	if len(result.Items) == 0 {
		logger.Warn("No listings were harvested (%s).", result.Reason)
		return
	}

	listings := cleaner.Clean(result.Items)
	if pgWriter != nil {
		dbListings, err := pgWriter.FetchAll()
		if err != nil {
			logger.Error("Failed to fetch listings from DB for insights: %v", err)
		} else {
			listings = dbListings
		}
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(insightSvc.Generate(listings))

	fmt.Printf("  Done (%s). %d listings → %s\n\n", result.Reason, len(result.Items), cfg.OutputPath)
}

// openSinks opens the JSONL output and, when configured, the CSV copy.
func openSinks(cfg *config.Config) (storage.ItemWriter, error) {
	jsonl, err := storage.NewJSONLWriter(cfg.OutputPath)
	if err != nil {
		return nil, err
	}
	if cfg.CSVOutputPath == "" {
		return jsonl, nil
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		_ = jsonl.Close()
		return nil, err
	}
	return storage.NewMultiWriter(jsonl, csvWriter), nil
}

func openBrowser(ctx context.Context, cfg *config.Config, logger *utils.Logger) (scraper.Browser, error) {
	switch cfg.Driver {
	case config.DriverRod:
		return rodbrowser.New(ctx, rodbrowser.Options{
			BrowserBin:     cfg.ChromeBin,
			Headless:       cfg.Headless,
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.AcceptLanguage,
			OpTimeout:      cfg.OperationTimeout,
		}, logger)
	case config.DriverStatic:
		logger.Info("Replaying snapshots from %s", cfg.ReplayDir)
		return static.Load(cfg.ReplayDir, cfg.ItemSelector)
	default:
		return chrome.New(ctx, chrome.Options{
			ChromeBin:      cfg.ChromeBin,
			Headless:       cfg.Headless,
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.AcceptLanguage,
			OpTimeout:      cfg.OperationTimeout,
		}, logger)
	}
}

// persistBatches cleans each emitted batch and hands it to w.
func persistBatches(w storage.ListingWriter, cleaner *services.Cleaner) harvest.BatchFunc {
	return func(batch []models.ListingItem) error {
		return w.Write(cleaner.Clean(batch))
	}
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
