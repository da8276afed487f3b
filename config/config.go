package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/joho/godotenv"
)

const defaultTargetURL = "https://www.booking.com/searchresults.html?ss=Paris%2C+France" +
	"&lang=en-us&dest_id=-1456928&dest_type=city&group_adults=2&no_rooms=1&group_children=0"

// Browser drivers understood by main.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
	DriverStatic   = "static"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	TargetURL      string
	Driver         string
	ReplayDir      string
	ChromeBin      string
	Headless       bool
	UserAgent      string
	AcceptLanguage string
	LogLevel       string

	PageLoadTimeout     time.Duration
	ScrollPause         time.Duration
	ScrollIntoViewPause time.Duration
	ClickWait           time.Duration
	ClickTimeout        time.Duration
	OperationTimeout    time.Duration
	MaxRevealAttempts   int
	MaxScrollRounds     int
	MaxRetries          int

	LoadMoreSelector string
	ItemSelector     string
	TitleSelector    string
	ScoreSelector    string
	IDAttribute      string
	FingerprintChars int
	BatchSize        int

	OutputPath    string
	CSVOutputPath string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		TargetURL:      getEnv("TARGET_URL", defaultTargetURL),
		Driver:         strings.ToLower(getEnv("BROWSER_DRIVER", DriverChromedp)),
		ReplayDir:      getEnv("REPLAY_DIR", ""),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		Headless:       getEnvBool("HEADLESS", true),
		UserAgent:      getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		AcceptLanguage: getEnv("ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		PageLoadTimeout:     getEnvMs("PAGE_LOAD_TIMEOUT_MS", 10000),
		ScrollPause:         getEnvMs("SCROLL_PAUSE_MS", 2000),
		ScrollIntoViewPause: getEnvMs("SCROLL_INTO_VIEW_PAUSE_MS", 1000),
		ClickWait:           getEnvMs("CLICK_WAIT_MS", 3000),
		ClickTimeout:        getEnvMs("CLICK_TIMEOUT_MS", 5000),
		OperationTimeout:    getEnvMs("OPERATION_TIMEOUT_MS", 10000),
		MaxRevealAttempts:   getEnvInt("MAX_REVEAL_ATTEMPTS", 50),
		MaxScrollRounds:     getEnvInt("MAX_SCROLL_ROUNDS", 25),
		MaxRetries:          getEnvInt("MAX_RETRIES", 3),

		LoadMoreSelector: getEnv("LOAD_MORE_SELECTOR", ".de576f5064.b46cd7aad7.d0a01e3d83.dda427e6b5.bbf83acb81.a0ddd706cc"),
		ItemSelector:     getEnv("ITEM_SELECTOR", `[data-testid="property-card-container"]`),
		TitleSelector:    getEnv("TITLE_SELECTOR", `[data-testid="title"]`),
		ScoreSelector:    getEnv("SCORE_SELECTOR", `[data-testid="review-score"] > div:nth-child(2)`),
		IDAttribute:      getEnv("ID_ATTRIBUTE", "data-id"),
		FingerprintChars: getEnvInt("FINGERPRINT_CHARS", 100),
		BatchSize:        getEnvInt("BATCH_SIZE", 25),

		OutputPath:    getEnv("OUTPUT_PATH", "./output/listings.jsonl"),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", ""),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "listings_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// Validate rejects settings the harvest loop cannot run with.
func (c *Config) Validate() error {
	if c.TargetURL == "" && c.Driver != DriverStatic {
		return fmt.Errorf("config: TARGET_URL is empty")
	}

	switch c.Driver {
	case DriverChromedp, DriverRod:
	case DriverStatic:
		if c.ReplayDir == "" {
			return fmt.Errorf("config: driver %q needs REPLAY_DIR", c.Driver)
		}
	default:
		return fmt.Errorf("config: unknown BROWSER_DRIVER %q", c.Driver)
	}

	if c.MaxRevealAttempts < 1 {
		return fmt.Errorf("config: MAX_REVEAL_ATTEMPTS must be >= 1, got %d", c.MaxRevealAttempts)
	}
	if c.MaxScrollRounds < 1 {
		return fmt.Errorf("config: MAX_SCROLL_ROUNDS must be >= 1, got %d", c.MaxScrollRounds)
	}
	if c.FingerprintChars < 1 {
		return fmt.Errorf("config: FINGERPRINT_CHARS must be >= 1, got %d", c.FingerprintChars)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("config: BATCH_SIZE must be >= 1, got %d", c.BatchSize)
	}
	if c.ClickTimeout <= 0 || c.PageLoadTimeout <= 0 || c.OperationTimeout <= 0 {
		return fmt.Errorf("config: timeouts must be positive")
	}

	selectors := map[string]string{
		"LOAD_MORE_SELECTOR": c.LoadMoreSelector,
		"ITEM_SELECTOR":      c.ItemSelector,
		"TITLE_SELECTOR":     c.TitleSelector,
		"SCORE_SELECTOR":     c.ScoreSelector,
	}
	for key, sel := range selectors {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("config: %s is empty", key)
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("config: %s %q: %w", key, sel, err)
		}
	}

	if c.OutputPath == "" {
		return fmt.Errorf("config: OUTPUT_PATH is empty")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvMs(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMs)) * time.Millisecond
}
