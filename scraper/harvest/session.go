// Package harvest runs the incremental extraction loop against one page:
// reveal more items, extract the ones not seen before, drop processed nodes
// from the DOM, and hand the collected records to the sinks when done.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-harvester/config"
	"listing-harvester/models"
	"listing-harvester/scraper"
	"listing-harvester/storage"
	"listing-harvester/utils"
)

// Options are the tunables of one session.
type Options struct {
	URL             string
	ReadySelector   string
	PageLoadTimeout time.Duration
	MaxRetries      int

	ScrollPause         time.Duration
	MaxScrollRounds     int
	ScrollIntoViewPause time.Duration
	ClickTimeout        time.Duration
	ClickWait           time.Duration
	MaxAttempts         int

	LoadMoreSelector string
	ItemSelector     string
	TitleSelector    string
	ScoreSelector    string
	IDAttribute      string
	FingerprintChars int
	BatchSize        int
}

// OptionsFromConfig maps the application config onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URL:                 cfg.TargetURL,
		ReadySelector:       "body",
		PageLoadTimeout:     cfg.PageLoadTimeout,
		MaxRetries:          cfg.MaxRetries,
		ScrollPause:         cfg.ScrollPause,
		MaxScrollRounds:     cfg.MaxScrollRounds,
		ScrollIntoViewPause: cfg.ScrollIntoViewPause,
		ClickTimeout:        cfg.ClickTimeout,
		ClickWait:           cfg.ClickWait,
		MaxAttempts:         cfg.MaxRevealAttempts,
		LoadMoreSelector:    cfg.LoadMoreSelector,
		ItemSelector:        cfg.ItemSelector,
		TitleSelector:       cfg.TitleSelector,
		ScoreSelector:       cfg.ScoreSelector,
		IDAttribute:         cfg.IDAttribute,
		FingerprintChars:    cfg.FingerprintChars,
		BatchSize:           cfg.BatchSize,
	}
}

// RevealState is the part of the loop state the reveal controller mutates.
type RevealState struct {
	LastHeight int64
	Attempts   int
	Cap        int
}

// BatchFunc receives records incrementally, BatchSize at a time, with the
// remainder delivered when the session terminates.
type BatchFunc func(batch []models.ListingItem) error

// Session owns everything one harvest run mutates. It is single-use and not
// safe for concurrent use.
type Session struct {
	browser scraper.Browser
	opts    Options
	logger  *utils.Logger
	retry   *utils.RetryConfig
	sink    storage.ItemWriter
	onBatch BatchFunc

	seen    *utils.SeenSet
	results []models.ListingItem
	pending []models.ListingItem
	state   RevealState

	sleep func(time.Duration)
}

// NewSession prepares a session over an already opened browser. The session
// takes ownership of b and closes it when Run returns.
func NewSession(b scraper.Browser, opts Options, logger *utils.Logger) *Session {
	if opts.ReadySelector == "" {
		opts.ReadySelector = "body"
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.MaxScrollRounds < 1 {
		opts.MaxScrollRounds = 1
	}
	s := &Session{
		browser: b,
		opts:    opts,
		logger:  logger,
		seen:    utils.NewSeenSet(),
		results: make([]models.ListingItem, 0),
		state:   RevealState{Cap: opts.MaxAttempts},
		sleep:   time.Sleep,
	}
	s.retry = &utils.RetryConfig{
		MaxAttempts: opts.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
		Sleep:       func(d time.Duration) { s.sleep(d) },
	}
	return s
}

// WithSink sets the writer that receives the full collection at the end.
func (s *Session) WithSink(w storage.ItemWriter) *Session {
	s.sink = w
	return s
}

// OnBatch registers incremental emission of new records.
func (s *Session) OnBatch(fn BatchFunc) *Session {
	s.onBatch = fn
	return s
}

// Run drives bootstrap → loop{reveal → extract → reclaim} → terminate.
// ctx is only checked between iterations. The browser is closed on every
// return path. A non-nil result is returned whenever the loop ran, even if
// flushing or writing the sink failed.
func (s *Session) Run(ctx context.Context) (*models.HarvestResult, error) {
	defer s.teardown()

	if err := s.bootstrap(); err != nil {
		return nil, err
	}

	s.logger.Info("[harvest] Starting loop: cap %d reveal attempts", s.state.Cap)

	var reason models.StopReason
	for {
		if ctx.Err() != nil {
			reason = models.StopCancelled
			s.logger.Warn("[harvest] Context done, stopping after %d attempts", s.state.Attempts)
			break
		}

		more := s.revealMore()
		scanned := s.processVisibleItems()
		s.reclaim(scanned)

		if !more {
			reason = models.StopExhausted
			s.logger.Info("[harvest] No more load more buttons found, finishing")
			break
		}
		if s.state.Attempts >= s.state.Cap {
			reason = models.StopCapReached
			s.logger.Info("[harvest] Reached cap of %d reveal attempts, finishing", s.state.Cap)
			break
		}
	}

	return s.terminate(reason)
}

func (s *Session) bootstrap() error {
	s.logger.Info("[harvest] Opening %s", s.opts.URL)

	err := s.retry.Do("navigate", func() error {
		return s.browser.Navigate(s.opts.URL, s.opts.PageLoadTimeout)
	})
	if err != nil {
		return fmt.Errorf("harvest: bootstrap: %w", err)
	}

	if err := s.browser.WaitReady(s.opts.ReadySelector, s.opts.PageLoadTimeout); err != nil {
		return fmt.Errorf("harvest: page never rendered %q: %w", s.opts.ReadySelector, err)
	}
	return nil
}

// teardown closes the browser. Errors never leave the session.
func (s *Session) teardown() {
	if err := s.browser.Close(); err != nil {
		s.logger.Debug("[harvest] Browser teardown failed: %v", err)
		return
	}
	s.logger.Debug("[harvest] Browser closed")
}

// terminate flushes the pending batch, then writes the whole collection
// once, in discovery order.
func (s *Session) terminate(reason models.StopReason) (*models.HarvestResult, error) {
	result := &models.HarvestResult{
		Items:    s.results,
		Attempts: s.state.Attempts,
		Seen:     s.seen.Size(),
		Reason:   reason,
	}

	var errs []error
	if n := len(s.pending); n > 0 {
		if err := s.emitPending(); err != nil {
			errs = append(errs, fmt.Errorf("harvest: flush final batch: %w", err))
		} else {
			s.logger.Info("[harvest] Processed final batch of %d items", n)
		}
	}

	if s.sink != nil {
		if err := s.sink.WriteItems(s.results); err != nil {
			errs = append(errs, fmt.Errorf("harvest: write sink: %w", err))
		} else {
			s.logger.Info("[harvest] Saved %d items", len(s.results))
		}
	}

	s.logger.Info("[harvest] Done (%s): %d items, %d fingerprints, %d reveal attempts",
		reason, len(s.results), result.Seen, result.Attempts)
	return result, errors.Join(errs...)
}

// emitPending hands the pending records to the batch handler. On failure the
// records stay pending and are retried with the next emission.
func (s *Session) emitPending() error {
	if len(s.pending) == 0 {
		return nil
	}
	if s.onBatch == nil {
		s.pending = s.pending[:0]
		return nil
	}

	batch := make([]models.ListingItem, len(s.pending))
	copy(batch, s.pending)
	if err := s.onBatch(batch); err != nil {
		return err
	}
	s.pending = s.pending[:0]
	return nil
}
