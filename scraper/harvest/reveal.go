package harvest

import "listing-harvester/scraper"

// revealMore scrolls until the page height settles, then clicks the
// load-more control. It returns false once no control can be clicked.
func (s *Session) revealMore() bool {
	s.scrollUntilStable()

	btn, err := s.browser.WaitClickable(s.opts.LoadMoreSelector, s.opts.ClickTimeout)
	if err != nil {
		if scraper.IsAbsent(err) {
			s.logger.Debug("[harvest] Load more control not clickable within %v", s.opts.ClickTimeout)
		} else {
			s.logger.Error("[harvest] Locating load more control failed: %v", err)
		}
		return false
	}

	if err := btn.ScrollIntoView(); err != nil {
		s.logger.Debug("[harvest] Scroll to load more control failed: %v", err)
	}
	s.sleep(s.opts.ScrollIntoViewPause)

	if err := btn.Click(); err != nil {
		if scraper.IsAbsent(err) {
			s.logger.Debug("[harvest] Load more control vanished before click: %v", err)
		} else {
			s.logger.Error("[harvest] Clicking load more control failed: %v", err)
		}
		return false
	}

	s.state.Attempts++
	s.logger.Info("[harvest] Clicked load more button, attempt %d/%d", s.state.Attempts, s.state.Cap)
	s.sleep(s.opts.ClickWait)
	return true
}

// scrollUntilStable scrolls to the bottom until the height stops growing.
// After MaxScrollRounds rounds the page is treated as stable.
func (s *Session) scrollUntilStable() {
	last, err := s.browser.ScrollHeight()
	if err != nil {
		s.logger.Debug("[harvest] Reading page height failed: %v", err)
		return
	}

	stable := false
	for round := 0; round < s.opts.MaxScrollRounds; round++ {
		if err := s.browser.ScrollToBottom(); err != nil {
			s.logger.Debug("[harvest] Scroll to bottom failed: %v", err)
			stable = true
			break
		}
		s.sleep(s.opts.ScrollPause)

		height, err := s.browser.ScrollHeight()
		if err != nil {
			s.logger.Debug("[harvest] Reading page height failed: %v", err)
			stable = true
			break
		}
		if height <= last {
			stable = true
			break
		}
		last = height
	}

	if !stable {
		s.logger.Warn("[harvest] Page still growing after %d scroll rounds, treating as stable",
			s.opts.MaxScrollRounds)
	}
	s.state.LastHeight = last
}
