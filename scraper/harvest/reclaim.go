package harvest

// reclaim removes the scanned item nodes from the DOM except the last one,
// which keeps the page anchored for the next scroll. Only the first scanned
// nodes are candidates, so anything inserted after the scan survives.
func (s *Session) reclaim(scanned int) {
	if scanned < 2 {
		return
	}

	s.logger.Debug("[harvest] Cleaning up processed items from DOM...")
	removed, err := s.browser.RemoveLeading(s.opts.ItemSelector, scanned-1)
	if err != nil {
		s.logger.Debug("[harvest] Error during cleanup: %v", err)
		return
	}
	s.logger.Debug("[harvest] Removed %d processed nodes", removed)
}
