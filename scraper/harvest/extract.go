package harvest

import (
	"strings"

	"listing-harvester/models"
	"listing-harvester/scraper"
)

// processVisibleItems scans the item nodes currently in the DOM, in order,
// and records every one whose fingerprint is new. It returns how many nodes
// the scan covered so reclaim never touches anything past them.
func (s *Session) processVisibleItems() int {
	nodes, err := s.browser.FindAll(s.opts.ItemSelector)
	if err != nil {
		s.logger.Error("[harvest] Error processing items: %v", err)
		return 0
	}

	added := 0
	for i, n := range nodes {
		fp, err := Fingerprint(n, s.opts.IDAttribute, s.opts.FingerprintChars)
		if err != nil {
			s.logger.Debug("[harvest] Skipping node %d: %v", i, err)
			continue
		}

		// Marked seen before extraction: a node that yields nothing is not
		// retried on later passes.
		if !s.seen.Add(fp) {
			continue
		}

		item := s.extract(n)
		if item.IsEmpty() {
			s.logger.Debug("[harvest] No fields extracted for %s", fp)
			continue
		}
		item.Fingerprint = fp

		s.results = append(s.results, item)
		s.pending = append(s.pending, item)
		added++

		if len(s.pending) >= s.opts.BatchSize {
			if err := s.emitPending(); err != nil {
				s.logger.Error("[harvest] Emitting batch failed, keeping %d items pending: %v",
					len(s.pending), err)
			}
		}
	}

	s.logger.Info("[harvest] Scanned %d items, %d new, %d total", len(nodes), added, len(s.results))
	return len(nodes)
}

// extract reads each field on its own. A missing field stays empty.
func (s *Session) extract(n scraper.Node) models.ListingItem {
	return models.ListingItem{
		Title: s.field(n, "title", s.opts.TitleSelector),
		Score: s.field(n, "score", s.opts.ScoreSelector),
	}
}

func (s *Session) field(n scraper.Node, name, selector string) string {
	el, err := n.Find(selector)
	if err != nil {
		s.logger.Debug("[harvest] Error extracting %s: %v", name, err)
		return ""
	}
	text, err := el.Text()
	if err != nil {
		s.logger.Debug("[harvest] Error reading %s text: %v", name, err)
		return ""
	}
	return strings.TrimSpace(text)
}
