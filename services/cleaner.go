package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"listing-harvester/models"
	"listing-harvester/utils"
)

var (
	// scoreRegexp captures a review score such as "8.5", "8,5" or "10"
	scoreRegexp = regexp.MustCompile(`\b(10(?:[.,]0+)?|[0-9](?:[.,]\d{1,2})?)\b`)
)

// maxScore is the top of the review scale scores are parsed against.
const maxScore = 10.0

// Cleaner transforms harvested ListingItems into clean, validated Listings.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean processes harvested items and returns cleaned records. Items without
// a fingerprint or already cleaned under the same fingerprint are dropped.
func (c *Cleaner) Clean(items []models.ListingItem) []*models.Listing {
	seen := make(map[string]struct{})
	result := make([]*models.Listing, 0, len(items))

	for _, it := range items {
		fp := strings.TrimSpace(it.Fingerprint)
		if fp == "" {
			c.logger.Warn("[cleaner] Dropping item without fingerprint: %s", it.Title)
			continue
		}

		if _, dup := seen[fp]; dup {
			c.logger.Debug("[cleaner] Duplicate fingerprint skipped: %s", fp)
			continue
		}
		seen[fp] = struct{}{}

		result = append(result, &models.Listing{
			Fingerprint: fp,
			Title:       normaliseText(it.Title),
			RawScore:    it.Score,
			Score:       c.parseScore(it.Score),
			CreatedAt:   time.Now(),
		})
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(items), len(result), len(items)-len(result))
	return result
}

// parseScore extracts a 0–10 review score from a raw string.
// Examples:
//
//	"8.5"          → 8.5
//	"Scored 9,2"   → 9.2
//	"10"           → 10
//	"Review score" → 0
func (c *Cleaner) parseScore(raw string) float64 {
	match := scoreRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return 0
	}
	val, err := strconv.ParseFloat(strings.Replace(match[1], ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	if val < 0 || val > maxScore {
		return 0
	}
	return val
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
