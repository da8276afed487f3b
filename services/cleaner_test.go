package services

import (
	"testing"

	"listing-harvester/models"
	"listing-harvester/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLevelLogger(utils.LevelError) }

func TestCleanerParseScore(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		want float64
	}{
		{"8.5", 8.5},
		{"Scored 9,2", 9.2},
		{"10", 10},
		{"10.0", 10},
		{"7.85 Good", 7.85},
		{"", 0},
		{"Review score", 0},
		{"100", 0},
	}

	for _, tt := range tests {
		got := c.parseScore(tt.raw)
		if got != tt.want {
			t.Errorf("parseScore(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerNormalisesTitle(t *testing.T) {
	c := NewCleaner(newTestLogger())
	items := []models.ListingItem{
		{Title: "  Hotel \n  du   Nord ", Score: "8.1", Fingerprint: "id:1"},
	}

	cleaned := c.Clean(items)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(cleaned))
	}
	if cleaned[0].Title != "Hotel du Nord" {
		t.Errorf("Title: got %q, want %q", cleaned[0].Title, "Hotel du Nord")
	}
	if cleaned[0].RawScore != "8.1" || cleaned[0].Score != 8.1 {
		t.Errorf("score: got raw %q parsed %.2f", cleaned[0].RawScore, cleaned[0].Score)
	}
}

func TestCleanerDropsEmptyFingerprint(t *testing.T) {
	c := NewCleaner(newTestLogger())
	items := []models.ListingItem{
		{Title: "No fingerprint", Score: "8.0"},
		{Title: "Has fingerprint", Score: "9.0", Fingerprint: "id:42"},
	}

	cleaned := c.Clean(items)
	if len(cleaned) != 1 {
		t.Errorf("expected 1 listing after dropping empty fingerprint, got %d", len(cleaned))
	}
}

func TestCleanerDeduplicatesFingerprint(t *testing.T) {
	c := NewCleaner(newTestLogger())
	items := []models.ListingItem{
		{Title: "A", Fingerprint: "id:1"},
		{Title: "B", Fingerprint: "id:1"},
	}

	cleaned := c.Clean(items)
	if len(cleaned) != 1 {
		t.Errorf("expected 1 listing after deduplication, got %d", len(cleaned))
	}
	if cleaned[0].Title != "A" {
		t.Errorf("the first occurrence should win, got %q", cleaned[0].Title)
	}
}
