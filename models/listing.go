package models

import "time"

// ListingItem is one harvested record, exactly as extracted from an item node.
// Fields a node did not carry stay empty; nothing is defaulted.
type ListingItem struct {
	Title string `json:"title"`
	Score string `json:"score"`

	// Fingerprint is the dedup key the item was harvested under.
	Fingerprint string `json:"-"`
}

// IsEmpty reports whether no field could be extracted.
func (i ListingItem) IsEmpty() bool {
	return i.Title == "" && i.Score == ""
}

// StopReason says why a harvest loop ended.
type StopReason string

const (
	StopExhausted  StopReason = "exhausted"
	StopCapReached StopReason = "cap-reached"
	StopCancelled  StopReason = "cancelled"
)

// HarvestResult is what a finished session hands back to the caller.
type HarvestResult struct {
	Items    []ListingItem
	Attempts int
	Seen     int
	Reason   StopReason
}

// Listing is the cleaned, validated record ready for PostgreSQL storage.
type Listing struct {
	ID          int64
	Fingerprint string
	Title       string
	RawScore    string
	Score       float64
	CreatedAt   time.Time
}

// InsightReport holds the computed analytics over the cleaned dataset.
type InsightReport struct {
	TotalListings  int
	ScoredListings int
	Untitled       int
	AverageScore   float64
	MinScore       float64
	MaxScore       float64
	TopRated       []*Listing
	ScoreBands     map[string]int
}
