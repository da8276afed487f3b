package services

import (
	"fmt"
	"sort"
	"strings"

	"listing-harvester/models"
	"listing-harvester/utils"
)

// InsightService summarises a harvested dataset.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ScoreBands: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var scored []*models.Listing
	for _, l := range listings {
		if l.Title == "" {
			report.Untitled++
		}
		if l.Score > 0 {
			scored = append(scored, l)
			report.ScoreBands[scoreBand(l.Score)]++
		}
	}
	report.ScoredListings = len(scored)

	// Score stats (only listings with score > 0)
	if len(scored) > 0 {
		report.MinScore = scored[0].Score
		report.MaxScore = scored[0].Score
		var total float64
		for _, l := range scored {
			total += l.Score
			if l.Score < report.MinScore {
				report.MinScore = l.Score
			}
			if l.Score > report.MaxScore {
				report.MaxScore = l.Score
			}
		}
		report.AverageScore = round2(total / float64(len(scored)))
	}

	// Top 5 by score, discovery order among ties
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > 5 {
		report.TopRated = scored[:5]
	} else {
		report.TopRated = scored
	}

	s.logger.Debug("[insights] %d listings, %d scored", report.TotalListings, report.ScoredListings)
	return report
}

// scoreBand buckets a 0–10 review score the way listing sites label them.
func scoreBand(score float64) string {
	switch {
	case score >= 9:
		return "9+ Superb"
	case score >= 8:
		return "8-9 Very good"
	case score >= 7:
		return "7-8 Good"
	default:
		return "<7 Below good"
	}
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 HARVEST INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total listings harvested : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Printf("  Listings with a score    : \033[1m%d\033[0m\n", r.ScoredListings)
	fmt.Printf("  Listings without a title : \033[1m%d\033[0m\n", r.Untitled)
	fmt.Println()

	// Score Stats
	fmt.Printf("\033[1;33m  Review Scores (out of 10)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.ScoredListings > 0 {
		fmt.Printf("  Average score : \033[1;32m%.2f\033[0m\n", r.AverageScore)
		fmt.Printf("  Minimum score : \033[1;32m%.2f\033[0m\n", r.MinScore)
		fmt.Printf("  Maximum score : \033[1;32m%.2f\033[0m\n", r.MaxScore)
	} else {
		fmt.Printf("  No score data available\n")
	}
	fmt.Println()

	// ── TOP 5 HIGHEST RATED ──────────────────────────────────────────────
	fmt.Printf("\033[1;33m  Top 5 Highest Rated\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Printf("  No rated listings found\n")
	} else {
		for i, l := range r.TopRated {
			title := truncate(l.Title, 38)
			fmt.Printf("  \033[1m%d.\033[0m %-40s \033[1;32m%.1f\033[0m\n",
				i+1, title, l.Score)
		}
	}
	fmt.Println()

	// Score Bands
	fmt.Printf("\033[1;33m  Listings by Score Band\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ScoreBands) == 0 {
		fmt.Printf("  No score data\n")
	} else {
		type bandCount struct {
			band  string
			count int
		}
		var bands []bandCount
		for band, cnt := range r.ScoreBands {
			bands = append(bands, bandCount{band, cnt})
		}
		sort.Slice(bands, func(i, j int) bool {
			return bands[i].band > bands[j].band
		})
		for _, bc := range bands {
			bar := strings.Repeat("█", bc.count)
			fmt.Printf("  %-16s %s (%d)\n", bc.band, bar, bc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}