package model

import "time"

// InsightResult is a natural-language summary of a period's transactions.
type InsightResult struct {
	GeneratedAt time.Time `json:"generated_at"`
	Period      string    `json:"period"`
	Summary     string    `json:"summary"`
	Insights    []string  `json:"insights"`
}
