package dto

import "github.com/amirulmuuminin/tahfidz-exam-api/internal/models"

// ProblemScanQuery bounds a detection run to a date window. Empty bounds
// default to the configured detector range starting today.
type ProblemScanQuery struct {
	FromDateKey string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	ToDateKey   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// ProblemScanResponse lists detected violations grouped by kind counters.
type ProblemScanResponse struct {
	Problems []models.ProblemReport `json:"problems"`
	Counts   map[string]int         `json:"counts"`
	From     string                 `json:"from"`
	To       string                 `json:"to"`
}
