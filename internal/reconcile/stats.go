package reconcile

import (
	"math"

	"github.com/jonathan/jobpulse/internal/types"
)

// respondedStatuses count as a response from the employer.
var respondedStatuses = map[types.Status]bool{
	types.StatusRejected:           true,
	types.StatusInterviewScheduled: true,
	types.StatusAssessment:         true,
	"Interviewed":                  true,
	"Offer Received":               true,
	"Accepted":                     true,
	"Phone Screen":                 true,
	"Technical Round":              true,
	"HR Round":                     true,
}

// Stats summarises a user's applications.
type Stats struct {
	Total      int                  `json:"total"`
	ByStatus   map[types.Status]int `json:"by_status"`
	ByPlatform map[string]int       `json:"by_platform"`
	// ResponseRate is the percentage of applications that got any employer
	// response, rounded to one decimal.
	ResponseRate float64 `json:"response_rate"`
}

// ComputeStats aggregates records.
func ComputeStats(records []types.ApplicationRecord) Stats {
	s := Stats{
		Total:      len(records),
		ByStatus:   make(map[types.Status]int),
		ByPlatform: make(map[string]int),
	}
	responded := 0
	for _, r := range records {
		s.ByStatus[r.Status]++
		s.ByPlatform[r.Platform]++
		if respondedStatuses[r.Status] {
			responded++
		}
	}
	if s.Total > 0 {
		s.ResponseRate = math.Round(float64(responded)/float64(s.Total)*1000) / 10
	}
	return s
}
