package dataprocessing

import (
	"math"
)

// SummaryStatistics are headline figures for a report run.
type SummaryStatistics struct {
	TotalTeachers          int     `json:"total_teachers"`
	TotalResponses         int     `json:"total_responses"`
	DateRange              string  `json:"date_range"`
	AvgResponsesPerTeacher float64 `json:"avg_responses_per_teacher"`
}

// Summarize computes headline figures over the survey table. Teachers are
// the identities that received at least one valid response.
func Summarize(state *AggregateState) SummaryStatistics {
	if state == nil || len(state.Survey) == 0 {
		return SummaryStatistics{DateRange: "No data"}
	}

	byTeacher := state.CountsByTeacher()
	total := 0
	for _, byDate := range byTeacher {
		for _, n := range byDate {
			total += n
		}
	}

	stats := SummaryStatistics{
		TotalTeachers:  len(byTeacher),
		TotalResponses: total,
		DateRange:      "No dates",
	}

	if dates := state.Dates(); len(dates) > 0 {
		stats.DateRange = FormatDate(dates[0]) + " to " + FormatDate(dates[len(dates)-1])
	}
	if stats.TotalTeachers > 0 {
		avg := float64(total) / float64(stats.TotalTeachers)
		stats.AvgResponsesPerTeacher = math.Round(avg*100) / 100
	}
	return stats
}
