package pipeline

import (
	"time"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// PendingDates returns the observation dates still needing processing:
// today and the previous seven days, minus any date already present in
// processed. The result is ascending, oldest first. Order matters: the
// week change for a date can depend on an earlier date produced in the
// same batch, so a backlog must be drained oldest-first.
func PendingDates(today time.Time, processed []time.Time) []time.Time {
	done := make(map[string]bool, len(processed))
	for _, d := range processed {
		done[d.Format(domain.DateLayout)] = true
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	var pending []time.Time
	for offset := 7; offset >= 0; offset-- {
		d := day.AddDate(0, 0, -offset)
		if !done[d.Format(domain.DateLayout)] {
			pending = append(pending, d)
		}
	}
	return pending
}
