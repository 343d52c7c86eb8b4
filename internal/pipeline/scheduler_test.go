package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var day = time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)

func TestPendingDates_EmptyManifest(t *testing.T) {
	pending := PendingDates(day, nil)

	assert.Len(t, pending, 8)
	assert.Equal(t, day.AddDate(0, 0, -7), pending[0])
	assert.Equal(t, day, pending[7])
}

func TestPendingDates_AscendingOrder(t *testing.T) {
	// Only D-7 and D are missing; the result must be oldest first so the
	// week change for D can see D-7 produced in the same batch.
	var processed []time.Time
	for offset := 1; offset <= 6; offset++ {
		processed = append(processed, day.AddDate(0, 0, -offset))
	}

	pending := PendingDates(day, processed)
	assert.Equal(t, []time.Time{day.AddDate(0, 0, -7), day}, pending)
}

func TestPendingDates_AllProcessed(t *testing.T) {
	var processed []time.Time
	for offset := 0; offset <= 7; offset++ {
		processed = append(processed, day.AddDate(0, 0, -offset))
	}
	assert.Empty(t, PendingDates(day, processed))
}

func TestPendingDates_NormalizesTimeOfDay(t *testing.T) {
	afternoon := time.Date(2024, 4, 26, 15, 42, 7, 0, time.UTC)
	pending := PendingDates(afternoon, nil)
	assert.Equal(t, day, pending[7])
}
