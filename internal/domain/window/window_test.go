package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/meli-sync-backend/internal/meli"
)

// bogota matches the fixed offset of America/Bogota (no DST)
var bogota = time.FixedZone("-05", -5*60*60)

func TestCompute_ThreeDayLookback(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 30, 0, 0, bogota)

	w := Compute(now, 3, bogota)

	assert.Equal(t, time.Date(2024, 6, 8, 0, 0, 0, 0, bogota), w.Start)
	assert.Equal(t, 2024, w.End.Year())
	assert.Equal(t, time.Month(6), w.End.Month())
	assert.Equal(t, 10, w.End.Day())
	assert.Equal(t, 23, w.End.Hour())
	assert.Equal(t, 59, w.End.Minute())
	assert.Equal(t, 59, w.End.Second())
}

func TestCompute_SingleDay(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 1, 0, bogota)

	w := Compute(now, 1, bogota)

	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, bogota), w.Start)
	assert.Equal(t, 10, w.End.Day())
}

func TestCompute_ConvertsNowToLocation(t *testing.T) {
	// 2024-06-11 02:00 UTC is still 2024-06-10 in Bogota
	now := time.Date(2024, 6, 11, 2, 0, 0, 0, time.UTC)

	w := Compute(now, 3, bogota)

	assert.Equal(t, time.Date(2024, 6, 8, 0, 0, 0, 0, bogota), w.Start)
	assert.Equal(t, 10, w.End.Day())
}

func TestContains_BoundariesInclusive(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, bogota)
	w := Compute(now, 3, bogota)

	assert.True(t, w.Contains(time.Date(2024, 6, 8, 0, 0, 0, 0, bogota)))
	assert.True(t, w.Contains(time.Date(2024, 6, 10, 23, 59, 59, 0, bogota)))
	assert.False(t, w.Contains(time.Date(2024, 6, 7, 23, 59, 59, 0, bogota)))
	assert.False(t, w.Contains(time.Date(2024, 6, 11, 0, 0, 0, 0, bogota)))
}

func TestContains_ConvertsTimezone(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, bogota)
	w := Compute(now, 3, bogota)

	// 2024-06-08 04:59 UTC is 2024-06-07 23:59 in Bogota: outside
	assert.False(t, w.Contains(time.Date(2024, 6, 8, 4, 59, 59, 0, time.UTC)))
	// 2024-06-08 05:00 UTC is 2024-06-08 00:00 in Bogota: inside
	assert.True(t, w.Contains(time.Date(2024, 6, 8, 5, 0, 0, 0, time.UTC)))
}

func TestFilterSummaries_DropsOutOfWindowAndUnparsable(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, bogota)
	w := Compute(now, 3, bogota)

	summaries := []meli.OrderSummary{
		{ID: 1, DateCreated: "2024-06-09T10:00:00.000-05:00"},
		// Upstream returned it, but it is a second before the window start
		{ID: 2, DateCreated: "2024-06-07T23:59:59.000-05:00"},
		{ID: 3, DateCreated: "not-a-date"},
		{ID: 4, DateCreated: "2024-06-08T00:00:00.000-05:00"},
	}

	filtered := FilterSummaries(summaries, w)

	require.Len(t, filtered, 2)
	assert.Equal(t, int64(1), filtered[0].ID)
	assert.Equal(t, int64(4), filtered[1].ID)
}
