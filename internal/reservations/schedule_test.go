package reservations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tuesday, 2026-09-01 10:00 local time.
var baseNow = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.Local)

func TestNextOccurrence_SameDayLater(t *testing.T) {
	event, err := NextOccurrence(baseNow, "Tuesday", "15:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 1, 15, 30, 0, 0, time.Local), event)
}

func TestNextOccurrence_SameDayPassedRollsAWeek(t *testing.T) {
	event, err := NextOccurrence(baseNow, "tuesday", "09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 8, 9, 0, 0, 0, time.Local), event)
}

func TestNextOccurrence_LaterThisWeek(t *testing.T) {
	event, err := NextOccurrence(baseNow, "Saturday", "11:00")
	require.NoError(t, err)
	assert.Equal(t, time.Weekday(time.Saturday), event.Weekday())
	assert.True(t, event.After(baseNow))
	assert.Equal(t, time.Date(2026, time.September, 5, 11, 0, 0, 0, time.Local), event)
}

func TestNextOccurrence_InvalidInputs(t *testing.T) {
	_, err := NextOccurrence(baseNow, "Someday", "11:00")
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = NextOccurrence(baseNow, "Monday", "25:99")
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = NextOccurrence(baseNow, "", "")
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestEventTTL(t *testing.T) {
	ttl, err := EventTTL(baseNow, "Tuesday", "12:00")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ttl)

	// Always strictly positive: a passed slot rolls to next week.
	ttl, err = EventTTL(baseNow, "Tuesday", "10:00")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, ttl)
}

func TestEntryExpired(t *testing.T) {
	assert.False(t, entryExpired(baseNow, "2026-09-01", "15:00"))
	assert.True(t, entryExpired(baseNow, "2026-09-01", "09:00"))
	assert.True(t, entryExpired(baseNow, "2026-08-25", "15:00"))

	// Unparseable time of day keeps the entry until the day is over.
	assert.False(t, entryExpired(baseNow, "2026-09-01", "whenever"))
	assert.True(t, entryExpired(baseNow, "2026-08-31", "whenever"))

	// Unparseable date is swept as stale.
	assert.True(t, entryExpired(baseNow, "not-a-date", "15:00"))
}
