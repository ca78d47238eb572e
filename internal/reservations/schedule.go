package reservations

import (
	"fmt"
	"strings"
	"time"
)

// Layouts used in buyer-side entries.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NextOccurrence resolves an open-house schedule, given as a weekday name
// and a "15:04" time of day, to the next concrete instant strictly after
// now. An event whose slot already passed today lands on next week.
func NextOccurrence(now time.Time, day, clock string) (time.Time, error) {
	weekday, ok := weekdays[strings.ToLower(strings.TrimSpace(day))]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, day)
	}

	t, err := time.Parse(TimeLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad time %q", ErrInvalidSchedule, clock)
	}

	event := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	daysAhead := (int(weekday) - int(now.Weekday()) + 7) % 7
	event = event.AddDate(0, 0, daysAhead)
	if !event.After(now) {
		event = event.AddDate(0, 0, 7)
	}
	return event, nil
}

// EventTTL returns the duration until the next occurrence of the schedule,
// used as the seller record's time to live.
func EventTTL(now time.Time, day, clock string) (time.Duration, error) {
	event, err := NextOccurrence(now, day, clock)
	if err != nil {
		return 0, err
	}
	ttl := event.Sub(now)
	if ttl <= 0 {
		return 0, fmt.Errorf("%w: event is not in the future", ErrInvalidSchedule)
	}
	return ttl, nil
}

// entryExpired reports whether a buyer-side entry's event lies strictly
// before now. Entries with an unparseable date are treated as stale and
// swept.
func entryExpired(now time.Time, date, clock string) bool {
	day, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return true
	}
	event := day
	if t, err := time.Parse(TimeLayout, clock); err == nil {
		event = event.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	} else {
		// No usable time of day: keep the entry alive until the day is over.
		event = event.AddDate(0, 0, 1)
	}
	return event.Before(now)
}
