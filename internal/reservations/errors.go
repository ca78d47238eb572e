package reservations

import "errors"

var (
	// ErrNotFound means the reservation (or one of its two sides) is absent.
	ErrNotFound = errors.New("reservation not found")

	// ErrDuplicate means the buyer already holds a reservation for the property.
	ErrDuplicate = errors.New("duplicate reservation")

	// ErrIncompleteProfile means the buyer profile is missing contact fields.
	ErrIncompleteProfile = errors.New("buyer profile incomplete")

	// ErrInvalidSchedule means the open-house day/time could not be parsed.
	ErrInvalidSchedule = errors.New("invalid open house schedule")

	// ErrCapacityExceeded means the property reached its attendee limit.
	ErrCapacityExceeded = errors.New("reservation capacity exceeded")

	// ErrPartialWrite means one side of the pair committed while the other
	// failed. The pairing is left inconsistent and queued for repair; callers
	// must not assume the operation fully failed.
	ErrPartialWrite = errors.New("reservation partially written")
)
