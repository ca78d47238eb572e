package repair

import (
	"github.com/google/uuid"

	"casaviva/server/internal/models"
)

// Op identifies the buyer-side mutation a repair job re-attempts.
type Op int

const (
	// OpUpsert writes (or rewrites) the buyer-side entry for a property.
	OpUpsert Op = iota
	// OpDelete removes the buyer-side entry for a property.
	OpDelete
)

// String returns the string representation of an Op.
func (o Op) String() string {
	switch o {
	case OpUpsert:
		return "upsert"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Job is one scheduled retry of a reservation-side write that failed during
// the synchronous request path. BuyerIDs is the remaining worklist; buyers
// repaired by an attempt are removed before the job is re-enqueued.
//
// Jobs live in process memory only; pending repairs are lost on restart.
type Job struct {
	ID         string
	PropertyID string
	Op         Op
	BuyerIDs   []string

	// Entry is the buyer-side payload for OpUpsert. Ignored for OpDelete.
	Entry models.BuyerEntry
}

// NewJob creates a repair job with a fresh id for log correlation.
func NewJob(propertyID string, op Op, buyerIDs []string, entry models.BuyerEntry) Job {
	return Job{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		Op:         op,
		BuyerIDs:   buyerIDs,
		Entry:      entry,
	}
}
