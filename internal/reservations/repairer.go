package reservations

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"casaviva/server/internal/models"
	"casaviva/server/internal/repair"
)

// BuyerRepairer applies buyer-side mutations, both on the synchronous
// request path and when the repair scheduler re-attempts a failed
// propagation. It implements repair.Applier.
type BuyerRepairer struct {
	buyers BuyerRecords
	logger *logrus.Logger
}

func NewBuyerRepairer(buyers BuyerRecords, logger *logrus.Logger) *BuyerRepairer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &BuyerRepairer{buyers: buyers, logger: logger}
}

// UpsertEntry writes the entry into the buyer's record: an existing entry
// for the same property is updated in place, otherwise the entry is
// appended. An empty Thumbnail in the patch preserves the stored one, so
// reschedule cascades do not wipe it.
func (r *BuyerRepairer) UpsertEntry(ctx context.Context, buyerID string, entry models.BuyerEntry) error {
	entries, err := r.buyers.Get(ctx, buyerID)
	if err != nil {
		return err
	}

	updated := false
	for i := range entries {
		if entries[i].PropertyID != entry.PropertyID {
			continue
		}
		entries[i].Date = entry.Date
		entries[i].Time = entry.Time
		entries[i].Address = entry.Address
		if entry.Thumbnail != "" {
			entries[i].Thumbnail = entry.Thumbnail
		}
		updated = true
		break
	}
	if !updated {
		entries = append(entries, entry)
	}

	return r.buyers.Put(ctx, buyerID, entries)
}

// RemoveEntry drops the buyer's entry for a property, deleting the record
// once it holds no entries. A missing entry counts as success: the pair has
// already converged.
func (r *BuyerRepairer) RemoveEntry(ctx context.Context, buyerID, propertyID string) error {
	entries, err := r.buyers.Get(ctx, buyerID)
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.PropertyID != propertyID {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	if len(kept) == 0 {
		return r.buyers.Delete(ctx, buyerID)
	}
	return r.buyers.Put(ctx, buyerID, kept)
}

// Apply re-attempts the job's mutation for every buyer on its worklist and
// returns the buyers that still failed.
func (r *BuyerRepairer) Apply(ctx context.Context, job repair.Job) []string {
	var remaining []string
	for _, buyerID := range job.BuyerIDs {
		var err error
		switch job.Op {
		case repair.OpUpsert:
			err = r.UpsertEntry(ctx, buyerID, job.Entry)
		case repair.OpDelete:
			err = r.RemoveEntry(ctx, buyerID, job.PropertyID)
		}
		if err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"job_id":      job.ID,
				"buyer_id":    buyerID,
				"property_id": job.PropertyID,
				"op":          job.Op.String(),
			}).Warn("Buyer-side repair attempt failed")
			remaining = append(remaining, buyerID)
		}
	}
	return remaining
}
