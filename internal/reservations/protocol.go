package reservations

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"casaviva/server/internal/models"
	"casaviva/server/internal/repair"
)

// BuyerRecords is the buyer-side half of the reservation store.
type BuyerRecords interface {
	Get(ctx context.Context, buyerID string) ([]models.BuyerEntry, error)
	Put(ctx context.Context, buyerID string, entries []models.BuyerEntry) error
	Delete(ctx context.Context, buyerID string) error
}

// SellerRecords is the seller-side half of the reservation store.
type SellerRecords interface {
	Get(ctx context.Context, propertyID string) (*models.SellerRecord, error)
	Put(ctx context.Context, propertyID string, record *models.SellerRecord, ttl time.Duration) error
	Delete(ctx context.Context, propertyID string) error
}

// ProfileService resolves a buyer id to contact info.
type ProfileService interface {
	ContactInfo(ctx context.Context, buyerID string) (*models.ContactInfo, error)
}

// RepairQueue schedules asynchronous retries of failed buyer-side writes.
type RepairQueue interface {
	Enqueue(job repair.Job)
}

// BookingRequest carries everything book_now needs. MaxReservations comes
// from the property's floor area (area/10, fire-code derived) and only
// applies when the seller record does not exist yet.
type BookingRequest struct {
	BuyerID         string
	PropertyID      string
	Day             string
	Time            string
	Thumbnail       string
	Address         string
	MaxReservations int
}

// Protocol coordinates the buyer-side and seller-side reservation records.
// The two stores share no transaction; writes are ordered seller-first and a
// failed second leg is queued for asynchronous repair instead of being
// rolled back.
type Protocol struct {
	buyers   BuyerRecords
	sellers  SellerRecords
	profiles ProfileService
	repairs  RepairQueue
	repairer *BuyerRepairer
	logger   *logrus.Logger
	now      func() time.Time
}

// NewProtocol creates the reservation pair protocol.
func NewProtocol(buyers BuyerRecords, sellers SellerRecords, profiles ProfileService, repairs RepairQueue, logger *logrus.Logger) *Protocol {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Protocol{
		buyers:   buyers,
		sellers:  sellers,
		profiles: profiles,
		repairs:  repairs,
		repairer: NewBuyerRepairer(buyers, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// BookNow books an open-house slot for a buyer:
//
//  1. the buyer profile must be complete
//  2. the buyer must not already hold a reservation for the property,
//     on either side
//  3. the property must have a free slot
//  4. the seller record is written first, with a TTL expiring at the event
//  5. the mirrored buyer entry is written second
//
// A buyer-side failure after the seller side committed leaves the pair
// half-written: it is handed to the repair scheduler and reported as
// ErrPartialWrite, which callers must not read as "nothing happened".
func (p *Protocol) BookNow(ctx context.Context, req BookingRequest) error {
	contact, err := p.profiles.ContactInfo(ctx, req.BuyerID)
	if err != nil {
		return err
	}
	if !contact.Complete() {
		return ErrIncompleteProfile
	}

	entries, err := p.buyers.Get(ctx, req.BuyerID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.PropertyID == req.PropertyID {
			return ErrDuplicate
		}
	}

	// Resolve the schedule before any write so a bad day/time rejects
	// cleanly.
	event, err := NextOccurrence(p.now(), req.Day, req.Time)
	if err != nil {
		return err
	}
	ttl := event.Sub(p.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: event is not in the future", ErrInvalidSchedule)
	}

	record, err := p.sellers.Get(ctx, req.PropertyID)
	if err != nil {
		return err
	}
	if record == nil {
		record = &models.SellerRecord{MaxReservations: req.MaxReservations}
	}
	if record.Entry(req.BuyerID) != nil {
		return ErrDuplicate
	}
	if len(record.Reservations) >= record.MaxReservations {
		return ErrCapacityExceeded
	}

	record.Reservations = append(record.Reservations, models.SellerEntry{
		BuyerID:  req.BuyerID,
		FullName: contact.Name + " " + contact.Surname,
		Email:    contact.Email,
		Phone:    contact.Phone,
	})
	record.TotalReservations = len(record.Reservations)

	if err := p.sellers.Put(ctx, req.PropertyID, record, ttl); err != nil {
		return err
	}

	entry := models.BuyerEntry{
		PropertyID: req.PropertyID,
		Date:       event.Format(DateLayout),
		Time:       req.Time,
		Thumbnail:  req.Thumbnail,
		Address:    req.Address,
	}
	entries = append(entries, entry)
	if err := p.buyers.Put(ctx, req.BuyerID, entries); err != nil {
		// Seller side already committed: orphan-seller state, repair will
		// append the buyer entry later.
		job := repair.NewJob(req.PropertyID, repair.OpUpsert, []string{req.BuyerID}, entry)
		p.repairs.Enqueue(job)
		p.logger.WithError(err).WithFields(logrus.Fields{
			"buyer_id":    req.BuyerID,
			"property_id": req.PropertyID,
			"job_id":      job.ID,
		}).Error("Buyer-side booking write failed, queued for repair")
		return fmt.Errorf("%w: %v", ErrPartialWrite, err)
	}

	p.logger.WithFields(logrus.Fields{
		"buyer_id":    req.BuyerID,
		"property_id": req.PropertyID,
		"event":       entry.Date + " " + entry.Time,
	}).Info("Reservation booked")
	return nil
}

// Cancel removes a reservation. Both sides must currently show the pairing;
// absence on either side is ErrNotFound, not a silent no-op. The buyer side
// is deleted first; a failed seller-side delete surfaces as ErrPartialWrite
// with no synchronous retry (the seller record self-expires at event time).
func (p *Protocol) Cancel(ctx context.Context, buyerID, propertyID string) error {
	entries, err := p.buyers.Get(ctx, buyerID)
	if err != nil {
		return err
	}
	found := false
	for _, e := range entries {
		if e.PropertyID == propertyID {
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}

	record, err := p.sellers.Get(ctx, propertyID)
	if err != nil {
		return err
	}
	if record == nil || record.Entry(buyerID) == nil {
		return ErrNotFound
	}

	if err := p.repairer.RemoveEntry(ctx, buyerID, propertyID); err != nil {
		return err
	}

	kept := record.Reservations[:0]
	for _, r := range record.Reservations {
		if r.BuyerID != buyerID {
			kept = append(kept, r)
		}
	}
	record.Reservations = kept
	record.TotalReservations = len(kept)
	if err := p.sellers.Put(ctx, propertyID, record, KeepTTL); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"buyer_id":    buyerID,
			"property_id": propertyID,
		}).Error("Seller-side cancellation write failed, pairing left orphaned")
		return fmt.Errorf("%w: %v", ErrPartialWrite, err)
	}

	p.logger.WithFields(logrus.Fields{
		"buyer_id":    buyerID,
		"property_id": propertyID,
	}).Info("Reservation cancelled")
	return nil
}

// BuyerReservations returns a buyer's reservations, sweeping out entries
// whose event already happened. Expiry is lazy: triggered by the read, and
// idempotent across repeated calls.
func (p *Protocol) BuyerReservations(ctx context.Context, buyerID string) ([]models.BuyerEntry, error) {
	entries, err := p.buyers.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		return []models.BuyerEntry{}, nil
	}

	now := p.now()
	kept := make([]models.BuyerEntry, 0, len(entries))
	for _, e := range entries {
		if !entryExpired(now, e.Date, e.Time) {
			kept = append(kept, e)
		}
	}

	if len(kept) != len(entries) {
		if len(kept) == 0 {
			err = p.buyers.Delete(ctx, buyerID)
		} else {
			err = p.buyers.Put(ctx, buyerID, kept)
		}
		if err != nil {
			return nil, err
		}
		p.logger.WithFields(logrus.Fields{
			"buyer_id": buyerID,
			"swept":    len(entries) - len(kept),
		}).Info("Swept expired reservations")
	}

	return kept, nil
}

// SellerReservations returns the seller-side record of a property.
func (p *Protocol) SellerReservations(ctx context.Context, propertyID string) (*models.SellerRecord, error) {
	record, err := p.sellers.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

// OnPropertyRescheduled propagates a changed open-house schedule or address
// to every paired buyer entry and re-arms the seller record's TTL. Buyers
// whose update failed are queued for repair; the call then reports
// ErrPartialWrite.
func (p *Protocol) OnPropertyRescheduled(ctx context.Context, propertyID, newDay, newTime, newAddress string) error {
	record, err := p.sellers.Get(ctx, propertyID)
	if err != nil {
		return err
	}
	if record == nil {
		// No reservations to propagate to.
		return nil
	}

	event, err := NextOccurrence(p.now(), newDay, newTime)
	if err != nil {
		return err
	}
	if err := p.sellers.Put(ctx, propertyID, record, event.Sub(p.now())); err != nil {
		return err
	}

	patch := models.BuyerEntry{
		PropertyID: propertyID,
		Date:       event.Format(DateLayout),
		Time:       newTime,
		Address:    newAddress,
	}

	var failed []string
	for _, r := range record.Reservations {
		if err := p.repairer.UpsertEntry(ctx, r.BuyerID, patch); err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"buyer_id":    r.BuyerID,
				"property_id": propertyID,
			}).Warn("Failed to propagate reschedule to buyer record")
			failed = append(failed, r.BuyerID)
		}
	}
	if len(failed) > 0 {
		job := repair.NewJob(propertyID, repair.OpUpsert, failed, patch)
		p.repairs.Enqueue(job)
		return fmt.Errorf("%w: %d buyer records not updated", ErrPartialWrite, len(failed))
	}
	return nil
}

// OnPropertyRemoved drops every reservation of a sold or withdrawn property
// on both sides. Buyer-side deletions that fail are queued for repair.
func (p *Protocol) OnPropertyRemoved(ctx context.Context, propertyID string) error {
	record, err := p.sellers.Get(ctx, propertyID)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	var failed []string
	for _, r := range record.Reservations {
		if err := p.repairer.RemoveEntry(ctx, r.BuyerID, propertyID); err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"buyer_id":    r.BuyerID,
				"property_id": propertyID,
			}).Warn("Failed to remove buyer entry for removed property")
			failed = append(failed, r.BuyerID)
		}
	}

	if err := p.sellers.Delete(ctx, propertyID); err != nil {
		return err
	}

	if len(failed) > 0 {
		job := repair.NewJob(propertyID, repair.OpDelete, failed, models.BuyerEntry{})
		p.repairs.Enqueue(job)
		return fmt.Errorf("%w: %d buyer records not cleaned", ErrPartialWrite, len(failed))
	}

	p.logger.WithField("property_id", propertyID).Info("Reservations removed for property")
	return nil
}
