package reservations

import "context"

// PairState describes a (buyer, property) reservation pairing as observed
// across the two stores. PendingBoth and Cancelling exist only while a
// request is in flight; at rest a pairing is Absent, Paired or orphaned on
// one side awaiting repair or TTL expiry.
type PairState int

const (
	StateAbsent PairState = iota
	StatePendingBoth
	StatePaired
	StateCancelling
	StateOrphanBuyer
	StateOrphanSeller
)

// String returns the string representation of a PairState.
func (s PairState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePendingBoth:
		return "pending_both"
	case StatePaired:
		return "paired"
	case StateCancelling:
		return "cancelling"
	case StateOrphanBuyer:
		return "orphan_buyer"
	case StateOrphanSeller:
		return "orphan_seller"
	default:
		return "unknown"
	}
}

// PairState inspects both stores and reports the observed state of a
// pairing. Diagnostic; the result is a snapshot and may be stale by the
// time it returns.
func (p *Protocol) PairState(ctx context.Context, buyerID, propertyID string) (PairState, error) {
	entries, err := p.buyers.Get(ctx, buyerID)
	if err != nil {
		return StateAbsent, err
	}
	buyerSide := false
	for _, e := range entries {
		if e.PropertyID == propertyID {
			buyerSide = true
			break
		}
	}

	record, err := p.sellers.Get(ctx, propertyID)
	if err != nil {
		return StateAbsent, err
	}
	sellerSide := record != nil && record.Entry(buyerID) != nil

	switch {
	case buyerSide && sellerSide:
		return StatePaired, nil
	case buyerSide:
		return StateOrphanBuyer, nil
	case sellerSide:
		return StateOrphanSeller, nil
	default:
		return StateAbsent, nil
	}
}
