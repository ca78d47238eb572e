package models

// BuyerEntry is one reservation as stored on the buyer side. Date is the
// concrete calendar date of the next open house ("2006-01-02"), Time the
// time of day ("15:04"). Buyer records carry no TTL; entries are pruned by
// date comparison on read.
type BuyerEntry struct {
	PropertyID string `json:"property_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Thumbnail  string `json:"thumbnail"`
	Address    string `json:"address"`
}

// SellerEntry is one attendee as stored on the seller side.
type SellerEntry struct {
	BuyerID  string `json:"buyer_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// SellerRecord is the per-property reservation record. The Redis key holding
// it carries a TTL that expires at the open-house event, so the record
// self-destructs once the viewing has happened.
type SellerRecord struct {
	Reservations      []SellerEntry `json:"reservations"`
	MaxReservations   int           `json:"max_reservations"`
	TotalReservations int           `json:"total_reservations"`
}

// Entry returns the seller-side entry for the given buyer, if present.
func (r *SellerRecord) Entry(buyerID string) *SellerEntry {
	for i := range r.Reservations {
		if r.Reservations[i].BuyerID == buyerID {
			return &r.Reservations[i]
		}
	}
	return nil
}

// ContactInfo is what the buyer profile service returns for a buyer.
type ContactInfo struct {
	Name    string `json:"name" bson:"name"`
	Surname string `json:"surname" bson:"surname"`
	Email   string `json:"email" bson:"email"`
	Phone   string `json:"phone" bson:"phone"`
}

// Complete reports whether every field required for a booking is present.
func (c ContactInfo) Complete() bool {
	return c.Name != "" && c.Surname != "" && c.Email != "" && c.Phone != ""
}
