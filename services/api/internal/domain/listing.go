package domain

import "time"

const (
	// SystemActorID is recorded as the actor for transitions the service
	// performs on its own, such as scheduled expiry.
	SystemActorID = "system"
	// AutoExpireReason is the history reason for scheduled expiry.
	AutoExpireReason = "automatic expiration"
)

// Listing is a property offered on the marketplace.
type Listing struct {
	ID              string
	OwnerID         string
	Title           string
	Description     string
	PriceCents      int64
	Latitude        float64
	Longitude       float64
	Status          ListingStatus
	StatusChangedAt time.Time
	ExpiresAt       *time.Time
	SoldAt          *time.Time
	CreatedAt       time.Time
}

// ExpiryDue reports whether an active listing has passed its expiry time.
func (l Listing) ExpiryDue(now time.Time) bool {
	return l.Status == StatusActive && l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// StatusHistoryRecord is one entry of a listing's audit trail. Records are
// written once per successful transition and never modified.
type StatusHistoryRecord struct {
	ID             string
	ListingID      string
	PreviousStatus ListingStatus
	NewStatus      ListingStatus
	Reason         string
	Notes          string
	ActorID        string
	OccurredAt     time.Time
}

// StatusUpdate is the set of fields written by a status compare-and-set.
type StatusUpdate struct {
	Status          ListingStatus
	StatusChangedAt time.Time
	// ExpiresAt and SoldAt are only written when non-nil.
	ExpiresAt *time.Time
	SoldAt    *time.Time
	// ClearExpiry removes the stored expiry. It wins over ExpiresAt.
	ClearExpiry bool
}

// NewStatusUpdate builds the field changes for moving a listing from `from`
// to `to` at `now`. Entering Expired stamps the expiry time; leaving Expired
// clears it so the listing is not picked up by the next expiry run.
func NewStatusUpdate(from, to ListingStatus, now time.Time) StatusUpdate {
	u := StatusUpdate{Status: to, StatusChangedAt: now}
	switch to {
	case StatusExpired:
		u.ExpiresAt = &now
	case StatusSold:
		u.SoldAt = &now
	}
	if from == StatusExpired && to != StatusExpired {
		u.ClearExpiry = true
	}
	return u
}

// Apply copies the update onto the listing.
func (u StatusUpdate) Apply(l *Listing) {
	l.Status = u.Status
	l.StatusChangedAt = u.StatusChangedAt
	switch {
	case u.ClearExpiry:
		l.ExpiresAt = nil
	case u.ExpiresAt != nil:
		t := *u.ExpiresAt
		l.ExpiresAt = &t
	}
	if u.SoldAt != nil {
		t := *u.SoldAt
		l.SoldAt = &t
	}
}
