package domain

import "fmt"

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	StatusDraft       ListingStatus = "draft"
	StatusActive      ListingStatus = "active"
	StatusPaused      ListingStatus = "paused"
	StatusExpired     ListingStatus = "expired"
	StatusSold        ListingStatus = "sold"
	StatusUnderReview ListingStatus = "under_review"
	StatusRejected    ListingStatus = "rejected"
)

// AllStatuses lists every status in display order.
var AllStatuses = []ListingStatus{
	StatusDraft,
	StatusActive,
	StatusPaused,
	StatusExpired,
	StatusSold,
	StatusUnderReview,
	StatusRejected,
}

func (s ListingStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusExpired, StatusSold, StatusUnderReview, StatusRejected:
		return true
	}
	return false
}

// Label is the human readable name shown to users.
func (s ListingStatus) Label() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusActive:
		return "Active"
	case StatusPaused:
		return "Paused"
	case StatusExpired:
		return "Expired"
	case StatusSold:
		return "Sold"
	case StatusUnderReview:
		return "Under review"
	case StatusRejected:
		return "Rejected"
	}
	return string(s)
}

// ParseStatus converts a raw value into a ListingStatus.
func ParseStatus(raw string) (ListingStatus, error) {
	s := ListingStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}
