package domain

// Role is the relationship of an actor to a listing.
type Role int

const (
	RoleNone Role = iota
	RoleOwner
	RoleReviewer
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleReviewer:
		return "reviewer"
	case RoleNone:
		return "none"
	}
	return "unknown"
}

// AllowedTransitions returns the statuses reachable from `from` for the role.
// The returned slice is freshly allocated; RoleNone and unknown statuses
// yield nil.
func AllowedTransitions(role Role, from ListingStatus) []ListingStatus {
	switch role {
	case RoleOwner:
		return ownerTransitions(from)
	case RoleReviewer:
		return reviewerTransitions(from)
	case RoleNone:
		return nil
	}
	return nil
}

// CanTransition reports whether role may move a listing from `from` to `to`.
func CanTransition(role Role, from, to ListingStatus) bool {
	for _, s := range AllowedTransitions(role, from) {
		if s == to {
			return true
		}
	}
	return false
}

func ownerTransitions(from ListingStatus) []ListingStatus {
	switch from {
	case StatusDraft:
		return []ListingStatus{StatusActive, StatusUnderReview}
	case StatusActive:
		return []ListingStatus{StatusPaused, StatusSold, StatusDraft}
	case StatusPaused:
		return []ListingStatus{StatusActive, StatusDraft, StatusSold}
	case StatusExpired:
		return []ListingStatus{StatusActive, StatusDraft}
	case StatusSold:
		return []ListingStatus{StatusActive}
	case StatusUnderReview:
		// Only reviewers move a listing out of review.
		return nil
	case StatusRejected:
		return []ListingStatus{StatusDraft}
	}
	return nil
}

func reviewerTransitions(from ListingStatus) []ListingStatus {
	switch from {
	case StatusDraft:
		return []ListingStatus{StatusActive, StatusUnderReview, StatusRejected}
	case StatusActive:
		return []ListingStatus{StatusPaused, StatusSold, StatusUnderReview, StatusRejected}
	case StatusPaused:
		return []ListingStatus{StatusActive, StatusUnderReview, StatusRejected}
	case StatusExpired:
		return []ListingStatus{StatusActive, StatusRejected}
	case StatusSold:
		return []ListingStatus{StatusActive}
	case StatusUnderReview:
		return []ListingStatus{StatusActive, StatusRejected}
	case StatusRejected:
		return []ListingStatus{StatusUnderReview, StatusActive}
	}
	return nil
}
