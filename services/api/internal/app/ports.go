package app

import (
	"context"
	"time"

	"github.com/estatehub/marketplace/services/api/internal/domain"
)

// ListingStatusRepository is the store behind the status state machine.
//
// CompareAndSetStatus must only apply the update while the listing is still in
// `expected`; otherwise it returns domain.ErrConflict, or
// domain.ErrListingNotFound when the listing is gone.
type ListingStatusRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetListing(ctx context.Context, id string) (domain.Listing, error)
	CompareAndSetStatus(ctx context.Context, id string, expected domain.ListingStatus, update domain.StatusUpdate) error
	InsertHistory(ctx context.Context, rec domain.StatusHistoryRecord) error
	ListHistory(ctx context.Context, listingID string) ([]domain.StatusHistoryRecord, error)
	ListExpiryDue(ctx context.Context, now time.Time) ([]string, error)
}

// RoleResolver decides whether an actor holds the reviewer privilege.
type RoleResolver interface {
	IsReviewer(ctx context.Context, actorID string) (bool, error)
}

// StatusPublisher delivers status-changed events to other services.
type StatusPublisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error
}

// ActiveListingsCache holds a short-lived snapshot of active listings used by
// proximity search. Snapshots are versioned by a generation that
// InvalidateActive bumps: GetActive reports the current generation even on a
// miss, and SetActive stores under the generation it is given, so a fill
// started before an invalidation is never served after it.
type ActiveListingsCache interface {
	GetActive(ctx context.Context) (listings []domain.Listing, generation int64, ok bool, err error)
	SetActive(ctx context.Context, generation int64, listings []domain.Listing) error
	InvalidateActive(ctx context.Context) error
}

// TransitionMetrics records outcomes of status operations.
type TransitionMetrics interface {
	ObserveTransition(from, to domain.ListingStatus, outcome string)
	ObserveExpiryRun(expired, failed int, took time.Duration)
}

// StatusChangedEvent is published after a transition commits.
type StatusChangedEvent struct {
	ListingID  string               `json:"listing_id"`
	From       domain.ListingStatus `json:"from"`
	To         domain.ListingStatus `json:"to"`
	ActorID    string               `json:"actor_id"`
	Reason     string               `json:"reason,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}
