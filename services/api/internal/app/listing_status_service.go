package app

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/estatehub/marketplace/services/api/internal/clock"
	"github.com/estatehub/marketplace/services/api/internal/domain"
)

const tracerName = "github.com/estatehub/marketplace/services/api/internal/app"

// Outcome labels reported to TransitionMetrics.
const (
	OutcomeOK                = "ok"
	OutcomeNotFound          = "not_found"
	OutcomeUnauthorized      = "unauthorized"
	OutcomeInvalidTransition = "invalid_transition"
	OutcomeConflict          = "conflict"
	OutcomePersistence       = "persistence_failure"
)

// ListingStatusService enforces the listing lifecycle and keeps its audit trail.
type ListingStatusService struct {
	repo      ListingStatusRepository
	roles     RoleResolver
	clock     clock.Clock
	logger    *zap.Logger
	publisher StatusPublisher
	cache     ActiveListingsCache
	metrics   TransitionMetrics
	tracer    trace.Tracer
}

type ListingStatusOption func(*ListingStatusService)

func WithLogger(l *zap.Logger) ListingStatusOption {
	return func(s *ListingStatusService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPublisher sends a StatusChangedEvent after every committed transition.
func WithPublisher(p StatusPublisher) ListingStatusOption {
	return func(s *ListingStatusService) { s.publisher = p }
}

// WithActiveCache drops the active-listings snapshot whenever a transition
// enters or leaves the active status.
func WithActiveCache(c ActiveListingsCache) ListingStatusOption {
	return func(s *ListingStatusService) { s.cache = c }
}

func WithMetrics(m TransitionMetrics) ListingStatusOption {
	return func(s *ListingStatusService) { s.metrics = m }
}

func WithTracer(t trace.Tracer) ListingStatusOption {
	return func(s *ListingStatusService) {
		if t != nil {
			s.tracer = t
		}
	}
}

func NewListingStatusService(repo ListingStatusRepository, roles RoleResolver, clk clock.Clock, opts ...ListingStatusOption) *ListingStatusService {
	svc := &ListingStatusService{
		repo:   repo,
		roles:  roles,
		clock:  clk,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type RequestTransitionInput struct {
	ListingID string
	NewStatus domain.ListingStatus
	ActorID   string
	Reason    string
	Notes     string
}

type TransitionResult struct {
	Listing domain.Listing
	Record  domain.StatusHistoryRecord
}

// RequestTransition moves a listing to a new status on behalf of an actor.
// The history insert and the status compare-and-set commit together or not
// at all.
func (s *ListingStatusService) RequestTransition(ctx context.Context, in RequestTransitionInput) (TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "ListingStatusService.RequestTransition", trace.WithAttributes(
		attribute.String("listing.id", in.ListingID),
		attribute.String("listing.status.requested", string(in.NewStatus)),
	))
	defer span.End()

	result, err := s.requestTransition(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (s *ListingStatusService) requestTransition(ctx context.Context, in RequestTransitionInput) (TransitionResult, error) {
	listing, err := s.getListing(ctx, in.ListingID)
	if err != nil {
		s.observe("", in.NewStatus, err)
		return TransitionResult{}, err
	}

	role, err := s.resolveRole(ctx, listing, in.ActorID)
	if err != nil {
		s.observe(listing.Status, in.NewStatus, err)
		return TransitionResult{}, err
	}
	if role == domain.RoleNone {
		s.observe(listing.Status, in.NewStatus, domain.ErrUnauthorized)
		return TransitionResult{}, domain.ErrUnauthorized
	}
	if !domain.CanTransition(role, listing.Status, in.NewStatus) {
		err := &domain.InvalidTransitionError{From: listing.Status, To: in.NewStatus}
		s.observe(listing.Status, in.NewStatus, err)
		return TransitionResult{}, err
	}

	now := s.clock.Now()
	rec := domain.StatusHistoryRecord{
		ID:             newID(),
		ListingID:      listing.ID,
		PreviousStatus: listing.Status,
		NewStatus:      in.NewStatus,
		Reason:         in.Reason,
		Notes:          in.Notes,
		ActorID:        in.ActorID,
		OccurredAt:     now,
	}
	update := domain.NewStatusUpdate(listing.Status, in.NewStatus, now)

	if err := s.commit(ctx, listing.ID, listing.Status, update, rec); err != nil {
		s.observe(listing.Status, in.NewStatus, err)
		return TransitionResult{}, err
	}
	update.Apply(&listing)

	s.observe(rec.PreviousStatus, rec.NewStatus, nil)
	s.logger.Info("listing status changed",
		zap.String("listing_id", listing.ID),
		zap.String("from", string(rec.PreviousStatus)),
		zap.String("to", string(rec.NewStatus)),
		zap.String("actor_id", rec.ActorID),
		zap.String("role", role.String()),
	)
	s.afterCommit(ctx, rec)

	return TransitionResult{Listing: listing, Record: rec}, nil
}

// ValidTransitions lists the statuses the actor may move the listing to.
// An actor without a role on the listing gets an empty result.
func (s *ListingStatusService) ValidTransitions(ctx context.Context, listingID, actorID string) ([]domain.ListingStatus, error) {
	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	role, err := s.resolveRole(ctx, listing, actorID)
	if err != nil {
		return nil, err
	}
	allowed := domain.AllowedTransitions(role, listing.Status)
	if allowed == nil {
		allowed = []domain.ListingStatus{}
	}
	return allowed, nil
}

// History returns the listing's audit trail, most recent first.
func (s *ListingStatusService) History(ctx context.Context, listingID string) ([]domain.StatusHistoryRecord, error) {
	if _, err := s.getListing(ctx, listingID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListHistory(ctx, listingID)
	if err != nil {
		return nil, storeErr("list history", err)
	}
	return records, nil
}

func (s *ListingStatusService) CurrentStatus(ctx context.Context, listingID string) (domain.ListingStatus, error) {
	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return "", err
	}
	return listing.Status, nil
}

// ExpireFailure is one listing the expiry batch could not transition.
type ExpireFailure struct {
	ListingID string
	Err       error
}

type AutoExpireResult struct {
	Expired  int
	Failures []ExpireFailure
}

// AutoExpireDue moves every active listing whose expiry has passed to expired.
// Each listing is committed on its own; a failure is recorded and the batch
// moves on. The error is only set when the due listings cannot be queried.
func (s *ListingStatusService) AutoExpireDue(ctx context.Context, now time.Time) (AutoExpireResult, error) {
	ctx, span := s.tracer.Start(ctx, "ListingStatusService.AutoExpireDue")
	defer span.End()
	started := s.clock.Now()

	ids, err := s.repo.ListExpiryDue(ctx, now)
	if err != nil {
		err = storeErr("list expiry due", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AutoExpireResult{}, err
	}

	var res AutoExpireResult
	for _, id := range ids {
		rec := domain.StatusHistoryRecord{
			ID:             newID(),
			ListingID:      id,
			PreviousStatus: domain.StatusActive,
			NewStatus:      domain.StatusExpired,
			Reason:         domain.AutoExpireReason,
			ActorID:        domain.SystemActorID,
			OccurredAt:     now,
		}
		update := domain.NewStatusUpdate(domain.StatusActive, domain.StatusExpired, now)

		if err := s.commit(ctx, id, domain.StatusActive, update, rec); err != nil {
			s.observe(domain.StatusActive, domain.StatusExpired, err)
			s.logger.Warn("auto-expire listing failed",
				zap.String("listing_id", id),
				zap.Error(err),
			)
			res.Failures = append(res.Failures, ExpireFailure{ListingID: id, Err: err})
			continue
		}
		s.observe(domain.StatusActive, domain.StatusExpired, nil)
		s.afterCommit(ctx, rec)
		res.Expired++
	}

	span.SetAttributes(
		attribute.Int("listings.expired", res.Expired),
		attribute.Int("listings.failed", len(res.Failures)),
	)
	if s.metrics != nil {
		s.metrics.ObserveExpiryRun(res.Expired, len(res.Failures), s.clock.Now().Sub(started))
	}
	if len(ids) > 0 {
		s.logger.Info("auto-expire run finished",
			zap.Int("due", len(ids)),
			zap.Int("expired", res.Expired),
			zap.Int("failed", len(res.Failures)),
		)
	}
	return res, nil
}

// commit writes the history record and the guarded status update in one
// transaction. The history insert goes first so a failed update rolls it back.
func (s *ListingStatusService) commit(ctx context.Context, listingID string, expected domain.ListingStatus, update domain.StatusUpdate, rec domain.StatusHistoryRecord) error {
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.InsertHistory(txCtx, rec); err != nil {
			return err
		}
		return s.repo.CompareAndSetStatus(txCtx, listingID, expected, update)
	})
	return storeErr("commit transition", err)
}

// afterCommit runs the best-effort side effects of a committed transition.
func (s *ListingStatusService) afterCommit(ctx context.Context, rec domain.StatusHistoryRecord) {
	if s.cache != nil && (rec.PreviousStatus == domain.StatusActive || rec.NewStatus == domain.StatusActive) {
		if err := s.cache.InvalidateActive(ctx); err != nil {
			s.logger.Warn("invalidate active listings cache", zap.String("listing_id", rec.ListingID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		event := StatusChangedEvent{
			ListingID:  rec.ListingID,
			From:       rec.PreviousStatus,
			To:         rec.NewStatus,
			ActorID:    rec.ActorID,
			Reason:     rec.Reason,
			OccurredAt: rec.OccurredAt,
		}
		if err := s.publisher.PublishStatusChanged(ctx, event); err != nil {
			s.logger.Warn("publish status changed", zap.String("listing_id", rec.ListingID), zap.Error(err))
		}
	}
}

func (s *ListingStatusService) getListing(ctx context.Context, id string) (domain.Listing, error) {
	if id == "" {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	listing, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return domain.Listing{}, storeErr("get listing", err)
	}
	return listing, nil
}

func (s *ListingStatusService) resolveRole(ctx context.Context, listing domain.Listing, actorID string) (domain.Role, error) {
	if actorID == "" {
		return domain.RoleNone, nil
	}
	if actorID == listing.OwnerID {
		return domain.RoleOwner, nil
	}
	if s.roles == nil {
		return domain.RoleNone, nil
	}
	ok, err := s.roles.IsReviewer(ctx, actorID)
	if err != nil {
		return domain.RoleNone, storeErr("resolve reviewer", err)
	}
	if ok {
		return domain.RoleReviewer, nil
	}
	return domain.RoleNone, nil
}

func (s *ListingStatusService) observe(from, to domain.ListingStatus, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveTransition(from, to, outcomeOf(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrListingNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, domain.ErrInvalidTransition):
		return OutcomeInvalidTransition
	case errors.Is(err, domain.ErrConflict):
		return OutcomeConflict
	}
	return OutcomePersistence
}

// storeErr passes domain errors through and wraps everything else as a
// persistence failure.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrListingNotFound) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrPersistence) {
		return err
	}
	return &domain.PersistenceError{Op: op, Err: err}
}
