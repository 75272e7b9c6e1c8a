package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/estatehub/marketplace/services/api/internal/clock"
	"github.com/estatehub/marketplace/services/api/internal/domain"
	"github.com/estatehub/marketplace/services/api/internal/geo"
)

type ListingRepository interface {
	CreateListing(ctx context.Context, listing domain.Listing) error
	GetListing(ctx context.Context, id string) (domain.Listing, error)
	ListByStatus(ctx context.Context, status domain.ListingStatus) ([]domain.Listing, error)
}

// ListingService creates listings and serves read-side queries.
type ListingService struct {
	repo   ListingRepository
	cache  ActiveListingsCache
	clock  clock.Clock
	logger *zap.Logger
}

func NewListingService(repo ListingRepository, cache ActiveListingsCache, clk clock.Clock, logger *zap.Logger) *ListingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingService{
		repo:   repo,
		cache:  cache,
		clock:  clk,
		logger: logger,
	}
}

type CreateListingInput struct {
	OwnerID     string
	Title       string
	Description string
	PriceCents  int64
	Latitude    float64
	Longitude   float64
	ExpiresAt   *time.Time
}

// CreateListing stores a new listing in draft, owned by the caller.
func (s *ListingService) CreateListing(ctx context.Context, in CreateListingInput) (domain.Listing, error) {
	if in.OwnerID == "" {
		return domain.Listing{}, domain.ErrUnauthorized
	}
	if in.Title == "" {
		return domain.Listing{}, domain.ErrTitleRequired
	}
	if in.PriceCents < 0 {
		return domain.Listing{}, domain.ErrInvalidPrice
	}
	if !(geo.Point{Lat: in.Latitude, Lng: in.Longitude}).Valid() {
		return domain.Listing{}, domain.ErrInvalidLocation
	}

	now := s.clock.Now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return domain.Listing{}, domain.ErrInvalidExpiry
	}

	listing := domain.Listing{
		ID:              newID(),
		OwnerID:         in.OwnerID,
		Title:           in.Title,
		Description:     in.Description,
		PriceCents:      in.PriceCents,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		Status:          domain.StatusDraft,
		StatusChangedAt: now,
		ExpiresAt:       in.ExpiresAt,
		CreatedAt:       now,
	}
	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return domain.Listing{}, storeErr("create listing", err)
	}
	return listing, nil
}

func (s *ListingService) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	if id == "" {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	listing, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return domain.Listing{}, storeErr("get listing", err)
	}
	return listing, nil
}

type NearbyInput struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

type NearbyListing struct {
	Listing    domain.Listing
	DistanceKm float64
}

// Nearby returns active listings within the radius, nearest first.
func (s *ListingService) Nearby(ctx context.Context, in NearbyInput) ([]NearbyListing, error) {
	origin := geo.Point{Lat: in.Latitude, Lng: in.Longitude}
	if !origin.Valid() || in.RadiusKm <= 0 {
		return nil, domain.ErrInvalidLocation
	}

	active, err := s.activeListings(ctx)
	if err != nil {
		return nil, err
	}

	located := geo.WithinRadius(origin, in.RadiusKm, active, func(l domain.Listing) geo.Point {
		return geo.Point{Lat: l.Latitude, Lng: l.Longitude}
	})
	out := make([]NearbyListing, 0, len(located))
	for _, loc := range located {
		out = append(out, NearbyListing{Listing: loc.Item, DistanceKm: loc.DistanceKm})
	}
	return out, nil
}

func (s *ListingService) activeListings(ctx context.Context) ([]domain.Listing, error) {
	var (
		generation int64
		fill       bool
	)
	if s.cache != nil {
		cached, gen, ok, err := s.cache.GetActive(ctx)
		switch {
		case err != nil:
			s.logger.Warn("read active listings cache", zap.Error(err))
		case ok:
			return cached, nil
		default:
			// The generation must be read before the query so an invalidation
			// racing with it leaves this fill unreachable.
			generation, fill = gen, true
		}
	}

	active, err := s.repo.ListByStatus(ctx, domain.StatusActive)
	if err != nil {
		return nil, storeErr("list active listings", err)
	}
	if fill {
		if err := s.cache.SetActive(ctx, generation, active); err != nil {
			s.logger.Warn("write active listings cache", zap.Error(err))
		}
	}
	return active, nil
}
