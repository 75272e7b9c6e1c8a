package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/estatehub/marketplace/services/api/internal/app"
	"github.com/estatehub/marketplace/services/api/internal/domain"
)

type ListingCreator interface {
	CreateListing(ctx context.Context, in app.CreateListingInput) (domain.Listing, error)
}

type ListingGetter interface {
	GetListing(ctx context.Context, id string) (domain.Listing, error)
}

type NearbyFinder interface {
	Nearby(ctx context.Context, in app.NearbyInput) ([]app.NearbyListing, error)
}

// HandleCreateListing creates a draft listing owned by the authenticated actor.
func HandleCreateListing(svc ListingCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		var req createListingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		listing, err := svc.CreateListing(r.Context(), app.CreateListingInput{
			OwnerID:     actor,
			Title:       req.Title,
			Description: req.Description,
			PriceCents:  req.PriceCents,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			ExpiresAt:   req.ExpiresAt,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toListingResponse(listing))
	}
}

func HandleGetListing(svc ListingGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listing, err := svc.GetListing(r.Context(), chi.URLParam(r, "listingID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toListingResponse(listing))
	}
}

// HandleNearby lists active listings around lat/lng within radius_km.
func HandleNearby(svc NearbyFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
		radius, errRadius := strconv.ParseFloat(q.Get("radius_km"), 64)
		if errLat != nil || errLng != nil || errRadius != nil {
			writeError(w, http.StatusBadRequest, codeInvalidQuery, "lat, lng and radius_km must be numbers")
			return
		}

		found, err := svc.Nearby(r.Context(), app.NearbyInput{Latitude: lat, Longitude: lng, RadiusKm: radius})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := make([]nearbyListingResponse, 0, len(found))
		for _, n := range found {
			resp = append(resp, nearbyListingResponse{
				listingResponse: toListingResponse(n.Listing),
				DistanceKm:      n.DistanceKm,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type createListingRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	PriceCents  int64      `json:"price_cents"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type listingResponse struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	PriceCents      int64      `json:"price_cents"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	Status          string     `json:"status"`
	StatusLabel     string     `json:"status_label"`
	StatusChangedAt time.Time  `json:"status_changed_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	SoldAt          *time.Time `json:"sold_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type nearbyListingResponse struct {
	listingResponse
	DistanceKm float64 `json:"distance_km"`
}

func toListingResponse(l domain.Listing) listingResponse {
	return listingResponse{
		ID:              l.ID,
		OwnerID:         l.OwnerID,
		Title:           l.Title,
		Description:     l.Description,
		PriceCents:      l.PriceCents,
		Latitude:        l.Latitude,
		Longitude:       l.Longitude,
		Status:          string(l.Status),
		StatusLabel:     l.Status.Label(),
		StatusChangedAt: l.StatusChangedAt,
		ExpiresAt:       l.ExpiresAt,
		SoldAt:          l.SoldAt,
		CreatedAt:       l.CreatedAt,
	}
}
