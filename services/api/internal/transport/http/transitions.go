package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/estatehub/marketplace/services/api/internal/app"
	"github.com/estatehub/marketplace/services/api/internal/domain"
)

// ListingStatusService is the slice of the status service the HTTP layer uses.
type ListingStatusService interface {
	RequestTransition(ctx context.Context, in app.RequestTransitionInput) (app.TransitionResult, error)
	ValidTransitions(ctx context.Context, listingID, actorID string) ([]domain.ListingStatus, error)
	History(ctx context.Context, listingID string) ([]domain.StatusHistoryRecord, error)
	CurrentStatus(ctx context.Context, listingID string) (domain.ListingStatus, error)
}

func HandleCurrentStatus(svc ListingStatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID := chi.URLParam(r, "listingID")
		status, err := svc.CurrentStatus(r.Context(), listingID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{
			ListingID: listingID,
			Status:    toStatusOption(status),
		})
	}
}

func HandleHistory(svc ListingStatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.History(r.Context(), chi.URLParam(r, "listingID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := make([]historyRecordResponse, 0, len(records))
		for _, rec := range records {
			resp = append(resp, toHistoryRecordResponse(rec))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleValidTransitions lists the statuses the caller may move the listing to.
func HandleValidTransitions(svc ListingStatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())
		listingID := chi.URLParam(r, "listingID")

		allowed, err := svc.ValidTransitions(r.Context(), listingID, actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		options := make([]statusOption, 0, len(allowed))
		for _, s := range allowed {
			options = append(options, toStatusOption(s))
		}
		writeJSON(w, http.StatusOK, validTransitionsResponse{
			ListingID: listingID,
			Allowed:   options,
		})
	}
}

// HandleRequestTransition applies a status change on behalf of the caller.
func HandleRequestTransition(svc ListingStatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		var req transitionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		target, err := domain.ParseStatus(req.Status)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		res, err := svc.RequestTransition(r.Context(), app.RequestTransitionInput{
			ListingID: chi.URLParam(r, "listingID"),
			NewStatus: target,
			ActorID:   actor,
			Reason:    req.Reason,
			Notes:     req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, transitionResponse{
			Listing: toListingResponse(res.Listing),
			Record:  toHistoryRecordResponse(res.Record),
		})
	}
}

type transitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

type statusOption struct {
	Status string `json:"status"`
	Label  string `json:"label"`
}

type statusResponse struct {
	ListingID string       `json:"listing_id"`
	Status    statusOption `json:"status"`
}

type validTransitionsResponse struct {
	ListingID string         `json:"listing_id"`
	Allowed   []statusOption `json:"allowed"`
}

type historyRecordResponse struct {
	ID             string    `json:"id"`
	ListingID      string    `json:"listing_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Reason         string    `json:"reason"`
	Notes          string    `json:"notes,omitempty"`
	ActorID        string    `json:"actor_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type transitionResponse struct {
	Listing listingResponse       `json:"listing"`
	Record  historyRecordResponse `json:"record"`
}

func toStatusOption(s domain.ListingStatus) statusOption {
	return statusOption{Status: string(s), Label: s.Label()}
}

func toHistoryRecordResponse(rec domain.StatusHistoryRecord) historyRecordResponse {
	return historyRecordResponse{
		ID:             rec.ID,
		ListingID:      rec.ListingID,
		PreviousStatus: string(rec.PreviousStatus),
		NewStatus:      string(rec.NewStatus),
		Reason:         rec.Reason,
		Notes:          rec.Notes,
		ActorID:        rec.ActorID,
		OccurredAt:     rec.OccurredAt,
	}
}
