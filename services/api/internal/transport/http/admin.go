package http

import (
	"context"
	"net/http"
	"time"

	"github.com/estatehub/marketplace/services/api/internal/app"
	"github.com/estatehub/marketplace/services/api/internal/clock"
	"github.com/estatehub/marketplace/services/api/internal/domain"
)

// ExpiryRunner runs the auto-expire batch.
type ExpiryRunner interface {
	AutoExpireDue(ctx context.Context, now time.Time) (app.AutoExpireResult, error)
}

// ReviewerChecker reports whether an actor holds the reviewer privilege.
type ReviewerChecker interface {
	IsReviewer(ctx context.Context, actorID string) (bool, error)
}

// HandleRunExpiry runs the auto-expire batch on demand. Reviewers only.
func HandleRunExpiry(svc ExpiryRunner, reviewers ReviewerChecker, clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())
		ok, err := reviewers.IsReviewer(r.Context(), actor)
		if err != nil {
			writeServiceError(w, &domain.PersistenceError{Op: "resolve reviewer", Err: err})
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, codeForbidden, "reviewer role required")
			return
		}

		res, err := svc.AutoExpireDue(r.Context(), clk.Now())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := expiryRunResponse{
			Expired:  res.Expired,
			Failures: make([]expiryFailureResponse, 0, len(res.Failures)),
		}
		for _, f := range res.Failures {
			resp.Failures = append(resp.Failures, expiryFailureResponse{
				ListingID: f.ListingID,
				Error:     f.Err.Error(),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type expiryRunResponse struct {
	Expired  int                     `json:"expired"`
	Failures []expiryFailureResponse `json:"failures"`
}

type expiryFailureResponse struct {
	ListingID string `json:"listing_id"`
	Error     string `json:"error"`
}
