package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/estatehub/marketplace/services/api/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidQuery       = "invalid_query"
	codeInvalidStatus      = "invalid_status"
	codeTitleRequired      = "title_required"
	codeInvalidPrice       = "invalid_price"
	codeInvalidLocation    = "invalid_location"
	codeInvalidExpiry      = "invalid_expiry"
	codeListingNotFound    = "listing_not_found"
	codeUnauthorizedActor  = "unauthorized_actor"
	codeInvalidTransition  = "invalid_transition"
	codeListingChanged     = "listing_changed"
	codePersistenceFailure = "persistence_failure"
	codeUnauthenticated    = "unauthenticated"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps service errors onto the JSON error envelope.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		writeError(w, http.StatusNotFound, codeListingNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, codeUnauthorizedActor, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, codeListingChanged, domain.ErrConflict.Error())
	case errors.Is(err, domain.ErrPersistence):
		writeError(w, http.StatusServiceUnavailable, codePersistenceFailure, "storage unavailable, please retry")
	case errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, codeInvalidStatus, err.Error())
	case errors.Is(err, domain.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, codeTitleRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidPrice, err.Error())
	case errors.Is(err, domain.ErrInvalidLocation):
		writeError(w, http.StatusBadRequest, codeInvalidLocation, err.Error())
	case errors.Is(err, domain.ErrInvalidExpiry):
		writeError(w, http.StatusBadRequest, codeInvalidExpiry, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
