package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"macrotrack/internal/api/v1/dto"
	"macrotrack/internal/middleware"
	"macrotrack/internal/service"

	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies; photos arrive base64 encoded inline.
const maxBodyBytes = 12 << 20

// responder writes JSON bodies and maps service errors to HTTP statuses.
type responder struct {
	upgradeURL string
	logger     zerolog.Logger
}

func (rs responder) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (rs responder) writeError(w http.ResponseWriter, status int, body dto.ErrorResponseDTO) {
	rs.writeJSON(w, status, body)
}

func (rs responder) badRequest(w http.ResponseWriter, msg string) {
	rs.writeError(w, http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: msg})
}

// fail maps err to the taxonomy the clients understand: quota problems offer
// an upgrade, transient problems offer a retry.
func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	body := dto.ErrorResponseDTO{Message: err.Error(), Retryable: service.IsRetryable(err)}
	var status int
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		status, body.Error, body.UpgradeURL = http.StatusTooManyRequests, "quota_exceeded", rs.upgradeURL
	case errors.Is(err, service.ErrUpgradeRequired):
		status, body.Error, body.UpgradeURL = http.StatusForbidden, "upgrade_required", rs.upgradeURL
	case errors.Is(err, service.ErrStorageUnavailable):
		status, body.Error = http.StatusServiceUnavailable, "storage_unavailable"
		body.Message = "storage is temporarily unavailable"
	case errors.Is(err, service.ErrAnalysisFailed):
		status, body.Error = http.StatusBadGateway, "analysis_failed"
		body.Message = "could not analyze the meal, please try again"
	case errors.Is(err, service.ErrEntryNotFound), errors.Is(err, service.ErrUserNotFound):
		status, body.Error = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidMultiplier),
		errors.Is(err, service.ErrNothingToAnalyze),
		errors.Is(err, service.ErrInvalidPlan):
		status, body.Error = http.StatusBadRequest, "invalid_request"
	default:
		status, body.Error = http.StatusInternalServerError, "internal"
		body.Message = "internal server error"
	}
	if status >= http.StatusInternalServerError {
		rs.logger.Error().Err(err).Str("method", r.Method).Str("uri", r.URL.RequestURI()).Int("status", status).Msg("Request failed")
	}
	rs.writeError(w, status, body)
}

func (rs responder) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func (rs responder) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		rs.badRequest(w, "Invalid JSON payload: "+err.Error())
		return false
	}
	return true
}
