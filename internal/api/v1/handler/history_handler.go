package handler

import (
	"net/http"

	"macrotrack/internal/api/v1/dto"
	"macrotrack/internal/service"

	"github.com/rs/zerolog"
)

type HistoryHandler struct {
	responder
	links          imageLinker
	historyService service.HistoryService
}

// NewHistoryHandler creates a HistoryHandler. images may be nil.
func NewHistoryHandler(historyService service.HistoryService, images service.ImageStore, upgradeURL string, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		responder:      responder{upgradeURL: upgradeURL, logger: logger},
		links:          imageLinker{images: images},
		historyService: historyService,
	}
}

func (h *HistoryHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("GET /dashboard", authMw(http.HandlerFunc(h.dashboard)))
	mux.Handle("GET /history", authMw(http.HandlerFunc(h.history)))
}

// dashboard godoc
// @Summary Today's log, streak, weekly chart and goal status
// @Tags history
// @Produce json
// @Success 200 {object} dto.DashboardResponseDTO
// @Failure 503 {object} dto.ErrorResponseDTO
// @Router /dashboard [get]
func (h *HistoryHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	d, err := h.historyService.Dashboard(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.DashboardResponseDTO{
		DayKey:     d.DayKey,
		Today:      h.links.dayLog(r.Context(), d.Today),
		Streak:     d.Streak,
		Chart:      toSeriesDTO(d.Chart),
		Goals:      toMacrosDTO(d.Goals),
		GoalStatus: toGoalStatusDTO(d.GoalStatus),
		Quota:      toQuotaDTO(d.Quota, h.upgradeURL),
		Plan:       string(d.Plan),
	})
}

// history godoc
// @Summary Every logged day, newest first
// @Description Paid plan only.
// @Tags history
// @Produce json
// @Success 200 {object} dto.HistoryResponseDTO
// @Failure 403 {object} dto.ErrorResponseDTO "upgrade required"
// @Failure 503 {object} dto.ErrorResponseDTO
// @Router /history [get]
func (h *HistoryHandler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	logs, err := h.historyService.History(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	days := make([]dto.DayLogDTO, 0, len(logs))
	for _, l := range logs {
		days = append(days, h.links.dayLog(r.Context(), l))
	}
	h.writeJSON(w, http.StatusOK, dto.HistoryResponseDTO{Days: days})
}
