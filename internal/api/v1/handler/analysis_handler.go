package handler

import (
	"encoding/base64"
	"errors"
	"net/http"

	"macrotrack/internal/api/v1/dto"
	"macrotrack/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type AnalysisHandler struct {
	responder
	analysisService service.AnalysisService
	validate        *validator.Validate
}

func NewAnalysisHandler(analysisService service.AnalysisService, v *validator.Validate, upgradeURL string, logger zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		responder:       responder{upgradeURL: upgradeURL, logger: logger},
		analysisService: analysisService,
		validate:        v,
	}
}

func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("POST /analyses", authMw(http.HandlerFunc(h.analyze)))
}

// analyze godoc
// @Summary Estimate the macros of a meal
// @Description Runs the AI analyzer on a photo or a description. Results are proposals; POST /entries saves them. One quota unit is consumed per successful analysis.
// @Tags analyses
// @Accept json
// @Produce json
// @Param analysis body dto.AnalysisRequestDTO true "Meal to analyze"
// @Success 200 {object} dto.AnalysisResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 429 {object} dto.ErrorResponseDTO "daily quota used up"
// @Failure 502 {object} dto.ErrorResponseDTO "analysis failed, try again"
// @Failure 503 {object} dto.ErrorResponseDTO "storage unavailable, retry"
// @Router /analyses [post]
func (h *AnalysisHandler) analyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.AnalysisRequestDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.badRequest(w, "Validation failed: "+err.Error())
		return
	}

	in := service.AnalysisRequest{Mode: req.Mode, MimeType: req.MimeType, Text: req.Text}
	if req.Mode == service.ModePhoto {
		img, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			h.badRequest(w, "image must be base64 encoded")
			return
		}
		in.Image = img
	}

	res, err := h.analysisService.Analyze(r.Context(), userID, in)
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) && res != nil {
			q := toQuotaDTO(res.Quota, h.upgradeURL)
			h.writeError(w, http.StatusTooManyRequests, dto.ErrorResponseDTO{
				Error:      "quota_exceeded",
				Message:    err.Error(),
				UpgradeURL: h.upgradeURL,
				Quota:      &q,
			})
			return
		}
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.AnalysisResponseDTO{
		Items: toItemDTOs(res.Items),
		Quota: toQuotaDTO(res.Quota, h.upgradeURL),
	})
}
