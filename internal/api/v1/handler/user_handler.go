package handler

import (
	"net/http"

	"macrotrack/internal/api/v1/dto"
	"macrotrack/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	responder
	userService  service.UserService
	quotaService service.QuotaService
	validate     *validator.Validate
}

func NewUserHandler(userService service.UserService, quotaService service.QuotaService, v *validator.Validate, upgradeURL string, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		responder:    responder{upgradeURL: upgradeURL, logger: logger},
		userService:  userService,
		quotaService: quotaService,
		validate:     v,
	}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("GET /users/me", authMw(http.HandlerFunc(h.getUser)))
	mux.Handle("PUT /users/me/goals", authMw(http.HandlerFunc(h.updateGoals)))
	mux.Handle("PUT /users/me/webhook", authMw(http.HandlerFunc(h.updateWebhook)))
}

// getUser godoc
// @Summary Get the current user's profile
// @Description Returns goals, plan and today's analysis quota. Creates the profile with default goals on first access.
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {object} dto.ErrorResponseDTO
// @Router /users/me [get]
func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	u, err := h.userService.GetOrCreate(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserDTO(u, h.quotaService.StatusFor(u), h.upgradeURL))
}

// updateGoals godoc
// @Summary Update daily goals
// @Tags users
// @Accept json
// @Produce json
// @Param goals body dto.MacrosDTO true "New goals"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Router /users/me/goals [put]
func (h *UserHandler) updateGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.MacrosDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.badRequest(w, "Validation failed: "+err.Error())
		return
	}
	u, err := h.userService.UpdateGoals(r.Context(), userID, fromMacrosDTO(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserDTO(u, h.quotaService.StatusFor(u), h.upgradeURL))
}

// updateWebhook godoc
// @Summary Set the webhook that receives saved entries
// @Description An empty url clears the user's webhook so the default applies.
// @Tags users
// @Accept json
// @Produce json
// @Param webhook body dto.WebhookUpdateDTO true "Webhook url"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Router /users/me/webhook [put]
func (h *UserHandler) updateWebhook(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.WebhookUpdateDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.badRequest(w, "Validation failed: "+err.Error())
		return
	}
	u, err := h.userService.UpdateWebhookURL(r.Context(), userID, req.URL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserDTO(u, h.quotaService.StatusFor(u), h.upgradeURL))
}
