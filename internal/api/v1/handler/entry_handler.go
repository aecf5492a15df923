package handler

import (
	"encoding/base64"
	"net/http"

	"macrotrack/internal/api/v1/dto"
	"macrotrack/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type EntryHandler struct {
	responder
	links        imageLinker
	entryService service.EntryService
	validate     *validator.Validate
}

// NewEntryHandler creates an EntryHandler. images may be nil.
func NewEntryHandler(entryService service.EntryService, images service.ImageStore, v *validator.Validate, logger zerolog.Logger) *EntryHandler {
	return &EntryHandler{
		responder:    responder{logger: logger},
		links:        imageLinker{images: images},
		entryService: entryService,
		validate:     v,
	}
}

func (h *EntryHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("POST /entries", authMw(http.HandlerFunc(h.confirm)))
	mux.Handle("PATCH /entries/{id}", authMw(http.HandlerFunc(h.update)))
	mux.Handle("DELETE /entries/{id}", authMw(http.HandlerFunc(h.delete)))
}

// confirm godoc
// @Summary Save analysis proposals as food entries
// @Description Every item becomes an entry captured now. The webhook fires once per saved entry.
// @Tags entries
// @Accept json
// @Produce json
// @Param entries body dto.EntryConfirmDTO true "Confirmed items"
// @Success 201 {array} dto.EntryResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 503 {object} dto.ErrorResponseDTO
// @Router /entries [post]
func (h *EntryHandler) confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.EntryConfirmDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.badRequest(w, "Validation failed: "+err.Error())
		return
	}

	in := service.ConfirmInput{Items: fromItemDTOs(req.Items)}
	if req.Image != "" {
		img, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			h.badRequest(w, "image must be base64 encoded")
			return
		}
		in.Photo = &service.Photo{Data: img, ContentType: req.MimeType}
	}

	saved, err := h.entryService.Confirm(r.Context(), userID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]dto.EntryResponseDTO, 0, len(saved))
	for _, e := range saved {
		resp = append(resp, h.links.entry(r.Context(), e))
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// update godoc
// @Summary Edit an entry
// @Description multiplier rescales the macros (0.5 to 5 in steps of 0.5); name and notes replace the current values.
// @Tags entries
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param entry body dto.EntryUpdateDTO true "Changes"
// @Success 200 {object} dto.EntryResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /entries/{id} [patch]
func (h *EntryHandler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.EntryUpdateDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.badRequest(w, "Validation failed: "+err.Error())
		return
	}
	e, err := h.entryService.Update(r.Context(), userID, r.PathValue("id"), service.EntryUpdate{
		Multiplier: req.Multiplier,
		Name:       req.Name,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.links.entry(r.Context(), *e))
}

// delete godoc
// @Summary Delete an entry
// @Tags entries
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /entries/{id} [delete]
func (h *EntryHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.entryService.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
