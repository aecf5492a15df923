package dto

import "time"

// EntryConfirmDTO saves analysis proposals as food entries. Image, when set,
// is the base64 photo the proposals came from.
type EntryConfirmDTO struct {
	Items    []AnalysisItemDTO `json:"items" validate:"required,min=1,max=20,dive"`
	Image    string            `json:"image"`
	MimeType string            `json:"mime_type" validate:"omitempty,oneof=image/jpeg image/png image/webp"`
}

// EntryUpdateDTO edits an entry. Multiplier rescales the macros.
type EntryUpdateDTO struct {
	Multiplier *float64 `json:"multiplier" validate:"omitempty,gte=0.5,lte=5"`
	Name       *string  `json:"name" validate:"omitempty,max=200"`
	Notes      *string  `json:"notes" validate:"omitempty,max=1000"`
}

// EntryResponseDTO is a stored food entry.
type EntryResponseDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Notes      string    `json:"notes"`
	Macros     MacrosDTO `json:"macros"`
	CapturedAt time.Time `json:"captured_at"`
	ImageRef   string    `json:"image_ref,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
}
