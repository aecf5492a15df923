package dto

// AnalysisRequestDTO asks the AI to estimate a meal. Photo mode takes a
// base64 image and optional context text; text mode takes a description.
type AnalysisRequestDTO struct {
	Mode     string `json:"mode" validate:"required,oneof=photo text"`
	Image    string `json:"image" validate:"required_if=Mode photo"`
	MimeType string `json:"mime_type" validate:"omitempty,oneof=image/jpeg image/png image/webp"`
	Text     string `json:"text" validate:"required_if=Mode text,max=2000"`
}

// AnalysisItemDTO is one proposed food item. It is not saved until confirmed.
type AnalysisItemDTO struct {
	ID         string    `json:"id,omitempty" validate:"omitempty,uuid"`
	Name       string    `json:"name" validate:"max=200"`
	Notes      string    `json:"notes" validate:"max=1000"`
	Macros     MacrosDTO `json:"macros"`
	Confidence float64   `json:"confidence,omitempty"`
}

// AnalysisResponseDTO holds the proposals and the quota after the call.
type AnalysisResponseDTO struct {
	Items []AnalysisItemDTO `json:"items"`
	Quota QuotaStatusDTO    `json:"quota"`
}
