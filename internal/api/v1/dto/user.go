package dto

import "time"

// MacrosDTO carries the four tracked nutrients. It is also the body of
// PUT /users/me/goals.
type MacrosDTO struct {
	Calories float64 `json:"calories" validate:"gte=0"`
	Protein  float64 `json:"protein" validate:"gte=0"`
	Carbs    float64 `json:"carbs" validate:"gte=0"`
	Fat      float64 `json:"fat" validate:"gte=0"`
}

// QuotaStatusDTO is today's analysis usage.
type QuotaStatusDTO struct {
	Used       int    `json:"used"`
	Limit      int    `json:"limit"`
	Exceeded   bool   `json:"exceeded"`
	Unlimited  bool   `json:"unlimited"`
	UpgradeURL string `json:"upgrade_url,omitempty"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID     string         `json:"user_id"`
	Goals      MacrosDTO      `json:"goals"`
	Plan       string         `json:"plan"`
	Quota      QuotaStatusDTO `json:"quota"`
	WebhookURL string         `json:"webhook_url,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// WebhookUpdateDTO sets or clears (empty url) the user's webhook.
type WebhookUpdateDTO struct {
	URL string `json:"url" validate:"omitempty,url,startswith=http"`
}
