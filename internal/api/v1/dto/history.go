package dto

// DayLogDTO is one calendar day of entries with its totals.
type DayLogDTO struct {
	DayKey  string             `json:"day_key"`
	Entries []EntryResponseDTO `json:"entries"`
	Totals  MacrosDTO          `json:"totals"`
}

// SeriesPointDTO is one chart bar.
type SeriesPointDTO struct {
	DayKey string  `json:"day_key"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
}

// GoalStatusDTO reports within_goal or exceeded per macro.
type GoalStatusDTO struct {
	Calories string `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fat      string `json:"fat"`
}

// DashboardResponseDTO is the home screen payload.
type DashboardResponseDTO struct {
	DayKey     string           `json:"day_key"`
	Today      DayLogDTO        `json:"today"`
	Streak     int              `json:"streak"`
	Chart      []SeriesPointDTO `json:"chart"`
	Goals      MacrosDTO        `json:"goals"`
	GoalStatus GoalStatusDTO    `json:"goal_status"`
	Quota      QuotaStatusDTO   `json:"quota"`
	Plan       string           `json:"plan"`
}

// HistoryResponseDTO lists every logged day, newest first.
type HistoryResponseDTO struct {
	Days []DayLogDTO `json:"days"`
}

// ErrorResponseDTO is the body of every non-2xx JSON response.
type ErrorResponseDTO struct {
	Error      string          `json:"error"`
	Message    string          `json:"message"`
	Retryable  bool            `json:"retryable"`
	UpgradeURL string          `json:"upgrade_url,omitempty"`
	Quota      *QuotaStatusDTO `json:"quota,omitempty"`
}
