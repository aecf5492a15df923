package handler

import (
	"context"

	"macrotrack/internal/api/v1/dto"
	"macrotrack/internal/history"
	"macrotrack/internal/model"
	"macrotrack/internal/service"
)

func toMacrosDTO(m model.Macros) dto.MacrosDTO {
	return dto.MacrosDTO{Calories: m.Calories, Protein: m.Protein, Carbs: m.Carbs, Fat: m.Fat}
}

func fromMacrosDTO(m dto.MacrosDTO) model.Macros {
	return model.Macros{Calories: m.Calories, Protein: m.Protein, Carbs: m.Carbs, Fat: m.Fat}
}

func toQuotaDTO(q service.QuotaStatus, upgradeURL string) dto.QuotaStatusDTO {
	out := dto.QuotaStatusDTO{Used: q.Used, Limit: q.Limit, Exceeded: q.Exceeded, Unlimited: q.Unlimited}
	if q.Exceeded {
		out.UpgradeURL = upgradeURL
	}
	return out
}

func toUserDTO(u *model.UserAccount, q service.QuotaStatus, upgradeURL string) dto.UserResponseDTO {
	return dto.UserResponseDTO{
		UserID:     u.UserID,
		Goals:      toMacrosDTO(u.Goals),
		Plan:       string(u.Plan),
		Quota:      toQuotaDTO(q, upgradeURL),
		WebhookURL: u.WebhookURL,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func toItemDTOs(items []model.AnalysisItem) []dto.AnalysisItemDTO {
	out := make([]dto.AnalysisItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, dto.AnalysisItemDTO{
			ID:         it.ID,
			Name:       it.Name,
			Notes:      it.Notes,
			Macros:     toMacrosDTO(it.Macros),
			Confidence: it.Confidence,
		})
	}
	return out
}

func fromItemDTOs(items []dto.AnalysisItemDTO) []model.AnalysisItem {
	out := make([]model.AnalysisItem, 0, len(items))
	for _, it := range items {
		out = append(out, model.AnalysisItem{ID: it.ID, Name: it.Name, Notes: it.Notes, Macros: fromMacrosDTO(it.Macros)})
	}
	return out
}

// imageLinker turns stored image keys into short-lived URLs. A nil store
// leaves URLs empty.
type imageLinker struct {
	images service.ImageStore
}

func (l imageLinker) url(ctx context.Context, ref *string) string {
	if ref == nil || l.images == nil {
		return ""
	}
	u, err := l.images.PresignedURL(ctx, *ref)
	if err != nil {
		// Already logged by the store; the entry is still useful without its photo.
		return ""
	}
	return u
}

func (l imageLinker) entry(ctx context.Context, e model.FoodEntry) dto.EntryResponseDTO {
	out := dto.EntryResponseDTO{
		ID:         e.ID,
		Name:       e.Name,
		Notes:      e.Notes,
		Macros:     toMacrosDTO(e.Macros),
		CapturedAt: e.CapturedAt,
		ImageURL:   l.url(ctx, e.ImageRef),
	}
	if e.ImageRef != nil {
		out.ImageRef = *e.ImageRef
	}
	return out
}

func (l imageLinker) dayLog(ctx context.Context, d model.DayLog) dto.DayLogDTO {
	entries := make([]dto.EntryResponseDTO, 0, len(d.Entries))
	for _, e := range d.Entries {
		entries = append(entries, l.entry(ctx, e))
	}
	return dto.DayLogDTO{DayKey: d.DayKey, Entries: entries, Totals: toMacrosDTO(d.Totals)}
}

func toGoalStatusDTO(s history.GoalStatus) dto.GoalStatusDTO {
	return dto.GoalStatusDTO{
		Calories: string(s.Calories),
		Protein:  string(s.Protein),
		Carbs:    string(s.Carbs),
		Fat:      string(s.Fat),
	}
}

func toSeriesDTO(points []model.SeriesPoint) []dto.SeriesPointDTO {
	out := make([]dto.SeriesPointDTO, 0, len(points))
	for _, p := range points {
		out = append(out, dto.SeriesPointDTO{DayKey: p.DayKey, Label: p.Label, Value: p.Value})
	}
	return out
}
