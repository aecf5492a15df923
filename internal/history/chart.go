package history

import (
	"time"

	"macrotrack/internal/daykey"
	"macrotrack/internal/model"
)

// DefaultWindow is the number of days in the dashboard chart.
const DefaultWindow = 7

// Window returns calorie totals for the size calendar days ending on now's
// day, oldest first. Days without a DayLog are 0. The result always has
// exactly size points; size <= 0 means DefaultWindow.
func Window(logs []model.DayLog, now time.Time, size int, conv daykey.Convention) []model.SeriesPoint {
	if size <= 0 {
		size = DefaultWindow
	}

	byKey := make(map[string]float64, len(logs))
	for _, l := range logs {
		byKey[l.DayKey] = l.Totals.Calories
	}

	today := conv.Key(now)
	points := make([]model.SeriesPoint, 0, size)
	for offset := size - 1; offset >= 0; offset-- {
		key, _ := daykey.Shift(today, -offset)
		wd, _ := daykey.Weekday(key)
		points = append(points, model.SeriesPoint{
			DayKey: key,
			Label:  wd.String()[:3],
			Value:  byKey[key],
		})
	}
	return points
}
