package history

import (
	"time"

	"macrotrack/internal/daykey"
	"macrotrack/internal/model"
)

// Streak counts consecutive calendar days with at least one entry, ending
// today or yesterday. logs must be ordered most recent first, as returned by
// Aggregate with the same convention.
func Streak(logs []model.DayLog, now time.Time, conv daykey.Convention) int {
	if len(logs) == 0 {
		return 0
	}

	gap, ok := daykey.DaysBetween(logs[0].DayKey, conv.Key(now))
	if !ok || gap > 1 {
		return 0
	}

	count := 1
	for i := 0; i+1 < len(logs); i++ {
		step, ok := daykey.DaysBetween(logs[i+1].DayKey, logs[i].DayKey)
		if !ok || step != 1 {
			break
		}
		count++
	}
	return count
}
