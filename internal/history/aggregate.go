// Package history turns a flat, unordered set of food entries into day
// buckets and the views derived from them. Everything here is a pure function
// of its inputs.
package history

import (
	"sort"
	"time"

	"macrotrack/internal/daykey"
	"macrotrack/internal/model"
)

type bucket struct {
	entries []model.FoodEntry
	totals  model.Macros
}

// Aggregate groups entries by calendar day under conv and returns one DayLog
// per day, most recent day first. Within a day entries are ordered by
// CapturedAt descending with ties broken by ID. Negative or non-finite macros
// count as 0 and a missing CapturedAt is treated as now.
//
// The result does not depend on the order of entries.
func Aggregate(entries []model.FoodEntry, now time.Time, conv daykey.Convention) []model.DayLog {
	buckets := make(map[string]bucket)
	for _, e := range entries {
		e = normalize(e, now)
		key := conv.Key(e.CapturedAt)
		b := buckets[key]
		b.entries = append(b.entries, e)
		b.totals = b.totals.Add(e.Macros)
		buckets[key] = b
	}

	logs := make([]model.DayLog, 0, len(buckets))
	for key, b := range buckets {
		sort.SliceStable(b.entries, func(i, j int) bool {
			return newerEntry(b.entries[i], b.entries[j])
		})
		logs = append(logs, model.DayLog{DayKey: key, Entries: b.entries, Totals: b.totals})
	}

	// Order days by their most recent entry, not by key text.
	sort.SliceStable(logs, func(i, j int) bool {
		a, b := logs[i].Entries[0].CapturedAt, logs[j].Entries[0].CapturedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return logs[i].DayKey > logs[j].DayKey
	})
	return logs
}

// Find returns the DayLog for key, if present.
func Find(logs []model.DayLog, key string) (model.DayLog, bool) {
	for _, l := range logs {
		if l.DayKey == key {
			return l, true
		}
	}
	return model.DayLog{}, false
}

// Today returns the DayLog for now's day, or an empty one with the right key.
func Today(logs []model.DayLog, now time.Time, conv daykey.Convention) model.DayLog {
	key := conv.Key(now)
	if l, ok := Find(logs, key); ok {
		return l
	}
	return model.DayLog{DayKey: key, Entries: []model.FoodEntry{}}
}

func normalize(e model.FoodEntry, now time.Time) model.FoodEntry {
	e.Macros = e.Macros.Sanitize()
	if e.CapturedAt.IsZero() {
		e.CapturedAt = now
	}
	return e
}

func newerEntry(a, b model.FoodEntry) bool {
	if !a.CapturedAt.Equal(b.CapturedAt) {
		return a.CapturedAt.After(b.CapturedAt)
	}
	return a.ID < b.ID
}
