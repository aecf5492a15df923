package model

import (
	"math"
	"time"
)

// Macros holds the four tracked nutrients. Calories in kcal, the rest in grams.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Add returns the elementwise sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// Scale multiplies every macro by factor and rounds to whole units.
func (m Macros) Scale(factor float64) Macros {
	return Macros{
		Calories: math.Round(m.Calories * factor),
		Protein:  math.Round(m.Protein * factor),
		Carbs:    math.Round(m.Carbs * factor),
		Fat:      math.Round(m.Fat * factor),
	}.Sanitize()
}

// Sanitize replaces NaN, infinite and negative values with 0.
func (m Macros) Sanitize() Macros {
	return Macros{
		Calories: CoerceAmount(m.Calories),
		Protein:  CoerceAmount(m.Protein),
		Carbs:    CoerceAmount(m.Carbs),
		Fat:      CoerceAmount(m.Fat),
	}
}

// CoerceAmount returns v when it is a usable non-negative amount and 0 otherwise.
func CoerceAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// FoodEntry is one logged food item owned by a single user.
type FoodEntry struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	Notes      string    `db:"notes" json:"notes"`
	Macros     Macros    `json:"macros"`
	CapturedAt time.Time `db:"captured_at" json:"captured_at"`
	ImageRef   *string   `db:"image_ref" json:"image_ref,omitempty"`
}

// DayLog groups the entries of one calendar day. It is derived on every read
// and never persisted.
type DayLog struct {
	DayKey  string      `json:"day_key"`
	Entries []FoodEntry `json:"entries"`
	Totals  Macros      `json:"totals"`
}

// SeriesPoint is one bar of a fixed-width chart.
type SeriesPoint struct {
	DayKey string  `json:"day_key"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
}

// AnalysisItem is one food item proposed by the AI analyzer. Values are
// already coerced to non-negative numbers.
type AnalysisItem struct {
	// ID becomes the entry id on confirm, so confirming the same proposal
	// twice writes one entry. Empty means a fresh id is assigned.
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name"`
	Notes      string  `json:"notes"`
	Macros     Macros  `json:"macros"`
	Confidence float64 `json:"confidence"`
}
