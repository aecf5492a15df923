package model

import "time"

// Plan is the billing tier of an account.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPaid Plan = "paid"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPaid
}

// DefaultGoals are assigned to accounts that never set their own.
var DefaultGoals = Macros{
	Calories: 2200,
	Protein:  150,
	Carbs:    250,
	Fat:      70,
}

// QuotaState is the persisted daily analysis counter.
type QuotaState struct {
	Count           int    `db:"quota_count" json:"count"`
	LastResetDayKey string `db:"quota_day_key" json:"last_reset_day_key"`
}

// Advance returns the state after one analysis on day today. The first call
// of a new day resets the count to 1 rather than adding to yesterday's count.
func (q QuotaState) Advance(today string) QuotaState {
	if q.LastResetDayKey != today {
		return QuotaState{Count: 1, LastResetDayKey: today}
	}
	return QuotaState{Count: q.Count + 1, LastResetDayKey: today}
}

// UsedOn returns how many analyses were consumed on day today.
func (q QuotaState) UsedOn(today string) int {
	if q.LastResetDayKey != today {
		return 0
	}
	return q.Count
}

// UserAccount is the per-user record: goals, plan and quota counter.
type UserAccount struct {
	UserID     string     `db:"user_id" json:"user_id"`
	Goals      Macros     `json:"goals"`
	Plan       Plan       `db:"plan" json:"plan"`
	Quota      QuotaState `json:"quota"`
	WebhookURL string     `db:"webhook_url" json:"webhook_url,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// QuotaUpdate is the outcome of an atomic quota advance.
type QuotaUpdate struct {
	Count int
	Plan  Plan
}
