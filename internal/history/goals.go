package history

import "macrotrack/internal/model"

// Status reports whether a nutrient total is inside its goal.
type Status string

const (
	WithinGoal Status = "within_goal"
	Exceeded   Status = "exceeded"
)

// GoalStatus is the per-macro comparison result.
type GoalStatus struct {
	Calories Status `json:"calories"`
	Protein  Status `json:"protein"`
	Carbs    Status `json:"carbs"`
	Fat      Status `json:"fat"`
}

// Compare checks each total against its goal; a macro is exceeded only when
// actual > target.
func Compare(totals, goals model.Macros) GoalStatus {
	return GoalStatus{
		Calories: compareOne(totals.Calories, goals.Calories),
		Protein:  compareOne(totals.Protein, goals.Protein),
		Carbs:    compareOne(totals.Carbs, goals.Carbs),
		Fat:      compareOne(totals.Fat, goals.Fat),
	}
}

func compareOne(actual, target float64) Status {
	if actual > target {
		return Exceeded
	}
	return WithinGoal
}
