package history

import (
	"testing"

	"macrotrack/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	goals := model.Macros{Calories: 2200, Protein: 150, Carbs: 250, Fat: 70}

	got := Compare(model.Macros{Calories: 2500, Protein: 150, Carbs: 100, Fat: 70.5}, goals)
	assert.Equal(t, GoalStatus{
		Calories: Exceeded,
		Protein:  WithinGoal,
		Carbs:    WithinGoal,
		Fat:      Exceeded,
	}, got)

	assert.Equal(t, GoalStatus{WithinGoal, WithinGoal, WithinGoal, WithinGoal}, Compare(model.Macros{}, goals))
}
