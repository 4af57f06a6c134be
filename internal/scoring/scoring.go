// Package scoring holds the point values and the level formula. Every change
// to a user's total goes through Credit so the level never drifts.
package scoring

import "learnpath/internal/models"

const (
	MultipleChoicePoints   = 10
	BlockAssemblyPoints    = 15
	FreeCodePoints         = 20
	LessonCompletionPoints = 10

	PointsPerLevel = 100
)

// PointsFor returns the points a correct answer of the given type is worth
func PointsFor(t models.ExerciseType) int {
	switch t {
	case models.ExerciseMultipleChoice:
		return MultipleChoicePoints
	case models.ExerciseBlockAssembly:
		return BlockAssemblyPoints
	case models.ExerciseFreeCode:
		return FreeCodePoints
	}
	return 0
}

// Level derives the level from a points total
func Level(total int) int {
	if total <= 0 {
		return 1
	}
	return total/PointsPerLevel + 1
}

// Credit adds delta to total, clamping at zero, and returns the new total
// with its level.
func Credit(total, delta int) (newTotal, level int) {
	newTotal = total + delta
	if newTotal < 0 {
		newTotal = 0
	}
	return newTotal, Level(newTotal)
}
