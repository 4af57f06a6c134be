package scoring

import (
	"testing"

	"learnpath/internal/models"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{-50, 1},
		{0, 1},
		{1, 1},
		{99, 1},
		{100, 2},
		{199, 2},
		{250, 3},
		{1000, 11},
	}

	for _, tt := range tests {
		if got := Level(tt.total); got != tt.want {
			t.Errorf("Level(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}

func TestCredit(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		delta     int
		wantTotal int
		wantLevel int
	}{
		{"first points", 0, 10, 10, 1},
		{"crosses a level", 95, 15, 110, 2},
		{"zero delta", 250, 0, 250, 3},
		{"clamped at zero", 5, -20, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, level := Credit(tt.total, tt.delta)
			if total != tt.wantTotal || level != tt.wantLevel {
				t.Errorf("Credit(%d, %d) = (%d, %d), want (%d, %d)",
					tt.total, tt.delta, total, level, tt.wantTotal, tt.wantLevel)
			}
		})
	}
}

func TestPointsFor(t *testing.T) {
	tests := []struct {
		typ  models.ExerciseType
		want int
	}{
		{models.ExerciseMultipleChoice, 10},
		{models.ExerciseBlockAssembly, 15},
		{models.ExerciseFreeCode, 20},
		{"Unknown", 0},
	}

	for _, tt := range tests {
		if got := PointsFor(tt.typ); got != tt.want {
			t.Errorf("PointsFor(%s) = %d, want %d", tt.typ, got, tt.want)
		}
	}
}
