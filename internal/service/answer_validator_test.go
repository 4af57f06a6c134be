package service

import (
	"errors"
	"strings"
	"testing"

	"learnpath/internal/models"
	"learnpath/internal/scoring"
)

func choicePractice() *models.Practice {
	return &models.Practice{
		ID:     1,
		Type:   models.ExerciseMultipleChoice,
		Active: true,
		Detail: &models.OptionSet{Options: []models.Option{
			{ID: 4, Text: "int", Explanation: "int guarda enteros"},
			{ID: 5, Text: "string", IsCorrect: true, Explanation: "string guarda texto"},
			{ID: 6, Text: "bool"},
		}},
	}
}

func blockPractice() *models.Practice {
	return &models.Practice{
		ID:     2,
		Type:   models.ExerciseBlockAssembly,
		Active: true,
		Detail: &models.BlockSet{Blocks: []models.Block{
			{ID: 10, Text: "Console.WriteLine(x);", CorrectPosition: 3},
			{ID: 11, Text: "int x = 5;", CorrectPosition: 1},
			{ID: 12, Text: "x++;", CorrectPosition: 2},
			{ID: 13, Text: "string x;", CorrectPosition: 2, IsDistractor: true},
		}},
	}
}

func codePractice(hint string) *models.Practice {
	return &models.Practice{
		ID:     3,
		Type:   models.ExerciseFreeCode,
		Active: true,
		Detail: &models.CodeSpec{
			ExpectedSolution: `int edad = 25;
string nombre = "Ana";
bool activo = true;`,
			Hint: hint,
		},
	}
}

func TestValidateMultipleChoice(t *testing.T) {
	v := NewAnswerValidator()

	tests := []struct {
		name        string
		optionID    int64
		wantCorrect bool
		wantPoints  int
		wantExpl    string
	}{
		{"correct option", 5, true, 10, "string guarda texto"},
		{"wrong option with explanation", 4, false, 0, "int guarda enteros"},
		{"wrong option without explanation", 6, false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := v.Validate(choicePractice(), models.Answer{MultipleChoice: &models.ChoiceAnswer{OptionID: tt.optionID}})
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if verdict.IsCorrect != tt.wantCorrect || verdict.Points != tt.wantPoints {
				t.Errorf("verdict = %+v, want correct=%v points=%d", verdict, tt.wantCorrect, tt.wantPoints)
			}
			if verdict.Explanation != tt.wantExpl {
				t.Errorf("Explanation = %q, want %q", verdict.Explanation, tt.wantExpl)
			}
		})
	}
}

func TestCorrectAnswersEarnTablePoints(t *testing.T) {
	v := NewAnswerValidator()

	tests := []struct {
		practice *models.Practice
		answer   models.Answer
	}{
		{choicePractice(), models.Answer{MultipleChoice: &models.ChoiceAnswer{OptionID: 5}}},
		{blockPractice(), models.Answer{BlockAssembly: &models.BlockAnswer{BlockOrder: []int64{11, 12, 10}}}},
		{codePractice(""), models.Answer{FreeCode: &models.CodeAnswer{Code: "bool activo = true; int edad = 25; string nombre = 'Ana';"}}},
	}

	for _, tt := range tests {
		t.Run(string(tt.practice.Type), func(t *testing.T) {
			verdict, err := v.Validate(tt.practice, tt.answer)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if want := scoring.PointsFor(tt.practice.Type); !verdict.IsCorrect || verdict.Points != want {
				t.Errorf("verdict = %+v, want correct with %d points", verdict, want)
			}
		})
	}
}

func TestValidateMultipleChoiceForeignOption(t *testing.T) {
	v := NewAnswerValidator()

	_, err := v.Validate(choicePractice(), models.Answer{MultipleChoice: &models.ChoiceAnswer{OptionID: 99}})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Validate() error = %v, want ErrNotFound", err)
	}
}

func TestValidateBlockAssembly(t *testing.T) {
	v := NewAnswerValidator()

	tests := []struct {
		name  string
		order []int64
		want  bool
	}{
		{"designed order", []int64{11, 12, 10}, true},
		{"permutation", []int64{12, 11, 10}, false},
		{"omission", []int64{11, 12}, false},
		{"distractor included", []int64{11, 13, 12, 10}, false},
		{"distractor swapped in", []int64{11, 13, 10}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := v.Validate(blockPractice(), models.Answer{BlockAssembly: &models.BlockAnswer{BlockOrder: tt.order}})
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if verdict.IsCorrect != tt.want {
				t.Errorf("IsCorrect = %v, want %v", verdict.IsCorrect, tt.want)
			}
			wantPoints := 0
			if tt.want {
				wantPoints = 15
			}
			if verdict.Points != wantPoints {
				t.Errorf("Points = %d, want %d", verdict.Points, wantPoints)
			}
		})
	}
}

func TestCorrectBlockOrderTiesByID(t *testing.T) {
	got := correctBlockOrder([]models.Block{
		{ID: 3, CorrectPosition: 1},
		{ID: 1, CorrectPosition: 1},
		{ID: 2, CorrectPosition: 0},
	})
	want := []int64{2, 1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("correctBlockOrder() = %v, want %v", got, want)
		}
	}
}

func TestValidateFreeCode(t *testing.T) {
	v := NewAnswerValidator()

	tests := []struct {
		name string
		code string
		want bool
	}{
		{"exact", "int edad = 25;\nstring nombre = \"Ana\";\nbool activo = true;", true},
		{"reordered", "bool activo = true; int edad = 25; string nombre = \"Ana\";", true},
		{"spacing and quotes", "int   edad=25;\n  string nombre   =   'Ana';\nbool activo=true;", true},
		{"wrapped in scaffold", `using System;
namespace Demo {
    public class Program {
        public static void Main(string[] args) {
            // datos
            int edad = 25;
            string nombre = "Ana";
            bool activo = true;
        }
    }
}`, true},
		{"one missing", "int edad = 25; string nombre = \"Ana\";", false},
		{"one extra", "int edad = 25; string nombre = \"Ana\"; bool activo = true; int x = 1;", false},
		{"wrong value", "int edad = 26; string nombre = \"Ana\"; bool activo = true;", false},
		{"nothing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := v.Validate(codePractice(""), models.Answer{FreeCode: &models.CodeAnswer{Code: tt.code}})
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if verdict.IsCorrect != tt.want {
				t.Errorf("IsCorrect = %v, want %v (explanation %q)", verdict.IsCorrect, tt.want, verdict.Explanation)
			}
			if tt.want && verdict.Points != 20 {
				t.Errorf("Points = %d, want 20", verdict.Points)
			}
			if !tt.want && verdict.Points != 0 {
				t.Errorf("Points = %d, want 0", verdict.Points)
			}
		})
	}
}

func TestValidateFreeCodeExplanations(t *testing.T) {
	v := NewAnswerValidator()

	verdict, _ := v.Validate(codePractice(""), models.Answer{FreeCode: &models.CodeAnswer{Code: "int edad = 25;"}})
	if !strings.HasPrefix(verdict.Explanation, "Se esperaban 3 declaración(es), pero encontraste 1. ") {
		t.Errorf("count mismatch explanation = %q", verdict.Explanation)
	}
	if !strings.HasSuffix(verdict.Explanation, "Asegúrate de escribir todas las variables con el tipo, nombre y valor correctos.") {
		t.Errorf("expected generic suggestion, got %q", verdict.Explanation)
	}

	verdict, _ = v.Validate(codePractice("Usa comillas dobles."), models.Answer{FreeCode: &models.CodeAnswer{
		Code: "int edad = 30; string nombre = \"Ana\"; bool activo = true;",
	}})
	want := "Las declaraciones no coinciden exactamente. Usa comillas dobles."
	if verdict.Explanation != want {
		t.Errorf("Explanation = %q, want %q", verdict.Explanation, want)
	}
}

func TestValidateRejectsMismatchedPayload(t *testing.T) {
	v := NewAnswerValidator()

	tests := []struct {
		name     string
		practice *models.Practice
		answer   models.Answer
	}{
		{"no payload", choicePractice(), models.Answer{}},
		{"wrong variant", choicePractice(), models.Answer{FreeCode: &models.CodeAnswer{Code: "int x = 1;"}}},
		{"two variants", blockPractice(), models.Answer{
			BlockAssembly:  &models.BlockAnswer{BlockOrder: []int64{11, 12, 10}},
			MultipleChoice: &models.ChoiceAnswer{OptionID: 5},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.practice, tt.answer)
			if !errors.Is(err, ErrBadInput) {
				t.Errorf("Validate() error = %v, want ErrBadInput", err)
			}
		})
	}
}

func TestValidateMissingDetailAndUnknownType(t *testing.T) {
	v := NewAnswerValidator()

	p := choicePractice()
	p.Detail = nil
	if _, err := v.Validate(p, models.Answer{MultipleChoice: &models.ChoiceAnswer{OptionID: 5}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing detail: error = %v, want ErrNotFound", err)
	}

	p = choicePractice()
	p.Type = "Crucigrama"
	if _, err := v.Validate(p, models.Answer{MultipleChoice: &models.ChoiceAnswer{OptionID: 5}}); !errors.Is(err, ErrInvalidExerciseType) {
		t.Errorf("unknown type: error = %v, want ErrInvalidExerciseType", err)
	}
}
