package service

import (
	"fmt"
	"sort"

	"learnpath/internal/codenorm"
	"learnpath/internal/models"
	"learnpath/internal/scoring"
)

// AnswerValidator judges submitted answers against a practice's detail.
// It is stateless and never touches the ledger.
type AnswerValidator struct{}

// NewAnswerValidator creates a new answer validator
func NewAnswerValidator() *AnswerValidator {
	return &AnswerValidator{}
}

// Validate checks a against p. p.Detail must be loaded.
func (v *AnswerValidator) Validate(p *models.Practice, a models.Answer) (*models.Verdict, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: practice %d has type %q", ErrInvalidExerciseType, p.ID, p.Type)
	}

	variants := a.Variants()
	if len(variants) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one answer payload, got %d", ErrBadInput, len(variants))
	}
	if variants[0] != p.Type {
		return nil, fmt.Errorf("%w: practice expects a %s answer, got %s", ErrBadInput, p.Type, variants[0])
	}

	points := scoring.PointsFor(p.Type)

	switch p.Type {
	case models.ExerciseMultipleChoice:
		set, ok := p.Detail.(*models.OptionSet)
		if !ok {
			return nil, fmt.Errorf("%w: options for practice %d", ErrNotFound, p.ID)
		}
		return validateChoice(set, a.MultipleChoice, points)
	case models.ExerciseBlockAssembly:
		set, ok := p.Detail.(*models.BlockSet)
		if !ok {
			return nil, fmt.Errorf("%w: blocks for practice %d", ErrNotFound, p.ID)
		}
		return validateBlocks(set, a.BlockAssembly, points), nil
	case models.ExerciseFreeCode:
		spec, ok := p.Detail.(*models.CodeSpec)
		if !ok {
			return nil, fmt.Errorf("%w: code spec for practice %d", ErrNotFound, p.ID)
		}
		return validateCode(spec, a.FreeCode, points), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidExerciseType, p.Type)
}

func validateChoice(set *models.OptionSet, ans *models.ChoiceAnswer, points int) (*models.Verdict, error) {
	var selected *models.Option
	for i := range set.Options {
		if set.Options[i].ID == ans.OptionID {
			selected = &set.Options[i]
			break
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("%w: option %d", ErrNotFound, ans.OptionID)
	}

	if selected.IsCorrect {
		return &models.Verdict{
			IsCorrect:   true,
			Message:     "¡Correcto!",
			Explanation: selected.Explanation,
			Points:      points,
		}, nil
	}
	return &models.Verdict{
		Message:     "Incorrecto",
		Explanation: selected.Explanation,
	}, nil
}

// correctBlockOrder returns the non-distractor block ids by CorrectPosition
func correctBlockOrder(blocks []models.Block) []int64 {
	ordered := make([]models.Block, 0, len(blocks))
	for _, b := range blocks {
		if !b.IsDistractor {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CorrectPosition != ordered[j].CorrectPosition {
			return ordered[i].CorrectPosition < ordered[j].CorrectPosition
		}
		return ordered[i].ID < ordered[j].ID
	})

	ids := make([]int64, len(ordered))
	for i, b := range ordered {
		ids[i] = b.ID
	}
	return ids
}

func validateBlocks(set *models.BlockSet, ans *models.BlockAnswer, points int) *models.Verdict {
	expected := correctBlockOrder(set.Blocks)

	correct := len(expected) == len(ans.BlockOrder)
	for i := 0; correct && i < len(expected); i++ {
		correct = expected[i] == ans.BlockOrder[i]
	}

	if correct {
		return &models.Verdict{
			IsCorrect:   true,
			Message:     "¡Correcto! Has completado el código correctamente.",
			Explanation: "Has ordenado los bloques correctamente.",
			Points:      points,
		}
	}
	return &models.Verdict{
		Message:     "Incorrecto. Revisa el orden de los bloques.",
		Explanation: "Verifica que los bloques estén en el orden correcto según el código esperado.",
	}
}

func validateCode(spec *models.CodeSpec, ans *models.CodeAnswer, points int) *models.Verdict {
	submitted := codenorm.ExtractDeclarations(ans.Code)
	expected := codenorm.ExtractDeclarations(spec.ExpectedSolution)

	if codenorm.Equal(submitted, expected) {
		return &models.Verdict{
			IsCorrect:   true,
			Message:     "¡Correcto! Tu código es correcto.",
			Explanation: "Has escrito todas las declaraciones de variables correctamente.",
			Points:      points,
		}
	}

	var explanation string
	if len(submitted) != len(expected) {
		explanation = fmt.Sprintf("Se esperaban %d declaración(es), pero encontraste %d. ", len(expected), len(submitted))
	} else {
		explanation = "Las declaraciones no coinciden exactamente. "
	}
	if spec.Hint != "" {
		explanation += spec.Hint
	} else {
		explanation += "Asegúrate de escribir todas las variables con el tipo, nombre y valor correctos."
	}

	return &models.Verdict{
		Message:     "Incorrecto. Revisa tu solución.",
		Explanation: explanation,
	}
}
