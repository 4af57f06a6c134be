package models

import (
	"encoding/json"
	"time"
)

// ExerciseType selects which detail record a Practice carries
type ExerciseType string

const (
	ExerciseMultipleChoice ExerciseType = "MultipleChoice"
	ExerciseBlockAssembly  ExerciseType = "CompletarCodigo"
	ExerciseFreeCode       ExerciseType = "EscribirCodigo"
)

// Valid reports whether t is one of the known exercise types
func (t ExerciseType) Valid() bool {
	switch t {
	case ExerciseMultipleChoice, ExerciseBlockAssembly, ExerciseFreeCode:
		return true
	}
	return false
}

// Practice is a single exercise inside a Lesson
type Practice struct {
	ID        int64        `json:"PracticaId"`
	LessonID  int64        `json:"LeccionId"`
	Type      ExerciseType `json:"TipoEjercicio"`
	Title     string       `json:"Titulo"`
	Statement string       `json:"Enunciado"`
	Order     int          `json:"Orden"`
	Active    bool         `json:"Activo"`
	CreatedAt time.Time    `json:"FechaCreacion"`

	// Detail is *OptionSet, *BlockSet or *CodeSpec, matching Type.
	// Nil when the detail was not loaded or does not exist.
	Detail PracticeDetail `json:"-"`
}

// PracticeDetail is the type-specific half of a Practice
type PracticeDetail interface {
	ExerciseType() ExerciseType
}

// Option is one choice of a multiple-choice practice
type Option struct {
	ID          int64  `json:"OpcionId"`
	PracticeID  int64  `json:"PracticaId"`
	Text        string `json:"TextoOpcion"`
	IsCorrect   bool   `json:"EsCorrecta"`
	Order       int    `json:"Orden"`
	Explanation string `json:"Explicacion"`
}

// OptionSet holds the options of a MultipleChoice practice
type OptionSet struct {
	Options []Option
}

func (*OptionSet) ExerciseType() ExerciseType { return ExerciseMultipleChoice }

// Block is one draggable code fragment of a block assembly practice
type Block struct {
	ID              int64  `json:"BloqueId"`
	PracticeID      int64  `json:"PracticaId"`
	BaseCode        string `json:"CodigoBase"`
	DisplayOrder    int    `json:"OrdenBloque"`
	Text            string `json:"TextoBloque"`
	CorrectPosition int    `json:"PosicionCorrecta"`
	IsDistractor    bool   `json:"EsDistractor"`
}

// BlockSet holds the blocks of a CompletarCodigo practice
type BlockSet struct {
	Blocks []Block
}

func (*BlockSet) ExerciseType() ExerciseType { return ExerciseBlockAssembly }

// CodeSpec is the expected solution of an EscribirCodigo practice
type CodeSpec struct {
	ID               int64  `json:"PracticaCodigoId"`
	PracticeID       int64  `json:"PracticaId"`
	BaseCode         string `json:"CodigoBase"`
	ExpectedSolution string `json:"SolucionEsperada"`
	TestCases        string `json:"CasosPrueba"`
	Hint             string `json:"PistaOpcional"`
}

func (*CodeSpec) ExerciseType() ExerciseType { return ExerciseFreeCode }

// MarshalJSON flattens the detail into Opciones, Bloques or Codigo
func (p Practice) MarshalJSON() ([]byte, error) {
	type practiceFields Practice
	out := struct {
		practiceFields
		Options []Option  `json:"Opciones,omitempty"`
		Blocks  []Block   `json:"Bloques,omitempty"`
		Code    *CodeSpec `json:"Codigo,omitempty"`
	}{practiceFields: practiceFields(p)}

	switch d := p.Detail.(type) {
	case *OptionSet:
		out.Options = d.Options
	case *BlockSet:
		out.Blocks = d.Blocks
	case *CodeSpec:
		out.Code = d
	}
	return json.Marshal(out)
}

// Redacted returns a copy safe to show to learners: correctness flags,
// explanations, block positions and expected solutions are cleared.
func (p *Practice) Redacted() *Practice {
	cp := *p
	switch d := p.Detail.(type) {
	case *OptionSet:
		opts := make([]Option, len(d.Options))
		for i, o := range d.Options {
			opts[i] = Option{ID: o.ID, PracticeID: o.PracticeID, Text: o.Text, Order: o.Order}
		}
		cp.Detail = &OptionSet{Options: opts}
	case *BlockSet:
		blocks := make([]Block, len(d.Blocks))
		for i, b := range d.Blocks {
			blocks[i] = Block{ID: b.ID, PracticeID: b.PracticeID, BaseCode: b.BaseCode, DisplayOrder: b.DisplayOrder, Text: b.Text}
		}
		cp.Detail = &BlockSet{Blocks: blocks}
	case *CodeSpec:
		cp.Detail = &CodeSpec{ID: d.ID, PracticeID: d.PracticeID, BaseCode: d.BaseCode, Hint: d.Hint}
	}
	return &cp
}

// Answer is a submitted answer. Exactly one field must be set and it must
// match the practice's exercise type.
type Answer struct {
	MultipleChoice *ChoiceAnswer `json:"MultipleChoice,omitempty"`
	BlockAssembly  *BlockAnswer  `json:"CompletarCodigo,omitempty"`
	FreeCode       *CodeAnswer   `json:"EscribirCodigo,omitempty"`
}

type ChoiceAnswer struct {
	OptionID int64 `json:"OpcionId"`
}

type BlockAnswer struct {
	BlockOrder []int64 `json:"BloquesOrden"`
}

type CodeAnswer struct {
	Code string `json:"CodigoUsuario"`
}

// Variants lists the exercise types for which a payload is present
func (a Answer) Variants() []ExerciseType {
	var out []ExerciseType
	if a.MultipleChoice != nil {
		out = append(out, ExerciseMultipleChoice)
	}
	if a.BlockAssembly != nil {
		out = append(out, ExerciseBlockAssembly)
	}
	if a.FreeCode != nil {
		out = append(out, ExerciseFreeCode)
	}
	return out
}

// Verdict is the outcome of validating an Answer
type Verdict struct {
	IsCorrect   bool   `json:"EsCorrecta"`
	Message     string `json:"Mensaje"`
	Explanation string `json:"Explicacion"`
	Points      int    `json:"PuntosObtenidos"`
}
