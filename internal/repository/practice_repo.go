package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"learnpath/internal/database"
	"learnpath/internal/models"
)

// PracticeRepository handles practices and their type-specific details
type PracticeRepository struct {
	db database.DBTX
}

// NewPracticeRepository creates a new practice repository
func NewPracticeRepository(db database.DBTX) *PracticeRepository {
	return &PracticeRepository{db: db}
}

// WithTx returns a repository that runs its queries inside tx
func (r *PracticeRepository) WithTx(tx *database.Tx) *PracticeRepository {
	return &PracticeRepository{db: tx}
}

const practiceColumns = "id, lesson_id, exercise_type, title, statement, sort_order, active, created_at"

func scanPractice(row rowScanner) (*models.Practice, error) {
	p := &models.Practice{}
	var exerciseType string
	err := row.Scan(&p.ID, &p.LessonID, &exerciseType, &p.Title, &p.Statement, &p.Order, &p.Active, &p.CreatedAt)
	p.Type = models.ExerciseType(exerciseType)
	return p, err
}

func (r *PracticeRepository) queryPractices(ctx context.Context, query string, args ...interface{}) ([]models.Practice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query practices: %w", err)
	}

	var practices []models.Practice
	for rows.Next() {
		p, err := scanPractice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan practice: %w", err)
		}
		practices = append(practices, *p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate practices: %w", err)
	}

	// Details are loaded after the cursor is closed; a transaction holds a
	// single connection.
	for i := range practices {
		if err := r.loadDetail(ctx, &practices[i]); err != nil {
			return nil, err
		}
	}
	return practices, nil
}

// ListPracticesByLesson returns the practices of a lesson with their details
func (r *PracticeRepository) ListPracticesByLesson(ctx context.Context, lessonID int64, includeInactive bool) ([]models.Practice, error) {
	query := "SELECT " + practiceColumns + " FROM practices WHERE lesson_id = ?" + activeFilter(includeInactive) + " ORDER BY sort_order"
	return r.queryPractices(ctx, query, activeArgs(includeInactive, lessonID)...)
}

// ListPractices returns every practice with its details, grouped by
// exercise type and then by sort order
func (r *PracticeRepository) ListPractices(ctx context.Context, includeInactive bool) ([]models.Practice, error) {
	query := "SELECT " + practiceColumns + " FROM practices WHERE 1 = 1" + activeFilter(includeInactive) + " ORDER BY exercise_type, sort_order, id"
	return r.queryPractices(ctx, query, activeArgs(includeInactive)...)
}

func (r *PracticeRepository) getPractice(ctx context.Context, where string, args ...interface{}) (*models.Practice, error) {
	p, err := scanPractice(r.db.QueryRowContext(ctx, "SELECT "+practiceColumns+" FROM practices WHERE "+where, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get practice: %w", err)
	}
	return p, nil
}

// GetPractice retrieves a practice with its detail by ID
func (r *PracticeRepository) GetPractice(ctx context.Context, id int64) (*models.Practice, error) {
	p, err := r.getPractice(ctx, "id = ?", id)
	if err != nil || p == nil {
		return p, err
	}
	if err := r.loadDetail(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPracticeByOrder retrieves the practice of a lesson holding a sort
// order. The detail is not loaded.
func (r *PracticeRepository) GetPracticeByOrder(ctx context.Context, lessonID int64, order int) (*models.Practice, error) {
	return r.getPractice(ctx, "lesson_id = ? AND sort_order = ?", lessonID, order)
}

// loadDetail fills p.Detail for the practice's exercise type. Detail stays
// nil when no detail rows exist or the type is unknown.
func (r *PracticeRepository) loadDetail(ctx context.Context, p *models.Practice) error {
	switch p.Type {
	case models.ExerciseMultipleChoice:
		options, err := r.listOptions(ctx, p.ID)
		if err != nil {
			return err
		}
		if len(options) > 0 {
			p.Detail = &models.OptionSet{Options: options}
		}
	case models.ExerciseBlockAssembly:
		blocks, err := r.listBlocks(ctx, p.ID)
		if err != nil {
			return err
		}
		if len(blocks) > 0 {
			p.Detail = &models.BlockSet{Blocks: blocks}
		}
	case models.ExerciseFreeCode:
		spec, err := r.getCodeSpec(ctx, p.ID)
		if err != nil {
			return err
		}
		if spec != nil {
			p.Detail = spec
		}
	}
	return nil
}

func (r *PracticeRepository) listOptions(ctx context.Context, practiceID int64) ([]models.Option, error) {
	query := `
		SELECT id, practice_id, text, is_correct, sort_order, explanation
		FROM practice_options
		WHERE practice_id = ?
		ORDER BY sort_order, id
	`
	rows, err := r.db.QueryContext(ctx, query, practiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	var options []models.Option
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.PracticeID, &o.Text, &o.IsCorrect, &o.Order, &o.Explanation); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

func (r *PracticeRepository) listBlocks(ctx context.Context, practiceID int64) ([]models.Block, error) {
	query := `
		SELECT id, practice_id, base_code, display_order, text, correct_position, is_distractor
		FROM practice_blocks
		WHERE practice_id = ?
		ORDER BY display_order, id
	`
	rows, err := r.db.QueryContext(ctx, query, practiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.Block
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.ID, &b.PracticeID, &b.BaseCode, &b.DisplayOrder, &b.Text, &b.CorrectPosition, &b.IsDistractor); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (r *PracticeRepository) getCodeSpec(ctx context.Context, practiceID int64) (*models.CodeSpec, error) {
	query := `
		SELECT id, practice_id, base_code, expected_solution, test_cases, hint
		FROM practice_code_specs
		WHERE practice_id = ?
	`
	c := &models.CodeSpec{}
	err := r.db.QueryRowContext(ctx, query, practiceID).Scan(&c.ID, &c.PracticeID, &c.BaseCode, &c.ExpectedSolution, &c.TestCases, &c.Hint)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get code spec: %w", err)
	}
	return c, nil
}

// CreatePractice inserts p and its detail. Run it inside a transaction.
func (r *PracticeRepository) CreatePractice(ctx context.Context, p *models.Practice) error {
	p.CreatedAt = time.Now().UTC()
	query := `
		INSERT INTO practices (lesson_id, exercise_type, title, statement, sort_order, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, p.LessonID, string(p.Type), p.Title, p.Statement, p.Order, p.Active, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create practice: %w", err)
	}
	p.ID = id
	return r.insertDetail(ctx, p)
}

// UpdatePractice saves the practice fields and replaces its detail.
// Run it inside a transaction.
func (r *PracticeRepository) UpdatePractice(ctx context.Context, p *models.Practice) error {
	query := `
		UPDATE practices
		SET lesson_id = ?, exercise_type = ?, title = ?, statement = ?, sort_order = ?, active = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, p.LessonID, string(p.Type), p.Title, p.Statement, p.Order, p.Active, p.ID); err != nil {
		return fmt.Errorf("failed to update practice: %w", err)
	}
	if p.Detail == nil {
		return nil
	}
	for _, table := range []string{"practice_options", "practice_blocks", "practice_code_specs"} {
		if _, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE practice_id = ?", p.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return r.insertDetail(ctx, p)
}

func (r *PracticeRepository) insertDetail(ctx context.Context, p *models.Practice) error {
	switch d := p.Detail.(type) {
	case *models.OptionSet:
		for i := range d.Options {
			o := &d.Options[i]
			o.PracticeID = p.ID
			query := "INSERT INTO practice_options (practice_id, text, is_correct, sort_order, explanation) VALUES (?, ?, ?, ?, ?)"
			id, err := r.db.ExecReturningID(ctx, query, p.ID, o.Text, o.IsCorrect, o.Order, o.Explanation)
			if err != nil {
				return fmt.Errorf("failed to create option: %w", err)
			}
			o.ID = id
		}
	case *models.BlockSet:
		for i := range d.Blocks {
			b := &d.Blocks[i]
			b.PracticeID = p.ID
			query := `
				INSERT INTO practice_blocks (practice_id, base_code, display_order, text, correct_position, is_distractor)
				VALUES (?, ?, ?, ?, ?, ?)
			`
			id, err := r.db.ExecReturningID(ctx, query, p.ID, b.BaseCode, b.DisplayOrder, b.Text, b.CorrectPosition, b.IsDistractor)
			if err != nil {
				return fmt.Errorf("failed to create block: %w", err)
			}
			b.ID = id
		}
	case *models.CodeSpec:
		d.PracticeID = p.ID
		query := `
			INSERT INTO practice_code_specs (practice_id, base_code, expected_solution, test_cases, hint)
			VALUES (?, ?, ?, ?, ?)
		`
		id, err := r.db.ExecReturningID(ctx, query, p.ID, d.BaseCode, d.ExpectedSolution, d.TestCases, d.Hint)
		if err != nil {
			return fmt.Errorf("failed to create code spec: %w", err)
		}
		d.ID = id
	}
	return nil
}

// SetPracticeActive toggles the active flag
func (r *PracticeRepository) SetPracticeActive(ctx context.Context, id int64, active bool) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE practices SET active = ? WHERE id = ?", active, id); err != nil {
		return fmt.Errorf("failed to update practice: %w", err)
	}
	return nil
}

// DeletePractice removes a practice, its detail and its progress rows
func (r *PracticeRepository) DeletePractice(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM practices WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete practice: %w", err)
	}
	return nil
}
