package repository

import (
	"context"
	"database/sql"
	"fmt"

	"learnpath/internal/database"
	"learnpath/internal/models"
)

// ProgressRepository persists the per-user progress ledger
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// WithTx returns a repository that runs its queries inside tx
func (r *ProgressRepository) WithTx(tx *database.Tx) *ProgressRepository {
	return &ProgressRepository{db: tx}
}

// CompletionCount is a total and how many of it a user completed
type CompletionCount struct {
	Total     int
	Completed int
}

const practiceProgressColumns = `id, user_id, practice_id, attempts, completed, correct_first_attempt,
	points_awarded, last_answer, last_attempt_at, completed_at`

func scanPracticeProgress(row rowScanner) (*models.PracticeProgress, error) {
	p := &models.PracticeProgress{}
	var lastAttempt, completedAt sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &p.PracticeID, &p.Attempts, &p.Completed, &p.CorrectOnFirstAttempt,
		&p.PointsAwarded, &p.LastAnswer, &lastAttempt, &completedAt)
	if err != nil {
		return nil, err
	}
	p.LastAttemptAt = timePtr(lastAttempt)
	p.CompletedAt = timePtr(completedAt)
	return p, nil
}

func (r *ProgressRepository) getPracticeProgress(ctx context.Context, lock string, userID, practiceID int64) (*models.PracticeProgress, error) {
	query := "SELECT " + practiceProgressColumns + " FROM practice_progress WHERE user_id = ? AND practice_id = ?" + lock
	p, err := scanPracticeProgress(r.db.QueryRowContext(ctx, query, userID, practiceID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get practice progress: %w", err)
	}
	return p, nil
}

// GetPracticeProgress retrieves the ledger row for (user, practice)
func (r *ProgressRepository) GetPracticeProgress(ctx context.Context, userID, practiceID int64) (*models.PracticeProgress, error) {
	return r.getPracticeProgress(ctx, "", userID, practiceID)
}

// GetPracticeProgressForUpdate retrieves the ledger row and locks it until
// the surrounding transaction ends
func (r *ProgressRepository) GetPracticeProgressForUpdate(ctx context.Context, userID, practiceID int64) (*models.PracticeProgress, error) {
	return r.getPracticeProgress(ctx, r.db.GetDialect().LockClause(), userID, practiceID)
}

// SavePracticeProgress inserts p when it has no ID yet, otherwise updates it
func (r *ProgressRepository) SavePracticeProgress(ctx context.Context, p *models.PracticeProgress) error {
	if p.ID == 0 {
		query := `
			INSERT INTO practice_progress (user_id, practice_id, attempts, completed, correct_first_attempt,
				points_awarded, last_answer, last_attempt_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		id, err := r.db.ExecReturningID(ctx, query, p.UserID, p.PracticeID, p.Attempts, p.Completed, p.CorrectOnFirstAttempt,
			p.PointsAwarded, p.LastAnswer, nullTime(p.LastAttemptAt), nullTime(p.CompletedAt))
		if err != nil {
			return fmt.Errorf("failed to create practice progress: %w", err)
		}
		p.ID = id
		return nil
	}

	query := `
		UPDATE practice_progress
		SET attempts = ?, completed = ?, correct_first_attempt = ?, points_awarded = ?,
			last_answer = ?, last_attempt_at = ?, completed_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query, p.Attempts, p.Completed, p.CorrectOnFirstAttempt, p.PointsAwarded,
		p.LastAnswer, nullTime(p.LastAttemptAt), nullTime(p.CompletedAt), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update practice progress: %w", err)
	}
	return nil
}

// ListPracticeProgress returns every practice ledger row of a user
func (r *ProgressRepository) ListPracticeProgress(ctx context.Context, userID int64) ([]models.PracticeProgress, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+practiceProgressColumns+" FROM practice_progress WHERE user_id = ? ORDER BY practice_id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query practice progress: %w", err)
	}
	defer rows.Close()

	var out []models.PracticeProgress
	for rows.Next() {
		p, err := scanPracticeProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan practice progress: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

const lessonProgressColumns = "id, user_id, lesson_id, completed, completed_at, last_accessed_at"

func scanLessonProgress(row rowScanner) (*models.LessonProgress, error) {
	p := &models.LessonProgress{}
	var completedAt, lastAccessed sql.NullTime
	if err := row.Scan(&p.ID, &p.UserID, &p.LessonID, &p.Completed, &completedAt, &lastAccessed); err != nil {
		return nil, err
	}
	p.CompletedAt = timePtr(completedAt)
	p.LastAccessedAt = timePtr(lastAccessed)
	return p, nil
}

func (r *ProgressRepository) getLessonProgress(ctx context.Context, lock string, userID, lessonID int64) (*models.LessonProgress, error) {
	query := "SELECT " + lessonProgressColumns + " FROM lesson_progress WHERE user_id = ? AND lesson_id = ?" + lock
	p, err := scanLessonProgress(r.db.QueryRowContext(ctx, query, userID, lessonID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}
	return p, nil
}

// GetLessonProgress retrieves the ledger row for (user, lesson)
func (r *ProgressRepository) GetLessonProgress(ctx context.Context, userID, lessonID int64) (*models.LessonProgress, error) {
	return r.getLessonProgress(ctx, "", userID, lessonID)
}

// GetLessonProgressForUpdate retrieves the ledger row and locks it until the
// surrounding transaction ends
func (r *ProgressRepository) GetLessonProgressForUpdate(ctx context.Context, userID, lessonID int64) (*models.LessonProgress, error) {
	return r.getLessonProgress(ctx, r.db.GetDialect().LockClause(), userID, lessonID)
}

// SaveLessonProgress inserts p when it has no ID yet, otherwise updates it
func (r *ProgressRepository) SaveLessonProgress(ctx context.Context, p *models.LessonProgress) error {
	if p.ID == 0 {
		query := `
			INSERT INTO lesson_progress (user_id, lesson_id, completed, completed_at, last_accessed_at)
			VALUES (?, ?, ?, ?, ?)
		`
		id, err := r.db.ExecReturningID(ctx, query, p.UserID, p.LessonID, p.Completed, nullTime(p.CompletedAt), nullTime(p.LastAccessedAt))
		if err != nil {
			return fmt.Errorf("failed to create lesson progress: %w", err)
		}
		p.ID = id
		return nil
	}

	query := "UPDATE lesson_progress SET completed = ?, completed_at = ?, last_accessed_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, p.Completed, nullTime(p.CompletedAt), nullTime(p.LastAccessedAt), p.ID); err != nil {
		return fmt.Errorf("failed to update lesson progress: %w", err)
	}
	return nil
}

// ListLessonProgress returns every lesson ledger row of a user
func (r *ProgressRepository) ListLessonProgress(ctx context.Context, userID int64) ([]models.LessonProgress, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+lessonProgressColumns+" FROM lesson_progress WHERE user_id = ? ORDER BY lesson_id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson progress: %w", err)
	}
	defer rows.Close()

	var out []models.LessonProgress
	for rows.Next() {
		p, err := scanLessonProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson progress: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CompletedLessonIDs returns the IDs of the lessons a user completed
func (r *ProgressRepository) CompletedLessonIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT lesson_id FROM lesson_progress WHERE user_id = ? AND completed = ? ORDER BY lesson_id", userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed lessons: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lesson id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountCompletedLessons counts the lessons a user completed
func (r *ProgressRepository) CountCompletedLessons(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lesson_progress WHERE user_id = ? AND completed = ?", userID, true).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed lessons: %w", err)
	}
	return n, nil
}

// CountCompletedPractices counts the practices a user completed
func (r *ProgressRepository) CountCompletedPractices(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM practice_progress WHERE user_id = ? AND completed = ?", userID, true).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed practices: %w", err)
	}
	return n, nil
}

func (r *ProgressRepository) countsByCourse(ctx context.Context, query string, args ...interface{}) (map[int64]CompletionCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query course counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]CompletionCount)
	for rows.Next() {
		var courseID int64
		var c CompletionCount
		if err := rows.Scan(&courseID, &c.Total, &c.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan course counts: %w", err)
		}
		counts[courseID] = c
	}
	return counts, rows.Err()
}

// LessonCountsByCourse returns, per active course, the number of active
// lessons and how many of them the user completed
func (r *ProgressRepository) LessonCountsByCourse(ctx context.Context, userID int64) (map[int64]CompletionCount, error) {
	query := `
		SELECT c.id, COUNT(l.id), COUNT(lp.id)
		FROM courses c
		LEFT JOIN lessons l ON l.course_id = c.id AND l.active = ?
		LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = ? AND lp.completed = ?
		WHERE c.active = ?
		GROUP BY c.id
	`
	return r.countsByCourse(ctx, query, true, userID, true, true)
}

// PracticeCountsByCourse returns, per course, the number of active practices
// in its active lessons and how many of them the user completed
func (r *ProgressRepository) PracticeCountsByCourse(ctx context.Context, userID int64) (map[int64]CompletionCount, error) {
	query := `
		SELECT l.course_id, COUNT(p.id), COUNT(pp.id)
		FROM lessons l
		JOIN practices p ON p.lesson_id = l.id AND p.active = ?
		LEFT JOIN practice_progress pp ON pp.practice_id = p.id AND pp.user_id = ? AND pp.completed = ?
		WHERE l.active = ?
		GROUP BY l.course_id
	`
	return r.countsByCourse(ctx, query, true, userID, true, true)
}
