// Package ledger applies attempts and lesson completions to progress rows.
// The functions only mutate the row they are given; persisting it and
// crediting the returned points is up to the caller, inside one transaction.
package ledger

import (
	"time"

	"learnpath/internal/models"
	"learnpath/internal/scoring"
)

// Attempt is a validated answer ready to be recorded
type Attempt struct {
	Correct bool
	Points  int
	Answer  string
	At      time.Time
}

// NewPracticeProgress returns the row for a pair that has no record yet
func NewPracticeProgress(userID, practiceID int64) *models.PracticeProgress {
	return &models.PracticeProgress{UserID: userID, PracticeID: practiceID}
}

// ApplyAttempt records a on p and returns the points to credit to the user.
// Points are returned only on the first transition into Completed, and only
// if none were awarded for this practice before.
func ApplyAttempt(p *models.PracticeProgress, a Attempt) (credit int) {
	firstAttempt := p.Attempts == 0

	p.Attempts++
	p.LastAnswer = a.Answer
	at := a.At
	p.LastAttemptAt = &at

	if !a.Correct {
		return 0
	}
	if firstAttempt {
		p.CorrectOnFirstAttempt = true
	}
	if p.Completed {
		return 0
	}

	p.Completed = true
	completedAt := a.At
	p.CompletedAt = &completedAt

	if p.PointsAwarded == 0 && a.Points > 0 {
		p.PointsAwarded = a.Points
		return a.Points
	}
	return 0
}

// NewLessonProgress returns the row for a pair that has no record yet
func NewLessonProgress(userID, lessonID int64) *models.LessonProgress {
	return &models.LessonProgress{UserID: userID, LessonID: lessonID}
}

// CompleteLesson marks p completed and returns the points to credit, which
// is non-zero only the first time. The access time is always refreshed.
func CompleteLesson(p *models.LessonProgress, now time.Time) (credit int) {
	accessed := now
	p.LastAccessedAt = &accessed

	if p.Completed {
		return 0
	}
	p.Completed = true
	completedAt := now
	p.CompletedAt = &completedAt
	return scoring.LessonCompletionPoints
}

// TouchLesson refreshes the last access time
func TouchLesson(p *models.LessonProgress, now time.Time) {
	accessed := now
	p.LastAccessedAt = &accessed
}
