package ledger

import (
	"testing"
	"time"
)

func attemptAt(correct bool, points int, minutes int) Attempt {
	return Attempt{
		Correct: correct,
		Points:  points,
		Answer:  "answer",
		At:      time.Date(2026, 1, 1, 10, minutes, 0, 0, time.UTC),
	}
}

func TestApplyAttemptFirstCorrect(t *testing.T) {
	p := NewPracticeProgress(1, 2)

	credit := ApplyAttempt(p, attemptAt(true, 10, 0))

	if credit != 10 {
		t.Errorf("credit = %d, want 10", credit)
	}
	if p.Attempts != 1 || !p.Completed || !p.CorrectOnFirstAttempt || p.PointsAwarded != 10 {
		t.Errorf("progress = %+v", p)
	}
	if p.CompletedAt == nil || p.LastAttemptAt == nil {
		t.Fatal("timestamps not set")
	}
}

func TestApplyAttemptRepeatCorrectCreditsOnce(t *testing.T) {
	p := NewPracticeProgress(1, 2)

	first := ApplyAttempt(p, attemptAt(true, 10, 0))
	completedAt := *p.CompletedAt
	second := ApplyAttempt(p, attemptAt(true, 10, 5))

	if first != 10 || second != 0 {
		t.Errorf("credits = (%d, %d), want (10, 0)", first, second)
	}
	if p.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", p.Attempts)
	}
	if !p.CompletedAt.Equal(completedAt) {
		t.Errorf("CompletedAt moved from %v to %v", completedAt, *p.CompletedAt)
	}
	if p.LastAttemptAt.Minute() != 5 {
		t.Errorf("LastAttemptAt = %v, want the second attempt time", *p.LastAttemptAt)
	}
	if p.PointsAwarded != 10 {
		t.Errorf("PointsAwarded = %d, want 10", p.PointsAwarded)
	}
}

func TestApplyAttemptCorrectAfterWrong(t *testing.T) {
	p := NewPracticeProgress(1, 2)

	if credit := ApplyAttempt(p, attemptAt(false, 0, 0)); credit != 0 {
		t.Errorf("wrong attempt credit = %d, want 0", credit)
	}
	if p.Completed || p.CompletedAt != nil {
		t.Error("wrong attempt completed the practice")
	}

	credit := ApplyAttempt(p, attemptAt(true, 15, 1))
	if credit != 15 {
		t.Errorf("credit = %d, want 15", credit)
	}
	if p.CorrectOnFirstAttempt {
		t.Error("CorrectOnFirstAttempt set although the first attempt was wrong")
	}
	if p.Attempts != 2 || !p.Completed {
		t.Errorf("progress = %+v", p)
	}
}

func TestApplyAttemptWrongAfterCompletedKeepsState(t *testing.T) {
	p := NewPracticeProgress(1, 2)
	ApplyAttempt(p, attemptAt(true, 20, 0))

	credit := ApplyAttempt(p, attemptAt(false, 0, 1))

	if credit != 0 {
		t.Errorf("credit = %d, want 0", credit)
	}
	if !p.Completed || !p.CorrectOnFirstAttempt || p.PointsAwarded != 20 {
		t.Errorf("completed state lost: %+v", p)
	}
	if p.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", p.Attempts)
	}
}

func TestApplyAttemptOverwritesLastAnswer(t *testing.T) {
	p := NewPracticeProgress(1, 2)
	ApplyAttempt(p, Attempt{Answer: "first", At: time.Now()})
	ApplyAttempt(p, Attempt{Answer: "second", At: time.Now()})

	if p.LastAnswer != "second" {
		t.Errorf("LastAnswer = %q, want second", p.LastAnswer)
	}
}

func TestApplyAttemptDoesNotReawardPreviousPoints(t *testing.T) {
	p := NewPracticeProgress(1, 2)
	p.Attempts = 3
	p.PointsAwarded = 10

	if credit := ApplyAttempt(p, attemptAt(true, 10, 0)); credit != 0 {
		t.Errorf("credit = %d, want 0 for a practice that already paid out", credit)
	}
	if !p.Completed {
		t.Error("practice not completed")
	}
}

func TestCompleteLesson(t *testing.T) {
	p := NewLessonProgress(1, 9)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	if credit := CompleteLesson(p, now); credit != 10 {
		t.Errorf("first credit = %d, want 10", credit)
	}
	if !p.Completed || p.CompletedAt == nil {
		t.Fatalf("progress = %+v", p)
	}

	later := now.Add(time.Hour)
	if credit := CompleteLesson(p, later); credit != 0 {
		t.Errorf("second credit = %d, want 0", credit)
	}
	if !p.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt moved to %v", *p.CompletedAt)
	}
	if !p.LastAccessedAt.Equal(later) {
		t.Errorf("LastAccessedAt = %v, want %v", *p.LastAccessedAt, later)
	}
}

func TestTouchLesson(t *testing.T) {
	p := NewLessonProgress(1, 9)
	now := time.Now()
	TouchLesson(p, now)

	if p.LastAccessedAt == nil || !p.LastAccessedAt.Equal(now) {
		t.Errorf("LastAccessedAt = %v, want %v", p.LastAccessedAt, now)
	}
	if p.Completed {
		t.Error("TouchLesson completed the lesson")
	}
}
