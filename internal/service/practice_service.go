package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"learnpath/internal/database"
	"learnpath/internal/ledger"
	"learnpath/internal/models"
	"learnpath/internal/repository"
	"learnpath/internal/security"
)

// PracticeService validates answers and records them on the progress ledger
type PracticeService struct {
	db           *database.DB
	practiceRepo *repository.PracticeRepository
	progressRepo *repository.ProgressRepository
	userRepo     *repository.UserRepository
	validator    *AnswerValidator
	locks        *security.KeyedMutex
	now          func() time.Time
}

// NewPracticeService creates a new practice service. locks is shared with
// ProgressService so both serialize on the same keys.
func NewPracticeService(
	db *database.DB,
	practiceRepo *repository.PracticeRepository,
	progressRepo *repository.ProgressRepository,
	userRepo *repository.UserRepository,
	locks *security.KeyedMutex,
) *PracticeService {
	return &PracticeService{
		db:           db,
		practiceRepo: practiceRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		validator:    NewAnswerValidator(),
		locks:        locks,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func practiceKey(userID, practiceID int64) string {
	return fmt.Sprintf("practice:%d:%d", userID, practiceID)
}

// SubmitAnswer validates answer and records the attempt. Points are credited
// to the user at most once per practice. Nothing is written when the
// practice is missing or the answer does not fit it.
func (s *PracticeService) SubmitAnswer(ctx context.Context, userID, practiceID int64, answer models.Answer) (*models.Verdict, error) {
	practice, err := s.practiceRepo.GetPractice(ctx, practiceID)
	if err != nil {
		return nil, err
	}
	if practice == nil || !practice.Active {
		return nil, fmt.Errorf("%w: practice %d", ErrNotFound, practiceID)
	}

	verdict, err := s.validator.Validate(practice, answer)
	if err != nil {
		return nil, err
	}

	rawAnswer, err := json.Marshal(answer)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answer: %w", err)
	}

	unlock := s.locks.Lock(practiceKey(userID, practiceID))
	defer unlock()

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		progressRepo := s.progressRepo.WithTx(tx)

		progress, err := progressRepo.GetPracticeProgressForUpdate(ctx, userID, practiceID)
		if err != nil {
			return err
		}
		if progress == nil {
			progress = ledger.NewPracticeProgress(userID, practiceID)
		}

		credit := ledger.ApplyAttempt(progress, ledger.Attempt{
			Correct: verdict.IsCorrect,
			Points:  verdict.Points,
			Answer:  string(rawAnswer),
			At:      s.now(),
		})

		if err := progressRepo.SavePracticeProgress(ctx, progress); err != nil {
			return err
		}
		if credit == 0 {
			return nil
		}

		total, level, err := s.userRepo.WithTx(tx).CreditPoints(ctx, userID, credit)
		if err != nil {
			return err
		}
		log.Printf("User %d credited %d points for practice %d (total=%d, level=%d)", userID, credit, practiceID, total, level)
		return nil
	})
	if err != nil {
		if s.db.Dialect.IsWriteConflict(err) {
			return nil, fmt.Errorf("%w: concurrent submission for practice %d", ErrConflict, practiceID)
		}
		return nil, err
	}

	return verdict, nil
}
