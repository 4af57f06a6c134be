package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"learnpath/internal/database"
	"learnpath/internal/ledger"
	"learnpath/internal/models"
	"learnpath/internal/repository"
	"learnpath/internal/security"
)

// ProgressService records lesson completion and reports progress rollups
type ProgressService struct {
	db           *database.DB
	contentRepo  *repository.ContentRepository
	progressRepo *repository.ProgressRepository
	userRepo     *repository.UserRepository
	locks        *security.KeyedMutex
	now          func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(
	db *database.DB,
	contentRepo *repository.ContentRepository,
	progressRepo *repository.ProgressRepository,
	userRepo *repository.UserRepository,
	locks *security.KeyedMutex,
) *ProgressService {
	return &ProgressService{
		db:           db,
		contentRepo:  contentRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		locks:        locks,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func lessonKey(userID, lessonID int64) string {
	return fmt.Sprintf("lesson:%d:%d", userID, lessonID)
}

func (s *ProgressService) activeLesson(ctx context.Context, lessonID int64) error {
	lesson, err := s.contentRepo.GetLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if lesson == nil || !lesson.Active {
		return fmt.Errorf("%w: lesson %d", ErrNotFound, lessonID)
	}
	return nil
}

// updateLesson runs apply on the user's lesson row under the per-key lock and
// a transaction, crediting whatever it returns
func (s *ProgressService) updateLesson(ctx context.Context, userID, lessonID int64, apply func(*models.LessonProgress) int) (*models.LessonProgress, error) {
	if err := s.activeLesson(ctx, lessonID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(lessonKey(userID, lessonID))
	defer unlock()

	var progress *models.LessonProgress
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		progressRepo := s.progressRepo.WithTx(tx)

		var err error
		progress, err = progressRepo.GetLessonProgressForUpdate(ctx, userID, lessonID)
		if err != nil {
			return err
		}
		if progress == nil {
			progress = ledger.NewLessonProgress(userID, lessonID)
		}

		credit := apply(progress)
		if err := progressRepo.SaveLessonProgress(ctx, progress); err != nil {
			return err
		}
		if credit == 0 {
			return nil
		}

		total, level, err := s.userRepo.WithTx(tx).CreditPoints(ctx, userID, credit)
		if err != nil {
			return err
		}
		log.Printf("User %d credited %d points for lesson %d (total=%d, level=%d)", userID, credit, lessonID, total, level)
		return nil
	})
	if err != nil {
		if s.db.Dialect.IsWriteConflict(err) {
			return nil, fmt.Errorf("%w: concurrent update for lesson %d", ErrConflict, lessonID)
		}
		return nil, err
	}
	return progress, nil
}

// CompleteLesson marks a lesson completed, crediting its points the first time
func (s *ProgressService) CompleteLesson(ctx context.Context, userID, lessonID int64) (*models.LessonProgress, error) {
	now := s.now()
	return s.updateLesson(ctx, userID, lessonID, func(p *models.LessonProgress) int {
		return ledger.CompleteLesson(p, now)
	})
}

// TouchLesson records an access to a lesson
func (s *ProgressService) TouchLesson(ctx context.Context, userID, lessonID int64) (*models.LessonProgress, error) {
	now := s.now()
	return s.updateLesson(ctx, userID, lessonID, func(p *models.LessonProgress) int {
		ledger.TouchLesson(p, now)
		return 0
	})
}

// LessonProgress returns the user's row for a lesson, or an empty row when
// the lesson was never accessed
func (s *ProgressService) LessonProgress(ctx context.Context, userID, lessonID int64) (*models.LessonProgress, error) {
	if err := s.activeLesson(ctx, lessonID); err != nil {
		return nil, err
	}
	p, err := s.progressRepo.GetLessonProgress(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = ledger.NewLessonProgress(userID, lessonID)
	}
	return p, nil
}

// PracticeProgress returns the user's row for a practice, or an empty row
// when the practice was never attempted
func (s *ProgressService) PracticeProgress(ctx context.Context, userID, practiceID int64) (*models.PracticeProgress, error) {
	p, err := s.progressRepo.GetPracticeProgress(ctx, userID, practiceID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = ledger.NewPracticeProgress(userID, practiceID)
	}
	return p, nil
}

// CompletedLessonIDs returns the ids of every lesson the user completed
func (s *ProgressService) CompletedLessonIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.progressRepo.CompletedLessonIDs(ctx, userID)
}

// Stats summarizes the user's progress
func (s *ProgressService) Stats(ctx context.Context, userID int64) (*models.UserStats, error) {
	var (
		stats models.UserStats
		user  *models.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.userRepo.GetUserByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.LessonsCompleted, err = s.progressRepo.CountCompletedLessons(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.PracticesCompleted, err = s.progressRepo.CountCompletedPractices(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	stats.PointsTotal = user.PointsTotal
	stats.Level = user.Level
	return &stats, nil
}

// percent returns part/total as a percentage rounded to two decimals
func percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

// contentSnapshot is the active catalog plus the user's per-course counts
type contentSnapshot struct {
	routes         []models.Route
	courses        []models.Course
	lessonCounts   map[int64]repository.CompletionCount
	practiceCounts map[int64]repository.CompletionCount
}

func (s *ProgressService) snapshot(ctx context.Context, userID int64) (*contentSnapshot, error) {
	snap := &contentSnapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.routes, err = s.contentRepo.ListRoutes(gctx, false)
		return err
	})
	g.Go(func() error {
		var err error
		snap.courses, err = s.contentRepo.ListCourses(gctx, false)
		return err
	})
	g.Go(func() error {
		var err error
		snap.lessonCounts, err = s.progressRepo.LessonCountsByCourse(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.practiceCounts, err = s.progressRepo.PracticeCountsByCourse(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// courseCompleted reports whether every active lesson of a course is
// completed. A course without lessons is never completed.
func courseCompleted(c repository.CompletionCount) bool {
	return c.Total > 0 && c.Completed >= c.Total
}

func (snap *contentSnapshot) routeProgress() []models.RouteProgress {
	type tally struct{ completed, total int }
	tallies := make(map[int64]*tally, len(snap.routes))
	for _, r := range snap.routes {
		tallies[r.ID] = &tally{}
	}
	for _, c := range snap.courses {
		t, ok := tallies[c.RouteID]
		if !ok {
			continue
		}
		t.total++
		if courseCompleted(snap.lessonCounts[c.ID]) {
			t.completed++
		}
	}

	out := make([]models.RouteProgress, 0, len(snap.routes))
	for _, r := range snap.routes {
		t := tallies[r.ID]
		out = append(out, models.RouteProgress{
			RouteID:          r.ID,
			Name:             r.Name,
			Percent:          percent(t.completed, t.total),
			CoursesCompleted: t.completed,
			TotalCourses:     t.total,
		})
	}
	return out
}

func (snap *contentSnapshot) courseProgress() []models.CourseProgress {
	routeNames := make(map[int64]string, len(snap.routes))
	for _, r := range snap.routes {
		routeNames[r.ID] = r.Name
	}

	out := make([]models.CourseProgress, 0, len(snap.courses))
	for _, c := range snap.courses {
		routeName, ok := routeNames[c.RouteID]
		if !ok {
			continue
		}
		lessons := snap.lessonCounts[c.ID]
		practices := snap.practiceCounts[c.ID]
		out = append(out, models.CourseProgress{
			CourseID:           c.ID,
			Name:               c.Name,
			RouteID:            c.RouteID,
			RouteName:          routeName,
			Percent:            percent(lessons.Completed, lessons.Total),
			LessonsCompleted:   lessons.Completed,
			TotalLessons:       lessons.Total,
			PracticesCompleted: practices.Completed,
			TotalPractices:     practices.Total,
		})
	}
	return out
}

// RouteProgress returns the completion rollup of every active route
func (s *ProgressService) RouteProgress(ctx context.Context, userID int64) ([]models.RouteProgress, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return snap.routeProgress(), nil
}

// CourseProgress returns the completion rollup of every active course in an
// active route
func (s *ProgressService) CourseProgress(ctx context.Context, userID int64) ([]models.CourseProgress, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return snap.courseProgress(), nil
}

// FullProgress returns stats, rollups and completed lessons in one call
func (s *ProgressService) FullProgress(ctx context.Context, userID int64) (*models.FullProgress, error) {
	var (
		full  models.FullProgress
		stats *models.UserStats
		snap  *contentSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.Stats(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap, err = s.snapshot(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		full.CompletedLessonIDs, err = s.progressRepo.CompletedLessonIDs(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	full.Stats = *stats
	full.Routes = snap.routeProgress()
	full.Courses = snap.courseProgress()
	return &full, nil
}
