package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"learnpath/internal/database"
	"learnpath/internal/models"
	"learnpath/internal/repository"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version          string                    `json:"version" yaml:"version"`
	ExportedAt       time.Time                 `json:"exported_at" yaml:"exported_at"`
	DatabaseType     string                    `json:"database_type" yaml:"database_type"`
	Catalog          Catalog                   `json:"catalog" yaml:"catalog"`
	Users            []UserBackup              `json:"users" yaml:"users"`
	PracticeProgress []models.PracticeProgress `json:"practice_progress" yaml:"practice_progress"`
	LessonProgress   []models.LessonProgress   `json:"lesson_progress" yaml:"lesson_progress"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID           int64      `json:"id" yaml:"id"`
	Username     string     `json:"username" yaml:"username"`
	Email        string     `json:"email" yaml:"email"`
	PasswordHash string     `json:"password_hash" yaml:"password_hash"`
	FullName     string     `json:"full_name" yaml:"full_name"`
	PhotoURL     string     `json:"photo_url" yaml:"photo_url"`
	PointsTotal  int        `json:"points_total" yaml:"points_total"`
	RegisteredAt time.Time  `json:"registered_at" yaml:"registered_at"`
	LastLoginAt  *time.Time `json:"last_login_at" yaml:"last_login_at"`
	Active       bool       `json:"active" yaml:"active"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db           *database.DB
	content      *ContentService
	userRepo     *repository.UserRepository
	progressRepo *repository.ProgressRepository
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, content *ContentService, userRepo *repository.UserRepository, progressRepo *repository.ProgressRepository) *BackupService {
	return &BackupService{db: db, content: content, userRepo: userRepo, progressRepo: progressRepo}
}

// Snapshot collects the catalog, the users and their progress
func (s *BackupService) Snapshot(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      "1.0",
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	catalog, err := s.content.ExportCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export catalog: %w", err)
	}
	backup.Catalog = *catalog

	users, err := s.userRepo.GetAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			FullName:     u.FullName,
			PhotoURL:     u.PhotoURL,
			PointsTotal:  u.PointsTotal,
			RegisteredAt: u.RegisteredAt,
			LastLoginAt:  u.LastLoginAt,
			Active:       u.Active,
		})

		practices, err := s.progressRepo.ListPracticeProgress(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to export practice progress: %w", err)
		}
		backup.PracticeProgress = append(backup.PracticeProgress, practices...)

		lessons, err := s.progressRepo.ListLessonProgress(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to export lesson progress: %w", err)
		}
		backup.LessonProgress = append(backup.LessonProgress, lessons...)
	}
	return backup, nil
}

// Export writes a complete backup to outputPath, as YAML when the path ends
// in .yaml or .yml and as JSON otherwise
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	log.Println("Starting database export...")

	backup, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := encodeFile(outputPath, backup); err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	log.Printf("Exported: %d routes, %d users, %d practice progress rows, %d lesson progress rows",
		len(backup.Catalog.Routes), len(backup.Users), len(backup.PracticeProgress), len(backup.LessonProgress))
	return nil
}

// Import restores a backup file into an empty database
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	var backup BackupData
	if err := decodeFile(inputPath, &backup); err != nil {
		return err
	}
	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	return s.Restore(ctx, &backup)
}

// Restore loads backup into the database. Every row gets a new ID and the
// progress rows are remapped onto them.
func (s *BackupService) Restore(ctx context.Context, backup *BackupData) error {
	ids, err := s.content.ImportCatalog(ctx, &backup.Catalog)
	if err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}

	log.Printf("Importing %d users...", len(backup.Users))
	userIDs := make(map[int64]int64, len(backup.Users))
	for _, u := range backup.Users {
		user := &models.User{
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			FullName:     u.FullName,
			PhotoURL:     u.PhotoURL,
			PointsTotal:  u.PointsTotal,
			RegisteredAt: u.RegisteredAt,
			LastLoginAt:  u.LastLoginAt,
			Active:       u.Active,
		}
		if err := s.userRepo.RestoreUser(ctx, user); err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
		userIDs[u.ID] = user.ID
	}

	log.Printf("Importing %d practice progress rows...", len(backup.PracticeProgress))
	for _, p := range backup.PracticeProgress {
		userID, okUser := userIDs[p.UserID]
		practiceID, okPractice := ids.Practices[p.PracticeID]
		if !okUser || !okPractice {
			log.Printf("Skipping practice progress %d: unknown user or practice", p.ID)
			continue
		}
		p.ID, p.UserID, p.PracticeID = 0, userID, practiceID
		if err := s.progressRepo.SavePracticeProgress(ctx, &p); err != nil {
			return fmt.Errorf("failed to import practice progress: %w", err)
		}
	}

	log.Printf("Importing %d lesson progress rows...", len(backup.LessonProgress))
	for _, p := range backup.LessonProgress {
		userID, okUser := userIDs[p.UserID]
		lessonID, okLesson := ids.Lessons[p.LessonID]
		if !okUser || !okLesson {
			log.Printf("Skipping lesson progress %d: unknown user or lesson", p.ID)
			continue
		}
		p.ID, p.UserID, p.LessonID = 0, userID, lessonID
		if err := s.progressRepo.SaveLessonProgress(ctx, &p); err != nil {
			return fmt.Errorf("failed to import lesson progress: %w", err)
		}
	}

	log.Println("Database import completed successfully")
	return nil
}
