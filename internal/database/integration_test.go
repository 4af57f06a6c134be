package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{
		"users", "password_reset_tokens", "routes", "courses", "lessons", "practices",
		"practice_options", "practice_blocks", "practice_code_specs", "practice_progress", "lesson_progress",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running again must be a no-op
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("Second RunMigrations() error = %v", err)
	}
}

// TestDatabaseTransactions tests WithTx commit and rollback
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecReturningID(ctx, "INSERT INTO routes (name, sort_order) VALUES (?, ?)", "Fundamentos", 1)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() commit error = %v", err)
	}

	sentinel := errors.New("rollback please")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO routes (name, sort_order) VALUES (?, ?)", "Avanzado", 2); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx() error = %v, want sentinel", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM routes").Scan(&count); err != nil {
		t.Fatalf("Failed to count routes: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 route after rollback, got %d", count)
	}
}

// TestUniqueConstraint checks that the ledger key is enforced by the schema
func TestUniqueConstraint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	userID, err := db.ExecReturningID(ctx, "INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)", "ana", "ana@example.com", "x")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	routeID, _ := db.ExecReturningID(ctx, "INSERT INTO routes (name, sort_order) VALUES (?, ?)", "R", 1)
	courseID, _ := db.ExecReturningID(ctx, "INSERT INTO courses (route_id, name, sort_order) VALUES (?, ?, ?)", routeID, "C", 1)
	lessonID, err := db.ExecReturningID(ctx, "INSERT INTO lessons (course_id, title, sort_order) VALUES (?, ?, ?)", courseID, "L", 1)
	if err != nil {
		t.Fatalf("insert lesson: %v", err)
	}

	insert := "INSERT INTO lesson_progress (user_id, lesson_id) VALUES (?, ?)"
	if _, err := db.ExecContext(ctx, insert, userID, lessonID); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err = db.ExecContext(ctx, insert, userID, lessonID)
	if err == nil || !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("duplicate insert error = %v, want unique violation", err)
	}
}

// TestForeignKeysCascade checks that deleting a route removes its subtree
func TestForeignKeysCascade(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	routeID, _ := db.ExecReturningID(ctx, "INSERT INTO routes (name, sort_order) VALUES (?, ?)", "R", 1)
	if _, err := db.ExecReturningID(ctx, "INSERT INTO courses (route_id, name, sort_order) VALUES (?, ?, ?)", routeID, "C", 1); err != nil {
		t.Fatalf("insert course: %v", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM routes WHERE id = ?", routeID); err != nil {
		t.Fatalf("delete route: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses").Scan(&count); err != nil {
		t.Fatalf("count courses: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected courses to cascade, got %d", count)
	}
}
