package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestDialectBasics(t *testing.T) {
	tests := []struct {
		name       string
		dialect    Dialect
		driver     string
		lastInsert bool
		subdir     string
		lock       string
	}{
		{"sqlite", NewSQLiteDialect(), "sqlite3", true, "sqlite", ""},
		{"postgres", NewPostgresDialect(), "postgres", false, "postgres", " FOR UPDATE"},
		{"pgx", NewPgxDialect(), "pgx", false, "postgres", " FOR UPDATE"},
		{"mysql", NewMySQLDialect(), "mysql", true, "mysql", " FOR UPDATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %v, want %v", got, tt.driver)
			}
			if got := tt.dialect.SupportsLastInsertId(); got != tt.lastInsert {
				t.Errorf("SupportsLastInsertId() = %v, want %v", got, tt.lastInsert)
			}
			if got := tt.dialect.MigrationsSubdir(); got != tt.subdir {
				t.Errorf("MigrationsSubdir() = %v, want %v", got, tt.subdir)
			}
			if got := tt.dialect.LockClause(); got != tt.lock {
				t.Errorf("LockClause() = %q, want %q", got, tt.lock)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		input   string
		driver  string
		wantErr bool
	}{
		{"", "sqlite3", false},
		{"sqlite", "sqlite3", false},
		{"PostgreSQL", "postgres", false},
		{"pgx", "pgx", false},
		{"mysql", "mysql", false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := DialectFor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DialectFor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && d.DriverName() != tt.driver {
				t.Errorf("DialectFor(%q) driver = %v, want %v", tt.input, d.DriverName(), tt.driver)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		config   DialectConfig
		expected string
	}{
		{
			name:     "SQLite plain path",
			dialect:  NewSQLiteDialect(),
			config:   DialectConfig{Path: "app.db"},
			expected: "app.db?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate",
		},
		{
			name:     "SQLite path with params",
			dialect:  NewSQLiteDialect(),
			config:   DialectConfig{Path: "file:app.db?cache=shared"},
			expected: "file:app.db?cache=shared&_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate",
		},
		{
			name:     "MySQL adds parseTime",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "user:pw@tcp(db:3306)/learnpath"},
			expected: "user:pw@tcp(db:3306)/learnpath?parseTime=true",
		},
		{
			name:     "MySQL keeps explicit parseTime",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "user:pw@tcp(db:3306)/learnpath?parseTime=false"},
			expected: "user:pw@tcp(db:3306)/learnpath?parseTime=false",
		},
		{
			name:     "PostgreSQL passes URL through",
			dialect:  NewPostgresDialect(),
			config:   DialectConfig{URL: "postgres://localhost/learnpath"},
			expected: "postgres://localhost/learnpath",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DSN(tt.config); got != tt.expected {
				t.Errorf("DSN() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM routes WHERE id = ?",
			expected: "SELECT * FROM routes WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM routes WHERE id = ?",
			expected: "SELECT * FROM routes WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPgxDialect(),
			query:    "INSERT INTO courses (route_id, name) VALUES (?, ?)",
			expected: "INSERT INTO courses (route_id, name) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE lessons SET title = ?, sort_order = ? WHERE id = ?",
			expected: "UPDATE lessons SET title = ?, sort_order = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{"sqlite unique", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite foreign key", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, false},
		{"pq unique", NewPostgresDialect(), &pq.Error{Code: "23505"}, true},
		{"pgx unique", NewPgxDialect(), fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pgx not null", NewPgxDialect(), &pgconn.PgError{Code: "23502"}, false},
		{"mysql duplicate", NewMySQLDialect(), &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", NewMySQLDialect(), &mysql.MySQLError{Number: 1452}, false},
		{"plain error", NewPostgresDialect(), errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsWriteConflict(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{"sqlite unique", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite busy", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrBusy}, false},
		{"pq deadlock", NewPostgresDialect(), &pq.Error{Code: "40P01"}, true},
		{"pgx serialization", NewPgxDialect(), fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), true},
		{"pgx unique", NewPgxDialect(), &pgconn.PgError{Code: "23505"}, true},
		{"pgx not null", NewPgxDialect(), &pgconn.PgError{Code: "23502"}, false},
		{"mysql duplicate", NewMySQLDialect(), &mysql.MySQLError{Number: 1062}, true},
		{"mysql deadlock", NewMySQLDialect(), fmt.Errorf("insert progress: %w", &mysql.MySQLError{Number: 1213}), true},
		{"mysql foreign key", NewMySQLDialect(), &mysql.MySQLError{Number: 1452}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.IsWriteConflict(tt.err); got != tt.want {
				t.Errorf("IsWriteConflict() = %v, want %v", got, tt.want)
			}
		})
	}

	// A deadlock is not a duplicate; profile and catalog writes keep the narrow check.
	if NewMySQLDialect().IsUniqueViolation(&mysql.MySQLError{Number: 1213}) {
		t.Error("IsUniqueViolation() = true for deadlock, want false")
	}
}
