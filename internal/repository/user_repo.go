package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"learnpath/internal/database"
	"learnpath/internal/models"
	"learnpath/internal/scoring"
)

// UserRepository handles database operations for users and reset tokens
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository that runs its queries inside tx
func (r *UserRepository) WithTx(tx *database.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

const userColumns = `id, username, email, password_hash, full_name, photo_url,
	points_total, level, registered_at, last_login_at, active`

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.PhotoURL,
		&user.PointsTotal,
		&user.Level,
		&user.RegisteredAt,
		&lastLogin,
		&user.Active,
	)
	if err != nil {
		return nil, err
	}
	user.LastLoginAt = timePtr(lastLogin)
	return user, nil
}

// CreateUser inserts a new user with zero points at level 1
func (r *UserRepository) CreateUser(ctx context.Context, username, email, passwordHash, fullName string) (*models.User, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (username, email, password_hash, full_name, photo_url, points_total, level, registered_at, active)
		VALUES (?, ?, ?, ?, '', 0, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, username, email, passwordHash, fullName, scoring.Level(0), now, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Level:        scoring.Level(0),
		RegisteredAt: now,
		Active:       true,
	}, nil
}

// RestoreUser inserts a user record as exported, keeping its hash, points
// and timestamps. The stored level is recomputed from the points.
func (r *UserRepository) RestoreUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, full_name, photo_url, points_total, level, registered_at, last_login_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	u.PointsTotal, u.Level = scoring.Credit(u.PointsTotal, 0)
	id, err := r.db.ExecReturningID(ctx, query, u.Username, u.Email, u.PasswordHash, u.FullName, u.PhotoURL,
		u.PointsTotal, u.Level, u.RegisteredAt, nullTime(u.LastLoginAt), u.Active)
	if err != nil {
		return fmt.Errorf("failed to restore user %s: %w", u.Username, err)
	}
	u.ID = id
	return nil
}

func (r *UserRepository) getUser(ctx context.Context, where string, args ...interface{}) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "email = ?", email)
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, "username = ?", username)
}

// GetUserByLogin retrieves a user whose email or username equals login
func (r *UserRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.getUser(ctx, "email = ? OR username = ?", login, login)
}

// GetAllUsers retrieves all users
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateProfile updates the editable profile fields
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, email, fullName, photoURL string) error {
	query := "UPDATE users SET email = ?, full_name = ?, photo_url = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, email, fullName, photoURL, id); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE users SET last_login_at = ? WHERE id = ?", at, id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// CreditPoints adds delta to the user's total and recomputes the level.
// Run it inside the transaction that recorded the award.
func (r *UserRepository) CreditPoints(ctx context.Context, id int64, delta int) (total, level int, err error) {
	query := "SELECT points_total FROM users WHERE id = ?" + r.db.GetDialect().LockClause()
	var current int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&current); err != nil {
		return 0, 0, fmt.Errorf("failed to read points: %w", err)
	}

	total, level = scoring.Credit(current, delta)
	if _, err := r.db.ExecContext(ctx, "UPDATE users SET points_total = ?, level = ? WHERE id = ?", total, level, id); err != nil {
		return 0, 0, fmt.Errorf("failed to credit points: %w", err)
	}
	return total, level, nil
}

// CreatePasswordResetToken stores a reset token for a user
func (r *UserRepository) CreatePasswordResetToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	query := `
		INSERT INTO password_reset_tokens (token, user_id, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, token, userID, expiresAt, false, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

// GetPasswordResetToken retrieves a reset token
func (r *UserRepository) GetPasswordResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	query := `
		SELECT token, user_id, expires_at, created_at, used
		FROM password_reset_tokens
		WHERE token = ?
	`
	t := &models.PasswordResetToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt, &t.Used)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return t, nil
}

// MarkPasswordResetTokenUsed consumes a token. It reports false when the
// token was already used.
func (r *UserRepository) MarkPasswordResetTokenUsed(ctx context.Context, token string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "UPDATE password_reset_tokens SET used = ? WHERE token = ? AND used = ?", true, token, false)
	if err != nil {
		return false, fmt.Errorf("failed to mark reset token used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read reset token result: %w", err)
	}
	return n == 1, nil
}

// DeleteExpiredPasswordResetTokens removes expired or used tokens
func (r *UserRepository) DeleteExpiredPasswordResetTokens(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE expires_at < ? OR used = ?", time.Now().UTC(), true)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return result.RowsAffected()
}
