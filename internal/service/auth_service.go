package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"learnpath/internal/database"
	"learnpath/internal/models"
	"learnpath/internal/repository"
	"learnpath/internal/security"
	"learnpath/internal/validation"
)

const passwordResetTTL = time.Hour

// RegisterRequest is the sign-up payload
type RegisterRequest struct {
	Username string `json:"nombreUsuario" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"nombreCompleto" validate:"max=100"`
}

// LoginRequest accepts either the email or the username in Login
type LoginRequest struct {
	Login    string `json:"emailOUsuario" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileRequest carries the editable profile fields
type ProfileRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	FullName string `json:"nombreCompleto" validate:"max=100"`
	PhotoURL string `json:"fotoPerfilUrl" validate:"omitempty,url,max=500"`
}

// ChangePasswordRequest changes the password of the signed-in user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"passwordActual" validate:"required"`
	NewPassword     string `json:"passwordNuevo" validate:"required,min=6,max=72"`
}

// ResetPasswordRequest consumes a reset token
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"passwordNuevo" validate:"required,min=6,max=72"`
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiracion"`
	User      *models.User `json:"usuario"`
}

// AuthService handles accounts, credentials and tokens
type AuthService struct {
	db       *database.DB
	userRepo *repository.UserRepository
	tokens   *security.TokenIssuer
	email    *EmailService
	now      func() time.Time
}

// NewAuthService creates a new auth service. email may be nil.
func NewAuthService(db *database.DB, userRepo *repository.UserRepository, tokens *security.TokenIssuer, email *EmailService) *AuthService {
	return &AuthService{
		db:       db,
		userRepo: userRepo,
		tokens:   tokens,
		email:    email,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Register creates a new account and signs it in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}
	existing, err = s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: username already taken", ErrConflict)
	}

	passwordHash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, req.Username, req.Email, passwordHash, req.FullName)
	if err != nil {
		if s.db.Dialect.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email or username already registered", ErrConflict)
		}
		return nil, err
	}
	log.Printf("User registered: id=%d username=%s", user.ID, user.Username)

	if s.email != nil {
		if err := s.email.SendWelcomeEmail(ctx, user.Email, displayName(user)); err != nil {
			log.Printf("Failed to send welcome email to user %d: %v", user.ID, err)
		}
	}

	return s.issue(user)
}

// Login checks credentials and returns a fresh token
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	login := strings.TrimSpace(req.Login)
	if strings.Contains(login, "@") {
		login = normalizeEmail(login)
	}
	user, err := s.userRepo.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active || !security.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return s.issue(user)
}

// AuthenticateToken resolves a bearer token to an active user
func (s *AuthService) AuthenticateToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, fmt.Errorf("%w: user %d not available", ErrUnauthorized, userID)
	}
	return user, nil
}

// Me returns the user with the given id
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return user, nil
}

// UpdateProfile saves email, full name and photo
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req ProfileRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Email != user.Email {
		other, err := s.userRepo.GetUserByEmail(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != userID {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, req.Email, req.FullName, req.PhotoURL); err != nil {
		if s.db.Dialect.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}

	user.Email = req.Email
	user.FullName = req.FullName
	user.PhotoURL = req.PhotoURL
	return user, nil
}

// ChangePassword replaces the password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !security.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return ErrInvalidCredentials
	}
	if req.CurrentPassword == req.NewPassword {
		return fmt.Errorf("%w: the new password must differ from the current one", ErrBadInput)
	}

	passwordHash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return err
	}

	if s.email != nil {
		if err := s.email.SendPasswordChangedEmail(ctx, user.Email, displayName(user)); err != nil {
			log.Printf("Failed to send password change notice to user %d: %v", user.ID, err)
		}
	}
	return nil
}

// RequestPasswordReset stores a reset token and emails it. Unknown or
// inactive addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || !user.Active {
		return nil
	}

	token := uuid.NewString()
	if err := s.userRepo.CreatePasswordResetToken(ctx, token, user.ID, s.now().Add(passwordResetTTL)); err != nil {
		return err
	}

	if s.email != nil {
		if err := s.email.SendPasswordResetEmail(ctx, user.Email, displayName(user), token); err != nil {
			return fmt.Errorf("failed to send reset email: %w", err)
		}
	}
	return nil
}

// ResetPassword sets a new password using a valid, unused token
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	resetToken, err := s.userRepo.GetPasswordResetToken(ctx, req.Token)
	if err != nil {
		return err
	}
	if resetToken == nil || resetToken.Used || s.now().After(resetToken.ExpiresAt) {
		return fmt.Errorf("%w: invalid or expired reset token", ErrBadInput)
	}

	passwordHash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		users := s.userRepo.WithTx(tx)
		consumed, err := users.MarkPasswordResetTokenUsed(ctx, req.Token)
		if err != nil {
			return err
		}
		if !consumed {
			return fmt.Errorf("%w: this reset link has already been used", ErrBadInput)
		}
		return users.UpdatePassword(ctx, resetToken.UserID, passwordHash)
	})
}

// CleanupExpiredPasswordResetTokens removes expired and used reset tokens
func (s *AuthService) CleanupExpiredPasswordResetTokens(ctx context.Context) (int64, error) {
	n, err := s.userRepo.DeleteExpiredPasswordResetTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup reset tokens: %w", err)
	}
	return n, nil
}

func displayName(u *models.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
