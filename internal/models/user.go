package models

import "time"

// User represents a learner account
type User struct {
	ID           int64      `json:"usuarioId"`
	Username     string     `json:"nombreUsuario"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"nombreCompleto"`
	PhotoURL     string     `json:"fotoPerfilUrl"`
	PointsTotal  int        `json:"puntosTotales"`
	Level        int        `json:"nivel"`
	RegisteredAt time.Time  `json:"fechaRegistro"`
	LastLoginAt  *time.Time `json:"ultimaConexion"`
	Active       bool       `json:"activo"`
}

// PasswordResetToken represents a token for password reset
type PasswordResetToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	Used      bool
}

// IsExpired checks if the reset token has expired
func (t *PasswordResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
