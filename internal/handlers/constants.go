package handlers

const (
	ErrInvalidJSON          = "Cuerpo de la solicitud inválido"
	ErrInvalidID            = "Identificador inválido"
	ErrUnauthorized         = "No autorizado"
	ErrInvalidCredentials   = "Credenciales inválidas"
	ErrNotFound             = "Recurso no encontrado"
	ErrConflict             = "El recurso ya existe o está en uso"
	ErrValidation           = "Datos inválidos"
	ErrTooManyRequests      = "Demasiadas solicitudes, intenta más tarde"
	ErrInternalServerError  = "Error interno del servidor"
	MsgPasswordResetSent    = "Si el correo está registrado, recibirás un enlace para restablecer tu contraseña"
	MsgPasswordResetDone    = "Contraseña restablecida correctamente"
	MsgPasswordChanged      = "Contraseña actualizada correctamente"
	maxRequestBodyBytes     = 1 << 20
	includeInactiveQueryKey = "includeInactive"
)
