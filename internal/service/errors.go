package service

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrBadInput            = errors.New("bad input")
	ErrConflict            = errors.New("conflict")
	ErrInvalidExerciseType = errors.New("invalid exercise type")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
)
