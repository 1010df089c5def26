// Package domain contains entities without logic, just meta-data and sentinel errors.
package domain

import "errors"

var (
	ErrRoomConflict   = errors.New("room already exists")
	ErrRoomNotFound   = errors.New("room not found")
	ErrAuthentication = errors.New("invalid password")
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
)
