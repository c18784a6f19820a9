package service

import "errors"

var (
	ErrValidation          = errors.New("username and password are required")
	ErrConflict            = errors.New("user already exist")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserInactive        = errors.New("account disabled")
	ErrUserNotFound        = errors.New("user not found")
)
