package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource Errors
	ErrNotFound        = errors.New("resource not found") // General not found
	ErrSessionNotFound = errors.New("game session not found")
	ErrCatalogNotFound = errors.New("catalog entry not found")

	// Authentication Errors
	ErrUnauthorized = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden    = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Gameplay Errors
	ErrSessionAlreadyOver = errors.New("game session is already over")
	ErrUnknownGameKind    = errors.New("unknown game kind")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
