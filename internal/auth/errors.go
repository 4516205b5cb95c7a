package auth

import "errors"

var (
	// Credential-class failures. These map to 401 and are deliberately
	// vague: unknown handle and wrong password are never distinguished.
	ErrNoCredentials      = errors.New("auth: no authentication credentials provided")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrSessionExpired     = errors.New("auth: session expired")

	// Header-shape failures. These map to 400 and may carry detail,
	// since they leak nothing about account existence.
	ErrNonASCIIHeader        = errors.New("auth: non-ASCII characters in authorization header")
	ErrBadHeaderSchemeData   = errors.New("auth: could not parse header auth scheme/data")
	ErrUnsupportedScheme     = errors.New("auth: unsupported header auth scheme, use Basic or Bearer")
	ErrBadCredentialEncoding = errors.New("auth: could not decode basic auth credentials")
	ErrNoBasicColonSplit     = errors.New("auth: basic auth payload is missing a colon between login and password")

	// Single-use login token failures.
	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrTokenExpired     = errors.New("auth: single-use login token has expired")
	ErrTokenAlreadyUsed = errors.New("auth: single-use login token has already been used")

	// Internal failures, surfaced to callers as a generic error.
	ErrHashing    = errors.New("auth: password hashing failed")
	ErrHashFormat = errors.New("auth: malformed password hash")

	// Store-level sentinels.
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
)
