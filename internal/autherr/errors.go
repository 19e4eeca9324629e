// Package autherr holds the error kinds reported by the identity core.
package autherr

import (
	"errors"
	"net/http"
)

var (
	ErrDuplicatePhone            = errors.New("phone already registered")
	ErrDuplicateExternalIdentity = errors.New("external identity already linked")
	ErrPasswordMismatch          = errors.New("passwords do not match")
	ErrPasswordPolicy            = errors.New("password does not meet policy")
	ErrInvalidCredentials        = errors.New("invalid phone or password")
	ErrInvalidToken              = errors.New("invalid token")
	ErrUnknownSubject            = errors.New("token subject does not exist")
	ErrInsufficientRole          = errors.New("insufficient role")
	ErrFederationExchangeFailed  = errors.New("federation exchange failed")

	ErrUserNotFound = errors.New("user not found")
	ErrInvalidUser  = errors.New("invalid user record")
	ErrUnknownRole  = errors.New("unknown role")
)

type kind struct {
	err    error
	code   string
	status int
}

var kinds = []kind{
	{ErrDuplicatePhone, "duplicate_phone", http.StatusConflict},
	{ErrDuplicateExternalIdentity, "duplicate_external_identity", http.StatusConflict},
	{ErrPasswordMismatch, "password_mismatch", http.StatusBadRequest},
	{ErrPasswordPolicy, "password_policy", http.StatusBadRequest},
	{ErrInvalidCredentials, "invalid_credentials", http.StatusUnauthorized},
	{ErrInvalidToken, "invalid_token", http.StatusUnauthorized},
	{ErrUnknownSubject, "unknown_subject", http.StatusUnauthorized},
	{ErrInsufficientRole, "insufficient_role", http.StatusForbidden},
	{ErrFederationExchangeFailed, "federation_exchange_failed", http.StatusBadGateway},
	{ErrUserNotFound, "user_not_found", http.StatusNotFound},
	{ErrInvalidUser, "invalid_user", http.StatusBadRequest},
	{ErrUnknownRole, "unknown_role", http.StatusBadRequest},
}

// Code returns a stable machine-readable code for err, or "internal" when err
// is not one of the known kinds.
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal"
}

// Message returns the fixed client-facing text for err's kind. Wrapped
// detail such as provider responses or store errors is never included.
func Message(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.err.Error()
		}
	}
	return "internal error"
}

// HTTPStatus maps err to the status code handlers respond with.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}
