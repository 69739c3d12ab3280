package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signInTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booktracker",
			Subsystem: "auth",
			Name:      "signin_total",
			Help:      "Sign-in attempts by outcome.",
		},
		[]string{"outcome"},
	)
	signUpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booktracker",
			Subsystem: "auth",
			Name:      "signup_total",
			Help:      "Sign-up attempts by outcome.",
		},
		[]string{"outcome"},
	)
	tokenRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booktracker",
			Subsystem: "auth",
			Name:      "token_rejected_total",
			Help:      "Bearer tokens rejected by reason.",
		},
		[]string{"reason"},
	)
)

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrTooManyAttempts):
		return "throttled"
	case errors.Is(err, ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrRoleRegistryCorrupt):
		return "role_registry_corrupt"
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "invalid_input"
	}
	return "error"
}

func tokenReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenInvalidSignature):
		return "invalid_signature"
	default:
		return "malformed"
	}
}
