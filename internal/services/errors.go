// Package services defines the business logic of the emotional-support
// pipeline: quota gating, emotion classification, language detection, and
// response orchestration. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

var (
	// ErrMissingUser is returned when a request carries no user identity.
	ErrMissingUser = errors.New("user id is required")

	// ErrEmptyMessage is returned when a chat request contains an empty or
	// whitespace-only message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrQuotaExceeded is returned when the user's daily request budget is
	// spent. The caller should surface a retry-tomorrow hint.
	ErrQuotaExceeded = errors.New("daily limit reached")
)
