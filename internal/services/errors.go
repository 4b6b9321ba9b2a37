// Package services implements the HelloForever business logic: message and
// recipient management behind the quota gate, the delivery sweep, and the
// AI conversation flow. This file centralizes service-level error values so
// they can be returned consistently and mapped to HTTP results by handlers.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrUserNotFound indicates the caller's account does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when registering an email already in use.
	ErrEmailTaken = errors.New("email already registered")

	// ErrRecipientNotFound indicates the recipient does not exist or is owned
	// by someone else. The two cases are deliberately indistinguishable.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrDuplicateRecipient is returned when the caller already has a
	// recipient with the same email.
	ErrDuplicateRecipient = errors.New("recipient with this email already exists")

	// ErrMessageNotFound indicates the message does not exist or is not
	// accessible to the caller.
	ErrMessageNotFound = errors.New("message not found")

	// ErrAlreadyDelivered rejects edits to a delivered message.
	ErrAlreadyDelivered = errors.New("message already delivered")

	// ErrQuotaExceeded is returned when a FREE user is at the message cap.
	ErrQuotaExceeded = errors.New("free plan message limit reached")

	// ErrPlanRequired gates AI conversations behind a paid plan.
	ErrPlanRequired = errors.New("a paid plan is required")

	// ErrTrusteeNotFound indicates the caller has not named a trustee.
	ErrTrusteeNotFound = errors.New("trustee not found")

	// ErrConversationNotFound is returned for unknown access tokens.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrNotConfigured reports a missing or rejected external credential.
	ErrNotConfigured = errors.New("service not configured")

	// ErrNoResponse is returned when the responder produced no text.
	ErrNoResponse = errors.New("no response generated")

	// ErrGeneration wraps any other responder failure.
	ErrGeneration = errors.New("generation failed")

	// ErrSweepInProgress is returned when another sweep holds the lock.
	ErrSweepInProgress = errors.New("delivery sweep already in progress")
)

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
