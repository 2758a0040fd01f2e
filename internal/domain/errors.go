package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Business conditions are returned as these values and never panic.
// Storage failures are wrapped with %w and passed through untouched.

var (
	// Lookup errors. Every specific not-found error matches ErrNotFound.
	ErrNotFound            = errors.New("not found")
	ErrChildNotFound       = fmt.Errorf("child %w", ErrNotFound)
	ErrActivityNotFound    = fmt.Errorf("activity %w", ErrNotFound)
	ErrActivityLogNotFound = fmt.Errorf("activity log %w", ErrNotFound)

	// Activity recording errors
	ErrAlreadyRecorded = errors.New("activity already recorded today")
	ErrCancelExpired   = errors.New("cancel window has expired")

	// Login bonus errors
	ErrAlreadyClaimed = errors.New("login bonus already claimed today")

	// Point errors
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidAmount      = errors.New("amount must be a positive multiple of the convert unit")

	// Evaluation errors
	ErrAlreadyEvaluated = errors.New("week already evaluated for child")
	ErrJobRunning       = errors.New("job already running")

	// Input errors
	ErrInvalidCategory = errors.New("unknown category")
	ErrInvalidInput    = errors.New("invalid input")
)

// Error codes surfaced to API clients.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyRecorded    = "ALREADY_RECORDED"
	CodeCancelExpired      = "CANCEL_EXPIRED"
	CodeAlreadyClaimed     = "ALREADY_CLAIMED"
	CodeInsufficientPoints = "INSUFFICIENT_POINTS"
	CodeAlreadyEvaluated   = "ALREADY_EVALUATED"
	CodeJobRunning         = "JOB_RUNNING"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorCode maps an error to its tagged failure code.
// Anything outside the business taxonomy is CodeInternal.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyRecorded):
		return CodeAlreadyRecorded
	case errors.Is(err, ErrCancelExpired):
		return CodeCancelExpired
	case errors.Is(err, ErrAlreadyClaimed):
		return CodeAlreadyClaimed
	case errors.Is(err, ErrInsufficientPoints):
		return CodeInsufficientPoints
	case errors.Is(err, ErrAlreadyEvaluated):
		return CodeAlreadyEvaluated
	case errors.Is(err, ErrJobRunning):
		return CodeJobRunning
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrInvalidInput):
		return CodeValidation
	default:
		return CodeInternal
	}
}
