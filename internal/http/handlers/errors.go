// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings returned in the `code` field
// of every error envelope. Clients branch on them: quota_exceeded and
// plan_required drive the upgrade flow, service_unavailable tells the chat UI
// the assistant is switched off rather than failing, and not_found covers
// both missing and foreign records so ownership is never leaked.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "quota_exceeded",
//	  "message": "free plan message limit reached"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeQuotaExceeded      = "quota_exceeded"
	ErrCodePlanRequired       = "plan_required"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeGenerationFailed   = "generation_failed"
	ErrCodeSweepInProgress    = "sweep_in_progress"
)
