package errors

// Error codes for standardized error responses
const (
	// Authentication / credential errors
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeCredentialExpired      = "credential_expired"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"

	// Resource errors
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeExamNotFound    = "exam_not_found"

	// Session lifecycle errors
	ErrCodeInvalidExam        = "invalid_exam"
	ErrCodeSessionNotActive   = "session_not_active"
	ErrCodeSessionCompleted   = "session_completed"
	ErrCodeSubmitInFlight     = "submit_in_flight"
	ErrCodeEmptySubmission    = "empty_submission_unconfirmed"
	ErrCodeSubmitFailed       = "submit_failed"
	ErrCodeNavigationRejected = "navigation_rejected"

	// Server errors
	ErrCodeInternalError  = "internal_error"
	ErrCodeUpstreamError  = "upstream_error"
	ErrCodeArchiveMissing = "archive_not_configured"
)
