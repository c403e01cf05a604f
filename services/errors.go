package services

import "fmt"

// Error codes surfaced through the API envelope.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeStaleTurn           = "STALE_TURN"
	CodeSessionAlreadyEnded = "SESSION_ALREADY_ENDED"
	CodeRevealConflict      = "REVEAL_CONFLICT"
	CodeModerationBlocked   = "MODERATION_BLOCKED"
	CodeUnavailable         = "UNAVAILABLE"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_ERROR"
)

// ServiceError is the uniform error carried from services to handlers.
// Fields hold field-level validation problems; Data carries the current
// authoritative state for retry-safe conflicts (e.g. a terminal session).
type ServiceError struct {
	Code    string
	Message string
	Status  int
	Fields  map[string]string
	Data    interface{}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func NewValidationError(message string, fields map[string]string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, Status: 400, Fields: fields}
}

func NewUnauthorizedError(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message, Status: 401}
}

func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message, Status: 404}
}

func NewConflictError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message, Status: 409}
}

// NewStaleTurnError rejects a turn whose sequence number does not match the
// session's current one. The current sequence rides along so the client can
// resubmit against fresh state.
func NewStaleTurnError(currentSeq int) *ServiceError {
	return &ServiceError{
		Code:    CodeStaleTurn,
		Message: fmt.Sprintf("turn sequence is stale, current is %d", currentSeq),
		Status:  409,
		Data:    map[string]interface{}{"current_seq": currentSeq},
	}
}

// NewSessionEndedError tells a late submitter the session is already terminal,
// carrying the authoritative final state instead of an opaque failure.
func NewSessionEndedError(session interface{}) *ServiceError {
	return &ServiceError{
		Code:    CodeSessionAlreadyEnded,
		Message: "session has already ended",
		Status:  409,
		Data:    session,
	}
}

func NewModerationBlockedError() *ServiceError {
	return &ServiceError{
		Code:    CodeModerationBlocked,
		Message: "message rejected by moderation",
		Status:  422,
	}
}

func NewUnavailableError(message string) *ServiceError {
	return &ServiceError{Code: CodeUnavailable, Message: message, Status: 503}
}
