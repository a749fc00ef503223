// Package errors provides the typed failures of the project application
// workflow and their mapping onto BPMN job errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Business rule violations. Never retried.
const (
	ErrCodeSelfApply       ErrorCode = "SELF_APPLY"
	ErrCodeProjectClosed   ErrorCode = "PROJECT_CLOSED"
	ErrCodeAlreadyPending  ErrorCode = "ALREADY_PENDING"
	ErrCodeAlreadyAccepted ErrorCode = "ALREADY_ACCEPTED"
	ErrCodeAlreadyRejected ErrorCode = "ALREADY_REJECTED"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeNotPending      ErrorCode = "NOT_PENDING"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"

	ErrCodeProjectNotFound ErrorCode = "PROJECT_NOT_FOUND"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
)

// Infrastructure failures. Surfaced separately so they are never mistaken for
// a business rule violation.
const (
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeLockUnavailable  ErrorCode = "LOCK_UNAVAILABLE"
	ErrCodeLockTimeout      ErrorCode = "LOCK_TIMEOUT"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the internal error format shared by every worker.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying driver or client error, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any *StandardError carrying the same code, so
// errors.Is(err, errors.New...(…)) style comparisons work on codes alone.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError represents an error thrown to the Camunda engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the variables set on the process when the error
// is thrown.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 2. Constructors
// ==========================

func newBusinessError(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func newInfraError(code ErrorCode, message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewSelfApplyError(projectID int64) *StandardError {
	return newBusinessError(ErrCodeSelfApply, "Cannot apply to your own project",
		fmt.Sprintf("projectId: %d", projectID))
}

func NewProjectClosedError(projectID int64, status string) *StandardError {
	return newBusinessError(ErrCodeProjectClosed, "Project is no longer recruiting",
		fmt.Sprintf("projectId: %d, status: %s", projectID, status))
}

func NewAlreadyPendingError(applicationID string) *StandardError {
	return newBusinessError(ErrCodeAlreadyPending, "Application is already pending",
		fmt.Sprintf("applicationId: %s", applicationID))
}

func NewAlreadyAcceptedError(applicationID string) *StandardError {
	return newBusinessError(ErrCodeAlreadyAccepted, "Application has already been accepted",
		fmt.Sprintf("applicationId: %s", applicationID))
}

func NewAlreadyRejectedError(applicationID string) *StandardError {
	return newBusinessError(ErrCodeAlreadyRejected, "Application has already been rejected",
		fmt.Sprintf("applicationId: %s", applicationID))
}

func NewUnauthorizedError(details string) *StandardError {
	return newBusinessError(ErrCodeUnauthorized, "Requester is not allowed to perform this action", details)
}

func NewNotPendingError(applicationID, status string) *StandardError {
	return newBusinessError(ErrCodeNotPending, "Application is not pending",
		fmt.Sprintf("applicationId: %s, status: %s", applicationID, status))
}

func NewNotFoundError(applicationID string) *StandardError {
	return newBusinessError(ErrCodeNotFound, "Application not found",
		fmt.Sprintf("applicationId: %s", applicationID))
}

func NewProjectNotFoundError(projectID int64) *StandardError {
	return newBusinessError(ErrCodeProjectNotFound, "Project not found",
		fmt.Sprintf("projectId: %d", projectID))
}

func NewInvalidInputError(details string) *StandardError {
	return newBusinessError(ErrCodeInvalidInput, "Job variables failed validation", details)
}

func NewStoreUnavailableError(operation string, err error) *StandardError {
	return newInfraError(ErrCodeStoreUnavailable,
		fmt.Sprintf("Application store %s failed", operation), err)
}

func NewLockUnavailableError(key string, err error) *StandardError {
	return newInfraError(ErrCodeLockUnavailable,
		fmt.Sprintf("Lock service unavailable for %s", key), err)
}

func NewLockTimeoutError(key string, waited time.Duration, err error) *StandardError {
	e := newInfraError(ErrCodeLockTimeout,
		fmt.Sprintf("Timed out waiting for lock %s", key), err)
	e.Details = fmt.Sprintf("waited: %s", waited)
	if err != nil {
		e.Details += ", cause: " + err.Error()
	}
	return e
}

// ==========================
// 3. Inspection helpers
// ==========================

// CodeOf returns the code of the first *StandardError in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsBusinessError reports whether err is a rule violation rather than an
// infrastructure failure.
func IsBusinessError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeStoreUnavailable, ErrCodeLockUnavailable, ErrCodeLockTimeout, ErrCodeInternal:
		return false
	default:
		return true
	}
}

// ==========================
// 4. BPMN mapping
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeSelfApply:        "SELF_APPLY",
	ErrCodeProjectClosed:    "PROJECT_CLOSED",
	ErrCodeAlreadyPending:   "ALREADY_PENDING",
	ErrCodeAlreadyAccepted:  "ALREADY_ACCEPTED",
	ErrCodeAlreadyRejected:  "ALREADY_REJECTED",
	ErrCodeUnauthorized:     "UNAUTHORIZED",
	ErrCodeNotPending:       "NOT_PENDING",
	ErrCodeNotFound:         "APPLICATION_NOT_FOUND",
	ErrCodeProjectNotFound:  "PROJECT_NOT_FOUND",
	ErrCodeInvalidInput:     "INVALID_INPUT",
	ErrCodeStoreUnavailable: "STORE_UNAVAILABLE",
	ErrCodeLockUnavailable:  "LOCK_UNAVAILABLE",
	ErrCodeLockTimeout:      "LOCK_TIMEOUT",
}

// GetRetryCount returns how many times Zeebe should re-deliver a job that
// failed with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreUnavailable,
		ErrCodeLockUnavailable:
		return 3

	case ErrCodeLockTimeout:
		return 2 // contention usually clears within one TTL

	default:
		return 0 // Business errors: no retry
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "LOCK"):
		return "LOCK"
	case strings.HasPrefix(codeStr, "STORE"):
		return "DATABASE"
	case strings.HasPrefix(codeStr, "ALREADY") || code == ErrCodeSelfApply || code == ErrCodeProjectClosed:
		return "APPLY_RULE"
	case code == ErrCodeUnauthorized:
		return "AUTHORIZATION"
	case code == ErrCodeNotPending:
		return "TRANSITION"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "LOOKUP"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
