package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", NewAlreadyPendingError("app-1"))

	assert.Equal(t, ErrCodeAlreadyPending, CodeOf(wrapped))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("boom")))
	assert.True(t, HasCode(wrapped, ErrCodeAlreadyPending))
	assert.False(t, HasCode(nil, ErrCodeAlreadyPending))
}

func TestStandardError_IsMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewNotPendingError("app-1", "ACCEPT"))

	assert.True(t, stderrors.Is(err, NewNotPendingError("other", "REJECT")))
	assert.False(t, stderrors.Is(err, NewNotFoundError("app-1")))
}

func TestInfraErrorsUnwrapCause(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")

	err := NewStoreUnavailableError("insert", cause)
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Error(), "connection refused")

	timeout := NewLockTimeoutError("PROJECT_1", 1500*time.Millisecond, cause)
	assert.Equal(t, "waited: 1.5s, cause: dial tcp: connection refused", timeout.Details)
}

func TestIsBusinessError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NewSelfApplyError(1), true},
		{NewProjectClosedError(1, "COMPLETE"), true},
		{NewAlreadyRejectedError("a"), true},
		{NewUnauthorizedError("x"), true},
		{NewInvalidInputError("x"), true},
		{NewStoreUnavailableError("x", nil), false},
		{NewLockUnavailableError("k", nil), false},
		{NewLockTimeoutError("k", time.Second, nil), false},
		{stderrors.New("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(CodeOf(tt.err)), func(t *testing.T) {
			assert.Equal(t, tt.want, IsBusinessError(tt.err))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"not found is renamed", NewNotFoundError("a-1"), "APPLICATION_NOT_FOUND", 0},
		{"business never retries", NewAlreadyPendingError("a-1"), "ALREADY_PENDING", 0},
		{"store retries", NewStoreUnavailableError("insert", stderrors.New("eof")), "STORE_UNAVAILABLE", 3},
		{"lock timeout retries", NewLockTimeoutError("PROJECT_1", time.Second, nil), "LOCK_TIMEOUT", 2},
		{"unmapped keeps code", Normalize(stderrors.New("panic")), "INTERNAL_ERROR", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestBPMNError_ToErrorVariables(t *testing.T) {
	stdErr := NewAlreadyPendingError("a-1").WithMetadata("constraint", "project_applies_user_id_project_id_key")

	vars := ConvertToBPMNError(stdErr).ToErrorVariables()

	assert.Equal(t, "ALREADY_PENDING", vars["errorCode"])
	assert.Equal(t, "applicationId: a-1", vars["errorDetails"])
	assert.Equal(t, false, vars["retryable"])
	assert.Equal(t, "project_applies_user_id_project_id_key", vars["constraint"])
}

func TestNormalize(t *testing.T) {
	original := NewProjectNotFoundError(7)
	assert.Same(t, original, Normalize(fmt.Errorf("lookup: %w", original)))

	plain := stderrors.New("unexpected")
	normalized := Normalize(plain)
	require.NotNil(t, normalized)
	assert.Equal(t, ErrCodeInternal, normalized.Code)
	assert.False(t, normalized.Retryable)
	assert.True(t, stderrors.Is(normalized, plain))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "LOCK", GetErrorCategory(ErrCodeLockTimeout))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeStoreUnavailable))
	assert.Equal(t, "APPLY_RULE", GetErrorCategory(ErrCodeSelfApply))
	assert.Equal(t, "APPLY_RULE", GetErrorCategory(ErrCodeAlreadyAccepted))
	assert.Equal(t, "AUTHORIZATION", GetErrorCategory(ErrCodeUnauthorized))
	assert.Equal(t, "TRANSITION", GetErrorCategory(ErrCodeNotPending))
	assert.Equal(t, "LOOKUP", GetErrorCategory(ErrCodeProjectNotFound))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
