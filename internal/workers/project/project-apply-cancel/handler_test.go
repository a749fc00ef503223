// internal/workers/project/project-apply-cancel/handler_test.go
package projectapplycancel

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"devhive-workers/internal/common/errors"
	"devhive-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCanceller struct {
	mock.Mock
}

func (m *MockCanceller) Cancel(ctx context.Context, userID, projectID int64) (bool, error) {
	args := m.Called(ctx, userID, projectID)
	return args.Bool(0), args.Error(1)
}

func setupHandler(t *testing.T) (*Handler, *MockCanceller) {
	wf := new(MockCanceller)
	return NewHandler(LoadConfig(), wf, nil, logger.NewTestLogger(t)), wf
}

func TestHandler_Execute_Cancelled(t *testing.T) {
	handler, wf := setupHandler(t)
	wf.On("Cancel", mock.Anything, int64(1), int64(100)).Return(true, nil)

	output, err := handler.Execute(context.Background(), &Input{UserID: 1, ProjectID: 100})

	require.NoError(t, err)
	assert.True(t, output.Cancelled)
	wf.AssertExpectations(t)
}

func TestHandler_Execute_NothingToCancel(t *testing.T) {
	handler, wf := setupHandler(t)
	wf.On("Cancel", mock.Anything, int64(1), int64(100)).Return(false, nil)

	output, err := handler.Execute(context.Background(), &Input{UserID: 1, ProjectID: 100})

	require.NoError(t, err)
	assert.False(t, output.Cancelled)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.ErrorCode
	}{
		{"not pending", errors.NewNotPendingError("app-1", "ACCEPT"), errors.ErrCodeNotPending},
		{"store down", errors.NewStoreUnavailableError("delete", stderrors.New("connection reset")), errors.ErrCodeStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, wf := setupHandler(t)
			wf.On("Cancel", mock.Anything, int64(1), int64(100)).Return(false, tt.err)

			output, err := handler.Execute(context.Background(), &Input{UserID: 1, ProjectID: 100})

			assert.Nil(t, output)
			assert.Equal(t, tt.want, errors.CodeOf(err))
		})
	}
}

func TestHandler_Execute_UsesCallerDeadline(t *testing.T) {
	handler, wf := setupHandler(t)
	wf.On("Cancel", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), int64(1), int64(100)).Return(true, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := handler.Execute(ctx, &Input{UserID: 1, ProjectID: 100})
	require.NoError(t, err)
	wf.AssertExpectations(t)
}
