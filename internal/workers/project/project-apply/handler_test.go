// internal/workers/project/project-apply/handler_test.go
package projectapply

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"devhive-workers/internal/apply"
	"devhive-workers/internal/common/database"
	"devhive-workers/internal/common/errors"
	"devhive-workers/internal/common/lock"
	"devhive-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var applyColumns = []string{"id", "project_id", "user_id", "status", "created_at", "updated_at"}

func setupHandler(t *testing.T) (*Handler, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewTestLogger(t)
	wf := apply.NewWorkflow(
		database.NewApplicationRepository(db),
		database.NewProjectRepository(db),
		lock.NewRedisLocker(rdb),
		apply.LockPolicy{RetryInterval: 10 * time.Millisecond},
		log,
	)

	return NewHandler(LoadConfig(), wf, nil, log), mock, mr
}

func expectProject(mock sqlmock.Sqlmock, id, owner int64, status string) {
	mock.ExpectQuery(`FROM projects WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status"}).AddRow(id, owner, status))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	handler, mock, mr := setupHandler(t)

	expectProject(mock, 100, 2, "RECRUITING")
	// duplicate check before and inside the lock
	mock.ExpectQuery(`FROM project_applies WHERE user_id = \$1 AND project_id = \$2`).
		WithArgs(int64(1), int64(100)).
		WillReturnRows(sqlmock.NewRows(applyColumns))
	mock.ExpectQuery(`FROM project_applies WHERE user_id = \$1 AND project_id = \$2`).
		WithArgs(int64(1), int64(100)).
		WillReturnRows(sqlmock.NewRows(applyColumns))
	mock.ExpectExec(`INSERT INTO project_applies`).
		WithArgs(sqlmock.AnyArg(), int64(100), int64(1), "PENDING", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{UserID: 1, ProjectID: 100})

	require.NoError(t, err)
	assert.NotEmpty(t, output.ApplicationID)
	assert.Equal(t, "PENDING", output.ApplicationStatus)

	_, err = time.Parse(time.RFC3339, output.CreatedAt)
	assert.NoError(t, err)

	assert.False(t, mr.Exists("PROJECT_100"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SelfApply(t *testing.T) {
	handler, mock, _ := setupHandler(t)

	expectProject(mock, 100, 2, "RECRUITING")

	output, err := handler.Execute(context.Background(), &Input{UserID: 2, ProjectID: 100})

	assert.Nil(t, output)
	assert.Equal(t, errors.ErrCodeSelfApply, errors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ProjectClosed(t *testing.T) {
	handler, mock, _ := setupHandler(t)

	expectProject(mock, 100, 2, "RECRUITMENT_COMPLETE")

	_, err := handler.Execute(context.Background(), &Input{UserID: 1, ProjectID: 100})

	assert.Equal(t, errors.ErrCodeProjectClosed, errors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_AlreadyApplied(t *testing.T) {
	tests := []struct {
		status string
		want   errors.ErrorCode
	}{
		{"PENDING", errors.ErrCodeAlreadyPending},
		{"ACCEPT", errors.ErrCodeAlreadyAccepted},
		{"REJECT", errors.ErrCodeAlreadyRejected},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			handler, mock, _ := setupHandler(t)
			now := time.Now().UTC()

			expectProject(mock, 100, 2, "RECRUITING")
			mock.ExpectQuery(`FROM project_applies WHERE user_id`).
				WithArgs(int64(1), int64(100)).
				WillReturnRows(sqlmock.NewRows(applyColumns).
					AddRow("6c1f7f3e-5a7e-4f53-9a53-0c4f5f7d2a11", 100, 1, tt.status, now, now))

			_, err := handler.Execute(context.Background(), &Input{UserID: 1, ProjectID: 100})

			assert.Equal(t, tt.want, errors.CodeOf(err))
			assert.True(t, errors.IsBusinessError(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_ProjectNotFound(t *testing.T) {
	handler, mock, _ := setupHandler(t)

	mock.ExpectQuery(`FROM projects`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status"}))

	_, err := handler.Execute(context.Background(), &Input{UserID: 1, ProjectID: 404})

	assert.Equal(t, errors.ErrCodeProjectNotFound, errors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InsertErrorReleasesLock(t *testing.T) {
	handler, mock, mr := setupHandler(t)

	expectProject(mock, 100, 2, "RECRUITING")
	mock.ExpectQuery(`FROM project_applies WHERE user_id`).
		WillReturnRows(sqlmock.NewRows(applyColumns))
	mock.ExpectQuery(`FROM project_applies WHERE user_id`).
		WillReturnRows(sqlmock.NewRows(applyColumns))
	mock.ExpectExec(`INSERT INTO project_applies`).
		WillReturnError(stderrors.New("database connection failed"))

	output, err := handler.Execute(context.Background(), &Input{UserID: 1, ProjectID: 100})

	assert.Nil(t, output)
	assert.Equal(t, errors.ErrCodeStoreUnavailable, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "database connection failed")
	assert.False(t, mr.Exists("PROJECT_100"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_LockHeldUntilTimeout(t *testing.T) {
	handler, mock, mr := setupHandler(t)
	require.NoError(t, mr.Set("PROJECT_100", "other-instance"))

	expectProject(mock, 100, 2, "RECRUITING")
	mock.ExpectQuery(`FROM project_applies WHERE user_id`).
		WillReturnRows(sqlmock.NewRows(applyColumns))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := handler.Execute(ctx, &Input{UserID: 1, ProjectID: 100})

	assert.Equal(t, errors.ErrCodeLockTimeout, errors.CodeOf(err))
	assert.Equal(t, 2, errors.GetRetryCount(errors.CodeOf(err)))

	got, getErr := mr.Get("PROJECT_100")
	require.NoError(t, getErr)
	assert.Equal(t, "other-instance", got, "foreign lock must be left alone")
	assert.NoError(t, mock.ExpectationsWereMet())
}
