// internal/workers/project/project-apply-accept/handler_test.go
package projectapplyaccept

import (
	"context"
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

const appID = "6c1f7f3e-5a7e-4f53-9a53-0c4f5f7d2a11"

var (
	created = time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)
	decided = created.Add(time.Hour)
)

func setupHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewTestLogger(t)
	wf := apply.NewWorkflow(
		database.NewApplicationRepository(db),
		database.NewProjectRepository(db),
		lock.NewRedisLocker(rdb),
		apply.LockPolicy{},
		log,
		apply.WithClock(func() time.Time { return decided }),
	)

	return NewHandler(LoadConfig(), wf, nil, log), mock
}

func expectApplication(mock sqlmock.Sqlmock, status string) {
	mock.ExpectQuery(`FROM project_applies WHERE id = \$1`).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "status", "created_at", "updated_at"}).
			AddRow(appID, 100, 1, status, created, created))
}

func expectProject(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`FROM projects WHERE id = \$1`).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status"}).AddRow(100, 2, "RECRUITING"))
}

func TestHandler_Execute_Success(t *testing.T) {
	handler, mock := setupHandler(t)

	expectApplication(mock, "PENDING")
	expectProject(mock)
	mock.ExpectExec(`UPDATE project_applies SET status = \$1, updated_at = \$2 WHERE id = \$3 AND status = \$4`).
		WithArgs("ACCEPT", decided, appID, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{UserID: 2, ApplicationID: appID})

	require.NoError(t, err)
	assert.Equal(t, appID, output.ApplicationID)
	assert.Equal(t, "ACCEPT", output.ApplicationStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NotOwner(t *testing.T) {
	handler, mock := setupHandler(t)

	expectApplication(mock, "PENDING")
	expectProject(mock)

	output, err := handler.Execute(context.Background(), &Input{UserID: 9, ApplicationID: appID})

	assert.Nil(t, output)
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet(), "no update may be issued")
}

func TestHandler_Execute_AlreadyDecided(t *testing.T) {
	handler, mock := setupHandler(t)

	expectApplication(mock, "REJECT")
	expectProject(mock)

	_, err := handler.Execute(context.Background(), &Input{UserID: 2, ApplicationID: appID})

	assert.Equal(t, errors.ErrCodeNotPending, errors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_LostRace(t *testing.T) {
	handler, mock := setupHandler(t)

	expectApplication(mock, "PENDING")
	expectProject(mock)
	mock.ExpectExec(`UPDATE project_applies`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM project_applies WHERE id = \$1`).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("REJECT"))

	_, err := handler.Execute(context.Background(), &Input{UserID: 2, ApplicationID: appID})

	assert.Equal(t, errors.ErrCodeNotPending, errors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UnknownApplication(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		query bool
	}{
		{"malformed id", "not-a-uuid", false},
		{"missing row", appID, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mock := setupHandler(t)
			if tt.query {
				mock.ExpectQuery(`FROM project_applies WHERE id = \$1`).
					WithArgs(tt.id).
					WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "status", "created_at", "updated_at"}))
			}

			_, err := handler.Execute(context.Background(), &Input{UserID: 2, ApplicationID: tt.id})

			assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
