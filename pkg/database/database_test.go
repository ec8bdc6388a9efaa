package database_test

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/medflow/picking-service/pkg/database"
	"github.com/medflow/picking-service/pkg/errors"
	"github.com/medflow/picking-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return database.Wrap(sqlx.NewDb(raw, "postgres"), "wms, public", logger.Nop()), mock
}

func TestWithTenantRLS_SetsSessionAndCommits(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL search_path TO wms, public")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT set_config('app.current_tenant', $1, true)")).
		WithArgs("tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectCommit()

	err := db.WithTenantRLS(context.Background(), "tenant-1", func(ctx context.Context) error {
		var n int
		return sqlx.GetContext(ctx, db.Querier(ctx), &n, "SELECT 1")
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenantRLS_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL search_path TO wms, public")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT set_config('app.current_tenant', $1, true)")).
		WithArgs("tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	boom := fmt.Errorf("boom")
	err := db.WithTenantRLS(context.Background(), "tenant-1", func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerier_UsesPoolOutsideTransaction(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 2")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	var n int
	require.NoError(t, sqlx.GetContext(context.Background(), db.Querier(context.Background()), &n, "SELECT 2"))
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectPing()
	assert.Equal(t, "up", db.Health(context.Background())["status"])

	mock.ExpectPing().WillReturnError(fmt.Errorf("no route to host"))
	status := db.Health(context.Background())
	assert.Equal(t, "down", status["status"])
	assert.Equal(t, "no route to host", status["error"])
}

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"malformed uuid", &pq.Error{Code: "22P02"}, http.StatusBadRequest},
		{"connection failure", &pq.Error{Code: "08006"}, http.StatusServiceUnavailable},
		{"too many connections", &pq.Error{Code: "53300"}, http.StatusServiceUnavailable},
		{"admin shutdown", &pq.Error{Code: "57P01"}, http.StatusServiceUnavailable},
		{"statement timeout", &pq.Error{Code: "57014"}, http.StatusServiceUnavailable},
		{"wrapped pq error", fmt.Errorf("query: %w", &pq.Error{Code: "08001"}), http.StatusServiceUnavailable},
		{"unmapped pq code", &pq.Error{Code: "42P01"}, 0},
		{"not a pq error", fmt.Errorf("plain"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := database.MapPQError(tt.err)
			if tt.wantStatus == 0 {
				assert.Nil(t, appErr)
				return
			}
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			if tt.wantStatus == http.StatusServiceUnavailable {
				assert.True(t, errors.Is(appErr, errors.ErrUnavailable))
			}
		})
	}
}
