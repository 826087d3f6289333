package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), GormConfig())
	require.NoError(t, err)

	return New(gdb, gdb), mock
}

func TestDB_WithinTransaction_Commit(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaign_schedules SET status = $1 WHERE id = $2")).
		WithArgs("processing", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return db.Write(ctx).Exec("UPDATE campaign_schedules SET status = ? WHERE id = ?", "processing", int64(1)).Error
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_WithinTransaction_Rollback(t *testing.T) {
	db, mock := setupMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_WithinTransaction_Nested(t *testing.T) {
	db, mock := setupMockDB(t)

	// a nested call joins the outer transaction instead of opening a new one
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := db.WithinTransaction(context.Background(), func(ctx context.Context) error {
		outer := db.Write(ctx)
		return db.WithinTransaction(ctx, func(inner context.Context) error {
			assert.Same(t, outer, db.Read(inner))
			return nil
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfig_DSN(t *testing.T) {
	c := Config{User: "u", Host: "h", Port: "5432", Password: "p", Database: "d"}
	assert.Equal(t, "host=h user=u password=p dbname=d port=5432 sslmode=disable", c.DSN())
}

func TestConfig_DSN_SSLMode(t *testing.T) {
	c := Config{User: "u", Host: "h", Port: "5432", Password: "p", Database: "d", SSLMode: "require"}
	assert.Contains(t, c.DSN(), "sslmode=require")
	assert.NotContains(t, c.DSN(), "sslmode=disable")
}
