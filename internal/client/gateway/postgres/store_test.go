package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	roleQuery   = `^SET LOCAL ROLE authenticated$`
	claimsQuery = `SELECT set_config\('request.jwt.claims', \$1, true\)`
)

func newStoreWithMock(t *testing.T, token string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, func() string { return token }, nil), mock
}

func TestSelect_BuildsScopedQuery(t *testing.T) {
	tok, err := gateway.SignToken("u1", "a@b.c", nil, time.Hour, time.Now(), []byte("k"))
	require.NoError(t, err)
	s, mock := newStoreWithMock(t, tok)

	mock.ExpectBegin()
	mock.ExpectExec(roleQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimsQuery).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)^SELECT coalesce\(json_agg\(t\), '\[\]'::json\) FROM \(SELECT \* FROM "tasks" WHERE "user_id"::text = \$1 ORDER BY "created_at" DESC LIMIT 3\) t$`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"json"}).AddRow([]byte(`[{"id":"t1","title":"a","priority":"low"}]`)))
	mock.ExpectCommit()

	var tasks []models.Task
	err = s.Select(context.Background(), gateway.TableTasks, gateway.Where("user_id", "u1").OrderBy("created_at", false).WithLimit(3), &tasks)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_AnonymousUsesEmptyClaims(t *testing.T) {
	s, mock := newStoreWithMock(t, "")

	mock.ExpectBegin()
	mock.ExpectExec(roleQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimsQuery).WithArgs("{}").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM \(SELECT \* FROM "moods"\) t$`).
		WillReturnRows(sqlmock.NewRows([]string{"json"}).AddRow([]byte(`[]`)))
	mock.ExpectCommit()

	var moods []models.Mood
	require.NoError(t, s.Select(context.Background(), gateway.TableMoods, gateway.Query{}, &moods))
	assert.Empty(t, moods)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_RejectsUnknownTable(t *testing.T) {
	s, mock := newStoreWithMock(t, "")

	err := s.Select(context.Background(), "pg_authid", gateway.Query{}, nil)
	require.True(t, gateway.IsQueryError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_UsesJSONPopulateRecord(t *testing.T) {
	s, mock := newStoreWithMock(t, "")

	mock.ExpectBegin()
	mock.ExpectExec(roleQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimsQuery).WithArgs("{}").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)^INSERT INTO "moods" AS t \("mood", "note", "user_id"\) SELECT "mood", "note", "user_id" FROM json_populate_record\(NULL::"moods", \$1\) RETURNING row_to_json\(t\)$`).
		WithArgs(`{"mood":"sad","note":null,"user_id":"u1"}`).
		WillReturnRows(sqlmock.NewRows([]string{"row_to_json"}).AddRow([]byte(`{"id":"m1","user_id":"u1","mood":"sad"}`)))
	mock.ExpectCommit()

	var m models.Mood
	require.NoError(t, s.Insert(context.Background(), gateway.TableMoods, models.NewMood{UserID: "u1", Mood: models.MoodSad}, &m))
	assert.Equal(t, "m1", m.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_DBErrorRollsBack(t *testing.T) {
	s, mock := newStoreWithMock(t, "")

	mock.ExpectBegin()
	mock.ExpectExec(roleQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimsQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "tasks"`).WillReturnError(errors.New("new row violates row-level security policy"))
	mock.ExpectRollback()

	err := s.Insert(context.Background(), gateway.TableTasks, models.NewTask{UserID: "u2", Title: "x", Priority: models.PriorityLow}, nil)
	require.Error(t, err)
	require.True(t, gateway.IsQueryError(err))
	require.Contains(t, err.Error(), "row-level security")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t, "")

	mock.ExpectBegin()
	mock.ExpectExec(roleQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimsQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)^UPDATE "tasks" AS t SET \("completed"\) = \(SELECT "completed" FROM json_populate_record\(NULL::"tasks", \$1\)\) WHERE t.id::text = \$2 RETURNING row_to_json\(t\)$`).
		WithArgs(`{"completed":true}`, "missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.Update(context.Background(), gateway.TableTasks, "missing", map[string]any{"completed": true, "id": "x"}, nil)
	require.EqualError(t, err, "row not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_Success(t *testing.T) {
	s, mock := newStoreWithMock(t, "")

	mock.ExpectBegin()
	mock.ExpectExec(roleQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimsQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE "users" AS t SET \("full_name"\)`).
		WithArgs(`{"full_name":"Ana"}`, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"row_to_json"}).AddRow([]byte(`{"id":"u1","email":"a@b.c","full_name":"Ana"}`)))
	mock.ExpectCommit()

	var id models.Identity
	err := s.Update(context.Background(), gateway.TableUsers, "u1", models.ProfilePatch{FullName: models.StringPtr(" Ana ")}.Columns(), &id)
	require.NoError(t, err)
	require.NotNil(t, id.FullName)
	assert.Equal(t, "Ana", *id.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	s, mock := newStoreWithMock(t, "")

	mock.ExpectBegin()
	mock.ExpectExec(roleQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimsQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE FROM "tasks" WHERE id::text = \$1$`).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Delete(context.Background(), gateway.TableTasks, "t1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithClaims_InvalidTokenFailsBeforeTx(t *testing.T) {
	s, mock := newStoreWithMock(t, "garbage")

	err := s.Delete(context.Background(), gateway.TableTasks, "t1")
	require.EqualError(t, err, "invalid access token")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_UsesSeam(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	called := false
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		return nil
	}
	require.NoError(t, RunMigrations(context.Background(), db))
	require.True(t, called)

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	require.ErrorContains(t, RunMigrations(context.Background(), db), "boom")
}

func TestWithClaims_RoleFailureRunsNothing(t *testing.T) {
	s, mock := newStoreWithMock(t, "")

	mock.ExpectBegin()
	mock.ExpectExec(roleQuery).WillReturnError(errors.New(`role "authenticated" does not exist`))
	mock.ExpectRollback()

	err := s.Select(context.Background(), gateway.TableTasks, gateway.Query{}, nil)
	require.Error(t, err)
	require.True(t, gateway.IsQueryError(err))
	require.Contains(t, err.Error(), "set role")
	require.NoError(t, mock.ExpectationsWereMet())
}
