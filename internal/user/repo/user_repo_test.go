package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Obyedullah7/Advanced-Backend/internal/user/entity"
)

func newRepoWithMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(sqlx.NewDb(db, "postgres")), mock
}

var userCols = []string{"id", "username", "email", "full_name", "avatar", "cover_image", "password_hash", "refresh_token", "created_at", "updated_at"}
var profileCols = []string{"id", "username", "email", "full_name", "avatar", "cover_image", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\b.*RETURNING\s+created_at,\s*updated_at$`).
		WithArgs("1", "alice", "alice@example.com", "Alice A", "https://cdn/a.png", "", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &entity.User{ID: "1", Username: "alice", Email: "alice@example.com", FullName: "Alice A", Avatar: "https://cdn/a.png", PasswordHash: "hash"}
	require.NoError(t, r.Create(context.Background(), u))
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Duplicate(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\b`).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := r.Create(context.Background(), &entity.User{ID: "1"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestGetByID(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Now()
	rt := "r1"

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*refresh_token.*FROM\s+users\s+WHERE\s+id=\$1$`).
		WithArgs("1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("1", "alice", "a@x.io", "Alice", "av", "", "hash", rt, now, now))

	u, err := r.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "r1", u.StoredRefreshToken())
}

func TestGetByID_NotFound(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := r.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users`).WillReturnError(errors.New("db down"))

	_, err := r.GetByID(context.Background(), "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "db down")
}

func TestGetProfileByID_ExcludesSecrets(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`^SELECT id, username, email, full_name, avatar, cover_image, created_at, updated_at FROM users WHERE id=\$1$`).
		WithArgs("1").
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow("1", "alice", "a@x.io", "Alice", "av", "cv", now, now))

	p, err := r.GetProfileByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "cv", p.CoverImage)
}

func TestFindByUsernameOrEmail(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)WHERE\s+\(\$1 <> '' AND username=\$1\)\s+OR\s+\(\$2 <> '' AND email=\$2\)`).
		WithArgs("", "a@x.io").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("1", "alice", "a@x.io", "Alice", "av", "", "hash", nil, now, now))

	u, err := r.FindByUsernameOrEmail(context.Background(), "", "a@x.io")
	require.NoError(t, err)
	assert.Nil(t, u.RefreshToken)
	assert.Equal(t, "", u.StoredRefreshToken())
}

func TestSetRefreshToken(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`^UPDATE users SET refresh_token=\$2, updated_at=NOW\(\) WHERE id=\$1$`).
		WithArgs("1", "tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^UPDATE users SET refresh_token=\$2`).
		WithArgs("2", "tok").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.SetRefreshToken(context.Background(), "1", "tok"))
	assert.ErrorIs(t, r.SetRefreshToken(context.Background(), "2", "tok"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRefreshToken(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`WHERE id=\$1 AND refresh_token=\$2$`).
		WithArgs("1", "old", "new").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE id=\$1 AND refresh_token=\$2$`).
		WithArgs("1", "old", "newer").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.SwapRefreshToken(context.Background(), "1", "old", "new")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.SwapRefreshToken(context.Background(), "1", "old", "newer")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearRefreshToken_Idempotent(t *testing.T) {
	r, mock := newRepoWithMock(t)

	for i := 0; i < 2; i++ {
		mock.ExpectExec(`^UPDATE users SET refresh_token=NULL`).
			WithArgs("1").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, r.ClearRefreshToken(context.Background(), "1"))
	require.NoError(t, r.ClearRefreshToken(context.Background(), "1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePassword(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`^UPDATE users SET password_hash=\$2`).
		WithArgs("1", "newhash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, r.UpdatePassword(context.Background(), "1", "newhash"))
}

func TestUpdateAccountDetails(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`^UPDATE users SET full_name=\$2, email=\$3`).
		WithArgs("1", "Alice B", "b@x.io").
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow("1", "alice", "b@x.io", "Alice B", "av", "", now, now))
	mock.ExpectQuery(`^UPDATE users SET full_name=\$2, email=\$3`).
		WithArgs("1", "Alice B", "taken@x.io").
		WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectQuery(`^UPDATE users SET full_name=\$2, email=\$3`).
		WithArgs("9", "Nobody", "n@x.io").
		WillReturnRows(sqlmock.NewRows(profileCols))

	p, err := r.UpdateAccountDetails(context.Background(), "1", "Alice B", "b@x.io")
	require.NoError(t, err)
	assert.Equal(t, "b@x.io", p.Email)

	_, err = r.UpdateAccountDetails(context.Background(), "1", "Alice B", "taken@x.io")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = r.UpdateAccountDetails(context.Background(), "9", "Nobody", "n@x.io")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateImages(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`^UPDATE users SET avatar=\$2`).
		WithArgs("1", "https://cdn/new.png").
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow("1", "alice", "a@x.io", "Alice", "https://cdn/new.png", "", now, now))
	mock.ExpectQuery(`^UPDATE users SET cover_image=\$2`).
		WithArgs("1", "https://cdn/cover.png").
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow("1", "alice", "a@x.io", "Alice", "https://cdn/new.png", "https://cdn/cover.png", now, now))

	p, err := r.UpdateAvatar(context.Background(), "1", "https://cdn/new.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/new.png", p.Avatar)

	p, err = r.UpdateCoverImage(context.Background(), "1", "https://cdn/cover.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/cover.png", p.CoverImage)
}

func TestEnsureTable(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, r.EnsureTable(context.Background()))
}
