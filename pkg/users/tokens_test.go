package users

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackseek/stackseek/pkg/scm"
)

func TestSaveProviderToken_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE user_profiles SET github_token").
		WithArgs("user-1", "tok123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO auth_providers").
		WithArgs("user-1", "github", "octocat", "octo@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.SaveProviderToken(context.Background(), "user-1", scm.GitHub, "tok123", "octocat", "octo@example.com")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveProviderToken_UserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE user_profiles SET azure_devops_token").
		WithArgs("missing", "pat").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = store.SaveProviderToken(context.Background(), "missing", scm.AzureDevOps, "pat", "", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProviderToken_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectQuery("SELECT gitlab_token FROM user_profiles WHERE user_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"gitlab_token"}).AddRow("glpat-abc"))

	token, err := store.GetProviderToken(context.Background(), "user-1", scm.GitLab)
	require.NoError(t, err)
	assert.Equal(t, "glpat-abc", token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProviderToken_NotLinked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectQuery("SELECT bitbucket_token FROM user_profiles WHERE user_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"bitbucket_token"}).AddRow(nil))

	_, err = store.GetProviderToken(context.Background(), "user-1", scm.Bitbucket)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProviderToken_UserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectQuery("SELECT github_token FROM user_profiles WHERE user_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"github_token"}))

	_, err = store.GetProviderToken(context.Background(), "missing", scm.GitHub)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
