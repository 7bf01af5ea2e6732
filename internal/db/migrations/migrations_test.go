package migrations

import (
	"context"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func sqlVersions(t *testing.T) []int64 {
	t.Helper()
	entries, err := fs.ReadDir(SQL, ".")
	require.NoError(t, err)

	var versions []int64
	for _, e := range entries {
		prefix, _, ok := strings.Cut(e.Name(), "_")
		require.True(t, ok, "file %s has no version prefix", e.Name())
		v, err := strconv.ParseInt(prefix, 10, 64)
		require.NoError(t, err)
		versions = append(versions, v)
	}
	return versions
}

func TestSQLMigrations_HaveUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(SQL, ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		body, err := fs.ReadFile(SQL, e.Name())
		require.NoError(t, err)
		up := strings.Index(string(body), "-- +goose Up")
		down := strings.Index(string(body), "-- +goose Down")
		assert.GreaterOrEqual(t, up, 0, "%s misses Up section", e.Name())
		assert.Greater(t, down, up, "%s misses Down section after Up", e.Name())
	}
}

func TestMigrationHistory_Order(t *testing.T) {
	all := sqlVersions(t)
	for _, m := range GoMigrations(SeedOptions{}) {
		all = append(all, m.Version)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	want := []int64{
		20240110090000,
		20240112100000,
		VersionSeedDemoData,
		20240120110000,
		20240201090000,
		VersionRepurposeAccounts,
		20240215090000,
		20240301090000,
		20240305090000,
	}
	assert.Equal(t, want, all)
}

func TestGoMigrations_HaveBothDirections(t *testing.T) {
	for _, m := range GoMigrations(SeedOptions{}) {
		assert.Equal(t, goose.TypeGo, m.Type, "version %d", m.Version)
		assert.NotNil(t, m.UpFnContext, "version %d", m.Version)
		assert.NotNil(t, m.DownFnContext, "version %d", m.Version)
	}
}

func TestSeeder_HashUsesGivenPassword(t *testing.T) {
	s := newSeeder(SeedOptions{BcryptCost: bcrypt.MinCost})

	h, err := s.hash("correct horse")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("correct horse")))

	random, err := s.hash("")
	require.NoError(t, err)
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(random), []byte("")))
}

func TestSeeder_RenameUserWithoutPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users\s+SET user_name`).
		WithArgs(adminUser.ID, "admin", "ADMIN", adminUser.Email, "ADMIN@FINANCELEDGER.LOCAL", "Admin", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	s := newSeeder(SeedOptions{BcryptCost: bcrypt.MinCost})
	require.NoError(t, s.renameUser(context.Background(), tx, adminUser, ""))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeeder_RenameUserRotatesPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users\s+SET user_name`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs(namedUser.ID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	s := newSeeder(SeedOptions{BcryptCost: bcrypt.MinCost})
	require.NoError(t, s.renameUser(context.Background(), tx, namedUser, "jane-password"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeeder_InsertUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(testUser1.ID, "test1", "TEST1", testUser1.Email, "TEST1@FINANCELEDGER.LOCAL",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "Test", "One", seedCreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	s := newSeeder(SeedOptions{BcryptCost: bcrypt.MinCost})
	require.NoError(t, s.insertUser(context.Background(), tx, testUser1, "pw"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
