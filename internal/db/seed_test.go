package db_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/apperr"
	"github.com/geocoder89/userhub/internal/db"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/repo/sqlite"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newRepo(t *testing.T) *sqlite.UsersRepo {
	t.Helper()

	conn, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.MigrateSQLite(conn, db.Up))
	return sqlite.NewUsersRepo(conn)
}

func TestMigrateSQLite_UpIsIdempotentAndDownDrops(t *testing.T) {
	conn, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, db.MigrateSQLite(conn, db.Up))
	require.NoError(t, db.MigrateSQLite(conn, db.Up))

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))

	require.NoError(t, db.MigrateSQLite(conn, db.Down))
	err = conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	assert.Error(t, err)
}

func TestSeedDemoUsers(t *testing.T) {
	repo := newRepo(t)
	hasher := security.NewHasher(bcrypt.MinCost)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	inserted, err := db.SeedDemoUsers(ctx, repo, hasher, now, log)
	require.NoError(t, err)
	assert.Equal(t, 20, inserted)

	admin, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, admin.Role)
	assert.True(t, hasher.Verify(admin.PasswordHash, "admin123"))
	assert.True(t, admin.CreatedAt.Equal(now.Add(-30*24*time.Hour)))

	admins, total, err := repo.Search(ctx, user.Criteria{Search: "admin", PageSize: 100}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, admins, 3)

	// second run leaves a non-empty table alone
	inserted, err = db.SeedDemoUsers(ctx, repo, hasher, now, log)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestEnsureAdminUser(t *testing.T) {
	repo := newRepo(t)
	hasher := security.NewHasher(bcrypt.MinCost)
	ctx := context.Background()

	created, err := db.EnsureAdminUser(ctx, repo, hasher, db.AdminAccount{})
	require.NoError(t, err)
	assert.False(t, created)

	acct := db.AdminAccount{Username: "root", Email: "root@example.com", Password: "changeme"}

	created, err = db.EnsureAdminUser(ctx, repo, hasher, acct)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.EnsureAdminUser(ctx, repo, hasher, acct)
	require.NoError(t, err)
	assert.False(t, created)

	u, err := repo.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, u.Role)
}

func TestEnsureAdminUser_RejectsOverlongPassword(t *testing.T) {
	repo := newRepo(t)
	hasher := security.NewHasher(bcrypt.MinCost)
	ctx := context.Background()

	created, err := db.EnsureAdminUser(ctx, repo, hasher, db.AdminAccount{
		Username: "root",
		Email:    "root@example.com",
		Password: strings.Repeat("x", 73),
	})
	require.Error(t, err)
	assert.False(t, created)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBootstrap_SeedsDemoUsersAlongsideAdmin(t *testing.T) {
	repo := newRepo(t)
	hasher := security.NewHasher(bcrypt.MinCost)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	acct := db.AdminAccount{Username: "root", Email: "root@example.com", Password: "changeme"}
	require.NoError(t, db.Bootstrap(ctx, repo, hasher, acct, true, now, log))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, n)

	root, err := repo.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, root.Role)

	// a second start changes nothing
	require.NoError(t, db.Bootstrap(ctx, repo, hasher, acct, true, now, log))
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, n)
}

func TestBootstrap_AdminMatchingDemoAccountIsSkipped(t *testing.T) {
	repo := newRepo(t)
	hasher := security.NewHasher(bcrypt.MinCost)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	acct := db.AdminAccount{Username: "admin", Email: "ops@example.com", Password: "changeme"}
	require.NoError(t, db.Bootstrap(ctx, repo, hasher, acct, true, time.Now().UTC(), log))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}
