package users_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/apperr"
	"github.com/geocoder89/userhub/internal/db"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/repo/sqlite"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/geocoder89/userhub/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	svc    *users.Service
	repo   *sqlite.UsersRepo
	hasher *security.Hasher
	clock  *time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conn, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.MigrateSQLite(conn, db.Up))

	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	f := &fixture{
		repo:   sqlite.NewUsersRepo(conn),
		hasher: security.NewHasher(bcrypt.MinCost),
		clock:  &now,
	}
	f.svc = users.NewService(f.repo, f.hasher, slog.New(slog.NewTextHandler(io.Discard, nil)),
		users.WithClock(func() time.Time { return *f.clock }))

	return f
}

func (f *fixture) tick(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *fixture) create(t *testing.T, username, email string, role user.Role) user.Response {
	t.Helper()

	resp, err := f.svc.Create(context.Background(), user.CreateInput{
		Username: username,
		Password: "secret1",
		Email:    email,
		Role:     string(role),
	})
	require.NoError(t, err)
	return resp
}

func TestCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	resp, err := f.svc.Create(ctx, user.CreateInput{Username: "eve", Password: "secret1", Email: "eve@x.com"})
	require.NoError(t, err)

	assert.NotZero(t, resp.ID)
	assert.Equal(t, user.RoleUser, resp.Role)
	assert.True(t, resp.CreatedAt.Equal(*f.clock))
	assert.Nil(t, resp.UpdatedAt)

	stored, err := f.repo.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, f.hasher.Verify(stored.PasswordHash, "secret1"))
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name  string
		in    user.CreateInput
		field string
	}{
		{name: "missing_username", in: user.CreateInput{Password: "secret1", Email: "a@x.com"}, field: "username"},
		{name: "blank_username", in: user.CreateInput{Username: "   ", Password: "secret1", Email: "a@x.com"}, field: "username"},
		{name: "long_username", in: user.CreateInput{Username: strings.Repeat("a", 51), Password: "secret1", Email: "a@x.com"}, field: "username"},
		{name: "short_password", in: user.CreateInput{Username: "a", Password: "12345", Email: "a@x.com"}, field: "password"},
		{name: "password_over_72_bytes", in: user.CreateInput{Username: "a", Password: strings.Repeat("a", 73), Email: "a@x.com"}, field: "password"},
		{name: "multibyte_password_over_72_bytes", in: user.CreateInput{Username: "a", Password: strings.Repeat("é", 37), Email: "a@x.com"}, field: "password"},
		{name: "bad_email", in: user.CreateInput{Username: "a", Password: "secret1", Email: "not-an-email"}, field: "email"},
		{name: "unknown_role", in: user.CreateInput{Username: "a", Password: "secret1", Email: "a@x.com", Role: "root"}, field: "role"},
		{name: "role_is_case_sensitive", in: user.CreateInput{Username: "a", Password: "secret1", Email: "a@x.com", Role: "admin"}, field: "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Contains(t, fmt.Sprint(err.(*apperr.Error).Details), tt.field)
		})
	}

	n, err := f.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreate_PasswordOfSeventyTwoBytesIsAccepted(t *testing.T) {
	f := setup(t)

	resp, err := f.svc.Create(context.Background(), user.CreateInput{
		Username: "long",
		Password: strings.Repeat("p", 72),
		Email:    "long@x.com",
	})
	require.NoError(t, err)

	stored, err := f.repo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.True(t, f.hasher.Verify(stored.PasswordHash, strings.Repeat("p", 72)))
}

func TestCreate_UsernameOfFiftyCharsIsAccepted(t *testing.T) {
	f := setup(t)

	resp := f.create(t, strings.Repeat("b", 50), "b@x.com", "")
	assert.Len(t, resp.Username, 50)
}

func TestCreate_DuplicateConflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.create(t, "admin", "admin@x.com", user.RoleAdmin)

	_, err := f.svc.Create(ctx, user.CreateInput{Username: "admin", Password: "secret1", Email: "fresh@x.com"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Username or email already exists", err.(*apperr.Error).Message)

	_, err = f.svc.Create(ctx, user.CreateInput{Username: "fresh", Password: "secret1", Email: "admin@x.com"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	n, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// different case is a different username
	f.create(t, "Admin", "admin2@x.com", user.RoleUser)
}

func TestGet(t *testing.T) {
	f := setup(t)
	created := f.create(t, "gina", "gina@x.com", user.RoleUser)

	got, ok, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Username, got.Username)
	assert.Equal(t, created.Email, got.Email)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	_, ok, err = f.svc.Get(context.Background(), created.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListAll(t *testing.T) {
	f := setup(t)

	all, err := f.svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	a := f.create(t, "zoe", "zoe@x.com", user.RoleUser)
	b := f.create(t, "abe", "abe@x.com", user.RoleAdmin)

	all, err = f.svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)
}

func TestUpdate_PartialKeepsOmittedFields(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created := f.create(t, "hank", "hank@x.com", user.RoleUser)
	f.tick(time.Minute)

	updated, ok, err := f.svc.Update(ctx, created.ID, user.UpdateInput{Username: "henry", Email: "   "})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "henry", updated.Username)
	assert.Equal(t, "hank@x.com", updated.Email)
	assert.Equal(t, user.RoleUser, updated.Role)
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, updated.UpdatedAt.Equal(*f.clock))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
}

func TestUpdate_NoOpStillAdvancesUpdatedAt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created := f.create(t, "ivy", "ivy@x.com", user.RoleUser)

	f.tick(time.Hour)
	first, ok, err := f.svc.Update(ctx, created.ID, user.UpdateInput{})
	require.NoError(t, err)
	require.True(t, ok)

	f.tick(time.Hour)
	second, _, err := f.svc.Update(ctx, created.ID, user.UpdateInput{Username: "ivy"})
	require.NoError(t, err)

	require.NotNil(t, first.UpdatedAt)
	require.NotNil(t, second.UpdatedAt)
	assert.True(t, second.UpdatedAt.After(*first.UpdatedAt))
}

func TestUpdate_Conflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.create(t, "jack", "jack@x.com", user.RoleUser)
	kate := f.create(t, "kate", "kate@x.com", user.RoleUser)

	_, _, err := f.svc.Update(ctx, kate.ID, user.UpdateInput{Username: "jack"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Username already exists", err.(*apperr.Error).Message)

	_, _, err = f.svc.Update(ctx, kate.ID, user.UpdateInput{Email: "jack@x.com"})
	assert.Equal(t, "Email already exists", err.(*apperr.Error).Message)

	got, _, err := f.svc.Get(ctx, kate.ID)
	require.NoError(t, err)
	assert.Equal(t, "kate", got.Username)
	assert.Nil(t, got.UpdatedAt)
}

func TestUpdate_ValidationAndMissing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created := f.create(t, "liam", "liam@x.com", user.RoleUser)

	_, _, err := f.svc.Update(ctx, created.ID, user.UpdateInput{Email: "nope"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, _, err = f.svc.Update(ctx, created.ID, user.UpdateInput{Role: "Owner"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, ok, err := f.svc.Update(ctx, created.ID+1, user.UpdateInput{Role: "Admin"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteAndExists(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	keep := f.create(t, "mia", "mia@x.com", user.RoleUser)
	drop := f.create(t, "noah", "noah@x.com", user.RoleUser)

	ok, err := f.svc.Delete(ctx, drop.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.Delete(ctx, drop.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := f.svc.Exists(ctx, drop.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = f.svc.Exists(ctx, keep.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func seedMany(t *testing.T, f *fixture, n int) []user.Response {
	t.Helper()

	out := make([]user.Response, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.create(t, fmt.Sprintf("user%02d", i), fmt.Sprintf("user%02d@x.com", i), user.RoleUser))
		f.tick(time.Minute)
	}
	return out
}

func TestSearch_PastLastPage(t *testing.T) {
	f := setup(t)
	seedMany(t, f, 12)

	p, err := f.svc.Search(context.Background(), user.Criteria{Page: 4, PageSize: 5})
	require.NoError(t, err)

	assert.NotNil(t, p.Data)
	assert.Empty(t, p.Data)
	assert.Equal(t, 12, p.TotalCount)
	assert.Equal(t, 3, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.True(t, p.HasPreviousPage)
}

func TestSearch_HugePageIsEmpty(t *testing.T) {
	f := setup(t)
	seedMany(t, f, 2)

	for _, pageNum := range []int{math.MaxInt, 922337203685477587} {
		p, err := f.svc.Search(context.Background(), user.Criteria{Page: pageNum, PageSize: 10})
		require.NoError(t, err)

		assert.Empty(t, p.Data, "page %d", pageNum)
		assert.Equal(t, 2, p.TotalCount)
		assert.Equal(t, 1, p.TotalPages)
		assert.Equal(t, pageNum, p.Page)
		assert.True(t, p.HasPreviousPage)
		assert.False(t, p.HasNextPage)
	}

	p, err := f.svc.List(context.Background(), math.MaxInt, 100)
	require.NoError(t, err)
	assert.Empty(t, p.Data)
	assert.Equal(t, 2, p.TotalCount)
}

func TestSearch_ClampsPaging(t *testing.T) {
	f := setup(t)
	seedMany(t, f, 3)

	tests := []struct {
		in       user.Criteria
		page     int
		pageSize int
	}{
		{in: user.Criteria{Page: 0, PageSize: 0}, page: 1, pageSize: 10},
		{in: user.Criteria{Page: -3, PageSize: -1}, page: 1, pageSize: 10},
		{in: user.Criteria{Page: 1, PageSize: 1000}, page: 1, pageSize: 100},
		{in: user.Criteria{Page: 2, PageSize: 1}, page: 2, pageSize: 1},
	}

	for _, tt := range tests {
		p, err := f.svc.Search(context.Background(), tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.page, p.Page)
		assert.Equal(t, tt.pageSize, p.PageSize)
	}
}

func TestSearch_BlankEqualsUnfiltered(t *testing.T) {
	f := setup(t)
	seedMany(t, f, 7)
	ctx := context.Background()

	listed, err := f.svc.List(ctx, 1, 100)
	require.NoError(t, err)

	for _, term := range []string{"", "   "} {
		searched, err := f.svc.Search(ctx, user.Criteria{Search: term, PageSize: 100})
		require.NoError(t, err)
		assert.Equal(t, ids(listed.Data), ids(searched.Data))
		assert.Equal(t, listed.TotalCount, searched.TotalCount)
	}
}

func TestSearch_CaseInsensitive(t *testing.T) {
	f := setup(t)
	f.create(t, "admin", "root@x.com", user.RoleUser)
	f.create(t, "other", "other@x.com", user.RoleUser)

	p, err := f.svc.Search(context.Background(), user.Criteria{Search: "ADMIN"})
	require.NoError(t, err)

	require.Len(t, p.Data, 1)
	assert.Equal(t, "admin", p.Data[0].Username)
}

func TestSearch_FoldsNonASCIICase(t *testing.T) {
	f := setup(t)
	f.create(t, "Élodie", "elodie@x.com", user.RoleUser)
	f.create(t, "other", "other@x.com", user.RoleUser)

	for _, term := range []string{"Élodie", "ÉLO", "élodie"} {
		p, err := f.svc.Search(context.Background(), user.Criteria{Search: term})
		require.NoError(t, err)

		require.Len(t, p.Data, 1, "term %q", term)
		assert.Equal(t, "Élodie", p.Data[0].Username)
		assert.Equal(t, 1, p.TotalCount)
	}
}

func TestSearch_CreatedAtDescWithTieBreak(t *testing.T) {
	f := setup(t)
	seeded := seedMany(t, f, 3)

	// two more created at the same instant
	tieA := f.create(t, "tie_b", "tie_b@x.com", user.RoleUser)
	tieB := f.create(t, "tie_a", "tie_a@x.com", user.RoleUser)

	p, err := f.svc.Search(context.Background(), user.Criteria{SortBy: "CREATEDAT", SortDirection: "desc"})
	require.NoError(t, err)

	assert.Equal(t, []int64{tieA.ID, tieB.ID, seeded[2].ID, seeded[1].ID, seeded[0].ID}, ids(p.Data))
}

func TestSearch_Scenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, user.CreateInput{Username: "eve", Password: "secret1", Email: "eve@x.com"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, created.Role)

	found, err := f.svc.Search(ctx, user.Criteria{Search: "eve"})
	require.NoError(t, err)
	require.Len(t, found.Data, 1)
	assert.Equal(t, "eve", found.Data[0].Username)

	f.tick(time.Second)
	updated, ok, err := f.svc.Update(ctx, created.ID, user.UpdateInput{Role: "Admin"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user.RoleAdmin, updated.Role)
	assert.NotNil(t, updated.UpdatedAt)

	deleted, err := f.svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err = f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func ids(rs []user.Response) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
