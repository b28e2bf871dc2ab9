package sqlbuild

import (
	"testing"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/stretchr/testify/assert"
)

func TestSearchUsers_NoFilter(t *testing.T) {
	q := user.Criteria{}.Normalize()

	st := SearchUsers(Postgres, q)

	assert.Equal(t,
		"SELECT "+UserColumns+", COUNT(*) OVER() AS total FROM users ORDER BY username ASC, id ASC LIMIT $1 OFFSET $2",
		st.SQL)
	assert.Equal(t, []any{10, 0}, st.Args)
}

func TestSearchUsers_PostgresFilter(t *testing.T) {
	q := user.Criteria{Search: "  ADMIN ", SortBy: "CreatedAt", SortDirection: "DESC", Page: 3, PageSize: 5}.Normalize()

	st := SearchUsers(Postgres, q)

	assert.Contains(t, st.SQL, "WHERE strpos(lower(username), $1) > 0 OR strpos(lower(email), $2) > 0 OR strpos(lower(role), $3) > 0")
	assert.Contains(t, st.SQL, "ORDER BY created_at DESC, id ASC LIMIT $4 OFFSET $5")
	assert.Equal(t, []any{"admin", "admin", "admin", 5, 10}, st.Args)
}

func TestSearchUsers_SQLiteFilter(t *testing.T) {
	q := user.Criteria{Search: "Ex", SortBy: "email"}.Normalize()

	st := SearchUsers(SQLite, q)

	assert.Contains(t, st.SQL, "WHERE instr(fold_lower(username), ?) > 0 OR instr(fold_lower(email), ?) > 0 OR instr(fold_lower(role), ?) > 0")
	assert.Contains(t, st.SQL, "ORDER BY email ASC, id ASC LIMIT ? OFFSET ?")
	assert.Equal(t, []any{"ex", "ex", "ex", 10, 0}, st.Args)
}

func TestSearchUsers_UnknownSortFallsBackToUsername(t *testing.T) {
	q := user.Criteria{SortBy: "password_hash; DROP TABLE users", SortDirection: "sideways"}.Normalize()

	st := SearchUsers(SQLite, q)

	assert.Contains(t, st.SQL, "ORDER BY username ASC, id ASC")
	assert.NotContains(t, st.SQL, "DROP")
}

func TestCountUsers(t *testing.T) {
	assert.Equal(t, "SELECT COUNT(*) FROM users", CountUsers(Postgres, user.Query{}).SQL)

	st := CountUsers(Postgres, user.Query{Search: "bob"})
	assert.Equal(t, "SELECT COUNT(*) FROM users WHERE strpos(lower(username), $1) > 0 OR strpos(lower(email), $2) > 0 OR strpos(lower(role), $3) > 0", st.SQL)
	assert.Len(t, st.Args, 3)
}
