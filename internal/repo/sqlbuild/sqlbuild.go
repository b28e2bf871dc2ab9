// Package sqlbuild renders the user listing queries shared by the Postgres
// and SQLite stores. Only placeholders and the substring function differ
// between the two dialects.
package sqlbuild

import (
	"strconv"
	"strings"

	"github.com/geocoder89/userhub/internal/domain/user"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// UserColumns is the select list every user scan expects, in order.
const UserColumns = "id, username, email, password_hash, role, created_at, updated_at"

// FoldFunc is the SQLite scalar that lower-cases with Go's Unicode rules.
// The built-in lower() only folds ASCII. The sqlite package registers it.
const FoldFunc = "fold_lower"

// searchable columns, matched case-insensitively by substring
var searchColumns = []string{"username", "email", "role"}

type Statement struct {
	SQL  string
	Args []any
}

type builder struct {
	dialect Dialect
	sb      strings.Builder
	args    []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	if b.dialect == Postgres {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

func (b *builder) contains(col string, term string) string {
	if b.dialect == Postgres {
		return "strpos(lower(" + col + "), " + b.bind(term) + ") > 0"
	}
	return "instr(" + FoldFunc + "(" + col + "), " + b.bind(term) + ") > 0"
}

func (b *builder) where(q user.Query) {
	if q.Search == "" {
		return
	}

	conds := make([]string, 0, len(searchColumns))
	for _, col := range searchColumns {
		conds = append(conds, b.contains(col, q.Search))
	}

	b.sb.WriteString(" WHERE ")
	b.sb.WriteString(strings.Join(conds, " OR "))
}

// SearchUsers selects one page of users plus the filtered total as a
// trailing "total" column. The order is the requested key followed by id.
func SearchUsers(d Dialect, q user.Query) Statement {
	b := &builder{dialect: d}

	b.sb.WriteString("SELECT ")
	b.sb.WriteString(UserColumns)
	b.sb.WriteString(", COUNT(*) OVER() AS total FROM users")
	b.where(q)

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	b.sb.WriteString(" ORDER BY ")
	b.sb.WriteString(q.SortBy.Column())
	b.sb.WriteString(" ")
	b.sb.WriteString(dir)
	b.sb.WriteString(", id ASC")

	b.sb.WriteString(" LIMIT ")
	b.sb.WriteString(b.bind(q.Limit()))
	b.sb.WriteString(" OFFSET ")
	b.sb.WriteString(b.bind(q.Offset()))

	return Statement{SQL: b.sb.String(), Args: b.args}
}

// CountUsers counts the rows matching q's filter. Stores use it when a page
// past the end comes back empty and the window total is unavailable.
func CountUsers(d Dialect, q user.Query) Statement {
	b := &builder{dialect: d}

	b.sb.WriteString("SELECT COUNT(*) FROM users")
	b.where(q)

	return Statement{SQL: b.sb.String(), Args: b.args}
}
