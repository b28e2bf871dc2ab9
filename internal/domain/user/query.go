package user

import (
	"math"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Criteria is the raw search request as sent by clients. Every field is
// optional; Normalize turns it into a Query.
type Criteria struct {
	Page          int    `json:"page"`
	PageSize      int    `json:"pageSize"`
	Search        string `json:"search"`
	SortBy        string `json:"sortBy"`
	SortDirection string `json:"sortDirection"`
}

type SortKey string

const (
	SortByUsername  SortKey = "username"
	SortByEmail     SortKey = "email"
	SortByRole      SortKey = "role"
	SortByCreatedAt SortKey = "createdat"
)

// sortColumns is the closed dispatch table from sort key to column.
var sortColumns = map[SortKey]string{
	SortByUsername:  "username",
	SortByEmail:     "email",
	SortByRole:      "role",
	SortByCreatedAt: "created_at",
}

// ParseSortKey is case-insensitive and falls back to username.
func ParseSortKey(s string) SortKey {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sortColumns[k]; ok {
		return k
	}
	return SortByUsername
}

func (k SortKey) Column() string {
	if col, ok := sortColumns[k]; ok {
		return col
	}
	return sortColumns[SortByUsername]
}

// Query is a normalized, bounds-checked search.
type Query struct {
	Search   string // lower-cased, empty means no filter
	SortBy   SortKey
	Desc     bool
	Page     int
	PageSize int
}

func (q Query) Limit() int {
	return q.PageSize
}

// Offset saturates at math.MaxInt so a page far past the data still reads
// as an empty page instead of wrapping around.
func (q Query) Offset() int {
	if q.Page <= 1 || q.PageSize <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return (q.Page - 1) * q.PageSize
}

func (c Criteria) Normalize() Query {
	return Query{
		Search:   strings.ToLower(strings.TrimSpace(c.Search)),
		SortBy:   ParseSortKey(c.SortBy),
		Desc:     strings.EqualFold(strings.TrimSpace(c.SortDirection), "desc"),
		Page:     ClampPage(c.Page),
		PageSize: ClampPageSize(c.PageSize),
	}
}

func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func ClampPageSize(size int) int {
	switch {
	case size < 1:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}
