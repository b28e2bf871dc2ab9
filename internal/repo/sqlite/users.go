package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo/sqlbuild"
)

// UsersRepo implements user.Repository on SQLite.
type UsersRepo struct {
	db   *sql.DB
	prom *observability.Prom
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

// WithMetrics records write latency and error classes on prom.
func (r *UsersRepo) WithMetrics(prom *observability.Prom) *UsersRepo {
	r.prom = prom
	return r
}

func (r *UsersRepo) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	run := func() error {
		var err error
		res, err = r.db.ExecContext(ctx, query, args...)
		return err
	}

	if r.prom == nil {
		return res, run()
	}
	return res, r.prom.ObserveDB(op, run)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner, extra ...any) (user.User, error) {
	var (
		u       user.User
		updated sql.NullTime
	)

	dest := append([]any{&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return user.User{}, err
	}

	u.CreatedAt = u.CreatedAt.UTC()
	if updated.Valid {
		t := updated.Time.UTC()
		u.UpdatedAt = &t
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if u.Role == "" {
		u.Role = user.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.CreatedAt = u.CreatedAt.UTC()

	res, err := r.exec(ctx, "users.create",
		`INSERT INTO users (username, email, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt, nullTime(u.UpdatedAt),
	)
	if err != nil {
		if dup := duplicateErr(err); dup != nil {
			return user.User{}, dup
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return user.User{}, fmt.Errorf("get last insert id: %w", err)
	}

	u.ID = id
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sqlbuild.UserColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("query user by id: %w", err)
	}
	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sqlbuild.UserColumns+` FROM users WHERE username = ?`, username)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("query user by username: %w", err)
	}
	return u, nil
}

func (r *UsersRepo) ListAll(ctx context.Context) ([]user.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqlbuild.UserColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UsersRepo) Search(ctx context.Context, q user.Query) ([]user.User, int, error) {
	st := sqlbuild.SearchUsers(sqlbuild.SQLite, q)

	rows, err := r.db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var (
		users []user.User
		total int
	)
	for rows.Next() {
		u, err := scanUser(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(users) == 0 && q.Offset() > 0 {
		cnt := sqlbuild.CountUsers(sqlbuild.SQLite, q)
		if err := r.db.QueryRowContext(ctx, cnt.SQL, cnt.Args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count users: %w", err)
		}
	}

	return users, total, nil
}

func (r *UsersRepo) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = ? AND id <> ?)`, username, excludeID)
}

func (r *UsersRepo) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? AND id <> ?)`, email, excludeID)
}

func (r *UsersRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id)
}

func (r *UsersRepo) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("exists check: %w", err)
	}
	return found, nil
}

func (r *UsersRepo) Update(ctx context.Context, u user.User) (user.User, error) {
	res, err := r.exec(ctx, "users.update",
		`UPDATE users SET username = ?, email = ?, role = ?, updated_at = ? WHERE id = ?`,
		u.Username, u.Email, u.Role, nullTime(u.UpdatedAt), u.ID,
	)
	if err != nil {
		if dup := duplicateErr(err); dup != nil {
			return user.User{}, dup
		}
		return user.User{}, fmt.Errorf("update user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return user.User{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}

	return r.GetByID(ctx, u.ID)
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, "users.delete", `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// duplicateErr maps "UNIQUE constraint failed: users.<col>" to the matching
// domain error.
func duplicateErr(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.username"):
		return user.ErrDuplicateUsername
	case strings.Contains(msg, "users.email"):
		return user.ErrDuplicateEmail
	default:
		return nil
	}
}
