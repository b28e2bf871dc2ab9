package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo/sqlbuild"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// duplicateErr maps a unique violation to the domain error for its constraint.
func duplicateErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return user.ErrDuplicateUsername
	case emailConstraint:
		return user.ErrDuplicateEmail
	default:
		return nil
	}
}

func scanUser(row pgx.Row, extra ...any) (user.User, error) {
	var u user.User

	dest := append([]any{&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return user.User{}, err
	}

	u.CreatedAt = u.CreatedAt.UTC()
	if u.UpdatedAt != nil {
		t := u.UpdatedAt.UTC()
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

	err := r.observe("users.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash, role, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt,
		).Scan(&u.ID)
	})
	if err != nil {
		if dup := duplicateErr(err); dup != nil {
			return user.User{}, dup
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) getOne(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+sqlbuild.UserColumns+` FROM users WHERE `+where+` = $1`, arg))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", "id", id)
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_username", "username", username)
}

func (r *UsersRepo) ListAll(ctx context.Context) ([]user.User, error) {
	users := []user.User{}

	err := r.observe("users.list_all", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+sqlbuild.UserColumns+` FROM users ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UsersRepo) Search(ctx context.Context, q user.Query) ([]user.User, int, error) {
	var (
		users []user.User
		total int
	)

	st := sqlbuild.SearchUsers(sqlbuild.Postgres, q)

	err := r.observe("users.search", func() error {
		rows, err := r.pool.Query(ctx, st.SQL, st.Args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows, &total)
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	if len(users) == 0 && q.Offset() > 0 {
		cnt := sqlbuild.CountUsers(sqlbuild.Postgres, q)
		err = r.observe("users.search_count", func() error {
			return r.pool.QueryRow(ctx, cnt.SQL, cnt.Args...).Scan(&total)
		})
		if err != nil {
			return nil, 0, err
		}
	}

	return users, total, nil
}

func (r *UsersRepo) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var found bool
	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(&found)
	})
	return found, err
}

func (r *UsersRepo) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, "users.username_taken",
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND id <> $2)`, username, excludeID)
}

func (r *UsersRepo) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, "users.email_taken",
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, excludeID)
}

func (r *UsersRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "users.exists", `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
}

func (r *UsersRepo) Update(ctx context.Context, u user.User) (user.User, error) {
	var out user.User

	err := r.observe("users.update", func() error {
		var err error
		out, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			 SET username = $1, email = $2, role = $3, updated_at = $4
			 WHERE id = $5
			 RETURNING `+sqlbuild.UserColumns,
			u.Username, u.Email, string(u.Role), u.UpdatedAt, u.ID,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if dup := duplicateErr(err); dup != nil {
			return user.User{}, dup
		}
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	return out, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	var tag pgconn.CommandTag

	err := r.observe("users.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.observe("users.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	})
	return n, err
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
