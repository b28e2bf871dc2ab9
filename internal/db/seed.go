package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/geocoder89/userhub/internal/apperr"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/geocoder89/userhub/internal/validation"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// EnsureAdminUser creates the bootstrap admin unless the username or email
// is already present. An empty account is a no-op.
func EnsureAdminUser(ctx context.Context, repo user.Repository, hasher PasswordHasher, acct AdminAccount) (bool, error) {
	if acct.Username == "" || acct.Email == "" || acct.Password == "" {
		return false, nil
	}

	if len(acct.Password) > security.MaxPasswordBytes {
		limit := strconv.Itoa(security.MaxPasswordBytes)
		return false, apperr.Validation("Invalid admin account", map[string]any{"fields": []validation.FieldError{{
			Field:   "password",
			Rule:    "maxbytes",
			Param:   limit,
			Message: validation.Message("maxbytes", limit),
		}}})
	}

	// check if the user exists
	_, err := repo.GetByUsername(ctx, acct.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	taken, err := repo.EmailTaken(ctx, acct.Email, 0)
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}

	hash, err := hasher.Hash(acct.Password)
	if err != nil {
		return false, err
	}

	_, err = repo.Create(ctx, user.User{
		Username:     acct.Username,
		Email:        acct.Email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Bootstrap runs the demo seed (when seedDemo is set) before the admin
// bootstrap, since the seed only fills an empty table.
func Bootstrap(ctx context.Context, repo user.Repository, hasher PasswordHasher, acct AdminAccount, seedDemo bool, now time.Time, log *slog.Logger) error {
	if seedDemo {
		if _, err := SeedDemoUsers(ctx, repo, hasher, now, log); err != nil {
			return fmt.Errorf("seed demo users: %w", err)
		}
	}

	created, err := EnsureAdminUser(ctx, repo, hasher, acct)
	if err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	if created {
		log.InfoContext(ctx, "bootstrap admin created", "username", acct.Username)
	}
	return nil
}

type demoUser struct {
	username string
	password string
	email    string
	role     user.Role
	age      time.Duration
}

const day = 24 * time.Hour

var demoUsers = []demoUser{
	{"admin", "admin123", "admin@example.com", user.RoleAdmin, 30 * day},
	{"superadmin", "super123", "superadmin@company.com", user.RoleAdmin, 25 * day},
	{"manager", "manager123", "manager@business.org", user.RoleAdmin, 20 * day},
	{"user", "user123", "user@example.com", user.RoleUser, 28 * day},
	{"alice.johnson", "alice123", "alice.johnson@email.com", user.RoleUser, 22 * day},
	{"bob.smith", "bob123", "bob.smith@mail.org", user.RoleUser, 18 * day},
	{"charlie.brown", "charlie123", "charlie.brown@test.com", user.RoleUser, 15 * day},
	{"diana.prince", "diana123", "diana.prince@demo.net", user.RoleUser, 12 * day},
	{"edward.norton", "edward123", "edward.norton@sample.io", user.RoleUser, 10 * day},
	{"fiona.gallagher", "fiona123", "fiona.gallagher@example.co", user.RoleUser, 8 * day},
	{"george.washington", "george123", "george.washington@historic.gov", user.RoleUser, 6 * day},
	{"helen.troy", "helen123", "helen.troy@mythology.org", user.RoleUser, 4 * day},
	{"ivan.petrov", "ivan123", "ivan.petrov@international.com", user.RoleUser, 3 * day},
	{"julia.roberts", "julia123", "julia.roberts@hollywood.com", user.RoleUser, 2 * day},
	{"kevin.hart", "kevin123", "kevin.hart@comedy.net", user.RoleUser, 1 * day},
	{"laura.croft", "laura123", "laura.croft@adventure.game", user.RoleUser, 12 * time.Hour},
	{"michael.jordan", "michael123", "michael.jordan@basketball.pro", user.RoleUser, 6 * time.Hour},
	{"natalie.portman", "natalie123", "natalie.portman@actress.com", user.RoleUser, 3 * time.Hour},
	{"oscar.wilde", "oscar123", "oscar.wilde@literature.org", user.RoleUser, time.Hour},
	{"penelope.cruz", "penelope123", "penelope.cruz@spanish.cinema", user.RoleUser, 30 * time.Minute},
}

// SeedDemoUsers fills an empty users table with the sample accounts, their
// creation times spread over the month before now. It returns how many rows
// were inserted.
func SeedDemoUsers(ctx context.Context, repo user.Repository, hasher PasswordHasher, now time.Time, log *slog.Logger) (int, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.InfoContext(ctx, "demo seed skipped, users table not empty", "count", n)
		return 0, nil
	}

	for i, d := range demoUsers {
		hash, err := hasher.Hash(d.password)
		if err != nil {
			return i, err
		}

		_, err = repo.Create(ctx, user.User{
			Username:     d.username,
			Email:        d.email,
			PasswordHash: hash,
			Role:         d.role,
			CreatedAt:    now.Add(-d.age).UTC(),
		})
		if err != nil {
			return i, fmt.Errorf("seed %s: %w", d.username, err)
		}
	}

	log.InfoContext(ctx, "demo users seeded", "count", len(demoUsers))
	return len(demoUsers), nil
}
