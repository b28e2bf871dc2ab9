// Package users implements user management and the paged user query engine
// on top of a user.Repository.
package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/userhub/internal/actorctx"
	"github.com/geocoder89/userhub/internal/apperr"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/page"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/validation"
)

const (
	msgCreateConflict   = "Username or email already exists"
	msgUsernameExists   = "Username already exists"
	msgEmailExists      = "Email already exists"
	defaultStoreTimeout = 5 * time.Second
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type Service struct {
	repo    user.Repository
	hasher  PasswordHasher
	log     *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStoreTimeout bounds every store round-trip made by one call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewService(repo user.Repository, hasher PasswordHasher, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		repo:    repo,
		hasher:  hasher,
		log:     log,
		now:     time.Now,
		timeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// bound opens a span for op and applies the store timeout. The returned
// func ends both.
func (s *Service) bound(ctx context.Context, op string) (context.Context, context.CancelFunc) {
	ctx, span := observability.StartSpan(ctx, "users."+op)
	ctx, cancel := config.WithTimeout(ctx, s.timeout)

	return ctx, func() {
		cancel()
		span.End()
	}
}

func (s *Service) audit(ctx context.Context, msg string, attrs ...any) {
	if actor, ok := actorctx.ActorFrom(ctx); ok {
		attrs = append(attrs, "actor", actor.Username)
	}
	s.log.InfoContext(ctx, msg, attrs...)
}

func (s *Service) Create(ctx context.Context, in user.CreateInput) (user.Response, error) {
	if err := validation.Struct(in); err != nil {
		return user.Response{}, err
	}

	role := user.RoleUser
	if in.Role != "" {
		role, _ = user.ParseRole(in.Role)
	}

	ctx, cancel := s.bound(ctx, "create")
	defer cancel()

	usernameTaken, err := s.repo.UsernameTaken(ctx, in.Username, 0)
	if err != nil {
		return user.Response{}, err
	}
	emailTaken, err := s.repo.EmailTaken(ctx, in.Email, 0)
	if err != nil {
		return user.Response{}, err
	}
	if usernameTaken || emailTaken {
		return user.Response{}, apperr.Conflict(msgCreateConflict, nil)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return user.Response{}, err
	}

	created, err := s.repo.Create(ctx, user.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		// lost a race with a concurrent writer after the pre-check
		if errors.Is(err, user.ErrDuplicateUsername) || errors.Is(err, user.ErrDuplicateEmail) {
			return user.Response{}, apperr.Conflict(msgCreateConflict, err)
		}
		return user.Response{}, err
	}

	s.audit(ctx, "user created", "user_id", created.ID, "username", created.Username, "role", created.Role)

	return created.Response(), nil
}

// Get reports false when no user has the id.
func (s *Service) Get(ctx context.Context, id int64) (user.Response, bool, error) {
	ctx, cancel := s.bound(ctx, "get")
	defer cancel()

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Response{}, false, nil
		}
		return user.Response{}, false, err
	}
	return u.Response(), true, nil
}

func (s *Service) ListAll(ctx context.Context) ([]user.Response, error) {
	ctx, cancel := s.bound(ctx, "list_all")
	defer cancel()

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return user.Responses(all), nil
}

// Update applies the non-blank fields of in. It reports false when the user
// does not exist. updatedAt advances on every successful call.
func (s *Service) Update(ctx context.Context, id int64, in user.UpdateInput) (user.Response, bool, error) {
	in = dropBlank(in)
	if err := validation.Struct(in); err != nil {
		return user.Response{}, false, err
	}

	ctx, cancel := s.bound(ctx, "update")
	defer cancel()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Response{}, false, nil
		}
		return user.Response{}, false, err
	}

	if in.Username != "" && in.Username != current.Username {
		taken, err := s.repo.UsernameTaken(ctx, in.Username, id)
		if err != nil {
			return user.Response{}, false, err
		}
		if taken {
			return user.Response{}, false, apperr.Conflict(msgUsernameExists, nil)
		}
		current.Username = in.Username
	}

	if in.Email != "" && in.Email != current.Email {
		taken, err := s.repo.EmailTaken(ctx, in.Email, id)
		if err != nil {
			return user.Response{}, false, err
		}
		if taken {
			return user.Response{}, false, apperr.Conflict(msgEmailExists, nil)
		}
		current.Email = in.Email
	}

	if in.Role != "" {
		current.Role, _ = user.ParseRole(in.Role)
	}

	now := s.now().UTC()
	current.UpdatedAt = &now

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			return user.Response{}, false, nil
		case errors.Is(err, user.ErrDuplicateUsername):
			return user.Response{}, false, apperr.Conflict(msgUsernameExists, err)
		case errors.Is(err, user.ErrDuplicateEmail):
			return user.Response{}, false, apperr.Conflict(msgEmailExists, err)
		}
		return user.Response{}, false, err
	}

	s.audit(ctx, "user updated", "user_id", updated.ID, "username", updated.Username, "role", updated.Role)

	return updated.Response(), true, nil
}

func dropBlank(in user.UpdateInput) user.UpdateInput {
	if strings.TrimSpace(in.Username) == "" {
		in.Username = ""
	}
	if strings.TrimSpace(in.Email) == "" {
		in.Email = ""
	}
	if strings.TrimSpace(in.Role) == "" {
		in.Role = ""
	}
	return in
}

// Delete reports false when the user does not exist.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := s.bound(ctx, "delete")
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	s.audit(ctx, "user deleted", "user_id", id)

	return true, nil
}

func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := s.bound(ctx, "exists")
	defer cancel()

	return s.repo.Exists(ctx, id)
}

// Search filters, sorts and pages users. Out-of-range paging is clamped and
// unknown sort keys fall back to username ascending.
func (s *Service) Search(ctx context.Context, c user.Criteria) (page.Page[user.Response], error) {
	q := c.Normalize()

	ctx, cancel := s.bound(ctx, "search")
	defer cancel()

	found, total, err := s.repo.Search(ctx, q)
	if err != nil {
		return page.Page[user.Response]{}, err
	}

	return page.Map(page.New(found, total, q.Page, q.PageSize), user.User.Response), nil
}

// List is an unfiltered Search in the default order.
func (s *Service) List(ctx context.Context, pageNum, pageSize int) (page.Page[user.Response], error) {
	return s.Search(ctx, user.Criteria{Page: pageNum, PageSize: pageSize})
}
