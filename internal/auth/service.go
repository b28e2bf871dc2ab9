package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/userhub/internal/apperr"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
)

type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type PasswordVerifier interface {
	Verify(hash, plain string) bool
	Burn(plain string)
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      user.Role `json:"role"`
	UserID    int64     `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	users  UserLookup
	hasher PasswordVerifier
	tokens *Manager
	log    *slog.Logger
}

func NewService(users UserLookup, hasher PasswordVerifier, tokens *Manager, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, log: log}
}

// Authenticate returns (nil, nil) when the credentials do not match. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	ctx, span := observability.StartSpan(ctx, "auth.authenticate")
	defer span.End()

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.log.ErrorContext(ctx, "authentication lookup failed", "username", username, "err", err)
			return nil, err
		}
		s.hasher.Burn(password)
		s.log.WarnContext(ctx, "authentication failed", "username", username)
		return nil, nil
	}

	if !s.hasher.Verify(u.PasswordHash, password) {
		s.log.WarnContext(ctx, "authentication failed", "username", username)
		return nil, nil
	}

	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user authenticated", "username", u.Username, "user_id", u.ID)

	return &Session{
		Token:     token,
		Username:  u.Username,
		Role:      u.Role,
		UserID:    u.ID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) Verify(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

// Authorize allows the call only when the caller holds exactly the required role.
func Authorize(claims *Claims, required user.Role) error {
	if claims == nil {
		return apperr.Unauthenticated("Missing identity context", nil)
	}
	if claims.Role != required {
		return apperr.Forbidden(string(required) + " role required")
	}
	return nil
}
