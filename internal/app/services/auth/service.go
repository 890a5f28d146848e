package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainauth "villabook/internal/domain/auth"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUnauthorized       = errors.New("auth: admin session required")
	ErrNotConfigured      = errors.New("auth: admin password is not configured")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// Service verifies the admin password server side and hands out sessions.
type Service struct {
	AdminName    string
	PasswordHash string
	Sessions     domainauth.SessionStore
	Passwords    PasswordHasher
	Tokens       TokenGenerator
	SessionTTL   time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
}

type LoginResult struct {
	Token     string    `json:"token"`
	Admin     string    `json:"admin"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Service) Login(ctx context.Context, password string) (*LoginResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if s.PasswordHash == "" {
		return nil, ErrNotConfigured
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.Passwords.Compare(s.PasswordHash, password); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("admin login rejected")
		}
		return nil, ErrInvalidCredentials
	}
	token, err := s.Tokens.NewToken()
	if err != nil {
		return nil, err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token: domainauth.Token(token),
		Admin: s.adminName(),
		TTL:   s.sessionTTL(),
		Now:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("admin authenticated", "admin", session.Admin, "expires_at", session.ExpiresAt)
	}
	return &LoginResult{Token: token, Admin: session.Admin, ExpiresAt: session.ExpiresAt}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.Sessions.Delete(ctx, domainauth.Token(token)); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("admin session terminated")
	}
	return nil
}

// Resolve returns the live session behind token. Expired sessions are
// removed on sight.
func (s *Service) Resolve(ctx context.Context, token string) (*domainauth.Session, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		_ = s.Sessions.Delete(ctx, session.Token)
		return nil, domainauth.ErrSessionExpired
	}
	return session, nil
}

func (s *Service) adminName() string {
	if name := strings.TrimSpace(s.AdminName); name != "" {
		return name
	}
	return "admin"
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 8 * time.Hour
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token generator required")
	default:
		return nil
	}
}
