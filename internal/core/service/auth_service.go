package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/port"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionExpired     = errors.New("session expired")
)

// StaticCredential is a built-in back-office account checked before the
// identity provider.
type StaticCredential struct {
	Email       string
	Password    string
	UID         string
	DisplayName string
	Role        domain.Role
}

type staticAccount struct {
	principal domain.Principal
	hash      []byte
}

type AuthService struct {
	provider port.IdentityProvider
	static   map[string]staticAccount
	sessions *repository.Collection[*domain.SessionRecord]
	log      logrus.FieldLogger
}

func NewAuthService(provider port.IdentityProvider, store port.KeyValueStore, keys repository.Keys, creds []StaticCredential, log logrus.FieldLogger) (*AuthService, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	static := make(map[string]staticAccount, len(creds))
	for _, c := range creds {
		if c.Email == "" || c.Password == "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", c.Email, err)
		}
		email := strings.ToLower(strings.TrimSpace(c.Email))
		static[email] = staticAccount{
			principal: domain.Principal{UID: c.UID, Email: email, DisplayName: c.DisplayName, Role: c.Role},
			hash:      hash,
		}
	}

	return &AuthService{
		provider: provider,
		static:   static,
		sessions: repository.NewCollection[*domain.SessionRecord](store, keys, repository.Session, nil, log),
		log:      log,
	}, nil
}

// Login checks the static accounts first and falls back to the identity
// provider, then records the session. A static email never reaches the
// provider.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if acct, ok := s.static[email]; ok {
		if bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
			return domain.Principal{}, ErrInvalidCredentials
		}
		return acct.principal, s.saveSession(ctx, acct.principal)
	}

	identity, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, port.ErrInvalidCredentials) || errors.Is(err, port.ErrIdentityNotFound) {
			return domain.Principal{}, ErrInvalidCredentials
		}
		return domain.Principal{}, fmt.Errorf("sign in: %w", err)
	}

	p := customer(identity)
	return p, s.saveSession(ctx, p)
}

// Reserved reports whether email belongs to a static back-office account.
func (s *AuthService) Reserved(email string) bool {
	_, ok := s.static[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

func (s *AuthService) Signup(ctx context.Context, email, password, displayName string) (domain.Principal, error) {
	if s.Reserved(email) {
		return domain.Principal{}, fmt.Errorf("sign up: %w", port.ErrIdentityExists)
	}
	identity, err := s.provider.SignUp(ctx, strings.ToLower(strings.TrimSpace(email)), password, displayName)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("sign up: %w", err)
	}

	p := customer(identity)
	s.log.WithField("uid", p.UID).Info("customer signed up")
	return p, s.saveSession(ctx, p)
}

func (s *AuthService) Logout(ctx context.Context, p domain.Principal) error {
	if p.Role == domain.RoleCustomer {
		if err := s.provider.SignOut(ctx, p.UID); err != nil {
			s.log.WithError(err).WithField("uid", p.UID).Warn("identity provider sign out failed")
		}
	}

	repo, err := s.sessions.ForScope(p.Email)
	if err != nil {
		return err
	}
	return repo.Delete(ctx)
}

// Revoke drops the live session for email so its bearer token stops
// resolving.
func (s *AuthService) Revoke(ctx context.Context, email string) error {
	repo, err := s.sessions.ForScope(email)
	if err != nil {
		return err
	}
	return repo.Delete(ctx)
}

func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	if err := s.provider.SendPasswordReset(ctx, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	return nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	return s.provider.ConfirmPasswordReset(ctx, strings.ToLower(strings.TrimSpace(email)), code, newPassword)
}

// Resolve returns the principal recorded in the live session for p's email.
// A missing session means the identity signed out.
func (s *AuthService) Resolve(ctx context.Context, p domain.Principal) (domain.Principal, error) {
	repo, err := s.sessions.ForScope(p.Email)
	if err != nil {
		return domain.Principal{}, ErrSessionExpired
	}
	rec, err := repo.Load(ctx)
	if err != nil {
		return domain.Principal{}, err
	}
	if rec == nil || rec.UID != p.UID {
		return domain.Principal{}, ErrSessionExpired
	}
	return rec.Principal(), nil
}

func (s *AuthService) saveSession(ctx context.Context, p domain.Principal) error {
	repo, err := s.sessions.ForScope(p.Email)
	if err != nil {
		return err
	}
	rec := p.Session()
	return repo.Save(ctx, &rec)
}

func customer(identity port.Identity) domain.Principal {
	return domain.Principal{
		UID:         identity.UID,
		Email:       strings.ToLower(identity.Email),
		DisplayName: identity.DisplayName,
		Role:        domain.RoleCustomer,
	}
}
