package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/port"
)

const (
	minPasswordLength = 6
	resetCodeTTL      = time.Hour
)

type account struct {
	UID          string            `json:"uid"`
	Email        string            `json:"email"`
	DisplayName  string            `json:"displayName"`
	Phone        string            `json:"phone,omitempty"`
	Address      string            `json:"address,omitempty"`
	Status       domain.UserStatus `json:"status,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastLogin    *time.Time        `json:"lastLogin,omitempty"`
	PasswordHash string            `json:"passwordHash"`
	ResetCode    string            `json:"resetCode,omitempty"`
	ResetExpires time.Time         `json:"resetExpires,omitempty"`
}

// LocalProvider keeps customer accounts in the key/value store with bcrypt
// password hashes. Reset codes are mailed through the notifier.
type LocalProvider struct {
	accounts *repository.Repository[map[string]account]
	notifier port.Notifier
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewLocalProvider(store port.KeyValueStore, keys repository.Keys, notifier port.Notifier, log logrus.FieldLogger) *LocalProvider {
	if log == nil {
		log = logrus.StandardLogger()
	}
	empty := func() map[string]account { return map[string]account{} }
	return &LocalProvider{
		accounts: repository.NewCollection(store, keys, repository.IdentityUsers, empty, log).Global(),
		notifier: notifier,
		now:      time.Now,
		log:      log,
	}
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (port.Identity, error) {
	accounts, err := p.accounts.Load(ctx)
	if err != nil {
		return port.Identity{}, err
	}
	acct, ok := accounts[normalize(email)]
	if !ok {
		return port.Identity{}, port.ErrIdentityNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return port.Identity{}, port.ErrInvalidCredentials
	}
	if !acct.Status.CanSignIn() {
		return port.Identity{}, port.ErrIdentityDisabled
	}

	now := p.now()
	_, err = p.accounts.Update(ctx, func(m *map[string]account) error {
		a, ok := (*m)[acct.Email]
		if !ok {
			return repository.ErrNoChange
		}
		a.LastLogin = &now
		(*m)[acct.Email] = a
		return nil
	})
	if err != nil {
		p.log.WithError(err).WithField("uid", acct.UID).Warn("failed to record last login")
	}
	return acct.identity(), nil
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password, displayName string) (port.Identity, error) {
	email, err := repository.NormalizeScope(email)
	if err != nil {
		return port.Identity{}, fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return port.Identity{}, port.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return port.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	acct := account{
		UID:          uuid.Must(uuid.NewV7()).String(),
		Email:        email,
		DisplayName:  displayName,
		Status:       domain.UserActive,
		CreatedAt:    p.now(),
		PasswordHash: string(hash),
	}
	_, err = p.accounts.Update(ctx, func(m *map[string]account) error {
		if _, exists := (*m)[email]; exists {
			return port.ErrIdentityExists
		}
		(*m)[email] = acct
		return nil
	})
	if err != nil {
		return port.Identity{}, err
	}
	return acct.identity(), nil
}

// SignOut has nothing to revoke; sessions are tracked by the caller.
func (p *LocalProvider) SignOut(ctx context.Context, uid string) error {
	return nil
}

func (p *LocalProvider) SendPasswordReset(ctx context.Context, email string) error {
	email = normalize(email)
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	var acct account
	_, err := p.accounts.Update(ctx, func(m *map[string]account) error {
		a, ok := (*m)[email]
		if !ok {
			return port.ErrIdentityNotFound
		}
		a.ResetCode = code
		a.ResetExpires = p.now().Add(resetCodeTTL)
		(*m)[email] = a
		acct = a
		return nil
	})
	if err != nil {
		return err
	}

	return p.notifier.Send(ctx, domain.Notification{
		Kind: domain.NotificationPasswordReset,
		To:   acct.Email,
		Params: map[string]string{
			"name":    acct.DisplayName,
			"email":   acct.Email,
			"subject": "Reset your password",
			"code":    code,
		},
	})
}

func (p *LocalProvider) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return port.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	email = normalize(email)
	_, err = p.accounts.Update(ctx, func(m *map[string]account) error {
		a, ok := (*m)[email]
		if !ok || a.ResetCode == "" || p.now().After(a.ResetExpires) ||
			subtle.ConstantTimeCompare([]byte(a.ResetCode), []byte(strings.ToUpper(code))) != 1 {
			return port.ErrInvalidResetCode
		}
		a.PasswordHash = string(hash)
		a.ResetCode = ""
		a.ResetExpires = time.Time{}
		(*m)[email] = a
		return nil
	})
	return err
}

// ListIdentities returns every account sorted by join date, newest first.
func (p *LocalProvider) ListIdentities(ctx context.Context) ([]domain.User, error) {
	accounts, err := p.accounts.Load(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, a.user())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].JoinedAt.Equal(users[j].JoinedAt) {
			return users[i].Email < users[j].Email
		}
		return users[i].JoinedAt.After(users[j].JoinedAt)
	})
	return users, nil
}

func (p *LocalProvider) UpdateIdentity(ctx context.Context, email string, fn func(*domain.User) error) (domain.User, error) {
	email = normalize(email)

	var updated domain.User
	_, err := p.accounts.Update(ctx, func(m *map[string]account) error {
		a, ok := (*m)[email]
		if !ok {
			return port.ErrIdentityNotFound
		}
		u := a.user()
		if err := fn(&u); err != nil {
			return err
		}
		a.DisplayName = u.DisplayName
		a.Phone = u.Phone
		a.Address = u.Address
		a.Status = u.Status
		(*m)[email] = a
		updated = a.user()
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

func (a account) user() domain.User {
	status := a.Status
	if status == "" {
		status = domain.UserActive
	}
	return domain.User{
		UID:         a.UID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Phone:       a.Phone,
		Address:     a.Address,
		Status:      status,
		JoinedAt:    a.CreatedAt,
		LastLogin:   a.LastLogin,
	}
}

func (a account) identity() port.Identity {
	return port.Identity{UID: a.UID, Email: a.Email, DisplayName: a.DisplayName}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
