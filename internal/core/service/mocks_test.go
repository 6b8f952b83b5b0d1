package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/port"
)

// Mock KeyValueStore
type mockStore struct {
	data map[string][]byte
	mu   sync.Mutex
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockStore) Update(ctx context.Context, key string, fn port.UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.data[key])
	if err != nil {
		return err
	}
	m.data[key] = next
	return nil
}

func (m *mockStore) raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return string(v), ok
}

// Mock Notifier
type mockNotifier struct {
	sent []domain.Notification
	err  error
	mu   sync.Mutex
}

func (m *mockNotifier) Send(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// Mock Enqueuer
type mockEnqueuer struct {
	queued []domain.Notification
	mu     sync.Mutex
}

func (m *mockEnqueuer) Enqueue(n domain.Notification) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, n)
	return true
}

func (m *mockEnqueuer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queued)
}

// Mock IdentityProvider
type mockIdentityProvider struct {
	users     map[string]string
	profiles  map[string]domain.User
	signedOut []string
	resetSent []string
	signInErr error
	mu        sync.Mutex
}

func newMockIdentityProvider() *mockIdentityProvider {
	return &mockIdentityProvider{users: make(map[string]string), profiles: make(map[string]domain.User)}
}

func (m *mockIdentityProvider) SignIn(ctx context.Context, email, password string) (port.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signInErr != nil {
		return port.Identity{}, m.signInErr
	}
	if pw, ok := m.users[email]; !ok || pw != password {
		return port.Identity{}, port.ErrInvalidCredentials
	}
	if u, ok := m.profiles[email]; ok && !u.Status.CanSignIn() {
		return port.Identity{}, port.ErrIdentityDisabled
	}
	return port.Identity{UID: "uid-" + email, Email: email, DisplayName: "Cat"}, nil
}

func (m *mockIdentityProvider) SignUp(ctx context.Context, email, password, displayName string) (port.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return port.Identity{}, port.ErrIdentityExists
	}
	if len(password) < 6 {
		return port.Identity{}, port.ErrWeakPassword
	}
	m.users[email] = password
	m.profiles[email] = domain.User{UID: "uid-" + email, Email: email, DisplayName: displayName, Status: domain.UserActive}
	return port.Identity{UID: "uid-" + email, Email: email, DisplayName: displayName}, nil
}

func (m *mockIdentityProvider) ListIdentities(ctx context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.profiles))
	for _, u := range m.profiles {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (m *mockIdentityProvider) UpdateIdentity(ctx context.Context, email string, fn func(*domain.User) error) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	u, ok := m.profiles[email]
	if !ok {
		return domain.User{}, port.ErrIdentityNotFound
	}
	if err := fn(&u); err != nil {
		return domain.User{}, err
	}
	u.Email = email
	m.profiles[email] = u
	return u, nil
}

func (m *mockIdentityProvider) SignOut(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedOut = append(m.signedOut, uid)
	return nil
}

func (m *mockIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; !ok {
		return port.ErrIdentityNotFound
	}
	m.resetSent = append(m.resetSent, email)
	return nil
}

func (m *mockIdentityProvider) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if code != "good-code" {
		return port.ErrInvalidResetCode
	}
	m.users[email] = newPassword
	return nil
}

func nullLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

var testKeys = repository.NewKeys("")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// racingStore runs the first Update callback once against the current value,
// applies race as if another writer had committed first, then retries the
// callback the way the CAS backed stores do.
type racingStore struct {
	*mockStore
	race func(m *mockStore)
	once sync.Once
}

func (r *racingStore) Update(ctx context.Context, key string, fn port.UpdateFunc) error {
	r.once.Do(func() {
		current, _ := r.mockStore.raw(key)
		var seed []byte
		if current != "" {
			seed = []byte(current)
		}
		_, _ = fn(seed)
		r.race(r.mockStore)
	})
	return r.mockStore.Update(ctx, key, fn)
}
