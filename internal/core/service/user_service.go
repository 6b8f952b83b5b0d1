package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/port"
)

// UserFilter narrows the back-office user list. Query matches the name or
// email case-insensitively; an empty Status keeps every status.
type UserFilter struct {
	Query  string
	Status domain.UserStatus
}

func (f UserFilter) Matches(u domain.User) bool {
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(u.DisplayName), q) ||
		strings.Contains(strings.ToLower(u.Email), q)
}

// UserSummary is a customer account with its order totals. Cancelled orders
// do not count towards TotalSpent.
type UserSummary struct {
	domain.User
	Orders     int             `json:"orders"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}

type UserInput struct {
	Email       string            `json:"email"`
	Password    string            `json:"password"`
	DisplayName string            `json:"name"`
	Phone       string            `json:"phone"`
	Address     string            `json:"address"`
	Status      domain.UserStatus `json:"status"`
}

// UserService manages customer accounts from the back office.
type UserService struct {
	provider  port.IdentityProvider
	directory port.IdentityDirectory
	auth      *AuthService
	ledger    *OrderLedger
	log       logrus.FieldLogger
}

func NewUserService(provider port.IdentityProvider, directory port.IdentityDirectory, auth *AuthService, ledger *OrderLedger, log logrus.FieldLogger) *UserService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &UserService{provider: provider, directory: directory, auth: auth, ledger: ledger, log: log}
}

func (s *UserService) List(ctx context.Context, filter UserFilter) ([]UserSummary, error) {
	users, err := s.directory.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		if !filter.Matches(u) {
			continue
		}
		orders, err := s.ledger.Orders(ctx, u.Email)
		if err != nil {
			return nil, err
		}
		sum := UserSummary{User: u, Orders: len(orders), TotalSpent: decimal.Zero}
		for _, o := range orders {
			if o.Status != domain.OrderStatusCancelled {
				sum.TotalSpent = sum.TotalSpent.Add(o.TotalAmount)
			}
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// Create opens an account on the identity provider and fills in the profile
// fields the provider's sign up does not take.
func (s *UserService) Create(ctx context.Context, in UserInput) (domain.User, error) {
	status, err := domain.ParseUserStatus(string(in.Status))
	if err != nil {
		return domain.User{}, err
	}
	profile := domain.User{DisplayName: in.DisplayName, Phone: in.Phone, Address: in.Address, Status: status}
	if err := profile.Validate(); err != nil {
		return domain.User{}, err
	}
	if s.auth.Reserved(in.Email) {
		return domain.User{}, port.ErrIdentityExists
	}

	identity, err := s.provider.SignUp(ctx, strings.ToLower(strings.TrimSpace(in.Email)), in.Password, in.DisplayName)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	user, err := s.directory.UpdateIdentity(ctx, identity.Email, func(u *domain.User) error {
		u.Phone = profile.Phone
		u.Address = profile.Address
		u.Status = profile.Status
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.log.WithField("uid", user.UID).Info("user created from back office")
	return user, nil
}

// Update rewrites the profile of the account for email. Moving it out of
// active status ends its live session.
func (s *UserService) Update(ctx context.Context, email string, in UserInput) (domain.User, error) {
	status, err := domain.ParseUserStatus(string(in.Status))
	if err != nil {
		return domain.User{}, err
	}
	profile := domain.User{DisplayName: in.DisplayName, Phone: in.Phone, Address: in.Address, Status: status}
	if err := profile.Validate(); err != nil {
		return domain.User{}, err
	}

	user, err := s.directory.UpdateIdentity(ctx, email, func(u *domain.User) error {
		u.DisplayName = profile.DisplayName
		u.Phone = profile.Phone
		u.Address = profile.Address
		u.Status = profile.Status
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, s.revokeIfDisabled(ctx, user)
}

// Deactivate marks the account inactive and signs it out.
func (s *UserService) Deactivate(ctx context.Context, email string) (domain.User, error) {
	user, err := s.directory.UpdateIdentity(ctx, email, func(u *domain.User) error {
		u.Status = domain.UserInactive
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, s.revokeIfDisabled(ctx, user)
}

func (s *UserService) revokeIfDisabled(ctx context.Context, u domain.User) error {
	if u.Status.CanSignIn() {
		return nil
	}
	if err := s.auth.Revoke(ctx, u.Email); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.log.WithFields(logrus.Fields{"uid": u.UID, "status": u.Status}).Info("user disabled")
	return nil
}
