package domain

import (
	"fmt"
	"strings"
	"time"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
	UserBanned   UserStatus = "banned"
)

// ParseUserStatus accepts the three statuses in any case. An empty string is
// active.
func ParseUserStatus(s string) (UserStatus, error) {
	status := UserStatus(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case "":
		return UserActive, nil
	case UserActive, UserInactive, UserBanned:
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown user status %q", ErrValidation, s)
}

// CanSignIn is false for inactive and banned accounts.
func (s UserStatus) CanSignIn() bool {
	return s == "" || s == UserActive
}

// User is a customer account as the back office sees it.
type User struct {
	UID         string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	Status      UserStatus `json:"status"`
	JoinedAt    time.Time  `json:"joinDate"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
}

func (u User) Validate() error {
	if strings.TrimSpace(u.DisplayName) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if _, err := ParseUserStatus(string(u.Status)); err != nil {
		return err
	}
	return nil
}
