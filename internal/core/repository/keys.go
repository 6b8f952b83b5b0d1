package repository

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var ErrInvalidScope = errors.New("invalid scope")

const DefaultPrefix = "catrink_"

// Collection names. The full key is prefix + name, with "_" + scope appended
// for identity-scoped collections.
const (
	Products       = "products"
	Flavors        = "flavors"
	Coupons        = "coupons"
	Orders         = "orders"
	HasEverOrdered = "has_ever_ordered"
	Session        = "session"
	Settings       = "admin_settings"
	OrderIndex     = "admin_orders"
	IdentityUsers  = "identity_users"
	Requests       = "checkout_requests"
)

type Keys struct {
	prefix string
}

func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{prefix: prefix}
}

func (k Keys) Global(name string) string {
	return k.prefix + name
}

func (k Keys) Scoped(name, scope string) (string, error) {
	normalized, err := NormalizeScope(scope)
	if err != nil {
		return "", err
	}
	return k.prefix + name + "_" + normalized, nil
}

// NormalizeScope accepts a bare email address and returns it lower-cased.
func NormalizeScope(scope string) (string, error) {
	trimmed := strings.TrimSpace(scope)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return strings.ToLower(addr.Address), nil
}
