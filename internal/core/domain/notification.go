package domain

type NotificationKind string

const (
	NotificationOrderPlaced   NotificationKind = "order-placed"
	NotificationOrderUpdate   NotificationKind = "order-update"
	NotificationContact       NotificationKind = "contact"
	NotificationPasswordReset NotificationKind = "password-reset"
)

// Notification is a templated transactional email. Params are passed to the
// mail provider untouched.
type Notification struct {
	Kind   NotificationKind  `json:"kind"`
	To     string            `json:"to,omitempty"`
	Params map[string]string `json:"params"`
}
