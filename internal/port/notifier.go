package port

import (
	"context"

	"github.com/rl1809/catrink/internal/core/domain"
)

type Notifier interface {
	// Send delivers a single transactional email
	Send(ctx context.Context, n domain.Notification) error
}
