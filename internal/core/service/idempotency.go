package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
)

const (
	requestClaimTTL      = 24 * time.Hour
	maxIdempotencyKeyLen = 128
)

var ErrDuplicateRequest = errors.New("this order is already being placed")

// requestClaim is an Idempotency-Key held by one checkout. TrackingID is
// empty until the order it guards has been recorded.
type requestClaim struct {
	TrackingID string    `json:"trackingId,omitempty"`
	ClaimedAt  time.Time `json:"claimedAt"`
}

// ClaimRequest reserves key for scope. A key already completed returns the
// tracking id of its order; a key still held by another checkout returns
// ErrDuplicateRequest. Claims older than a day are dropped.
func (l *OrderLedger) ClaimRequest(ctx context.Context, scope, key string, now time.Time) (string, error) {
	if len(key) > maxIdempotencyKeyLen {
		return "", fmt.Errorf("%w: idempotency key is too long", domain.ErrValidation)
	}
	repo, err := l.requests.ForScope(scope)
	if err != nil {
		return "", err
	}

	var trackingID string
	_, err = repo.Update(ctx, func(m *map[string]requestClaim) error {
		trackingID = ""
		if *m == nil {
			*m = map[string]requestClaim{}
		}
		for k, c := range *m {
			if now.Sub(c.ClaimedAt) > requestClaimTTL {
				delete(*m, k)
			}
		}
		if c, ok := (*m)[key]; ok {
			if c.TrackingID == "" {
				return ErrDuplicateRequest
			}
			trackingID = c.TrackingID
			return repository.ErrNoChange
		}
		(*m)[key] = requestClaim{ClaimedAt: now}
		return nil
	})
	if err != nil {
		return "", err
	}
	return trackingID, nil
}

// CompleteRequest ties key to the order it produced.
func (l *OrderLedger) CompleteRequest(ctx context.Context, scope, key, trackingID string) error {
	return l.updateClaim(ctx, scope, func(m map[string]requestClaim) {
		c := m[key]
		c.TrackingID = trackingID
		m[key] = c
	})
}

// ReleaseRequest frees key after a failed checkout so the client can retry.
func (l *OrderLedger) ReleaseRequest(ctx context.Context, scope, key string) error {
	return l.updateClaim(ctx, scope, func(m map[string]requestClaim) {
		delete(m, key)
	})
}

func (l *OrderLedger) updateClaim(ctx context.Context, scope string, fn func(map[string]requestClaim)) error {
	repo, err := l.requests.ForScope(scope)
	if err != nil {
		return err
	}
	_, err = repo.Update(ctx, func(m *map[string]requestClaim) error {
		if *m == nil {
			*m = map[string]requestClaim{}
		}
		fn(*m)
		return nil
	})
	return err
}
