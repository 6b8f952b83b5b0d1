package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/core/service"
	"github.com/rl1809/catrink/internal/port"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a service error onto an HTTP status and a message that is
// safe to show the caller.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidCoupon),
		errors.Is(err, domain.ErrMinimumOrderNotMet),
		errors.Is(err, domain.ErrCouponInactive),
		errors.Is(err, domain.ErrCouponExpired),
		errors.Is(err, domain.ErrCouponExhausted),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, repository.ErrInvalidScope),
		errors.Is(err, port.ErrWeakPassword),
		errors.Is(err, port.ErrInvalidResetCode):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrFlavorNotFound),
		errors.Is(err, service.ErrCouponNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, service.ErrDuplicateCoupon),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, port.ErrIdentityExists):
		return http.StatusConflict, err.Error()

	case errors.Is(err, port.ErrConflict):
		return http.StatusConflict, "the record changed while saving, please retry"

	case errors.Is(err, port.ErrIdentityDisabled):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, service.ErrSessionExpired):
		return http.StatusUnauthorized, "session expired, please login again"

	case errors.Is(err, port.ErrIdentityNotFound):
		return http.StatusNotFound, "no account found for this email"

	case errors.Is(err, service.ErrDeliveryFailed):
		return http.StatusBadGateway, "failed to send message, please try again later"

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "request timed out"
	}
	return http.StatusInternalServerError, "internal error"
}
