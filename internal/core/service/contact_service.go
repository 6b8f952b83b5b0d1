package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/port"
)

var ErrDeliveryFailed = errors.New("failed to send message, please try again or contact us directly")

const defaultContactSubject = "New Contact Form Submission from Catrink Website"

type ContactForm struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required"`
}

// ContactService delivers contact form submissions synchronously so the
// sender learns about failures.
type ContactService struct {
	notifier  port.Notifier
	recipient string
	validate  *validator.Validate
	log       logrus.FieldLogger
}

func NewContactService(notifier port.Notifier, recipient string, log logrus.FieldLogger) *ContactService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ContactService{
		notifier:  notifier,
		recipient: recipient,
		validate:  validator.New(),
		log:       log,
	}
}

func (s *ContactService) Submit(ctx context.Context, form ContactForm) error {
	if err := s.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "Email" && verrs[0].Tag() == "email" {
			return fmt.Errorf("%w: please enter a valid email address", domain.ErrValidation)
		}
		return fmt.Errorf("%w: please fill in all required fields", domain.ErrValidation)
	}

	n := domain.Notification{
		Kind: domain.NotificationContact,
		To:   s.recipient,
		Params: map[string]string{
			"from_name":  form.Name,
			"from_email": form.Email,
			"phone":      orDefault(form.Phone, "Not provided"),
			"subject":    orDefault(form.Subject, defaultContactSubject),
			"message":    form.Message,
			"to_email":   s.recipient,
			"reply_to":   form.Email,
		},
	}

	if err := s.notifier.Send(ctx, n); err != nil {
		s.log.WithError(err).Error("failed to send contact message")
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}
