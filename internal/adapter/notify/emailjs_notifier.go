package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
)

const (
	DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"
	maxSendElapsed         = 30 * time.Second
)

type EmailJSConfig struct {
	Endpoint   string
	ServiceID  string
	PublicKey  string
	PrivateKey string
	// Templates maps each notification kind to an EmailJS template id
	Templates map[domain.NotificationKind]string
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

type EmailJSNotifier struct {
	cfg    EmailJSConfig
	client *http.Client
	log    logrus.FieldLogger
}

func NewEmailJSNotifier(cfg EmailJSConfig, client *http.Client, log logrus.FieldLogger) *EmailJSNotifier {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEmailJSEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EmailJSNotifier{cfg: cfg, client: client, log: log}
}

// Send posts the notification to EmailJS. Server errors and transport
// failures are retried with exponential backoff; 4xx responses are not.
func (n *EmailJSNotifier) Send(ctx context.Context, msg domain.Notification) error {
	template, ok := n.cfg.Templates[msg.Kind]
	if !ok || template == "" {
		return fmt.Errorf("no email template for %q", msg.Kind)
	}

	params := make(map[string]string, len(msg.Params)+1)
	for k, v := range msg.Params {
		params[k] = v
	}
	if msg.To != "" {
		params["to_email"] = msg.To
	}

	body, err := json.Marshal(emailJSRequest{
		ServiceID:      n.cfg.ServiceID,
		TemplateID:     template,
		UserID:         n.cfg.PublicKey,
		AccessToken:    n.cfg.PrivateKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("encode emailjs request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxSendElapsed

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := n.post(ctx, body)
		if err != nil {
			n.log.WithError(err).WithFields(logrus.Fields{
				"kind":    msg.Kind,
				"attempt": attempt,
			}).Warn("emailjs send failed")
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

func (n *EmailJSNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("emailjs returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return err
	}
	return backoff.Permanent(err)
}
