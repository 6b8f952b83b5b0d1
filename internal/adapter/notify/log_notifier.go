package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/catrink/internal/core/domain"
)

// LogNotifier writes notifications to the log instead of mailing them.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg domain.Notification) error {
	n.log.WithFields(logrus.Fields{
		"kind":    msg.Kind,
		"to":      msg.To,
		"subject": msg.Params["subject"],
	}).Info("notification")
	return nil
}
