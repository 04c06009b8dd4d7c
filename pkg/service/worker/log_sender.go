package worker

import (
	"context"

	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

// LogSender stands in for an external phone or SMS gateway and only writes
// the delivery to the log. Contact details are redacted by the logger.
type LogSender struct {
	method types.NotificationMethod
}

var _ interfaces.NotificationSender = &LogSender{}

func NewLogSender(method types.NotificationMethod) *LogSender {
	return &LogSender{method: method}
}

func (s *LogSender) Method() types.NotificationMethod {
	return s.method
}

func (s *LogSender) Send(ctx context.Context, n *model.NotificationIntent) error {
	logging.From(ctx).Info("Notification handed to gateway",
		"notification_id", n.ID,
		"method", s.method,
		"recipient", n.Recipient,
		"contact", n.Contact,
		"type", n.Type)
	return nil
}
