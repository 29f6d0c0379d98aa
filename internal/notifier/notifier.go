package notifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"practice-server/internal/mq"
)

const RKEmailRequested = "notification.email"

// ConfirmationEmail asks the notification service to send the booking
// confirmation. Rendering happens there; DedupKey identifies the message.
type ConfirmationEmail struct {
	DedupKey      string    `json:"dedup_key"`
	Template      string    `json:"template"`
	To            string    `json:"to"`
	Name          string    `json:"name,omitempty"`
	Subject       string    `json:"subject"`
	AppointmentID string    `json:"appointment_id"`
	ServiceTitle  string    `json:"service_title,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Timezone      string    `json:"timezone"`
	When          string    `json:"when"`
}

// MQNotifier hands notifications to the notification service over RabbitMQ
type MQNotifier struct {
	pub *mq.Publisher
}

func NewMQNotifier(pub *mq.Publisher) *MQNotifier {
	return &MQNotifier{pub: pub}
}

func (n *MQNotifier) SendConfirmation(ctx context.Context, msg ConfirmationEmail) error {
	return n.pub.PublishJSON(ctx, RKEmailRequested, msg.DedupKey, msg)
}

// ConsoleNotifier logs instead of sending
type ConsoleNotifier struct {
	logger *zap.Logger
}

func NewConsole(logger *zap.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (c *ConsoleNotifier) SendConfirmation(_ context.Context, msg ConfirmationEmail) error {
	c.logger.Info("notify",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("when", msg.When),
		zap.String("dedup_key", msg.DedupKey),
	)
	return nil
}

// HumanTimeRange formats a session window in the appointment's timezone
func HumanTimeRange(start, end time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	st := start.In(loc)
	et := end.In(loc)
	return fmt.Sprintf("%s - %s %s", st.Format("2006-01-02 15:04"), et.Format("15:04"), loc.String())
}
