package specialist

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	qstashx "github.com/tanpawarit/Chative-Support-Router/pkg/qstash"
)

// QStashNotifier forwards escalations to a webhook through QStash.
type QStashNotifier struct {
	client      *qstashx.Client
	destination string
}

var _ contractx.Notifier = (*QStashNotifier)(nil)

func NewQStashNotifier(client *qstashx.Client, destination string) *QStashNotifier {
	return &QStashNotifier{client: client, destination: destination}
}

func (n *QStashNotifier) NotifyEscalation(ctx context.Context, ev contractx.Escalation) error {
	dedup := fmt.Sprintf("ticket-%d", ev.TicketID)
	if _, err := n.client.PublishJSON(ctx, n.destination, ev, qstashx.WithDeduplicationID(dedup), qstashx.WithRetries(3)); err != nil {
		return fmt.Errorf("publish escalation for ticket=%d: %w", ev.TicketID, err)
	}
	return nil
}
