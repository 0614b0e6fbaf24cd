package tool

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
)

func (h handlers) createTicket(ctx context.Context, args map[string]any) (contractx.Envelope, error) {
	t, err := h.store.CreateTicket(
		ctx,
		args["customer_id"].(int64),
		args["issue"].(string),
		recordx.Priority(args["priority"].(string)),
	)
	if err != nil {
		return contractx.Envelope{}, err
	}
	return contractx.Envelope{Ticket: t}, nil
}

// customerHistory reports NotFound for unknown customers instead of an empty list.
func (h handlers) customerHistory(ctx context.Context, args map[string]any) (contractx.Envelope, error) {
	id := args["customer_id"].(int64)
	c, err := h.store.GetCustomer(ctx, id)
	if err != nil {
		return contractx.Envelope{}, err
	}
	tickets, err := h.store.ListTicketHistory(ctx, id)
	if err != nil {
		return contractx.Envelope{}, err
	}
	count := len(tickets)
	return contractx.Envelope{Customer: c, Tickets: nonNil(tickets), Count: &count}, nil
}

// nonNil keeps empty listings on the wire as [] rather than dropping the key.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
