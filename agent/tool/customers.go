package tool

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
)

func (h handlers) getCustomer(ctx context.Context, args map[string]any) (contractx.Envelope, error) {
	c, err := h.store.GetCustomer(ctx, args["customer_id"].(int64))
	if err != nil {
		return contractx.Envelope{}, err
	}
	return contractx.Envelope{Customer: c}, nil
}

func (h handlers) listCustomers(ctx context.Context, args map[string]any) (contractx.Envelope, error) {
	status := recordx.CustomerStatus(args["status"].(string))
	limit := recordx.DefaultListLimit
	if v, ok := args["limit"].(int64); ok {
		if v < 1 {
			return contractx.Envelope{}, fmt.Errorf("%w: limit must be >= 1", contractx.ErrValidation)
		}
		limit = int(v)
	}

	customers, err := h.store.ListCustomers(ctx, status, limit)
	if err != nil {
		return contractx.Envelope{}, err
	}
	count := len(customers)
	return contractx.Envelope{Customers: nonNil(customers), Count: &count, Status: string(status)}, nil
}

// updateCustomer with an empty data object returns the customer unchanged.
func (h handlers) updateCustomer(ctx context.Context, args map[string]any) (contractx.Envelope, error) {
	patch, err := recordx.PatchFromMap(args["data"].(map[string]any))
	if err != nil {
		return contractx.Envelope{}, err
	}
	c, err := h.store.UpdateCustomer(ctx, args["customer_id"].(int64), patch)
	if err != nil {
		return contractx.Envelope{}, err
	}
	return contractx.Envelope{Customer: c}, nil
}

func (h handlers) activeWithOpenTickets(ctx context.Context, _ map[string]any) (contractx.Envelope, error) {
	customers, err := h.store.ListActiveCustomersWithOpenTickets(ctx)
	if err != nil {
		return contractx.Envelope{}, err
	}
	count := len(customers)
	return contractx.Envelope{Customers: nonNil(customers), Count: &count}, nil
}
