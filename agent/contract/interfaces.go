package contract

import (
	"context"

	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
)

type RecordStore interface {
	GetCustomer(ctx context.Context, id int64) (*recordx.Customer, error)
	ListCustomers(ctx context.Context, status recordx.CustomerStatus, limit int) ([]recordx.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, patch recordx.CustomerPatch) (*recordx.Customer, error)
	CreateTicket(ctx context.Context, customerID int64, issue string, priority recordx.Priority) (*recordx.Ticket, error)
	ListTicketHistory(ctx context.Context, customerID int64) ([]recordx.Ticket, error)
	ListActiveCustomersWithOpenTickets(ctx context.Context) ([]recordx.Customer, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) Envelope
}

type Specialist interface {
	Invoke(ctx context.Context, req SpecialistRequest) (SpecialistResponse, error)
}

// Invoker reaches a specialist by role, in-process or over the network.
type Invoker interface {
	Invoke(ctx context.Context, role Role, req SpecialistRequest) (SpecialistResponse, error)
}

type Classifier interface {
	Classify(ctx context.Context, q Query) ([]Intent, error)
}

type ClassifierFunc func(ctx context.Context, q Query) ([]Intent, error)

func (f ClassifierFunc) Classify(ctx context.Context, q Query) ([]Intent, error) {
	return f(ctx, q)
}

type Notifier interface {
	NotifyEscalation(ctx context.Context, ev Escalation) error
}
