package specialist

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []contractx.Escalation
	err    error
}

func (f *fakeNotifier) NotifyEscalation(ctx context.Context, ev contractx.Escalation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func newTestFacades(t *testing.T, opts ...Option) (*Facade, *Facade, *recordx.Store) {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "support.db")
	store, err := recordx.Open(context.Background(), recordx.Config{DSN: dsn, Seed: true})
	if err != nil {
		t.Fatalf("recordx.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	catalog := toolx.NewCatalog(store)
	data, err := New(contractx.RoleData, catalog, opts...)
	if err != nil {
		t.Fatalf("New(data) error = %v", err)
	}
	action, err := New(contractx.RoleAction, catalog, opts...)
	if err != nil {
		t.Fatalf("New(action) error = %v", err)
	}
	return data, action, store
}

func int64Ptr(v int64) *int64 { return &v }

func TestDataFacadeGetCustomerFromInstruction(t *testing.T) {
	t.Parallel()

	data, _, _ := newTestFacades(t)
	resp, err := data.Invoke(context.Background(), contractx.SpecialistRequest{
		RequestID:   "r1",
		Instruction: "Get customer information for ID 5",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !resp.OK || resp.Operation != toolx.ToolGetCustomer {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.Contains(resp.Summary, "Charlie Brown") {
		t.Fatalf("summary = %q", resp.Summary)
	}
}

func TestFacadeNeverGuessesIdentifier(t *testing.T) {
	t.Parallel()

	data, action, _ := newTestFacades(t)
	cases := []struct {
		facade *Facade
		req    contractx.SpecialistRequest
	}{
		{data, contractx.SpecialistRequest{Operation: toolx.ToolGetCustomerHistory, Instruction: "show my ticket history"}},
		{data, contractx.SpecialistRequest{Operation: toolx.ToolUpdateCustomer, Instruction: "update my email to a@b.co"}},
		{action, contractx.SpecialistRequest{Operation: OpBilling, Instruction: "I've been charged twice"}},
	}
	for _, tc := range cases {
		_, err := tc.facade.Invoke(context.Background(), tc.req)
		if !errors.Is(err, contractx.ErrMissingIdentifier) {
			t.Fatalf("%s: error = %v, want ErrMissingIdentifier", tc.req.Operation, err)
		}
	}
}

func TestFacadeEnforcesRoleAllowList(t *testing.T) {
	t.Parallel()

	data, action, _ := newTestFacades(t)
	_, err := data.Invoke(context.Background(), contractx.SpecialistRequest{
		Operation: toolx.ToolCreateTicket, CustomerID: int64Ptr(5), Instruction: "open a ticket",
	})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("data create_ticket error = %v, want ErrValidation", err)
	}

	_, err = action.Invoke(context.Background(), contractx.SpecialistRequest{
		Operation: toolx.ToolUpdateCustomer, CustomerID: int64Ptr(5),
	})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("action update_customer error = %v, want ErrValidation", err)
	}

	_, err = data.Invoke(context.Background(), contractx.SpecialistRequest{
		Role: contractx.RoleAction, Operation: toolx.ToolGetCustomer, CustomerID: int64Ptr(5),
	})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("misrouted request error = %v, want ErrValidation", err)
	}
}

func TestActionFacadeUrgentBillingCreatesHighTicket(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	_, action, store := newTestFacades(t, WithNotifier(notifier))

	resp, err := action.Invoke(context.Background(), contractx.SpecialistRequest{
		RequestID:    "r-urgent",
		Instruction:  "I've been charged twice, please refund immediately!",
		CustomerID:   int64Ptr(5),
		HighPriority: true,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !resp.OK || resp.Operation != OpBilling {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Envelopes) != 1 || resp.Envelopes[0].Ticket == nil {
		t.Fatalf("expected one ticket envelope, got %+v", resp.Envelopes)
	}
	ticket := resp.Envelopes[0].Ticket
	if ticket.Priority != recordx.PriorityHigh || ticket.Status != recordx.TicketStatusOpen {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}

	history, err := store.ListTicketHistory(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListTicketHistory() error = %v", err)
	}
	if history[0].ID != ticket.ID {
		t.Fatalf("newest ticket = %d, want %d", history[0].ID, ticket.ID)
	}

	if len(notifier.events) != 1 || notifier.events[0].TicketID != ticket.ID {
		t.Fatalf("unexpected escalations: %+v", notifier.events)
	}
}

func TestActionFacadeEscalationFailureIsNotSurfaced(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{err: errors.New("qstash down")}
	_, action, _ := newTestFacades(t, WithNotifier(notifier))

	resp, err := action.Invoke(context.Background(), contractx.SpecialistRequest{
		Operation: OpBilling, Instruction: "refund please", CustomerID: int64Ptr(2),
	})
	if err != nil || !resp.OK {
		t.Fatalf("Invoke() = %+v, %v", resp, err)
	}
}

func TestActionFacadeCancellationIsMedium(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	_, action, _ := newTestFacades(t, WithNotifier(notifier))

	resp, err := action.Invoke(context.Background(), contractx.SpecialistRequest{
		Instruction: "please cancel my subscription", CustomerID: int64Ptr(4),
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Operation != OpCancellation || resp.Envelopes[0].Ticket.Priority != recordx.PriorityMedium {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("medium tickets must not escalate: %+v", notifier.events)
	}
}

func TestActionFacadeAccountHelpUsesContext(t *testing.T) {
	t.Parallel()

	_, action, _ := newTestFacades(t)
	customer := recordx.Customer{ID: 3, Name: "Bob Johnson", Status: recordx.CustomerStatusDisabled}
	resp, err := action.Invoke(context.Background(), contractx.SpecialistRequest{
		Operation:   OpAccountHelp,
		Instruction: "need help upgrading my account",
		Context:     []contractx.Envelope{{OK: true, Customer: &customer}},
	})
	if err != nil || !resp.OK {
		t.Fatalf("Invoke() = %+v, %v", resp, err)
	}
	if !strings.Contains(resp.Summary, "disabled") || !strings.Contains(resp.Summary, "upgrade") {
		t.Fatalf("summary = %q", resp.Summary)
	}

	resp, err = action.Invoke(context.Background(), contractx.SpecialistRequest{Instruction: "how do I upgrade?"})
	if err != nil || !resp.OK || resp.Operation != OpAccountHelp {
		t.Fatalf("account help without id = %+v, %v", resp, err)
	}
}

func TestFacadeSurfacesEnvelopeFailures(t *testing.T) {
	t.Parallel()

	data, action, _ := newTestFacades(t)
	resp, err := data.Invoke(context.Background(), contractx.SpecialistRequest{
		Operation: toolx.ToolGetCustomer, CustomerID: int64Ptr(12345),
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.OK || resp.Fault == nil || resp.Fault.Kind != contractx.KindNotFound {
		t.Fatalf("unexpected response: %+v", resp)
	}

	resp, err = action.Invoke(context.Background(), contractx.SpecialistRequest{
		Operation: OpBilling, Instruction: "charged twice", CustomerID: int64Ptr(12345),
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.OK || resp.Fault == nil || resp.Fault.Kind != contractx.KindReferential {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRegistryInvokeUnknownRole(t *testing.T) {
	t.Parallel()

	data, _, _ := newTestFacades(t)
	reg := NewRegistry(data)

	_, err := reg.Invoke(context.Background(), contractx.RoleAction, contractx.SpecialistRequest{})
	if !errors.Is(err, contractx.ErrRemoteUnreachable) {
		t.Fatalf("Invoke() error = %v, want ErrRemoteUnreachable", err)
	}

	resp, err := reg.Invoke(context.Background(), contractx.RoleData, contractx.SpecialistRequest{
		Operation: toolx.ToolListActiveCustomersWithOpenTickets,
	})
	if err != nil || !resp.OK {
		t.Fatalf("Invoke() = %+v, %v", resp, err)
	}
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	data, action, _ := newTestFacades(t)
	if got := len(data.Capabilities()); got != 5 {
		t.Fatalf("data capabilities = %d, want 5", got)
	}
	names := make(map[string]bool)
	for _, c := range action.Capabilities() {
		names[c.Name] = true
	}
	for _, want := range []string{toolx.ToolCreateTicket, OpBilling, OpCancellation, OpAccountHelp} {
		if !names[want] {
			t.Fatalf("action capability %s missing", want)
		}
	}
}
