package contract

import (
	"fmt"
	"strings"

	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
)

// Summary renders the envelope payload as one human readable line.
func (e Envelope) Summary() string {
	if !e.OK {
		return "error: " + e.Error
	}

	switch {
	case e.Customer != nil && (e.Tickets != nil || e.Count != nil):
		return fmt.Sprintf("%s has %s", describeCustomer(*e.Customer), describeTickets(e.Tickets))
	case e.Customer != nil:
		return describeCustomer(*e.Customer)
	case e.Ticket != nil:
		t := e.Ticket
		return fmt.Sprintf("ticket #%d opened for customer #%d with %s priority, status %s: %s",
			t.ID, t.CustomerID, t.Priority, t.Status, t.Issue)
	case e.Customers != nil || e.Count != nil:
		return describeCustomers(e.Customers)
	case e.Tickets != nil:
		return describeTickets(e.Tickets)
	default:
		return "ok"
	}
}

func describeCustomer(c recordx.Customer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "customer #%d %s, email %s", c.ID, c.Name, orDash(c.Email))
	if c.Phone != "" {
		fmt.Fprintf(&b, ", phone %s", c.Phone)
	}
	fmt.Fprintf(&b, ", status %s", c.Status)
	return b.String()
}

func describeCustomers(cs []recordx.Customer) string {
	if len(cs) == 0 {
		return "no customers matched"
	}
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, fmt.Sprintf("#%d %s (%s)", c.ID, c.Name, c.Status))
	}
	noun := "customers"
	if len(cs) == 1 {
		noun = "customer"
	}
	return fmt.Sprintf("%d %s: %s", len(cs), noun, strings.Join(parts, ", "))
}

func describeTickets(ts []recordx.Ticket) string {
	if len(ts) == 0 {
		return "no tickets"
	}
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, fmt.Sprintf("#%d [%s/%s] %s", t.ID, t.Priority, t.Status, t.Issue))
	}
	noun := "tickets"
	if len(ts) == 1 {
		noun = "ticket"
	}
	return fmt.Sprintf("%d %s: %s", len(ts), noun, strings.Join(parts, "; "))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Render prints the coordination log followed by the answer.
func (r Result) Render() string {
	var b strings.Builder

	kinds := make([]string, 0, len(r.Intents))
	for _, in := range r.Intents {
		k := string(in.Kind)
		if in.Urgent {
			k += " (urgent)"
		}
		kinds = append(kinds, k)
	}
	parsed := "none"
	if len(kinds) > 0 {
		parsed = strings.Join(kinds, ", ")
	}
	if r.Label == IntentMultiIntent {
		parsed += " [multi-intent]"
	}
	fmt.Fprintf(&b, "- [Router] Parsed intents: %s\n", parsed)

	for _, e := range r.Trace {
		if e.Facade == RoleRouter {
			fmt.Fprintf(&b, "- [Router] %s: %s\n", e.Status, e.Response)
			continue
		}
		label := e.Facade.Label()
		prio := ""
		if e.HighPriority {
			prio = " [high priority]"
		}
		fmt.Fprintf(&b, "- [Router -> %s] step %d %s%s: %s\n", label, e.Step, e.Operation, prio, e.Request)
		fmt.Fprintf(&b, "- [%s -> Router] step %d %s: %s\n", label, e.Step, e.Status, e.Response)
	}

	fmt.Fprintf(&b, "\n%s\n", r.Answer)
	return b.String()
}
