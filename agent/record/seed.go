package record

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type seedTicket struct {
	customer int // index into sampleCustomers
	issue    string
	priority Priority
	status   TicketStatus
	age      time.Duration
}

var sampleCustomers = []Customer{
	{Name: "John Doe", Email: "john.doe@example.com", Phone: "+1-555-0101", Status: CustomerStatusActive},
	{Name: "Jane Smith", Email: "jane.smith@example.com", Phone: "+1-555-0102", Status: CustomerStatusActive},
	{Name: "Bob Johnson", Email: "bob.johnson@example.com", Phone: "+1-555-0103", Status: CustomerStatusDisabled},
	{Name: "Alice Williams", Email: "alice.w@techcorp.com", Phone: "+1-555-0104", Status: CustomerStatusActive},
	{Name: "Charlie Brown", Email: "charlie.brown@email.com", Phone: "+1-555-0105", Status: CustomerStatusActive},
	{Name: "Diana Prince", Email: "diana.prince@company.org", Phone: "+1-555-0106", Status: CustomerStatusActive},
	{Name: "Edward Norton", Email: "ed.norton@business.net", Phone: "+1-555-0107", Status: CustomerStatusDisabled},
	{Name: "Fiona Green", Email: "fiona.green@startup.io", Phone: "+1-555-0108", Status: CustomerStatusActive},
	{Name: "George Miller", Email: "george.m@enterprise.com", Phone: "+1-555-0109", Status: CustomerStatusActive},
	{Name: "Hannah Lee", Email: "hannah.lee@global.com", Phone: "+1-555-0110", Status: CustomerStatusActive},
	{Name: "Isaac Newton", Email: "isaac.n@science.edu", Phone: "+1-555-0111", Status: CustomerStatusActive},
	{Name: "Julia Roberts", Email: "julia.r@movies.com", Phone: "+1-555-0112", Status: CustomerStatusDisabled},
}

var sampleTickets = []seedTicket{
	{customer: 0, issue: "Cannot login to account", priority: PriorityHigh, status: TicketStatusOpen, age: 2 * time.Hour},
	{customer: 0, issue: "Password reset email not received", priority: PriorityMedium, status: "resolved", age: 72 * time.Hour},
	{customer: 1, issue: "Invoice shows wrong billing address", priority: PriorityLow, status: "resolved", age: 120 * time.Hour},
	{customer: 2, issue: "Account disabled without notice", priority: PriorityHigh, status: TicketStatusOpen, age: 24 * time.Hour},
	{customer: 3, issue: "Database connection timeout errors", priority: PriorityHigh, status: "in_progress", age: 6 * time.Hour},
	{customer: 4, issue: "Request for premium plan pricing", priority: PriorityLow, status: TicketStatusOpen, age: 30 * time.Hour},
	{customer: 4, issue: "Mobile app crashes on startup", priority: PriorityMedium, status: "resolved", age: 200 * time.Hour},
	{customer: 5, issue: "Feature request: dark mode", priority: PriorityLow, status: TicketStatusOpen, age: 48 * time.Hour},
	{customer: 5, issue: "Export to CSV not working", priority: PriorityMedium, status: TicketStatusOpen, age: 12 * time.Hour},
	{customer: 7, issue: "Two-factor codes arrive late", priority: PriorityMedium, status: "in_progress", age: 9 * time.Hour},
	{customer: 9, issue: "Refund for annual plan", priority: PriorityHigh, status: "resolved", age: 300 * time.Hour},
	{customer: 10, issue: "API rate limit too low", priority: PriorityMedium, status: TicketStatusOpen, age: 4 * time.Hour},
	{customer: 11, issue: "Close my account", priority: PriorityLow, status: TicketStatusOpen, age: 90 * time.Hour},
}

func (s *Store) seedIfEmpty(ctx context.Context) error {
	n, err := s.CountCustomers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	now := s.timestamp()
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		customers := make([]Customer, len(sampleCustomers))
		for i, c := range sampleCustomers {
			c.CreatedAt = now.Add(-30 * 24 * time.Hour)
			c.UpdatedAt = c.CreatedAt
			customers[i] = c
		}
		// One row at a time so ids follow the sample order.
		for i := range customers {
			if _, err := tx.NewInsert().Model(&customers[i]).Exec(ctx); err != nil {
				return fmt.Errorf("seed customer %q: %w", customers[i].Name, err)
			}
		}

		tickets := make([]Ticket, 0, len(sampleTickets))
		for _, st := range sampleTickets {
			tickets = append(tickets, Ticket{
				CustomerID: customers[st.customer].ID,
				Issue:      st.issue,
				Priority:   st.priority,
				Status:     st.status,
				CreatedAt:  now.Add(-st.age),
			})
		}
		if _, err := tx.NewInsert().Model(&tickets).Exec(ctx); err != nil {
			return fmt.Errorf("seed tickets: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Int("customers", len(sampleCustomers)).
		Int("tickets", len(sampleTickets)).
		Msg("seeded sample data")
	return nil
}
