package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
)

func actionCapabilities() []*schema.ToolInfo {
	customerID := &schema.ParameterInfo{Type: schema.Integer, Desc: "Customer the request is about.", Required: true}
	return []*schema.ToolInfo{
		toolx.NewInfo(OpBilling,
			"Handle billing problems such as double charges and refunds. Files a ticket, high priority when urgent.",
			toolx.Params{"customer_id": customerID}),
		toolx.NewInfo(OpCancellation,
			"Record a cancellation request as a support ticket.",
			toolx.Params{"customer_id": customerID}),
		toolx.NewInfo(OpAccountHelp,
			"Explain upgrades, plan changes and other account questions.",
			toolx.Params{"customer_id": {Type: schema.Integer, Desc: "Optional customer to tailor the answer to."}}),
	}
}

func (f *Facade) runAction(ctx context.Context, op string, req contractx.SpecialistRequest) ([]contractx.Envelope, string, error) {
	switch op {
	case OpBilling:
		return f.fileTicket(ctx, op, req, "Billing", ticketPriority(req))
	case OpCancellation:
		priority := string(recordx.PriorityMedium)
		if req.HighPriority {
			priority = string(recordx.PriorityHigh)
		}
		return f.fileTicket(ctx, op, req, "Cancellation", priority)
	case OpAccountHelp:
		return nil, accountGuidance(req), nil
	default:
		return nil, "", fmt.Errorf("%w: unknown action=%s", contractx.ErrUnknownOperation, op)
	}
}

func (f *Facade) fileTicket(
	ctx context.Context,
	op string,
	req contractx.SpecialistRequest,
	label string,
	priority string,
) ([]contractx.Envelope, string, error) {
	args := map[string]any{}
	if err := resolveCustomerID(op, req, args); err != nil {
		return nil, "", err
	}
	args["issue"] = fmt.Sprintf("%s: %s", label, strings.TrimSpace(req.Instruction))
	args["priority"] = priority

	env := f.exec(ctx, toolx.ToolCreateTicket, args)
	if !env.OK || env.Ticket == nil {
		return []contractx.Envelope{env}, env.Summary(), nil
	}
	f.escalate(ctx, req, env)

	t := env.Ticket
	var next string
	switch {
	case op == OpBilling && t.Priority == recordx.PriorityHigh:
		next = "the billing team will review the duplicate charge and process any refund first"
	case op == OpBilling:
		next = "the billing team will review the charge"
	default:
		next = "the account stays as it is until the cancellation is processed"
	}
	summary := fmt.Sprintf("Opened %s priority %s ticket #%d for customer #%d; %s.",
		t.Priority, strings.ToLower(label), t.ID, t.CustomerID, next)
	return []contractx.Envelope{env}, summary, nil
}

func accountGuidance(req contractx.SpecialistRequest) string {
	var customer *recordx.Customer
	for _, env := range req.Context {
		if env.OK && env.Customer != nil {
			customer = env.Customer
			break
		}
	}

	lower := strings.ToLower(req.Instruction)
	var topic string
	switch {
	case strings.Contains(lower, "upgrad"):
		topic = "To upgrade, choose the new plan under Account > Billing. The change applies right away and the price difference is prorated."
	case strings.Contains(lower, "downgrad"):
		topic = "To downgrade, choose the smaller plan under Account > Billing. It takes effect at the next renewal."
	case strings.Contains(lower, "password") || strings.Contains(lower, "login") || strings.Contains(lower, "log in"):
		topic = "Use 'Forgot password' on the sign-in page; the reset link is valid for one hour."
	default:
		topic = "A support specialist can walk through the account settings with you."
	}

	if customer == nil {
		return topic
	}
	if customer.Status == recordx.CustomerStatusDisabled {
		return fmt.Sprintf("Customer #%d %s is disabled, so the account must be re-enabled first. %s",
			customer.ID, customer.Name, topic)
	}
	return fmt.Sprintf("Customer #%d %s is %s and eligible. %s", customer.ID, customer.Name, customer.Status, topic)
}

// escalate publishes high priority tickets. Failures are logged only.
func (f *Facade) escalate(ctx context.Context, req contractx.SpecialistRequest, env contractx.Envelope) {
	if f.notifier == nil || env.Ticket == nil || env.Ticket.Priority != recordx.PriorityHigh {
		return
	}
	t := env.Ticket
	err := f.notifier.NotifyEscalation(ctx, contractx.Escalation{
		RequestID:  req.RequestID,
		TicketID:   t.ID,
		CustomerID: t.CustomerID,
		Issue:      t.Issue,
		Priority:   t.Priority,
		CreatedAt:  t.CreatedAt,
	})
	if err != nil {
		f.logger.Warn().Err(err).Int64("ticket_id", t.ID).Msg("escalation notify failed")
		return
	}
	f.logger.Info().Int64("ticket_id", t.ID).Msg("escalation published")
}
