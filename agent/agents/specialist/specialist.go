package specialist

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	intentx "github.com/tanpawarit/Chative-Support-Router/agent/intent"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
)

// Action operations served by the action role on top of the tool catalog.
const (
	OpBilling      = "billing"
	OpCancellation = "cancellation"
	OpAccountHelp  = "account_help"
)

var createTicketPattern = regexp.MustCompile(`(?i)\b(?:create|open|file|raise)\b.*\bticket\b`)

type Option func(*Facade)

func WithNotifier(n contractx.Notifier) Option {
	return func(f *Facade) {
		f.notifier = n
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(f *Facade) {
		f.logger = logger
	}
}

// Facade exposes the part of the tool catalog that belongs to one role.
type Facade struct {
	role         contractx.Role
	exec         toolx.Executor
	capabilities []*schema.ToolInfo
	allowed      map[string]struct{}
	notifier     contractx.Notifier
	logger       zerolog.Logger
}

var _ contractx.Specialist = (*Facade)(nil)

func New(role contractx.Role, catalog *toolx.Registry, opts ...Option) (*Facade, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unsupported specialist role=%q", contractx.ErrValidation, role)
	}
	if catalog == nil {
		return nil, errors.New("tool catalog is required")
	}

	tools, exec := catalog.BuildForRole(role)
	f := &Facade{
		role:    role,
		exec:    exec,
		allowed: make(map[string]struct{}),
		logger:  log.Logger.With().Str("component", "specialist").Str("role", string(role)).Logger(),
	}
	for _, info := range tools {
		f.capabilities = append(f.capabilities, info)
		f.allowed[info.Name] = struct{}{}
	}
	if role == contractx.RoleAction {
		for _, c := range actionCapabilities() {
			f.capabilities = append(f.capabilities, c)
			f.allowed[c.Name] = struct{}{}
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

func (f *Facade) Role() contractx.Role {
	return f.role
}

func (f *Facade) Capabilities() []*schema.ToolInfo {
	return append([]*schema.ToolInfo(nil), f.capabilities...)
}

// Invoke runs one request. Missing identifiers and disallowed operations are
// returned as errors; failures reported by the tool layer come back inside
// the response with OK=false.
func (f *Facade) Invoke(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
	resp := contractx.SpecialistResponse{RequestID: req.RequestID, Role: f.role}

	if req.Role != "" && req.Role != f.role {
		return resp, fmt.Errorf("%w: request for role=%s sent to role=%s", contractx.ErrValidation, req.Role, f.role)
	}

	op := strings.TrimSpace(req.Operation)
	if op == "" {
		op = InferOperation(f.role, req.Instruction)
	}
	if op == "" {
		return resp, fmt.Errorf("%w: cannot infer an operation from instruction %q", contractx.ErrValidation, req.Instruction)
	}
	resp.Operation = op

	if _, ok := f.allowed[op]; !ok {
		return resp, fmt.Errorf("%w: operation=%s is not allowed for role=%s", contractx.ErrValidation, op, f.role)
	}

	logger := f.logger.With().Str("request_id", req.RequestID).Str("operation", op).Logger()
	logger.Debug().Bool("high_priority", req.HighPriority).Msg("specialist invoked")

	var (
		envs    []contractx.Envelope
		summary string
		err     error
	)
	switch op {
	case OpBilling, OpCancellation, OpAccountHelp:
		envs, summary, err = f.runAction(ctx, op, req)
	default:
		envs, summary, err = f.runTool(ctx, op, req)
	}
	if err != nil {
		logger.Info().Err(err).Str("kind", string(contractx.KindOf(err))).Msg("specialist refused request")
		return resp, err
	}

	resp.Envelopes = envs
	for _, env := range envs {
		if !env.OK {
			resp.Fault = &contractx.Fault{Kind: env.Kind, Message: env.Error}
			resp.Summary = env.Summary()
			logger.Info().Str("kind", string(env.Kind)).Str("error", env.Error).Msg("tool reported failure")
			return resp, nil
		}
	}

	resp.OK = true
	resp.Summary = summary
	return resp, nil
}

func (f *Facade) runTool(ctx context.Context, op string, req contractx.SpecialistRequest) ([]contractx.Envelope, string, error) {
	args := make(map[string]any, len(req.Args)+1)
	maps.Copy(args, req.Args)

	switch op {
	case toolx.ToolGetCustomer, toolx.ToolGetCustomerHistory, toolx.ToolUpdateCustomer, toolx.ToolCreateTicket:
		if err := resolveCustomerID(op, req, args); err != nil {
			return nil, "", err
		}
	}

	switch op {
	case toolx.ToolListCustomers:
		if _, ok := args["status"]; !ok {
			if status := statusMentioned(req.Instruction); status != "" {
				args["status"] = status
			}
		}
	case toolx.ToolUpdateCustomer:
		if _, ok := args["data"]; !ok {
			fields := intentx.ExtractUpdateFields(req.Instruction)
			if len(fields) == 0 {
				return nil, "", fmt.Errorf("%w: no customer fields to update in instruction", contractx.ErrValidation)
			}
			data := make(map[string]any, len(fields))
			for k, v := range fields {
				data[k] = v
			}
			args["data"] = data
		}
	case toolx.ToolCreateTicket:
		if _, ok := args["issue"]; !ok {
			args["issue"] = strings.TrimSpace(req.Instruction)
		}
		if _, ok := args["priority"]; !ok {
			args["priority"] = ticketPriority(req)
		}
	}

	env := f.exec(ctx, op, args)
	if env.OK && env.Ticket != nil {
		f.escalate(ctx, req, env)
	}
	return []contractx.Envelope{env}, env.Summary(), nil
}

// resolveCustomerID fills args["customer_id"] from the request hint, the
// args or the instruction text, in that order. It never guesses.
func resolveCustomerID(op string, req contractx.SpecialistRequest, args map[string]any) error {
	if req.CustomerID != nil {
		args["customer_id"] = *req.CustomerID
		return nil
	}
	if v, ok := args["customer_id"]; ok && v != nil {
		return nil
	}
	if id, ok := intentx.ExtractCustomerID(req.Instruction); ok {
		args["customer_id"] = id
		return nil
	}
	return fmt.Errorf("%w: %s needs a customer id and none was supplied", contractx.ErrMissingIdentifier, op)
}

func statusMentioned(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "disabled") || strings.Contains(lower, "inactive"):
		return "disabled"
	case strings.Contains(lower, "active"):
		return "active"
	default:
		return ""
	}
}

func ticketPriority(req contractx.SpecialistRequest) string {
	if req.HighPriority || intentx.IsUrgent(req.Instruction) {
		return "high"
	}
	return "medium"
}

// InferOperation maps a free-text instruction onto an operation of role.
// It returns "" when nothing fits.
func InferOperation(role contractx.Role, instruction string) string {
	if strings.TrimSpace(instruction) == "" {
		return ""
	}
	if role == contractx.RoleAction && createTicketPattern.MatchString(instruction) {
		return toolx.ToolCreateTicket
	}

	intents, err := intentx.NewRuleClassifier().Classify(context.Background(), contractx.Query{Text: instruction})
	if err != nil {
		return ""
	}
	for _, in := range intents {
		if in.Kind.Role() != role {
			continue
		}
		return OperationFor(in.Kind, in.Text)
	}
	if role == contractx.RoleAction {
		return OpAccountHelp
	}
	return ""
}

// OperationFor names the operation that serves an intent kind.
func OperationFor(kind contractx.IntentKind, text string) string {
	switch kind {
	case contractx.IntentLookup:
		return toolx.ToolGetCustomer
	case contractx.IntentUpdateCustomer:
		return toolx.ToolUpdateCustomer
	case contractx.IntentHistory:
		return toolx.ToolGetCustomerHistory
	case contractx.IntentReporting:
		if strings.Contains(strings.ToLower(text), "open ticket") {
			return toolx.ToolListActiveCustomersWithOpenTickets
		}
		return toolx.ToolListCustomers
	case contractx.IntentBilling:
		return OpBilling
	case contractx.IntentCancellation:
		return OpCancellation
	case contractx.IntentAccountHelp:
		return OpAccountHelp
	case contractx.IntentEscalation:
		return toolx.ToolCreateTicket
	default:
		return ""
	}
}
