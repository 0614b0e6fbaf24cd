package contract

import (
	"time"

	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
)

type Role string

const (
	RoleRouter Role = "router"
	RoleData   Role = "data"
	RoleAction Role = "action"
)

func (r Role) Valid() bool {
	return r == RoleData || r == RoleAction
}

// Label is the name used in coordination logs.
func (r Role) Label() string {
	switch r {
	case RoleData:
		return "CustomerData"
	case RoleAction:
		return "Support"
	default:
		return "Router"
	}
}

type IntentKind string

const (
	IntentLookup         IntentKind = "lookup"
	IntentAccountHelp    IntentKind = "account_help"
	IntentBilling        IntentKind = "billing"
	IntentCancellation   IntentKind = "cancellation"
	IntentReporting      IntentKind = "reporting"
	IntentUpdateCustomer IntentKind = "update_customer"
	IntentHistory        IntentKind = "history"
	IntentEscalation     IntentKind = "escalation"

	// IntentMultiIntent labels a query that decomposed into several intents.
	IntentMultiIntent IntentKind = "multi_intent"
)

func (k IntentKind) Valid() bool {
	switch k {
	case IntentLookup, IntentAccountHelp, IntentBilling, IntentCancellation,
		IntentReporting, IntentUpdateCustomer, IntentHistory:
		return true
	default:
		return false
	}
}

// Role returns the specialist responsible for the intent.
func (k IntentKind) Role() Role {
	switch k {
	case IntentLookup, IntentReporting, IntentHistory, IntentUpdateCustomer:
		return RoleData
	case IntentBilling, IntentCancellation, IntentAccountHelp, IntentEscalation:
		return RoleAction
	default:
		return RoleRouter
	}
}

type Intent struct {
	Kind       IntentKind        `json:"kind"`
	Urgent     bool              `json:"urgent,omitempty"`
	CustomerID *int64            `json:"customer_id,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Text       string            `json:"text,omitempty"`
}

type Query struct {
	Text       string `json:"text"`
	CustomerID *int64 `json:"customer_id,omitempty"`
}

// Envelope is the uniform tool result. OK=false carries Error and Kind only.
type Envelope struct {
	OK        bool               `json:"ok"`
	Customer  *recordx.Customer  `json:"customer,omitempty"`
	Customers []recordx.Customer `json:"customers,omitzero"`
	Ticket    *recordx.Ticket    `json:"ticket,omitempty"`
	Tickets   []recordx.Ticket   `json:"tickets,omitzero"`
	Count     *int               `json:"count,omitempty"`
	Status    string             `json:"status,omitempty"`
	Error     string             `json:"error,omitempty"`
	Kind      ErrorKind          `json:"kind,omitempty"`
}

func Failure(err error) Envelope {
	return Envelope{OK: false, Error: err.Error(), Kind: KindOf(err)}
}

func (e Envelope) Err() error {
	if e.OK {
		return nil
	}
	return ErrorFromKind(e.Kind, e.Error)
}

type SpecialistRequest struct {
	RequestID    string         `json:"request_id"`
	Role         Role           `json:"role"`
	Instruction  string         `json:"instruction"`
	Operation    string         `json:"operation,omitempty"`
	CustomerID   *int64         `json:"customer_id,omitempty"`
	Args         map[string]any `json:"args,omitempty"`
	HighPriority bool           `json:"high_priority,omitempty"`
	Context      []Envelope     `json:"context,omitempty"`
}

type SpecialistResponse struct {
	RequestID string     `json:"request_id"`
	Role      Role       `json:"role"`
	Operation string     `json:"operation,omitempty"`
	OK        bool       `json:"ok"`
	Summary   string     `json:"summary"`
	Envelopes []Envelope `json:"envelopes,omitempty"`
	Fault     *Fault     `json:"fault,omitempty"`
}

type Fault struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func FaultFrom(err error) *Fault {
	if err == nil {
		return nil
	}
	return &Fault{Kind: KindOf(err), Message: err.Error()}
}

func (f *Fault) Err() error {
	if f == nil {
		return nil
	}
	return ErrorFromKind(f.Kind, f.Message)
}

type Escalation struct {
	RequestID  string           `json:"request_id"`
	TicketID   int64            `json:"ticket_id"`
	CustomerID int64            `json:"customer_id"`
	Issue      string           `json:"issue"`
	Priority   recordx.Priority `json:"priority"`
	CreatedAt  time.Time        `json:"created_at"`
}

type StepStatus string

const (
	StepOK     StepStatus = "ok"
	StepFailed StepStatus = "failed"
)

type TraceEntry struct {
	Step         int           `json:"step"`
	Intent       IntentKind    `json:"intent"`
	Facade       Role          `json:"facade"`
	Operation    string        `json:"operation,omitempty"`
	Request      string        `json:"request"`
	Response     string        `json:"response"`
	Status       StepStatus    `json:"status"`
	HighPriority bool          `json:"high_priority,omitempty"`
	Kind         ErrorKind     `json:"kind,omitempty"`
	DependsOn    []int         `json:"depends_on,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

type Result struct {
	Query   Query        `json:"query"`
	Label   IntentKind   `json:"label,omitempty"`
	Intents []Intent     `json:"intents"`
	Trace   []TraceEntry `json:"trace"`
	Answer  string       `json:"answer"`
}
