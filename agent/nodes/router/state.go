package routernode

import (
	"errors"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

var ErrInvalidQuery = errors.New("query text is empty")

type GraphInput struct {
	Query contractx.Query
}

type GraphOutput struct {
	Result contractx.Result
}

// GraphState travels through the router graph for a single query.
type GraphState struct {
	Query contractx.Query
	Now   time.Time

	Intents     []contractx.Intent
	ClassifyErr error

	Plan     []Step
	Outcomes []Outcome
}

// Step is one delegated call. DependsOn and ContextFrom hold indexes of
// earlier steps in the same plan.
type Step struct {
	Index        int
	Intent       contractx.IntentKind
	Role         contractx.Role
	Operation    string
	Instruction  string
	CustomerID   *int64
	Args         map[string]any
	HighPriority bool
	DependsOn    []int
	ContextFrom  []int
}

type Outcome struct {
	Request  contractx.SpecialistRequest
	Response contractx.SpecialistResponse
	Err      error
	Status   contractx.StepStatus
	Elapsed  time.Duration
}
