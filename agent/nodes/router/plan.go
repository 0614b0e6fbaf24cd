package routernode

import (
	"fmt"
	"strings"

	specialistx "github.com/tanpawarit/Chative-Support-Router/agent/agents/specialist"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
)

func PlanSteps(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.ClassifyErr != nil {
		return in, nil
	}
	in.Plan = BuildPlan(in.Query, in.Intents)
	return in, nil
}

// BuildPlan turns intents into ordered steps. Reads of a customer wait for
// earlier writes to that customer and account help takes the customer lookup
// as optional context. An urgent query that files no high priority ticket
// gets an escalation step appended.
func BuildPlan(q contractx.Query, intents []contractx.Intent) []Step {
	var (
		steps      []Step
		lookupFor  = make(map[int64]int)
		writesFor  = make(map[int64][]int)
		allWrites  []int
		urgent     bool
		highTicket bool
		knownID    *int64
	)

	add := func(s Step) int {
		s.Index = len(steps)
		steps = append(steps, s)
		return s.Index
	}
	writesBefore := func(id *int64) []int {
		if id == nil {
			return nil
		}
		return append([]int(nil), writesFor[*id]...)
	}

	for _, it := range intents {
		urgent = urgent || it.Urgent
		if knownID == nil && it.CustomerID != nil {
			knownID = cloneID(it.CustomerID)
		}

		text := strings.TrimSpace(it.Text)
		if text == "" {
			text = q.Text
		}
		s := Step{
			Intent:      it.Kind,
			Role:        it.Kind.Role(),
			Operation:   specialistx.OperationFor(it.Kind, text),
			Instruction: text,
			CustomerID:  cloneID(it.CustomerID),
		}

		switch it.Kind {
		case contractx.IntentLookup:
			if s.CustomerID != nil {
				if _, ok := lookupFor[*s.CustomerID]; ok {
					continue
				}
			}
			s.DependsOn = writesBefore(s.CustomerID)
		case contractx.IntentHistory:
			s.DependsOn = writesBefore(s.CustomerID)
		case contractx.IntentReporting:
			s.DependsOn = append([]int(nil), allWrites...)
			if s.Operation == toolx.ToolListCustomers {
				s.Args = map[string]any{"status": reportingStatus(text)}
			}
		case contractx.IntentUpdateCustomer:
			s.DependsOn = writesBefore(s.CustomerID)
			if len(it.Fields) > 0 {
				data := make(map[string]any, len(it.Fields))
				for k, v := range it.Fields {
					data[k] = v
				}
				s.Args = map[string]any{"data": data}
			}
		case contractx.IntentAccountHelp:
			if s.CustomerID != nil {
				li, ok := lookupFor[*s.CustomerID]
				if !ok {
					li = add(Step{
						Intent:      contractx.IntentLookup,
						Role:        contractx.RoleData,
						Operation:   toolx.ToolGetCustomer,
						Instruction: text,
						CustomerID:  cloneID(s.CustomerID),
						DependsOn:   writesBefore(s.CustomerID),
					})
					lookupFor[*s.CustomerID] = li
				}
				s.ContextFrom = []int{li}
			}
		case contractx.IntentBilling, contractx.IntentCancellation:
			s.HighPriority = it.Urgent
			highTicket = highTicket || it.Urgent
		}

		idx := add(s)
		switch it.Kind {
		case contractx.IntentLookup:
			if s.CustomerID != nil {
				lookupFor[*s.CustomerID] = idx
			}
		case contractx.IntentUpdateCustomer, contractx.IntentBilling, contractx.IntentCancellation:
			allWrites = append(allWrites, idx)
			if s.CustomerID != nil {
				writesFor[*s.CustomerID] = append(writesFor[*s.CustomerID], idx)
			}
		}
	}

	if urgent && !highTicket {
		add(Step{
			Intent:       contractx.IntentEscalation,
			Role:         contractx.RoleAction,
			Operation:    toolx.ToolCreateTicket,
			Instruction:  q.Text,
			CustomerID:   knownID,
			HighPriority: true,
			Args: map[string]any{
				"issue":    "Escalation: " + q.Text,
				"priority": "high",
			},
		})
	}
	return steps
}

func reportingStatus(text string) string {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "disabled") || strings.Contains(lower, "inactive") {
		return "disabled"
	}
	return "active"
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
