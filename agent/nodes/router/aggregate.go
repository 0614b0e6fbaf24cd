package routernode

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

// Aggregate builds the trace and the answer. It always produces output.
func Aggregate(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	res := contractx.Result{
		Query:   in.Query,
		Intents: in.Intents,
		Trace:   make([]contractx.TraceEntry, 0, len(in.Plan)),
	}
	if len(in.Intents) > 1 {
		res.Label = contractx.IntentMultiIntent
	} else if len(in.Intents) == 1 {
		res.Label = in.Intents[0].Kind
	}

	if in.ClassifyErr != nil {
		res.Trace = append(res.Trace, RouterFailure(in.Query, in.ClassifyErr))
		res.Answer = "Could not complete the request because " + in.ClassifyErr.Error() + "."
		return GraphOutput{Result: res}, nil
	}

	lines := make([]string, 0, len(in.Plan))
	for i, step := range in.Plan {
		var out Outcome
		if i < len(in.Outcomes) {
			out = in.Outcomes[i]
		}
		entry := contractx.TraceEntry{
			Step:         i + 1,
			Intent:       step.Intent,
			Facade:       step.Role,
			Operation:    step.Operation,
			Request:      requestSummary(step),
			Status:       out.Status,
			HighPriority: step.HighPriority,
			Elapsed:      out.Elapsed,
		}
		for _, dep := range waitsOn(step) {
			entry.DependsOn = append(entry.DependsOn, dep+1)
		}

		if out.Status == contractx.StepOK {
			entry.Response = out.Response.Summary
			lines = append(lines, out.Response.Summary)
		} else {
			if out.Status == "" {
				entry.Status = contractx.StepFailed
			}
			cause := out.Err
			if cause == nil {
				cause = fmt.Errorf("%w: step did not run", contractx.ErrInternal)
			}
			entry.Kind = contractx.KindOf(cause)
			msg := contractx.StepError(describe(step), cause).Error()
			entry.Response = msg
			lines = append(lines, capitalize(msg)+".")
		}
		res.Trace = append(res.Trace, entry)
	}

	if len(lines) == 0 {
		lines = append(lines, "Nothing to do for this request.")
	}
	res.Answer = strings.Join(lines, "\n")
	return GraphOutput{Result: res}, nil
}

// RouterFailure is the trace entry for a query the router could not plan.
func RouterFailure(q contractx.Query, err error) contractx.TraceEntry {
	return contractx.TraceEntry{
		Step:     0,
		Facade:   contractx.RoleRouter,
		Request:  q.Text,
		Response: contractx.StepError("classification", err).Error(),
		Status:   contractx.StepFailed,
		Kind:     contractx.KindOf(err),
	}
}

func describe(step Step) string {
	what := strings.ReplaceAll(string(step.Intent), "_", " ")
	if step.CustomerID != nil {
		return fmt.Sprintf("%s for customer %d", what, *step.CustomerID)
	}
	return what
}

func requestSummary(step Step) string {
	parts := make([]string, 0, len(step.Args)+1)
	if step.CustomerID != nil {
		parts = append(parts, fmt.Sprintf("customer_id=%d", *step.CustomerID))
	}
	for _, k := range slices.Sorted(maps.Keys(step.Args)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, step.Args[k]))
	}
	return fmt.Sprintf("%s(%s) %q", step.Operation, strings.Join(parts, ", "), step.Instruction)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// waitsOn lists every earlier step this one waited for, hard or context only.
func waitsOn(step Step) []int {
	deps := append([]int(nil), step.DependsOn...)
	for _, src := range step.ContextFrom {
		if !slices.Contains(deps, src) {
			deps = append(deps, src)
		}
	}
	return deps
}
