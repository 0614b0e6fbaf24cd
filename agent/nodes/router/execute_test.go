package routernode

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeInvoker struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error)
}

func (f *fakeInvoker) Invoke(ctx context.Context, role contractx.Role, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Operation)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, req)
	}
	return contractx.SpecialistResponse{OK: true, Role: role, Operation: req.Operation, Summary: req.Operation + " done"}, nil
}

func (f *fakeInvoker) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func counter() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "req-" + strconv.Itoa(n)
	}
}

func TestExecuteRespectsDependencies(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{}
	inv.fn = func(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
		if req.Operation == "update_customer" {
			time.Sleep(20 * time.Millisecond)
		}
		return contractx.SpecialistResponse{OK: true, Operation: req.Operation, Summary: req.Operation}, nil
	}
	st := &GraphState{Plan: []Step{
		{Role: contractx.RoleData, Operation: "update_customer", CustomerID: id(1)},
		{Role: contractx.RoleData, Operation: "get_customer_history", CustomerID: id(1), DependsOn: []int{0}},
	}}

	out, err := Execute(context.Background(), st, inv, ExecConfig{NewRequestID: counter()})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 2)
	assert.Equal(t, []string{"update_customer", "get_customer_history"}, inv.order())
	assert.Equal(t, contractx.StepOK, out.Outcomes[1].Status)
	assert.NotEqual(t, out.Outcomes[0].Request.RequestID, out.Outcomes[1].Request.RequestID)
}

func TestExecuteTimeoutDoesNotBlockIndependentSteps(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	inv := &fakeInvoker{}
	inv.fn = func(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
		if req.Role == contractx.RoleAction {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return contractx.SpecialistResponse{}, ctx.Err()
		}
		return contractx.SpecialistResponse{OK: true, Summary: "found"}, nil
	}
	st := &GraphState{Plan: []Step{
		{Role: contractx.RoleAction, Operation: "billing", CustomerID: id(5)},
		{Role: contractx.RoleData, Operation: "get_customer", CustomerID: id(2)},
	}}

	out, err := Execute(context.Background(), st, inv, ExecConfig{StepTimeout: 30 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, contractx.StepFailed, out.Outcomes[0].Status)
	assert.True(t, errors.Is(out.Outcomes[0].Err, contractx.ErrRemoteUnreachable), "err = %v", out.Outcomes[0].Err)
	assert.Equal(t, contractx.StepOK, out.Outcomes[1].Status)
}

func TestExecuteSkipsDependentsOfFailedStep(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{}
	inv.fn = func(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
		if req.Operation == "get_customer" {
			return contractx.SpecialistResponse{
				Fault: &contractx.Fault{Kind: contractx.KindNotFound, Message: "customer with id=99 not found"},
			}, nil
		}
		return contractx.SpecialistResponse{OK: true, Summary: "ok"}, nil
	}
	st := &GraphState{Plan: []Step{
		{Intent: contractx.IntentLookup, Role: contractx.RoleData, Operation: "get_customer", CustomerID: id(99)},
		{Intent: contractx.IntentHistory, Role: contractx.RoleData, Operation: "get_customer_history", CustomerID: id(99), DependsOn: []int{0}},
	}}

	out, err := Execute(context.Background(), st, inv, ExecConfig{})
	require.NoError(t, err)
	assert.Equal(t, contractx.StepFailed, out.Outcomes[0].Status)
	assert.True(t, errors.Is(out.Outcomes[0].Err, contractx.ErrNotFound))
	assert.Equal(t, contractx.StepFailed, out.Outcomes[1].Status)
	assert.True(t, errors.Is(out.Outcomes[1].Err, contractx.ErrNotFound), "dependent step keeps the cause")
	assert.Equal(t, []string{"get_customer"}, inv.order())
}

func TestExecuteRunsWhenContextStepFails(t *testing.T) {
	t.Parallel()

	var got []contractx.Envelope
	inv := &fakeInvoker{}
	inv.fn = func(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
		if req.Operation == "get_customer" {
			return contractx.SpecialistResponse{
				Envelopes: []contractx.Envelope{{OK: false, Error: "customer with id=12345 not found"}},
				Fault:     &contractx.Fault{Kind: contractx.KindNotFound, Message: "customer with id=12345 not found"},
			}, nil
		}
		got = req.Context
		return contractx.SpecialistResponse{OK: true, Summary: "To upgrade, choose the new plan"}, nil
	}
	st := &GraphState{Plan: []Step{
		{Intent: contractx.IntentLookup, Role: contractx.RoleData, Operation: "get_customer", CustomerID: id(12345)},
		{Intent: contractx.IntentAccountHelp, Role: contractx.RoleAction, Operation: "account_help", CustomerID: id(12345), ContextFrom: []int{0}},
	}}

	out, err := Execute(context.Background(), st, inv, ExecConfig{})
	require.NoError(t, err)
	assert.Equal(t, contractx.StepFailed, out.Outcomes[0].Status)
	assert.Equal(t, contractx.StepOK, out.Outcomes[1].Status)
	assert.Empty(t, got, "failed context is left out")
	assert.Equal(t, []string{"get_customer", "account_help"}, inv.order())
}

func TestExecutePassesContextEnvelopes(t *testing.T) {
	t.Parallel()

	var got []contractx.Envelope
	inv := &fakeInvoker{}
	inv.fn = func(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
		if req.Operation == "account_help" {
			got = req.Context
		}
		return contractx.SpecialistResponse{OK: true, Envelopes: []contractx.Envelope{{OK: true, Status: "seen"}}}, nil
	}
	st := &GraphState{Plan: []Step{
		{Role: contractx.RoleData, Operation: "get_customer", CustomerID: id(3)},
		{Role: contractx.RoleAction, Operation: "account_help", ContextFrom: []int{0}},
	}}

	_, err := Execute(context.Background(), st, inv, ExecConfig{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "seen", got[0].Status)
}

func TestExecuteRecoversSpecialistPanic(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{fn: func(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
		panic("boom")
	}}
	st := &GraphState{Plan: []Step{{Role: contractx.RoleData, Operation: "get_customer", CustomerID: id(1)}}}

	out, err := Execute(context.Background(), st, inv, ExecConfig{})
	require.NoError(t, err)
	assert.Equal(t, contractx.StepFailed, out.Outcomes[0].Status)
	assert.Equal(t, contractx.KindInternal, contractx.KindOf(out.Outcomes[0].Err))
}

func TestAggregateBuildsTraceAndAnswer(t *testing.T) {
	t.Parallel()

	st := &GraphState{
		Query:   contractx.Query{Text: "q"},
		Intents: []contractx.Intent{{Kind: contractx.IntentLookup}, {Kind: contractx.IntentBilling}},
		Plan: []Step{
			{Intent: contractx.IntentLookup, Role: contractx.RoleData, Operation: "get_customer", CustomerID: id(5)},
			{Intent: contractx.IntentBilling, Role: contractx.RoleAction, Operation: "billing", CustomerID: id(5), DependsOn: []int{0}},
		},
		Outcomes: []Outcome{
			{Status: contractx.StepOK, Response: contractx.SpecialistResponse{OK: true, Summary: "Customer 5: Charlie Brown"}},
			{Status: contractx.StepFailed, Err: contractx.ErrorFromKind(contractx.KindRemoteUnreachable, "support specialist did not answer")},
		},
	}

	out, err := Aggregate(st)
	require.NoError(t, err)
	res := out.Result
	assert.Equal(t, contractx.IntentMultiIntent, res.Label)
	require.Len(t, res.Trace, 2)
	assert.Equal(t, []int{1}, res.Trace[1].DependsOn)
	assert.Equal(t, contractx.KindRemoteUnreachable, res.Trace[1].Kind)
	assert.Contains(t, res.Trace[0].Request, "customer_id=5")
	assert.Contains(t, res.Answer, "Charlie Brown")
	assert.Contains(t, res.Answer, "Could not complete billing for customer 5 because support specialist did not answer.")
}

func TestAggregateClassifyFailure(t *testing.T) {
	t.Parallel()

	st := &GraphState{
		Query:       contractx.Query{Text: "hello"},
		ClassifyErr: errors.New("model offline"),
	}
	out, err := Aggregate(st)
	require.NoError(t, err)
	require.Len(t, out.Result.Trace, 1)
	assert.Equal(t, contractx.RoleRouter, out.Result.Trace[0].Facade)
	assert.Equal(t, contractx.StepFailed, out.Result.Trace[0].Status)
	assert.Equal(t, "Could not complete the request because model offline.", out.Result.Answer)
}
