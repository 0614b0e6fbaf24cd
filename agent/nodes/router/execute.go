package routernode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"golang.org/x/sync/errgroup"
)

const DefaultStepTimeout = 10 * time.Second

type ExecConfig struct {
	StepTimeout  time.Duration
	NewRequestID func() string
	Logger       zerolog.Logger
}

func (c ExecConfig) withDefaults() ExecConfig {
	if c.StepTimeout <= 0 {
		c.StepTimeout = DefaultStepTimeout
	}
	if c.NewRequestID == nil {
		c.NewRequestID = uuid.NewString
	}
	return c
}

// Execute runs every step as soon as its dependencies finish. Independent
// steps run concurrently and a failed step only affects its dependents.
func Execute(ctx context.Context, in *GraphState, invoker contractx.Invoker, cfg ExecConfig) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	cfg = cfg.withDefaults()

	n := len(in.Plan)
	outcomes := make([]Outcome, n)
	done := make([]chan struct{}, n)
	for i := range done {
		done[i] = make(chan struct{})
	}

	var g errgroup.Group
	for i := range in.Plan {
		g.Go(func() error {
			defer close(done[i])
			outcomes[i] = runWhenReady(ctx, in.Plan, i, outcomes, done, invoker, cfg)
			return nil
		})
	}
	_ = g.Wait()

	in.Outcomes = outcomes
	return in, nil
}

// runWhenReady reads outcomes of dependencies only after their done channel
// is closed. A failed DependsOn step fails this one, while a failed
// ContextFrom step only leaves its envelopes out of the context.
func runWhenReady(
	ctx context.Context,
	plan []Step,
	i int,
	outcomes []Outcome,
	done []chan struct{},
	invoker contractx.Invoker,
	cfg ExecConfig,
) Outcome {
	step := plan[i]
	wait := func(dep int) bool {
		select {
		case <-done[dep]:
			return true
		case <-ctx.Done():
			return false
		}
	}
	cancelled := Outcome{
		Status: contractx.StepFailed,
		Err:    fmt.Errorf("%w: query cancelled before the step ran", contractx.ErrRemoteUnreachable),
	}

	for _, dep := range step.DependsOn {
		if !wait(dep) {
			return cancelled
		}
		if outcomes[dep].Status != contractx.StepOK {
			return Outcome{
				Status: contractx.StepFailed,
				Err:    fmt.Errorf("step %d (%s) did not complete: %w", dep+1, plan[dep].Operation, outcomes[dep].Err),
			}
		}
	}

	req := contractx.SpecialistRequest{
		RequestID:    cfg.NewRequestID(),
		Role:         step.Role,
		Instruction:  step.Instruction,
		Operation:    step.Operation,
		CustomerID:   cloneID(step.CustomerID),
		Args:         step.Args,
		HighPriority: step.HighPriority,
	}
	for _, src := range step.ContextFrom {
		if !wait(src) {
			return cancelled
		}
		if outcomes[src].Status != contractx.StepOK {
			cfg.Logger.Debug().Int("step", i+1).Int("context_step", src+1).Msg("context step failed, continuing without it")
			continue
		}
		req.Context = append(req.Context, outcomes[src].Response.Envelopes...)
	}

	out := invokeWithTimeout(ctx, invoker, req, cfg)

	ev := cfg.Logger.Info()
	if out.Status != contractx.StepOK {
		ev = cfg.Logger.Warn().Err(out.Err).Str("kind", string(contractx.KindOf(out.Err)))
	}
	ev.Int("step", i+1).
		Str("role", string(step.Role)).
		Str("operation", step.Operation).
		Str("request_id", req.RequestID).
		Bool("high_priority", step.HighPriority).
		Dur("elapsed", out.Elapsed).
		Msg("step finished")
	return out
}

type reply struct {
	resp contractx.SpecialistResponse
	err  error
}

func invokeWithTimeout(ctx context.Context, invoker contractx.Invoker, req contractx.SpecialistRequest, cfg ExecConfig) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, cfg.StepTimeout)
	defer cancel()

	start := time.Now()
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- reply{err: fmt.Errorf("%w: specialist panicked: %v", contractx.ErrInternal, p)}
			}
		}()
		resp, err := invoker.Invoke(callCtx, req.Role, req)
		ch <- reply{resp: resp, err: err}
	}()

	var r reply
	select {
	case r = <-ch:
		if r.err != nil && callCtx.Err() != nil && (errors.Is(r.err, context.DeadlineExceeded) || errors.Is(r.err, context.Canceled)) {
			r.err = waitError(ctx, req.Role, cfg.StepTimeout)
		}
	case <-callCtx.Done():
		r.err = waitError(ctx, req.Role, cfg.StepTimeout)
	}

	out := Outcome{Request: req, Response: r.resp, Err: r.err, Elapsed: time.Since(start)}
	switch {
	case r.err != nil:
		out.Status = contractx.StepFailed
	case !r.resp.OK:
		out.Status = contractx.StepFailed
		out.Err = r.resp.Fault.Err()
		if out.Err == nil {
			out.Err = fmt.Errorf("%w: specialist reported failure without detail", contractx.ErrInternal)
		}
	default:
		out.Status = contractx.StepOK
	}
	return out
}

func waitError(parent context.Context, role contractx.Role, timeout time.Duration) error {
	if parent.Err() != nil {
		return fmt.Errorf("%w: query cancelled while waiting for the %s specialist", contractx.ErrRemoteUnreachable, role)
	}
	return fmt.Errorf("%w: %s specialist did not answer within %s", contractx.ErrRemoteUnreachable, role, timeout)
}
