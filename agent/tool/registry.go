package tool

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

// Handler receives schema-validated arguments. Returned errors are turned
// into failure envelopes by the registry.
type Handler func(ctx context.Context, args map[string]any) (contractx.Envelope, error)

type Tool struct {
	Info    *schema.ToolInfo
	Roles   []contractx.Role
	Handler Handler

	input *openapi3.Schema
}

func (t Tool) Name() string {
	if t.Info == nil {
		return ""
	}
	return t.Info.Name
}

func (t Tool) AllowedFor(role contractx.Role) bool {
	return slices.Contains(t.Roles, role)
}

// Executor runs a tool on behalf of one role. It never returns a Go error.
type Executor func(ctx context.Context, tool string, args map[string]any) contractx.Envelope

type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	order  []string
	logger zerolog.Logger
}

var _ contractx.Dispatcher = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: log.Logger.With().Str("component", "tool").Logger(),
	}
}

func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return fmt.Errorf("%w: tool name is required", contractx.ErrValidation)
	}
	if t.Handler == nil {
		return fmt.Errorf("%w: tool=%s has no handler", contractx.ErrValidation, name)
	}
	input, err := InputSchema(t.Info)
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: tool=%s already registered", contractx.ErrValidation, name)
	}
	info := *t.Info
	info.Name = name
	t.Info = &info
	t.input = input
	r.tools[name] = &t
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return Tool{}, false
	}
	return *t, true
}

// List returns tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.tools[name])
	}
	return out
}

// Dispatch validates args and runs the named tool. Unknown names, schema
// violations, handler errors and handler panics all come back as failure
// envelopes.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (env contractx.Envelope) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Str("tool", name).Interface("panic", p).Msg("tool panicked")
			env = contractx.Failure(fmt.Errorf("%w: exception in tool '%s': %v", contractx.ErrInternal, name, p))
		}
	}()

	t, ok := r.Get(name)
	if !ok {
		return contractx.Failure(fmt.Errorf("%w: unknown tool '%s'", contractx.ErrUnknownOperation, name))
	}

	validated, err := validateArgs(t.input, args)
	if err != nil {
		return contractx.Failure(err)
	}

	env, err = t.Handler(ctx, validated)
	if err != nil {
		r.logger.Debug().Err(err).Str("tool", name).Str("kind", string(contractx.KindOf(err))).Msg("tool failed")
		return contractx.Failure(err)
	}
	env.OK = true
	env.Error = ""
	env.Kind = ""
	return env
}

// BuildForRole returns the tool infos visible to role and an executor that
// refuses everything else.
func (r *Registry) BuildForRole(role contractx.Role) ([]*schema.ToolInfo, Executor) {
	var infos []*schema.ToolInfo
	for _, t := range r.List() {
		if t.AllowedFor(role) {
			infos = append(infos, t.Info)
		}
	}
	return infos, r.NewExecutor(role)
}

func (r *Registry) NewExecutor(role contractx.Role) Executor {
	return func(ctx context.Context, tool string, args map[string]any) contractx.Envelope {
		t, ok := r.Get(tool)
		if ok && !t.AllowedFor(role) {
			return contractx.Failure(fmt.Errorf("%w: tool=%s is unavailable for role=%s",
				contractx.ErrValidation, tool, role))
		}
		return r.Dispatch(ctx, tool, args)
	}
}
