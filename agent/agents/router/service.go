package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	nodex "github.com/tanpawarit/Chative-Support-Router/agent/nodes/router"
	logx "github.com/tanpawarit/Chative-Support-Router/pkg/logger"
)

var ErrInvalidQuery = nodex.ErrInvalidQuery

type Config struct {
	StepTimeout time.Duration `split_words:"true" default:"10s"`
}

type Option func(*Router)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithRequestIDs overrides how per-step request ids are generated.
func WithRequestIDs(next func() string) Option {
	return func(r *Router) { r.exec.NewRequestID = next }
}

// Router decomposes a query into intents and delegates each one to the
// specialist that owns it.
type Router struct {
	classifier contractx.Classifier
	invoker    contractx.Invoker
	exec       nodex.ExecConfig
	logger     zerolog.Logger

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(classifier contractx.Classifier, invoker contractx.Invoker, cfg Config, opts ...Option) (*Router, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if invoker == nil {
		return nil, errors.New("specialist invoker is required")
	}

	r := &Router{
		classifier: classifier,
		invoker:    invoker,
		exec:       nodex.ExecConfig{StepTimeout: cfg.StepTimeout},
		logger:     logx.Component("router"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.exec.Logger = r.logger

	graphRunner, err := r.compileHandleQueryGraph(context.Background())
	if err != nil {
		return nil, err
	}
	r.graphRunner = graphRunner
	return r, nil
}

// Handle always returns a result. Failures show up in the trace and the
// answer instead of as an error.
func (r *Router) Handle(ctx context.Context, q contractx.Query) (res contractx.Result) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("%w: router panicked: %v", contractx.ErrInternal, p)
			r.logger.Error().Err(err).Str("query", q.Text).Msg("query aborted")
			res = failed(q, err)
		}
	}()

	if strings.TrimSpace(q.Text) == "" {
		return failed(q, fmt.Errorf("%w: %s", contractx.ErrValidation, ErrInvalidQuery.Error()))
	}

	start := r.now()
	out, err := r.graphRunner.Invoke(ctx, nodex.GraphInput{Query: q})
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			err = fmt.Errorf("%w: %s", contractx.ErrValidation, ErrInvalidQuery.Error())
		}
		r.logger.Warn().Err(err).Str("query", q.Text).Msg("query failed")
		return failed(q, err)
	}

	res = out.Result
	r.logger.Info().
		Str("label", string(res.Label)).
		Int("steps", len(res.Trace)).
		Dur("elapsed", r.now().Sub(start)).
		Msg("query handled")
	return res
}

func failed(q contractx.Query, err error) contractx.Result {
	return contractx.Result{
		Query:  q,
		Trace:  []contractx.TraceEntry{nodex.RouterFailure(q, err)},
		Answer: "Could not complete the request because " + err.Error() + ".",
	}
}
