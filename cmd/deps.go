package cmd

import (
	"context"
	"fmt"

	routerx "github.com/tanpawarit/Chative-Support-Router/agent/agents/router"
	specialistx "github.com/tanpawarit/Chative-Support-Router/agent/agents/specialist"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	intentx "github.com/tanpawarit/Chative-Support-Router/agent/intent"
	llmx "github.com/tanpawarit/Chative-Support-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Support-Router/agent/prompt"
	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
	transportx "github.com/tanpawarit/Chative-Support-Router/agent/transport"
	configx "github.com/tanpawarit/Chative-Support-Router/pkg/config"
	logx "github.com/tanpawarit/Chative-Support-Router/pkg/logger"
	qstashx "github.com/tanpawarit/Chative-Support-Router/pkg/qstash"
)

func openStore(ctx context.Context) (*recordx.Store, error) {
	cfg, err := configx.New[recordx.Config]("DB")
	if err != nil {
		return nil, err
	}
	store, err := recordx.Open(ctx, *cfg, recordx.WithLogger(logx.Component("record")))
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	return store, nil
}

func newClassifier(ctx context.Context) (contractx.Classifier, error) {
	cfg, err := configx.New[llmx.Config]("CLASSIFIER")
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rules := intentx.NewRuleClassifier()
	if !cfg.UseLLM() {
		return rules, nil
	}

	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return nil, err
	}
	orCfg := cfg.OpenRouter()
	chatModel, err := orCfg.New(ctx)
	if err != nil {
		return nil, err
	}
	llm, err := intentx.NewLLMClassifier(ctx, chatModel, prompts.Classifier)
	if err != nil {
		return nil, err
	}
	return intentx.WithFallback(llm, rules, logx.Component("classifier")), nil
}

// newNotifier returns nil when QStash escalation is not configured.
func newNotifier() (contractx.Notifier, error) {
	cfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := qstashx.NewClient(*cfg)
	if err != nil {
		return nil, fmt.Errorf("qstash client: %w", err)
	}
	return specialistx.NewQStashNotifier(client, cfg.EscalationURL), nil
}

func newFacade(role contractx.Role, store *recordx.Store) (*specialistx.Facade, error) {
	opts := []specialistx.Option{specialistx.WithLogger(logx.Component("specialist").With().Str("role", string(role)).Logger())}
	notifier, err := newNotifier()
	if err != nil {
		return nil, err
	}
	if notifier != nil {
		opts = append(opts, specialistx.WithNotifier(notifier))
	}
	return specialistx.New(role, toolx.NewCatalog(store), opts...)
}

// newRouter wires the router to remote specialists, or to in-process ones
// backed by the local store when remote is false.
func newRouter(ctx context.Context, remote bool) (*routerx.Router, func(), error) {
	classifier, err := newClassifier(ctx)
	if err != nil {
		return nil, nil, err
	}
	routerCfg, err := configx.New[routerx.Config]("ROUTER")
	if err != nil {
		return nil, nil, err
	}

	var invoker contractx.Invoker
	cleanup := func() {}
	if remote {
		clientCfg, err := configx.New[transportx.ClientConfig]("ROUTER")
		if err != nil {
			return nil, nil, err
		}
		client, err := transportx.NewClient(*clientCfg)
		if err != nil {
			return nil, nil, err
		}
		invoker = client
	} else {
		store, err := openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = store.Close() }

		data, err := newFacade(contractx.RoleData, store)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		action, err := newFacade(contractx.RoleAction, store)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		invoker = specialistx.NewRegistry(data, action)
	}

	r, err := routerx.New(classifier, invoker, *routerCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return r, cleanup, nil
}
