package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

// LLMClassifier asks a chat model to label the request. Its output is checked
// against the closed intent set and customer ids not present in the request
// are discarded.
type LLMClassifier struct {
	runner compose.Runnable[map[string]any, llmOutput]
}

var _ contractx.Classifier = (*LLMClassifier)(nil)

func NewLLMClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*LLMClassifier, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: classifier", contractx.ErrPromptMissing)
	}

	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, err
	}
	return &LLMClassifier{runner: runner}, nil
}

// The system prompt carries a literal JSON example, so its braces are doubled
// before it becomes an FString template.
var braceEscaper = strings.NewReplacer("{", "{{", "}", "}}")

func compileClassifierGraph(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (compose.Runnable[map[string]any, llmOutput], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(braceEscaper.Replace(systemPrompt)),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[llmOutput](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, llmOutput]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add classifier prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add classifier model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add classifier parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add classifier edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add classifier edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add classifier edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add classifier edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.classifier_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile classifier graph: %w", err)
	}
	return runner, nil
}

type llmIntent struct {
	Kind       string            `json:"kind"`
	Urgent     bool              `json:"urgent"`
	CustomerID *int64            `json:"customer_id"`
	Fields     map[string]string `json:"fields"`
	Text       string            `json:"text"`
}

type llmOutput struct {
	Intents []llmIntent `json:"intents"`
}

func (c *LLMClassifier) Classify(ctx context.Context, q contractx.Query) ([]contractx.Intent, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", contractx.ErrValidation)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{"input": text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return c.toIntents(q, out)
}

func (c *LLMClassifier) toIntents(q contractx.Query, out llmOutput) ([]contractx.Intent, error) {
	if len(out.Intents) == 0 {
		return nil, fmt.Errorf("%w: no intents returned", contractx.ErrSchemaViolation)
	}

	customerID := CustomerIDFor(q.Text, q.CustomerID)
	intents := make([]contractx.Intent, 0, len(out.Intents))
	for _, raw := range out.Intents {
		kind := contractx.IntentKind(strings.TrimSpace(raw.Kind))
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: unknown intent kind=%q", contractx.ErrSchemaViolation, raw.Kind)
		}

		in := contractx.Intent{
			Kind:   kind,
			Urgent: raw.Urgent || IsUrgent(raw.Text),
			Text:   strings.TrimSpace(raw.Text),
		}
		if in.Text == "" {
			in.Text = q.Text
		}
		if kind == contractx.IntentUpdateCustomer {
			in.Fields = make(map[string]string, len(raw.Fields))
			for k, v := range raw.Fields {
				in.Fields[k] = v
			}
		}

		if kind != contractx.IntentReporting && customerID != nil {
			id := *customerID
			in.CustomerID = &id
		}
		if raw.CustomerID != nil && (customerID == nil || *raw.CustomerID != *customerID) {
			log.Debug().Int64("customer_id", *raw.CustomerID).Msg("discarding customer id absent from request")
		}

		intents = appendIntent(intents, in)
	}
	return intents, nil
}

// WithFallback tries primary first and uses fallback when it fails.
func WithFallback(primary, fallback contractx.Classifier, logger zerolog.Logger) contractx.Classifier {
	return contractx.ClassifierFunc(func(ctx context.Context, q contractx.Query) ([]contractx.Intent, error) {
		intents, err := primary.Classify(ctx, q)
		if err == nil {
			return intents, nil
		}
		if errors.Is(err, contractx.ErrValidation) {
			return nil, err
		}
		logger.Warn().Err(err).Msg("primary classifier failed, using fallback")
		return fallback.Classify(ctx, q)
	})
}
