package transport

import (
	"github.com/cloudwego/eino/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
)

const (
	AgentCardPath = "/.well-known/agent-card.json"
	InvokePath    = "/invoke"
	HealthPath    = "/health"

	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	cardVersion = "1.0.0"
)

// Facade is a specialist that can describe itself.
type Facade interface {
	contractx.Specialist
	Role() contractx.Role
	Capabilities() []*schema.ToolInfo
}

type Skill struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema *openapi3.Schema `json:"input_schema,omitempty"`
}

type AgentCard struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	URL         string         `json:"url"`
	Version     string         `json:"version"`
	Role        contractx.Role `json:"role"`
	Skills      []Skill        `json:"skills"`
}

func CardFor(f Facade, url string) AgentCard {
	card := AgentCard{
		URL:     url,
		Version: cardVersion,
		Role:    f.Role(),
	}
	switch f.Role() {
	case contractx.RoleData:
		card.Name = "customer_data_agent"
		card.Description = "Reads and updates customer records and ticket history."
	case contractx.RoleAction:
		card.Name = "support_agent"
		card.Description = "Handles billing, cancellations and account questions by filing support tickets."
	}
	for _, info := range f.Capabilities() {
		input, err := toolx.InputSchema(info)
		if err != nil {
			log.Warn().Err(err).Str("skill", info.Name).Msg("publishing skill without input schema")
		}
		card.Skills = append(card.Skills, Skill{
			ID:          info.Name,
			Name:        info.Name,
			Description: info.Desc,
			InputSchema: input,
		})
	}
	return card
}
