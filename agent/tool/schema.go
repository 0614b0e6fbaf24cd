package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/getkin/kin-openapi/openapi3"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

// Params declares tool arguments the way eino tool infos do.
type Params = map[string]*schema.ParameterInfo

// NewInfo builds the eino tool info for a catalog entry.
func NewInfo(name, desc string, params Params) *schema.ToolInfo {
	if params == nil {
		params = Params{}
	}
	return &schema.ToolInfo{
		Name:        name,
		Desc:        desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

// InputSchema renders the tool arguments as an OpenAPI v3 object schema.
func InputSchema(info *schema.ToolInfo) (*openapi3.Schema, error) {
	if info == nil || info.ParamsOneOf == nil {
		return openapi3.NewObjectSchema(), nil
	}
	s, err := info.ParamsOneOf.ToOpenAPIV3()
	if err != nil {
		return nil, fmt.Errorf("tool=%s: render input schema: %w", info.Name, err)
	}
	if s == nil {
		return openapi3.NewObjectSchema(), nil
	}
	return s, nil
}

// validateArgs returns a coerced copy of args checked against s. Integers
// arrive as JSON numbers or numeric strings and leave as int64, strings are
// trimmed and keys the schema does not declare are dropped.
func validateArgs(s *openapi3.Schema, args map[string]any) (map[string]any, error) {
	required := append([]string(nil), s.Required...)
	sort.Strings(required)
	for _, name := range required {
		raw, ok := args[name]
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: %s is required", contractx.ErrValidation, name)
		}
		if str, ok := raw.(string); ok && strings.TrimSpace(str) == "" {
			return nil, fmt.Errorf("%w: %s is required", contractx.ErrValidation, name)
		}
	}

	out := make(map[string]any, len(s.Properties))
	view := make(map[string]any, len(s.Properties))
	for name, ref := range s.Properties {
		raw, ok := args[name]
		if !ok || raw == nil || ref == nil || ref.Value == nil {
			continue
		}
		switch ref.Value.Type {
		case openapi3.TypeInteger:
			n, err := coerceInt(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s %v", contractx.ErrValidation, name, err)
			}
			out[name] = n
			view[name] = float64(n)
		case openapi3.TypeString:
			if str, ok := raw.(string); ok {
				raw = strings.TrimSpace(str)
			}
			out[name] = raw
			view[name] = raw
		default:
			out[name] = raw
			view[name] = raw
		}
	}

	if err := s.VisitJSON(view); err != nil {
		return nil, fmt.Errorf("%w: %s", contractx.ErrValidation, firstLine(err.Error()))
	}
	return out, nil
}

// 2^63 as a float64; anything at or beyond it does not fit an int64.
const int64Bound = float64(1 << 63)

func coerceInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("must be an integer, got %v", n)
		}
		if math.Abs(n) >= int64Bound {
			return 0, fmt.Errorf("is out of range, got %v", n)
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %q", n.String())
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("must be an integer, got %T", v)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
