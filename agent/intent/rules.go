package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

type rule struct {
	kind    contractx.IntentKind
	pattern *regexp.Regexp
}

// Order matters: the first matching rule labels a segment.
var rules = []rule{
	{contractx.IntentUpdateCustomer, regexp.MustCompile(`(?i)\b(?:update|change|set|modify|correct)\b.*\b(?:email|e-mail|phone|name|status)\b`)},
	{contractx.IntentHistory, regexp.MustCompile(`(?i)\b(?:history|past tickets|previous tickets|my tickets)\b`)},
	{contractx.IntentReporting, regexp.MustCompile(`(?i)\b(?:all|every|list|how many|report)\b.*\bcustomers\b|\bcustomers\b.*\b(?:with|who have|having)\b`)},
	{contractx.IntentBilling, regexp.MustCompile(`(?i)\b(?:charg\w*|refund\w*|bill\w*|invoice\w*|payment\w*|paid|overcharg\w*)\b`)},
	{contractx.IntentCancellation, regexp.MustCompile(`(?i)\b(?:cancel\w*|terminate|close my account|unsubscribe)\b`)},
	{contractx.IntentAccountHelp, regexp.MustCompile(`(?i)\b(?:upgrad\w*|downgrad\w*|plan|subscription|premium|password|login|log in|help)\b`)},
	{contractx.IntentLookup, regexp.MustCompile(`(?i)\b(?:information|info|details|look\s?up|profile|who is)\b|\bcustomer\s+(?:id\s*)?#?\d+\b`)},
}

var segmentSplit = regexp.MustCompile(`(?i)\s*(?:;|\?|!|\.\s|,?\s+(?:and then|and also|and|then|also|plus)\s+)\s*`)

// RuleClassifier is a deterministic keyword classifier.
type RuleClassifier struct{}

var _ contractx.Classifier = (*RuleClassifier)(nil)

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Classify(_ context.Context, q contractx.Query) ([]contractx.Intent, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", contractx.ErrValidation)
	}

	customerID := CustomerIDFor(text, q.CustomerID)

	var out []contractx.Intent
	for _, seg := range Segments(text) {
		if in, ok := classifySegment(seg); ok {
			out = appendIntent(out, in)
		}
	}
	if len(out) == 0 {
		kind := contractx.IntentAccountHelp
		if customerID != nil {
			kind = contractx.IntentLookup
		}
		out = append(out, contractx.Intent{Kind: kind, Text: text, Urgent: IsUrgent(text)})
	}

	for i := range out {
		if out[i].Kind != contractx.IntentReporting && customerID != nil {
			id := *customerID
			out[i].CustomerID = &id
		}
	}
	return out, nil
}

// Segments splits a request into clauses joined by "and", "then" and
// sentence punctuation.
func Segments(text string) []string {
	parts := segmentSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), ".,")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func classifySegment(seg string) (contractx.Intent, bool) {
	for _, r := range rules {
		if !r.pattern.MatchString(seg) {
			continue
		}
		in := contractx.Intent{Kind: r.kind, Text: seg, Urgent: IsUrgent(seg)}
		if r.kind == contractx.IntentUpdateCustomer {
			in.Fields = ExtractUpdateFields(seg)
		}
		return in, true
	}
	return contractx.Intent{}, false
}

// appendIntent merges repeats of a kind into the first occurrence.
func appendIntent(list []contractx.Intent, in contractx.Intent) []contractx.Intent {
	for i := range list {
		if list[i].Kind != in.Kind {
			continue
		}
		list[i].Urgent = list[i].Urgent || in.Urgent
		list[i].Text = list[i].Text + "; " + in.Text
		for k, v := range in.Fields {
			if list[i].Fields == nil {
				list[i].Fields = make(map[string]string)
			}
			list[i].Fields[k] = v
		}
		return list
	}
	return append(list, in)
}
