package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

func kinds(intents []contractx.Intent) []contractx.IntentKind {
	out := make([]contractx.IntentKind, 0, len(intents))
	for _, in := range intents {
		out = append(out, in.Kind)
	}
	return out
}

func TestRuleClassifierCanonicalQueries(t *testing.T) {
	t.Parallel()

	ctxID := int64(5)
	cases := []struct {
		name   string
		query  contractx.Query
		want   []contractx.IntentKind
		urgent bool
		id     *int64
	}{
		{
			name:  "lookup",
			query: contractx.Query{Text: "Get customer information for ID 5"},
			want:  []contractx.IntentKind{contractx.IntentLookup},
			id:    &ctxID,
		},
		{
			name:  "upgrade",
			query: contractx.Query{Text: "I'm customer 12345 and need help upgrading my account"},
			want:  []contractx.IntentKind{contractx.IntentLookup, contractx.IntentAccountHelp},
		},
		{
			name:  "reporting",
			query: contractx.Query{Text: "Show me all active customers who have open tickets"},
			want:  []contractx.IntentKind{contractx.IntentReporting},
		},
		{
			name:   "urgent billing",
			query:  contractx.Query{Text: "I've been charged twice, please refund immediately!", CustomerID: &ctxID},
			want:   []contractx.IntentKind{contractx.IntentBilling},
			urgent: true,
			id:     &ctxID,
		},
		{
			name:  "multi intent",
			query: contractx.Query{Text: "Update my email to new@email.com and show my ticket history", CustomerID: &ctxID},
			want:  []contractx.IntentKind{contractx.IntentUpdateCustomer, contractx.IntentHistory},
			id:    &ctxID,
		},
		{
			name:  "cancellation",
			query: contractx.Query{Text: "Please cancel my subscription", CustomerID: &ctxID},
			want:  []contractx.IntentKind{contractx.IntentCancellation},
			id:    &ctxID,
		},
	}

	c := NewRuleClassifier()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, kinds(got))
			if tc.urgent {
				assert.True(t, got[0].Urgent)
			}
			if tc.id != nil {
				for _, in := range got {
					require.NotNil(t, in.CustomerID, "intent %s lost the customer id", in.Kind)
					assert.Equal(t, *tc.id, *in.CustomerID)
				}
			}
		})
	}
}

func TestRuleClassifierTextIDWinsOverHint(t *testing.T) {
	t.Parallel()

	hint := int64(5)
	got, err := NewRuleClassifier().Classify(context.Background(), contractx.Query{
		Text:       "I'm customer 12345 and need help upgrading my account",
		CustomerID: &hint,
	})
	require.NoError(t, err)
	for _, in := range got {
		require.NotNil(t, in.CustomerID)
		assert.Equal(t, int64(12345), *in.CustomerID)
	}
}

func TestRuleClassifierNeverInventsID(t *testing.T) {
	t.Parallel()

	got, err := NewRuleClassifier().Classify(context.Background(), contractx.Query{
		Text: "Update my email to new@email.com and show my ticket history",
	})
	require.NoError(t, err)
	for _, in := range got {
		assert.Nil(t, in.CustomerID)
	}
	assert.Equal(t, map[string]string{"email": "new@email.com"}, got[0].Fields)
}

func TestRuleClassifierReportingHasNoCustomer(t *testing.T) {
	t.Parallel()

	hint := int64(5)
	got, err := NewRuleClassifier().Classify(context.Background(), contractx.Query{
		Text:       "Show me all active customers who have open tickets",
		CustomerID: &hint,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].CustomerID)
}

func TestRuleClassifierEmptyQuery(t *testing.T) {
	t.Parallel()

	_, err := NewRuleClassifier().Classify(context.Background(), contractx.Query{Text: "   "})
	require.True(t, errors.Is(err, contractx.ErrValidation))
}

func TestExtractors(t *testing.T) {
	t.Parallel()

	id, ok := ExtractCustomerID("customer id: 42 please")
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = ExtractCustomerID("my order arrived broken")
	assert.False(t, ok)

	id, ok = ExtractCustomerID("Get customer information for ID 5")
	require.True(t, ok)
	assert.Equal(t, int64(5), id)

	_, ok = ExtractCustomerID("Please send me the invoice for order id 7")
	assert.False(t, ok, "order ids are not customer ids")

	fields := ExtractUpdateFields("change my phone to +1 555 0199 and name to Jane Roe")
	assert.Equal(t, "+1 555 0199", fields["phone"])
	assert.Equal(t, "Jane Roe", fields["name"])

	assert.True(t, IsUrgent("I was double charged"))
	assert.True(t, IsUrgent("please refund me"))
	assert.False(t, IsUrgent("how do I upgrade"))

	assert.Equal(t,
		[]string{"Update my email to new@email.com", "show my ticket history"},
		Segments("Update my email to new@email.com and show my ticket history."),
	)
}

func TestRuleClassifierKeepsHintOverUnrelatedID(t *testing.T) {
	t.Parallel()

	hint := int64(5)
	got, err := NewRuleClassifier().Classify(context.Background(), contractx.Query{
		Text:       "Please send me the invoice for order id 7",
		CustomerID: &hint,
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, in := range got {
		require.NotNil(t, in.CustomerID)
		assert.Equal(t, int64(5), *in.CustomerID)
	}

	got, err = NewRuleClassifier().Classify(context.Background(), contractx.Query{
		Text:       "Show ticket history for ID 9",
		CustomerID: &hint,
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.NotNil(t, got[0].CustomerID)
	assert.Equal(t, int64(5), *got[0].CustomerID, "a bare id does not override the hint")

	got, err = NewRuleClassifier().Classify(context.Background(), contractx.Query{
		Text:       "Show ticket history for customer 9",
		CustomerID: &hint,
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.NotNil(t, got[0].CustomerID)
	assert.Equal(t, int64(9), *got[0].CustomerID, "a customer qualified id wins")
}

func TestCustomerIDFor(t *testing.T) {
	t.Parallel()

	hint := int64(5)
	cases := []struct {
		name string
		text string
		hint *int64
		want *int64
	}{
		{name: "bare id without hint", text: "Get customer information for ID 5", want: id64(5)},
		{name: "order id without hint", text: "invoice for order id 7"},
		{name: "order id with hint", text: "invoice for order id 7", hint: &hint, want: id64(5)},
		{name: "account number beats hint", text: "account number 12", hint: &hint, want: id64(12)},
		{name: "nothing", text: "hello there"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := CustomerIDFor(tc.text, tc.hint)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.want, *got)
		})
	}
}

func id64(v int64) *int64 { return &v }
