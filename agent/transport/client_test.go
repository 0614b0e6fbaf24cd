package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	routerx "github.com/tanpawarit/Chative-Support-Router/agent/agents/router"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	intentx "github.com/tanpawarit/Chative-Support-Router/agent/intent"
	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
)

func newTestClient(t *testing.T, dataURL, actionURL string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		DataURL:      dataURL,
		ActionURL:    actionURL,
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresURLs(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientConfig{DataURL: "http://x"})
	assert.True(t, errors.Is(err, contractx.ErrValidation))
}

func TestClientRetriesServerErrorsWithSameKey(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		keys []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get(IdempotencyHeader))
		n := len(keys)
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"request_id":"r","role":"data","ok":true,"summary":"done"}`)
	}))
	t.Cleanup(ts.Close)

	c := newTestClient(t, ts.URL, ts.URL)
	resp, err := c.Invoke(context.Background(), contractx.RoleData, contractx.SpecialistRequest{RequestID: "fixed-key"})
	require.NoError(t, err)
	assert.True(t, resp.OK)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"fixed-key", "fixed-key", "fixed-key"}, keys)
}

func TestClientGivesUpAsRemoteUnreachable(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	c := newTestClient(t, ts.URL, ts.URL)
	_, err := c.Invoke(context.Background(), contractx.RoleAction, contractx.SpecialistRequest{})
	assert.True(t, errors.Is(err, contractx.ErrRemoteUnreachable), "err = %v", err)
}

func TestClientDecodesRefusal(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"ok":false,"summary":"x","fault":{"kind":"missing_identifier","message":"missing identifier: customer_id"}}`)
	}))
	t.Cleanup(ts.Close)

	c := newTestClient(t, ts.URL, ts.URL)
	_, err := c.Invoke(context.Background(), contractx.RoleData, contractx.SpecialistRequest{})
	assert.True(t, errors.Is(err, contractx.ErrMissingIdentifier), "err = %v", err)
}

func TestClientUnknownRole(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	_, err := c.Invoke(context.Background(), contractx.RoleRouter, contractx.SpecialistRequest{})
	assert.True(t, errors.Is(err, contractx.ErrRemoteUnreachable))
}

func TestClientFetchCard(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := newTestClient(t, f.data.URL, f.action.URL)
	card, err := c.FetchCard(context.Background(), contractx.RoleData)
	require.NoError(t, err)
	assert.Equal(t, "customer_data_agent", card.Name)
	assert.Len(t, card.Skills, 5)
}

func TestRouterOverHTTP(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := newTestClient(t, f.data.URL, f.action.URL)
	r, err := routerx.New(intentx.NewRuleClassifier(), c, routerx.Config{StepTimeout: 5 * time.Second})
	require.NoError(t, err)

	id := int64(5)
	res := r.Handle(context.Background(), contractx.Query{
		Text:       "I've been charged twice, please refund immediately!",
		CustomerID: &id,
	})
	require.Len(t, res.Trace, 1)
	assert.Equal(t, contractx.StepOK, res.Trace[0].Status)
	assert.True(t, res.Trace[0].HighPriority)

	history, err := f.store.ListTicketHistory(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, recordx.PriorityHigh, history[0].Priority)

	res = r.Handle(context.Background(), contractx.Query{Text: "Show me all active customers who have open tickets"})
	require.Len(t, res.Trace, 1)
	assert.Equal(t, toolx.ToolListActiveCustomersWithOpenTickets, res.Trace[0].Operation)
	assert.Equal(t, contractx.StepOK, res.Trace[0].Status)
}
