package qstash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPublishJSON(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotDedup string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDedup = r.Header.Get("Upstash-Deduplication-Id")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"messageId":"msg_123"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	id, err := client.PublishJSON(context.Background(), "https://hooks.example.com/escalations",
		map[string]any{"ticket_id": 14}, WithDeduplicationID("req-1"))
	if err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}
	if id != "msg_123" {
		t.Fatalf("message id = %q", id)
	}
	if gotPath != "/v2/publish/https://hooks.example.com/escalations" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotDedup != "req-1" {
		t.Fatalf("dedup header = %q", gotDedup)
	}
	if gotBody["ticket_id"] != float64(14) {
		t.Fatalf("body = %#v", gotBody)
	}
}

func TestPublishJSONHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "bad"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.PublishJSON(context.Background(), "https://hooks.example.com/x", map[string]any{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "https://qstash.upstash.io"}); err == nil {
		t.Fatal("expected missing token error")
	}
}
