package rollout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openclaw/clawtrace/rollout/trace"
)

func testInput(baseURL string) trace.TaskInput {
	return trace.TaskInput{
		Input:          "hi",
		GatewayBaseURL: baseURL,
		InternalSecret: "secret-1",
		SessionKey:     "agent:dev:main",
		Message:        "hi",
		IdempotencyKey: "key-123",
		Mode:           "val",
	}
}

func TestGatewayClient_Send_StructuredSuccess(t *testing.T) {
	var gotPath, gotSecret, gotKey, gotContentType string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSecret = r.Header.Get("X-OpenClaw-Internal-Secret")
		gotKey = r.Header.Get("X-Idempotency-Key")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"ok":true,"responseText":"hello there","runId":"run-1",`+
			`"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello there"}]}`)
	}))
	defer server.Close()

	client := NewGatewayClient(time.Second)
	resp := client.Send(context.Background(), testInput(server.URL+"/"))

	if gotPath != "/_openclaw/internal/agent-run" {
		t.Errorf("path = %q", gotPath)
	}
	if gotSecret != "secret-1" || gotKey != "key-123" {
		t.Errorf("headers = %q / %q", gotSecret, gotKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBody["sessionKey"] != "agent:dev:main" || gotBody["message"] != "hi" ||
		gotBody["idempotencyKey"] != "key-123" || gotBody["mode"] != "val" {
		t.Errorf("request body = %v", gotBody)
	}
	if !resp.OK {
		t.Fatalf("expected OK response, got %+v", resp)
	}
	if resp.Text != "hello there" || resp.RunID != "run-1" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Messages) != 2 || resp.Messages[1].Role != "assistant" {
		t.Errorf("messages = %+v", resp.Messages)
	}
}

func TestGatewayClient_Send_HTTPError_Sentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, "bad secret")
	}))
	defer server.Close()

	resp := NewGatewayClient(time.Second).Send(context.Background(), testInput(server.URL))

	if resp.OK {
		t.Fatal("expected failure response")
	}
	if resp.Text != "[Gateway error 401]: bad secret" {
		t.Errorf("sentinel = %q", resp.Text)
	}
}

func TestGatewayClient_Send_HTTPErrorBodyTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprint(w, strings.Repeat("x", 3000))
	}))
	defer server.Close()

	resp := NewGatewayClient(time.Second).Send(context.Background(), testInput(server.URL))

	want := "[Gateway error 500]: " + strings.Repeat("x", 2000)
	if resp.Text != want {
		t.Errorf("sentinel length = %d, want %d", len(resp.Text), len(want))
	}
}

func TestGatewayClient_Send_ConnectionRefused_Sentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	resp := NewGatewayClient(time.Second).Send(context.Background(), testInput(url))

	if resp.OK {
		t.Fatal("expected failure response")
	}
	if !strings.HasPrefix(resp.Text, "[Gateway unreachable] Connection refused to "+url) {
		t.Errorf("sentinel = %q", resp.Text)
	}
	if !strings.Contains(resp.Text, "openclaw gateway") {
		t.Errorf("sentinel should tell the operator how to start the gateway: %q", resp.Text)
	}
}

func TestGatewayClient_Send_Timeout_RequestErrorSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	resp := NewGatewayClient(20*time.Millisecond).Send(context.Background(), testInput(server.URL))

	if resp.OK {
		t.Fatal("expected failure response")
	}
	if !strings.HasPrefix(resp.Text, "[Gateway request error]: ") {
		t.Errorf("sentinel = %q", resp.Text)
	}
}

func TestGatewayClient_Send_UnparseableBody_DegradesToRawText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "plain text, not json")
	}))
	defer server.Close()

	resp := NewGatewayClient(time.Second).Send(context.Background(), testInput(server.URL))

	if !resp.OK {
		t.Fatalf("HTTP 200 should not fail the task: %+v", resp)
	}
	if resp.Text != "plain text, not json" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.RunID != "" || len(resp.Messages) != 0 {
		t.Errorf("degraded response must carry no run id or messages: %+v", resp)
	}
}

func TestGatewayClient_Send_NotOKBody_DegradesToRawText(t *testing.T) {
	body := `{"ok":false,"error":"session busy"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, body)
	}))
	defer server.Close()

	resp := NewGatewayClient(time.Second).Send(context.Background(), testInput(server.URL))

	if !resp.OK || resp.Text != body || resp.RunID != "" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGatewayClient_Send_MissingResponseText_DegradesButKeepsRunID(t *testing.T) {
	body := `{"ok":true,"runId":"run-9"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, body)
	}))
	defer server.Close()

	resp := NewGatewayClient(time.Second).Send(context.Background(), testInput(server.URL))

	if !resp.OK || resp.Text != body {
		t.Errorf("resp = %+v", resp)
	}
	// the run id survives the degrade so a round-free trace can be written
	if resp.RunID != "run-9" {
		t.Errorf("RunID = %q, want run-9", resp.RunID)
	}
	if len(resp.Messages) != 0 {
		t.Errorf("degraded response must carry no messages: %+v", resp.Messages)
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	if got := truncate("héllo wörld", 5); got != "héllo" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}
