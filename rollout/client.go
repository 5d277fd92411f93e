package rollout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openclaw/clawtrace/rollout/rounds"
	"github.com/openclaw/clawtrace/rollout/trace"
)

const agentRunPath = "/_openclaw/internal/agent-run"

// Response is the outcome of one agent turn. OK reports whether the backend
// answered at all; when it is false, Text holds a sentinel describing what
// went wrong. RunID and Messages are only present when the gateway returned
// a structured body.
type Response struct {
	OK       bool
	Text     string
	RunID    string
	Messages []rounds.Message
}

// Agent runs a single conversational turn against some backend.
type Agent interface {
	Send(ctx context.Context, input trace.TaskInput) *Response
}

// GatewayClient calls the gateway's internal agent-run endpoint. Endpoint
// and credential travel in the task input, so one client serves any number
// of gateways. Failures come back as sentinel text in the response, never
// as an error: a broken rollout must not stop the batch it rides in.
type GatewayClient struct {
	httpClient *http.Client
}

// NewGatewayClient creates a gateway client with the given per-request
// timeout.
func NewGatewayClient(timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GatewayClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

type agentRunRequest struct {
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message"`
	IdempotencyKey string `json:"idempotencyKey"`
	Mode           string `json:"mode,omitempty"`
}

type agentRunResponse struct {
	OK           bool             `json:"ok"`
	ResponseText *string          `json:"responseText"`
	RunID        string           `json:"runId"`
	Messages     []rounds.Message `json:"messages"`
}

// Send posts one turn to the gateway. Transport failures and non-200
// statuses resolve to OK=false with sentinel text; a 200 whose body does not
// parse as a structured success degrades to the raw body with no messages,
// keeping whatever run id the body carried so the rollout can still be
// traced (round-free).
func (c *GatewayClient) Send(ctx context.Context, input trace.TaskInput) *Response {
	url := strings.TrimRight(input.GatewayBaseURL, "/") + agentRunPath

	bodyBytes, err := json.Marshal(agentRunRequest{
		SessionKey:     input.SessionKey,
		Message:        input.Message,
		IdempotencyKey: input.IdempotencyKey,
		Mode:           input.Mode,
	})
	if err != nil {
		return &Response{Text: fmt.Sprintf("[Gateway request error]: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return &Response{Text: fmt.Sprintf("[Gateway request error]: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-OpenClaw-Internal-Secret", input.InternalSecret)
	httpReq.Header.Set("X-Idempotency-Key", input.IdempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "refused") {
			return &Response{Text: fmt.Sprintf(
				"[Gateway unreachable] Connection refused to %s. "+
					"Ensure the OpenClaw gateway is running and listening on that port "+
					"(e.g. start the app or run `openclaw gateway`).", url)}
		}
		return &Response{Text: fmt.Sprintf("[Gateway request error]: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyData, err := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		if err != nil {
			return &Response{Text: fmt.Sprintf("[Gateway error %d]: %s", resp.StatusCode, resp.Status)}
		}
		return &Response{Text: fmt.Sprintf("[Gateway error %d]: %s", resp.StatusCode, truncate(string(bodyData), 2000))}
	}
	if err != nil {
		return &Response{Text: fmt.Sprintf("[Gateway request error]: %v", err)}
	}

	var parsed agentRunResponse
	if err := json.Unmarshal(bodyData, &parsed); err != nil {
		// Answered but not in JSON at all; keep the raw body as the response
		// text. No run id means no trace downstream.
		return &Response{OK: true, Text: string(bodyData)}
	}
	if !parsed.OK || parsed.ResponseText == nil {
		// Parsed but not a structured success. The raw body becomes the
		// response text and no messages survive, but any run id the body
		// carried is kept so the rollout still gets a round-free trace.
		return &Response{OK: true, Text: string(bodyData), RunID: parsed.RunID}
	}
	return &Response{
		OK:       true,
		Text:     *parsed.ResponseText,
		RunID:    parsed.RunID,
		Messages: parsed.Messages,
	}
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
