// Package trace defines the persisted rollout trace schema and the
// append-only file store that holds it. Records are pure data; the store
// never interprets span attributes.
package trace

// Rollout terminal statuses as persisted in trace records.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Span names used by this collector. Round spans carry the flattened
// conversation attributes the exporter mines; message spans carry the plain
// response text and exist for human inspection only.
const (
	SpanNameRound   = "gen_ai"
	SpanNameMessage = "message"
)

// TaskInput is the request that produced a rollout, persisted verbatim so a
// trace can be replayed or audited. Field names match the gateway wire
// format.
type TaskInput struct {
	Input          string `json:"input"`
	GatewayBaseURL string `json:"gatewayBaseUrl,omitempty"`
	InternalSecret string `json:"internalSecret,omitempty"`
	SessionKey     string `json:"sessionKey,omitempty"`
	Message        string `json:"message"`
	IdempotencyKey string `json:"idempotencyKey"`
	Mode           string `json:"mode,omitempty"`
}

// Span is one named attribute bag inside a record. Attributes hold whatever
// the producer flattened into them; values are JSON primitives.
type Span struct {
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes"`
}

// Record is one persisted rollout trace.
type Record struct {
	RolloutID string    `json:"rollout_id"`
	AttemptID string    `json:"attempt_id"`
	Status    string    `json:"status"`
	TaskInput TaskInput `json:"task_input"`
	SpanCount int       `json:"span_count"`
	Spans     []Span    `json:"spans"`
}

// NewRecord builds a record with SpanCount kept consistent with Spans.
func NewRecord(rolloutID, attemptID, status string, input TaskInput, spans []Span) *Record {
	return &Record{
		RolloutID: rolloutID,
		AttemptID: attemptID,
		Status:    status,
		TaskInput: input,
		SpanCount: len(spans),
		Spans:     spans,
	}
}

// RoundSpans returns the record's round spans in recorded order. The last
// one holds the largest cumulative context for the rollout.
func (r *Record) RoundSpans() []Span {
	var out []Span
	for _, span := range r.Spans {
		if span.Name == SpanNameRound {
			out = append(out, span)
		}
	}
	return out
}
