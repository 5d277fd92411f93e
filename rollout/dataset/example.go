// Package dataset mines persisted rollout traces into supervised
// fine-tuning examples, one JSONL row per rollout.
package dataset

import (
	"github.com/openclaw/clawtrace/rollout/rounds"
	"github.com/openclaw/clawtrace/rollout/trace"
)

// Tool is one tool definition offered to the model, in chat-completion
// schema shape.
type Tool struct {
	Type     string              `json:"type"`
	Function rounds.ToolFunction `json:"function"`
}

// Example is one training row: the full message sequence of a rollout's
// last round, plus the tool schema when the trace recorded one.
type Example struct {
	Messages []rounds.Message `json:"messages"`
	Tools    []Tool           `json:"tools,omitempty"`
}

// Extract turns one trace record into a training example. Only round spans
// qualify, and only the last one is used: it carries the largest cumulative
// context, so one rollout yields exactly one example covering the whole
// conversation. Records with no round spans, or whose last round unflattens
// to an empty message list, yield nothing.
func Extract(rec *trace.Record) (*Example, bool) {
	roundSpans := rec.RoundSpans()
	if len(roundSpans) == 0 {
		return nil, false
	}
	last := roundSpans[len(roundSpans)-1]

	round := rounds.Unflatten(last.Attributes)
	messages := round.Messages()
	if len(messages) == 0 {
		return nil, false
	}

	example := &Example{Messages: messages}
	for _, fn := range rounds.ParseFunctions(last.Attributes) {
		example.Tools = append(example.Tools, Tool{Type: "function", Function: fn})
	}
	return example, true
}
