package rollout

import (
	"github.com/google/uuid"

	"github.com/openclaw/clawtrace/rollout/trace"
)

// Task is one rollout to run. Built once per prompt before dispatch and
// immutable afterwards; the idempotency key and attempt id are fixed at
// construction so retried sends stay deduplicable on the gateway side.
type Task struct {
	Index     int
	AttemptID string
	Input     trace.TaskInput
}

// NewTask builds the task for one prompt. Input and Message both carry the
// prompt: Input is what the rollout was asked to do, Message is what goes to
// the gateway, and for this collector they are the same text.
func NewTask(index int, prompt string, cfg *Config) *Task {
	return &Task{
		Index:     index,
		AttemptID: uuid.NewString(),
		Input: trace.TaskInput{
			Input:          prompt,
			GatewayBaseURL: cfg.GatewayBaseURL,
			InternalSecret: cfg.InternalSecret,
			SessionKey:     cfg.SessionKey,
			Message:        prompt,
			IdempotencyKey: uuid.NewString(),
			Mode:           cfg.Mode,
		},
	}
}

// Result statuses for one dispatched task.
const (
	ResultWritten = "written"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Result records how one task resolved. Failed results keep the sentinel
// response text (or the write error) for the summary log; skipped means the
// agent answered but returned no rollout id to file a trace under.
type Result struct {
	Task      *Task
	Status    string
	RolloutID string
	TracePath string
	Response  string
	Err       error
}
