package rollout

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/openclaw/clawtrace/rollout/rounds"
	"github.com/openclaw/clawtrace/rollout/trace"
)

// Summary counts how a batch resolved. Submitted is always the sum of the
// other three.
type Summary struct {
	Submitted int
	Written   int
	Failed    int
	Skipped   int
}

// Dispatcher fans a prompt list out to an agent under a fixed concurrency
// cap and hands each successful rollout to the trace store. Tasks share
// nothing but the admission gate and a results slice indexed by task slot,
// so no further locking is needed.
type Dispatcher struct {
	cfg   *Config
	agent Agent
	store *trace.Store
}

// NewDispatcher wires a dispatcher. cfg should be normalized first.
func NewDispatcher(cfg *Config, agent Agent, store *trace.Store) *Dispatcher {
	return &Dispatcher{cfg: cfg, agent: agent, store: store}
}

// Run executes one task per prompt and blocks until all resolve. Results
// are returned in prompt order regardless of completion order; a failed
// task occupies its slot like any other. The context bounds the whole
// batch, while each network call is additionally bounded by the agent's
// own timeout.
func (d *Dispatcher) Run(ctx context.Context, prompts []string) ([]*Result, Summary) {
	gate := d.cfg.MaxConcurrent
	if gate < 1 {
		gate = 1
	}
	sem := make(chan struct{}, gate)
	results := make([]*Result, len(prompts))
	var wg sync.WaitGroup

	for i, prompt := range prompts {
		task := NewTask(i, prompt, d.cfg)
		wg.Add(1)
		go func(t *Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[t.Index] = d.runTask(ctx, t, len(prompts))
		}(task)
	}
	wg.Wait()

	summary := Summary{Submitted: len(prompts)}
	for _, res := range results {
		switch res.Status {
		case ResultWritten:
			summary.Written++
		case ResultSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	return results, summary
}

// runTask resolves a single task. It never lets a failure escape: agent
// panics, sentinel responses, and store errors all collapse into a failed
// result for this slot only.
func (d *Dispatcher) runTask(ctx context.Context, t *Task, total int) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[%d/%d] agent panic: %v", t.Index+1, total, r)
			res = &Result{Task: t, Status: ResultFailed, Err: fmt.Errorf("agent panic: %v", r)}
		}
	}()

	logrus.Infof("[%d/%d] %s", t.Index+1, total, preview(t.Input.Message))
	resp := d.agent.Send(ctx, t.Input)
	if !resp.OK {
		logrus.Warnf("[%d/%d] rollout failed: %s", t.Index+1, total, resp.Text)
		return &Result{Task: t, Status: ResultFailed, Response: resp.Text}
	}
	if resp.RunID == "" {
		logrus.Warnf("[%d/%d] no rollout id, skipping trace write", t.Index+1, total)
		return &Result{Task: t, Status: ResultSkipped, Response: resp.Text}
	}

	rec := trace.NewRecord(resp.RunID, t.AttemptID, trace.StatusSucceeded, t.Input, BuildSpans(resp))
	path, err := d.store.Write(rec)
	if err != nil {
		logrus.Errorf("[%d/%d] trace write for rollout %s: %v", t.Index+1, total, resp.RunID, err)
		return &Result{Task: t, Status: ResultFailed, RolloutID: resp.RunID, Response: resp.Text, Err: err}
	}
	logrus.Debugf("[%d/%d] wrote %s", t.Index+1, total, path)
	return &Result{Task: t, Status: ResultWritten, RolloutID: resp.RunID, TracePath: path, Response: resp.Text}
}

// BuildSpans converts one agent response into the spans persisted for its
// rollout: one round span per reconstructed round, in order, plus a trailing
// message span carrying the plain response text for human inspection.
func BuildSpans(resp *Response) []trace.Span {
	var spans []trace.Span
	for _, round := range rounds.Split(resp.Messages) {
		spans = append(spans, trace.Span{
			Name:       trace.SpanNameRound,
			Attributes: rounds.Flatten(round),
		})
	}
	spans = append(spans, trace.Span{
		Name:       trace.SpanNameMessage,
		Attributes: map[string]any{"message.content": truncate(resp.Text, 5000)},
	})
	return spans
}

// preview shortens a prompt for progress logging.
func preview(s string) string {
	if len([]rune(s)) <= 60 {
		return s
	}
	return truncate(s, 60) + "..."
}
