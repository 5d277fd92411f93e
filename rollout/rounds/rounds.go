package rounds

// Round pairs the full conversation context seen by the model with the
// assistant turn it produced. Context always holds every message before the
// completion, so later rounds strictly extend earlier ones.
type Round struct {
	Context    []Message
	Completion []Message
}

// Messages returns context followed by completion as one flat list.
func (r Round) Messages() []Message {
	out := make([]Message, 0, len(r.Context)+len(r.Completion))
	out = append(out, r.Context...)
	out = append(out, r.Completion...)
	return out
}

// Split cuts a flat transcript into rounds. A completion is a maximal run of
// consecutive assistant messages; its context is the entire transcript before
// the run, not just the slice since the previous round. Messages after the
// last assistant run belong to no round and are dropped. Role matching is on
// the raw role string: only exact "assistant" extends a completion, so a tool
// result in the middle of an assistant run closes the round.
func Split(messages []Message) []Round {
	var rounds []Round
	var context []Message
	var completion []Message

	flush := func() {
		if len(completion) == 0 {
			return
		}
		rounds = append(rounds, Round{
			Context:    append([]Message(nil), context...),
			Completion: completion,
		})
		context = append(context, completion...)
		completion = nil
	}

	for _, msg := range messages {
		if msg.Role == RoleAssistant {
			completion = append(completion, msg)
			continue
		}
		flush()
		context = append(context, msg)
	}
	flush()
	return rounds
}
