package rounds

import (
	"testing"
)

func TestSplit_TwoTurnConversation_CumulativeContext(t *testing.T) {
	// GIVEN a two-turn conversation
	messages := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "bye"},
		{Role: RoleAssistant, Content: "goodbye"},
	}

	// WHEN it is split into rounds
	rounds := Split(messages)

	// THEN each round carries the full context seen before its completion
	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(rounds))
	}
	if len(rounds[0].Context) != 1 || rounds[0].Context[0].Content != "hi" {
		t.Errorf("round 0 context mismatch: %+v", rounds[0].Context)
	}
	if len(rounds[0].Completion) != 1 || rounds[0].Completion[0].Content != "hello" {
		t.Errorf("round 0 completion mismatch: %+v", rounds[0].Completion)
	}
	if len(rounds[1].Context) != 3 {
		t.Fatalf("expected cumulative context of 3 messages, got %d", len(rounds[1].Context))
	}
	want := []string{"hi", "hello", "bye"}
	for i, content := range want {
		if rounds[1].Context[i].Content != content {
			t.Errorf("round 1 context[%d] = %q, want %q", i, rounds[1].Context[i].Content, content)
		}
	}
	if len(rounds[1].Completion) != 1 || rounds[1].Completion[0].Content != "goodbye" {
		t.Errorf("round 1 completion mismatch: %+v", rounds[1].Completion)
	}
}

func TestSplit_ConsecutiveAssistantMessages_OneCompletion(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "part one"},
		{Role: RoleAssistant, Content: "part two"},
	}

	rounds := Split(messages)

	if len(rounds) != 1 {
		t.Fatalf("expected 1 round, got %d", len(rounds))
	}
	if len(rounds[0].Completion) != 2 {
		t.Errorf("expected completion run of 2, got %d", len(rounds[0].Completion))
	}
}

func TestSplit_ToolResultInsideAssistantRun_ClosesRound(t *testing.T) {
	// GIVEN an assistant run interrupted by a tool result
	messages := []Message{
		{Role: RoleUser, Content: "look this up"},
		{Role: RoleAssistant, Content: "calling tool"},
		{Role: "toolResult", Content: "42", ToolCallID: "call_1"},
		{Role: RoleAssistant, Content: "the answer is 42"},
	}

	// WHEN split
	rounds := Split(messages)

	// THEN the tool result closes the first round and joins the second context
	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(rounds))
	}
	if len(rounds[0].Context) != 1 {
		t.Errorf("round 0 context length = %d, want 1", len(rounds[0].Context))
	}
	if len(rounds[1].Context) != 3 {
		t.Fatalf("round 1 context length = %d, want 3", len(rounds[1].Context))
	}
	if rounds[1].Context[2].Role != "toolResult" {
		t.Errorf("round 1 context[2].Role = %q, want raw toolResult", rounds[1].Context[2].Role)
	}
}

func TestSplit_TrailingContextWithoutCompletion_Dropped(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "anyone there?"},
	}

	rounds := Split(messages)

	if len(rounds) != 1 {
		t.Fatalf("expected 1 round, got %d", len(rounds))
	}
	if len(rounds[0].Context) != 1 {
		t.Errorf("trailing user message leaked into a round: %+v", rounds[0].Context)
	}
}

func TestSplit_LeadingAssistant_EmptyContext(t *testing.T) {
	messages := []Message{
		{Role: RoleAssistant, Content: "welcome"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}

	rounds := Split(messages)

	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(rounds))
	}
	if len(rounds[0].Context) != 0 {
		t.Errorf("expected empty context for leading assistant run, got %+v", rounds[0].Context)
	}
	if len(rounds[1].Context) != 2 {
		t.Errorf("round 1 context length = %d, want 2", len(rounds[1].Context))
	}
}

func TestSplit_EmptyAndAssistantFreeInputs_NoRounds(t *testing.T) {
	if got := Split(nil); len(got) != 0 {
		t.Errorf("Split(nil) = %d rounds, want 0", len(got))
	}
	noAssistant := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "be nice"},
	}
	if got := Split(noAssistant); len(got) != 0 {
		t.Errorf("Split(no assistant) = %d rounds, want 0", len(got))
	}
}

func TestSplit_ContextsArePrefixes(t *testing.T) {
	// GIVEN a longer conversation with tool traffic
	messages := []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "u1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: "toolResult", Content: "t1"},
		{Role: RoleAssistant, Content: "a2"},
		{Role: RoleUser, Content: "u2"},
		{Role: RoleAssistant, Content: "a3"},
	}

	rounds := Split(messages)

	// THEN every round's context is a prefix of the next round's context
	if len(rounds) != 3 {
		t.Fatalf("expected 3 rounds, got %d", len(rounds))
	}
	for i := 1; i < len(rounds); i++ {
		prev, curr := rounds[i-1].Context, rounds[i].Context
		if len(prev) >= len(curr) {
			t.Fatalf("context did not grow between rounds %d and %d", i-1, i)
		}
		for j := range prev {
			if prev[j] != curr[j] {
				t.Errorf("round %d context[%d] diverges from round %d", i, j, i-1)
			}
		}
	}
	// AND the last context plus completion covers the whole transcript
	last := rounds[len(rounds)-1]
	if len(last.Context)+len(last.Completion) != len(messages) {
		t.Errorf("last round covers %d messages, want %d",
			len(last.Context)+len(last.Completion), len(messages))
	}
}

func TestNormalizeRole_Mappings(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user", "user"},
		{"assistant", "assistant"},
		{"system", "system"},
		{"tool", "tool"},
		{"toolResult", "tool"},
		{"", "user"},
		{"function", "user"}, // unknown roles fall back to user
		{"Assistant", "user"},
	}
	for _, tt := range tests {
		if got := NormalizeRole(tt.in); got != tt.want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRound_Messages_ConcatenatesContextAndCompletion(t *testing.T) {
	r := Round{
		Context:    []Message{{Role: RoleUser, Content: "hi"}},
		Completion: []Message{{Role: RoleAssistant, Content: "hello"}},
	}
	msgs := r.Messages()
	if len(msgs) != 2 || msgs[0].Content != "hi" || msgs[1].Content != "hello" {
		t.Errorf("unexpected flat message list: %+v", msgs)
	}
}
