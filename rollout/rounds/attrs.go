package rounds

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Attribute key families for one flattened round. Context messages land under
// the prompt prefix, completion messages under the completion prefix, both
// indexed by position within their section. The functions prefix is read-only
// here: some producers record the tool schema offered to the model under it.
const (
	promptKeyPrefix     = "gen_ai.prompt."
	completionKeyPrefix = "gen_ai.completion."
	functionsKeyPrefix  = "gen_ai.request.functions."

	roleField       = "role"
	contentField    = "content"
	toolCallIDField = "tool_call_id"
)

// PlaceholderToolCallID returns the synthetic identifier assigned to a
// tool message that arrived without one. Chat-completion schemas reject tool
// messages lacking the field, so a stand-in is required. The position argument
// is the message's index in the round's flat message list, which keeps the
// identifier deterministic per slot and distinct across slots. Synthetic ids
// are recognizable by prefix and must never be treated as genuine call ids.
func PlaceholderToolCallID(position int) string {
	return "call_placeholder_" + strconv.Itoa(position)
}

// Flatten encodes one round as a flat attribute map. Roles are normalized,
// missing content becomes the empty string, and tool messages without a
// tool_call_id get a positional placeholder. Flatten never fails.
func Flatten(r Round) map[string]any {
	attrs := make(map[string]any, 2*(len(r.Context)+len(r.Completion)))
	for i, msg := range r.Context {
		flattenMessage(attrs, promptKeyPrefix, i, i, msg)
	}
	for j, msg := range r.Completion {
		flattenMessage(attrs, completionKeyPrefix, j, len(r.Context)+j, msg)
	}
	return attrs
}

func flattenMessage(attrs map[string]any, prefix string, index, position int, msg Message) {
	role := NormalizeRole(msg.Role)
	base := prefix + strconv.Itoa(index)
	attrs[base+"."+roleField] = role
	attrs[base+"."+contentField] = msg.Content

	id := msg.ToolCallID
	if role == RoleTool && id == "" {
		id = PlaceholderToolCallID(position)
	}
	if id != "" {
		attrs[base+"."+toolCallIDField] = id
	}
}

// Unflatten rebuilds a round from a flat attribute map. Message positions are
// recovered by sorting the numeric key suffixes, so sparse or out-of-order
// indices still yield a stable message order. Roles are normalized again on
// the way out because traces written by other producers carry raw roles, and
// tool messages missing a tool_call_id get the same positional placeholder
// the forward path would have assigned. Keys outside the prompt and
// completion families are ignored.
func Unflatten(attrs map[string]any) Round {
	context := collectMessages(attrs, promptKeyPrefix)
	completion := collectMessages(attrs, completionKeyPrefix)
	for i := range context {
		fillToolCallID(&context[i], i)
	}
	for j := range completion {
		fillToolCallID(&completion[j], len(context)+j)
	}
	return Round{Context: context, Completion: completion}
}

func fillToolCallID(msg *Message, position int) {
	if msg.Role == RoleTool && msg.ToolCallID == "" {
		msg.ToolCallID = PlaceholderToolCallID(position)
	}
}

func collectMessages(attrs map[string]any, prefix string) []Message {
	byIndex := make(map[int]*Message)
	for key, value := range attrs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		index, field, ok := splitIndexedKey(strings.TrimPrefix(key, prefix))
		if !ok {
			continue
		}
		msg, exists := byIndex[index]
		if !exists {
			msg = &Message{}
			byIndex[index] = msg
		}
		switch field {
		case roleField:
			msg.Role = attrString(value)
		case contentField:
			msg.Content = attrString(value)
		case toolCallIDField:
			msg.ToolCallID = attrString(value)
		}
	}
	if len(byIndex) == 0 {
		return nil
	}

	indices := make([]int, 0, len(byIndex))
	for index := range byIndex {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	out := make([]Message, 0, len(indices))
	for _, index := range indices {
		msg := *byIndex[index]
		msg.Role = NormalizeRole(msg.Role)
		out = append(out, msg)
	}
	return out
}

// splitIndexedKey parses "<index>.<field>" remainders such as "3.role".
func splitIndexedKey(rest string) (int, string, bool) {
	head, field, found := strings.Cut(rest, ".")
	if !found {
		return 0, "", false
	}
	index, err := strconv.Atoi(head)
	if err != nil || index < 0 {
		return 0, "", false
	}
	return index, field, true
}

// attrString coerces a decoded JSON attribute value to a string. Attribute
// maps come out of json.Unmarshal as map[string]any, so non-string primitives
// can appear in foreign traces.
func attrString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ToolFunction is one entry of the tool schema a producer offered the model,
// decoded from the functions attribute family. Parameters holds the decoded
// JSON schema when the recorded value parses, otherwise the raw string.
type ToolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ParseFunctions decodes the tool schema recorded alongside a round, sorted
// by numeric key suffix. Records without function attributes yield nil.
func ParseFunctions(attrs map[string]any) []ToolFunction {
	byIndex := make(map[int]*ToolFunction)
	for key, value := range attrs {
		if !strings.HasPrefix(key, functionsKeyPrefix) {
			continue
		}
		index, field, ok := splitIndexedKey(strings.TrimPrefix(key, functionsKeyPrefix))
		if !ok {
			continue
		}
		fn, exists := byIndex[index]
		if !exists {
			fn = &ToolFunction{}
			byIndex[index] = fn
		}
		switch field {
		case "name":
			fn.Name = attrString(value)
		case "description":
			fn.Description = attrString(value)
		case "parameters":
			fn.Parameters = decodeParameters(value)
		}
	}
	if len(byIndex) == 0 {
		return nil
	}

	indices := make([]int, 0, len(byIndex))
	for index := range byIndex {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	out := make([]ToolFunction, 0, len(indices))
	for _, index := range indices {
		out = append(out, *byIndex[index])
	}
	return out
}

func decodeParameters(value any) any {
	raw, ok := value.(string)
	if !ok {
		return value
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}
	return decoded
}
