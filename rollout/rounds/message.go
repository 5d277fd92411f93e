// Package rounds converts flat chat transcripts into training rounds and
// encodes rounds as flat span attributes under the gen_ai key family.
// This package has no dependencies on rollout/ or rollout/trace/ and holds
// pure data types plus the codec.
package rounds

// Canonical message roles. Anything outside this set is normalized before
// it reaches an attribute key.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single chat message as returned by the gateway and as
// emitted into training examples.
type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// NormalizeRole maps gateway role spellings onto the canonical set.
// "toolResult" is the gateway's name for a tool output message. Empty and
// unrecognized roles fall back to "user" so a message never loses its slot.
func NormalizeRole(role string) string {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return role
	case "toolResult":
		return RoleTool
	default:
		return RoleUser
	}
}
