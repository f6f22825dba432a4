// Package chat defines the message and history types shared by the
// dialogue engine.
package chat

// Role is the protocol-level role of a message as the model backend sees
// it. It is independent of which logical agent produced the message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RoleType identifies the logical agent kind that owns a conversation.
type RoleType string

const (
	RoleTypeAssistant RoleType = "assistant"
	RoleTypeUser      RoleType = "user"
	RoleTypeDefault   RoleType = "default"
)

// Message is an immutable conversation message. RoleName and RoleType
// identify the logical agent that produced it; Role is the protocol role
// used on the wire.
type Message struct {
	RoleName string            `json:"role_name"`
	RoleType RoleType          `json:"role_type"`
	Role     Role              `json:"role"`
	Content  string            `json:"content"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// NewSystemMessage creates the system preamble for an agent.
func NewSystemMessage(roleName string, roleType RoleType, content string) Message {
	return Message{
		RoleName: roleName,
		RoleType: roleType,
		Role:     RoleSystem,
		Content:  content,
	}
}

// NewUserMessage creates a user-role message attributed to the given agent.
func NewUserMessage(roleName string, content string) Message {
	return Message{
		RoleName: roleName,
		RoleType: RoleTypeUser,
		Role:     RoleUser,
		Content:  content,
	}
}

// Clone returns a deep copy suitable for isolation across agent boundaries.
func (m Message) Clone() Message {
	out := m
	if len(m.Meta) > 0 {
		out.Meta = make(map[string]string, len(m.Meta))
		for k, v := range m.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

// ForBackend returns a copy relabeled so the receiving agent perceives the
// message as a user turn. The original is never mutated.
func (m Message) ForBackend() Message {
	out := m.Clone()
	out.Role = RoleUser
	return out
}

// WithRole returns a copy carrying the given protocol role.
func (m Message) WithRole(role Role) Message {
	out := m.Clone()
	out.Role = role
	return out
}
