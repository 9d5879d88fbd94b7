package domain

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one message of the model conversation, including assistant
// tool-call turns and tool-result turns.
type Turn struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCallRecord
	ToolCallID string
}

// ToolCallRecord is a fully assembled tool call as the model emitted it:
// name plus raw JSON arguments.
type ToolCallRecord struct {
	ID        string
	Name      string
	Arguments string
}

// ToolInvocation is the closed set of tool calls the orchestrator can
// execute. Unknown names never become an invocation; they surface as
// UnknownToolError.
type ToolInvocation interface {
	ToolName() string
}

type SearchDocumentsCall struct {
	Query        string `json:"query"`
	DocumentType string `json:"document_type,omitempty"`
	Topic        string `json:"topic,omitempty"`
}

func (SearchDocumentsCall) ToolName() string { return "search_documents" }

// StreamEventKind enumerates the wire events of a chat stream.
type StreamEventKind string

const (
	EventTextDelta StreamEventKind = "text_delta"
	EventSources   StreamEventKind = "sources"
	EventError     StreamEventKind = "error"
	EventDone      StreamEventKind = "done"
)

type StreamEvent struct {
	Kind    StreamEventKind
	Text    string
	Sources []Source
	Message string
}

type Thread struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	OwnerID   string    `json:"owner_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
