package models

// ChatEventType represents the type of a streaming chat event.
type ChatEventType string

const (
	ChatEventStart   ChatEventType = "start"
	ChatEventMessage ChatEventType = "message"
	ChatEventDone    ChatEventType = "done"
	ChatEventError   ChatEventType = "error"
)

// ChatEvent represents a streaming event delivered to the client over SSE.
type ChatEvent struct {
	Type    ChatEventType `json:"type"`
	ChatID  string        `json:"chat_id,omitempty"`
	Content string        `json:"content,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// NewStartEvent creates the initial event carrying the chat session id.
func NewStartEvent(chatID string) ChatEvent {
	return ChatEvent{Type: ChatEventStart, ChatID: chatID}
}

// NewMessageEvent creates a content fragment event.
func NewMessageEvent(content string) ChatEvent {
	return ChatEvent{Type: ChatEventMessage, Content: content}
}

// NewDoneEvent creates the terminal completion event.
func NewDoneEvent(chatID string) ChatEvent {
	return ChatEvent{Type: ChatEventDone, ChatID: chatID}
}

// NewErrorEvent creates a terminal error event.
func NewErrorEvent(err string) ChatEvent {
	return ChatEvent{Type: ChatEventError, Error: err}
}
