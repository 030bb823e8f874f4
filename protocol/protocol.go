// Package protocol defines the message vocabulary exchanged between a driver
// and an agent subprocess over the wire framing.
//
// Two message families share the connection. The flat session family
// (session/start, session/send, session/stream, session/complete, tool/call)
// is keyed by sessionId and covers simple request/stream/complete turns. The
// chat family (chats/create, chats/list, chats/get, chats/cancel,
// chats/subscribe and the chat.* lifecycle events) is keyed by chatId and adds
// listing, pagination, cancellation and timestamped events. Both are plain
// JSON objects whose "type" field is the discriminator.
package protocol

import "time"

// Version is the protocol version announced in the ready message.
const Version = 1

// Type discriminates protocol messages on the wire.
type Type string

// Flat session family.
const (
	TypeReady           Type = "ready"
	TypeSessionStart    Type = "session/start"
	TypeSessionStarted  Type = "session/started"
	TypeSessionSend     Type = "session/send"
	TypeSessionStream   Type = "session/stream"
	TypeSessionComplete Type = "session/complete"
	TypeToolCall        Type = "tool/call"
	TypeToolResult      Type = "tool/result"
)

// Chat family requests and replies.
const (
	TypeChatsCreate       Type = "chats/create"
	TypeChatsCreateResult Type = "chats/createResult"
	TypeChatsList         Type = "chats/list"
	TypeChatsListResult   Type = "chats/listResult"
	TypeChatsGet          Type = "chats/get"
	TypeChatsGetResult    Type = "chats/getResult"
	TypeChatsCancel       Type = "chats/cancel"
	TypeChatsCancelResult Type = "chats/cancelResult"
	TypeChatsSubscribe    Type = "chats/subscribe"
	TypeChatsError        Type = "chats/error"
)

// Chat family lifecycle events.
const (
	TypeChatStarted   Type = "chat.started"
	TypeMessageDelta  Type = "message.delta"
	TypeChatCompleted Type = "chat.completed"
	TypeChatCancelled Type = "chat.cancelled"
	TypeChatFailed    Type = "chat.failed"
)

// Chat status values carried in chat summaries.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Message is implemented by every protocol message.
type Message interface {
	MsgType() Type
}

// Turn is one conversational entry. History slices hold turns in
// conversational order: user at even offsets, assistant at odd offsets.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Ready is the very first message an agent emits after spawn, before anything
// else. The driver must wait for it before sending session/start.
type Ready struct {
	Type    Type `json:"type"`
	PID     int  `json:"pid"`
	Version int  `json:"version"`
}

func (m Ready) MsgType() Type { return TypeReady }

// SessionStart opens a session. SessionID may be empty, in which case the
// agent assigns one and reports it in session/started.
type SessionStart struct {
	Type      Type   `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
}

func (m SessionStart) MsgType() Type { return TypeSessionStart }

// SessionStarted acknowledges session/start and carries the assigned id.
type SessionStarted struct {
	Type      Type   `json:"type"`
	SessionID string `json:"sessionId"`
}

func (m SessionStarted) MsgType() Type { return TypeSessionStarted }

// SessionSend submits one user turn.
type SessionSend struct {
	Type      Type   `json:"type"`
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

func (m SessionSend) MsgType() Type { return TypeSessionSend }

// SessionStream carries one delta of a streamed reply. Index is assigned
// monotonically from 0 within a turn; receivers must sort by Index before
// concatenating, not rely on arrival order.
type SessionStream struct {
	Type      Type   `json:"type"`
	SessionID string `json:"sessionId"`
	Index     int    `json:"index"`
	Delta     string `json:"delta"`
}

func (m SessionStream) MsgType() Type { return TypeSessionStream }

// SessionComplete terminates a turn. Exactly one is emitted per turn,
// regardless of how many deltas preceded it. History is the full cumulative
// history including this turn's user and assistant entries.
type SessionComplete struct {
	Type      Type   `json:"type"`
	SessionID string `json:"sessionId"`
	Message   Turn   `json:"message"`
	History   []Turn `json:"history"`
}

func (m SessionComplete) MsgType() Type { return TypeSessionComplete }

// ToolCall requests a tool execution within a session. Informational with
// respect to turn lifecycle: it never terminates a turn.
type ToolCall struct {
	Type      Type           `json:"type"`
	SessionID string         `json:"sessionId"`
	Name      string         `json:"name"`
	Args      map[string]any `json:"args"`
}

func (m ToolCall) MsgType() Type { return TypeToolCall }

// ToolResult reports the outcome of a tool/call. Also informational.
type ToolResult struct {
	Type      Type   `json:"type"`
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	Result    string `json:"result"`
	IsError   bool   `json:"isError,omitempty"`
}

func (m ToolResult) MsgType() Type { return TypeToolResult }

// ChatSummary describes one chat in listings and get results.
type ChatSummary struct {
	ChatID    string    `json:"chatId"`
	Status    string    `json:"status"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatsCreate explicitly creates a chat. ChatID may be empty for an
// agent-assigned id.
type ChatsCreate struct {
	Type   Type   `json:"type"`
	ChatID string `json:"chatId,omitempty"`
}

func (m ChatsCreate) MsgType() Type { return TypeChatsCreate }

// ChatsCreateResult acknowledges chats/create.
type ChatsCreateResult struct {
	Type      Type      `json:"type"`
	ChatID    string    `json:"chatId"`
	Timestamp time.Time `json:"timestamp"`
}

func (m ChatsCreateResult) MsgType() Type { return TypeChatsCreateResult }

// ChatsList requests a page of chats. Cursor and Limit are strings on the
// wire; the cursor is an opaque offset token handed back from a previous
// listResult.
type ChatsList struct {
	Type   Type   `json:"type"`
	Cursor string `json:"cursor,omitempty"`
	Limit  string `json:"limit,omitempty"`
}

func (m ChatsList) MsgType() Type { return TypeChatsList }

// ChatsListResult carries one page of chat summaries. NextCursor is absent
// when the listing is exhausted.
type ChatsListResult struct {
	Type       Type          `json:"type"`
	Chats      []ChatSummary `json:"chats"`
	NextCursor string        `json:"nextCursor,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

func (m ChatsListResult) MsgType() Type { return TypeChatsListResult }

// ChatsGet requests a single chat with its history.
type ChatsGet struct {
	Type   Type   `json:"type"`
	ChatID string `json:"chatId"`
}

func (m ChatsGet) MsgType() Type { return TypeChatsGet }

// ChatsGetResult carries one chat and its full history.
type ChatsGetResult struct {
	Type      Type        `json:"type"`
	Chat      ChatSummary `json:"chat"`
	History   []Turn      `json:"history"`
	Timestamp time.Time   `json:"timestamp"`
}

func (m ChatsGetResult) MsgType() Type { return TypeChatsGetResult }

// ChatsCancel marks a chat cancelled. Cancellation is cooperative: a turn
// already streaming observes the flag between deltas.
type ChatsCancel struct {
	Type   Type   `json:"type"`
	ChatID string `json:"chatId"`
}

func (m ChatsCancel) MsgType() Type { return TypeChatsCancel }

// ChatsCancelResult acknowledges chats/cancel.
type ChatsCancelResult struct {
	Type      Type      `json:"type"`
	ChatID    string    `json:"chatId"`
	Timestamp time.Time `json:"timestamp"`
}

func (m ChatsCancelResult) MsgType() Type { return TypeChatsCancelResult }

// ChatsSubscribe runs one turn on a chat: chat.started, zero or more
// message.delta events, then exactly one terminal chat.completed,
// chat.cancelled or chat.failed. Subscribing to an already-cancelled chat
// short-circuits to chat.cancelled with no preceding events.
type ChatsSubscribe struct {
	Type    Type   `json:"type"`
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
	Stream  bool   `json:"stream"`
}

func (m ChatsSubscribe) MsgType() Type { return TypeChatsSubscribe }

// ChatsError is an application-level error reply. The connection stays
// usable; only the failed request is affected.
type ChatsError struct {
	Type      Type      `json:"type"`
	ChatID    string    `json:"chatId,omitempty"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (m ChatsError) MsgType() Type { return TypeChatsError }

// Application error codes carried in chats/error.
const (
	CodeUnknownChat     = "unknown_chat"
	CodeChatExists      = "chat_exists"
	CodeBadCursor       = "bad_cursor"
	CodeBadRequest      = "bad_request"
	CodeResponderFailed = "responder_failed"
)

// ChatStarted opens a subscribe turn.
type ChatStarted struct {
	Type      Type      `json:"type"`
	ChatID    string    `json:"chatId"`
	Timestamp time.Time `json:"timestamp"`
}

func (m ChatStarted) MsgType() Type { return TypeChatStarted }

// MessageDelta is the chat-family streamed fragment, index-tagged like
// session/stream.
type MessageDelta struct {
	Type      Type      `json:"type"`
	ChatID    string    `json:"chatId"`
	Index     int       `json:"index"`
	Delta     string    `json:"delta"`
	Timestamp time.Time `json:"timestamp"`
}

func (m MessageDelta) MsgType() Type { return TypeMessageDelta }

// ChatCompleted terminates a subscribe turn successfully.
type ChatCompleted struct {
	Type      Type      `json:"type"`
	ChatID    string    `json:"chatId"`
	Message   Turn      `json:"message"`
	History   []Turn    `json:"history"`
	Timestamp time.Time `json:"timestamp"`
}

func (m ChatCompleted) MsgType() Type { return TypeChatCompleted }

// ChatCancelled terminates a subscribe turn after cancellation. It is a
// normal terminal state, not an error.
type ChatCancelled struct {
	Type      Type      `json:"type"`
	ChatID    string    `json:"chatId"`
	Timestamp time.Time `json:"timestamp"`
}

func (m ChatCancelled) MsgType() Type { return TypeChatCancelled }

// ChatFailed terminates a subscribe turn with an application failure.
type ChatFailed struct {
	Type      Type      `json:"type"`
	ChatID    string    `json:"chatId"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

func (m ChatFailed) MsgType() Type { return TypeChatFailed }

// Unknown stands in for a message whose type is not part of this closed
// enumeration. Receivers ignore it rather than failing, so the protocol can
// grow new types without breaking older peers.
type Unknown struct {
	Type Type `json:"type"`
}

func (m Unknown) MsgType() Type { return m.Type }
