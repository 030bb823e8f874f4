// Package client implements the driver side of the protocol: spawning an
// agent, waiting for typed messages, running turns, reassembling streamed
// deltas, and replaying persisted history against a fresh subprocess.
package client

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/protocol"
	"github.com/agentwire/agentwire/transport"
)

// WaitTimeout bounds each pull while waiting for a message. Exceeding it is
// fatal to the in-flight operation; nothing is retried at this layer.
const WaitTimeout = 2 * time.Second

// ErrTimeout reports that no matching message arrived within WaitTimeout.
var ErrTimeout = errors.New("timed out waiting for message")

// Client runs the driver algorithm over one transport. It is strictly
// sequential: one logical wait at a time per connection.
type Client struct {
	t    *transport.Transport
	proc *transport.Proc
}

// New wraps an existing transport.
func New(t *transport.Transport) *Client {
	return &Client{t: t}
}

// Dial spawns the agent described by spec and waits for its ready
// announcement.
func Dial(ctx context.Context, spec transport.SpawnSpec) (*Client, error) {
	proc, err := transport.Spawn(spec)
	if err != nil {
		return nil, err
	}
	c := &Client{t: proc.Transport, proc: proc}
	if _, err := c.WaitReady(ctx); err != nil {
		proc.Close()
		return nil, err
	}
	return c, nil
}

// Close tears the connection down, killing the subprocess if Dial spawned
// one.
func (c *Client) Close() error {
	if c.proc != nil {
		return c.proc.Close()
	}
	return c.t.Close()
}

// recv pulls one raw message with the fixed per-pull timeout.
func (c *Client) recv(ctx context.Context) (protocol.Message, error) {
	waitCtx, cancel := context.WithTimeout(ctx, WaitTimeout)
	defer cancel()
	raw, err := c.t.Recv(waitCtx)
	if err != nil {
		if waitCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return protocol.Decode(raw)
}

// WaitForType pulls messages until one with the given type arrives.
// Non-matching messages are dropped, which is why a connection supports only
// one logical wait at a time.
func (c *Client) WaitForType(ctx context.Context, typ protocol.Type) (protocol.Message, error) {
	for {
		msg, err := c.recv(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "waiting for %s", typ)
		}
		if msg.MsgType() == typ {
			return msg, nil
		}
	}
}

// waitResult is WaitForType that also terminates on a chats/error reply,
// surfacing it as an error.
func (c *Client) waitResult(ctx context.Context, typ protocol.Type) (protocol.Message, error) {
	for {
		msg, err := c.recv(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "waiting for %s", typ)
		}
		if e, ok := msg.(*protocol.ChatsError); ok {
			return nil, errors.New("agent error %s: %s", e.Code, e.Message)
		}
		if msg.MsgType() == typ {
			return msg, nil
		}
	}
}

// WaitReady blocks until the agent's ready announcement.
func (c *Client) WaitReady(ctx context.Context) (*protocol.Ready, error) {
	msg, err := c.WaitForType(ctx, protocol.TypeReady)
	if err != nil {
		return nil, err
	}
	return msg.(*protocol.Ready), nil
}

// StartSession opens a session and returns the agent-confirmed id.
func (c *Client) StartSession(ctx context.Context, sessionID string) (string, error) {
	err := c.t.Send(protocol.SessionStart{Type: protocol.TypeSessionStart, SessionID: sessionID})
	if err != nil {
		return "", err
	}
	msg, err := c.WaitForType(ctx, protocol.TypeSessionStarted)
	if err != nil {
		return "", err
	}
	return msg.(*protocol.SessionStarted).SessionID, nil
}

// TurnResult is one completed turn. Text is the canonical reply: the deltas
// sorted by index and joined, or the terminal message's content when the turn
// was not streamed. Streaming parity means the two are always equal when
// deltas were received.
type TurnResult struct {
	Message protocol.Turn
	History []protocol.Turn
	Text    string
}

// SendAndWaitComplete submits one user turn and collects the reply. Deltas
// are buffered by index regardless of arrival order; onDelta, when non-nil,
// observes each one as it arrives for live display. Tool call and result
// messages are informational and skipped here.
func (c *Client) SendAndWaitComplete(ctx context.Context, sessionID, content string, onDelta func(index int, delta string)) (*TurnResult, error) {
	err := c.t.Send(protocol.SessionSend{
		Type:      protocol.TypeSessionSend,
		SessionID: sessionID,
		Content:   content,
	})
	if err != nil {
		return nil, err
	}

	deltas := map[int]string{}
	for {
		msg, err := c.recv(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "waiting for session/complete on %s", sessionID)
		}
		switch m := msg.(type) {
		case *protocol.SessionStream:
			if m.SessionID != sessionID {
				continue
			}
			deltas[m.Index] = m.Delta
			if onDelta != nil {
				onDelta(m.Index, m.Delta)
			}
		case *protocol.SessionComplete:
			if m.SessionID != sessionID {
				continue
			}
			text := joinDeltas(deltas)
			if len(deltas) == 0 {
				text = m.Message.Content
			}
			return &TurnResult{Message: m.Message, History: m.History, Text: text}, nil
		case *protocol.ChatsError:
			return nil, errors.New("agent error %s: %s", m.Code, m.Message)
		}
	}
}

// Replay reruns every user turn of a persisted history against a freshly
// spawned agent, discarding the intermediate replies. Subprocess state does
// not outlive the process, so this is how a resumed conversation rebuilds
// the agent's turn counter and history.
func (c *Client) Replay(ctx context.Context, sessionID string, history []protocol.Turn) error {
	for _, turn := range history {
		if turn.Role != "user" {
			continue
		}
		if _, err := c.SendAndWaitComplete(ctx, sessionID, turn.Content, nil); err != nil {
			return errors.Wrapf(err, "replaying turn")
		}
	}
	return nil
}

// CreateChat explicitly creates a chat, returning the agent-assigned id.
func (c *Client) CreateChat(ctx context.Context, chatID string) (string, error) {
	err := c.t.Send(protocol.ChatsCreate{Type: protocol.TypeChatsCreate, ChatID: chatID})
	if err != nil {
		return "", err
	}
	msg, err := c.waitResult(ctx, protocol.TypeChatsCreateResult)
	if err != nil {
		return "", err
	}
	return msg.(*protocol.ChatsCreateResult).ChatID, nil
}

// ListChats fetches one page of chat summaries.
func (c *Client) ListChats(ctx context.Context, cursor, limit string) (*protocol.ChatsListResult, error) {
	err := c.t.Send(protocol.ChatsList{Type: protocol.TypeChatsList, Cursor: cursor, Limit: limit})
	if err != nil {
		return nil, err
	}
	msg, err := c.waitResult(ctx, protocol.TypeChatsListResult)
	if err != nil {
		return nil, err
	}
	return msg.(*protocol.ChatsListResult), nil
}

// GetChat fetches one chat and its full history.
func (c *Client) GetChat(ctx context.Context, chatID string) (*protocol.ChatsGetResult, error) {
	err := c.t.Send(protocol.ChatsGet{Type: protocol.TypeChatsGet, ChatID: chatID})
	if err != nil {
		return nil, err
	}
	msg, err := c.waitResult(ctx, protocol.TypeChatsGetResult)
	if err != nil {
		return nil, err
	}
	return msg.(*protocol.ChatsGetResult), nil
}

// CancelChat marks a chat cancelled. Its next subscribe short-circuits.
func (c *Client) CancelChat(ctx context.Context, chatID string) error {
	err := c.t.Send(protocol.ChatsCancel{Type: protocol.TypeChatsCancel, ChatID: chatID})
	if err != nil {
		return err
	}
	_, err = c.waitResult(ctx, protocol.TypeChatsCancelResult)
	return err
}

// SubscribeResult is the outcome of one chat-family turn. Cancellation is a
// normal terminal state, reported here rather than as an error.
type SubscribeResult struct {
	Message   protocol.Turn
	History   []protocol.Turn
	Text      string
	Cancelled bool
}

// Subscribe runs one turn on a chat and collects its event stream until a
// terminal event. A chat.failed event surfaces as an error.
func (c *Client) Subscribe(ctx context.Context, chatID, content string, stream bool, onDelta func(index int, delta string)) (*SubscribeResult, error) {
	err := c.t.Send(protocol.ChatsSubscribe{
		Type:    protocol.TypeChatsSubscribe,
		ChatID:  chatID,
		Content: content,
		Stream:  stream,
	})
	if err != nil {
		return nil, err
	}

	deltas := map[int]string{}
	for {
		msg, err := c.recv(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "waiting for terminal event on %s", chatID)
		}
		switch m := msg.(type) {
		case *protocol.MessageDelta:
			if m.ChatID != chatID {
				continue
			}
			deltas[m.Index] = m.Delta
			if onDelta != nil {
				onDelta(m.Index, m.Delta)
			}
		case *protocol.ChatCompleted:
			if m.ChatID != chatID {
				continue
			}
			text := joinDeltas(deltas)
			if len(deltas) == 0 {
				text = m.Message.Content
			}
			return &SubscribeResult{Message: m.Message, History: m.History, Text: text}, nil
		case *protocol.ChatCancelled:
			if m.ChatID != chatID {
				continue
			}
			return &SubscribeResult{Text: joinDeltas(deltas), Cancelled: true}, nil
		case *protocol.ChatFailed:
			if m.ChatID != chatID {
				continue
			}
			return nil, errors.New("chat %s failed: %s", chatID, m.Error)
		case *protocol.ChatsError:
			return nil, errors.New("agent error %s: %s", m.Code, m.Message)
		}
	}
}

// joinDeltas assembles the canonical reply text: ascending index order, not
// arrival order.
func joinDeltas(deltas map[int]string) string {
	indices := make([]int, 0, len(deltas))
	for i := range deltas {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	var b strings.Builder
	for _, i := range indices {
		b.WriteString(deltas[i])
	}
	return b.String()
}
