// Package agent implements the response side of the protocol: a server that
// owns the per-connection session map and answers both the flat session
// family and the richer chat family over one transport.
package agent

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/agentwire/agentwire/logging"
	"github.com/agentwire/agentwire/protocol"
	"github.com/agentwire/agentwire/tools"
	"github.com/agentwire/agentwire/transport"
)

const defaultListLimit = 50

// chat is one conversation's in-memory state. It lives for the duration of
// the process; persistence is the driver's concern.
type chat struct {
	id        string
	history   []protocol.Turn
	turns     int
	status    string
	createdAt time.Time
}

func (c *chat) summary() protocol.ChatSummary {
	return protocol.ChatSummary{
		ChatID:    c.id,
		Status:    c.status,
		Turns:     c.turns,
		CreatedAt: c.createdAt,
	}
}

// Server drives one connection. All state is owned by the Run loop; there is
// no sharing across connections, so multiple Servers can coexist in one
// process.
type Server struct {
	responder    Responder
	streamChunks int

	chats  map[string]*chat
	order  []string // insertion order, for stable listing
	tools  *tools.Registry
	inTurn bool
}

// New builds a server around a responder. streamChunks is the number of
// deltas a streamed reply is split into; zero disables streaming for the
// flat session family.
func New(r Responder, streamChunks int) *Server {
	return &Server{
		responder:    r,
		streamChunks: streamChunks,
		chats:        make(map[string]*chat),
	}
}

// WithTools equips the server to execute driver-sent tool/call requests.
func (s *Server) WithTools(reg *tools.Registry) *Server {
	s.tools = reg
	return s
}

// Run serves one connection until the peer closes it or the context is done.
// The first frame written is always the ready announcement.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	t := transport.New(r, w)
	defer t.Close()

	ready := protocol.Ready{
		Type:    protocol.TypeReady,
		PID:     os.Getpid(),
		Version: protocol.Version,
	}
	if err := t.Send(ready); err != nil {
		return err
	}

	for {
		raw, err := t.Recv(ctx)
		if err != nil {
			if err == transport.ErrClosed {
				return t.Err()
			}
			return err
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			// A frame that decodes as JSON but not as a message means
			// the peer is not speaking this protocol.
			return err
		}
		if err := s.handle(ctx, t, msg); err != nil {
			return err
		}
	}
}

// handle dispatches one message. A returned error is fatal to the connection.
func (s *Server) handle(ctx context.Context, t *transport.Transport, msg protocol.Message) error {
	switch m := msg.(type) {
	case *protocol.SessionStart:
		s.handleSessionStart(t, m)
	case *protocol.SessionSend:
		s.handleSessionSend(ctx, t, m)
	case *protocol.ToolCall:
		s.handleToolCall(ctx, t, m)
	case *protocol.ChatsCreate:
		s.handleChatsCreate(t, m)
	case *protocol.ChatsList:
		s.handleChatsList(t, m)
	case *protocol.ChatsGet:
		s.handleChatsGet(t, m)
	case *protocol.ChatsCancel:
		s.handleChatsCancel(t, m)
	case *protocol.ChatsSubscribe:
		return s.handleChatsSubscribe(ctx, t, m)
	default:
		// Unknown or peer-bound types are ignored for forward compatibility.
		logging.Debug("ignoring message", "type", msg.MsgType())
	}
	return nil
}

// getOrCreate is the flat family's lazy session creation. An empty id gets a
// generated one.
func (s *Server) getOrCreate(id string) *chat {
	if id == "" {
		id = uuid.NewString()
	}
	if c, ok := s.chats[id]; ok {
		return c
	}
	c := &chat{
		id:        id,
		status:    protocol.StatusActive,
		createdAt: time.Now().UTC(),
	}
	s.chats[id] = c
	s.order = append(s.order, id)
	return c
}

func (s *Server) sendError(t *transport.Transport, chatID, code, message string) {
	s.send(t, protocol.ChatsError{
		Type:      protocol.TypeChatsError,
		ChatID:    chatID,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) send(t *transport.Transport, msg protocol.Message) {
	if err := t.Send(msg); err != nil {
		logging.Warn("send failed", "type", msg.MsgType(), "error", err)
	}
}

func (s *Server) handleSessionStart(t *transport.Transport, m *protocol.SessionStart) {
	c := s.getOrCreate(m.SessionID)
	s.send(t, protocol.SessionStarted{
		Type:      protocol.TypeSessionStarted,
		SessionID: c.id,
	})
}

func (s *Server) handleSessionSend(ctx context.Context, t *transport.Transport, m *protocol.SessionSend) {
	if m.SessionID == "" {
		s.sendError(t, "", protocol.CodeBadRequest, "session/send requires a sessionId")
		return
	}
	if s.inTurn {
		s.sendError(t, m.SessionID, protocol.CodeBadRequest, "a turn is already in progress on this connection")
		return
	}
	c := s.getOrCreate(m.SessionID)

	s.inTurn = true
	defer func() { s.inTurn = false }()

	c.history = append(c.history, protocol.Turn{Role: "user", Content: m.Content})
	c.turns++

	cb := Callbacks{
		OnToolCall: func(name string, args map[string]any) {
			s.send(t, protocol.ToolCall{
				Type:      protocol.TypeToolCall,
				SessionID: c.id,
				Name:      name,
				Args:      args,
			})
		},
		OnToolResult: func(name, result string, isError bool) {
			s.send(t, protocol.ToolResult{
				Type:      protocol.TypeToolResult,
				SessionID: c.id,
				Name:      name,
				Result:    result,
				IsError:   isError,
			})
		},
	}

	reply, err := s.responder.Respond(ctx, c.history, cb)
	if err != nil {
		s.sendError(t, c.id, protocol.CodeResponderFailed, err.Error())
		return
	}

	for i, delta := range splitText(reply, s.streamChunks) {
		s.send(t, protocol.SessionStream{
			Type:      protocol.TypeSessionStream,
			SessionID: c.id,
			Index:     i,
			Delta:     delta,
		})
	}

	assistant := protocol.Turn{Role: "assistant", Content: reply}
	c.history = append(c.history, assistant)
	s.send(t, protocol.SessionComplete{
		Type:      protocol.TypeSessionComplete,
		SessionID: c.id,
		Message:   assistant,
		History:   append([]protocol.Turn(nil), c.history...),
	})
}

// handleToolCall executes a driver-requested tool and reports the outcome.
// Informational with respect to turn lifecycle: it never terminates a turn.
func (s *Server) handleToolCall(ctx context.Context, t *transport.Transport, m *protocol.ToolCall) {
	result := protocol.ToolResult{
		Type:      protocol.TypeToolResult,
		SessionID: m.SessionID,
		Name:      m.Name,
	}
	if s.tools == nil {
		result.Result = "no tools available"
		result.IsError = true
	} else if out, err := s.tools.Execute(ctx, m.Name, m.Args); err != nil {
		result.Result = err.Error()
		result.IsError = true
	} else {
		result.Result = out
	}
	s.send(t, result)
}

func (s *Server) handleChatsCreate(t *transport.Transport, m *protocol.ChatsCreate) {
	id := m.ChatID
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := s.chats[id]; ok {
		s.sendError(t, id, protocol.CodeChatExists, "chat already exists: "+id)
		return
	}
	c := s.getOrCreate(id)
	s.send(t, protocol.ChatsCreateResult{
		Type:      protocol.TypeChatsCreateResult,
		ChatID:    c.id,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleChatsList(t *transport.Transport, m *protocol.ChatsList) {
	offset := 0
	if m.Cursor != "" {
		n, err := strconv.Atoi(m.Cursor)
		if err != nil || n < 0 {
			s.sendError(t, "", protocol.CodeBadCursor, "invalid cursor: "+m.Cursor)
			return
		}
		offset = n
	}
	limit := defaultListLimit
	if m.Limit != "" {
		n, err := strconv.Atoi(m.Limit)
		if err != nil || n <= 0 {
			s.sendError(t, "", protocol.CodeBadRequest, "invalid limit: "+m.Limit)
			return
		}
		limit = n
	}

	result := protocol.ChatsListResult{
		Type:      protocol.TypeChatsListResult,
		Chats:     []protocol.ChatSummary{},
		Timestamp: time.Now().UTC(),
	}
	if offset < len(s.order) {
		end := offset + limit
		if end > len(s.order) {
			end = len(s.order)
		}
		for _, id := range s.order[offset:end] {
			result.Chats = append(result.Chats, s.chats[id].summary())
		}
		if end < len(s.order) {
			result.NextCursor = strconv.Itoa(end)
		}
	}
	s.send(t, result)
}

func (s *Server) handleChatsGet(t *transport.Transport, m *protocol.ChatsGet) {
	c, ok := s.chats[m.ChatID]
	if !ok {
		s.sendError(t, m.ChatID, protocol.CodeUnknownChat, "unknown chat: "+m.ChatID)
		return
	}
	s.send(t, protocol.ChatsGetResult{
		Type:      protocol.TypeChatsGetResult,
		Chat:      c.summary(),
		History:   append([]protocol.Turn(nil), c.history...),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleChatsCancel(t *transport.Transport, m *protocol.ChatsCancel) {
	c, ok := s.chats[m.ChatID]
	if !ok {
		s.sendError(t, m.ChatID, protocol.CodeUnknownChat, "unknown chat: "+m.ChatID)
		return
	}
	c.status = protocol.StatusCancelled
	s.send(t, protocol.ChatsCancelResult{
		Type:      protocol.TypeChatsCancelResult,
		ChatID:    c.id,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleChatsSubscribe(ctx context.Context, t *transport.Transport, m *protocol.ChatsSubscribe) error {
	c, ok := s.chats[m.ChatID]
	if !ok {
		s.sendError(t, m.ChatID, protocol.CodeUnknownChat, "unknown chat: "+m.ChatID)
		return nil
	}
	// An already-cancelled chat short-circuits: no chat.started, no deltas.
	if c.status == protocol.StatusCancelled {
		s.send(t, protocol.ChatCancelled{
			Type:      protocol.TypeChatCancelled,
			ChatID:    c.id,
			Timestamp: time.Now().UTC(),
		})
		return nil
	}
	if s.inTurn {
		s.sendError(t, m.ChatID, protocol.CodeBadRequest, "a turn is already in progress on this connection")
		return nil
	}
	s.inTurn = true
	defer func() { s.inTurn = false }()

	s.send(t, protocol.ChatStarted{
		Type:      protocol.TypeChatStarted,
		ChatID:    c.id,
		Timestamp: time.Now().UTC(),
	})

	c.history = append(c.history, protocol.Turn{Role: "user", Content: m.Content})
	c.turns++

	cb := Callbacks{
		OnToolCall: func(name string, args map[string]any) {
			s.send(t, protocol.ToolCall{
				Type:      protocol.TypeToolCall,
				SessionID: c.id,
				Name:      name,
				Args:      args,
			})
		},
		OnToolResult: func(name, result string, isError bool) {
			s.send(t, protocol.ToolResult{
				Type:      protocol.TypeToolResult,
				SessionID: c.id,
				Name:      name,
				Result:    result,
				IsError:   isError,
			})
		},
	}

	reply, err := s.responder.Respond(ctx, c.history, cb)
	if err != nil {
		c.status = protocol.StatusFailed
		s.send(t, protocol.ChatFailed{
			Type:      protocol.TypeChatFailed,
			ChatID:    c.id,
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return nil
	}

	if m.Stream {
		chunks := s.streamChunks
		if chunks < 1 {
			chunks = 1
		}
		for i, delta := range splitText(reply, chunks) {
			// Cooperative cancellation: drain pending control messages
			// and re-check the flag before each delta.
			if err := s.pollControl(ctx, t); err != nil {
				return err
			}
			if c.status == protocol.StatusCancelled {
				s.send(t, protocol.ChatCancelled{
					Type:      protocol.TypeChatCancelled,
					ChatID:    c.id,
					Timestamp: time.Now().UTC(),
				})
				return nil
			}
			s.send(t, protocol.MessageDelta{
				Type:      protocol.TypeMessageDelta,
				ChatID:    c.id,
				Index:     i,
				Delta:     delta,
				Timestamp: time.Now().UTC(),
			})
		}
		if err := s.pollControl(ctx, t); err != nil {
			return err
		}
		if c.status == protocol.StatusCancelled {
			s.send(t, protocol.ChatCancelled{
				Type:      protocol.TypeChatCancelled,
				ChatID:    c.id,
				Timestamp: time.Now().UTC(),
			})
			return nil
		}
	}

	assistant := protocol.Turn{Role: "assistant", Content: reply}
	c.history = append(c.history, assistant)
	s.send(t, protocol.ChatCompleted{
		Type:      protocol.TypeChatCompleted,
		ChatID:    c.id,
		Message:   assistant,
		History:   append([]protocol.Turn(nil), c.history...),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// pollControl dispatches any messages already buffered on the transport.
// Called between delta emissions so a queued chats/cancel takes effect
// mid-stream; turn-running requests arriving here are rejected by the
// inTurn guard. An undecodable frame is fatal here for the same reason it
// is fatal in the Run loop.
func (s *Server) pollControl(ctx context.Context, t *transport.Transport) error {
	for {
		raw, ok := t.TryRecv()
		if !ok {
			return nil
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			return err
		}
		if err := s.handle(ctx, t, msg); err != nil {
			return err
		}
	}
}

// splitText divides text into at most n non-empty chunks whose concatenation
// is exactly text. n <= 0 yields no chunks.
func splitText(text string, n int) []string {
	if n <= 0 || text == "" {
		return nil
	}
	runes := []rune(text)
	if n > len(runes) {
		n = len(runes)
	}
	chunks := make([]string, 0, n)
	for i := 0; i < n; i++ {
		start := i * len(runes) / n
		end := (i + 1) * len(runes) / n
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
