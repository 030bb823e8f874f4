package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKnownTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want Message
	}{
		{
			name: "ready",
			raw:  `{"type":"ready","pid":1234,"version":1}`,
			want: &Ready{Type: TypeReady, PID: 1234, Version: 1},
		},
		{
			name: "session start without id",
			raw:  `{"type":"session/start"}`,
			want: &SessionStart{Type: TypeSessionStart},
		},
		{
			name: "session stream",
			raw:  `{"type":"session/stream","sessionId":"s1","index":2,"delta":"abc"}`,
			want: &SessionStream{Type: TypeSessionStream, SessionID: "s1", Index: 2, Delta: "abc"},
		},
		{
			name: "session complete",
			raw:  `{"type":"session/complete","sessionId":"s1","message":{"role":"assistant","content":"hi"},"history":[{"role":"user","content":"hello"},{"role":"assistant","content":"hi"}]}`,
			want: &SessionComplete{
				Type:      TypeSessionComplete,
				SessionID: "s1",
				Message:   Turn{Role: "assistant", Content: "hi"},
				History: []Turn{
					{Role: "user", Content: "hello"},
					{Role: "assistant", Content: "hi"},
				},
			},
		},
		{
			name: "tool call",
			raw:  `{"type":"tool/call","sessionId":"s1","name":"read_file","args":{"path":"go.mod"}}`,
			want: &ToolCall{Type: TypeToolCall, SessionID: "s1", Name: "read_file", Args: map[string]any{"path": "go.mod"}},
		},
		{
			name: "chats subscribe",
			raw:  `{"type":"chats/subscribe","chatId":"c1","content":"hello","stream":true}`,
			want: &ChatsSubscribe{Type: TypeChatsSubscribe, ChatID: "c1", Content: "hello", Stream: true},
		},
		{
			name: "chats error",
			raw:  `{"type":"chats/error","chatId":"c9","code":"unknown_chat","message":"no such chat"}`,
			want: &ChatsError{Type: TypeChatsError, ChatID: "c9", Code: CodeUnknownChat, Message: "no such chat"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeUnknownTypeIgnored(t *testing.T) {
	t.Parallel()

	got, err := Decode([]byte(`{"type":"chats/archive","chatId":"c1"}`))
	require.NoError(t, err)
	assert.Equal(t, Unknown{Type: "chats/archive"}, got)
}

func TestDecodeMissingType(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"chatId":"c1"}`))
	require.Error(t, err)
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"type":`))
	require.Error(t, err)
}

func TestTimestampIsRFC3339(t *testing.T) {
	t.Parallel()

	ev := MessageDelta{
		Type:      TypeMessageDelta,
		ChatID:    "c1",
		Index:     0,
		Delta:     "x",
		Timestamp: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
	}
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"timestamp":"2025-06-01T12:30:00Z"`)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, &ev, got)
}

func TestSchemasCoverClosedEnumeration(t *testing.T) {
	t.Parallel()

	schemas := Schemas()
	byType := map[Type]MessageSchema{}
	for _, s := range schemas {
		byType[s.Type] = s
	}

	require.Contains(t, byType, TypeReady)
	require.Contains(t, byType, TypeSessionComplete)
	require.Contains(t, byType, TypeChatsListResult)

	ready := byType[TypeReady]
	names := make([]string, 0, len(ready.Fields))
	for _, f := range ready.Fields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"type", "pid", "version"}, names)

	// Every schema entry must decode back to a concrete (non-Unknown) message.
	for _, s := range schemas {
		msg := newMessage(s.Type)
		assert.NotNil(t, msg, "type %s", s.Type)
	}
}
