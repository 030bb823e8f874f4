package client

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentwire/agentwire/agent"
	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/protocol"
	"github.com/agentwire/agentwire/transport"
)

// newScripted wires a client to a peer-side transport so tests can play the
// agent role frame by frame.
func newScripted(t *testing.T) (*Client, *transport.Transport) {
	t.Helper()

	driverR, peerW := io.Pipe()
	peerR, driverW := io.Pipe()

	driver := transport.New(driverR, driverW, driverR, driverW)
	peer := transport.New(peerR, peerW, peerR, peerW)
	t.Cleanup(func() {
		driver.Close()
		peer.Close()
	})
	return New(driver), peer
}

// newAgentClient runs a real mock-responder server behind the client.
func newAgentClient(t *testing.T, streamChunks int) *Client {
	t.Helper()

	driverR, serverW := io.Pipe()
	serverR, driverW := io.Pipe()

	srv := agent.New(agent.MockResponder{}, streamChunks)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(context.Background(), serverR, serverW)
	}()

	driver := transport.New(driverR, driverW, driverR, driverW)
	t.Cleanup(func() {
		driver.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not shut down")
		}
	})

	c := New(driver)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.WaitReady(ctx)
	require.NoError(t, err)
	return c
}

func TestWaitForTypeDropsNonMatching(t *testing.T) {
	c, peer := newScripted(t)

	require.NoError(t, peer.Send(protocol.Unknown{Type: "weather/report"}))
	require.NoError(t, peer.Send(protocol.Ready{Type: protocol.TypeReady, PID: 42, Version: 1}))

	ready, err := c.WaitReady(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, ready.PID)
}

func TestWaitForTypeTimeout(t *testing.T) {
	c, _ := newScripted(t)

	_, err := c.WaitForType(context.Background(), protocol.TypeReady)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got: %v", err)
}

func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := make([]int, 0, n)
			q = append(q, p[:i]...)
			q = append(q, n-1)
			q = append(q, p[i:]...)
			out = append(out, q)
		}
	}
	return out
}

// Deltas reassemble to the same text regardless of delivery order.
func TestDeltaReassemblyIsOrderIndependent(t *testing.T) {
	parts := []string{"Mock", "Agent ", "says ", "hi"}

	for _, perm := range permutations(len(parts)) {
		c, peer := newScripted(t)

		go func() {
			// Consume the session/send, then deliver deltas permuted.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if _, err := peer.Recv(ctx); err != nil {
				return
			}
			for _, i := range perm {
				_ = peer.Send(protocol.SessionStream{
					Type:      protocol.TypeSessionStream,
					SessionID: "s",
					Index:     i,
					Delta:     parts[i],
				})
			}
			_ = peer.Send(protocol.SessionComplete{
				Type:      protocol.TypeSessionComplete,
				SessionID: "s",
				Message:   protocol.Turn{Role: "assistant", Content: "MockAgent says hi"},
			})
		}()

		result, err := c.SendAndWaitComplete(context.Background(), "s", "x", nil)
		require.NoError(t, err, "permutation %v", perm)
		assert.Equal(t, "MockAgent says hi", result.Text, "permutation %v", perm)
	}
}

func TestSessionTurnAgainstAgent(t *testing.T) {
	c := newAgentClient(t, 4)
	ctx := context.Background()

	id, err := c.StartSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", id)

	var seen int
	result, err := c.SendAndWaitComplete(ctx, "s1", "hello", func(index int, delta string) { seen++ })
	require.NoError(t, err)
	assert.Equal(t, "MockAgent response #1: hello", result.Text)
	assert.Equal(t, result.Message.Content, result.Text)
	assert.Equal(t, 4, seen)
	require.Equal(t, []protocol.Turn{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "MockAgent response #1: hello"},
	}, result.History)
}

func TestGeneratedSessionID(t *testing.T) {
	c := newAgentClient(t, 0)

	id, err := c.StartSession(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestReplayRebuildsTurnCounter(t *testing.T) {
	c := newAgentClient(t, 0)
	ctx := context.Background()

	_, err := c.StartSession(ctx, "s")
	require.NoError(t, err)

	// History as a persisted document would hold it: two completed turns.
	persisted := []protocol.Turn{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "MockAgent response #1: first"},
		{Role: "user", Content: "second"},
		{Role: "assistant", Content: "MockAgent response #2: second"},
	}
	require.NoError(t, c.Replay(ctx, "s", persisted))

	result, err := c.SendAndWaitComplete(ctx, "s", "third", nil)
	require.NoError(t, err)
	assert.Equal(t, "MockAgent response #3: third", result.Text)
	assert.Len(t, result.History, 6)
}

func TestChatLifecycleHelpers(t *testing.T) {
	c := newAgentClient(t, 3)
	ctx := context.Background()

	id, err := c.CreateChat(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", id)

	result, err := c.Subscribe(ctx, "c1", "hello", true, nil)
	require.NoError(t, err)
	assert.False(t, result.Cancelled)
	assert.Equal(t, "MockAgent response #1: hello", result.Text)

	got, err := c.GetChat(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Chat.Turns)
	assert.Len(t, got.History, 2)

	page, err := c.ListChats(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, page.Chats, 1)
	assert.Equal(t, "c1", page.Chats[0].ChatID)
	assert.Empty(t, page.NextCursor)
}

func TestSubscribeParity(t *testing.T) {
	run := func(stream bool) string {
		c := newAgentClient(t, 4)
		ctx := context.Background()
		_, err := c.CreateChat(ctx, "c")
		require.NoError(t, err)
		result, err := c.Subscribe(ctx, "c", "same input", stream, nil)
		require.NoError(t, err)
		return result.Text
	}

	assert.Equal(t, run(false), run(true))
}

func TestCancelShortCircuits(t *testing.T) {
	c := newAgentClient(t, 4)
	ctx := context.Background()

	_, err := c.CreateChat(ctx, "c")
	require.NoError(t, err)
	require.NoError(t, c.CancelChat(ctx, "c"))

	result, err := c.Subscribe(ctx, "c", "hello", true, nil)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Empty(t, result.Text)
}

func TestApplicationErrorsSurface(t *testing.T) {
	c := newAgentClient(t, 0)
	ctx := context.Background()

	_, err := c.GetChat(ctx, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), protocol.CodeUnknownChat)

	_, err = c.CreateChat(ctx, "dup")
	require.NoError(t, err)
	_, err = c.CreateChat(ctx, "dup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), protocol.CodeChatExists)
}

func TestListPaginationThroughClient(t *testing.T) {
	c := newAgentClient(t, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.CreateChat(ctx, fmt.Sprintf("chat-%d", i))
		require.NoError(t, err)
	}

	var ids []string
	cursor := ""
	for {
		page, err := c.ListChats(ctx, cursor, "2")
		require.NoError(t, err)
		for _, s := range page.Chats {
			ids = append(ids, s.ChatID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"chat-0", "chat-1", "chat-2", "chat-3", "chat-4"}, ids)
}
