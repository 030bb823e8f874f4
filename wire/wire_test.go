package wire

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEncode(t *testing.T, v any) []byte {
	t.Helper()
	b, err := Encode(v)
	require.NoError(t, err)
	return b
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    any
	}{
		{"object", map[string]any{"hello": "world", "n": float64(1)}},
		{"string", "just a string"},
		{"number", float64(42)},
		{"null", nil},
		{"array", []any{"a", float64(2), nil}},
		{"nested", map[string]any{"outer": map[string]any{"inner": []any{"x"}}}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var dec Decoder
			msgs, err := dec.Push(mustEncode(t, tc.v))
			require.NoError(t, err)
			require.Len(t, msgs, 1)

			var got any
			require.NoError(t, json.Unmarshal(msgs[0], &got))
			assert.Equal(t, tc.v, got)
			assert.Zero(t, dec.Buffered())
		})
	}
}

func TestEncodeHeader(t *testing.T) {
	t.Parallel()

	frame := mustEncode(t, map[string]any{"hello": "world", "n": 1})
	require.GreaterOrEqual(t, len(frame), 4)
	assert.Equal(t, uint32(len(frame)-4), binary.BigEndian.Uint32(frame[:4]))
	assert.True(t, json.Valid(frame[4:]))
}

func TestDecoderChunkBoundaries(t *testing.T) {
	t.Parallel()

	v := map[string]any{"type": "session/stream", "index": float64(3), "delta": "abc"}
	frame := mustEncode(t, v)

	// Every possible single split point, including inside the 4-byte header.
	for cut := 0; cut <= len(frame); cut++ {
		var dec Decoder
		first, err := dec.Push(frame[:cut])
		require.NoError(t, err)
		second, err := dec.Push(frame[cut:])
		require.NoError(t, err)

		all := append(first, second...)
		require.Len(t, all, 1, "split at %d", cut)
		var got any
		require.NoError(t, json.Unmarshal(all[0], &got))
		assert.Equal(t, v, got)
	}
}

func TestDecoderThreeWaySplit(t *testing.T) {
	t.Parallel()

	frame := mustEncode(t, map[string]any{"hello": "world"})
	require.Greater(t, len(frame), 7)

	var dec Decoder
	msgs, err := dec.Push(frame[:2])
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = dec.Push(frame[2:7])
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = dec.Push(frame[7:])
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"hello":"world"}`, string(msgs[0]))
}

func TestDecoderMultiFrameBatch(t *testing.T) {
	t.Parallel()

	a := mustEncode(t, map[string]any{"seq": float64(1)})
	b := mustEncode(t, map[string]any{"seq": float64(2)})

	var dec Decoder
	msgs, err := dec.Push(append(append([]byte{}, a...), b...))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.JSONEq(t, `{"seq":1}`, string(msgs[0]))
	assert.JSONEq(t, `{"seq":2}`, string(msgs[1]))
}

func TestDecoderEmptyChunk(t *testing.T) {
	t.Parallel()

	var dec Decoder
	msgs, err := dec.Push(nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = dec.Push([]byte{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDecoderOversizedFrame(t *testing.T) {
	t.Parallel()

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, MaxFrameSize+1)

	var dec Decoder
	_, err := dec.Push(header)
	require.ErrorIs(t, err, ErrFrameTooLarge)

	// Poisoned: further pushes keep failing.
	_, err = dec.Push(mustEncode(t, "x"))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecoderReturnsFramesBeforeFailure(t *testing.T) {
	t.Parallel()

	good := mustEncode(t, map[string]any{"seq": float64(1)})
	bad := make([]byte, 4)
	binary.BigEndian.PutUint32(bad, MaxFrameSize+1)

	// One chunk carrying a valid frame followed by an oversized header: the
	// valid frame is still delivered with the error.
	var dec Decoder
	msgs, err := dec.Push(append(append([]byte{}, good...), bad...))
	require.ErrorIs(t, err, ErrFrameTooLarge)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"seq":1}`, string(msgs[0]))

	// Same for an invalid payload behind a good frame.
	payload := []byte("{not json")
	invalid := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(invalid, uint32(len(payload)))
	copy(invalid[4:], payload)

	var dec2 Decoder
	msgs, err = dec2.Push(append(append([]byte{}, good...), invalid...))
	require.Error(t, err)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"seq":1}`, string(msgs[0]))
}

func TestDecoderInvalidJSON(t *testing.T) {
	t.Parallel()

	payload := []byte("{not json")
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)

	var dec Decoder
	_, err := dec.Push(frame)
	require.Error(t, err)
}

func TestDecoderZeroLengthPayload(t *testing.T) {
	t.Parallel()

	// A declared length of zero is structurally a frame but "" is not JSON.
	frame := make([]byte, 4)
	var dec Decoder
	_, err := dec.Push(frame)
	require.Error(t, err)
}

func TestDecoderDrainReleasesBuffer(t *testing.T) {
	t.Parallel()

	var dec Decoder
	for i := 0; i < 10; i++ {
		msgs, err := dec.Push(mustEncode(t, map[string]any{"i": i}))
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Zero(t, dec.Buffered())
	}
}

func TestDecoderPayloadStableAcrossPushes(t *testing.T) {
	t.Parallel()

	var dec Decoder
	msgs, err := dec.Push(mustEncode(t, map[string]any{"keep": "me"}))
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	// Later pushes must not alias earlier returned payloads.
	for i := 0; i < 100; i++ {
		_, err := dec.Push(mustEncode(t, map[string]any{"i": i}))
		require.NoError(t, err)
	}
	assert.JSONEq(t, `{"keep":"me"}`, string(msgs[0]))
}
