// Package wire implements the length-prefixed JSON framing used between a
// driver process and an agent subprocess. Every frame on the byte stream is
// [4-byte big-endian payload length][payload bytes], where the payload is the
// UTF-8 JSON encoding of a single message. Message semantics live in the
// protocol package; this package only concerns itself with frame boundaries.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/agentwire/agentwire/errors"
)

// MaxFrameSize is the largest payload length a peer may declare (100 MiB).
// A frame header above this limit means the stream is desynchronized or the
// peer is misbehaving; the connection must be torn down, not resynchronized.
const MaxFrameSize = 100 << 20

const headerSize = 4

// ErrFrameTooLarge is returned when a decoded frame header declares a payload
// larger than MaxFrameSize. It is fatal to the connection.
var ErrFrameTooLarge = fmt.Errorf("frame exceeds %d byte limit", MaxFrameSize)

// Encode serializes v to JSON and prepends the 4-byte big-endian length
// header. No size limit is enforced on the encode side; the local writer is
// trusted.
func Encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "encode frame payload")
	}
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[headerSize:], payload)
	return buf, nil
}

// Decoder incrementally reassembles frames from a byte stream. Chunks may be
// split at any byte boundary, including inside the length header. A Decoder
// is not safe for concurrent use; feed it from a single reader goroutine.
//
// Once Push returns an error the Decoder is poisoned: byte alignment can no
// longer be trusted and the caller must discard the connection.
type Decoder struct {
	buf []byte
	off int // bytes before off are consumed frames
	err error
}

// Push appends chunk to the internal buffer and extracts every complete frame
// now available, in wire order. A partial trailing frame stays buffered until
// later pushes complete it. Pushing an empty chunk is a no-op.
//
// Payloads are returned as compact json.RawMessage values that remain valid
// after subsequent pushes. When a bad frame is hit mid-buffer, the frames
// decoded before it in the same call are returned alongside the error, so the
// caller can deliver them before tearing the connection down.
func (d *Decoder) Push(chunk []byte) ([]json.RawMessage, error) {
	if d.err != nil {
		return nil, d.err
	}
	if len(chunk) > 0 {
		d.buf = append(d.buf, chunk...)
	}

	var msgs []json.RawMessage
	for {
		if len(d.buf)-d.off < headerSize {
			break
		}
		size := binary.BigEndian.Uint32(d.buf[d.off : d.off+headerSize])
		if size > MaxFrameSize {
			d.err = ErrFrameTooLarge
			return msgs, d.err
		}
		if len(d.buf)-d.off < headerSize+int(size) {
			break
		}
		payload := d.buf[d.off+headerSize : d.off+headerSize+int(size)]
		if !json.Valid(payload) {
			// Covers the zero-length payload too: nothing serializes to "".
			d.err = errors.New("frame payload is not valid JSON (%d bytes)", size)
			return msgs, d.err
		}
		msg := make(json.RawMessage, len(payload))
		copy(msg, payload)
		msgs = append(msgs, msg)
		d.off += headerSize + int(size)
	}

	d.compact()
	return msgs, nil
}

// Buffered reports how many unconsumed bytes are currently held.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.off
}

// compact bounds retained memory. A fully drained buffer is released
// outright so one large historical frame does not pin its allocation; a
// buffer with a large consumed prefix has its tail copied down.
func (d *Decoder) compact() {
	if d.off == len(d.buf) {
		d.buf = nil
		d.off = 0
		return
	}
	if d.off > 4096 && d.off > len(d.buf)/2 {
		d.buf = append(d.buf[:0:0], d.buf[d.off:]...)
		d.off = 0
	}
}
