// Package transport turns a duplex byte stream (typically an agent
// subprocess's stdio pipes) into an ordered flow of protocol frames. Outbound
// messages are encoded through the wire codec and written under a mutex, so a
// Send returns only once the bytes have been accepted by the OS pipe buffer.
// Inbound bytes are decoded on a dedicated reader goroutine and pulled one
// message at a time via Recv.
//
// The transport fails closed: a read error, an oversized frame, or an invalid
// payload all terminate the connection, because byte-stream alignment cannot
// be trusted once one frame is malformed.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/wire"
)

// ErrClosed is returned by Send and Recv after the transport has closed,
// whether by Close, peer EOF, or a framing error. Use Err to find out which.
var ErrClosed = errors.New("transport closed")

const recvBuffer = 64

// Transport frames messages over one byte stream pair. Recv is intended for
// a single consumer; the message sequence is strictly ordered and cannot be
// fanned out.
type Transport struct {
	w    io.Writer
	wmu  sync.Mutex
	msgs chan json.RawMessage

	closeOnce sync.Once
	closed    chan struct{}
	closers   []io.Closer

	errMu sync.Mutex
	err   error
}

// New wraps a readable source and writable sink and starts the reader
// goroutine. Closers passed in (pipe ends, process handles) are closed when
// the transport closes.
func New(r io.Reader, w io.Writer, closers ...io.Closer) *Transport {
	t := &Transport{
		w:       w,
		msgs:    make(chan json.RawMessage, recvBuffer),
		closed:  make(chan struct{}),
		closers: closers,
	}
	go t.readLoop(r)
	return t
}

// Send encodes msg as one frame and writes it. The write blocks until the OS
// pipe accepts the bytes, which is the backpressure contract: a returned nil
// means the frame is queued for the peer, not that the peer has read it.
func (t *Transport) Send(msg any) error {
	frame, err := wire.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case <-t.closed:
		return ErrClosed
	default:
	}

	t.wmu.Lock()
	defer t.wmu.Unlock()
	if _, err := t.w.Write(frame); err != nil {
		t.fail(errors.Wrapf(err, "write frame"))
		return ErrClosed
	}
	return nil
}

// Recv returns the next decoded message in wire order. It blocks until a
// message is available, the context is done, or the transport closes. After
// close it drains any messages decoded before the close, then reports
// ErrClosed.
func (t *Transport) Recv(ctx context.Context) (json.RawMessage, error) {
	select {
	case msg, ok := <-t.msgs:
		if !ok {
			return nil, ErrClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		// Drain messages decoded before the close, then report end of stream.
		select {
		case msg, ok := <-t.msgs:
			if ok {
				return msg, nil
			}
		default:
		}
		return nil, ErrClosed
	}
}

// TryRecv returns the next decoded message if one is already buffered. It
// never blocks; ok is false when nothing is pending or the transport closed.
func (t *Transport) TryRecv() (msg json.RawMessage, ok bool) {
	select {
	case msg, ok = <-t.msgs:
		return msg, ok
	default:
		return nil, false
	}
}

// Close shuts the transport down. It is idempotent, closes any attached
// closers, and unblocks every outstanding Recv.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		for _, c := range t.closers {
			_ = c.Close()
		}
	})
	return nil
}

// Err reports why the transport terminated: nil after a clean Close or peer
// EOF, otherwise the framing or I/O error that killed the connection.
func (t *Transport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

func (t *Transport) fail(err error) {
	t.errMu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.errMu.Unlock()
	t.Close()
}

func (t *Transport) readLoop(r io.Reader) {
	defer close(t.msgs)

	var dec wire.Decoder
	buf := make([]byte, 32*1024)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			msgs, decErr := dec.Push(buf[:n])
			for _, m := range msgs {
				select {
				case t.msgs <- m:
				case <-t.closed:
					return
				}
			}
			if decErr != nil {
				t.fail(decErr)
				return
			}
		}
		if readErr != nil {
			select {
			case <-t.closed:
				// Deliberate close; the pipe error is just the wakeup.
			default:
				if readErr != io.EOF {
					t.fail(errors.Wrapf(readErr, "read stream"))
				}
			}
			t.Close()
			return
		}
	}
}
