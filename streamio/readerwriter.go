package streamio

import (
	"encoding/binary"
	"runtime"
	"sync"
	"time"

	"github.com/DaveBerkeley/streamfab"
)

// Reader drains one field of a Stream into an io.Reader. It is also a
// streamfab.Component: register it with the owning Netlist (NewReader
// does this for you) so its Step runs once per Tick, exactly like any
// other Sink -- it holds Ready low whenever its internal byte buffer is
// full, and asserts it otherwise, the same toggle-on-transfer idiom
// flow.go's Sink uses.
type Reader struct {
	s       *streamfab.Stream
	field   string
	nbytes  int
	order   binary.ByteOrder
	retry   time.Duration
	bufSize int

	mu     sync.Mutex
	buf    []byte
	closed bool
}

// NewReader builds a Reader tapping field on s, registered with n.
func NewReader(n *streamfab.Netlist, s *streamfab.Stream, field string, opts ...Option) (*Reader, error) {
	nbytes, err := fieldByteWidth(s, field)
	if err != nil {
		return nil, err
	}
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	r := &Reader{
		s:       s,
		field:   field,
		nbytes:  nbytes,
		order:   o.ByteOrder,
		retry:   o.RetryDelay,
		bufSize: o.BufferSize,
	}
	n.Add(r)
	return r, nil
}

// Step consumes one beat (if the Stream fired last cycle) into the
// internal buffer, then re-asserts Ready if there is room for another.
func (r *Reader) Step() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.s.Valid && r.s.Ready {
		chunk := make([]byte, r.nbytes)
		putBytes(chunk, r.s.Field(r.field), r.order)
		r.buf = append(r.buf, chunk...)
		r.s.SetReady(false)
	} else if !r.s.Ready {
		if r.bufSize <= 0 || len(r.buf) < r.bufSize {
			r.s.SetReady(true)
		}
	}
}

// Reset clears Reader's undelivered bytes and de-asserts Ready.
func (r *Reader) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = nil
	r.s.SetReady(false)
}

// Read implements io.Reader. It returns ErrWouldBlock (subject to the
// configured RetryDelay) when no decoded bytes are buffered yet.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return 0, ErrClosed
		}
		if len(r.buf) > 0 {
			n := copy(p, r.buf)
			r.buf = r.buf[n:]
			r.mu.Unlock()
			return n, nil
		}
		r.mu.Unlock()

		if !waitOnceOnWouldBlock(r.retry) {
			return 0, ErrWouldBlock
		}
	}
}

// Close marks the Reader closed; subsequent Read calls return ErrClosed.
func (r *Reader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Writer encodes bytes written to it into beats on one field of a
// Stream, treating each Write call as one packet: its first byte lands
// on a beat with First set, its last byte on a beat with Last set.
// Registered with the owning Netlist (NewWriter does this for you) the
// same way Copy/Gate latch-and-hold a beat until their consumer takes it.
type Writer struct {
	s      *streamfab.Stream
	field  string
	nbytes int
	order  binary.ByteOrder
	retry  time.Duration
	cap    int

	mu       sync.Mutex
	queue    []byte
	ends     []uint64 // cumulative byte offsets (absolute, monotonic) marking packet ends
	consumed uint64
	atStart  bool
	closed   bool
}

// NewWriter builds a Writer driving field on s, registered with n.
func NewWriter(n *streamfab.Netlist, s *streamfab.Stream, field string, opts ...Option) (*Writer, error) {
	nbytes, err := fieldByteWidth(s, field)
	if err != nil {
		return nil, err
	}
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	w := &Writer{
		s:       s,
		field:   field,
		nbytes:  nbytes,
		order:   o.ByteOrder,
		retry:   o.RetryDelay,
		cap:     o.BufferSize,
		atStart: true,
	}
	n.Add(w)
	return w, nil
}

// Step clears a delivered beat, then encodes the next queued beat (if a
// full nbytes chunk is available), setting First/Last at packet
// boundaries recorded by Write.
func (w *Writer) Step() {
	if w.s.Valid && w.s.Ready {
		w.s.SetValid(false)
	}
	if w.s.Valid {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.queue) < w.nbytes {
		return
	}
	chunk := w.queue[:w.nbytes]
	w.queue = w.queue[w.nbytes:]
	w.consumed += uint64(w.nbytes)

	first := w.atStart
	w.atStart = false
	last := false
	if len(w.ends) > 0 && w.ends[0] == w.consumed {
		last = true
		w.ends = w.ends[1:]
		w.atStart = true
	}

	w.s.SetField(w.field, getBytes(chunk, w.order))
	w.s.SetFirst(first)
	w.s.SetLast(last)
	w.s.SetValid(true)
}

// Reset clears Writer's queued bytes and packet boundaries.
func (w *Writer) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue, w.ends, w.consumed, w.atStart = nil, nil, 0, true
	w.s.SetValid(false)
}

// Write implements io.Writer. p is queued for Step to encode into
// beats; if BufferSize bounds the queue and there is no room, Write
// returns a short count with ErrWouldBlock (subject to RetryDelay).
func (w *Writer) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return total, ErrClosed
		}
		room := len(p) - total
		if w.cap > 0 {
			avail := w.cap - len(w.queue)
			if avail <= 0 {
				if w.retry < 0 && total > 0 {
					// A short non-blocking write: the bytes queued so far
					// form this call's packet.
					w.ends = append(w.ends, w.consumed+uint64(len(w.queue)))
				}
				w.mu.Unlock()
				if !waitOnceOnWouldBlock(w.retry) {
					return total, ErrWouldBlock
				}
				continue
			}
			if avail < room {
				room = avail
			}
		}
		w.queue = append(w.queue, p[total:total+room]...)
		total += room
		if total == len(p) {
			w.ends = append(w.ends, w.consumed+uint64(len(w.queue)))
		}
		w.mu.Unlock()
	}
	return total, nil
}

// Close marks the Writer closed; subsequent Write calls return
// ErrClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

// ReadWriter groups a Reader and a Writer, mirroring framer.go's
// ReadWriter.
type ReadWriter struct {
	*Reader
	*Writer
}

// NewReadWriter builds a Reader over rField and a Writer over wField,
// which may name fields on the same or different Streams.
func NewReadWriter(n *streamfab.Netlist, rs *streamfab.Stream, rField string, ws *streamfab.Stream, wField string, opts ...Option) (*ReadWriter, error) {
	r, err := NewReader(n, rs, rField, opts...)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(n, ws, wField, opts...)
	if err != nil {
		return nil, err
	}
	return &ReadWriter{Reader: r, Writer: w}, nil
}

func waitOnceOnWouldBlock(retry time.Duration) bool {
	if retry < 0 {
		return false
	}
	if retry == 0 {
		runtime.Gosched()
		return true
	}
	time.Sleep(retry)
	return true
}
