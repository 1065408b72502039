package streamio

import (
	"encoding/binary"
	"time"

	"github.com/DaveBerkeley/streamfab/streamio/internal/bo"
)

// Options configures a Reader/Writer's encoding of a Stream field into
// bytes. Adapted from framer.go's Options, minus the Protocol
// (BinaryStream/SeqPacket/Datagram) distinction: a Stream beat always has
// a statically-known field width, so there is no length-prefixing
// decision to make the way there was for an unframed byte transport (see
// DESIGN.md's "Dropped teacher modules").
type Options struct {
	ByteOrder binary.ByteOrder

	// BufferSize caps the number of undelivered bytes a Reader holds (beats
	// decoded but not yet Read) or a Writer holds (bytes Written but not yet
	// encoded into a beat). Zero means unbounded.
	BufferSize int

	// RetryDelay controls how Read/Write behave when the bridged Stream
	// isn't ready to make progress this instant:
	//   - negative: nonblock, return ErrWouldBlock immediately
	//   - zero: yield (runtime.Gosched) and retry
	//   - positive: sleep for the duration and retry
	RetryDelay time.Duration
}

var defaultOptions = Options{
	ByteOrder:  binary.BigEndian,
	BufferSize: 0,
	RetryDelay: -1, // default: nonblock
}

// Option configures a Reader or Writer at construction time.
type Option func(*Options)

// WithByteOrder sets the byte order used to encode/decode multi-byte
// field values.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(o *Options) { o.ByteOrder = order }
}

// WithBigEndian is WithByteOrder(binary.BigEndian).
func WithBigEndian() Option { return WithByteOrder(binary.BigEndian) }

// WithLittleEndian is WithByteOrder(binary.LittleEndian).
func WithLittleEndian() Option { return WithByteOrder(binary.LittleEndian) }

// WithNativeEndian selects the host machine's native byte order, via the
// same internal/bo detection framer.go used.
func WithNativeEndian() Option { return WithByteOrder(bo.Native()) }

// WithBufferSize bounds the Reader/Writer's undelivered-byte buffer.
func WithBufferSize(n int) Option {
	return func(o *Options) { o.BufferSize = n }
}

// WithRetryDelay sets the retry/wait policy used when the bridged Stream
// cannot make progress this instant.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

// WithBlock enables cooperative blocking (yield-and-retry) when the
// Stream isn't ready.
func WithBlock() Option {
	return func(o *Options) { o.RetryDelay = 0 }
}

// WithNonblock forces non-blocking behavior (return ErrWouldBlock
// immediately); this is the default.
func WithNonblock() Option {
	return func(o *Options) { o.RetryDelay = -1 }
}
