// Package streamio bridges a byte-oriented io.Reader/io.Writer to one
// payload field of a streamfab.Stream, so a fabric can be fed from or
// drained into ordinary Go I/O.
//
// Semantics and design (adapted from the teacher's framer.go/forward.go):
//   - Non-blocking first: a Stream that isn't transferring this tick
//     surfaces as ErrWouldBlock, exactly as framer.go surfaced
//     iox.ErrWouldBlock from a non-blocking transport. RetryDelay selects
//     nonblock / cooperative-yield / sleep-and-retry, the same three modes
//     framer.go's waitOnceOnWouldBlock offered.
//   - io compatibility: Reader and Writer implement io.Reader/io.Writer and
//     honor the usual short-read/short-write contracts.
//   - Each Reader/Writer drives (or taps) exactly one Stream field; a beat
//     is framePayloadMaxLen56-style length-prefixing has no equivalent here
//     because a beat's width is already part of its Layout (see
//     DESIGN.md's "Dropped teacher modules").
//   - Packet boundaries (first/last) are not exposed on the plain
//     io.Reader/io.Writer surface on the read side -- a caller that needs
//     them should tap the same Stream with an Event (packet.go), which
//     this fabric already provides. On the write side, each Write call is
//     treated as one packet: its first byte lands on a beat with First
//     set, its last byte on a beat with Last set.
//
// Wire format: a field of w bits (w a multiple of 8) encodes as w/8 bytes
// in the configured byte order. Fields whose width is not a whole number
// of bytes cannot be bridged (ErrInvalidArgument) -- unlike framer.go's
// variable-length wire format, there is no bit-packing layer here.
package streamio

import (
	"encoding/binary"

	"github.com/DaveBerkeley/streamfab"
)

func fieldByteWidth(s *streamfab.Stream, field string) (int, error) {
	if s == nil {
		return 0, ErrInvalidArgument
	}
	f, _, ok := s.Layout.Find(field)
	if !ok {
		return 0, ErrInvalidArgument
	}
	if f.Width%8 != 0 {
		return 0, ErrInvalidArgument
	}
	return f.Width / 8, nil
}

// putBytes encodes v into buf (len(buf) bytes, 1-8) in the given byte
// order -- the general case framer.go only needed for its fixed 2-byte and
// 7-byte extended-length encodings.
func putBytes(buf []byte, v uint64, order binary.ByteOrder) {
	n := len(buf)
	if order == binary.BigEndian {
		for i := 0; i < n; i++ {
			buf[n-1-i] = byte(v >> uint(8*i))
		}
		return
	}
	for i := 0; i < n; i++ {
		buf[i] = byte(v >> uint(8*i))
	}
}

// getBytes is putBytes's inverse.
func getBytes(buf []byte, order binary.ByteOrder) uint64 {
	n := len(buf)
	var v uint64
	if order == binary.BigEndian {
		for i := 0; i < n; i++ {
			v = v<<8 | uint64(buf[i])
		}
		return v
	}
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}
