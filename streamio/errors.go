package streamio

import (
	"errors"

	"code.hybscloud.com/iox"
)

var (
	// ErrInvalidArgument reports an invalid configuration (nil Stream, zero
	// field, a field width not a whole number of bytes).
	ErrInvalidArgument = errors.New("streamio: invalid argument")

	// ErrClosed reports use of a Reader/Writer after Close.
	ErrClosed = errors.New("streamio: use of closed bridge")

	// ErrWouldBlock means "no further progress without waiting" -- the
	// expected, non-failure control-flow signal for non-blocking I/O against
	// a Stream that isn't transferring this tick. Re-exported from iox so
	// callers need not import it directly, as framer.go did for its own
	// non-blocking transports.
	ErrWouldBlock = iox.ErrWouldBlock
)
