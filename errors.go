package streamfab

import "errors"

// Construction-time sentinel errors. These are returned by Netlist and
// component constructors when a pipeline is wired incorrectly; nothing on
// the data path (Tick/Step) ever returns an error, per the "no runtime
// exceptions on the data path" rule.
var (
	ErrDuplicateField  = errors.New("streamfab: duplicate field name in layout")
	ErrInvalidWidth    = errors.New("streamfab: invalid field width")
	ErrWidthTooLarge   = errors.New("streamfab: layout width exceeds 64 bits")
	ErrUnknownField    = errors.New("streamfab: unknown field name")
	ErrLayoutMismatch  = errors.New("streamfab: incompatible stream layouts")
	ErrNoInputs        = errors.New("streamfab: component requires at least one input")
	ErrInvalidArgument = errors.New("streamfab: invalid argument")
	ErrDuplicateAddr   = errors.New("streamfab: duplicate router address")
)
