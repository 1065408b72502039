package streamfab

import (
	"github.com/pkg/errors"

	"github.com/DaveBerkeley/streamfab/logger"
)

// Router is grounded directly on original_source/streams/route.py's
// Router: a Head of length 1 cascaded in front of a 1-of-k+1
// demultiplexer keyed by the captured address. The unknown-address
// warning is the only data-path log call in the whole fabric; a Head
// packet shorter than n is not logged.
type Router struct {
	I      *Stream
	E      *Stream
	Outs   map[uint64]*Stream
	addrs  []uint64
	layout Layout

	head      *Head
	log       logger.Logger
	state     uint8
	routeAddr uint64
	hasRoute  bool
	errored   bool

	sink *Sink
}

// RouterOption configures a Router at construction time.
type RouterOption func(*routerConfig)

type routerConfig struct {
	sink bool
	log  logger.Logger
}

// WithErrorSink wires a Sink onto Router's error output automatically,
// for callers that don't care about consuming e themselves.
func WithErrorSink() RouterOption {
	return func(c *routerConfig) { c.sink = true }
}

// WithRouterLogger overrides the logger Router uses for its precondition
// warnings; defaults to the owning Netlist's logger.
func WithRouterLogger(l logger.Logger) RouterOption {
	return func(c *routerConfig) { c.log = l }
}

// NewRouter builds a Router over layout, consuming addrField as the
// per-packet address and demultiplexing to one output Stream per entry
// in addrs (unknown addresses go to E).
func NewRouter(n *Netlist, layout Layout, addrField string, addrs []uint64, name string, opts ...RouterOption) (*Router, error) {
	if len(addrs) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "Router: addrs must not be empty")
	}
	if _, _, ok := layout.Find(addrField); !ok {
		return nil, errors.Wrapf(ErrUnknownField, "Router: addr field %q", addrField)
	}

	cfg := routerConfig{log: n.Logger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Router{
		Outs:   map[uint64]*Stream{},
		addrs:  append([]uint64(nil), addrs...),
		layout: layout,
		log:    cfg.log,
	}
	seen := map[uint64]bool{}
	for _, a := range addrs {
		if seen[a] {
			return nil, errors.Wrapf(ErrDuplicateAddr, "Router: address %#x repeated", a)
		}
		seen[a] = true
		r.Outs[a] = n.NewStream(layout, name+".o_"+formatAddr(a))
	}

	r.I = n.NewStream(layout, name+".i")
	r.E = n.NewStream(layout, name+".e")
	r.head = newHead(n, layout, addrField, 1, name+".head")
	if cfg.sink {
		r.sink = newSink(n, layout, name+".sink")
	}

	n.Add(r)
	return r, nil
}

func formatAddr(a uint64) string {
	const hex = "0123456789abcdef"
	if a == 0 {
		return "0"
	}
	var buf []byte
	for a > 0 {
		buf = append([]byte{hex[a%16]}, buf...)
		a /= 16
	}
	return string(buf)
}

func (r *Router) Step() {
	r.head.I.SetValid(r.I.Valid)
	r.head.I.SetFirst(r.I.First)
	r.head.I.SetLast(r.I.Last)
	for _, f := range r.layout {
		r.head.I.SetField(f.Name, r.I.Field(f.Name))
	}
	r.head.Step()
	r.I.SetReady(r.head.I.Ready)

	ho := r.head.O

	active := func(s *Stream, gate bool) {
		if gate {
			s.SetValid(ho.Valid)
			s.SetFirst(ho.First)
			s.SetLast(ho.Last)
			for _, f := range r.layout {
				s.SetField(f.Name, ho.Field(f.Name))
			}
		} else {
			s.SetValid(false)
		}
	}

	anyReady := false
	if r.hasRoute && r.head.More() {
		if out, ok := r.Outs[r.routeAddr]; ok {
			active(out, true)
			anyReady = anyReady || out.Ready
		}
	}
	if r.errored && r.head.More() {
		active(r.E, true)
		anyReady = anyReady || r.E.Ready
	}
	for _, out := range r.Outs {
		if !(r.hasRoute && r.head.More() && out == r.Outs[r.routeAddr]) {
			active(out, false)
		}
	}
	if !(r.errored && r.head.More()) {
		active(r.E, false)
	}
	ho.SetReady(anyReady)

	if r.sink != nil {
		r.sink.I.SetValid(r.E.Valid)
		r.sink.I.SetFirst(r.E.First)
		r.sink.I.SetLast(r.E.Last)
		for _, f := range r.layout {
			r.sink.I.SetField(f.Name, r.E.Field(f.Name))
		}
		r.sink.Step()
		r.E.SetReady(r.sink.I.Ready)
	}

	switch r.state {
	case fsmIdle:
		r.hasRoute, r.errored = false, false
		if r.head.More() {
			addr := r.head.Captured(0)
			matched := false
			for _, a := range r.addrs {
				if a == addr {
					r.routeAddr = a
					r.hasRoute = true
					matched = true
					break
				}
			}
			if !matched {
				r.errored = true
				r.log.Warnf("streamfab router %s: unknown address %#x", r.I.Name, addr)
			}
			r.state = fsmCopy
		}
	case fsmCopy:
		if ho.Valid && ho.Ready && ho.Last {
			r.hasRoute, r.errored = false, false
			r.state = fsmIdle
		}
	}
}

// Reset returns Router to IDLE with no route latched.
func (r *Router) Reset() {
	r.state, r.hasRoute, r.errored = fsmIdle, false, false
}
