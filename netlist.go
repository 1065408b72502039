package streamfab

import (
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/DaveBerkeley/streamfab/logger"
	"github.com/DaveBerkeley/streamfab/metrics"
)

// Component is anything a Netlist drives once per Tick. Step reads the
// current (already-committed) state of the Component's own Streams and
// any Streams it is connected to, and stages next-cycle values via the
// Stream Set* methods; it never observes another Component's staged
// (not-yet-committed) values, matching the "Step, then commit"
// evaluation model described in SPEC_FULL.md section 1.1.
type Component interface {
	Step()
}

// Resetter is implemented by Components that hold state across ticks
// (registers, FSM phase, RAM contents) and need to clear it on
// Netlist.Reset.
type Resetter interface {
	Reset()
}

// Edge is a diagnostic record of one Netlist.Connect call, recorded for
// introspection/graph export -- the Go equivalent of walking the
// source's Stream.connections registry.
type Edge struct {
	ID     string
	From   string
	To     string
	Fields []string
}

// Netlist is the explicit construction context every component
// constructor takes, replacing the source's process-global
// Stream.connections list and Elaboratable.elaborate side effects.
type Netlist struct {
	log     logger.Logger
	metrics *metrics.Collector

	streams    []*Stream
	components []Component
	edges      []Edge

	ticks uint64
}

// NetlistOption configures a Netlist at construction time.
type NetlistOption func(*Netlist)

// WithLogger attaches a logger.Logger used for the one data-path
// precondition warning, an unknown Router address. A Head packet shorter
// than n is not logged.
func WithLogger(l logger.Logger) NetlistOption {
	return func(n *Netlist) { n.log = l }
}

// WithMetrics attaches a metrics.Collector incremented once per Tick and
// once per stream transfer/stall.
func WithMetrics(c *metrics.Collector) NetlistOption {
	return func(n *Netlist) { n.metrics = c }
}

// NewNetlist builds an empty Netlist. Call its NewStream/Connect/Add
// methods to populate it, then drive it with Tick.
func NewNetlist(opts ...NetlistOption) *Netlist {
	n := &Netlist{log: logger.Nop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Logger returns the Netlist's logger, for components built outside this
// package that want to honor the same "unknown address" warning contract
// as Router.
func (n *Netlist) Logger() logger.Logger { return n.log }

// NewStream allocates a Stream with the given Layout and registers it
// with the Netlist so Tick can seed/commit its staged registers. name is
// used only for diagnostics (Edge records, log messages, metric labels).
func (n *Netlist) NewStream(layout Layout, name string) *Stream {
	if err := layout.validate(); err != nil {
		panic(err)
	}
	s := &Stream{
		Name:         name,
		Layout:       layout,
		payload:      make([]uint64, len(layout)),
		nextPayload:  make([]uint64, len(layout)),
	}
	n.streams = append(n.streams, s)
	return s
}

// Add registers an externally built Component (or one of this package's
// combinators) so Tick drives its Step (and, if it implements Resetter,
// its Reset).
func (n *Netlist) Add(c Component) {
	n.components = append(n.components, c)
}

// ConnectOption configures a Connect call.
type ConnectOption func(*connectConfig)

type connectConfig struct {
	rename map[string]string // dst field name -> src field name
}

// WithFieldRename maps a destination field name to a differently-named
// source field, for connecting streams whose layouts use different
// names for logically identical fields. dstField not present in the
// rename map is looked up under the same name in src.
func WithFieldRename(dstField, srcField string) ConnectOption {
	return func(c *connectConfig) {
		if c.rename == nil {
			c.rename = map[string]string{}
		}
		c.rename[dstField] = srcField
	}
}

// passConnector is the Component Connect registers: each Step it copies
// src's control bits and payload fields onto dst, and dst's Ready back
// onto src, exactly the source's `dst.payload.eq(src.payload)` plus
// `src.ready.eq(dst.ready)` comb assignment pair -- now resolved at the
// uniform tick boundary (DESIGN.md Open Question 4).
type passConnector struct {
	src, dst *Stream
	fields   []fieldMap
}

type fieldMap struct {
	dstName, srcName string
}

func (p *passConnector) Step() {
	p.dst.SetValid(p.src.Valid)
	p.dst.SetFirst(p.src.First)
	p.dst.SetLast(p.src.Last)
	for _, fm := range p.fields {
		p.dst.SetField(fm.dstName, p.src.Field(fm.srcName))
	}
	p.src.SetReady(p.dst.Ready)
}

// Connect wires src into dst: every field dst's Layout declares is
// copied from the correspondingly-named (or WithFieldRename-mapped)
// field of src, along with Valid/First/Last; dst's Ready is driven back
// onto src. It is an error for a dst field to have no corresponding src
// field under the active renames.
func (n *Netlist) Connect(src, dst *Stream, opts ...ConnectOption) error {
	cfg := connectConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var result error
	fields := make([]fieldMap, 0, len(dst.Layout))
	for _, df := range dst.Layout {
		srcName := df.Name
		if renamed, ok := cfg.rename[df.Name]; ok {
			srcName = renamed
		}
		sf, _, ok := src.Layout.Find(srcName)
		if !ok {
			result = multierror.Append(result, errors.Wrapf(ErrUnknownField,
				"connect %s -> %s: dst field %q (source field %q)", src.Name, dst.Name, df.Name, srcName))
			continue
		}
		if sf.Width != df.Width {
			result = multierror.Append(result, errors.Wrapf(ErrLayoutMismatch,
				"connect %s -> %s: field %q width %d != %q width %d",
				src.Name, dst.Name, df.Name, df.Width, sf.Name, sf.Width))
			continue
		}
		fields = append(fields, fieldMap{dstName: df.Name, srcName: srcName})
	}
	if result != nil {
		return result
	}

	n.Add(&passConnector{src: src, dst: dst, fields: fields})
	n.edges = append(n.edges, Edge{
		ID:     uuid.New().String(),
		From:   src.Name,
		To:     dst.Name,
		Fields: dst.Layout.Names(),
	})
	return nil
}

// Edges returns the diagnostic registry of every Connect call made on
// this Netlist, in call order.
func (n *Netlist) Edges() []Edge {
	out := make([]Edge, len(n.edges))
	copy(out, n.edges)
	return out
}

// Tick advances the simulation by one clock edge: every Stream's staged
// registers are seeded from its current committed state, every
// registered Component's Step runs once (in registration order), and
// then every Stream's staged state commits atomically.
func (n *Netlist) Tick() {
	for _, s := range n.streams {
		s.beginTick()
	}
	for _, c := range n.components {
		c.Step()
	}
	for _, s := range n.streams {
		s.commit()
	}
	n.ticks++
	if n.metrics != nil {
		n.metrics.ObserveTick()
		for _, s := range n.streams {
			switch {
			case s.Fired():
				n.metrics.ObserveTransfer(s.Name)
			case s.Valid && !s.Ready:
				n.metrics.ObserveBackpressure(s.Name)
			}
		}
	}
}

// Ticks returns the number of completed Tick calls.
func (n *Netlist) Ticks() uint64 { return n.ticks }

// Reset clears every registered Component implementing Resetter and
// zeroes every Stream's control bits and payload, without unregistering
// anything -- the Netlist can be ticked again from a clean state.
func (n *Netlist) Reset() {
	for _, c := range n.components {
		if r, ok := c.(Resetter); ok {
			r.Reset()
		}
	}
	for _, s := range n.streams {
		s.Valid, s.Ready, s.First, s.Last = false, false, false, false
		for i := range s.payload {
			s.payload[i] = 0
		}
		s.beginTick()
		s.commit()
	}
}
