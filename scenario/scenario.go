package scenario

import (
	"fmt"

	"github.com/DaveBerkeley/streamfab"
	"github.com/DaveBerkeley/streamfab/simkit"
)

// Spec describes one pipeline scenario: which combinator to instantiate,
// its static parameters, and the stimulus to replay through it. Field
// names mirror packetd's pipeline stage shape -- a "component"
// discriminator plus a flat bag of parameters -- unpacked via go-ucfg's
// `config` tags the same way confengine.Config.Unpack is used
// throughout packetd/controller.
type Spec struct {
	Name      string           `config:"name"`
	Component string           `config:"component"`
	Width     int              `config:"width"`
	IWidth    int              `config:"iwidth"`
	OWidth    int              `config:"owidth"`
	MaxSize   int              `config:"maxSize"`
	AddrField string           `config:"addrField"`
	Addrs     []uint64         `config:"addrs"`
	Ticks     int              `config:"ticks"`
	Stimulus  []map[string]any `config:"stimulus"`
}

// Load reads and unpacks a scenario Spec from a YAML file at path.
func Load(path string) (*Spec, error) {
	cfg, err := LoadConfigPath(path)
	if err != nil {
		return nil, err
	}
	return unpack(cfg)
}

// LoadBytes unpacks a scenario Spec from YAML content already in memory.
func LoadBytes(b []byte) (*Spec, error) {
	cfg, err := LoadContent(b)
	if err != nil {
		return nil, err
	}
	return unpack(cfg)
}

func unpack(cfg *Config) (*Spec, error) {
	var s Spec
	if err := cfg.Unpack(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Built is a Spec wired onto a fresh Netlist: Source drives its single
// data input and Sinks taps every output (Router contributes one Sink
// per address plus its error output; every other component contributes
// exactly one, named "out").
type Built struct {
	Netlist *streamfab.Netlist
	Source  *simkit.SourceSim
	Sinks   map[string]*simkit.SinkSim
	Ticks   int
}

// Run advances the netlist for its configured Ticks and returns every
// Sink's recorded packets, keyed the same as Sinks.
func (b *Built) Run() map[string][][]simkit.Beat {
	simkit.Run(b.Netlist, b.Ticks)
	out := make(map[string][][]simkit.Beat, len(b.Sinks))
	for name, sink := range b.Sinks {
		out[name] = sink.Data()
	}
	return out
}

// KnownComponents lists every component name Build accepts, in the
// order cmd/streamsim's list command prints them.
var KnownComponents = []string{
	"copy", "gate", "packetiser",
	"mul", "add", "addsigned", "max", "sum", "sumsigned",
	"muxdown", "muxup", "router",
}

func toUint64(v any) uint64 {
	switch x := v.(type) {
	case uint64:
		return x
	case int64:
		return uint64(x)
	case int:
		return uint64(x)
	case uint:
		return uint64(x)
	case float64:
		return uint64(x)
	default:
		return 0
	}
}

func stimulusBeats(raw []map[string]any) []map[string]uint64 {
	beats := make([]map[string]uint64, len(raw))
	for i, b := range raw {
		m := make(map[string]uint64, len(b))
		for k, v := range b {
			m[k] = toUint64(v)
		}
		beats[i] = m
	}
	return beats
}

func dataLayout(width int) streamfab.Layout {
	return streamfab.Layout{{Name: "data", Width: width}}
}

// Build instantiates spec.Component on a fresh Netlist, wires a
// SourceSim replaying spec.Stimulus onto its input, and taps every
// output with a SinkSim. netOpts are forwarded to streamfab.NewNetlist,
// letting callers (e.g. cmd/streamsim serve) attach a metrics.Collector
// or logger.Logger to the scenario's Netlist.
func Build(spec *Spec, netOpts ...streamfab.NetlistOption) (*Built, error) {
	n := streamfab.NewNetlist(netOpts...)
	ticks := spec.Ticks
	if ticks <= 0 {
		ticks = 64
	}
	b := &Built{Netlist: n, Sinks: map[string]*simkit.SinkSim{}, Ticks: ticks}

	var in *streamfab.Stream
	switch spec.Component {
	case "copy":
		c := streamfab.NewCopy(n, dataLayout(spec.Width), spec.Name)
		in = c.I
		b.Sinks["out"] = simkit.NewSinkSim(n, c.O, spec.Name+".out", true)
	case "gate":
		g := streamfab.NewGate(n, dataLayout(spec.Width), spec.Name)
		g.SetEnable(true)
		in = g.I
		b.Sinks["out"] = simkit.NewSinkSim(n, g.O, spec.Name+".out", true)
	case "packetiser":
		p := streamfab.NewPacketiser(n, dataLayout(spec.Width), spec.MaxSize, spec.Name)
		in = p.I
		b.Sinks["out"] = simkit.NewSinkSim(n, p.O, spec.Name+".out", true)
	case "mul":
		op := streamfab.NewMul(n, spec.IWidth, spec.OWidth, spec.Name)
		in = op.I
		b.Sinks["out"] = simkit.NewSinkSim(n, op.O, spec.Name+".out", true)
	case "add":
		op := streamfab.NewAdd(n, spec.IWidth, spec.OWidth, spec.Name)
		in = op.I
		b.Sinks["out"] = simkit.NewSinkSim(n, op.O, spec.Name+".out", true)
	case "addsigned":
		op := streamfab.NewAddSigned(n, spec.IWidth, spec.OWidth, spec.Name)
		in = op.I
		b.Sinks["out"] = simkit.NewSinkSim(n, op.O, spec.Name+".out", true)
	case "max":
		op := streamfab.NewMax(n, spec.IWidth, spec.OWidth, spec.Name)
		in = op.I
		b.Sinks["out"] = simkit.NewSinkSim(n, op.O, spec.Name+".out", true)
	case "sum":
		s := streamfab.NewSum(n, spec.IWidth, spec.OWidth, spec.Name)
		in = s.I
		b.Sinks["out"] = simkit.NewSinkSim(n, s.O, spec.Name+".out", true)
	case "sumsigned":
		s := streamfab.NewSumSigned(n, spec.IWidth, spec.OWidth, spec.Name)
		in = s.I
		b.Sinks["out"] = simkit.NewSinkSim(n, s.O, spec.Name+".out", true)
	case "muxdown":
		m, err := streamfab.NewMuxDown(n, spec.IWidth, spec.OWidth, spec.Name)
		if err != nil {
			return nil, err
		}
		in = m.I
		b.Sinks["out"] = simkit.NewSinkSim(n, m.O, spec.Name+".out", true)
	case "muxup":
		m, err := streamfab.NewMuxUp(n, spec.IWidth, spec.OWidth, spec.Name)
		if err != nil {
			return nil, err
		}
		in = m.I
		b.Sinks["out"] = simkit.NewSinkSim(n, m.O, spec.Name+".out", true)
	case "router":
		addrField := spec.AddrField
		if addrField == "" {
			addrField = "data"
		}
		r, err := streamfab.NewRouter(n, dataLayout(spec.Width), addrField, spec.Addrs, spec.Name)
		if err != nil {
			return nil, err
		}
		in = r.I
		for _, a := range spec.Addrs {
			b.Sinks[fmt.Sprintf("addr:%#x", a)] = simkit.NewSinkSim(n, r.Outs[a], fmt.Sprintf("%s.o_%#x", spec.Name, a), true)
		}
		b.Sinks["err"] = simkit.NewSinkSim(n, r.E, spec.Name+".e", true)
	default:
		return nil, fmt.Errorf("scenario: unknown component %q", spec.Component)
	}

	b.Source = simkit.NewSourceSim(n, in, spec.Name+".in")
	b.Source.PushPacket(0, stimulusBeats(spec.Stimulus))
	return b, nil
}
