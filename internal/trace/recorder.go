// Package trace records the wire events a compositor emits and stores them
// as length-prefixed protobuf records.
package trace

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/wire"
)

// Event is one decoded wire event as a client received it.
type Event struct {
	Seq        uint64
	Client     uint32
	ClientName string
	Object     uint32
	Interface  string
	Opcode     uint16
	Name       string
	Signature  string
	Args       []any
}

// Serial returns the serial carried by the event, if its first argument is
// one.
func (e Event) Serial() (uint32, bool) {
	if !carriesSerial(e.Interface, e.Name) || len(e.Args) == 0 {
		return 0, false
	}
	s, ok := e.Args[0].(uint32)
	return s, ok
}

func (e Event) String() string {
	return fmt.Sprintf("%s@%d.%s(%s)", e.Interface, e.Object, e.Name, e.FormatArgs())
}

// FormatArgs renders the decoded arguments as a comma separated list.
func (e Event) FormatArgs() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		switch v := a.(type) {
		case string:
			args[i] = fmt.Sprintf("%q", v)
		case []byte:
			args[i] = fmt.Sprintf("array[%d]", len(v))
		default:
			args[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(args, ", ")
}

func carriesSerial(iface, name string) bool {
	switch iface {
	case wire.PointerInterface:
		return name == "enter" || name == "leave" || name == "button"
	case wire.KeyboardInterface:
		return name == "enter" || name == "leave" || name == "key" || name == "modifiers"
	case wire.TouchInterface:
		return name == "down" || name == "up"
	}
	return false
}

// Recorder keeps the most recent events sent to any client.
type Recorder struct {
	events []Event
	max    int
	seq    uint64
}

// NewRecorder keeps at most max events; max <= 0 keeps everything.
func NewRecorder(max int) *Recorder {
	return &Recorder{max: max}
}

// Sink returns a wire.Sink that records events for one client and then
// forwards them to next, which may be nil.
func (r *Recorder) Sink(clientID uint32, clientName string, next wire.Sink) wire.Sink {
	return wire.SinkFunc(func(m wire.Message) error {
		r.record(clientID, clientName, m)
		if next == nil {
			return nil
		}
		return next.WriteMessage(m)
	})
}

func (r *Recorder) record(clientID uint32, clientName string, m wire.Message) {
	r.seq++
	ev := Event{
		Seq:        r.seq,
		Client:     clientID,
		ClientName: clientName,
		Object:     m.Sender,
		Interface:  m.Interface,
		Opcode:     m.Opcode,
		Name:       fmt.Sprintf("event%d", m.Opcode),
	}

	if iface, err := wire.Lookup(m.Interface); err == nil {
		if desc, ok := iface.Event(m.Opcode); ok {
			ev.Name = desc.Name
			ev.Signature = desc.Signature
			args, err := wire.DecodeArgs(desc.Signature, m.Args)
			if err != nil {
				logger.Warn("undecodable event", "interface", m.Interface, "event", desc.Name, "err", err)
			}
			ev.Args = args
		}
	}

	r.events = append(r.events, ev)
	if r.max > 0 && len(r.events) > r.max {
		r.events = append(r.events[:0:0], r.events[len(r.events)-r.max:]...)
	}
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	return append([]Event(nil), r.events...)
}

// Select returns the events of one interface, optionally restricted to the
// given event names.
func (r *Recorder) Select(iface string, names ...string) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Interface != iface {
			continue
		}
		if len(names) > 0 && !slices.Contains(names, ev.Name) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Len returns the number of retained events.
func (r *Recorder) Len() int {
	return len(r.events)
}

// Reset drops every recorded event. Sequence numbers keep counting.
func (r *Recorder) Reset() {
	r.events = nil
}
