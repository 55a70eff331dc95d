package seat

import (
	"github.com/charmbracelet/log"

	"github.com/bnema/wayseat/internal/compositor"
	"github.com/bnema/wayseat/internal/geom"
	"github.com/bnema/wayseat/internal/listener"
	"github.com/bnema/wayseat/internal/wire"
)

// TouchPointState is the state of one contact within a touch event.
type TouchPointState int

const (
	TouchPointUnknown TouchPointState = iota
	TouchPointPressed
	TouchPointMoved
	TouchPointStationary
	TouchPointReleased
)

func (s TouchPointState) String() string {
	switch s {
	case TouchPointPressed:
		return "pressed"
	case TouchPointMoved:
		return "moved"
	case TouchPointStationary:
		return "stationary"
	case TouchPointReleased:
		return "released"
	}
	return "unknown"
}

// TouchEventType classifies a full touch event.
type TouchEventType int

const (
	TouchBegin TouchEventType = iota
	TouchUpdate
	TouchEnd
	TouchCancel
)

// TouchPoint is one contact. ID is the backend's identifier, which may be
// any integer.
type TouchPoint struct {
	ID       int
	State    TouchPointState
	Position geom.Point
}

// TouchEvent is a set of contacts reported together by the backend.
type TouchEvent struct {
	Type   TouchEventType
	Points []TouchPoint
}

// TouchExtension can take over delivery of full touch events, for example
// to feed a gesture recognizer. PostTouchEvent returns true when it consumed
// the event.
type TouchExtension interface {
	PostTouchEvent(ev *TouchEvent, surface *compositor.Surface) bool
}

// Touch is the seat's wl_touch device.
//
// Backend point ids are mapped to small sequential wayland ids: a new
// contact takes the lowest free slot and frees it when released.
type Touch struct {
	seat *Seat
	log  *log.Logger

	bindings  bindingSet
	extension TouchExtension

	ids []int

	// focus is the surface of the running touch sequence.
	focus         *compositor.Surface
	focusListener *listener.DestroyListener
}

func newTouch(s *Seat) *Touch {
	t := &Touch{
		seat: s,
		log:  s.log.With("device", "touch"),
	}
	t.focusListener = listener.NewDestroyListener(func(any) {
		t.log.Debug("touch surface destroyed, dropping active points", "points", t.ActivePoints())
		t.focus = nil
		t.ids = nil
	})
	return t
}

func (t *Touch) Seat() *Seat {
	return t.seat
}

// AddClient binds a wl_touch for client.
func (t *Touch) AddClient(client *compositor.Client, id, version uint32) (*compositor.Resource, error) {
	r, err := client.NewResource(wire.MustLookup(wire.TouchInterface), id, version, t.handleRequest)
	if err != nil {
		return nil, err
	}
	r.SetData(t)
	t.bindings.add(r)
	return r, nil
}

// SetExtension installs or removes (nil) the touch extension.
func (t *Touch) SetExtension(ext TouchExtension) {
	t.extension = ext
}

// ActivePoints returns the number of contacts holding a wayland id.
func (t *Touch) ActivePoints() int {
	n := 0
	for _, id := range t.ids {
		if id != -1 {
			n++
		}
	}
	return n
}

// SendTouchPointEvent sends one contact to surface and returns the serial of
// a down or up event. Motion carries no serial, and stationary or unknown
// points send nothing, so those return 0.
func (t *Touch) SendTouchPointEvent(surface *compositor.Surface, id int, position geom.Point, state TouchPointState) uint32 {
	if !t.seat.IsInputAllowed(surface) {
		return 0
	}
	time := t.seat.clock.CurrentTimeMsecs()
	switch state {
	case TouchPointPressed:
		return t.sendDown(surface, time, id, position)
	case TouchPointMoved:
		t.sendMotion(surface.Client(), time, id, position)
	case TouchPointReleased:
		return t.sendUp(surface.Client(), time, id)
	}
	return 0
}

// SendFrameEvent ends a batch of touch events for client.
func (t *Touch) SendFrameEvent(client *compositor.Client) {
	if r := t.bindings.latest(client); r != nil {
		r.PostEvent(wire.TouchEventFrame, wire.NewBuilder())
	}
}

// SendCancelEvent tells client the compositor took over the touch sequence.
func (t *Touch) SendCancelEvent(client *compositor.Client) {
	if r := t.bindings.latest(client); r != nil {
		r.PostEvent(wire.TouchEventCancel, wire.NewBuilder())
	}
}

// SendFullTouchEvent delivers a backend touch event to surface. Every point
// goes out with its sequential id, followed by a single frame. Cancel is
// delivered even to clients that lost input, since it withdraws the
// sequence they already saw.
func (t *Touch) SendFullTouchEvent(surface *compositor.Surface, ev *TouchEvent) {
	if ev == nil || surface == nil {
		return
	}

	if ev.Type == TouchCancel {
		t.SendCancelEvent(surface.Client())
		t.reset()
		return
	}

	if !t.seat.IsInputAllowed(surface) {
		return
	}

	if t.extension != nil && t.extension.PostTouchEvent(ev, surface) {
		return
	}

	if len(ev.Points) == 0 {
		return
	}

	if t.focus != surface {
		t.focus = surface
		t.focusListener.Watch(surface)
	}

	for _, tp := range ev.Points {
		id := t.toSequentialWaylandID(tp.ID)
		t.SendTouchPointEvent(surface, id, tp.Position, tp.State)
		if tp.State == TouchPointReleased {
			t.ids[id] = -1
		}
	}
	t.SendFrameEvent(surface.Client())

	if t.ActivePoints() == 0 {
		t.reset()
	}
}

// toSequentialWaylandID returns the slot of touchID, claiming the first free
// slot (or a new one) for an unknown id.
func (t *Touch) toSequentialWaylandID(touchID int) int {
	free := -1
	for i, id := range t.ids {
		if id == touchID {
			return i
		}
		if free == -1 && id == -1 {
			free = i
		}
	}
	if free != -1 {
		t.ids[free] = touchID
		return free
	}
	t.ids = append(t.ids, touchID)
	return len(t.ids) - 1
}

func (t *Touch) reset() {
	t.ids = nil
	t.focus = nil
	t.focusListener.Reset()
}

func (t *Touch) sendDown(surface *compositor.Surface, time uint32, id int, position geom.Point) uint32 {
	r := t.bindings.latest(surface.Client())
	if r == nil {
		t.log.Debug("touch down for client without wl_touch", "client", surface.Client().Name())
		return 0
	}
	serial := t.seat.clock.NextSerial()
	r.PostEvent(wire.TouchEventDown, wire.NewBuilder().
		Uint(serial).
		Uint(time).
		Object(surface.ID()).
		Int(int32(id)).
		Fixed(wire.FixedFromFloat(position.X)).
		Fixed(wire.FixedFromFloat(position.Y)))
	return serial
}

func (t *Touch) sendUp(client *compositor.Client, time uint32, id int) uint32 {
	r := t.bindings.latest(client)
	if r == nil {
		return 0
	}
	serial := t.seat.clock.NextSerial()
	r.PostEvent(wire.TouchEventUp, wire.NewBuilder().Uint(serial).Uint(time).Int(int32(id)))
	return serial
}

func (t *Touch) sendMotion(client *compositor.Client, time uint32, id int, position geom.Point) {
	r := t.bindings.latest(client)
	if r == nil {
		return
	}
	r.PostEvent(wire.TouchEventMotion, wire.NewBuilder().
		Uint(time).
		Int(int32(id)).
		Fixed(wire.FixedFromFloat(position.X)).
		Fixed(wire.FixedFromFloat(position.Y)))
}

func (t *Touch) handleRequest(r *compositor.Resource, opcode uint16, _ *wire.Decoder) error {
	if opcode == wire.TouchRequestRelease {
		r.Destroy()
	}
	return nil
}
