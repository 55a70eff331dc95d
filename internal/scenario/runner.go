package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bnema/wayseat/internal/compositor"
	"github.com/bnema/wayseat/internal/geom"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/server"
	"github.com/bnema/wayseat/internal/trace"
	"github.com/bnema/wayseat/internal/wire"
)

// ErrExpectationsFailed is returned by Run when at least one expect step
// did not match.
var ErrExpectationsFailed = errors.New("scenario expectations failed")

// Result summarises one run.
type Result struct {
	Name     string
	Steps    int
	Events   []trace.Event
	Failures []string
}

func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

type clientState struct {
	client   *compositor.Client
	seat     uint32
	nextID   uint32
	devices  map[string][]uint32
	surfaces map[string]*compositor.Surface
	views    map[string]*compositor.View
}

func (c *clientState) allocID() uint32 {
	id := c.nextID
	c.nextID++
	return id
}

// Runner replays scenarios against a server.
type Runner struct {
	srv     *server.Server
	clients map[string]*clientState
	mark    uint64
	log     *log.Logger
}

func NewRunner(srv *server.Server) *Runner {
	return &Runner{
		srv:     srv,
		clients: make(map[string]*clientState),
		log:     logger.With("component", "scenario"),
	}
}

// Run sets up the scenario's clients and replays its steps in order. A
// step that cannot be executed aborts the run; failed expectations are
// collected and reported together.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	res := &Result{Name: sc.Name}
	defer func() { res.Events = r.srv.Recorder().Events() }()

	for _, name := range sc.Outputs {
		r.srv.Output(name)
	}
	for _, c := range sc.Clients {
		if err := r.connect(c); err != nil {
			return res, fmt.Errorf("client %q: %w", c.Name, err)
		}
	}

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r.log.Debug("step", "index", i+1, "kind", step.Kind())
		if err := r.exec(&step, res); err != nil {
			return res, fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
		res.Steps++
	}

	if !res.Passed() {
		return res, fmt.Errorf("%w: %d failed", ErrExpectationsFailed, len(res.Failures))
	}
	return res, nil
}

func (r *Runner) connect(c Client) error {
	state := &clientState{
		client:   r.srv.ConnectClient(c.Name),
		nextID:   2,
		devices:  make(map[string][]uint32),
		surfaces: make(map[string]*compositor.Surface),
		views:    make(map[string]*compositor.View),
	}
	r.clients[c.Name] = state

	version := c.SeatVersion
	if version == 0 {
		version = 4
	}
	state.seat = state.allocID()
	if _, err := r.srv.BindSeat(state.client, state.seat, version); err != nil {
		return err
	}

	devices := []struct {
		name  string
		count int
	}{
		{"pointer", c.Pointers},
		{"keyboard", c.Keyboards},
		{"touch", c.Touches},
	}
	for _, d := range devices {
		for range d.count {
			if err := r.bindDevice(state, d.name); err != nil {
				return err
			}
		}
	}

	for _, s := range c.Surfaces {
		surface, err := compositor.NewSurface(state.client, state.allocID(), 4)
		if err != nil {
			return err
		}
		surface.SetDestinationSize(geom.Sz(s.Size[0], s.Size[1]))
		var output *compositor.Output
		if s.Output != "" {
			output = r.srv.Output(s.Output)
		}
		state.surfaces[s.Name] = surface
		state.views[s.Name] = compositor.NewView(surface, output)
	}
	return nil
}

var getRequests = map[string]uint16{
	"pointer":  wire.SeatRequestGetPointer,
	"keyboard": wire.SeatRequestGetKeyboard,
	"touch":    wire.SeatRequestGetTouch,
}

var releaseRequests = map[string]uint16{
	"pointer":  wire.PointerRequestRelease,
	"keyboard": wire.KeyboardRequestRelease,
	"touch":    wire.TouchRequestRelease,
}

// bindDevice sends wl_seat.get_<device> like a client would.
func (r *Runner) bindDevice(c *clientState, device string) error {
	opcode, ok := getRequests[device]
	if !ok {
		return fmt.Errorf("unknown device %q", device)
	}
	id := c.allocID()
	err := c.client.Dispatch(wire.Message{
		Sender:    c.seat,
		Interface: wire.SeatInterface,
		Opcode:    opcode,
		Args:      wire.NewBuilder().NewID(id).Bytes(),
	})
	if err != nil {
		return err
	}
	c.devices[device] = append(c.devices[device], id)
	return nil
}

func (r *Runner) releaseDevice(c *clientState, device string) error {
	opcode, ok := releaseRequests[device]
	if !ok {
		return fmt.Errorf("unknown device %q", device)
	}
	ids := c.devices[device]
	if len(ids) == 0 {
		return fmt.Errorf("client has no %s to release", device)
	}
	id := ids[len(ids)-1]
	c.devices[device] = ids[:len(ids)-1]
	return r.dispatch(c, wire.Message{Sender: id, Interface: "wl_" + device, Opcode: opcode})
}

// dispatch sends a request. Protocol errors disconnect the client and are
// part of what a scenario may exercise, so they are only logged.
func (r *Runner) dispatch(c *clientState, m wire.Message) error {
	err := c.client.Dispatch(m)
	var perr *compositor.ProtocolError
	if errors.As(err, &perr) || errors.Is(err, compositor.ErrClientDestroyed) {
		r.log.Info("request rejected", "client", c.client.Name(), "err", err)
		return nil
	}
	return err
}

func (r *Runner) client(name string) (*clientState, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("unknown client %q", name)
	}
	return c, nil
}

func (r *Runner) surface(ref string) (*clientState, string, error) {
	clientName, surfaceName, err := splitRef(ref)
	if err != nil {
		return nil, "", err
	}
	c, err := r.client(clientName)
	if err != nil {
		return nil, "", err
	}
	if _, ok := c.surfaces[surfaceName]; !ok {
		return nil, "", fmt.Errorf("client %q has no surface %q", clientName, surfaceName)
	}
	return c, surfaceName, nil
}

func (r *Runner) exec(step *Step, res *Result) error {
	s := r.srv.Seat()

	switch {
	case step.Move != nil:
		return r.move(step.Move)

	case step.Press != "":
		button, err := seat.ParseMouseButton(step.Press)
		if err != nil {
			return err
		}
		s.SendMousePressEvent(button)

	case step.Release != "":
		button, err := seat.ParseMouseButton(step.Release)
		if err != nil {
			return err
		}
		s.SendMouseReleaseEvent(button)

	case step.Wheel != nil:
		orientation, err := seat.ParseOrientation(step.Wheel.Orientation)
		if err != nil {
			return err
		}
		s.SendMouseWheelEvent(orientation, step.Wheel.Delta)

	case step.Key != nil:
		switch strings.ToLower(step.Key.State) {
		case "", "pressed":
			s.SendKeyPressEvent(step.Key.Code)
		case "released":
			s.SendKeyReleaseEvent(step.Key.Code)
		default:
			return fmt.Errorf("unknown key state %q", step.Key.State)
		}

	case step.Modifiers != nil:
		if s.Keyboard() == nil {
			return nil
		}
		m := step.Modifiers
		s.Keyboard().UpdateModifierState(seat.Modifiers{
			Depressed: m.Depressed, Latched: m.Latched, Locked: m.Locked, Group: m.Group,
		})

	case step.KeyboardFocus != nil:
		if *step.KeyboardFocus == "" {
			s.SetKeyboardFocus(nil)
			return nil
		}
		c, name, err := r.surface(*step.KeyboardFocus)
		if err != nil {
			return err
		}
		if !s.SetKeyboardFocus(c.surfaces[name]) {
			r.log.Info("keyboard focus refused", "surface", *step.KeyboardFocus)
		}

	case step.Touch != nil:
		return r.touch(step.Touch)

	case step.TouchCancel != "":
		c, name, err := r.surface(step.TouchCancel)
		if err != nil {
			return err
		}
		s.SendFullTouchEvent(c.surfaces[name], &seat.TouchEvent{Type: seat.TouchCancel})

	case step.SetCursor != nil:
		return r.setCursor(step.SetCursor)

	case step.DestroySurface != "":
		c, name, err := r.surface(step.DestroySurface)
		if err != nil {
			return err
		}
		c.surfaces[name].Destroy()

	case step.Disconnect != "":
		c, err := r.client(step.Disconnect)
		if err != nil {
			return err
		}
		c.client.Destroy()

	case step.Bind != nil:
		c, err := r.client(step.Bind.Client)
		if err != nil {
			return err
		}
		return r.bindDevice(c, step.Bind.Device)

	case step.ReleaseDevice != nil:
		c, err := r.client(step.ReleaseDevice.Client)
		if err != nil {
			return err
		}
		return r.releaseDevice(c, step.ReleaseDevice.Device)

	case step.Exclusive != nil:
		if *step.Exclusive == "" {
			s.SetExclusiveInputClient(nil)
			return nil
		}
		c, err := r.client(*step.Exclusive)
		if err != nil {
			return err
		}
		s.SetExclusiveInputClient(c.client)

	case step.Expect != nil:
		if failure := r.expect(step.Expect); failure != "" {
			r.log.Warn("expectation failed", "detail", failure)
			res.Failures = append(res.Failures, failure)
		}

	default:
		return fmt.Errorf("empty step")
	}
	return nil
}

func (r *Runner) move(m *Move) error {
	local := geom.Pt(m.X, m.Y)
	space := local
	if m.GlobalX != nil {
		space.X = *m.GlobalX
	}
	if m.GlobalY != nil {
		space.Y = *m.GlobalY
	}

	var view *compositor.View
	if m.Surface != "" {
		c, name, err := r.surface(m.Surface)
		if err != nil {
			return err
		}
		view = c.views[name]
	}
	r.srv.Seat().SendMouseMoveEvent(view, local, space)
	return nil
}

var touchTypes = map[string]seat.TouchEventType{
	"begin":  seat.TouchBegin,
	"update": seat.TouchUpdate,
	"end":    seat.TouchEnd,
}

var touchStates = map[string]seat.TouchPointState{
	"pressed":    seat.TouchPointPressed,
	"moved":      seat.TouchPointMoved,
	"stationary": seat.TouchPointStationary,
	"released":   seat.TouchPointReleased,
}

func (r *Runner) touch(t *Touch) error {
	c, name, err := r.surface(t.Surface)
	if err != nil {
		return err
	}

	typ, ok := touchTypes[strings.ToLower(t.Type)]
	if !ok {
		return fmt.Errorf("unknown touch event type %q", t.Type)
	}
	ev := &seat.TouchEvent{Type: typ}
	for _, p := range t.Points {
		state, ok := touchStates[strings.ToLower(p.State)]
		if !ok {
			return fmt.Errorf("touch point %d: unknown state %q", p.ID, p.State)
		}
		ev.Points = append(ev.Points, seat.TouchPoint{ID: p.ID, State: state, Position: geom.Pt(p.X, p.Y)})
	}
	r.srv.Seat().SendFullTouchEvent(c.surfaces[name], ev)
	return nil
}

func (r *Runner) setCursor(sc *SetCursor) error {
	c, err := r.client(sc.Client)
	if err != nil {
		return err
	}
	pointers := c.devices["pointer"]
	if len(pointers) == 0 {
		return fmt.Errorf("client %q has no pointer", sc.Client)
	}

	var surfaceID uint32
	switch {
	case sc.Object != 0:
		surfaceID = sc.Object
	case sc.Surface != "":
		surface, ok := c.surfaces[sc.Surface]
		if !ok {
			return fmt.Errorf("client %q has no surface %q", sc.Client, sc.Surface)
		}
		surfaceID = surface.ID()
	}

	serial := r.srv.Seat().Pointer().EnterSerial()
	if sc.Serial != "" && sc.Serial != "enter" {
		n, err := strconv.ParseUint(sc.Serial, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid serial %q", sc.Serial)
		}
		serial = uint32(n)
	}

	return r.dispatch(c, wire.Message{
		Sender:    pointers[0],
		Interface: wire.PointerInterface,
		Opcode:    wire.PointerRequestSetCursor,
		Args: wire.NewBuilder().Uint(serial).Object(surfaceID).
			Int(sc.HotspotX).Int(sc.HotspotY).Bytes(),
	})
}

// expect counts the matching events recorded since the previous expect
// step.
func (r *Runner) expect(e *Expectation) string {
	var names []string
	if e.Event != "" {
		names = append(names, e.Event)
	}

	got := 0
	for _, ev := range r.srv.Recorder().Select(e.Interface, names...) {
		if ev.Seq <= r.mark {
			continue
		}
		if e.Client != "" && ev.ClientName != e.Client {
			continue
		}
		got++
	}
	if events := r.srv.Recorder().Events(); len(events) > 0 {
		r.mark = events[len(events)-1].Seq
	}

	if got == e.Count {
		return ""
	}
	what := e.Interface
	if e.Event != "" {
		what += "." + e.Event
	}
	if e.Client != "" {
		what += " for " + e.Client
	}
	return fmt.Sprintf("expected %d %s, got %d", e.Count, what, got)
}
