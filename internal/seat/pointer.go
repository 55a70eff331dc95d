package seat

import (
	"github.com/charmbracelet/log"

	"github.com/bnema/wayseat/internal/compositor"
	"github.com/bnema/wayseat/internal/geom"
	"github.com/bnema/wayseat/internal/listener"
	"github.com/bnema/wayseat/internal/wire"
)

// cursorRole is the surface role granted by wl_pointer.set_cursor.
var cursorRole = &compositor.Role{Name: "wl_pointer"}

// CursorRole returns the role given to cursor surfaces.
func CursorRole() *compositor.Role {
	return cursorRole
}

// Pointer is the seat's wl_pointer device.
//
// The entered surface only changes through ensureEntered, which always pairs
// a leave on the old surface with an enter on the new one.
type Pointer struct {
	seat *Seat
	log  *log.Logger

	bindings bindingSet

	enteredSurface  *compositor.Surface
	enteredListener *listener.DestroyListener
	enterSerial     uint32

	localPosition geom.Point
	spacePosition geom.Point
	output        *compositor.Output

	buttonCount          int
	buttonPressedChanged []func(pressed bool)
}

func newPointer(s *Seat) *Pointer {
	p := &Pointer{
		seat: s,
		log:  s.log.With("device", "pointer"),
	}
	p.enteredListener = listener.NewDestroyListener(func(any) {
		p.log.Debug("entered surface destroyed")
		p.enteredSurface = nil
		p.localPosition = geom.Point{}
	})
	return p
}

func (p *Pointer) Seat() *Seat {
	return p.seat
}

// AddClient binds a wl_pointer for client. If the client already has the
// pointer on one of its surfaces, the new resource gets an enter straight
// away, carrying the original enter serial.
func (p *Pointer) AddClient(client *compositor.Client, id, version uint32) (*compositor.Resource, error) {
	r, err := client.NewResource(wire.MustLookup(wire.PointerInterface), id, version, p.handleRequest)
	if err != nil {
		return nil, err
	}
	r.SetData(p)
	p.bindings.add(r)

	if p.enteredSurface != nil && p.enteredSurface.Client() == client {
		r.PostEvent(wire.PointerEventEnter, p.enterArgs(p.enterSerial, p.enteredSurface))
	}
	return r, nil
}

// Focus returns the surface the pointer is in, if any.
func (p *Pointer) Focus() *compositor.Surface {
	return p.enteredSurface
}

// EnterSerial is the serial of the most recent enter event.
func (p *Pointer) EnterSerial() uint32 {
	return p.enterSerial
}

// LocalPosition is the pointer position in the entered surface's
// coordinates.
func (p *Pointer) LocalPosition() geom.Point {
	return p.localPosition
}

// SpacePosition is the pointer position in global coordinates.
func (p *Pointer) SpacePosition() geom.Point {
	return p.spacePosition
}

// Output is the output under the pointer.
func (p *Pointer) Output() *compositor.Output {
	return p.output
}

// IsButtonPressed reports whether any button is held.
func (p *Pointer) IsButtonPressed() bool {
	return p.buttonCount > 0
}

// OnButtonPressedChanged registers fn to run when the first button goes down
// or the last one comes up.
func (p *Pointer) OnButtonPressedChanged(fn func(pressed bool)) {
	p.buttonPressedChanged = append(p.buttonPressedChanged, fn)
}

// SendMouseMoveEvent moves the pointer over view. A nil view, an empty one or
// one showing a cursor surface means the pointer is over nothing.
func (p *Pointer) SendMouseMoveEvent(view *compositor.View, local, space geom.Point) {
	surface := view.Surface()
	if surface == nil || surface.IsCursorSurface() || surface.Destroyed() {
		view, surface = nil, nil
	}

	p.spacePosition = space
	p.seat.SetMouseFocus(view)

	if view == nil {
		p.ensureEntered(nil)
		p.localPosition = geom.Point{}
		return
	}

	p.localPosition = local
	size := surface.DestinationSize()
	if size.W > 0 && local.X == size.W {
		p.localPosition.X -= p.seat.opts.EdgeEpsilon
	}
	if size.H > 0 && local.Y == size.H {
		p.localPosition.Y -= p.seat.opts.EdgeEpsilon
	}

	p.ensureEntered(surface)
	p.sendMotion()
	if out := view.Output(); out != nil {
		p.output = out
	}
}

// SendMousePressEvent presses button on the entered surface and returns the
// event serial, or 0 when nothing was sent.
func (p *Pointer) SendMousePressEvent(button MouseButton) uint32 {
	if p.enteredSurface != nil && !p.seat.IsInputAllowed(p.enteredSurface) {
		return 0
	}
	p.setButtonCount(p.buttonCount + 1)
	return p.sendButton(ToWaylandButton(button), wire.PointerButtonStatePressed)
}

// SendMouseReleaseEvent releases button and returns the event serial, or 0
// when nothing was sent. The held-button count drops even when the event is
// withheld, so a policy change between press and release cannot leave a
// button stuck.
func (p *Pointer) SendMouseReleaseEvent(button MouseButton) uint32 {
	if p.buttonCount > 0 {
		p.setButtonCount(p.buttonCount - 1)
	}
	if p.enteredSurface == nil || !p.seat.IsInputAllowed(p.enteredSurface) {
		return 0
	}
	return p.sendButton(ToWaylandButton(button), wire.PointerButtonStateReleased)
}

// SendMouseWheelEvent scrolls by delta in wheel units, where 120 is one
// notch. Positive deltas scroll up or left, as Qt reports them.
func (p *Pointer) SendMouseWheelEvent(orientation Orientation, delta int) {
	if p.enteredSurface == nil || !p.seat.IsInputAllowed(p.enteredSurface) {
		return
	}
	axis := uint32(wire.PointerAxisVerticalScroll)
	if orientation == Horizontal {
		axis = wire.PointerAxisHorizontalScroll
	}
	time := p.seat.clock.CurrentTimeMsecs()
	value := wire.FixedFromInt(-delta / 12)
	for _, r := range p.bindings.forClient(p.enteredSurface.Client()) {
		r.PostEvent(wire.PointerEventAxis, wire.NewBuilder().Uint(time).Uint(axis).Fixed(value))
	}
}

func (p *Pointer) setButtonCount(count int) {
	was := p.buttonCount > 0
	p.buttonCount = count
	if now := count > 0; now != was {
		for _, fn := range p.buttonPressedChanged {
			fn(now)
		}
	}
}

func (p *Pointer) sendButton(button, state uint32) uint32 {
	if p.enteredSurface == nil {
		return 0
	}
	time := p.seat.clock.CurrentTimeMsecs()
	serial := p.seat.clock.NextSerial()
	for _, r := range p.bindings.forClient(p.enteredSurface.Client()) {
		r.PostEvent(wire.PointerEventButton, wire.NewBuilder().Uint(serial).Uint(time).Uint(button).Uint(state))
	}
	return serial
}

// focusChanged follows the seat's mouse focus. Moving focus away leaves the
// entered surface; the enter waits for the next motion, which carries a
// position.
func (p *Pointer) focusChanged(newFocus, _ *compositor.View) {
	if p.enteredSurface != nil && newFocus.Surface() != p.enteredSurface {
		p.ensureEntered(nil)
	}
}

func (p *Pointer) ensureEntered(surface *compositor.Surface) {
	if p.enteredSurface == surface {
		return
	}
	// Leaving clears the local position, but the enter that follows a
	// direct switch must still carry it.
	position := p.localPosition
	if p.enteredSurface != nil {
		p.sendLeave()
	}
	if surface != nil {
		p.localPosition = position
		p.sendEnter(surface)
	}
}

func (p *Pointer) sendEnter(surface *compositor.Surface) {
	p.enterSerial = p.seat.clock.NextSerial()
	client := surface.Client()

	// Clients apply modifiers on enter, so they go out first.
	if p.seat.keyboard != nil {
		p.seat.keyboard.SendKeyModifiers(client, p.enterSerial)
	}

	for _, r := range p.bindings.forClient(client) {
		r.PostEvent(wire.PointerEventEnter, p.enterArgs(p.enterSerial, surface))
	}

	p.enteredSurface = surface
	p.enteredListener.Watch(surface)
	p.log.Debug("pointer enter", "client", client.Name(), "surface", surface.ID(), "serial", p.enterSerial)
}

func (p *Pointer) sendLeave() {
	surface := p.enteredSurface
	if !surface.Destroyed() {
		serial := p.seat.clock.NextSerial()
		for _, r := range p.bindings.forClient(surface.Client()) {
			r.PostEvent(wire.PointerEventLeave, wire.NewBuilder().Uint(serial).Object(surface.ID()))
		}
		p.log.Debug("pointer leave", "client", surface.Client().Name(), "surface", surface.ID(), "serial", serial)
	}
	p.localPosition = geom.Point{}
	p.enteredListener.Reset()
	p.enteredSurface = nil
}

// sendMotion must only run with an entered surface.
func (p *Pointer) sendMotion() {
	time := p.seat.clock.CurrentTimeMsecs()
	x := wire.FixedFromFloat(p.localPosition.X)
	y := wire.FixedFromFloat(p.localPosition.Y)
	for _, r := range p.bindings.forClient(p.enteredSurface.Client()) {
		r.PostEvent(wire.PointerEventMotion, wire.NewBuilder().Uint(time).Fixed(x).Fixed(y))
	}
}

func (p *Pointer) enterArgs(serial uint32, surface *compositor.Surface) *wire.Builder {
	return wire.NewBuilder().
		Uint(serial).
		Object(surface.ID()).
		Fixed(wire.FixedFromFloat(p.localPosition.X)).
		Fixed(wire.FixedFromFloat(p.localPosition.Y))
}

func (p *Pointer) handleRequest(r *compositor.Resource, opcode uint16, args *wire.Decoder) error {
	switch opcode {
	case wire.PointerRequestSetCursor:
		serial := args.Uint()
		surfaceID := args.Object()
		hotspotX := args.Int()
		hotspotY := args.Int()
		if err := args.Err(); err != nil {
			return compositor.NewProtocolError(r.ID(), wire.DisplayErrorInvalidMethod, "%v", err)
		}
		return p.setCursor(r, serial, surfaceID, hotspotX, hotspotY)
	case wire.PointerRequestRelease:
		r.Destroy()
	}
	return nil
}

func (p *Pointer) setCursor(r *compositor.Resource, serial, surfaceID uint32, hotspotX, hotspotY int32) error {
	client := r.Client()
	if serial != p.enterSerial {
		p.log.Debug("set_cursor with stale serial", "client", client.Name(), "serial", serial, "enter_serial", p.enterSerial)
		if p.seat.opts.ValidateCursorSerial {
			return nil
		}
	}

	if surfaceID == 0 {
		p.seat.cursorSurfaceRequested(nil, 0, 0, client)
		return nil
	}

	surface := compositor.SurfaceFromResource(client.Resource(surfaceID))
	if surface == nil {
		return compositor.NewProtocolError(wire.DisplayObjectID, wire.DisplayErrorInvalidObject,
			"set_cursor: object %d is not a wl_surface", surfaceID)
	}
	if !surface.SetRole(cursorRole, r, wire.PointerErrorRole) {
		return nil
	}
	surface.MarkAsCursorSurface(true)
	p.seat.cursorSurfaceRequested(surface, hotspotX, hotspotY, client)
	return nil
}
