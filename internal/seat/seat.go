// Package seat implements the server side of wl_seat and its input devices.
//
// A Seat owns at most one Pointer, Keyboard and Touch. Each device fans
// events out to every resource the focused client bound for it and stamps
// them with serials and timestamps from the compositor. Like the rest of the
// compositor, a seat is driven from a single goroutine.
package seat

import (
	"github.com/charmbracelet/log"

	"github.com/bnema/wayseat/internal/compositor"
	"github.com/bnema/wayseat/internal/geom"
	"github.com/bnema/wayseat/internal/listener"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/wire"
)

// Capability is a wl_seat capability bit.
type Capability uint32

const (
	CapabilityPointer  Capability = wire.SeatCapabilityPointer
	CapabilityKeyboard Capability = wire.SeatCapabilityKeyboard
	CapabilityTouch    Capability = wire.SeatCapabilityTouch

	AllCapabilities = CapabilityPointer | CapabilityKeyboard | CapabilityTouch
)

// Options configures a Seat.
type Options struct {
	Name         string
	Capabilities Capability

	// EdgeEpsilon pulls a pointer sitting exactly on the right or bottom
	// edge of a surface back inside it.
	EdgeEpsilon float64
	// ValidateCursorSerial ignores set_cursor requests whose serial does
	// not match the last pointer enter.
	ValidateCursorSerial bool

	// RepeatRate is in characters per second, RepeatDelay in milliseconds.
	RepeatRate  int32
	RepeatDelay int32
}

// DefaultOptions returns a seat named "seat0" with every capability.
func DefaultOptions() Options {
	return Options{
		Name:         "seat0",
		Capabilities: AllCapabilities,
		EdgeEpsilon:  0.5,
		RepeatRate:   25,
		RepeatDelay:  600,
	}
}

// InputFilter decides whether a surface may receive input. It runs after the
// built-in checks.
type InputFilter func(surface *compositor.Surface) bool

// FocusChangedFunc observes mouse focus changes.
type FocusChangedFunc func(newFocus, oldFocus *compositor.View)

// CursorRequestFunc observes wl_pointer.set_cursor. A nil surface hides the
// cursor.
type CursorRequestFunc func(surface *compositor.Surface, hotspotX, hotspotY int32, client *compositor.Client)

// Seat groups the input devices of one user.
type Seat struct {
	clock compositor.SerialClock
	opts  Options
	log   *log.Logger

	pointer  *Pointer
	keyboard *Keyboard
	touch    *Touch

	resources bindingSet

	mouseFocus         *compositor.View
	mouseFocusListener *listener.DestroyListener
	mouseFocusChanged  []FocusChangedFunc

	exclusiveClient   *compositor.Client
	exclusiveListener *listener.DestroyListener
	inputFilter       InputFilter

	cursorRequested []CursorRequestFunc
}

// New creates a seat and the devices named by opts.Capabilities.
func New(clock compositor.SerialClock, opts Options) *Seat {
	if opts.Name == "" {
		opts.Name = DefaultOptions().Name
	}
	s := &Seat{
		clock: clock,
		opts:  opts,
		log:   logger.With("seat", opts.Name),
	}
	s.mouseFocusListener = listener.NewDestroyListener(func(any) {
		s.log.Debug("mouse focus surface destroyed")
		s.SetMouseFocus(nil)
	})
	s.exclusiveListener = listener.NewDestroyListener(func(any) {
		s.log.Debug("exclusive input client disconnected")
		s.exclusiveClient = nil
	})

	if opts.Capabilities&CapabilityKeyboard != 0 {
		s.keyboard = newKeyboard(s)
	}
	if opts.Capabilities&CapabilityPointer != 0 {
		s.pointer = newPointer(s)
		s.OnMouseFocusChanged(s.pointer.focusChanged)
	}
	if opts.Capabilities&CapabilityTouch != 0 {
		s.touch = newTouch(s)
	}
	return s
}

func (s *Seat) Name() string {
	return s.opts.Name
}

func (s *Seat) Capabilities() Capability {
	return s.opts.Capabilities
}

// Pointer returns the seat's pointer, or nil without the capability.
func (s *Seat) Pointer() *Pointer {
	return s.pointer
}

// Keyboard returns the seat's keyboard, or nil without the capability.
func (s *Seat) Keyboard() *Keyboard {
	return s.keyboard
}

// Touch returns the seat's touch device, or nil without the capability.
func (s *Seat) Touch() *Touch {
	return s.touch
}

// Bind creates a wl_seat resource for the client and announces the seat.
func (s *Seat) Bind(client *compositor.Client, id, version uint32) (*compositor.Resource, error) {
	r, err := client.NewResource(wire.MustLookup(wire.SeatInterface), id, version, s.handleRequest)
	if err != nil {
		return nil, err
	}
	r.SetData(s)
	s.resources.add(r)

	r.PostEvent(wire.SeatEventCapabilities, wire.NewBuilder().Uint(uint32(s.opts.Capabilities)))
	r.PostEvent(wire.SeatEventName, wire.NewBuilder().String(s.opts.Name))
	s.log.Debug("seat bound", "client", client.Name(), "resource", r, "version", r.Version())
	return r, nil
}

func (s *Seat) handleRequest(r *compositor.Resource, opcode uint16, args *wire.Decoder) error {
	id := args.NewID()
	if err := args.Err(); err != nil {
		return compositor.NewProtocolError(r.ID(), wire.DisplayErrorInvalidMethod, "%v", err)
	}
	if err := compositor.CheckNewID(id); err != nil {
		return err
	}

	var err error
	switch opcode {
	case wire.SeatRequestGetPointer:
		if s.pointer != nil {
			_, err = s.pointer.AddClient(r.Client(), id, r.Version())
		} else {
			err = s.addInertDevice(r, wire.PointerInterface, id, wire.PointerRequestRelease)
		}
	case wire.SeatRequestGetKeyboard:
		if s.keyboard != nil {
			_, err = s.keyboard.AddClient(r.Client(), id, r.Version())
		} else {
			err = s.addInertDevice(r, wire.KeyboardInterface, id, wire.KeyboardRequestRelease)
		}
	case wire.SeatRequestGetTouch:
		if s.touch != nil {
			_, err = s.touch.AddClient(r.Client(), id, r.Version())
		} else {
			err = s.addInertDevice(r, wire.TouchInterface, id, wire.TouchRequestRelease)
		}
	}
	return err
}

// addInertDevice answers a get_* request for a missing capability with an
// object that never receives events. Clients can race a capability change,
// so this is not an error.
func (s *Seat) addInertDevice(seatResource *compositor.Resource, iface string, id uint32, releaseOpcode uint16) error {
	s.log.Debug("device requested without capability", "client", seatResource.Client().Name(), "interface", iface)
	_, err := seatResource.Client().NewResource(wire.MustLookup(iface), id, seatResource.Version(),
		func(r *compositor.Resource, opcode uint16, _ *wire.Decoder) error {
			if opcode == releaseOpcode {
				r.Destroy()
			}
			return nil
		})
	return err
}

// IsInputAllowed reports whether surface may receive input events. Destroyed
// surfaces never do. An exclusive input client, when set, shuts every other
// client out.
func (s *Seat) IsInputAllowed(surface *compositor.Surface) bool {
	if surface == nil || surface.Destroyed() {
		return false
	}
	if s.exclusiveClient != nil && surface.Client() != s.exclusiveClient {
		return false
	}
	if s.inputFilter != nil {
		return s.inputFilter(surface)
	}
	return true
}

// SetExclusiveInputClient restricts input to one client, as a screen locker
// would. Passing nil lifts the restriction. The restriction also ends when
// the client disconnects.
func (s *Seat) SetExclusiveInputClient(client *compositor.Client) {
	s.exclusiveClient = client
	if client == nil {
		s.exclusiveListener.Reset()
		return
	}
	s.exclusiveListener.Watch(client)
}

func (s *Seat) ExclusiveInputClient() *compositor.Client {
	return s.exclusiveClient
}

// SetInputFilter installs an additional input policy. Nil removes it.
func (s *Seat) SetInputFilter(f InputFilter) {
	s.inputFilter = f
}

// MouseFocus returns the view under the pointer, if any.
func (s *Seat) MouseFocus() *compositor.View {
	return s.mouseFocus
}

// SetMouseFocus changes the mouse focus view and notifies observers. The
// pointer is one of them and sends the matching leave and enter.
func (s *Seat) SetMouseFocus(view *compositor.View) {
	if view == s.mouseFocus {
		return
	}
	old := s.mouseFocus
	s.mouseFocus = view
	if surface := view.Surface(); surface != nil {
		s.mouseFocusListener.Watch(surface)
	} else {
		s.mouseFocusListener.Reset()
	}
	for _, fn := range s.mouseFocusChanged {
		fn(view, old)
	}
}

// OnMouseFocusChanged registers fn to run after every mouse focus change.
func (s *Seat) OnMouseFocusChanged(fn FocusChangedFunc) {
	s.mouseFocusChanged = append(s.mouseFocusChanged, fn)
}

// KeyboardFocus returns the surface with keyboard focus, if any.
func (s *Seat) KeyboardFocus() *compositor.Surface {
	if s.keyboard == nil {
		return nil
	}
	return s.keyboard.Focus()
}

// SetKeyboardFocus moves keyboard focus. It reports false when the seat has
// no keyboard.
func (s *Seat) SetKeyboardFocus(surface *compositor.Surface) bool {
	if s.keyboard == nil {
		return false
	}
	s.keyboard.SetFocus(surface)
	return true
}

// OnCursorSurfaceRequested registers fn for wl_pointer.set_cursor requests.
func (s *Seat) OnCursorSurfaceRequested(fn CursorRequestFunc) {
	s.cursorRequested = append(s.cursorRequested, fn)
}

func (s *Seat) cursorSurfaceRequested(surface *compositor.Surface, hotspotX, hotspotY int32, client *compositor.Client) {
	for _, fn := range s.cursorRequested {
		fn(surface, hotspotX, hotspotY, client)
	}
}

// The forwarders below let an input backend drive the seat without caring
// which devices exist. They do nothing when the device is missing.

func (s *Seat) SendMouseMoveEvent(view *compositor.View, local, space geom.Point) {
	if s.pointer != nil {
		s.pointer.SendMouseMoveEvent(view, local, space)
	}
}

func (s *Seat) SendMousePressEvent(button MouseButton) uint32 {
	if s.pointer == nil {
		return 0
	}
	return s.pointer.SendMousePressEvent(button)
}

func (s *Seat) SendMouseReleaseEvent(button MouseButton) uint32 {
	if s.pointer == nil {
		return 0
	}
	return s.pointer.SendMouseReleaseEvent(button)
}

func (s *Seat) SendMouseWheelEvent(orientation Orientation, delta int) {
	if s.pointer != nil {
		s.pointer.SendMouseWheelEvent(orientation, delta)
	}
}

func (s *Seat) SendKeyPressEvent(code uint32) uint32 {
	if s.keyboard == nil {
		return 0
	}
	return s.keyboard.SendKeyPressEvent(code)
}

func (s *Seat) SendKeyReleaseEvent(code uint32) uint32 {
	if s.keyboard == nil {
		return 0
	}
	return s.keyboard.SendKeyReleaseEvent(code)
}

func (s *Seat) SendFullTouchEvent(surface *compositor.Surface, ev *TouchEvent) {
	if s.touch != nil {
		s.touch.SendFullTouchEvent(surface, ev)
	}
}
