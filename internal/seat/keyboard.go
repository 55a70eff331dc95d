package seat

import (
	"encoding/binary"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/bnema/wayseat/internal/compositor"
	"github.com/bnema/wayseat/internal/listener"
	"github.com/bnema/wayseat/internal/wire"
)

// Modifiers is the xkb modifier state sent in wl_keyboard.modifiers.
type Modifiers struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// Keyboard is the seat's wl_keyboard device. Key codes are Linux evdev
// codes.
type Keyboard struct {
	seat *Seat
	log  *log.Logger

	bindings bindingSet

	focus         *compositor.Surface
	focusListener *listener.DestroyListener
	focusSerial   uint32

	keys      []uint32
	modifiers Modifiers
}

func newKeyboard(s *Seat) *Keyboard {
	k := &Keyboard{
		seat: s,
		log:  s.log.With("device", "keyboard"),
	}
	k.focusListener = listener.NewDestroyListener(func(any) {
		k.log.Debug("focused surface destroyed")
		k.focus = nil
	})
	return k
}

func (k *Keyboard) Seat() *Seat {
	return k.seat
}

// AddClient binds a wl_keyboard for client. A client that holds focus gets
// enter and modifiers on the new resource.
func (k *Keyboard) AddClient(client *compositor.Client, id, version uint32) (*compositor.Resource, error) {
	r, err := client.NewResource(wire.MustLookup(wire.KeyboardInterface), id, version, k.handleRequest)
	if err != nil {
		return nil, err
	}
	r.SetData(k)
	k.bindings.add(r)

	// No keymap event is sent here. Keymap compilation and the fd handoff
	// belong to the compositor's xkb layer.
	r.PostEvent(wire.KeyboardEventRepeatInfo, wire.NewBuilder().Int(k.seat.opts.RepeatRate).Int(k.seat.opts.RepeatDelay))

	if k.focus != nil && k.focus.Client() == client {
		r.PostEvent(wire.KeyboardEventEnter, wire.NewBuilder().Uint(k.focusSerial).Object(k.focus.ID()).Array(k.keyArray()))
		r.PostEvent(wire.KeyboardEventModifiers, k.modifierArgs(k.focusSerial))
	}
	return r, nil
}

// Focus returns the surface with keyboard focus, if any.
func (k *Keyboard) Focus() *compositor.Surface {
	return k.focus
}

// FocusSerial is the serial of the most recent keyboard enter.
func (k *Keyboard) FocusSerial() uint32 {
	return k.focusSerial
}

// PressedKeys returns the keys currently held, in press order.
func (k *Keyboard) PressedKeys() []uint32 {
	return slices.Clone(k.keys)
}

func (k *Keyboard) Modifiers() Modifiers {
	return k.modifiers
}

// SetFocus moves keyboard focus to surface. The old surface gets a leave
// before the new one gets an enter. Destroyed surfaces count as nil.
func (k *Keyboard) SetFocus(surface *compositor.Surface) {
	if surface != nil && surface.Destroyed() {
		surface = nil
	}
	if surface == k.focus {
		return
	}
	if k.focus != nil {
		k.sendLeave()
	}
	if surface != nil {
		k.sendEnter(surface)
	}
}

// SendKeyPressEvent presses code on the focused surface and returns the
// event serial, or 0 when nothing was sent.
func (k *Keyboard) SendKeyPressEvent(code uint32) uint32 {
	if k.focus != nil && !k.seat.IsInputAllowed(k.focus) {
		return 0
	}
	if !slices.Contains(k.keys, code) {
		k.keys = append(k.keys, code)
	}
	return k.sendKey(code, wire.KeyboardKeyStatePressed)
}

// SendKeyReleaseEvent releases code and returns the event serial, or 0 when
// nothing was sent. The key leaves the pressed set either way.
func (k *Keyboard) SendKeyReleaseEvent(code uint32) uint32 {
	if i := slices.Index(k.keys, code); i >= 0 {
		k.keys = slices.Delete(k.keys, i, i+1)
	}
	if k.focus == nil || !k.seat.IsInputAllowed(k.focus) {
		return 0
	}
	return k.sendKey(code, wire.KeyboardKeyStateReleased)
}

// UpdateModifierState records new xkb modifier state and sends it to the
// focused client when it changed.
func (k *Keyboard) UpdateModifierState(mods Modifiers) {
	if mods == k.modifiers {
		return
	}
	k.modifiers = mods
	if k.focus == nil {
		return
	}
	k.SendKeyModifiers(k.focus.Client(), k.seat.clock.NextSerial())
}

// SendKeyModifiers sends the current modifier state to every keyboard the
// client bound.
func (k *Keyboard) SendKeyModifiers(client *compositor.Client, serial uint32) {
	for _, r := range k.bindings.forClient(client) {
		r.PostEvent(wire.KeyboardEventModifiers, k.modifierArgs(serial))
	}
}

func (k *Keyboard) sendKey(code, state uint32) uint32 {
	if k.focus == nil {
		return 0
	}
	time := k.seat.clock.CurrentTimeMsecs()
	serial := k.seat.clock.NextSerial()
	for _, r := range k.bindings.forClient(k.focus.Client()) {
		r.PostEvent(wire.KeyboardEventKey, wire.NewBuilder().Uint(serial).Uint(time).Uint(code).Uint(state))
	}
	return serial
}

func (k *Keyboard) sendEnter(surface *compositor.Surface) {
	k.focusSerial = k.seat.clock.NextSerial()
	keys := k.keyArray()
	for _, r := range k.bindings.forClient(surface.Client()) {
		r.PostEvent(wire.KeyboardEventEnter, wire.NewBuilder().Uint(k.focusSerial).Object(surface.ID()).Array(keys))
		r.PostEvent(wire.KeyboardEventModifiers, k.modifierArgs(k.focusSerial))
	}
	k.focus = surface
	k.focusListener.Watch(surface)
	k.log.Debug("keyboard enter", "client", surface.Client().Name(), "surface", surface.ID(), "serial", k.focusSerial)
}

func (k *Keyboard) sendLeave() {
	surface := k.focus
	if !surface.Destroyed() {
		serial := k.seat.clock.NextSerial()
		for _, r := range k.bindings.forClient(surface.Client()) {
			r.PostEvent(wire.KeyboardEventLeave, wire.NewBuilder().Uint(serial).Object(surface.ID()))
		}
	}
	k.focusListener.Reset()
	k.focus = nil
}

func (k *Keyboard) modifierArgs(serial uint32) *wire.Builder {
	return wire.NewBuilder().
		Uint(serial).
		Uint(k.modifiers.Depressed).
		Uint(k.modifiers.Latched).
		Uint(k.modifiers.Locked).
		Uint(k.modifiers.Group)
}

// keyArray encodes the pressed keys as the u32 array wl_keyboard.enter
// carries.
func (k *Keyboard) keyArray() []byte {
	out := make([]byte, 0, 4*len(k.keys))
	for _, key := range k.keys {
		out = binary.LittleEndian.AppendUint32(out, key)
	}
	return out
}

func (k *Keyboard) handleRequest(r *compositor.Resource, opcode uint16, _ *wire.Decoder) error {
	if opcode == wire.KeyboardRequestRelease {
		r.Destroy()
	}
	return nil
}
