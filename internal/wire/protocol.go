package wire

import (
	"errors"
	"fmt"
)

var ErrUnknownInterface = errors.New("unknown interface")

// MessageDesc describes one request or event of an interface.
type MessageDesc struct {
	Name      string
	Signature string
	Since     uint32
}

// Interface describes a protocol interface at the version this compositor
// implements.
type Interface struct {
	Name     string
	Version  uint32
	Requests []MessageDesc
	Events   []MessageDesc
}

// Request returns the request descriptor for opcode.
func (i *Interface) Request(opcode uint16) (MessageDesc, bool) {
	if int(opcode) >= len(i.Requests) {
		return MessageDesc{}, false
	}
	return i.Requests[opcode], true
}

// Event returns the event descriptor for opcode.
func (i *Interface) Event(opcode uint16) (MessageDesc, bool) {
	if int(opcode) >= len(i.Events) {
		return MessageDesc{}, false
	}
	return i.Events[opcode], true
}

// Interface names.
const (
	DisplayInterface  = "wl_display"
	SeatInterface     = "wl_seat"
	PointerInterface  = "wl_pointer"
	KeyboardInterface = "wl_keyboard"
	TouchInterface    = "wl_touch"
	SurfaceInterface  = "wl_surface"
	CallbackInterface = "wl_callback"
)

// DisplayObjectID is the object id of wl_display on every connection.
const DisplayObjectID = 1

// ServerIDStart is the first object id allocated by the server side.
const ServerIDStart = 0xff000000

// wl_display
const (
	DisplayRequestSync        = 0
	DisplayRequestGetRegistry = 1

	DisplayEventError    = 0
	DisplayEventDeleteID = 1

	DisplayErrorInvalidObject  = 0
	DisplayErrorInvalidMethod  = 1
	DisplayErrorNoMemory       = 2
	DisplayErrorImplementation = 3
)

// wl_callback
const (
	CallbackEventDone = 0
)

// wl_seat
const (
	SeatRequestGetPointer  = 0
	SeatRequestGetKeyboard = 1
	SeatRequestGetTouch    = 2

	SeatEventCapabilities = 0
	SeatEventName         = 1

	SeatCapabilityPointer  = 1
	SeatCapabilityKeyboard = 2
	SeatCapabilityTouch    = 4
)

// wl_pointer
const (
	PointerRequestSetCursor = 0
	PointerRequestRelease   = 1

	PointerEventEnter  = 0
	PointerEventLeave  = 1
	PointerEventMotion = 2
	PointerEventButton = 3
	PointerEventAxis   = 4

	PointerErrorRole = 0

	PointerButtonStateReleased = 0
	PointerButtonStatePressed  = 1

	PointerAxisVerticalScroll   = 0
	PointerAxisHorizontalScroll = 1
)

// wl_keyboard
const (
	KeyboardRequestRelease = 0

	KeyboardEventKeymap     = 0
	KeyboardEventEnter      = 1
	KeyboardEventLeave      = 2
	KeyboardEventKey        = 3
	KeyboardEventModifiers  = 4
	KeyboardEventRepeatInfo = 5

	KeyboardKeymapFormatNoKeymap = 0
	KeyboardKeymapFormatXKBV1    = 1

	KeyboardKeyStateReleased = 0
	KeyboardKeyStatePressed  = 1
)

// wl_touch
const (
	TouchRequestRelease = 0

	TouchEventDown   = 0
	TouchEventUp     = 1
	TouchEventMotion = 2
	TouchEventFrame  = 3
	TouchEventCancel = 4
)

// wl_surface
const (
	SurfaceRequestDestroy = 0
)

// Version 4 of wl_seat is the newest whose devices need no wl_pointer.frame
// grouping.
var interfaces = map[string]*Interface{
	DisplayInterface: {
		Name:    DisplayInterface,
		Version: 1,
		Requests: []MessageDesc{
			{Name: "sync", Signature: "n"},
			{Name: "get_registry", Signature: "n"},
		},
		Events: []MessageDesc{
			{Name: "error", Signature: "ous"},
			{Name: "delete_id", Signature: "u"},
		},
	},
	SeatInterface: {
		Name:    SeatInterface,
		Version: 4,
		Requests: []MessageDesc{
			{Name: "get_pointer", Signature: "n"},
			{Name: "get_keyboard", Signature: "n"},
			{Name: "get_touch", Signature: "n"},
		},
		Events: []MessageDesc{
			{Name: "capabilities", Signature: "u"},
			{Name: "name", Signature: "2s", Since: 2},
		},
	},
	PointerInterface: {
		Name:    PointerInterface,
		Version: 4,
		Requests: []MessageDesc{
			{Name: "set_cursor", Signature: "u?oii"},
			{Name: "release", Signature: "3", Since: 3},
		},
		Events: []MessageDesc{
			{Name: "enter", Signature: "uoff"},
			{Name: "leave", Signature: "uo"},
			{Name: "motion", Signature: "uff"},
			{Name: "button", Signature: "uuuu"},
			{Name: "axis", Signature: "uuf"},
		},
	},
	KeyboardInterface: {
		Name:    KeyboardInterface,
		Version: 4,
		Requests: []MessageDesc{
			{Name: "release", Signature: "3", Since: 3},
		},
		Events: []MessageDesc{
			{Name: "keymap", Signature: "uhu"},
			{Name: "enter", Signature: "uoa"},
			{Name: "leave", Signature: "uo"},
			{Name: "key", Signature: "uuuu"},
			{Name: "modifiers", Signature: "uuuuu"},
			{Name: "repeat_info", Signature: "4ii", Since: 4},
		},
	},
	TouchInterface: {
		Name:    TouchInterface,
		Version: 4,
		Requests: []MessageDesc{
			{Name: "release", Signature: "3", Since: 3},
		},
		Events: []MessageDesc{
			{Name: "down", Signature: "uuoiff"},
			{Name: "up", Signature: "uui"},
			{Name: "motion", Signature: "uiff"},
			{Name: "frame", Signature: ""},
			{Name: "cancel", Signature: ""},
		},
	},
	CallbackInterface: {
		Name:    CallbackInterface,
		Version: 1,
		Events: []MessageDesc{
			{Name: "done", Signature: "u"},
		},
	},
	SurfaceInterface: {
		Name:    SurfaceInterface,
		Version: 4,
		Requests: []MessageDesc{
			{Name: "destroy", Signature: ""},
			{Name: "attach", Signature: "?oii"},
			{Name: "damage", Signature: "iiii"},
			{Name: "frame", Signature: "n"},
			{Name: "set_opaque_region", Signature: "?o"},
			{Name: "set_input_region", Signature: "?o"},
			{Name: "commit", Signature: ""},
			{Name: "set_buffer_transform", Signature: "2i", Since: 2},
			{Name: "set_buffer_scale", Signature: "3i", Since: 3},
			{Name: "damage_buffer", Signature: "4iiii", Since: 4},
		},
		Events: []MessageDesc{
			{Name: "enter", Signature: "o"},
			{Name: "leave", Signature: "o"},
		},
	},
}

// Lookup returns the descriptor of a known interface.
func Lookup(name string) (*Interface, error) {
	iface, ok := interfaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInterface, name)
	}
	return iface, nil
}

// MustLookup is Lookup for interfaces compiled into this package.
func MustLookup(name string) *Interface {
	iface, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return iface
}
