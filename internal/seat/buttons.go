package seat

import (
	"fmt"
	"strings"
)

// MouseButton is a logical mouse button as reported by an input backend.
type MouseButton uint32

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
	ButtonBack    // extra button 1
	ButtonForward // extra button 2
	ButtonExtra3
	ButtonExtra4
	ButtonExtra5
	ButtonExtra6
	ButtonExtra7
	ButtonExtra8
	ButtonExtra9
	ButtonExtra10
	ButtonExtra11
	ButtonExtra12
	ButtonExtra13
)

// Linux evdev button codes (linux/input-event-codes.h).
const (
	BtnLeft uint32 = 0x110
	// BtnLast is BTN_TASK + 8, the last code in the mouse range.
	BtnLast uint32 = 0x11f
)

// ToWaylandButton maps a logical button to its evdev code. Unknown buttons
// map to the highest mouse code instead of failing.
func ToWaylandButton(b MouseButton) uint32 {
	if b < ButtonLeft || b > ButtonExtra13 {
		return BtnLast
	}
	return BtnLeft + uint32(b-ButtonLeft)
}

var buttonNames = map[string]MouseButton{
	"left":    ButtonLeft,
	"right":   ButtonRight,
	"middle":  ButtonMiddle,
	"back":    ButtonBack,
	"forward": ButtonForward,
}

// ParseMouseButton accepts "left", "right", "middle", "back", "forward" and
// "extraN" for N in 1..13.
func ParseMouseButton(name string) (MouseButton, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if b, ok := buttonNames[name]; ok {
		return b, nil
	}
	var n int
	if _, err := fmt.Sscanf(name, "extra%d", &n); err == nil && n >= 1 && n <= 13 {
		return ButtonBack + MouseButton(n-1), nil
	}
	return ButtonNone, fmt.Errorf("unknown mouse button %q", name)
}

// Orientation selects the scroll axis of a wheel event.
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
)

// ParseOrientation accepts "vertical" and "horizontal".
func ParseOrientation(name string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "vertical":
		return Vertical, nil
	case "horizontal":
		return Horizontal, nil
	}
	return Vertical, fmt.Errorf("unknown orientation %q", name)
}
