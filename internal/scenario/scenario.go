// Package scenario loads YAML input scenarios: a set of clients with their
// surfaces and device bindings, followed by the input steps to replay.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a complete replay description.
type Scenario struct {
	Name    string   `yaml:"name"`
	Outputs []string `yaml:"outputs"`
	Clients []Client `yaml:"clients"`
	Steps   []Step   `yaml:"steps"`
}

// Client describes one connection and what it binds on start.
type Client struct {
	Name        string    `yaml:"name"`
	SeatVersion uint32    `yaml:"seat_version"`
	Pointers    int       `yaml:"pointers"`
	Keyboards   int       `yaml:"keyboards"`
	Touches     int       `yaml:"touches"`
	Surfaces    []Surface `yaml:"surfaces"`
}

// Surface is a client surface shown on an output.
type Surface struct {
	Name   string     `yaml:"name"`
	Size   [2]float64 `yaml:"size"`
	Output string     `yaml:"output"`
}

// Step is one action. Exactly one field is set.
type Step struct {
	Move           *Move        `yaml:"move,omitempty"`
	Press          string       `yaml:"press,omitempty"`
	Release        string       `yaml:"release,omitempty"`
	Wheel          *Wheel       `yaml:"wheel,omitempty"`
	Key            *Key         `yaml:"key,omitempty"`
	Modifiers      *Modifiers   `yaml:"modifiers,omitempty"`
	KeyboardFocus  *string      `yaml:"keyboard_focus,omitempty"`
	Touch          *Touch       `yaml:"touch,omitempty"`
	TouchCancel    string       `yaml:"touch_cancel,omitempty"`
	SetCursor      *SetCursor   `yaml:"set_cursor,omitempty"`
	DestroySurface string       `yaml:"destroy_surface,omitempty"`
	Disconnect     string       `yaml:"disconnect,omitempty"`
	Bind           *Bind        `yaml:"bind,omitempty"`
	ReleaseDevice  *Bind        `yaml:"release_device,omitempty"`
	Exclusive      *string      `yaml:"exclusive,omitempty"`
	Expect         *Expectation `yaml:"expect,omitempty"`
}

// Move puts the pointer over a surface, or over nothing when Surface is
// empty. Global coordinates default to the local ones.
type Move struct {
	Surface string   `yaml:"surface"`
	X       float64  `yaml:"x"`
	Y       float64  `yaml:"y"`
	GlobalX *float64 `yaml:"global_x,omitempty"`
	GlobalY *float64 `yaml:"global_y,omitempty"`
}

type Wheel struct {
	Orientation string `yaml:"orientation"`
	Delta       int    `yaml:"delta"`
}

// Key presses or releases an evdev key code.
type Key struct {
	Code  uint32 `yaml:"code"`
	State string `yaml:"state"` // pressed or released
}

type Modifiers struct {
	Depressed uint32 `yaml:"depressed"`
	Latched   uint32 `yaml:"latched"`
	Locked    uint32 `yaml:"locked"`
	Group     uint32 `yaml:"group"`
}

// Touch is a full touch event on one surface.
type Touch struct {
	Surface string       `yaml:"surface"`
	Type    string       `yaml:"type"` // begin, update or end
	Points  []TouchPoint `yaml:"points"`
}

type TouchPoint struct {
	ID    int     `yaml:"id"`
	State string  `yaml:"state"` // pressed, moved, stationary or released
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
}

// SetCursor sends wl_pointer.set_cursor from the client's first pointer.
// Serial "enter" (the default) uses the last pointer enter serial. Object
// names a raw object id instead of a surface.
type SetCursor struct {
	Client   string `yaml:"client"`
	Surface  string `yaml:"surface"` // empty hides the cursor
	Object   uint32 `yaml:"object,omitempty"`
	HotspotX int32  `yaml:"hotspot_x"`
	HotspotY int32  `yaml:"hotspot_y"`
	Serial   string `yaml:"serial,omitempty"`
}

// Bind adds (or releases) one device binding for a client.
type Bind struct {
	Client string `yaml:"client"`
	Device string `yaml:"device"` // pointer, keyboard or touch
}

// Expectation checks the events recorded since the previous expectation.
type Expectation struct {
	Client    string `yaml:"client,omitempty"`
	Interface string `yaml:"interface"`
	Event     string `yaml:"event,omitempty"`
	Count     int    `yaml:"count"`
}

// Load parses a scenario and checks it for structural errors.
func Load(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty scenario")
		}
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads a scenario from path.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Validate checks names and that every step has exactly one action.
func (sc *Scenario) Validate() error {
	clients := make(map[string]bool)
	for _, c := range sc.Clients {
		if c.Name == "" {
			return fmt.Errorf("client without a name")
		}
		if clients[c.Name] {
			return fmt.Errorf("duplicate client %q", c.Name)
		}
		clients[c.Name] = true

		surfaces := make(map[string]bool)
		for _, s := range c.Surfaces {
			if s.Name == "" || strings.Contains(s.Name, "/") {
				return fmt.Errorf("client %q: invalid surface name %q", c.Name, s.Name)
			}
			if surfaces[s.Name] {
				return fmt.Errorf("client %q: duplicate surface %q", c.Name, s.Name)
			}
			surfaces[s.Name] = true
		}
	}

	for i, step := range sc.Steps {
		if n := step.actions(); n != 1 {
			return fmt.Errorf("step %d: expected exactly one action, got %d", i+1, n)
		}
	}
	return nil
}

func (s *Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Move != nil,
		s.Press != "",
		s.Release != "",
		s.Wheel != nil,
		s.Key != nil,
		s.Modifiers != nil,
		s.KeyboardFocus != nil,
		s.Touch != nil,
		s.TouchCancel != "",
		s.SetCursor != nil,
		s.DestroySurface != "",
		s.Disconnect != "",
		s.Bind != nil,
		s.ReleaseDevice != nil,
		s.Exclusive != nil,
		s.Expect != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Kind names the step's action.
func (s *Step) Kind() string {
	switch {
	case s.Move != nil:
		return "move"
	case s.Press != "":
		return "press"
	case s.Release != "":
		return "release"
	case s.Wheel != nil:
		return "wheel"
	case s.Key != nil:
		return "key"
	case s.Modifiers != nil:
		return "modifiers"
	case s.KeyboardFocus != nil:
		return "keyboard_focus"
	case s.Touch != nil:
		return "touch"
	case s.TouchCancel != "":
		return "touch_cancel"
	case s.SetCursor != nil:
		return "set_cursor"
	case s.DestroySurface != "":
		return "destroy_surface"
	case s.Disconnect != "":
		return "disconnect"
	case s.Bind != nil:
		return "bind"
	case s.ReleaseDevice != nil:
		return "release_device"
	case s.Exclusive != nil:
		return "exclusive"
	case s.Expect != nil:
		return "expect"
	}
	return "empty"
}

// splitRef splits "client/surface".
func splitRef(ref string) (client, surface string, err error) {
	client, surface, ok := strings.Cut(ref, "/")
	if !ok || client == "" || surface == "" {
		return "", "", fmt.Errorf("invalid surface reference %q, want client/surface", ref)
	}
	return client, surface, nil
}
