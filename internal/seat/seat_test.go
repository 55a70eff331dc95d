package seat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wayseat/internal/compositor"
	"github.com/bnema/wayseat/internal/geom"
	"github.com/bnema/wayseat/internal/trace"
	"github.com/bnema/wayseat/internal/wire"
)

// harness wires a compositor, a seat and a recorder that captures every
// event sent to any client.
type harness struct {
	t    *testing.T
	comp *compositor.Compositor
	seat *Seat
	rec  *trace.Recorder
	now  time.Time
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{t: t, rec: trace.NewRecorder(0), now: time.Unix(1_700_000_000, 0)}
	h.comp = compositor.New(compositor.WithClock(func() time.Time { return h.now }))
	opts := DefaultOptions()
	for _, m := range mutate {
		m(&opts)
	}
	h.seat = New(h.comp, opts)
	return h
}

func (h *harness) client(name string) *compositor.Client {
	c := h.comp.CreateClient(name, nil)
	c.SetSink(h.rec.Sink(c.ID(), name, nil))
	return c
}

func (h *harness) surface(c *compositor.Client, id uint32) *compositor.Surface {
	h.t.Helper()
	s, err := compositor.NewSurface(c, id, 4)
	require.NoError(h.t, err)
	s.SetDestinationSize(geom.Sz(100, 100))
	return s
}

func (h *harness) view(s *compositor.Surface) *compositor.View {
	return compositor.NewView(s, &compositor.Output{Name: "DP-1"})
}

func (h *harness) bindPointer(c *compositor.Client, id uint32) *compositor.Resource {
	h.t.Helper()
	r, err := h.seat.Pointer().AddClient(c, id, 4)
	require.NoError(h.t, err)
	return r
}

func (h *harness) bindKeyboard(c *compositor.Client, id uint32) *compositor.Resource {
	h.t.Helper()
	r, err := h.seat.Keyboard().AddClient(c, id, 4)
	require.NoError(h.t, err)
	return r
}

func (h *harness) bindTouch(c *compositor.Client, id uint32) *compositor.Resource {
	h.t.Helper()
	r, err := h.seat.Touch().AddClient(c, id, 4)
	require.NoError(h.t, err)
	return r
}

func (h *harness) events(iface string, names ...string) []trace.Event {
	return h.rec.Select(iface, names...)
}

func (h *harness) dispatch(c *compositor.Client, sender uint32, opcode uint16, args *wire.Builder) error {
	return c.Dispatch(wire.Message{Sender: sender, Opcode: opcode, Args: args.Bytes()})
}

func names(events []trace.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Name
	}
	return out
}

func TestSeat_BindAnnouncesCapabilitiesAndName(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Name = "seat-test"
		o.Capabilities = CapabilityPointer | CapabilityKeyboard
	})
	c := h.client("app")

	_, err := h.seat.Bind(c, 5, 4)
	require.NoError(t, err)

	events := h.events(wire.SeatInterface)
	require.Len(t, events, 2)
	assert.Equal(t, "capabilities", events[0].Name)
	assert.Equal(t, []any{uint32(3)}, events[0].Args)
	assert.Equal(t, "name", events[1].Name)
	assert.Equal(t, []any{"seat-test"}, events[1].Args)
}

func TestSeat_BindVersionOneSkipsName(t *testing.T) {
	h := newHarness(t)
	c := h.client("app")

	_, err := h.seat.Bind(c, 5, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"capabilities"}, names(h.events(wire.SeatInterface)))
}

func TestSeat_GetDevicesThroughDispatch(t *testing.T) {
	h := newHarness(t)
	c := h.client("app")
	_, err := h.seat.Bind(c, 5, 4)
	require.NoError(t, err)

	require.NoError(t, h.dispatch(c, 5, wire.SeatRequestGetPointer, wire.NewBuilder().NewID(6)))
	require.NoError(t, h.dispatch(c, 5, wire.SeatRequestGetKeyboard, wire.NewBuilder().NewID(7)))
	require.NoError(t, h.dispatch(c, 5, wire.SeatRequestGetTouch, wire.NewBuilder().NewID(8)))

	assert.Equal(t, wire.PointerInterface, c.Resource(6).Interface().Name)
	assert.Equal(t, wire.KeyboardInterface, c.Resource(7).Interface().Name)
	assert.Equal(t, wire.TouchInterface, c.Resource(8).Interface().Name)
	assert.Equal(t, 1, h.seat.Pointer().bindings.count(c))
	assert.Equal(t, uint32(4), c.Resource(6).Version())

	// repeat_info goes out on bind for version 4 keyboards.
	assert.Equal(t, []string{"repeat_info"}, names(h.events(wire.KeyboardInterface)))
}

func TestSeat_GetDeviceRejectsReservedIDs(t *testing.T) {
	tests := []struct {
		name string
		id   uint32
	}{
		{"null id", 0},
		{"server range", wire.ServerIDStart + 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			c := h.client("app")
			_, err := h.seat.Bind(c, 5, 4)
			require.NoError(t, err)

			err = h.dispatch(c, 5, wire.SeatRequestGetPointer, wire.NewBuilder().NewID(tt.id))

			var perr *compositor.ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, uint32(wire.DisplayErrorInvalidObject), perr.Code)
			assert.True(t, c.Destroyed())
			assert.Empty(t, h.events(wire.PointerInterface))
			assert.Len(t, h.events(wire.DisplayInterface, "error"), 1)
		})
	}
}

func TestSeat_MissingCapabilityGivesInertDevice(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Capabilities = CapabilityKeyboard })
	c := h.client("app")
	_, err := h.seat.Bind(c, 5, 4)
	require.NoError(t, err)

	require.NoError(t, h.dispatch(c, 5, wire.SeatRequestGetPointer, wire.NewBuilder().NewID(6)))
	assert.Nil(t, h.seat.Pointer())
	require.NotNil(t, c.Resource(6))
	assert.False(t, c.Destroyed())

	require.NoError(t, h.dispatch(c, 6, wire.PointerRequestRelease, wire.NewBuilder()))
	assert.Nil(t, c.Resource(6))
	assert.Len(t, h.events(wire.DisplayInterface, "delete_id"), 1)
}

func TestSeat_IsInputAllowed(t *testing.T) {
	h := newHarness(t)
	a := h.client("a")
	b := h.client("b")
	sa := h.surface(a, 10)
	sb := h.surface(b, 10)

	assert.False(t, h.seat.IsInputAllowed(nil))
	assert.True(t, h.seat.IsInputAllowed(sa))

	h.seat.SetExclusiveInputClient(a)
	assert.True(t, h.seat.IsInputAllowed(sa))
	assert.False(t, h.seat.IsInputAllowed(sb))

	h.seat.SetInputFilter(func(s *compositor.Surface) bool { return s.ID() != 10 })
	assert.False(t, h.seat.IsInputAllowed(sa))
	h.seat.SetInputFilter(nil)

	a.Destroy()
	assert.Nil(t, h.seat.ExclusiveInputClient())
	assert.True(t, h.seat.IsInputAllowed(sb))
	assert.False(t, h.seat.IsInputAllowed(sa), "destroyed surfaces never receive input")
}

func TestSeat_MouseFocusClearedWhenSurfaceDestroyed(t *testing.T) {
	h := newHarness(t)
	c := h.client("app")
	s := h.surface(c, 10)
	h.bindPointer(c, 20)

	var changes [][2]*compositor.View
	h.seat.OnMouseFocusChanged(func(newFocus, oldFocus *compositor.View) {
		changes = append(changes, [2]*compositor.View{newFocus, oldFocus})
	})

	v := h.view(s)
	h.seat.SendMouseMoveEvent(v, geom.Pt(5, 5), geom.Pt(5, 5))
	require.Equal(t, s, h.seat.Pointer().Focus())

	s.Destroy()

	assert.Nil(t, h.seat.MouseFocus())
	assert.Nil(t, h.seat.Pointer().Focus())
	assert.Empty(t, h.events(wire.PointerInterface, "leave"), "no leave for a surface the client destroyed")
	require.Len(t, changes, 2)
	assert.Equal(t, v, changes[1][1])
	assert.Nil(t, changes[1][0])
}

func TestSeat_KeyboardFocusForwarding(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Capabilities = CapabilityPointer })
	c := h.client("app")
	s := h.surface(c, 10)

	assert.False(t, h.seat.SetKeyboardFocus(s))
	assert.Nil(t, h.seat.KeyboardFocus())
	assert.Zero(t, h.seat.SendKeyPressEvent(30))
}
