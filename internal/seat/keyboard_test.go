package seat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wayseat/internal/wire"
)

func TestKeyboard_FocusPairsLeaveAndEnter(t *testing.T) {
	h := newHarness(t)
	c := h.client("app")
	a := h.surface(c, 10)
	b := h.surface(c, 11)
	h.bindKeyboard(c, 30)
	h.bindKeyboard(c, 31)
	k := h.seat.Keyboard()
	h.rec.Reset()

	k.SetFocus(a)
	k.SetFocus(a)
	k.SetFocus(b)
	k.SetFocus(nil)

	assert.Equal(t, []string{
		"enter", "modifiers", "enter", "modifiers",
		"leave", "leave",
		"enter", "modifiers", "enter", "modifiers",
		"leave", "leave",
	}, names(h.events(wire.KeyboardInterface)))
	assert.Nil(t, k.Focus())
}

func TestKeyboard_EnterCarriesPressedKeys(t *testing.T) {
	h := newHarness(t)
	c := h.client("app")
	a := h.surface(c, 10)
	b := h.surface(c, 11)
	h.bindKeyboard(c, 30)
	k := h.seat.Keyboard()

	k.SetFocus(a)
	k.SendKeyPressEvent(29)
	k.SendKeyPressEvent(46)
	k.SendKeyPressEvent(29)
	h.rec.Reset()

	k.SetFocus(b)

	enters := h.events(wire.KeyboardInterface, "enter")
	require.Len(t, enters, 1)
	assert.Equal(t, []byte{29, 0, 0, 0, 46, 0, 0, 0}, enters[0].Args[2])
	assert.Equal(t, []uint32{29, 46}, k.PressedKeys())
}

func TestKeyboard_KeyEvents(t *testing.T) {
	h := newHarness(t)
	c := h.client("app")
	a := h.surface(c, 10)
	h.bindKeyboard(c, 30)
	k := h.seat.Keyboard()

	assert.Zero(t, k.SendKeyPressEvent(30), "no focus")
	assert.Equal(t, []uint32{30}, k.PressedKeys())
	assert.Zero(t, k.SendKeyReleaseEvent(30))
	assert.Empty(t, k.PressedKeys())

	k.SetFocus(a)
	h.rec.Reset()
	press := k.SendKeyPressEvent(30)
	release := k.SendKeyReleaseEvent(30)
	require.NotZero(t, press)
	assert.Equal(t, press+1, release)

	keys := h.events(wire.KeyboardInterface, "key")
	require.Len(t, keys, 2)
	assert.Equal(t, []any{press, uint32(0), uint32(30), uint32(wire.KeyboardKeyStatePressed)}, keys[0].Args)
	assert.Equal(t, []any{release, uint32(0), uint32(30), uint32(wire.KeyboardKeyStateReleased)}, keys[1].Args)
}

func TestKeyboard_AuthorizationGating(t *testing.T) {
	h := newHarness(t)
	c := h.client("app")
	other := h.client("locker")
	a := h.surface(c, 10)
	h.bindKeyboard(c, 30)
	k := h.seat.Keyboard()
	k.SetFocus(a)
	h.rec.Reset()

	h.seat.SetExclusiveInputClient(other)
	assert.Zero(t, k.SendKeyPressEvent(30))
	assert.Empty(t, k.PressedKeys())
	assert.Empty(t, h.events(wire.KeyboardInterface))
}

func TestKeyboard_ModifierUpdates(t *testing.T) {
	h := newHarness(t)
	c := h.client("app")
	a := h.surface(c, 10)
	h.bindKeyboard(c, 30)
	k := h.seat.Keyboard()
	k.SetFocus(a)
	h.rec.Reset()

	mods := Modifiers{Depressed: 4, Locked: 2, Group: 1}
	k.UpdateModifierState(mods)
	k.UpdateModifierState(mods)

	events := h.events(wire.KeyboardInterface, "modifiers")
	require.Len(t, events, 1)
	assert.Equal(t, []any{h.comp.Serial(), uint32(4), uint32(0), uint32(2), uint32(1)}, events[0].Args)
	assert.Equal(t, mods, k.Modifiers())
}

func TestKeyboard_LateBindAndRepeatInfo(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.RepeatRate = 40
		o.RepeatDelay = 250
	})
	c := h.client("app")
	a := h.surface(c, 10)
	h.bindKeyboard(c, 30)
	k := h.seat.Keyboard()
	k.SetFocus(a)
	serial := k.FocusSerial()
	h.rec.Reset()

	h.bindKeyboard(c, 31)

	events := h.events(wire.KeyboardInterface)
	assert.Equal(t, []string{"repeat_info", "enter", "modifiers"}, names(events))
	assert.Equal(t, []any{int32(40), int32(250)}, events[0].Args)
	assert.Equal(t, serial, events[1].Args[0])
	for _, ev := range events {
		assert.Equal(t, uint32(31), ev.Object)
	}

	// Version 3 keyboards predate repeat_info.
	h.rec.Reset()
	_, err := k.AddClient(h.client("old"), 30, 3)
	require.NoError(t, err)
	assert.Empty(t, h.events(wire.KeyboardInterface))
}

func TestKeyboard_FocusedSurfaceDestroyed(t *testing.T) {
	h := newHarness(t)
	c := h.client("app")
	a := h.surface(c, 10)
	b := h.surface(c, 11)
	h.bindKeyboard(c, 30)
	k := h.seat.Keyboard()
	k.SetFocus(a)
	h.rec.Reset()

	a.Destroy()
	assert.Nil(t, k.Focus())

	k.SetFocus(b)
	assert.Equal(t, []string{"enter", "modifiers"}, names(h.events(wire.KeyboardInterface)))
}
