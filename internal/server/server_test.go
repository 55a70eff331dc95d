package server

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
)

func TestSeatOptions(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Seat.Capabilities = []string{"Pointer", "touch"}
	cfg.Pointer.EdgeEpsilon = 0.1
	cfg.Keyboard.RepeatRate = 30

	opts := SeatOptions(&cfg)

	assert.Equal(t, seat.CapabilityPointer|seat.CapabilityTouch, opts.Capabilities)
	assert.Equal(t, 0.1, opts.EdgeEpsilon)
	assert.Equal(t, int32(30), opts.RepeatRate)
	assert.Equal(t, "seat0", opts.Name)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Seat.Version = 9

	_, err := New(&cfg)
	assert.Error(t, err)
}

func TestServer_BindSeatCapsVersion(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Seat.Version = 1
	srv, err := New(&cfg)
	require.NoError(t, err)

	client := srv.ConnectClient("app")
	r, err := srv.BindSeat(client, 2, 4)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), r.Version())
	events := srv.Recorder().Select(wire.SeatInterface)
	require.Len(t, events, 1, "wl_seat.name needs version 2")
	assert.Equal(t, "capabilities", events[0].Name)
}

func TestServer_WireDump(t *testing.T) {
	cfg := config.DefaultConfig
	srv, err := New(&cfg)
	require.NoError(t, err)

	var dump bytes.Buffer
	srv.SetWireDump(&dump)
	client := srv.ConnectClient("app")
	_, err = srv.BindSeat(client, 2, 4)
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	assert.True(t, client.Destroyed())

	m, err := wire.ReadMessage(&dump)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), m.Sender)
	assert.Equal(t, uint16(wire.SeatEventCapabilities), m.Opcode)
	assert.Equal(t, wire.NewBuilder().Uint(7).Bytes(), m.Args)
}

func TestServer_OutputIsShared(t *testing.T) {
	cfg := config.DefaultConfig
	srv, err := New(&cfg)
	require.NoError(t, err)

	assert.Same(t, srv.Output("DP-1"), srv.Output("DP-1"))
	assert.NotSame(t, srv.Output("DP-1"), srv.Output("DP-2"))
}
