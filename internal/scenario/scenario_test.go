package scenario

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wayseat/internal/compositor"
	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/server"
)

func newServer(t *testing.T) *server.Server {
	t.Helper()
	cfg := config.DefaultConfig
	start := time.Unix(1700000000, 0)
	srv, err := server.New(&cfg, compositor.WithClock(func() time.Time { return start }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func run(t *testing.T, doc string) (*server.Server, *Result, error) {
	t.Helper()
	sc, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	srv := newServer(t)
	res, err := NewRunner(srv).Run(context.Background(), sc)
	return srv, res, err
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "empty", doc: "", wantErr: "empty scenario"},
		{name: "unknown field", doc: "name: x\nbogus: 1\n", wantErr: "bogus"},
		{name: "unnamed client", doc: "clients:\n  - pointers: 1\n", wantErr: "without a name"},
		{name: "duplicate client", doc: "clients:\n  - name: a\n  - name: a\n", wantErr: "duplicate client"},
		{
			name:    "surface name with slash",
			doc:     "clients:\n  - name: a\n    surfaces:\n      - name: b/c\n",
			wantErr: "invalid surface name",
		},
		{name: "two actions in one step", doc: "steps:\n  - press: left\n    release: left\n", wantErr: "step 1"},
		{name: "step without action", doc: "steps:\n  - {}\n", wantErr: "got 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStep_Kind(t *testing.T) {
	focus := "a/b"
	assert.Equal(t, "press", (&Step{Press: "left"}).Kind())
	assert.Equal(t, "keyboard_focus", (&Step{KeyboardFocus: &focus}).Kind())
	assert.Equal(t, "expect", (&Step{Expect: &Expectation{}}).Kind())
	assert.Equal(t, "empty", (&Step{}).Kind())
}

func TestRun_BasicsFile(t *testing.T) {
	sc, err := LoadFile("testdata/basics.yaml")
	require.NoError(t, err)

	res, err := NewRunner(newServer(t)).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, res.Passed(), res.Failures)
	assert.Equal(t, len(sc.Steps), res.Steps)
	assert.NotEmpty(t, res.Events)
}

func TestRun_CollectsFailedExpectations(t *testing.T) {
	_, res, err := run(t, `
clients:
  - name: app
steps:
  - expect: {interface: wl_seat, event: capabilities, count: 3}
  - expect: {interface: wl_seat, event: capabilities, count: 0}
`)
	require.ErrorIs(t, err, ErrExpectationsFailed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "expected 3 wl_seat.capabilities, got 1", res.Failures[0])
	assert.Equal(t, 2, res.Steps)
}

func TestRun_SetCursor(t *testing.T) {
	sc, err := Load(strings.NewReader(`
clients:
  - name: app
    pointers: 1
    surfaces:
      - {name: main, size: [50, 50]}
      - {name: cursor, size: [16, 16]}
steps:
  - move: {surface: app/main, x: 4, y: 4}
  - set_cursor: {client: app, surface: cursor, hotspot_x: 2, hotspot_y: 3}
`))
	require.NoError(t, err)

	srv := newServer(t)
	var got *compositor.Surface
	var hotspot [2]int32
	srv.Seat().OnCursorSurfaceRequested(func(surface *compositor.Surface, x, y int32, _ *compositor.Client) {
		got = surface
		hotspot = [2]int32{x, y}
	})

	_, err = NewRunner(srv).Run(context.Background(), sc)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsCursorSurface())
	assert.Equal(t, [2]int32{2, 3}, hotspot)
}

func TestRun_SetCursorOnNonSurfaceDisconnects(t *testing.T) {
	srv, res, err := run(t, `
clients:
  - name: app
    pointers: 1
steps:
  - set_cursor: {client: app, object: 2}
  - expect: {interface: wl_display, event: error, count: 1}
`)
	require.NoError(t, err, res.Failures)
	assert.Empty(t, srv.Compositor().Clients())
}

func TestRun_ReleasedPointerGetsNothing(t *testing.T) {
	_, res, err := run(t, `
clients:
  - name: app
    pointers: 1
    surfaces:
      - {name: main, size: [50, 50]}
steps:
  - release_device: {client: app, device: pointer}
  - move: {surface: app/main, x: 1, y: 1}
  - expect: {interface: wl_pointer, count: 0}
`)
	require.NoError(t, err, res.Failures)
}

func TestRun_LateBindReplaysEnter(t *testing.T) {
	_, res, err := run(t, `
clients:
  - name: app
    pointers: 1
    surfaces:
      - {name: main, size: [50, 50]}
steps:
  - move: {surface: app/main, x: 1, y: 1}
  - expect: {interface: wl_pointer, event: enter, count: 1}
  - bind: {client: app, device: pointer}
  - expect: {interface: wl_pointer, event: enter, count: 1}
`)
	require.NoError(t, err, res.Failures)
}

func TestRun_StepErrors(t *testing.T) {
	tests := []struct {
		name    string
		step    string
		wantErr string
	}{
		{name: "unknown client", step: "disconnect: ghost", wantErr: `unknown client "ghost"`},
		{name: "bad surface reference", step: "keyboard_focus: app", wantErr: "want client/surface"},
		{name: "unknown surface", step: "destroy_surface: app/nope", wantErr: "no surface"},
		{name: "unknown button", step: "press: thumb", wantErr: "unknown mouse button"},
		{name: "unknown device", step: "bind: {client: app, device: tablet}", wantErr: "unknown device"},
		{name: "bad serial", step: "set_cursor: {client: app, serial: soon}", wantErr: "invalid serial"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, "clients:\n  - name: app\n    pointers: 1\nsteps:\n  - "+tt.step+"\n")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "step 1")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	sc, err := Load(strings.NewReader("steps:\n  - press: left\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewRunner(newServer(t)).Run(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Steps)
}
