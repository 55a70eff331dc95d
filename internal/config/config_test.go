package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withConfigFile points Init at a temporary file holding contents.
func withConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wayseat.toml")
	if contents != "" {
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	viper.Reset()
	SetConfigPath(path)
	t.Cleanup(func() {
		SetConfigPath("")
		Set(nil)
		viper.Reset()
	})
	return path
}

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(func() { Set(nil) })
		t.Chdir(t.TempDir())

		require.NoError(t, Init())

		config := Get()
		require.NotNil(t, config)
		assert.Equal(t, "seat0", config.Seat.Name)
		assert.Equal(t, uint32(4), config.Seat.Version)
		assert.Equal(t, 0.5, config.Pointer.EdgeEpsilon)
		assert.Equal(t, int32(25), config.Keyboard.RepeatRate)
		assert.True(t, config.Seat.HasCapability("Touch"))
	})

	t.Run("partial file merges with defaults", func(t *testing.T) {
		withConfigFile(t, `[seat]
name = "kiosk"
capabilities = ["touch"]

[pointer]
validate_cursor_serial = true
`)
		require.NoError(t, Init())

		config := Get()
		assert.Equal(t, "kiosk", config.Seat.Name)
		assert.Equal(t, []string{"touch"}, config.Seat.Capabilities)
		assert.False(t, config.Seat.HasCapability("pointer"))
		assert.True(t, config.Pointer.ValidateCursorSerial)
		assert.Equal(t, 0.5, config.Pointer.EdgeEpsilon)
		assert.Equal(t, int32(600), config.Keyboard.RepeatDelay)
	})

	t.Run("handles invalid TOML", func(t *testing.T) {
		withConfigFile(t, `[seat
name = "broken"`)

		err := Init()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		withConfigFile(t, `[seat]
capabilities = ["pointer", "tablet"]
`)
		err := Init()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tablet")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "seat version too high", mutate: func(c *Config) { c.Seat.Version = 5 }, wantErr: "seat.version"},
		{name: "seat version zero", mutate: func(c *Config) { c.Seat.Version = 0 }, wantErr: "seat.version"},
		{name: "epsilon out of range", mutate: func(c *Config) { c.Pointer.EdgeEpsilon = 1 }, wantErr: "edge_epsilon"},
		{name: "negative repeat", mutate: func(c *Config) { c.Keyboard.RepeatRate = -1 }, wantErr: "repeat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := withConfigFile(t, "")
	require.NoError(t, Init())

	updated := *Get()
	updated.Seat.Name = "seat1"
	updated.Pointer.EdgeEpsilon = 0.25
	updated.Inspector.Whitelist = []string{"SHA256:abc"}
	require.NoError(t, Update(&updated))
	require.FileExists(t, path)

	viper.Reset()
	Set(nil)
	require.NoError(t, Init())

	config := Get()
	assert.Equal(t, "seat1", config.Seat.Name)
	assert.Equal(t, 0.25, config.Pointer.EdgeEpsilon)
	assert.True(t, IsInspectorKeyWhitelisted("SHA256:abc"))
}

func TestInspectorWhitelist(t *testing.T) {
	withConfigFile(t, "")
	require.NoError(t, Init())

	require.NoError(t, AddInspectorKey("SHA256:one"))
	assert.Error(t, AddInspectorKey("SHA256:one"))
	assert.True(t, IsInspectorKeyWhitelisted("SHA256:one"))

	require.NoError(t, RemoveInspectorKey("SHA256:one"))
	assert.False(t, IsInspectorKeyWhitelisted("SHA256:one"))
	assert.Error(t, RemoveInspectorKey("SHA256:one"))
}

func TestConfigPathResolution(t *testing.T) {
	viper.Reset()

	t.Run("override wins", func(t *testing.T) {
		SetConfigPath("/tmp/custom.toml")
		t.Cleanup(func() { SetConfigPath("") })
		assert.Equal(t, "/tmp/custom.toml", GetConfigPath())
	})

	t.Run("running with sudo", func(t *testing.T) {
		t.Setenv("SUDO_USER", "testuser")
		assert.Equal(t, "/etc/wayseat/wayseat.toml", GetConfigPath())
	})

	t.Run("normal user", func(t *testing.T) {
		if os.Getuid() == 0 {
			t.Skip("root always resolves to the system config")
		}
		t.Setenv("SUDO_USER", "")
		t.Setenv("HOME", "/home/testuser")
		assert.Equal(t, "/home/testuser/.config/wayseat/wayseat.toml", GetConfigPath())
	})
}
