package seat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWaylandButton(t *testing.T) {
	tests := []struct {
		button MouseButton
		want   uint32
	}{
		{ButtonLeft, 0x110},
		{ButtonRight, 0x111},
		{ButtonMiddle, 0x112},
		{ButtonBack, 0x113},
		{ButtonForward, 0x114},
		{ButtonExtra3, 0x115},
		{ButtonExtra13, 0x11f},
		{ButtonNone, 0x11f},
		{MouseButton(99), 0x11f},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToWaylandButton(tt.button), "button %d", tt.button)
	}
}

func TestParseMouseButton(t *testing.T) {
	tests := []struct {
		in      string
		want    MouseButton
		wantErr bool
	}{
		{in: "left", want: ButtonLeft},
		{in: " Right ", want: ButtonRight},
		{in: "back", want: ButtonBack},
		{in: "extra1", want: ButtonBack},
		{in: "extra2", want: ButtonForward},
		{in: "extra13", want: ButtonExtra13},
		{in: "extra14", wantErr: true},
		{in: "thumb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMouseButton(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOrientation(t *testing.T) {
	o, err := ParseOrientation("horizontal")
	require.NoError(t, err)
	assert.Equal(t, Horizontal, o)

	o, err = ParseOrientation("")
	require.NoError(t, err)
	assert.Equal(t, Vertical, o)

	_, err = ParseOrientation("diagonal")
	assert.Error(t, err)
}
