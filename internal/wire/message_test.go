package wire

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedConversion(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int32
	}{
		{"zero", 0, 0},
		{"integer", 10, 10 << 8},
		{"half", 0.5, 128},
		{"negative", -2, -2 << 8},
		{"fraction", 99.5, 99<<8 | 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FixedFromFloat(tt.in)
			assert.Equal(t, tt.want, int32(f))
			assert.InDelta(t, tt.in, f.Float64(), 1.0/256)
		})
	}

	assert.Equal(t, int32(-10<<8), int32(FixedFromInt(-10)))
}

func TestMessage_RoundTripHeader(t *testing.T) {
	args := NewBuilder().Uint(7).Object(3).Fixed(FixedFromInt(10)).Fixed(FixedFromFloat(20.5)).Bytes()
	msg := Message{Sender: 0x10, Opcode: PointerEventEnter, Args: args}

	data, err := msg.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, HeaderSize+16)

	// header: sender, then size<<16 | opcode
	assert.Equal(t, []byte{0x10, 0, 0, 0}, data[:4])
	assert.Equal(t, []byte{0, 0, 24, 0}, data[4:8])

	got, err := ReadMessage(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, msg.Sender, got.Sender)
	assert.Equal(t, msg.Opcode, got.Opcode)

	values, err := DecodeArgs("uoff", got.Args)
	require.NoError(t, err)
	assert.Equal(t, []any{uint32(7), uint32(3), 10.0, 20.5}, values)
}

func TestBuilder_StringAndArrayPadding(t *testing.T) {
	args := NewBuilder().String("seat0").Array([]byte{1, 2, 3}).Int(-1).Bytes()

	// "seat0\0" is 6 bytes, padded to 8; array of 3 padded to 4
	assert.Len(t, args, 4+8+4+4+4)

	d := NewDecoder(args)
	assert.Equal(t, "seat0", d.String())
	assert.Equal(t, []byte{1, 2, 3}, d.Array())
	assert.Equal(t, int32(-1), d.Int())
	assert.NoError(t, d.Err())
	assert.Equal(t, 0, d.Remaining())
}

func TestDecoder_ShortInputSticks(t *testing.T) {
	d := NewDecoder([]byte{1, 0})
	assert.Equal(t, uint32(0), d.Uint())
	assert.ErrorIs(t, d.Err(), ErrShortMessage)

	// later reads keep the first error
	assert.Equal(t, "", d.String())
	assert.ErrorIs(t, d.Err(), ErrShortMessage)

	_, err := DecodeArgs("uu", NewBuilder().Uint(1).Bytes())
	assert.ErrorIs(t, err, ErrShortMessage)
}

func TestMessage_TooLarge(t *testing.T) {
	msg := Message{Sender: 1, Args: make([]byte, MaxMessageSize)}
	_, err := msg.MarshalBinary()
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestReadMessage_BadSize(t *testing.T) {
	data := NewBuilder().Uint(1).Uint(4 << 16).Bytes()
	_, err := ReadMessage(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrShortMessage)
}

func TestLookup(t *testing.T) {
	pointer, err := Lookup(PointerInterface)
	require.NoError(t, err)

	enter, ok := pointer.Event(PointerEventEnter)
	require.True(t, ok)
	assert.Equal(t, "enter", enter.Name)

	release, ok := pointer.Request(PointerRequestRelease)
	require.True(t, ok)
	assert.Equal(t, uint32(3), release.Since)

	_, ok = pointer.Event(42)
	assert.False(t, ok)

	_, err = Lookup("xdg_wm_base")
	assert.ErrorIs(t, err, ErrUnknownInterface)
}

func TestStreamSink(t *testing.T) {
	var out bytes.Buffer
	sink := NewStreamSink(&out, 0, 64)

	msg := Message{Sender: 5, Opcode: TouchEventFrame}
	require.NoError(t, sink.WriteMessage(msg))
	assert.Equal(t, 0, out.Len(), "messages stay buffered until flushed")

	require.NoError(t, sink.Flush())
	got, err := ReadMessage(&out)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), got.Sender)
	assert.Equal(t, uint16(TouchEventFrame), got.Opcode)
}

func TestBufferedWriter_FlushesWhenFull(t *testing.T) {
	var out bytes.Buffer
	bw := NewBufferedWriter(&out, 0, 8)

	_, err := bw.Write([]byte("1234"))
	require.NoError(t, err)
	_, err = bw.Write([]byte("56789"))
	require.NoError(t, err)

	assert.Equal(t, "1234", out.String())
	assert.Equal(t, 5, bw.Buffered())

	require.NoError(t, bw.Close())
	assert.Equal(t, "123456789", out.String())
}

func TestBufferedWriter_DelayedFlush(t *testing.T) {
	out := &lockedBuffer{}
	bw := NewBufferedWriter(out, 5*time.Millisecond, 1024)
	defer bw.Close()

	_, err := bw.Write([]byte("frame"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return out.String() == "frame" }, time.Second, time.Millisecond)
}

func TestBufferedWriter_BackgroundFlushErrorReachesClose(t *testing.T) {
	broken := errors.New("pipe closed")
	out := &failingWriter{err: broken}
	bw := NewBufferedWriter(out, 5*time.Millisecond, 1024)

	_, err := bw.Write([]byte("frame"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return out.Calls() > 0 }, time.Second, time.Millisecond)

	// the loop survives the failure and keeps flushing
	_, err = bw.Write([]byte("again"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return out.Calls() > 1 }, time.Second, time.Millisecond)

	assert.ErrorIs(t, bw.Close(), broken)
}

type failingWriter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return 0, w.err
}

func (w *failingWriter) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
