// Package wire encodes and decodes Wayland wire-protocol messages.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bnema/wlturbo"
)

const (
	// HeaderSize is the size of the sender id plus the size/opcode word.
	HeaderSize = 8
	// MaxMessageSize is the largest message the 16-bit size field can carry.
	MaxMessageSize = 0xffff
)

var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrShortMessage    = errors.New("short message")
)

// Wayland sockets are local, so the host byte order is the wire byte order.
// Every supported target is little-endian.
var byteOrder = binary.LittleEndian

// Fixed is a signed 24.8 fixed-point number.
type Fixed = wlturbo.Fixed

// FixedFromFloat converts surface coordinates to wire fixed point.
func FixedFromFloat(v float64) Fixed {
	return wlturbo.NewFixed(v)
}

// FixedFromInt converts an integer to wire fixed point.
func FixedFromInt(v int) Fixed {
	return Fixed(int32(v) << 8)
}

// Message is one request or event.
type Message struct {
	Sender uint32
	// Interface names the sender's interface. It never goes on the wire;
	// sinks use it to describe what they see.
	Interface string
	Opcode    uint16
	Args      []byte
	FDs       []int
}

// Size returns the encoded size including the header.
func (m Message) Size() int {
	return HeaderSize + len(m.Args)
}

// AppendBinary appends the encoded message to b.
func (m Message) AppendBinary(b []byte) ([]byte, error) {
	size := m.Size()
	if size > MaxMessageSize {
		return b, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}
	b = byteOrder.AppendUint32(b, m.Sender)
	b = byteOrder.AppendUint32(b, uint32(size)<<16|uint32(m.Opcode))
	return append(b, m.Args...), nil
}

// MarshalBinary encodes the message.
func (m Message) MarshalBinary() ([]byte, error) {
	return m.AppendBinary(make([]byte, 0, m.Size()))
}

// ReadMessage reads a single framed message from r.
func ReadMessage(r io.Reader) (Message, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, err
	}

	word := byteOrder.Uint32(header[4:])
	size := int(word >> 16)
	if size < HeaderSize {
		return Message{}, fmt.Errorf("%w: size field %d", ErrShortMessage, size)
	}

	m := Message{
		Sender: byteOrder.Uint32(header[:4]),
		Opcode: uint16(word),
		Args:   make([]byte, size-HeaderSize),
	}
	if _, err := io.ReadFull(r, m.Args); err != nil {
		return Message{}, fmt.Errorf("failed to read message body: %w", err)
	}
	return m, nil
}

// Builder assembles message arguments.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty argument builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Uint(v uint32) *Builder {
	b.buf = byteOrder.AppendUint32(b.buf, v)
	return b
}

func (b *Builder) Int(v int32) *Builder {
	return b.Uint(uint32(v))
}

func (b *Builder) Fixed(v Fixed) *Builder {
	return b.Int(int32(v))
}

// Object appends an object id; 0 is the null object.
func (b *Builder) Object(id uint32) *Builder {
	return b.Uint(id)
}

func (b *Builder) NewID(id uint32) *Builder {
	return b.Uint(id)
}

// String appends a NUL-terminated, length-prefixed, padded string.
func (b *Builder) String(s string) *Builder {
	b.Uint(uint32(len(s) + 1))
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
	return b.pad(len(s) + 1)
}

// Array appends a length-prefixed, padded byte array.
func (b *Builder) Array(data []byte) *Builder {
	b.Uint(uint32(len(data)))
	b.buf = append(b.buf, data...)
	return b.pad(len(data))
}

func (b *Builder) pad(n int) *Builder {
	for i := 0; i < (4-n%4)%4; i++ {
		b.buf = append(b.buf, 0)
	}
	return b
}

// Bytes returns the encoded arguments.
func (b *Builder) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.buf
}

// Decoder reads message arguments. The first failure sticks: later reads
// return zero values and Err reports the original problem.
type Decoder struct {
	data []byte
	off  int
	err  error
}

// NewDecoder returns a decoder over encoded arguments.
func NewDecoder(args []byte) *Decoder {
	return &Decoder{data: args}
}

// Err returns the first decoding error.
func (d *Decoder) Err() error {
	return d.err
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

func (d *Decoder) Uint() uint32 {
	if d.err != nil {
		return 0
	}
	if d.Remaining() < 4 {
		d.err = fmt.Errorf("%w: want 4 bytes at offset %d, have %d", ErrShortMessage, d.off, d.Remaining())
		return 0
	}
	v := byteOrder.Uint32(d.data[d.off:])
	d.off += 4
	return v
}

func (d *Decoder) Int() int32 {
	return int32(d.Uint())
}

func (d *Decoder) Fixed() Fixed {
	return Fixed(d.Int())
}

func (d *Decoder) Object() uint32 {
	return d.Uint()
}

func (d *Decoder) NewID() uint32 {
	return d.Uint()
}

func (d *Decoder) String() string {
	n := int(d.Uint())
	if d.err != nil || n == 0 {
		return ""
	}
	raw := d.take(n)
	if raw == nil {
		return ""
	}
	return string(raw[:n-1])
}

func (d *Decoder) Array() []byte {
	n := int(d.Uint())
	if d.err != nil || n == 0 {
		return nil
	}
	raw := d.take(n)
	if raw == nil {
		return nil
	}
	return append([]byte(nil), raw...)
}

// take consumes n bytes plus padding.
func (d *Decoder) take(n int) []byte {
	padded := n + (4-n%4)%4
	if n < 0 || d.Remaining() < padded {
		d.err = fmt.Errorf("%w: want %d bytes at offset %d, have %d", ErrShortMessage, padded, d.off, d.Remaining())
		return nil
	}
	raw := d.data[d.off : d.off+n]
	d.off += padded
	return raw
}

// DecodeArgs decodes arguments generically using a libwayland signature.
// Values are int32 (i), uint32 (u, o, n), float64 (f), string (s),
// []byte (a). File descriptors (h) travel out of band and decode as -1.
func DecodeArgs(signature string, args []byte) ([]any, error) {
	d := NewDecoder(args)
	var out []any
	for _, c := range signature {
		switch c {
		case 'i':
			out = append(out, d.Int())
		case 'u', 'o', 'n':
			out = append(out, d.Uint())
		case 'f':
			out = append(out, d.Fixed().Float64())
		case 's':
			out = append(out, d.String())
		case 'a':
			out = append(out, d.Array())
		case 'h':
			out = append(out, -1)
		case '?':
		default:
			if c >= '0' && c <= '9' {
				continue
			}
			return nil, fmt.Errorf("unknown signature character %q", c)
		}
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
