package trace

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxRecordSize bounds a single record; a wire message is at most 64KiB.
const maxRecordSize = 1 << 20

var ErrRecordTooLarge = errors.New("trace record too large")

// Write stores events as length-prefixed protobuf records.
func Write(w io.Writer, events []Event) error {
	for _, ev := range events {
		if err := writeRecord(w, ev); err != nil {
			return fmt.Errorf("failed to write event %d: %w", ev.Seq, err)
		}
	}
	return nil
}

// writeRecord writes one event with a 4-byte big-endian length prefix
func writeRecord(w io.Writer, ev Event) error {
	record, err := toStruct(ev)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	length := len(data)
	lengthBuf := []byte{
		byte(length >> 24),
		byte(length >> 16),
		byte(length >> 8),
		byte(length),
	}
	if _, err := w.Write(lengthBuf); err != nil {
		return fmt.Errorf("failed to write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}

// Read loads every record from r until EOF.
func Read(r io.Reader) ([]Event, error) {
	var events []Event
	for {
		var lengthBuf [4]byte
		if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, fmt.Errorf("failed to read length: %w", err)
		}

		length := int(lengthBuf[0])<<24 | int(lengthBuf[1])<<16 | int(lengthBuf[2])<<8 | int(lengthBuf[3])
		if length > maxRecordSize {
			return events, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, length)
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return events, fmt.Errorf("failed to read record: %w", err)
		}

		var record structpb.Struct
		if err := proto.Unmarshal(data, &record); err != nil {
			return events, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		ev, err := fromStruct(&record)
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

func toStruct(ev Event) (*structpb.Struct, error) {
	args := make([]any, len(ev.Args))
	for i, a := range ev.Args {
		switch v := a.(type) {
		case []byte:
			args[i] = base64.StdEncoding.EncodeToString(v)
		default:
			args[i] = v
		}
	}

	record, err := structpb.NewStruct(map[string]any{
		"seq":         ev.Seq,
		"client":      ev.Client,
		"client_name": ev.ClientName,
		"object":      ev.Object,
		"interface":   ev.Interface,
		"opcode":      uint32(ev.Opcode),
		"name":        ev.Name,
		"signature":   ev.Signature,
		"args":        args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", ev.Name, err)
	}
	return record, nil
}

func fromStruct(record *structpb.Struct) (Event, error) {
	fields := record.GetFields()
	num := func(key string) float64 { return fields[key].GetNumberValue() }
	str := func(key string) string { return fields[key].GetStringValue() }

	ev := Event{
		Seq:        uint64(num("seq")),
		Client:     uint32(num("client")),
		ClientName: str("client_name"),
		Object:     uint32(num("object")),
		Interface:  str("interface"),
		Opcode:     uint16(num("opcode")),
		Name:       str("name"),
		Signature:  str("signature"),
	}

	values := fields["args"].GetListValue().GetValues()
	kinds := argKinds(ev.Signature)
	if len(kinds) != len(values) {
		return ev, fmt.Errorf("event %s: signature %q does not match %d arguments", ev.Name, ev.Signature, len(values))
	}
	for i, v := range values {
		switch kinds[i] {
		case 'i':
			ev.Args = append(ev.Args, int32(v.GetNumberValue()))
		case 'u', 'o', 'n':
			ev.Args = append(ev.Args, uint32(v.GetNumberValue()))
		case 'f':
			ev.Args = append(ev.Args, v.GetNumberValue())
		case 's':
			ev.Args = append(ev.Args, v.GetStringValue())
		case 'a':
			data, err := base64.StdEncoding.DecodeString(v.GetStringValue())
			if err != nil {
				return ev, fmt.Errorf("event %s: bad array argument: %w", ev.Name, err)
			}
			ev.Args = append(ev.Args, data)
		case 'h':
			ev.Args = append(ev.Args, int(v.GetNumberValue()))
		}
	}
	return ev, nil
}

// argKinds strips version digits and nullability markers from a signature.
func argKinds(signature string) []rune {
	var kinds []rune
	for _, c := range signature {
		if c == '?' || (c >= '0' && c <= '9') {
			continue
		}
		kinds = append(kinds, c)
	}
	return kinds
}
