// Package codec defines the serialization contract used for store
// payloads, timer snapshots, and stream frames. Two implementations are
// provided: JSON (default) and MessagePack.
package codec

// Codec serializes values to and from bytes.
type Codec interface {
	// Marshal serializes a value to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into the value pointed to by v.
	Unmarshal(data []byte, v any) error

	// Name returns the codec identifier (e.g., "json", "msgpack").
	Name() string
}

// Codec name constants for format negotiation.
const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// Lookup returns a codec by name. Unknown or empty names default to JSON.
func Lookup(name string) Codec {
	switch name {
	case NameMsgpack:
		return Msgpack{}
	case NameJSON, "":
		return JSON{}
	default:
		return JSON{}
	}
}
