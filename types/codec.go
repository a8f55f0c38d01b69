package types

// Codec serializes result chunks for transport over a ProcessGroup's
// collective operations, which move raw bytes.
//
// Every member of a group must use the same codec; the library does not
// negotiate or validate codec agreement across ranks. Implementations live
// in the codec subpackage (JSON by default, gob for types JSON cannot
// represent).
type Codec interface {
	// Marshal encodes v into a byte slice.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into the value pointed to by v.
	Unmarshal(data []byte, v any) error
}
