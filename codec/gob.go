package codec

import (
	"bytes"
	"encoding/gob"

	"github.com/cavemanloverboy/balancer/types"
)

// Gob encodes values with encoding/gob. Use it for payloads JSON cannot
// carry, such as NaN or infinite floats.
type Gob struct{}

var _ types.Codec = Gob{}

// Marshal gob-encodes v.
func (Gob) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal gob-decodes data into v.
func (Gob) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
