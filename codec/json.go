package codec

import (
	"encoding/json"

	"github.com/cavemanloverboy/balancer/types"
)

// JSON encodes values with encoding/json.
type JSON struct{}

var _ types.Codec = JSON{}

// Marshal encodes v as JSON.
func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
