// Package jsonx is the JSON codec shared by persisted state, payload stores
// and the CLI. It is encoding/json compatible.
package jsonx

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return api.Unmarshal(data, v)
}

// NewLineEncoder writes one JSON document per line to w.
func NewLineEncoder(w io.Writer) *jsoniter.Encoder {
	return api.NewEncoder(w)
}
