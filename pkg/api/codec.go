// Package api holds the request and response messages of the subsplit
// Connect services. Messages are plain structs carried as JSON; money is
// always a decimal string such as "12.50".
package api

import (
	"encoding/json"
	"fmt"
)

// CodecName is the Connect codec name, sent as application/json.
const CodecName = "json"

// Codec marshals messages with encoding/json. Register it on both handlers
// and clients with connect.WithCodec.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return CodecName }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

// Unmarshal implements connect.Codec. An empty body leaves msg at its zero
// value.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
