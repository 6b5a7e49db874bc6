// Package api holds the request and response messages of the groupsplit
// RPC services. Messages are plain Go structs carried as JSON.
package api

import (
	"encoding/json"
	"fmt"
)

// CodecName is registered with Connect in place of the protobuf JSON codec.
const CodecName = "json"

// JSONCodec is a connect.Codec that marshals messages with encoding/json.
type JSONCodec struct{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return CodecName }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("decode %T: %w", msg, err)
	}
	return nil
}
