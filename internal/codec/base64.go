// Package codec provides the bidirectional base64 serialization used to
// carry byte blobs (measured-boot logs, revocation signatures) across
// the JSON wire format.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncodeBytes encodes raw bytes as standard, padded base64 (RFC 4648).
func EncodeBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBytes decodes standard, padded base64 back into raw bytes.
func DecodeBytes(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return b, nil
}

// EncodeOptionalBytes encodes b as base64, or returns nil (serialized as
// JSON null) when b is absent.
func EncodeOptionalBytes(b []byte) *string {
	if b == nil {
		return nil
	}
	s := EncodeBytes(b)
	return &s
}

// DecodeOptionalBytes decodes a JSON value that is either a base64 string
// or null into an optional byte slice.
func DecodeOptionalBytes(raw json.RawMessage) ([]byte, error) {
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode optional base64: %w", err)
	}
	return DecodeBytes(s)
}
