package revocation

import (
	"bytes"
	"encoding/json"
	"errors"
)

// normalizeJSON validates that raw is well-formed JSON and returns its
// compact form, the shape handed to each action as its payload file.
func normalizeJSON(raw []byte) ([]byte, error) {
	if !json.Valid(raw) {
		return nil, errInvalidJSON
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var errInvalidJSON = errors.New("msg is not valid json")
