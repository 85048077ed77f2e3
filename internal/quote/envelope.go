// Package quote assembles identity and integrity quote responses: it
// validates request parameters, drives the TPM facade, attaches IMA and
// measured-boot logs, and renders the wire envelope.
package quote

import (
	"encoding/json"

	"github.com/meridianhost/attest-agent/internal/codec"
)

// Envelope is the wire quote record. pubkey, ima_measurement_list and
// ima_measurement_list_entry are omitted when unset; mb_measurement_list
// is always present, as base64 when attached and JSON null otherwise.
type Envelope struct {
	Quote   string `json:"quote"`
	HashAlg string `json:"hash_alg"`
	EncAlg  string `json:"enc_alg"`
	SignAlg string `json:"sign_alg"`

	Pubkey *string `json:"pubkey,omitempty"`

	IMAMeasurementList      *string `json:"ima_measurement_list,omitempty"`
	MBMeasurementList       mbLog   `json:"mb_measurement_list"`
	IMAMeasurementListEntry *uint64 `json:"ima_measurement_list_entry,omitempty"`
}

// mbLog carries the raw measured-boot log bytes and marshals as base64
// when present, null when absent. A plain []byte with omitempty can't
// express that distinction, since an empty-but-present log would vanish
// too, so it gets its own tiny wrapper type.
type mbLog struct {
	bytes []byte
	set   bool
}

func newMBLog(b []byte) mbLog {
	return mbLog{bytes: b, set: true}
}

func (m mbLog) MarshalJSON() ([]byte, error) {
	encoded := codec.EncodeOptionalBytes(m.bytes)
	if encoded == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*encoded)
}

func (m *mbLog) UnmarshalJSON(raw []byte) error {
	b, err := codec.DecodeOptionalBytes(raw)
	if err != nil {
		return err
	}
	if b == nil {
		*m = mbLog{}
		return nil
	}
	*m = newMBLog(b)
	return nil
}

// APIError is the (code, message) pair the assembler returns on any
// non-200 outcome; the HTTP front end renders it into the standard
// envelope.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func badRequest(msg string) *APIError {
	return &APIError{Code: 400, Message: msg}
}

func internalError(msg string) *APIError {
	return &APIError{Code: 500, Message: msg}
}
