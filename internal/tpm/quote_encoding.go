package tpm

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// quoteDelimiter separates the three base64 segments of a quote string.
// Spec §3 leaves the delimiter as a facade choice; this facade uses ":".
const quoteDelimiter = ":"

// encodeQuote renders the TPMS_ATTEST structure, its signature, and the
// PCR blob into the wire quote format: literal 'r' followed by three
// base64 segments joined by quoteDelimiter.
func encodeQuote(attest, signature, pcrBlob []byte) string {
	segments := []string{
		base64.StdEncoding.EncodeToString(attest),
		base64.StdEncoding.EncodeToString(signature),
		base64.StdEncoding.EncodeToString(pcrBlob),
	}
	return "r" + strings.Join(segments, quoteDelimiter)
}

// decodeQuote reverses encodeQuote, returning the three decoded segments.
func decodeQuote(quote string) (attest, signature, pcrBlob []byte, err error) {
	if !strings.HasPrefix(quote, "r") {
		return nil, nil, nil, fmt.Errorf("quote does not start with 'r'")
	}
	parts := strings.Split(strings.TrimPrefix(quote, "r"), quoteDelimiter)
	if len(parts) != 3 {
		return nil, nil, nil, fmt.Errorf("expected 3 quote segments, got %d", len(parts))
	}
	decoded := make([][]byte, 3)
	for i, p := range parts {
		b, decErr := base64.StdEncoding.DecodeString(p)
		if decErr != nil {
			return nil, nil, nil, fmt.Errorf("decode quote segment %d: %w", i, decErr)
		}
		decoded[i] = b
	}
	return decoded[0], decoded[1], decoded[2], nil
}
