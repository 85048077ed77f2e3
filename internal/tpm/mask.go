package tpm

import (
	"crypto"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-tpm/legacy/tpm2"
)

// PCRSelection is the parsed form of a wire PCR mask. Only the "is bit i
// set?" predicate (Has) escapes into the rest of the core — callers never
// see the raw bitset.
//
// It is backed by tpm2.PCRSelection so that a parsed mask can be handed
// directly to go-tpm's PCR-selection-aware calls without another
// conversion.
type PCRSelection tpm2.PCRSelection

// ParseMask parses a compact alphanumeric PCR mask (e.g. "0x408000") into
// a PCRSelection. Only [A-Za-z0-9] characters (plus an optional leading
// "0x") are accepted; anything else is a parse error.
func ParseMask(mask string) (PCRSelection, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(mask, "0x"), "0X")
	if trimmed == "" {
		return PCRSelection{}, fmt.Errorf("empty pcr mask")
	}
	for _, r := range trimmed {
		if !isAlphanumeric(r) {
			return PCRSelection{}, fmt.Errorf("pcr mask contains non-alphanumeric character %q", r)
		}
	}
	value, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return PCRSelection{}, fmt.Errorf("parse pcr mask %q: %w", mask, err)
	}

	var pcrs []int
	for i := 0; i < 24; i++ {
		if value&(1<<uint(i)) != 0 {
			pcrs = append(pcrs, i)
		}
	}
	return PCRSelection{Hash: crypto.SHA256, PCRs: pcrs}, nil
}

// Has reports whether PCR index idx is selected by the mask.
func (s PCRSelection) Has(idx int) bool {
	for _, p := range s.PCRs {
		if p == idx {
			return true
		}
	}
	return false
}

// bitCount returns how many PCRs are selected; useful for sizing the PCR
// blob embedded in a quote.
func (s PCRSelection) bitCount() int {
	return len(s.PCRs)
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// pcrBlob renders the selected PCR indices into a small deterministic byte
// blob for embedding in the quote's signed payload.
func pcrBlob(sel PCRSelection) []byte {
	blob := make([]byte, len(sel.PCRs))
	for i, p := range sel.PCRs {
		blob[i] = byte(p)
	}
	return blob
}
