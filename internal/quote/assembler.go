package quote

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/meridianhost/attest-agent/internal/ima"
	"github.com/meridianhost/attest-agent/internal/tpm"
)

const pcr0 = 0

// Assembler drives C3: it validates quote requests, calls the TPM
// facade and the IMA reader, and renders the wire envelope.
type Assembler struct {
	facade tpm.Facade

	imaReader      *ima.Reader
	imaReaderState *ima.ReaderState
	imaMLPath      string
	mbMLPath       string

	log *slog.Logger
}

// NewAssembler wires a quote Assembler from its collaborators. mbMLPath
// may be empty, in which case the measured-boot log is never attached.
func NewAssembler(facade tpm.Facade, imaMLPath, mbMLPath string, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{
		facade:         facade,
		imaReader:      ima.NewReader(),
		imaReaderState: ima.NewReaderState(),
		imaMLPath:      imaMLPath,
		mbMLPath:       mbMLPath,
		log:            log,
	}
}

// Identity produces a quote binding only the caller's nonce, plus the
// agent's public key — no PCR selection, no IMA or measured-boot logs.
func (a *Assembler) Identity(ctx context.Context, nonce string) (Envelope, *APIError) {
	if err := validateNonce(nonce); err != nil {
		return Envelope{}, err
	}

	fields, err := a.facade.Quote(ctx, []byte(nonce), nil)
	if err != nil {
		a.log.Debug("tpm quote failed", "error", err)
		return Envelope{}, internalError("Unable to retrieve quote")
	}

	pubkey, err := a.facade.PublicKeyPEM()
	if err != nil {
		a.log.Debug("public key export failed", "error", err)
		return Envelope{}, internalError("Unable to retrieve public key")
	}

	return Envelope{
		Quote:   fields.Quote,
		HashAlg: fields.HashAlg,
		EncAlg:  fields.EncAlg,
		SignAlg: fields.SignAlg,
		Pubkey:  &pubkey,
	}, nil
}

// Integrity produces a quote over the requested PCR mask, attaching
// the IMA measurement log (and the measured-boot log, when PCR0 is
// selected and one is configured). imaMLEntry is the raw (unparsed)
// query parameter; a missing parameter or a parse failure both
// collapse to nth=0 (full log), by design.
func (a *Assembler) Integrity(ctx context.Context, nonce, mask, partial string, imaMLEntry *string) (Envelope, *APIError) {
	if err := validateNonce(nonce); err != nil {
		return Envelope{}, err
	}
	if err := validateMask(mask); err != nil {
		return Envelope{}, err
	}
	if partial != "0" && partial != "1" {
		return Envelope{}, badRequest("uri must contain key 'partial' and value '0' or '1'")
	}

	var pubkey *string
	if partial == "0" {
		pem, err := a.facade.PublicKeyPEM()
		if err != nil {
			a.log.Debug("public key export failed", "error", err)
			return Envelope{}, internalError("Unable to retrieve public key")
		}
		pubkey = &pem
	}

	nth := parseIMAMLEntry(imaMLEntry)

	fields, err := a.facade.Quote(ctx, []byte(nonce), &mask)
	if err != nil {
		a.log.Debug("tpm quote failed", "error", err)
		return Envelope{}, internalError("Unable to retrieve quote")
	}

	env := Envelope{
		Quote:   fields.Quote,
		HashAlg: fields.HashAlg,
		EncAlg:  fields.EncAlg,
		SignAlg: fields.SignAlg,
		Pubkey:  pubkey,
	}

	pcr0Set, maskErr := a.facade.CheckMask(mask, pcr0)
	if maskErr != nil {
		a.log.Debug("pcr mask check failed", "error", maskErr)
		return Envelope{}, internalError("Unable to retrieve quote")
	}
	if pcr0Set && a.mbMLPath != "" {
		mb, readErr := os.ReadFile(a.mbMLPath)
		if readErr != nil {
			a.log.Warn("measured-boot log unreadable", "path", a.mbMLPath, "error", readErr)
		} else {
			env.MBMeasurementList = newMBLog(mb)
		}
	}

	slice, offset, _, readErr := a.imaReader.ReadMeasurementList(a.imaReaderState, a.imaMLPath, nth)
	if readErr != nil {
		a.log.Debug("ima log read failed", "error", readErr)
		return Envelope{}, internalError("Unable to retrieve quote")
	}
	env.IMAMeasurementList = slice
	env.IMAMeasurementListEntry = offset

	return env, nil
}

func parseIMAMLEntry(raw *string) uint64 {
	if raw == nil {
		return 0
	}
	n, err := strconv.ParseUint(*raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func validateNonce(nonce string) *APIError {
	if !isAlphanumeric(nonce) {
		return badRequest("Parameters should be strictly alphanumeric")
	}
	if len(nonce) > tpm.MaxNonceSize {
		return badRequest("nonce exceeds maximum length of " + strconv.Itoa(tpm.MaxNonceSize) + " bytes")
	}
	return nil
}

func validateMask(mask string) *APIError {
	if !isAlphanumeric(mask) {
		return badRequest("Parameters should be strictly alphanumeric")
	}
	return nil
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
