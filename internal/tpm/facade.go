// Package tpm defines the facade this core consumes to talk to the TPM:
// quote production and PCR-mask membership checks. Provisioning the
// underlying TPM2 session is treated as an external collaborator; this
// package owns only the interface, the PCR mask parser that bridges the
// wire's alphanumeric mask into that predicate, a hardware-backed
// implementation, and a software-only fixture implementation for tests.
package tpm

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"

	"github.com/google/go-attestation/attest"
)

// MaxNonceSize is the maximum accepted nonce length in bytes.
const MaxNonceSize = 20

// QuoteFields is what the TPM facade returns for a single quote
// invocation: the quote string and its three algorithm names. The core
// adds the pubkey, IMA and measured-boot fields itself.
type QuoteFields struct {
	Quote    string
	HashAlg  string
	EncAlg   string
	SignAlg  string
}

// Facade is the TPM surface consumed by the quote assembler.
type Facade interface {
	// Quote produces a signed quote over nonce and, when mask is
	// non-nil, the PCRs it selects.
	Quote(ctx context.Context, nonce []byte, mask *string) (QuoteFields, error)
	// CheckMask reports whether PCR index pcr is set in mask.
	CheckMask(mask string, pcr int) (bool, error)
	// PublicKeyPEM returns the PEM encoding of the agent's NK public key.
	PublicKeyPEM() (string, error)
}

// ErrTPMNotAvailable mirrors attest.ErrTPMNotAvailable for callers that
// need to distinguish "no TPM present" from other failures.
var ErrTPMNotAvailable = attest.ErrTPMNotAvailable

// HardwareFacade adapts github.com/google/go-attestation to the Facade
// interface. It serializes Quote, CheckMask and Close behind a mutex
// because the underlying TPM context is not reentrant; PublicKeyPEM
// reads only the NK key, which never changes after construction.
type HardwareFacade struct {
	mu sync.Mutex

	tpm *attest.TPM
	ak  *attest.AK

	nkPriv *rsa.PrivateKey
}

// OpenHardwareFacade opens the platform TPM and provisions an AK plus an
// agent NK key pair. Quote mirrors the TPM attest-platform sequence used
// elsewhere in this stack: attest, then sign nonce‖H(NK_pub)‖PCR blob
// with the agent's own NK to bind the two identities together.
func OpenHardwareFacade() (*HardwareFacade, error) {
	t, err := attest.OpenTPM(nil)
	if err != nil {
		return nil, fmt.Errorf("open tpm: %w", err)
	}
	ak, err := t.NewAK(nil)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("create ak: %w", err)
	}
	nkPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		ak.Close(t)
		t.Close()
		return nil, fmt.Errorf("generate nk: %w", err)
	}
	return &HardwareFacade{tpm: t, ak: ak, nkPriv: nkPriv}, nil
}

// Close releases the AK handle and the underlying TPM context.
func (f *HardwareFacade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ak != nil {
		f.ak.Close(f.tpm)
	}
	if f.tpm != nil {
		return f.tpm.Close()
	}
	return nil
}

// Quote implements Facade.
func (f *HardwareFacade) Quote(ctx context.Context, nonce []byte, mask *string) (QuoteFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sel PCRSelection
	if mask != nil {
		parsed, err := ParseMask(*mask)
		if err != nil {
			return QuoteFields{}, fmt.Errorf("parse pcr mask: %w", err)
		}
		sel = parsed
	}

	att, err := f.tpm.AttestPlatform(f.ak, nonce, nil)
	if err != nil {
		return QuoteFields{}, fmt.Errorf("attest platform: %w", err)
	}
	if len(att.Quotes) == 0 {
		return QuoteFields{}, errors.New("tpm returned no quotes")
	}
	q := att.Quotes[0]

	pubHash := sha256.Sum256(nkPublicBytes(&f.nkPriv.PublicKey))
	signed := append(append(append([]byte{}, nonce...), pubHash[:]...), pcrBlob(sel)...)
	sig, err := rsa.SignPKCS1v15(rand.Reader, f.nkPriv, crypto.SHA256, hashSum(signed))
	if err != nil {
		return QuoteFields{}, fmt.Errorf("sign quote blob: %w", err)
	}

	quote := encodeQuote(q.Quote, sig, pcrBlob(sel))
	return QuoteFields{
		Quote:   quote,
		HashAlg: "sha256",
		EncAlg:  "rsa",
		SignAlg: "rsassa",
	}, nil
}

// CheckMask implements Facade.
func (f *HardwareFacade) CheckMask(mask string, pcr int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sel, err := ParseMask(mask)
	if err != nil {
		return false, fmt.Errorf("parse pcr mask: %w", err)
	}
	return sel.Has(pcr), nil
}

// PublicKeyPEM implements Facade.
func (f *HardwareFacade) PublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(&f.nkPriv.PublicKey)
	if err != nil {
		return "", fmt.Errorf("marshal nk public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

func nkPublicBytes(pub *rsa.PublicKey) []byte {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil
	}
	return der
}

func hashSum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}
