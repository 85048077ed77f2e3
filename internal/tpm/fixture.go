package tpm

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"
)

// FixtureFacade is a deterministic, software-only Facade used by tests,
// mirroring the original's QuoteData::fixture() helper: no real TPM is
// involved, but the quote produced is self-consistent and verifiable with
// CheckQuote.
type FixtureFacade struct {
	mu   sync.Mutex
	priv *rsa.PrivateKey
}

// NewFixtureFacade builds a FixtureFacade with a freshly generated NK key
// pair, so tests never share key material across runs.
func NewFixtureFacade() (*FixtureFacade, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate fixture nk: %w", err)
	}
	return &FixtureFacade{priv: priv}, nil
}

// Quote implements Facade by signing nonce‖H(NK_pub)‖selected_PCRs with
// the fixture's NK key, entirely in software.
func (f *FixtureFacade) Quote(ctx context.Context, nonce []byte, mask *string) (QuoteFields, error) {
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

	pubDER, err := x509.MarshalPKIXPublicKey(&f.priv.PublicKey)
	if err != nil {
		return QuoteFields{}, fmt.Errorf("marshal nk public key: %w", err)
	}
	pubHash := sha256.Sum256(pubDER)
	blob := pcrBlob(sel)
	signed := append(append(append([]byte{}, nonce...), pubHash[:]...), blob...)

	sig, err := rsa.SignPKCS1v15(rand.Reader, f.priv, crypto.SHA256, hashSum(signed))
	if err != nil {
		return QuoteFields{}, fmt.Errorf("sign fixture quote: %w", err)
	}

	// The fixture's "TPMS_ATTEST" segment is just the signed blob itself;
	// there's no real TPM structure to echo back.
	quote := encodeQuote(signed, sig, blob)
	return QuoteFields{
		Quote:   quote,
		HashAlg: "sha256",
		EncAlg:  "rsa",
		SignAlg: "rsassa",
	}, nil
}

// CheckMask implements Facade.
func (f *FixtureFacade) CheckMask(mask string, pcr int) (bool, error) {
	sel, err := ParseMask(mask)
	if err != nil {
		return false, fmt.Errorf("parse pcr mask: %w", err)
	}
	return sel.Has(pcr), nil
}

// PublicKeyPEM implements Facade.
func (f *FixtureFacade) PublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(&f.priv.PublicKey)
	if err != nil {
		return "", fmt.Errorf("marshal nk public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// CheckQuote verifies a quote produced by this fixture against the
// original nonce: it checks the signature and confirms the quote binds
// the nonce it was asked for, the way a verifier on the other end of
// the wire would.
func (f *FixtureFacade) CheckQuote(quote string, nonce []byte) error {
	attestSeg, sig, _, err := decodeQuote(quote)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(&f.priv.PublicKey, crypto.SHA256, hashSum(attestSeg), sig); err != nil {
		return fmt.Errorf("verify quote signature: %w", err)
	}
	if len(attestSeg) < len(nonce) || string(attestSeg[:len(nonce)]) != string(nonce) {
		return fmt.Errorf("quote does not bind expected nonce")
	}
	return nil
}
