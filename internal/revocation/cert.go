package revocation

import (
	"encoding/pem"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/certificate-transparency-go/x509"

	"github.com/meridianhost/attest-agent/internal/codec"
	"github.com/meridianhost/attest-agent/internal/util"
)

// revCertFilename is the fixed filename the "default" revocation_cert
// value resolves under <work_dir>/secure/unzipped.
const revCertFilename = "RevocationNotifier-cert.crt"

// ResolveCertPath applies the revocation_cert resolution rules against
// a trimmed configuration value.
func ResolveCertPath(workDir, revocationCert string) (string, error) {
	trimmed := strings.TrimSpace(revocationCert)
	switch {
	case trimmed == "default":
		return filepath.Join(workDir, "secure", "unzipped", revCertFilename), nil
	case trimmed == "":
		return "", ErrRevocationCertUnset
	case filepath.IsAbs(trimmed):
		return trimmed, nil
	default:
		return filepath.Join(workDir, trimmed), nil
	}
}

// Verifier holds the pinned revocation certificate and checks signed
// revocation messages against it.
type Verifier struct {
	cert *x509.Certificate
}

// LoadVerifier canonicalizes certPath, requiring it to exist, and
// parses the PEM-encoded certificate found there.
func LoadVerifier(certPath string) (*Verifier, error) {
	resolved, err := filepath.EvalSymlinks(certPath)
	if err != nil {
		return nil, fmt.Errorf("resolve revocation cert path %s: %w", certPath, err)
	}

	raw, err := util.ReadSecretFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read revocation cert %s: %w", resolved, err)
	}

	block, _ := pem.Decode(raw)
	var der []byte
	if block != nil {
		der = block.Bytes
	} else {
		der = raw
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse revocation cert %s: %w", resolved, err)
	}
	return &Verifier{cert: cert}, nil
}

// Verify reports whether signatureB64 is a valid signature over message
// under the pinned certificate's public key and declared algorithm. A
// false return (with nil error) means the message failed verification,
// not that something went wrong evaluating it.
func (v *Verifier) Verify(message, signatureB64 string) (bool, error) {
	sig, err := codec.DecodeBytes(signatureB64)
	if err != nil {
		return false, fmt.Errorf("decode revocation signature: %w", err)
	}
	if err := v.cert.CheckSignature(v.cert.SignatureAlgorithm, []byte(message), sig); err != nil {
		return false, nil
	}
	return true, nil
}
