package revocation

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestResolveCertPathDefault(t *testing.T) {
	path, err := ResolveCertPath("/work", "default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join("/work", "secure", "unzipped", revCertFilename)
	if path != want {
		t.Fatalf("got %q want %q", path, want)
	}
}

func TestResolveCertPathEmpty(t *testing.T) {
	_, err := ResolveCertPath("/work", "")
	if !errors.Is(err, ErrRevocationCertUnset) {
		t.Fatalf("expected ErrRevocationCertUnset, got %v", err)
	}
}

func TestResolveCertPathAbsolute(t *testing.T) {
	path, err := ResolveCertPath("/work", "/etc/certs/rev.crt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/etc/certs/rev.crt" {
		t.Fatalf("got %q", path)
	}
}

func TestResolveCertPathRelative(t *testing.T) {
	path, err := ResolveCertPath("/work", "rev.crt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join("/work", "rev.crt") {
		t.Fatalf("got %q", path)
	}
}

func TestLoadVerifierAndVerify(t *testing.T) {
	v, err := LoadVerifier(filepath.Join("testdata", "test-cert.pem"))
	if err != nil {
		t.Fatalf("load verifier: %v", err)
	}

	message := readTestdataString(t, "unzipped/test_ok.json")
	signature := readTestdataString(t, "test_ok.sig")

	ok, err := v.Verify(message, signature)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify against the matching message")
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	v, err := LoadVerifier(filepath.Join("testdata", "test-cert.pem"))
	if err != nil {
		t.Fatalf("load verifier: %v", err)
	}
	signature := readTestdataString(t, "test_ok.sig")

	ok, err := v.Verify(`{"event":"tampered"}`, signature)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected verification to fail for a tampered message")
	}
}

func TestLoadVerifierMissingFile(t *testing.T) {
	if _, err := LoadVerifier(filepath.Join("testdata", "does-not-exist.pem")); err == nil {
		t.Fatalf("expected error for missing certificate file")
	}
}
