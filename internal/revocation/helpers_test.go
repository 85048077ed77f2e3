package revocation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func jsonMarshalBody(msg, signature string) ([]byte, error) {
	return json.Marshal(struct {
		Msg       string `json:"msg"`
		Signature string `json:"signature"`
	}{Msg: msg, Signature: signature})
}

func readTestdataString(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", rel))
	if err != nil {
		t.Fatalf("read testdata %s: %v", rel, err)
	}
	return string(b)
}
