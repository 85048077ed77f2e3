package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, payload string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.json")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `{
		"work_dir": "/var/lib/attestd",
		"secure_size": "1m",
		"ima_ml_path": "/sys/kernel/security/ima/ascii_runtime_measurements",
		"measuredboot_ml_path": "/sys/kernel/security/tpm0/binary_bios_measurements",
		"revocation_cert": "default",
		"revocation_actions": "local_action_hello",
		"revocation_actions_dir": "/usr/libexec/attestd/actions",
		"allow_payload_revocation_actions": false,
		"revocation_ip": "127.0.0.1",
		"revocation_port": 8992,
		"listen_addr": ":9002",
		"logging": {"level": "info"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.RevocationPort != 8992 {
		t.Fatalf("unexpected revocation port: %d", cfg.RevocationPort)
	}
	if cfg.AllowPayloadRevocationActions {
		t.Fatalf("expected allow_payload_revocation_actions to be false")
	}
}

func TestValidateRequiresWorkDir(t *testing.T) {
	cfg := Config{IMAMLPath: "x", RevocationActionsDir: "y", ListenAddr: ":9002"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing work_dir")
	}
}

func TestValidateRequiresListenAddr(t *testing.T) {
	cfg := Config{WorkDir: "/work", IMAMLPath: "x", RevocationActionsDir: "y"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing listen_addr")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
