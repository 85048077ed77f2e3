package revocation

import (
	"errors"
	"path/filepath"
	"testing"
)

func testDirs() (payloadDir, actionsDir, shim string) {
	actionsDir = filepath.Join("testdata", "actions")
	payloadDir = filepath.Join("testdata", "unzipped")
	shim = filepath.Join(actionsDir, "shim.py")
	return
}

func TestResolveActionInterpretedInstalled(t *testing.T) {
	payloadDir, actionsDir, shim := testDirs()
	action, err := ResolveAction(payloadDir, actionsDir, shim, "local_action_hello", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if action.Path != shim || !action.Interpreted || action.FromPayload {
		t.Fatalf("unexpected action: %+v", action)
	}
}

func TestResolveActionNativeInstalled(t *testing.T) {
	payloadDir, actionsDir, shim := testDirs()
	action, err := ResolveAction(payloadDir, actionsDir, shim, "local_action_native", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := filepath.Join(actionsDir, "local_action_native")
	if action.Path != want || action.Interpreted || action.FromPayload {
		t.Fatalf("unexpected action: %+v", action)
	}
}

func TestResolveActionInterpretedPayload(t *testing.T) {
	payloadDir, actionsDir, shim := testDirs()
	action, err := ResolveAction(payloadDir, actionsDir, shim, "local_action_payload", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if action.Path != shim || !action.Interpreted || !action.FromPayload {
		t.Fatalf("unexpected action: %+v", action)
	}
}

func TestResolveActionNativePayload(t *testing.T) {
	payloadDir, actionsDir, shim := testDirs()
	action, err := ResolveAction(payloadDir, actionsDir, shim, "local_action_payload_native", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := filepath.Join(payloadDir, "local_action_payload_native")
	if action.Path != want || action.Interpreted || !action.FromPayload {
		t.Fatalf("unexpected action: %+v", action)
	}
}

func TestResolveActionDisallowsPayload(t *testing.T) {
	payloadDir, actionsDir, shim := testDirs()
	_, err := ResolveAction(payloadDir, actionsDir, shim, "local_action_payload_native", false)
	if !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound when payload actions are disallowed, got %v", err)
	}
}

func TestResolveActionNotFound(t *testing.T) {
	payloadDir, actionsDir, shim := testDirs()
	_, err := ResolveAction(payloadDir, actionsDir, shim, "local_action_does_not_exist", true)
	if !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound, got %v", err)
	}
}
