package revocation

import (
	"fmt"
	"path/filepath"

	"github.com/meridianhost/attest-agent/internal/util"
)

// Action is a resolved revocation action: where to execute, whether it
// runs through the interpreter shim, and whether it came from the
// tenant payload rather than the pre-installed directory.
type Action struct {
	Name        string
	Path        string
	Interpreted bool
	FromPayload bool
}

// ResolveAction searches the four-tier precedence ladder and returns
// the first hit. Payload-sourced candidates are skipped
// entirely when allowPayload is false — they must never even be
// considered, not merely deprioritized.
func ResolveAction(payloadDir, actionsDir, shimPath, name string, allowPayload bool) (Action, error) {
	pyName := name + ".py"

	candidates := []struct {
		path        string
		interpreted bool
		fromPayload bool
	}{
		{filepath.Join(actionsDir, name), false, false},
		{filepath.Join(payloadDir, name), false, true},
		{filepath.Join(actionsDir, pyName), true, false},
		{filepath.Join(payloadDir, pyName), true, true},
	}

	for _, c := range candidates {
		if c.fromPayload && !allowPayload {
			continue
		}
		if exists, err := util.FileExists(c.path); err != nil || !exists {
			continue
		}
		if c.interpreted {
			return Action{Name: name, Path: shimPath, Interpreted: true, FromPayload: c.fromPayload}, nil
		}
		return Action{Name: name, Path: c.path, Interpreted: false, FromPayload: c.fromPayload}, nil
	}

	return Action{}, fmt.Errorf("could not find action %s: %w", name, ErrActionNotFound)
}
