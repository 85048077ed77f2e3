package revocation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/meridianhost/attest-agent/internal/util"
)

// ActionResult is the captured outcome of one successfully run action.
type ActionResult struct {
	Name     string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Executor ties together certificate verification, action resolution,
// and sandboxed execution for the revocation pipeline.
type Executor struct {
	Verifier *Verifier

	PayloadDir   string
	ActionsDir   string
	WorkDir      string
	ActionListPath string

	ConfigActions       string
	AllowPayloadActions bool

	Logger *slog.Logger
}

// NewExecutor builds an Executor, defaulting Logger to slog.Default
// when nil.
func NewExecutor(verifier *Verifier, payloadDir, actionsDir, workDir, actionListPath, configActions string, allowPayloadActions bool, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		Verifier:            verifier,
		PayloadDir:          payloadDir,
		ActionsDir:          actionsDir,
		WorkDir:             workDir,
		ActionListPath:      actionListPath,
		ConfigActions:       configActions,
		AllowPayloadActions: allowPayloadActions,
		Logger:              logger,
	}
}

// shimPath returns the trusted interpreter harness every resolved
// interpreted action runs under, regardless of where the action itself
// was found.
func (e *Executor) shimPath() string {
	return filepath.Join(e.ActionsDir, "shim.py")
}

// Process verifies a raw revocation envelope and, on success, runs
// every configured action against its decoded payload. Any
// verification or parse failure returns a wrapped
// ErrInvalidRevocation/ErrVerificationFailed; the caller must not treat
// that as fatal to the subscriber loop.
func (e *Executor) Process(ctx context.Context, rawBody []byte) ([]ActionResult, error) {
	var body struct {
		Msg       string `json:"msg"`
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(rawBody, &body); err != nil || body.Msg == "" || body.Signature == "" {
		e.Logger.Warn("revocation message missing msg or signature")
		return nil, ErrInvalidRevocation
	}

	if e.Verifier == nil {
		e.Logger.Error("no revocation certificate loaded; dropping revocation message")
		return nil, errors.New("no revocation certificate loaded")
	}

	ok, err := e.Verifier.Verify(body.Msg, body.Signature)
	if err != nil {
		e.Logger.Warn("revocation signature check failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidRevocation, err)
	}
	if !ok {
		e.Logger.Error("invalid revocation message signature")
		return nil, ErrVerificationFailed
	}

	payload, err := normalizeJSON([]byte(body.Msg))
	if err != nil {
		e.Logger.Warn("revocation msg is not valid json", "error", err)
		return nil, ErrInvalidRevocation
	}

	names, err := ComposeActionList(e.ConfigActions, e.ActionListPath)
	if err != nil {
		return nil, fmt.Errorf("compose revocation action list: %w", err)
	}
	if len(names) == 0 {
		e.Logger.Warn("no actions found in revocation action list")
		return nil, nil
	}

	return e.runActions(ctx, names, payload)
}

func (e *Executor) runActions(ctx context.Context, names []string, payload []byte) ([]ActionResult, error) {
	results := make([]ActionResult, 0, len(names))
	for _, name := range names {
		action, err := ResolveAction(e.PayloadDir, e.ActionsDir, e.shimPath(), name, e.AllowPayloadActions)
		if err != nil {
			return nil, err
		}

		e.Logger.Info("executing revocation action", "action", name)
		result, runErr := e.runOne(ctx, action, payload)
		if runErr != nil {
			var scriptErr *ScriptError
			if errors.As(runErr, &scriptErr) {
				e.Logger.Error("revocation action failed", "action", scriptErr.Action, "exit_code", scriptErr.ExitCode)
				return nil, scriptErr
			}
			return nil, runErr
		}

		if len(result.Stdout) > 0 {
			e.Logger.Info("revocation action stdout", "action", name, "output", string(result.Stdout))
		}
		if len(result.Stderr) > 0 {
			e.Logger.Warn("revocation action stderr", "action", name, "output", string(result.Stderr))
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *Executor) runOne(ctx context.Context, action Action, payload []byte) (ActionResult, error) {
	jsonPath := filepath.Join(e.WorkDir, "revocation-"+uuid.NewString()+".json")
	if err := util.WriteSecretFile(jsonPath, payload); err != nil {
		return ActionResult{}, fmt.Errorf("write revocation payload: %w", err)
	}
	defer os.Remove(jsonPath)

	// ResolveAction checked the path relative to the current directory;
	// exec would resolve a relative path against cmd.Dir instead.
	path, err := filepath.Abs(action.Path)
	if err != nil {
		return ActionResult{}, fmt.Errorf("resolve action path: %w", err)
	}

	var cmd *exec.Cmd
	if action.Interpreted {
		cmd = exec.CommandContext(ctx, path, action.Name, jsonPath)
		pythonPath := e.ActionsDir
		if action.FromPayload {
			pythonPath = e.PayloadDir
		}
		cmd.Env = append(os.Environ(), "PYTHONPATH="+pythonPath)
	} else {
		cmd = exec.CommandContext(ctx, path, jsonPath)
	}
	cmd.Dir = e.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return ActionResult{}, &ScriptError{Action: action.Name, ExitCode: exitCode, Stderr: stderr.Bytes()}
	}

	return ActionResult{Name: action.Name, ExitCode: 0, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}

// ComposeActionList concatenates the configured comma-separated action
// names with the newline-separated contents of actionListPath, in that
// order, preserving duplicates. A missing action list file is not an
// error.
func ComposeActionList(configActions, actionListPath string) ([]string, error) {
	var names []string
	for _, s := range strings.Split(configActions, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			names = append(names, s)
		}
	}

	data, err := os.ReadFile(actionListPath)
	switch {
	case err == nil:
		for _, s := range strings.Split(string(data), "\n") {
			s = strings.TrimSpace(s)
			if s != "" {
				names = append(names, s)
			}
		}
	case os.IsNotExist(err):
		// no action_list present; config-derived names (if any) still apply.
	default:
		return nil, fmt.Errorf("read action list %s: %w", actionListPath, err)
	}

	return names, nil
}
