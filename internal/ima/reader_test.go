package ima

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ascii_runtime_measurements")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestReadMeasurementListFull(t *testing.T) {
	path := writeLog(t, "entry0", "entry1", "entry2")
	r := NewReader()
	state := NewReaderState()

	slice, offset, total, err := r.ReadMeasurementList(state, path, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offset != nil {
		t.Fatalf("expected nil starting offset for full read, got %v", *offset)
	}
	if total != 3 {
		t.Fatalf("expected 3 total entries, got %d", total)
	}
	want := "entry0\nentry1\nentry2\n"
	if slice == nil || *slice != want {
		t.Fatalf("unexpected slice %v", slice)
	}
}

func TestReadMeasurementListFromOffset(t *testing.T) {
	path := writeLog(t, "entry0", "entry1", "entry2")
	r := NewReader()
	state := NewReaderState()

	slice, offset, total, err := r.ReadMeasurementList(state, path, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 total entries, got %d", total)
	}
	if offset == nil || *offset != 1 {
		t.Fatalf("expected starting offset 1, got %v", offset)
	}
	want := "entry1\nentry2\n"
	if slice == nil || *slice != want {
		t.Fatalf("unexpected slice %v", slice)
	}
}

func TestReadMeasurementListCaughtUp(t *testing.T) {
	path := writeLog(t, "entry0", "entry1")
	r := NewReader()
	state := NewReaderState()

	slice, offset, total, err := r.ReadMeasurementList(state, path, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slice != nil {
		t.Fatalf("expected nil slice when caught up, got %v", *slice)
	}
	if offset == nil || *offset != 2 {
		t.Fatalf("expected starting offset to equal total (2), got %v", offset)
	}
	if total != 2 {
		t.Fatalf("unexpected total %d", total)
	}
}

func TestReadMeasurementListBeyondTotal(t *testing.T) {
	path := writeLog(t, "entry0")
	r := NewReader()
	state := NewReaderState()

	slice, offset, total, err := r.ReadMeasurementList(state, path, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slice != nil {
		t.Fatalf("expected nil slice, got %v", *slice)
	}
	if offset == nil || *offset != total {
		t.Fatalf("expected offset to equal total entries when nth exceeds total")
	}
}

func TestReadMeasurementListMissingFile(t *testing.T) {
	r := NewReader()
	state := NewReaderState()
	_, _, _, err := r.ReadMeasurementList(state, "/nonexistent/path/measurements", 0)
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestReadMeasurementListEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}
	r := NewReader()
	state := NewReaderState()
	slice, _, total, err := r.ReadMeasurementList(state, path, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected 0 total entries, got %d", total)
	}
	if slice == nil || *slice != "" {
		t.Fatalf("expected empty string slice, got %v", slice)
	}
}
