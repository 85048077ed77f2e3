// Package ima implements the stateful, restartable reader over the IMA
// runtime measurement log that backs incremental attestation.
package ima

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ReaderState is the small per-agent object tracking the last observed
// entry count. It is owned by the quote assembler and must be accessed
// only while ReaderState.mu is held.
type ReaderState struct {
	mu           sync.Mutex
	totalEntries uint64
}

// NewReaderState constructs a fresh, zeroed reader state.
func NewReaderState() *ReaderState {
	return &ReaderState{}
}

// Reader reads entries from an IMA measurement log file.
type Reader struct{}

// NewReader constructs an IMA log reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadMeasurementList returns the slice of the log requested by nth,
// the offset the caller should resume from next time, and the post-read
// total entry count. nth == 0 returns the full log from the start;
// nth >= total returns no slice, just the offset and total, since there
// is nothing new to report.
func (r *Reader) ReadMeasurementList(state *ReaderState, path string, nth uint64) (slice *string, startingOffset *uint64, total uint64, err error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	lines, err := readLines(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read ima measurement log %s: %w", path, err)
	}
	total = uint64(len(lines))
	state.totalEntries = total

	if nth == 0 {
		full := strings.Join(lines, "")
		return &full, nil, total, nil
	}

	if nth >= total {
		return nil, &total, total, nil
	}

	tail := strings.Join(lines[nth:], "")
	return &tail, &nth, total, nil
}

// readLines reads a line-oriented log file, preserving each line's
// trailing newline so that concatenated slices reproduce the original
// byte stream exactly.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text()+"\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	// A file with no trailing newline on its last line still yields a
	// bufio.Scanner token without one; strip the extra newline we added
	// for that single case by checking the raw file size.
	if len(lines) > 0 {
		if info, statErr := f.Stat(); statErr == nil {
			joined := strings.Join(lines, "")
			if int64(len(joined)) > info.Size() {
				lines[len(lines)-1] = strings.TrimSuffix(lines[len(lines)-1], "\n")
			}
		}
	}
	return lines, nil
}
