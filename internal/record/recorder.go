// Package record persists poll artifacts as zstd-compressed JSONL, one JSON
// document per line, laid out as {dir}/{date}/{name}.jsonl.zst. Archives are
// replayable through internal/chain.ReplaySource.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Recorder appends JSON-marshalable values to one archive stream. Safe for a
// single writer; Close flushes and finalizes the zstd frame.
type Recorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *zstd.Encoder
	path    string
	count   int
	logger  *zap.Logger
}

// NewRecorder opens (or creates) the archive for dir/date/name, appending to
// an existing file so a daemon restart mid-session keeps recording.
func NewRecorder(dir, date, name string, logger *zap.Logger) (*Recorder, error) {
	dateDir := filepath.Join(dir, date)
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	path := filepath.Join(dateDir, name+".jsonl.zst")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	encoder, err := zstd.NewWriter(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("creating zstd writer: %w", err)
	}

	return &Recorder{
		file:    file,
		encoder: encoder,
		path:    path,
		logger:  logger,
	}, nil
}

// Write appends one value as a JSON line and flushes the compressor so the
// archive stays readable up to the last completed poll.
func (r *Recorder) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.encoder.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if err := r.encoder.Flush(); err != nil {
		return fmt.Errorf("flushing archive: %w", err)
	}

	r.count++
	return nil
}

// Count returns how many records this recorder has written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Path returns the archive file path.
func (r *Recorder) Path() string { return r.path }

// Close finalizes the compressed stream and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.encoder.Close(); err != nil {
		r.logger.Warn("failed to finalize archive", zap.String("path", r.path), zap.Error(err))
	}
	return r.file.Close()
}
