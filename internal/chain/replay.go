package chain

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// ReplaySource reads chains back from a recorded session archive
// (zstd-compressed JSONL, one chain per line) and yields them in order.
// It lets a recorded trading day be re-run through the engine offline.
type ReplaySource struct {
	file    *os.File
	decoder *zstd.Decoder
	scanner *bufio.Scanner
	path    string
	count   int
	logger  *zap.Logger
}

// Compile-time interface verification
var _ Source = (*ReplaySource)(nil)

func NewReplaySource(path string, logger *zap.Logger) (*ReplaySource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	decoder, err := zstd.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}

	scanner := bufio.NewScanner(decoder)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024) // chains can be wide

	return &ReplaySource{
		file:    file,
		decoder: decoder,
		scanner: scanner,
		path:    path,
		logger:  logger,
	}, nil
}

// Fetch returns the next recorded chain, or ErrExhausted at end of archive.
func (r *ReplaySource) Fetch(ctx context.Context) (*Chain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ch Chain
		if err := json.Unmarshal(line, &ch); err != nil {
			r.logger.Warn("skipping malformed archive line",
				zap.String("path", r.path),
				zap.Int("line", r.count),
				zap.Error(err),
			)
			r.count++
			continue
		}

		r.count++
		return &ch, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	return nil, ErrExhausted
}

// Count returns the number of lines consumed so far.
func (r *ReplaySource) Count() int { return r.count }

// Close releases the decoder and underlying file.
func (r *ReplaySource) Close() error {
	r.decoder.Close()
	return r.file.Close()
}
