package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/tanukai/factorytown/internal/engine"
)

// Archive streams every tick's snapshot to a zstd-compressed JSONL file.
// It implements engine.Observer; write failures are remembered and
// surfaced by Close.
type Archive struct {
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	err error
}

// CreateArchive opens a new tick archive at path, truncating any
// existing file.
func CreateArchive(path string) (*Archive, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return &Archive{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// OnSnapshot appends one snapshot as a JSON line.
func (a *Archive) OnSnapshot(s engine.Snapshot) {
	if a.err != nil {
		return
	}
	b, err := json.Marshal(s)
	if err != nil {
		a.err = err
		return
	}
	if _, err := a.w.Write(b); err != nil {
		a.err = err
		return
	}
	a.err = a.w.WriteByte('\n')
}

// Close flushes and closes the archive, returning the first error seen
// during writing.
func (a *Archive) Close() error {
	flushErr := a.w.Flush()
	encErr := a.enc.Close()
	fileErr := a.f.Close()

	switch {
	case a.err != nil:
		return a.err
	case flushErr != nil:
		return flushErr
	case encErr != nil:
		return encErr
	default:
		return fileErr
	}
}

// ReadArchive decodes a full tick archive back into snapshots.
func ReadArchive(path string) ([]engine.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var snaps []engine.Snapshot
	jd := json.NewDecoder(dec)
	for {
		var s engine.Snapshot
		if err := jd.Decode(&s); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode archive: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}
