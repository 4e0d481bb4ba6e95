package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Snapshotter manages checkpoint files inside a directory, one per capture,
// named by the Unix-nanosecond timestamp at which it was taken.
type Snapshotter struct {
	dir string
}

// NewSnapshotter creates a Snapshotter that stores files in dir. dir is
// created if it does not exist.
func NewSnapshotter(dir string) (*Snapshotter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Snapshotter{dir: dir}, nil
}

func (s *Snapshotter) snapshotPath(ts int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("checkpoint-%d.snap", ts))
}

// Save serialises snap into a zstd-compressed temp file and renames it into
// place once every write has landed, so a crash mid-write never leaves a
// corrupt checkpoint visible under its final name.
func (s *Snapshotter) Save(snap BookSnapshot) error {
	dst := s.snapshotPath(snap.Timestamp)
	tmp := dst + ".tmp"

	if err := writeSnapshotFile(tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// writeSnapshotFile drives the create → compress → sync → close sequence
// for one temp file. The two deferred closers, not a hand-unwound block
// after each fallible step, are what guarantee the zstd frame is flushed
// and the file descriptor is released on every exit path; err is the named
// return they fold their own failures into, without masking an earlier one.
func writeSnapshotFile(tmp string, snap BookSnapshot) (err error) {
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			err = f.Sync()
		}
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := enc.Close(); err == nil {
			err = closeErr
		}
	}()

	return writeSnapshot(enc, snap)
}

// LoadLatest finds the most recent checkpoint in the directory and
// deserialises it. It returns nil (with no error) when no checkpoint exists
// yet.
func (s *Snapshotter) LoadLatest() (*BookSnapshot, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "checkpoint-*.snap"))
	if err != nil {
		return nil, err
	}

	var latestPath string
	var latestTS int64
	for _, path := range matches {
		ts, ok := checkpointTimestamp(filepath.Base(path))
		if !ok {
			continue
		}
		if latestPath == "" || ts > latestTS {
			latestPath, latestTS = path, ts
		}
	}
	if latestPath == "" {
		return nil, nil
	}

	return loadSnapshotFile(latestPath)
}

// checkpointTimestamp extracts the timestamp from a "checkpoint-<ts>.snap"
// file name, reporting false for anything that doesn't fit the pattern.
func checkpointTimestamp(name string) (int64, bool) {
	if !strings.HasPrefix(name, "checkpoint-") || !strings.HasSuffix(name, ".snap") {
		return 0, false
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "checkpoint-"), ".snap")
	ts, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

func loadSnapshotFile(path string) (snap *BookSnapshot, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return readSnapshot(dec)
}
