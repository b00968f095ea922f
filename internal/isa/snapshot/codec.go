package snapshot

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"gpuasm/internal/errors"
)

// compressedExt marks snapshot paths that carry a zstd-framed payload.
const compressedExt = ".zst"

// IsCompressed reports whether path names a zstd-compressed snapshot.
func IsCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), compressedExt)
}

// Write serializes the snapshot as canonical JSON at path, creating
// parent directories as needed. Minify drops indentation; a path ending
// in .zst is additionally zstd-compressed.
func Write(path string, s *Snapshot, minify bool) error {
	data, err := Marshal(s, minify)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewInternalError("failed to create snapshot directory", err)
		}
	}

	if !IsCompressed(path) {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return errors.NewInternalError("failed to write snapshot", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.NewInternalError("failed to create snapshot file", err)
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return errors.NewInternalError("failed to initialize zstd writer", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		f.Close()
		return errors.NewInternalError("failed to write compressed snapshot", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return errors.NewInternalError("failed to finish compressed snapshot", err)
	}
	if err := f.Close(); err != nil {
		return errors.NewInternalError("failed to finish compressed snapshot", err)
	}
	return nil
}

// Marshal renders the snapshot's canonical JSON bytes, newline-terminated.
func Marshal(s *Snapshot, minify bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if minify {
		data, err = json.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return nil, errors.NewInternalError("failed to marshal snapshot", err)
	}
	return append(data, '\n'), nil
}

// Load reads and validates a snapshot. Any failure, missing file,
// undecodable payload, or schema violation, is a DataLoadError: a server
// must treat it as fatal rather than serve from a broken database.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataLoadError(path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if IsCompressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, errors.NewDataLoadError(path, err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewDataLoadError(path, err)
	}

	return Parse(data, path)
}

// Parse decodes and validates snapshot bytes. The path is only used for
// error reporting.
func Parse(data []byte, path string) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewDataLoadError(path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, errors.NewDataLoadError(path, err)
	}
	return &s, nil
}
