//go:build windows

package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const lockSuffix = ".lock"

// Lock is a best-effort lock on a snapshot output path. Windows has no
// flock; the lock file is advisory only.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock creates the lock file for output. Contention is not
// detected on Windows; the last writer wins.
func AcquireLock(output string) (*Lock, error) {
	if dir := filepath.Dir(output); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	path := output + lockSuffix

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}

	return &Lock{path: path, file: file}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}

	l.file.Close()
	os.Remove(l.path)
}
