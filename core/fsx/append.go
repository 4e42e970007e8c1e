package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	lockTimeout    = 30 * time.Second
	lockRetry      = 10 * time.Millisecond
	lockStaleAfter = 2 * time.Minute
)

// AppendLineLocked appends line plus a trailing newline under a sibling .lock file
// so concurrent processes writing the same JSONL stream never interleave records.
func AppendLineLocked(path string, line []byte, mode os.FileMode) error {
	cleanPath, err := ValidateLocalOrAbsolutePath(path)
	if err != nil {
		return err
	}
	parent := filepath.Dir(cleanPath)
	if parent != "." && parent != "" {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return fmt.Errorf("create append directory: %w", err)
		}
	}
	payload := make([]byte, 0, len(line)+1)
	payload = append(payload, line...)
	payload = append(payload, '\n')

	return withFileLock(cleanPath+".lock", func() error {
		// #nosec G304 -- append path is validated local relative or absolute.
		file, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, mode)
		if err != nil {
			return fmt.Errorf("open append file: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()
		if _, err := file.Write(payload); err != nil {
			return fmt.Errorf("append file line: %w", err)
		}
		if err := file.Sync(); err != nil {
			return fmt.Errorf("sync append file: %w", err)
		}
		return nil
	})
}

func withFileLock(lockPath string, fn func() error) error {
	start := time.Now()
	for {
		// #nosec G304 -- lock path is derived from a validated path.
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = lockFile.Close()
			defer func() {
				_ = os.Remove(lockPath)
			}()
			return fn()
		}
		if !os.IsExist(err) {
			if _, statErr := os.Stat(lockPath); !os.IsPermission(err) || statErr != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			_ = os.Remove(lockPath)
			continue
		}
		if time.Since(start) >= lockTimeout {
			return fmt.Errorf("lock timeout: %s", lockPath)
		}
		time.Sleep(lockRetry)
	}
}

// ValidateLocalOrAbsolutePath rejects relative paths that escape the working directory.
func ValidateLocalOrAbsolutePath(path string) (string, error) {
	cleanPath := filepath.Clean(strings.TrimSpace(path))
	if filepath.IsLocal(cleanPath) {
		return cleanPath, nil
	}
	if filepath.IsAbs(cleanPath) {
		return cleanPath, nil
	}
	return "", fmt.Errorf("path must be local relative or absolute: %s", path)
}
