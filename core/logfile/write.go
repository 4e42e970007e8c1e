package logfile

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	coreerrors "github.com/davidahmann/logclean/core/errors"
	"github.com/davidahmann/logclean/core/fsx"
	"github.com/davidahmann/logclean/core/obfuscate"
	"github.com/davidahmann/logclean/core/zipx"
)

// Write stores log at path with script obfuscated under the log's key. The
// archive is only materialized once fully written.
func Write(path string, log Log, script []byte) error {
	normalizedPath, err := normalizeOutputPath(path)
	if err != nil {
		return err
	}
	files := make([]zipx.File, 0, len(log.Entries)+1)
	replaced := false
	obfuscated := obfuscateScript(log, script)
	for _, entry := range log.Entries {
		if entry.Path == log.ScriptEntry {
			files = append(files, zipx.File{Path: entry.Path, Data: obfuscated, Mode: entry.Mode})
			replaced = true
			continue
		}
		files = append(files, entry)
	}
	if !replaced {
		files = append([]zipx.File{{Path: log.ScriptEntry, Data: obfuscated, Mode: 0o644}}, files...)
	}

	if dir := filepath.Dir(normalizedPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return coreerrors.Wrap(fmt.Errorf("create output directory: %w", err), coreerrors.CategoryIOFailure, "log_write_failed", "check output directory permissions", false)
		}
	}
	err = fsx.WriteAtomic(normalizedPath, 0o600, func(writer io.Writer) error {
		return zipx.WriteDeterministicZip(writer, files)
	})
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("write log archive: %w", err), coreerrors.CategoryIOFailure, "log_write_failed", "check output directory permissions and free space", true)
	}
	return nil
}

// obfuscateScript reuses the input key. Plain inputs get a key derived from the
// script digest so output bytes stay deterministic.
func obfuscateScript(log Log, script []byte) []byte {
	key := log.Key
	if !log.Obfuscated {
		sum := sha256.Sum256(script)
		key = sum[0]
	}
	return obfuscate.Obfuscate(script, key)
}

func normalizeOutputPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", coreerrors.Wrap(fmt.Errorf("output path is required"), coreerrors.CategoryInvalidInput, "output_path_required", "pass --out <path>", false)
	}
	resolved, err := filepath.Abs(trimmed)
	if err != nil {
		return "", coreerrors.Wrap(fmt.Errorf("resolve output path: %w", err), coreerrors.CategoryInvalidInput, "output_path_invalid", "pass an absolute --out path", false)
	}
	return resolved, nil
}

// DefaultOutputPath places the cleaned log next to the input with suffix before
// the extension.
func DefaultOutputPath(inputPath string, suffix string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(filepath.Dir(inputPath), stem+suffix+ext)
}
