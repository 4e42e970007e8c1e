package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/davidahmann/logclean/core/obfuscate"
	"github.com/davidahmann/logclean/core/projectconfig"
	"github.com/davidahmann/logclean/core/record"
	"github.com/davidahmann/logclean/core/script"
	"github.com/davidahmann/logclean/core/zipx"
)

func RepoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("unable to locate testutil source file")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

func BuildLogcleanBinary(t *testing.T, root string) string {
	t.Helper()
	binName := "logclean"
	if runtime.GOOS == "windows" {
		binName = "logclean.exe"
	}
	binPath := filepath.Join(t.TempDir(), binName)

	// #nosec G204 -- arguments are fixed and used only in test binaries.
	build := exec.Command("go", "build", "-o", binPath, "./cmd/logclean")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build logclean binary: %v\n%s", err, string(out))
	}
	return binPath
}

func CommandExitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected command exit error, got: %v", err)
	}
	return exitErr.ExitCode()
}

func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path) // #nosec G304 -- test helper for controlled paths.
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return content
}

type SessionLogOptions struct {
	Plain       bool
	Key         byte
	ScriptEntry string
	Metadata    []zipx.File
}

// DefaultMetadata mimics the descriptor entries a session log carries next to its script.
func DefaultMetadata() []zipx.File {
	return []zipx.File{
		{Path: "savedata", Data: []byte(`<?xml version="1.0"?><data version="1"><description>turn 3</description></data>`)},
		{Path: "moduledata", Data: []byte(`<?xml version="1.0"?><data><name>Battle for Moscow</name></data>`)},
	}
}

// WriteSessionLog encodes root as a script and stores it in a log archive at path.
func WriteSessionLog(t *testing.T, path string, root *record.Record, options SessionLogOptions) {
	t.Helper()
	encoded, err := script.Encode(root)
	if err != nil {
		t.Fatalf("encode script: %v", err)
	}
	WriteRawSessionLog(t, path, encoded, options)
}

func WriteRawSessionLog(t *testing.T, path string, scriptText []byte, options SessionLogOptions) {
	t.Helper()
	entry := options.ScriptEntry
	if entry == "" {
		entry = projectconfig.DefaultScriptEntry
	}
	data := scriptText
	if !options.Plain {
		data = obfuscate.Obfuscate(scriptText, options.Key)
	}
	files := append([]zipx.File{{Path: entry, Data: data}}, options.Metadata...)
	var buffer bytes.Buffer
	if err := zipx.WriteDeterministicZip(&buffer, files); err != nil {
		t.Fatalf("write session log zip: %v", err)
	}
	WriteFile(t, path, buffer.Bytes())
}

// ReadZipEntries returns raw entry bytes keyed by name.
func ReadZipEntries(t *testing.T, path string) map[string][]byte {
	t.Helper()
	zipReader, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip %s: %v", path, err)
	}
	defer func() {
		_ = zipReader.Close()
	}()
	entries := make(map[string][]byte, len(zipReader.File))
	for _, zipFile := range zipReader.File {
		rc, err := zipFile.Open()
		if err != nil {
			t.Fatalf("open zip entry: %v", err)
		}
		data, err := io.ReadAll(rc)
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			t.Fatalf("read zip entry: %v", err)
		}
		entries[zipFile.Name] = data
	}
	return entries
}

// ReadSessionScript returns the decoded script tree stored in a log archive.
func ReadSessionScript(t *testing.T, path string) *record.Record {
	t.Helper()
	entries := ReadZipEntries(t, path)
	raw, ok := entries[projectconfig.DefaultScriptEntry]
	if !ok {
		t.Fatalf("missing %s entry in %s", projectconfig.DefaultScriptEntry, path)
	}
	plain, _, _, err := obfuscate.Deobfuscate(raw)
	if err != nil {
		t.Fatalf("deobfuscate script: %v", err)
	}
	root, err := script.Decode(plain)
	if err != nil {
		t.Fatalf("decode script: %v", err)
	}
	return root
}

func FormatJSON(raw []byte) string {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return string(raw)
	}
	encoded, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return string(raw)
	}
	return fmt.Sprintf("%s\n", string(encoded))
}
