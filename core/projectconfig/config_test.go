package projectconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAllowMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	configuration, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load allow missing: %v", err)
	}
	if configuration.Archive.ScriptEntry != DefaultScriptEntry {
		t.Fatalf("expected default script entry, got %q", configuration.Archive.ScriptEntry)
	}
	if configuration.Batch.Workers != DefaultWorkers {
		t.Fatalf("expected default workers, got %d", configuration.Batch.Workers)
	}
	if !configuration.VerifyOutput() {
		t.Fatalf("expected verify default true")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := Load(path, false); err == nil {
		t.Fatal("expected missing required config error")
	}
	if _, err := Load("  ", true); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
archive:
  script_entry: " savedLog "
  max_entry_bytes: 1048576
clean:
  output_suffix: " -final "
  verify: false
batch:
  workers: 8
  ledger_path: " ./.logclean/ledger.db "
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	configuration, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load parse: %v", err)
	}
	if configuration.Archive.ScriptEntry != "savedLog" {
		t.Fatalf("unexpected script_entry %q", configuration.Archive.ScriptEntry)
	}
	if configuration.Archive.MaxEntryBytes != 1048576 {
		t.Fatalf("unexpected max_entry_bytes %d", configuration.Archive.MaxEntryBytes)
	}
	if configuration.Clean.OutputSuffix != "-final" {
		t.Fatalf("unexpected output_suffix %q", configuration.Clean.OutputSuffix)
	}
	if configuration.VerifyOutput() {
		t.Fatalf("expected verify=false")
	}
	if configuration.Batch.Workers != 8 {
		t.Fatalf("unexpected workers %d", configuration.Batch.Workers)
	}
	if configuration.Batch.LedgerPath != "./.logclean/ledger.db" {
		t.Fatalf("unexpected ledger_path %q", configuration.Batch.LedgerPath)
	}
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("\n  \n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	configuration, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if configuration.Clean.OutputSuffix != DefaultOutputSuffix {
		t.Fatalf("unexpected suffix %q", configuration.Clean.OutputSuffix)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := map[string]string{
		"bad_yaml":       "archive: [",
		"negative_bytes": "archive:\n  max_entry_bytes: -1\n",
		"too_many":       "batch:\n  workers: 1000\n",
		"suffix_path":    "clean:\n  output_suffix: ../x\n",
	}
	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path, false); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}
