package e2e

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davidahmann/logclean/core/opslog"
	"github.com/davidahmann/logclean/core/record"
	"github.com/davidahmann/logclean/internal/testutil"
)

func TestCLICleanInspectRoundTrip(t *testing.T) {
	binPath := testutil.BuildLogcleanBinary(t, testutil.RepoRoot(t))
	workDir := t.TempDir()
	inputPath := filepath.Join(workDir, "moscow.vlog")
	root := record.Other("begin_save", []byte(`{"module":"Battle for Moscow"}`),
		record.Action("move", []byte(`{"to":"E5"}`)),
		record.UndoStart(),
		record.UndoEnd(),
		record.Action("move", []byte(`{"to":"E4"}`)),
		record.UndoStart(),
		record.Other("chat", []byte(`"oops"`)),
		record.UndoEnd(),
		record.Action("attack", []byte(`{"odds":"3:1"}`)),
		record.UndoStart(),
	)
	testutil.WriteSessionLog(t, inputPath, &root, testutil.SessionLogOptions{Key: 0x3c, Metadata: testutil.DefaultMetadata()})

	inspect := exec.Command(binPath, "inspect", "--input", inputPath, "--json")
	inspect.Dir = workDir
	inspectOut, err := inspect.CombinedOutput()
	if err != nil {
		t.Fatalf("logclean inspect failed: %v\n%s", err, string(inspectOut))
	}
	var inspectResult struct {
		OK     bool `json:"ok"`
		Report struct {
			Records         int   `json:"records"`
			RemovableCount  int   `json:"removable_count"`
			UnmatchedStarts []int `json:"unmatched_starts"`
		} `json:"report"`
	}
	if err := json.Unmarshal(inspectOut, &inspectResult); err != nil {
		t.Fatalf("decode inspect output: %v\n%s", err, string(inspectOut))
	}
	if !inspectResult.OK || inspectResult.Report.Records != 10 || inspectResult.Report.RemovableCount != 7 {
		t.Fatalf("unexpected inspect output: %s", testutil.FormatJSON(inspectOut))
	}
	if len(inspectResult.Report.UnmatchedStarts) != 1 || inspectResult.Report.UnmatchedStarts[0] != 9 {
		t.Fatalf("expected trailing unmatched start: %s", testutil.FormatJSON(inspectOut))
	}

	clean := exec.Command(binPath, "clean", "--input", inputPath)
	clean.Dir = workDir
	cleanOut, err := clean.CombinedOutput()
	if err != nil {
		t.Fatalf("logclean clean failed: %v\n%s", err, string(cleanOut))
	}
	if !strings.Contains(string(cleanOut), "records: 10 in, 7 removed, 3 out") {
		t.Fatalf("unexpected clean output: %s", string(cleanOut))
	}

	outputPath := filepath.Join(workDir, "moscow_clean.vlog")
	cleaned := testutil.ReadSessionScript(t, outputPath)
	want := []record.Record{
		{Kind: record.KindOther, Type: "begin_save", Payload: []byte(`{"module":"Battle for Moscow"}`)},
		record.Action("attack", []byte(`{"odds":"3:1"}`)),
		record.UndoStart(),
	}
	if len(cleaned.Children) != len(want) {
		t.Fatalf("expected %d survivors got %d", len(want), len(cleaned.Children))
	}
	for index := range want {
		if !cleaned.Children[index].Equal(want[index]) {
			t.Fatalf("survivor %d mismatch: %#v", index, cleaned.Children[index])
		}
	}
	inputEntries := testutil.ReadZipEntries(t, inputPath)
	outputEntries := testutil.ReadZipEntries(t, outputPath)
	for _, name := range []string{"savedata", "moduledata"} {
		if !bytes.Equal(inputEntries[name], outputEntries[name]) {
			t.Fatalf("metadata entry %s not carried unchanged", name)
		}
	}
	if !bytes.HasPrefix(outputEntries["savedGame"], []byte("!VCSK3c")) {
		t.Fatalf("expected script obfuscated with the input key")
	}

	again := exec.Command(binPath, "clean", "--input", outputPath, "--json")
	again.Dir = workDir
	againOut, err := again.CombinedOutput()
	if err != nil {
		t.Fatalf("logclean clean of cleaned log failed: %v\n%s", err, string(againOut))
	}
	if !strings.Contains(string(againOut), `"removed_records":0`) {
		t.Fatalf("expected clean to be idempotent: %s", string(againOut))
	}
}

func TestCLIBatchAndOperationalLog(t *testing.T) {
	binPath := testutil.BuildLogcleanBinary(t, testutil.RepoRoot(t))
	workDir := t.TempDir()
	inputs := []string{filepath.Join(workDir, "a.vlog"), filepath.Join(workDir, "b.vlog")}
	for index, input := range inputs {
		root := record.Other("begin_save", nil,
			record.Action("move", []byte(`{"n":1}`)),
			record.UndoStart(),
			record.UndoEnd(),
		)
		testutil.WriteSessionLog(t, input, &root, testutil.SessionLogOptions{Key: byte(index + 1)})
	}
	opsPath := filepath.Join(workDir, "ops.jsonl")

	args := append([]string{"batch", "--out-dir", filepath.Join(workDir, "out"), "--ledger", filepath.Join(workDir, "ledger.db"), "--json"}, inputs...)
	batch := exec.Command(binPath, args...)
	batch.Dir = workDir
	batch.Env = append(batch.Environ(), opslog.EnvPath+"="+opsPath)
	batchOut, err := batch.CombinedOutput()
	if err != nil {
		t.Fatalf("logclean batch failed: %v\n%s", err, string(batchOut))
	}
	if !strings.Contains(string(batchOut), `"cleaned":2`) {
		t.Fatalf("unexpected batch output: %s", string(batchOut))
	}

	broken := exec.Command(binPath, "batch", "--out-dir", filepath.Join(workDir, "out"), filepath.Join(workDir, "missing.vlog"))
	broken.Dir = workDir
	broken.Env = append(broken.Environ(), opslog.EnvPath+"="+opsPath)
	brokenOut, err := broken.CombinedOutput()
	if err == nil {
		t.Fatalf("expected batch with missing input to fail: %s", string(brokenOut))
	}
	if code := testutil.CommandExitCode(t, err); code != 5 {
		t.Fatalf("expected exit code 5 got %d: %s", code, string(brokenOut))
	}

	events, err := opslog.Load(opsPath)
	if err != nil {
		t.Fatalf("load operational log: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 operational events got %d", len(events))
	}
	if events[1].ExitCode != 0 || events[3].ExitCode != 5 || events[3].ErrorCategory != "io_failure" {
		t.Fatalf("unexpected operational events: %#v", events)
	}
}
