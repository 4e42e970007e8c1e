package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	coreerrors "github.com/davidahmann/logclean/core/errors"
	"github.com/davidahmann/logclean/core/jcs"
	"github.com/davidahmann/logclean/core/logfile"
	"github.com/davidahmann/logclean/core/projectconfig"
	schemalogclean "github.com/davidahmann/logclean/core/schema/v1/logclean"
)

const (
	batchReportSchemaID = "logclean.batch_report"
	batchSchemaVersion  = "1.0.0"

	StatusCleaned = "cleaned"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

type Options struct {
	Inputs          []string
	OutputDir       string
	Workers         int
	LedgerPath      string
	OutputSuffix    string
	ScriptEntry     string
	MaxEntryBytes   int64
	Verify          bool
	ProducerVersion string
	Now             time.Time
}

// Run cleans every input into OutputDir using at most Workers concurrent
// pipelines. Per-file failures are reported in the items; the returned error is
// reserved for setup failures and cancellation.
func Run(ctx context.Context, options Options) (schemalogclean.BatchReport, error) {
	inputs := make([]string, 0, len(options.Inputs))
	for _, input := range options.Inputs {
		if trimmed := strings.TrimSpace(input); trimmed != "" {
			inputs = append(inputs, trimmed)
		}
	}
	if len(inputs) == 0 {
		return schemalogclean.BatchReport{}, coreerrors.Wrap(fmt.Errorf("at least one input log is required"), coreerrors.CategoryInvalidInput, "batch_inputs_required", "pass one or more log paths", false)
	}
	outputDir := strings.TrimSpace(options.OutputDir)
	if outputDir == "" {
		return schemalogclean.BatchReport{}, coreerrors.Wrap(fmt.Errorf("output directory is required"), coreerrors.CategoryInvalidInput, "batch_out_dir_required", "pass --out-dir <dir>", false)
	}
	workers := options.Workers
	if workers <= 0 {
		workers = projectconfig.DefaultWorkers
	}
	suffix := options.OutputSuffix
	if suffix == "" {
		suffix = projectconfig.DefaultOutputSuffix
	}
	outputs, err := planOutputs(inputs, outputDir, suffix)
	if err != nil {
		return schemalogclean.BatchReport{}, err
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return schemalogclean.BatchReport{}, coreerrors.Wrap(fmt.Errorf("create output directory: %w", err), coreerrors.CategoryIOFailure, "batch_out_dir_failed", "check output directory permissions", false)
	}

	var ledger *Ledger
	if strings.TrimSpace(options.LedgerPath) != "" {
		ledger, err = OpenLedger(options.LedgerPath)
		if err != nil {
			return schemalogclean.BatchReport{}, err
		}
		defer func() {
			_ = ledger.Close()
		}()
	}

	now := options.Now.UTC()
	if options.Now.IsZero() {
		now = time.Now().UTC()
	}
	items := make([]schemalogclean.BatchItem, len(inputs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for index := range inputs {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				items[index] = failedItem(inputs[index], outputs[index], err)
				return err
			}
			item, err := cleanOne(inputs[index], outputs[index], ledger, options, now)
			items[index] = item
			return err
		})
	}
	waitErr := group.Wait()
	for index, item := range items {
		if item.Status == "" {
			items[index] = failedItem(inputs[index], outputs[index], context.Canceled)
		}
	}

	report := schemalogclean.BatchReport{
		SchemaID:        batchReportSchemaID,
		SchemaVersion:   batchSchemaVersion,
		CreatedAt:       now,
		ProducerVersion: options.ProducerVersion,
		OutputDir:       outputDir,
		Workers:         workers,
		Items:           items,
	}
	if strings.TrimSpace(report.ProducerVersion) == "" {
		report.ProducerVersion = "0.0.0-dev"
	}
	for _, item := range items {
		switch item.Status {
		case StatusCleaned:
			report.Cleaned++
		case StatusSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	if waitErr != nil {
		return report, waitErr
	}
	return report, nil
}

// cleanOne returns an error only for ledger failures, which abort the batch.
func cleanOne(inputPath string, outputPath string, ledger *Ledger, options Options, now time.Time) (schemalogclean.BatchItem, error) {
	var inputDigest string
	if ledger != nil {
		// #nosec G304 -- input path is explicit local user input.
		raw, err := os.ReadFile(inputPath)
		if err != nil {
			wrapped := coreerrors.Wrap(fmt.Errorf("read input: %w", err), coreerrors.CategoryIOFailure, "log_unreadable", "", false)
			return failedItem(inputPath, outputPath, wrapped), nil
		}
		inputDigest = jcs.DigestBytes(raw)
		entry, found, err := ledger.Lookup(inputDigest)
		if err != nil {
			return failedItem(inputPath, outputPath, err), err
		}
		// A hit only counts when it produced the output this run plans to write;
		// a new --out-dir or suffix recleans.
		if found && sameFile(entry.OutputPath, outputPath) && fileExists(entry.OutputPath) {
			return schemalogclean.BatchItem{InputPath: inputPath, OutputPath: entry.OutputPath, Status: StatusSkipped}, nil
		}
	}

	result, err := logfile.Clean(logfile.CleanOptions{
		InputPath:       inputPath,
		OutputPath:      outputPath,
		ScriptEntry:     options.ScriptEntry,
		MaxEntryBytes:   options.MaxEntryBytes,
		Verify:          options.Verify,
		ProducerVersion: options.ProducerVersion,
		Now:             now,
	})
	if err != nil {
		return failedItem(inputPath, outputPath, err), nil
	}
	report := result.Report
	if ledger != nil {
		if err := ledger.Record(LedgerEntry{
			InputDigest:  inputDigest,
			InputPath:    inputPath,
			OutputPath:   result.OutputPath,
			OutputDigest: report.OutputDigest,
			CleanID:      report.CleanID,
			CleanedAt:    now,
		}); err != nil {
			return failedItem(inputPath, outputPath, err), err
		}
	}
	return schemalogclean.BatchItem{
		InputPath:  inputPath,
		OutputPath: result.OutputPath,
		Status:     StatusCleaned,
		Report:     &report,
	}, nil
}

func planOutputs(inputs []string, outputDir string, suffix string) ([]string, error) {
	outputs := make([]string, len(inputs))
	claimed := make(map[string]string, len(inputs))
	for index, input := range inputs {
		output := logfile.DefaultOutputPath(filepath.Join(outputDir, filepath.Base(input)), suffix)
		if previous, exists := claimed[output]; exists {
			return nil, coreerrors.Wrap(
				fmt.Errorf("inputs %s and %s map to the same output %s", previous, input, output),
				coreerrors.CategoryInvalidInput,
				"batch_output_collision",
				"rename one of the inputs or clean them in separate batches",
				false,
			)
		}
		claimed[output] = input
		outputs[index] = output
	}
	return outputs, nil
}

func failedItem(inputPath string, outputPath string, err error) schemalogclean.BatchItem {
	return schemalogclean.BatchItem{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Status:     StatusFailed,
		Error:      err.Error(),
		ErrorCode:  coreerrors.CodeOf(err),
	}
}

func sameFile(left string, right string) bool {
	leftAbs, leftErr := filepath.Abs(left)
	rightAbs, rightErr := filepath.Abs(right)
	if leftErr != nil || rightErr != nil {
		return filepath.Clean(left) == filepath.Clean(right)
	}
	return leftAbs == rightAbs
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
