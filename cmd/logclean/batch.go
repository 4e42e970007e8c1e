package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/davidahmann/logclean/core/batch"
	schemalogclean "github.com/davidahmann/logclean/core/schema/v1/logclean"
)

type batchOutput struct {
	OK     bool                        `json:"ok"`
	Report *schemalogclean.BatchReport `json:"report,omitempty"`
	errorFields
}

func runBatch(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("batch")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"out-dir":      true,
		"workers":      true,
		"ledger":       true,
		"script-entry": true,
		"config":       true,
	})
	flagSet := flag.NewFlagSet("batch", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var outputDir string
	var workers int
	var ledgerPath string
	var scriptEntry string
	var configPath string
	var noVerify bool
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&outputDir, "out-dir", "", "directory for cleaned logs")
	flagSet.IntVar(&workers, "workers", 0, "concurrent clean pipelines")
	flagSet.StringVar(&ledgerPath, "ledger", "", "path to the cleaned-input ledger")
	flagSet.StringVar(&scriptEntry, "script-entry", "", "archive entry holding the action script")
	flagSet.StringVar(&configPath, "config", "", "path to project config")
	flagSet.BoolVar(&noVerify, "no-verify", false, "skip re-reading written logs")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeBatchOutput(jsonOutput, batchOutput{errorFields: errorFields{Error: err.Error()}}, exitInvalidInput)
	}
	if helpFlag {
		printBatchUsage()
		return exitOK
	}
	if workers < 0 {
		return writeBatchOutput(jsonOutput, batchOutput{errorFields: errorFields{Error: "--workers must be >= 0"}}, exitInvalidInput)
	}
	configuration, err := loadProjectConfig(configPath)
	if err != nil {
		return writeBatchOutput(jsonOutput, batchOutput{errorFields: newErrorFields(err)}, exitCodeForError(err, exitInvalidInput))
	}
	if workers == 0 {
		workers = configuration.Batch.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	report, err := batch.Run(ctx, batch.Options{
		Inputs:          flagSet.Args(),
		OutputDir:       outputDir,
		Workers:         workers,
		LedgerPath:      firstNonEmpty(ledgerPath, configuration.Batch.LedgerPath),
		OutputSuffix:    configuration.Clean.OutputSuffix,
		ScriptEntry:     firstNonEmpty(scriptEntry, configuration.Archive.ScriptEntry),
		MaxEntryBytes:   configuration.Archive.MaxEntryBytes,
		Verify:          configuration.VerifyOutput() && !noVerify,
		ProducerVersion: version,
	})
	if err != nil {
		output := batchOutput{errorFields: newErrorFields(err)}
		if len(report.Items) > 0 {
			output.Report = &report
		}
		return writeBatchOutput(jsonOutput, output, exitCodeForError(err, exitInternalFailure))
	}
	if report.Failed > 0 {
		return writeBatchOutput(jsonOutput, batchOutput{
			Report: &report,
			errorFields: errorFields{
				Error:     fmt.Sprintf("%d of %d logs failed to clean", report.Failed, len(report.Items)),
				ErrorCode: "batch_incomplete",
			},
		}, exitBatchFailures)
	}
	return writeBatchOutput(jsonOutput, batchOutput{OK: true, Report: &report}, exitOK)
}

func writeBatchOutput(jsonOutput bool, output batchOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Report != nil {
		report := output.Report
		for _, item := range report.Items {
			switch item.Status {
			case batch.StatusFailed:
				fmt.Printf("%s %s: %s\n", item.Status, item.InputPath, item.Error)
			default:
				fmt.Printf("%s %s -> %s\n", item.Status, item.InputPath, item.OutputPath)
			}
		}
		fmt.Printf("batch: cleaned=%d skipped=%d failed=%d workers=%d\n", report.Cleaned, report.Skipped, report.Failed, report.Workers)
	}
	if !output.OK {
		fmt.Printf("batch error: %s\n", strings.TrimSpace(output.Error))
		if output.Hint != "" {
			fmt.Printf("hint: %s\n", output.Hint)
		}
	}
	return exitCode
}

func printBatchUsage() {
	fmt.Println("Usage:")
	fmt.Println("  logclean batch --out-dir <dir> [--workers N] [--ledger <ledger.db>] [--script-entry savedGame] [--no-verify] [--config .logclean/config.yaml] [--json] [--explain] <log>...")
}
