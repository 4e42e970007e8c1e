package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/davidahmann/logclean/core/logfile"
	schemalogclean "github.com/davidahmann/logclean/core/schema/v1/logclean"
)

type cleanOutput struct {
	OK     bool                        `json:"ok"`
	Path   string                      `json:"path,omitempty"`
	Report *schemalogclean.CleanReport `json:"report,omitempty"`
	errorFields
}

func runClean(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("clean")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"input":        true,
		"out":          true,
		"script-entry": true,
		"config":       true,
	})
	flagSet := flag.NewFlagSet("clean", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var inputPath string
	var outputPath string
	var scriptEntry string
	var configPath string
	var noVerify bool
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&inputPath, "input", "", "path to session log archive")
	flagSet.StringVar(&outputPath, "out", "", "path for the cleaned log (default <input>_clean)")
	flagSet.StringVar(&scriptEntry, "script-entry", "", "archive entry holding the action script")
	flagSet.StringVar(&configPath, "config", "", "path to project config")
	flagSet.BoolVar(&noVerify, "no-verify", false, "skip re-reading the written log")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeCleanOutput(jsonOutput, cleanOutput{errorFields: errorFields{Error: err.Error()}}, exitInvalidInput)
	}
	if helpFlag {
		printCleanUsage()
		return exitOK
	}
	remaining := flagSet.Args()
	if inputPath == "" && len(remaining) > 0 {
		inputPath, remaining = remaining[0], remaining[1:]
	}
	if outputPath == "" && len(remaining) > 0 {
		outputPath, remaining = remaining[0], remaining[1:]
	}
	if len(remaining) > 0 {
		return writeCleanOutput(jsonOutput, cleanOutput{errorFields: errorFields{Error: "unexpected positional arguments: " + strings.Join(remaining, " ")}}, exitInvalidInput)
	}
	if strings.TrimSpace(inputPath) == "" {
		return writeCleanOutput(jsonOutput, cleanOutput{errorFields: errorFields{Error: "--input is required"}}, exitInvalidInput)
	}

	configuration, err := loadProjectConfig(configPath)
	if err != nil {
		return writeCleanOutput(jsonOutput, cleanOutput{errorFields: newErrorFields(err)}, exitCodeForError(err, exitInvalidInput))
	}
	if strings.TrimSpace(outputPath) == "" {
		outputPath = logfile.DefaultOutputPath(inputPath, configuration.Clean.OutputSuffix)
	}

	result, err := logfile.Clean(logfile.CleanOptions{
		InputPath:       inputPath,
		OutputPath:      outputPath,
		ScriptEntry:     firstNonEmpty(scriptEntry, configuration.Archive.ScriptEntry),
		MaxEntryBytes:   configuration.Archive.MaxEntryBytes,
		Verify:          configuration.VerifyOutput() && !noVerify,
		ProducerVersion: version,
	})
	if err != nil {
		return writeCleanOutput(jsonOutput, cleanOutput{Path: inputPath, errorFields: newErrorFields(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeCleanOutput(jsonOutput, cleanOutput{OK: true, Path: result.OutputPath, Report: &result.Report}, exitOK)
}

func writeCleanOutput(jsonOutput bool, output cleanOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Printf("clean error: %s\n", output.Error)
		if output.Hint != "" {
			fmt.Printf("hint: %s\n", output.Hint)
		}
		return exitCode
	}
	report := output.Report
	fmt.Printf("clean ok: %s\n", output.Path)
	fmt.Printf("records: %d in, %d removed, %d out\n", report.InputRecords, report.RemovedRecords, report.OutputRecords)
	fmt.Printf("undo brackets: %d\n", report.BracketCount)
	if len(report.UnmatchedStarts) > 0 {
		fmt.Printf("unmatched undo starts kept at: %s\n", joinInts(report.UnmatchedStarts))
	}
	if len(report.CarriedEntries) > 0 {
		fmt.Printf("carried entries: %s\n", strings.Join(report.CarriedEntries, ", "))
	}
	return exitCode
}

func printCleanUsage() {
	fmt.Println("Usage:")
	fmt.Println("  logclean clean (--input <log> | <log>) [--out <log> | <out>] [--script-entry savedGame] [--no-verify] [--config .logclean/config.yaml] [--json] [--explain]")
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		parts = append(parts, fmt.Sprint(value))
	}
	return strings.Join(parts, ", ")
}
