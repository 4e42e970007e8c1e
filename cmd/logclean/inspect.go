package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/davidahmann/logclean/core/logfile"
	schemalogclean "github.com/davidahmann/logclean/core/schema/v1/logclean"
)

type inspectOutput struct {
	OK     bool                          `json:"ok"`
	Path   string                        `json:"path,omitempty"`
	Report *schemalogclean.InspectReport `json:"report,omitempty"`
	errorFields
}

func runInspect(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("inspect")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"input":        true,
		"script-entry": true,
		"config":       true,
	})
	flagSet := flag.NewFlagSet("inspect", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var inputPath string
	var scriptEntry string
	var configPath string
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&inputPath, "input", "", "path to session log archive")
	flagSet.StringVar(&scriptEntry, "script-entry", "", "archive entry holding the action script")
	flagSet.StringVar(&configPath, "config", "", "path to project config")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeInspectOutput(jsonOutput, inspectOutput{errorFields: errorFields{Error: err.Error()}}, exitInvalidInput)
	}
	if helpFlag {
		printInspectUsage()
		return exitOK
	}
	remaining := flagSet.Args()
	if inputPath == "" && len(remaining) == 1 {
		inputPath = remaining[0]
		remaining = nil
	}
	if len(remaining) > 0 || strings.TrimSpace(inputPath) == "" {
		return writeInspectOutput(jsonOutput, inspectOutput{errorFields: errorFields{Error: "expected exactly one log via --input"}}, exitInvalidInput)
	}

	configuration, err := loadProjectConfig(configPath)
	if err != nil {
		return writeInspectOutput(jsonOutput, inspectOutput{errorFields: newErrorFields(err)}, exitCodeForError(err, exitInvalidInput))
	}
	report, err := logfile.Inspect(inputPath, logfile.InspectOptions{
		ReadOptions: logfile.ReadOptions{
			ScriptEntry:   firstNonEmpty(scriptEntry, configuration.Archive.ScriptEntry),
			MaxEntryBytes: configuration.Archive.MaxEntryBytes,
		},
		ProducerVersion: version,
	})
	if err != nil {
		return writeInspectOutput(jsonOutput, inspectOutput{Path: inputPath, errorFields: newErrorFields(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeInspectOutput(jsonOutput, inspectOutput{OK: true, Path: inputPath, Report: &report}, exitOK)
}

func writeInspectOutput(jsonOutput bool, output inspectOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Printf("inspect error: %s\n", output.Error)
		if output.Hint != "" {
			fmt.Printf("hint: %s\n", output.Hint)
		}
		return exitCode
	}
	report := output.Report
	fmt.Printf("inspect: %s\n", output.Path)
	fmt.Printf("script entry: %s (obfuscated=%t)\n", report.ScriptEntry, report.Obfuscated)
	fmt.Printf("records: %d (actions=%d undo=%d)\n", report.Records, report.ActionRecords, report.UndoRecords)
	fmt.Printf("undo brackets: %d, removable records: %d\n", len(report.Brackets), report.RemovableCount)
	for _, bracket := range report.Brackets {
		if bracket.Undone < 0 {
			fmt.Printf("  [%d..%d] no preceding action\n", bracket.Start, bracket.End)
			continue
		}
		fmt.Printf("  [%d..%d] undoes %d\n", bracket.Start, bracket.End, bracket.Undone)
	}
	if len(report.UnmatchedStarts) > 0 {
		fmt.Printf("unmatched undo starts: %s\n", joinInts(report.UnmatchedStarts))
	}
	return exitCode
}

func printInspectUsage() {
	fmt.Println("Usage:")
	fmt.Println("  logclean inspect --input <log> [--script-entry savedGame] [--config .logclean/config.yaml] [--json] [--explain]")
}
