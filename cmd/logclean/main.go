package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/davidahmann/logclean/core/opslog"
)

// version is stamped at release time via ldflags; default stays dev for local builds.
var version = "0.0.0-dev"

const (
	exitOK              = 0
	exitInternalFailure = 1
	exitVerifyFailed    = 2
	exitBatchFailures   = 5
	exitInvalidInput    = 6
)

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	startedAt := time.Now()
	correlationID := newCorrelationID(arguments)
	setCurrentCorrelationID(correlationID)
	command := normalizeCommand(arguments)
	writeOperationalEventStart(command, correlationID, startedAt.UTC())
	exitCode := runDispatch(arguments)
	writeOperationalEventEnd(command, correlationID, exitCode, time.Since(startedAt), time.Now().UTC())
	setCurrentCorrelationID("")
	return exitCode
}

func runDispatch(arguments []string) int {
	if len(arguments) < 2 {
		printUsage()
		return exitInvalidInput
	}
	if arguments[1] == "--explain" {
		return writeExplain(explainTopLevel)
	}

	switch arguments[1] {
	case "clean":
		return runClean(arguments[2:])
	case "inspect":
		return runInspect(arguments[2:])
	case "batch":
		return runBatch(arguments[2:])
	case "version", "--version", "-v":
		if hasExplainFlag(arguments[2:]) {
			return writeExplain("version")
		}
		fmt.Println("logclean", version)
		return exitOK
	case "help", "--help", "-h":
		printUsage()
		return exitOK
	default:
		printUsage()
		return exitInvalidInput
	}
}

func normalizeCommand(arguments []string) string {
	if len(arguments) < 2 {
		return "usage"
	}
	command := strings.TrimSpace(arguments[1])
	switch command {
	case "":
		return "unknown"
	case "--version", "-v", "version":
		return "version"
	case "--explain":
		return "explain"
	case "clean", "inspect", "batch":
		return command
	default:
		return "unknown"
	}
}

func writeOperationalEventStart(command string, correlationID string, now time.Time) {
	operationalPath := strings.TrimSpace(os.Getenv(opslog.EnvPath))
	if operationalPath == "" {
		return
	}
	event := opslog.NewStartEvent(command, correlationID, version, now)
	reportTelemetryWriteFailure(opslog.Append(operationalPath, event))
}

func writeOperationalEventEnd(command string, correlationID string, exitCode int, elapsed time.Duration, now time.Time) {
	operationalPath := strings.TrimSpace(os.Getenv(opslog.EnvPath))
	if operationalPath == "" {
		return
	}
	category := "none"
	retryable := false
	if exitCode != exitOK {
		resolvedCategory := defaultErrorCategory(exitCode)
		category = string(resolvedCategory)
		retryable = defaultRetryable(resolvedCategory)
	}
	event := opslog.NewEndEvent(command, correlationID, version, exitCode, category, retryable, elapsed, now)
	reportTelemetryWriteFailure(opslog.Append(operationalPath, event))
}

func reportTelemetryWriteFailure(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "logclean warning: operational log write failed: %v\n", err)
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  logclean clean (--input <log> | <log>) [--out <log> | <out>] [--script-entry savedGame] [--no-verify] [--config .logclean/config.yaml] [--json] [--explain]")
	fmt.Println("  logclean inspect --input <log> [--script-entry savedGame] [--config .logclean/config.yaml] [--json] [--explain]")
	fmt.Println("  logclean batch --out-dir <dir> [--workers N] [--ledger <ledger.db>] [--no-verify] [--config .logclean/config.yaml] [--json] [--explain] <log>...")
	fmt.Println("  logclean version")
}
