package main

import (
	"fmt"
	"strings"
)

const explainTopLevel = "logclean"

// commandExplanations holds the --explain text for each command. Keys match
// the first positional argument; the top-level entry answers `logclean --explain`.
var commandExplanations = map[string]string{
	explainTopLevel: "logclean removes undo episodes from session log archives: each undo bracket, and the action it reverted, is dropped so replays no longer show moves that were taken back.",
	"clean":         "Remove every undo bracket, and the action it reverted, from a session log and write the compacted log next to it. Metadata entries are carried over unchanged. Cleaning an already cleaned log is a no-op.",
	"inspect":       "Report the undo brackets in a session log and how many records a clean would remove, without writing anything.",
	"batch":         "Clean many session logs concurrently into one output directory. With --ledger, logs already cleaned into the same output path by an earlier batch are skipped.",
	"version":       "Print the CLI version.",
}

func hasExplainFlag(arguments []string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == "--explain" {
			return true
		}
	}
	return false
}

func explainText(command string) string {
	if text, ok := commandExplanations[command]; ok {
		return text
	}
	return commandExplanations[explainTopLevel]
}

func writeExplain(command string) int {
	fmt.Println(explainText(command))
	return exitOK
}
