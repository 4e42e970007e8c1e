package logfile

import (
	"fmt"
	"time"

	coreerrors "github.com/davidahmann/logclean/core/errors"
	"github.com/davidahmann/logclean/core/jcs"
	"github.com/davidahmann/logclean/core/record"
	schemalogclean "github.com/davidahmann/logclean/core/schema/v1/logclean"
	"github.com/davidahmann/logclean/core/script"
)

const inspectReportSchemaID = "logclean.inspect_report"

type InspectOptions struct {
	ReadOptions
	ProducerVersion string
	Now             time.Time
}

// Inspect reports the undo brackets a clean would resolve without writing anything.
// Bracket positions index the flattened script, root first.
func Inspect(path string, options InspectOptions) (schemalogclean.InspectReport, error) {
	log, err := Read(path, options.ReadOptions)
	if err != nil {
		return schemalogclean.InspectReport{}, err
	}
	root, err := script.Decode(log.Script)
	if err != nil {
		return schemalogclean.InspectReport{}, coreerrors.Wrap(fmt.Errorf("decode script: %w", err), coreerrors.CategoryIOFailure, "log_script_invalid", "the script entry is not a valid action script", false)
	}
	digest, err := jcs.DigestJCS(log.Script)
	if err != nil {
		return schemalogclean.InspectReport{}, coreerrors.Wrap(fmt.Errorf("digest script: %w", err), coreerrors.CategoryInternalFailure, "digest_failed", "", false)
	}

	sequence := record.Flatten(root)
	analysis := record.Analyze(sequence)
	actions := 0
	for _, entry := range sequence {
		if entry.IsAction() {
			actions++
		}
	}
	brackets := make([]schemalogclean.Bracket, 0, len(analysis.Brackets))
	for _, bracket := range analysis.Brackets {
		brackets = append(brackets, schemalogclean.Bracket{Start: bracket.Start, End: bracket.End, Undone: bracket.Undone})
	}
	entries := make([]string, 0, len(log.Entries))
	for _, entry := range log.Entries {
		entries = append(entries, entry.Path)
	}

	createdAt := options.Now.UTC()
	if options.Now.IsZero() {
		createdAt = time.Now().UTC()
	}
	return schemalogclean.InspectReport{
		SchemaID:        inspectReportSchemaID,
		SchemaVersion:   reportSchemaVersion,
		CreatedAt:       createdAt,
		ProducerVersion: producerVersion(options.ProducerVersion),
		InputPath:       log.Path,
		ScriptEntry:     log.ScriptEntry,
		Obfuscated:      log.Obfuscated,
		InputDigest:     digest,
		Records:         len(sequence),
		ActionRecords:   actions,
		UndoRecords:     sequence.CountUndo(),
		Brackets:        brackets,
		UnmatchedStarts: analysis.UnmatchedStarts,
		RemovableCount:  analysis.Removed(),
		Entries:         entries,
	}, nil
}
