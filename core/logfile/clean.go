package logfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	coreerrors "github.com/davidahmann/logclean/core/errors"
	"github.com/davidahmann/logclean/core/jcs"
	"github.com/davidahmann/logclean/core/record"
	schemalogclean "github.com/davidahmann/logclean/core/schema/v1/logclean"
	"github.com/davidahmann/logclean/core/script"
)

const (
	cleanReportSchemaID = "logclean.clean_report"
	reportSchemaVersion = "1.0.0"
)

var ErrNotCleaned = errors.New("log could not be cleaned")

var cleanIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/davidahmann/logclean/clean"))

type CleanOptions struct {
	InputPath       string
	OutputPath      string
	ScriptEntry     string
	MaxEntryBytes   int64
	Verify          bool
	ProducerVersion string
	Now             time.Time
}

type CleanResult struct {
	OutputPath string
	Report     schemalogclean.CleanReport
}

// Clean reads a session log archive, removes every undo episode from its script,
// and writes the compacted log to OutputPath with all metadata entries carried over.
func Clean(options CleanOptions) (CleanResult, error) {
	inputPath := strings.TrimSpace(options.InputPath)
	outputPath := strings.TrimSpace(options.OutputPath)
	if inputPath == "" {
		return CleanResult{}, notCleaned(coreerrors.Wrap(fmt.Errorf("input path is required"), coreerrors.CategoryInvalidInput, "log_path_required", "pass --input <log archive>", false))
	}
	if outputPath == "" {
		return CleanResult{}, notCleaned(coreerrors.Wrap(fmt.Errorf("output path is required"), coreerrors.CategoryInvalidInput, "output_path_required", "pass --out <path>", false))
	}
	if samePath(inputPath, outputPath) {
		return CleanResult{}, notCleaned(coreerrors.Wrap(fmt.Errorf("output path must differ from input path"), coreerrors.CategoryInvalidInput, "output_overwrites_input", "choose a different --out path", false))
	}

	readOptions := ReadOptions{ScriptEntry: options.ScriptEntry, MaxEntryBytes: options.MaxEntryBytes}
	log, err := Read(inputPath, readOptions)
	if err != nil {
		return CleanResult{}, notCleaned(err)
	}
	root, err := script.Decode(log.Script)
	if err != nil {
		return CleanResult{}, notCleaned(coreerrors.Wrap(fmt.Errorf("decode script: %w", err), coreerrors.CategoryIOFailure, "log_script_invalid", "the script entry is not a valid action script", false))
	}
	inputDigest, err := jcs.DigestJCS(log.Script)
	if err != nil {
		return CleanResult{}, notCleaned(coreerrors.Wrap(fmt.Errorf("digest input script: %w", err), coreerrors.CategoryInternalFailure, "digest_failed", "", false))
	}

	result, err := record.Clean(root)
	if err != nil {
		return CleanResult{}, notCleaned(coreerrors.Wrap(err, coreerrors.CategoryInternalFailure, "compact_failed", "", false))
	}
	containerRecord := result.Container.Record()
	encoded, err := script.Encode(&containerRecord)
	if err != nil {
		return CleanResult{}, notCleaned(coreerrors.Wrap(fmt.Errorf("encode script: %w", err), coreerrors.CategoryIOFailure, "log_script_encode_failed", "", false))
	}
	outputDigest, err := jcs.DigestJCS(encoded)
	if err != nil {
		return CleanResult{}, notCleaned(coreerrors.Wrap(fmt.Errorf("digest output script: %w", err), coreerrors.CategoryInternalFailure, "digest_failed", "", false))
	}

	if err := Write(outputPath, log, encoded); err != nil {
		return CleanResult{}, notCleaned(err)
	}
	if options.Verify {
		if err := verifyWritten(outputPath, readOptions, encoded); err != nil {
			return CleanResult{}, notCleaned(err)
		}
	}
	var archiveBytes int64
	if info, err := os.Stat(outputPath); err == nil {
		archiveBytes = info.Size()
	}

	createdAt := options.Now.UTC()
	if options.Now.IsZero() {
		createdAt = time.Now().UTC()
	}
	report := schemalogclean.CleanReport{
		SchemaID:           cleanReportSchemaID,
		SchemaVersion:      reportSchemaVersion,
		CreatedAt:          createdAt,
		ProducerVersion:    producerVersion(options.ProducerVersion),
		CleanID:            CleanID(inputDigest, outputDigest),
		InputPath:          inputPath,
		OutputPath:         outputPath,
		ScriptEntry:        log.ScriptEntry,
		Obfuscated:         log.Obfuscated,
		InputDigest:        inputDigest,
		OutputDigest:       outputDigest,
		InputRecords:       result.InputRecords,
		OutputRecords:      result.Container.Len(),
		RemovedRecords:     result.RemovedRecords,
		BracketCount:       len(result.Brackets),
		UnmatchedStarts:    result.UnmatchedStarts,
		CarriedEntries:     log.MetadataEntries(),
		OutputArchiveBytes: archiveBytes,
	}
	return CleanResult{OutputPath: outputPath, Report: report}, nil
}

// CleanID is stable for a given input and output script pair.
func CleanID(inputDigest string, outputDigest string) string {
	return uuid.NewSHA1(cleanIDNamespace, []byte(inputDigest+":"+outputDigest)).String()
}

func verifyWritten(outputPath string, options ReadOptions, expected []byte) error {
	written, err := Read(outputPath, options)
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("re-read cleaned log: %w", err), coreerrors.CategoryVerification, "clean_verify_failed", "re-run clean; the output may be on a faulty volume", false)
	}
	if !bytes.Equal(written.Script, expected) {
		return coreerrors.Wrap(fmt.Errorf("cleaned log script does not match the encoded output"), coreerrors.CategoryVerification, "clean_verify_failed", "re-run clean; the output may be on a faulty volume", false)
	}
	return nil
}

func notCleaned(err error) error {
	return fmt.Errorf("%w: %w", ErrNotCleaned, err)
}

func samePath(left string, right string) bool {
	leftAbs, leftErr := filepath.Abs(left)
	rightAbs, rightErr := filepath.Abs(right)
	if leftErr != nil || rightErr != nil {
		return filepath.Clean(left) == filepath.Clean(right)
	}
	return leftAbs == rightAbs
}

func producerVersion(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "0.0.0-dev"
	}
	return trimmed
}
