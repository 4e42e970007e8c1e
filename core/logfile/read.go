package logfile

import (
	"fmt"
	"os"
	"strings"

	coreerrors "github.com/davidahmann/logclean/core/errors"
	"github.com/davidahmann/logclean/core/obfuscate"
	"github.com/davidahmann/logclean/core/projectconfig"
	"github.com/davidahmann/logclean/core/zipx"
)

// Log is a session log archive held in memory. Script is the deobfuscated text of
// the script entry; Entries holds every archive entry, the script entry included,
// in archive order so metadata is carried byte-for-byte.
type Log struct {
	Path        string
	ScriptEntry string
	Script      []byte
	Obfuscated  bool
	Key         byte
	Entries     []zipx.File
}

type ReadOptions struct {
	ScriptEntry   string
	MaxEntryBytes int64
}

func (options ReadOptions) scriptEntry() string {
	entry := strings.TrimSpace(options.ScriptEntry)
	if entry == "" {
		return projectconfig.DefaultScriptEntry
	}
	return entry
}

func Read(path string, options ReadOptions) (Log, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Log{}, coreerrors.Wrap(fmt.Errorf("log path is required"), coreerrors.CategoryInvalidInput, "log_path_required", "pass --input <log archive>", false)
	}
	if _, err := os.Stat(trimmedPath); err != nil {
		return Log{}, coreerrors.Wrap(fmt.Errorf("stat log: %w", err), coreerrors.CategoryIOFailure, "log_unreadable", "check that the input path exists and is readable", false)
	}
	entries, err := zipx.ReadFiles(trimmedPath, options.MaxEntryBytes)
	if err != nil {
		return Log{}, coreerrors.Wrap(fmt.Errorf("read log archive: %w", err), coreerrors.CategoryIOFailure, "log_unreadable", "check that the input is a session log archive", false)
	}

	scriptEntry := options.scriptEntry()
	for _, entry := range entries {
		if entry.Path != scriptEntry {
			continue
		}
		plain, key, obfuscated, err := obfuscate.Deobfuscate(entry.Data)
		if err != nil {
			return Log{}, coreerrors.Wrap(fmt.Errorf("deobfuscate %s: %w", scriptEntry, err), coreerrors.CategoryIOFailure, "log_script_unreadable", "the script entry is corrupt", false)
		}
		return Log{
			Path:        trimmedPath,
			ScriptEntry: scriptEntry,
			Script:      plain,
			Obfuscated:  obfuscated,
			Key:         key,
			Entries:     entries,
		}, nil
	}
	return Log{}, coreerrors.Wrap(
		fmt.Errorf("invalid log file format: entry %q not found in %s", scriptEntry, trimmedPath),
		coreerrors.CategoryIOFailure,
		"log_entry_missing",
		"check that the input is a session log archive or set archive.script_entry",
		false,
	)
}

// MetadataEntries lists the names of every entry other than the script.
func (log Log) MetadataEntries() []string {
	names := make([]string, 0, len(log.Entries))
	for _, entry := range log.Entries {
		if entry.Path == log.ScriptEntry {
			continue
		}
		names = append(names, entry.Path)
	}
	return names
}
