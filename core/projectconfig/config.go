package projectconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	DefaultPath         = ".logclean/config.yaml"
	DefaultScriptEntry  = "savedGame"
	DefaultOutputSuffix = "_clean"
	DefaultWorkers      = 4
	maxWorkers          = 64
)

type Config struct {
	Archive ArchiveDefaults `yaml:"archive"`
	Clean   CleanDefaults   `yaml:"clean"`
	Batch   BatchDefaults   `yaml:"batch"`
}

type ArchiveDefaults struct {
	ScriptEntry   string `yaml:"script_entry"`
	MaxEntryBytes int64  `yaml:"max_entry_bytes"`
}

type CleanDefaults struct {
	OutputSuffix string `yaml:"output_suffix"`
	Verify       *bool  `yaml:"verify"`
}

type BatchDefaults struct {
	Workers    int    `yaml:"workers"`
	LedgerPath string `yaml:"ledger_path"`
}

// Default returns the configuration used when no project file exists.
func Default() Config {
	configuration := Config{}
	configuration.normalize()
	return configuration
}

func Load(path string, allowMissing bool) (Config, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Config{}, fmt.Errorf("project config path is required")
	}

	// #nosec G304 -- project config path is explicit local user input.
	content, err := os.ReadFile(trimmedPath)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read project config: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return Default(), nil
	}

	var configuration Config
	if err := yaml.Unmarshal(content, &configuration); err != nil {
		return Config{}, fmt.Errorf("parse project config: %w", err)
	}
	if err := configuration.validate(); err != nil {
		return Config{}, err
	}
	configuration.normalize()
	return configuration, nil
}

// VerifyOutput reports whether clean re-reads its output. Defaults to true.
func (configuration Config) VerifyOutput() bool {
	if configuration.Clean.Verify == nil {
		return true
	}
	return *configuration.Clean.Verify
}

func (configuration Config) validate() error {
	if configuration.Archive.MaxEntryBytes < 0 {
		return fmt.Errorf("archive.max_entry_bytes must be >= 0")
	}
	if configuration.Batch.Workers < 0 || configuration.Batch.Workers > maxWorkers {
		return fmt.Errorf("batch.workers must be between 0 and %d", maxWorkers)
	}
	if strings.ContainsAny(configuration.Clean.OutputSuffix, `/\`) {
		return fmt.Errorf("clean.output_suffix must not contain path separators")
	}
	return nil
}

func (configuration *Config) normalize() {
	configuration.Archive.ScriptEntry = strings.TrimSpace(configuration.Archive.ScriptEntry)
	if configuration.Archive.ScriptEntry == "" {
		configuration.Archive.ScriptEntry = DefaultScriptEntry
	}
	configuration.Clean.OutputSuffix = strings.TrimSpace(configuration.Clean.OutputSuffix)
	if configuration.Clean.OutputSuffix == "" {
		configuration.Clean.OutputSuffix = DefaultOutputSuffix
	}
	if configuration.Batch.Workers == 0 {
		configuration.Batch.Workers = DefaultWorkers
	}
	configuration.Batch.LedgerPath = strings.TrimSpace(configuration.Batch.LedgerPath)
}
