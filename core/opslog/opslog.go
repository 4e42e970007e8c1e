package opslog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	coreerrors "github.com/davidahmann/logclean/core/errors"
	"github.com/davidahmann/logclean/core/fsx"
	schemalogclean "github.com/davidahmann/logclean/core/schema/v1/logclean"
)

const (
	EnvPath = "LOGCLEAN_OPERATIONAL_LOG"

	eventSchemaID      = "logclean.operational_event"
	eventSchemaVersion = "1.0.0"
	maxLineBytes       = 1024 * 1024

	PhaseStart = "start"
	PhaseEnd   = "end"
)

func NewStartEvent(command string, correlationID string, producerVersion string, now time.Time) schemalogclean.OperationalEvent {
	return newEvent(command, correlationID, producerVersion, PhaseStart, 0, "none", false, 0, now)
}

func NewEndEvent(
	command string,
	correlationID string,
	producerVersion string,
	exitCode int,
	errorCategory string,
	retryable bool,
	elapsed time.Duration,
	now time.Time,
) schemalogclean.OperationalEvent {
	elapsedMS := max(elapsed.Milliseconds(), 0)
	return newEvent(command, correlationID, producerVersion, PhaseEnd, exitCode, errorCategory, retryable, elapsedMS, now)
}

// Append writes one event as a JSONL line. Concurrent logclean processes may
// share the same stream.
func Append(path string, event schemalogclean.OperationalEvent) error {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return fmt.Errorf("operational log path is required")
	}
	normalized, err := normalize(event)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("marshal operational event: %w", err)
	}
	if err := fsx.AppendLineLocked(trimmedPath, encoded, 0o600); err != nil {
		return fmt.Errorf("append operational event: %w", err)
	}
	return nil
}

func Load(path string) ([]schemalogclean.OperationalEvent, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, fmt.Errorf("operational log path is required")
	}
	// #nosec G304 -- operational log path is explicit local user input.
	file, err := os.Open(trimmedPath)
	if err != nil {
		return nil, fmt.Errorf("open operational log: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	events := make([]schemalogclean.OperationalEvent, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var event schemalogclean.OperationalEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return nil, fmt.Errorf("parse operational log line %d: %w", line, err)
		}
		normalized, err := normalize(event)
		if err != nil {
			return nil, fmt.Errorf("validate operational log line %d: %w", line, err)
		}
		events = append(events, normalized)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan operational log: %w", err)
	}
	return events, nil
}

func normalize(event schemalogclean.OperationalEvent) (schemalogclean.OperationalEvent, error) {
	if strings.TrimSpace(event.SchemaID) != eventSchemaID {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("invalid schema_id %q", event.SchemaID)
	}
	if strings.TrimSpace(event.SchemaVersion) != eventSchemaVersion {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("invalid schema_version %q", event.SchemaVersion)
	}
	if event.CreatedAt.IsZero() {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("created_at is required")
	}
	if strings.TrimSpace(event.ProducerVersion) == "" {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("producer_version is required")
	}
	if strings.TrimSpace(event.CorrelationID) == "" {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("correlation_id is required")
	}
	if strings.TrimSpace(event.Command) == "" {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("command is required")
	}
	phase := strings.ToLower(strings.TrimSpace(event.Phase))
	if phase != PhaseStart && phase != PhaseEnd {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("phase must be start or end")
	}
	if event.ExitCode < 0 || event.ExitCode > 255 {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("exit_code out of range")
	}
	if event.ElapsedMS < 0 {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("elapsed_ms out of range")
	}
	category := strings.ToLower(strings.TrimSpace(event.ErrorCategory))
	if category == "" {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("error_category is required")
	}
	if category != "none" && !slices.Contains(coreerrors.Categories(), coreerrors.Category(category)) {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("unsupported error_category %q", event.ErrorCategory)
	}
	if strings.TrimSpace(event.Environment.OS) == "" || strings.TrimSpace(event.Environment.Arch) == "" {
		return schemalogclean.OperationalEvent{}, fmt.Errorf("environment os/arch are required")
	}

	return schemalogclean.OperationalEvent{
		SchemaID:        eventSchemaID,
		SchemaVersion:   eventSchemaVersion,
		CreatedAt:       event.CreatedAt.UTC(),
		ProducerVersion: strings.TrimSpace(event.ProducerVersion),
		CorrelationID:   strings.TrimSpace(event.CorrelationID),
		Command:         strings.TrimSpace(event.Command),
		Phase:           phase,
		ExitCode:        event.ExitCode,
		ErrorCategory:   category,
		Retryable:       event.Retryable,
		ElapsedMS:       event.ElapsedMS,
		Environment: schemalogclean.EnvContext{
			OS:   strings.TrimSpace(event.Environment.OS),
			Arch: strings.TrimSpace(event.Environment.Arch),
		},
	}, nil
}

func newEvent(
	command string,
	correlationID string,
	producerVersion string,
	phase string,
	exitCode int,
	errorCategory string,
	retryable bool,
	elapsedMS int64,
	now time.Time,
) schemalogclean.OperationalEvent {
	createdAt := now.UTC()
	if now.IsZero() {
		createdAt = time.Now().UTC()
	}
	return schemalogclean.OperationalEvent{
		SchemaID:        eventSchemaID,
		SchemaVersion:   eventSchemaVersion,
		CreatedAt:       createdAt,
		ProducerVersion: orDefault(producerVersion, "0.0.0-dev"),
		CorrelationID:   orDefault(correlationID, "unknown"),
		Command:         orDefault(command, "unknown"),
		Phase:           strings.ToLower(orDefault(phase, PhaseEnd)),
		ExitCode:        exitCode,
		ErrorCategory:   strings.ToLower(orDefault(errorCategory, "none")),
		Retryable:       retryable,
		ElapsedMS:       elapsedMS,
		Environment: schemalogclean.EnvContext{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}
}

func orDefault(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
