package logclean

import (
	"encoding/json"
	"time"
)

type Script struct {
	SchemaID      string      `json:"schema_id"`
	SchemaVersion string      `json:"schema_version"`
	Root          *ScriptNode `json:"root"`
}

type ScriptNode struct {
	Kind       string          `json:"kind"`
	Type       string          `json:"type,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	InProgress *bool           `json:"in_progress,omitempty"`
	Children   []ScriptNode    `json:"children,omitempty"`
}

type Bracket struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Undone int `json:"undone"`
}

type CleanReport struct {
	SchemaID           string    `json:"schema_id"`
	SchemaVersion      string    `json:"schema_version"`
	CreatedAt          time.Time `json:"created_at"`
	ProducerVersion    string    `json:"producer_version"`
	CleanID            string    `json:"clean_id"`
	InputPath          string    `json:"input_path"`
	OutputPath         string    `json:"output_path"`
	ScriptEntry        string    `json:"script_entry"`
	Obfuscated         bool      `json:"obfuscated"`
	InputDigest        string    `json:"input_digest"`
	OutputDigest       string    `json:"output_digest"`
	InputRecords       int       `json:"input_records"`
	OutputRecords      int       `json:"output_records"`
	RemovedRecords     int       `json:"removed_records"`
	BracketCount       int       `json:"bracket_count"`
	UnmatchedStarts    []int     `json:"unmatched_starts,omitempty"`
	CarriedEntries     []string  `json:"carried_entries,omitempty"`
	OutputArchiveBytes int64     `json:"output_archive_bytes"`
}

type InspectReport struct {
	SchemaID        string    `json:"schema_id"`
	SchemaVersion   string    `json:"schema_version"`
	CreatedAt       time.Time `json:"created_at"`
	ProducerVersion string    `json:"producer_version"`
	InputPath       string    `json:"input_path"`
	ScriptEntry     string    `json:"script_entry"`
	Obfuscated      bool      `json:"obfuscated"`
	InputDigest     string    `json:"input_digest"`
	Records         int       `json:"records"`
	ActionRecords   int       `json:"action_records"`
	UndoRecords     int       `json:"undo_records"`
	Brackets        []Bracket `json:"brackets"`
	UnmatchedStarts []int     `json:"unmatched_starts,omitempty"`
	RemovableCount  int       `json:"removable_count"`
	Entries         []string  `json:"entries"`
}

type BatchItem struct {
	InputPath  string       `json:"input_path"`
	OutputPath string       `json:"output_path,omitempty"`
	Status     string       `json:"status"`
	Error      string       `json:"error,omitempty"`
	ErrorCode  string       `json:"error_code,omitempty"`
	Report     *CleanReport `json:"report,omitempty"`
}

type BatchReport struct {
	SchemaID        string      `json:"schema_id"`
	SchemaVersion   string      `json:"schema_version"`
	CreatedAt       time.Time   `json:"created_at"`
	ProducerVersion string      `json:"producer_version"`
	OutputDir       string      `json:"output_dir"`
	Workers         int         `json:"workers"`
	Cleaned         int         `json:"cleaned"`
	Skipped         int         `json:"skipped"`
	Failed          int         `json:"failed"`
	Items           []BatchItem `json:"items"`
}

type OperationalEvent struct {
	SchemaID        string     `json:"schema_id"`
	SchemaVersion   string     `json:"schema_version"`
	CreatedAt       time.Time  `json:"created_at"`
	ProducerVersion string     `json:"producer_version"`
	CorrelationID   string     `json:"correlation_id"`
	Command         string     `json:"command"`
	Phase           string     `json:"phase"`
	ExitCode        int        `json:"exit_code"`
	ErrorCategory   string     `json:"error_category"`
	Retryable       bool       `json:"retryable"`
	ElapsedMS       int64      `json:"elapsed_ms"`
	Environment     EnvContext `json:"environment"`
}

type EnvContext struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
}
