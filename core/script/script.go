package script

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"github.com/davidahmann/logclean/core/record"
	schemalogclean "github.com/davidahmann/logclean/core/schema/v1/logclean"
)

const (
	SchemaID      = "logclean.script"
	SchemaVersion = "1.0.0"
)

//go:embed script.schema.json
var schemaBytes []byte

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, compileErr = compiler.Compile(schemaBytes)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile script schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate checks data against the embedded script schema.
func Validate(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("script schema validation failed: %v", result.Errors)
}

// Decode validates and parses a textual script into a record tree. A null root
// decodes to a nil record.
func Decode(data []byte) (*record.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("script is empty")
	}
	if err := Validate(trimmed); err != nil {
		return nil, err
	}
	var document schemalogclean.Script
	if err := json.Unmarshal(trimmed, &document); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if document.Root == nil {
		return nil, nil
	}
	root, err := nodeToRecord(*document.Root, "root")
	if err != nil {
		return nil, err
	}
	return &root, nil
}

// Encode renders a record tree as a script. Output is deterministic for a given tree.
func Encode(root *record.Record) ([]byte, error) {
	document := schemalogclean.Script{
		SchemaID:      SchemaID,
		SchemaVersion: SchemaVersion,
	}
	if root != nil {
		node, err := recordToNode(*root, "root")
		if err != nil {
			return nil, err
		}
		document.Root = &node
	}
	encoded, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	return append(encoded, '\n'), nil
}

func nodeToRecord(node schemalogclean.ScriptNode, location string) (record.Record, error) {
	converted := record.Record{Type: node.Type}
	switch strings.TrimSpace(node.Kind) {
	case "action":
		converted.Kind = record.KindAction
	case "undo":
		if node.InProgress == nil {
			return record.Record{}, fmt.Errorf("%s: undo record missing in_progress", location)
		}
		converted.Kind = record.KindUndo
		converted.InProgress = *node.InProgress
	case "other":
		converted.Kind = record.KindOther
	case "container":
		converted.Kind = record.KindContainer
	default:
		return record.Record{}, fmt.Errorf("%s: unsupported record kind %q", location, node.Kind)
	}
	if len(node.Payload) > 0 {
		converted.Payload = append([]byte(nil), node.Payload...)
	}
	if len(node.Children) > 0 {
		converted.Children = make([]record.Record, 0, len(node.Children))
		for index, child := range node.Children {
			childRecord, err := nodeToRecord(child, fmt.Sprintf("%s.children[%d]", location, index))
			if err != nil {
				return record.Record{}, err
			}
			converted.Children = append(converted.Children, childRecord)
		}
	}
	return converted, nil
}

func recordToNode(source record.Record, location string) (schemalogclean.ScriptNode, error) {
	node := schemalogclean.ScriptNode{
		Kind: source.Kind.String(),
		Type: source.Type,
	}
	if source.Kind == record.KindUndo {
		inProgress := source.InProgress
		node.InProgress = &inProgress
	}
	if len(source.Payload) > 0 {
		if !json.Valid(source.Payload) {
			return schemalogclean.ScriptNode{}, fmt.Errorf("%s: payload is not valid JSON", location)
		}
		node.Payload = json.RawMessage(source.Payload)
	}
	for index, child := range source.Children {
		childNode, err := recordToNode(child, fmt.Sprintf("%s.children[%d]", location, index))
		if err != nil {
			return schemalogclean.ScriptNode{}, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}
