package main

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	coreerrors "github.com/davidahmann/logclean/core/errors"
)

func TestMarshalOutputWithErrorEnvelope(t *testing.T) {
	setCurrentCorrelationID("cid-test")
	t.Cleanup(func() {
		setCurrentCorrelationID("")
	})
	encoded, err := marshalOutputWithErrorEnvelope(map[string]any{"ok": false, "error": "boom"}, exitInvalidInput)
	if err != nil {
		t.Fatalf("marshalOutputWithErrorEnvelope error: %v", err)
	}
	result := string(encoded)
	for _, fragment := range []string{
		`"error_code":"invalid_input"`,
		`"error_category":"invalid_input"`,
		`"retryable":false`,
		`"hint":"check command usage and input paths"`,
		`"correlation_id":"cid-test"`,
	} {
		if !strings.Contains(result, fragment) {
			t.Fatalf("missing %s in output: %s", fragment, result)
		}
	}
}

func TestMarshalOutputKeepsClassifiedFields(t *testing.T) {
	cause := coreerrors.Wrap(stderrors.New("ledger busy"), coreerrors.CategoryStateContention, "ledger_locked", "wait for the other batch", true)
	output := cleanOutput{errorFields: newErrorFields(fmt.Errorf("open: %w", cause))}
	encoded, err := marshalOutputWithErrorEnvelope(output, exitInternalFailure)
	if err != nil {
		t.Fatalf("marshalOutputWithErrorEnvelope error: %v", err)
	}
	result := string(encoded)
	for _, fragment := range []string{
		`"error_code":"ledger_locked"`,
		`"error_category":"state_contention"`,
		`"retryable":true`,
		`"hint":"wait for the other batch"`,
	} {
		if !strings.Contains(result, fragment) {
			t.Fatalf("missing %s in output: %s", fragment, result)
		}
	}
}

func TestMarshalOutputSuccessHasNoErrorFields(t *testing.T) {
	setCurrentCorrelationID("cid-success")
	t.Cleanup(func() {
		setCurrentCorrelationID("")
	})
	encoded, err := marshalOutputWithErrorEnvelope(cleanOutput{OK: true, Path: "out.vlog"}, exitOK)
	if err != nil {
		t.Fatalf("marshalOutputWithErrorEnvelope error: %v", err)
	}
	result := string(encoded)
	if !strings.Contains(result, `"correlation_id":"cid-success"`) {
		t.Fatalf("missing correlation_id for success output: %s", result)
	}
	if strings.Contains(result, "error_code") || strings.Contains(result, "hint") {
		t.Fatalf("unexpected error fields on success: %s", result)
	}
}

func TestExitCodeForError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitOK},
		{name: "plain", err: stderrors.New("plain"), want: exitInvalidInput},
		{name: "invalid", err: coreerrors.Wrap(stderrors.New("x"), coreerrors.CategoryInvalidInput, "x", "", false), want: exitInvalidInput},
		{name: "verify", err: coreerrors.Wrap(stderrors.New("x"), coreerrors.CategoryVerification, "x", "", false), want: exitVerifyFailed},
		{name: "io", err: coreerrors.Wrap(stderrors.New("x"), coreerrors.CategoryIOFailure, "x", "", false), want: exitInternalFailure},
		{name: "contention", err: coreerrors.Wrap(stderrors.New("x"), coreerrors.CategoryStateContention, "x", "", true), want: exitInternalFailure},
	}
	for _, testCase := range cases {
		if got := exitCodeForError(testCase.err, exitInvalidInput); got != testCase.want {
			t.Fatalf("%s: expected %d got %d", testCase.name, testCase.want, got)
		}
	}
}

func TestDefaultErrorMappings(t *testing.T) {
	cases := []struct {
		exitCode int
		category coreerrors.Category
		code     string
	}{
		{exitInvalidInput, coreerrors.CategoryInvalidInput, "invalid_input"},
		{exitVerifyFailed, coreerrors.CategoryVerification, "verification_failed"},
		{exitBatchFailures, coreerrors.CategoryIOFailure, "batch_incomplete"},
		{exitInternalFailure, coreerrors.CategoryInternalFailure, "internal_failure"},
	}
	for _, testCase := range cases {
		if got := defaultErrorCategory(testCase.exitCode); got != testCase.category {
			t.Fatalf("exit %d: expected category %s got %s", testCase.exitCode, testCase.category, got)
		}
		if got := defaultErrorCode(testCase.exitCode); got != testCase.code {
			t.Fatalf("exit %d: expected code %s got %s", testCase.exitCode, testCase.code, got)
		}
		if defaultHint(testCase.exitCode) == "" {
			t.Fatalf("exit %d: expected hint", testCase.exitCode)
		}
	}
	if !defaultRetryable(coreerrors.CategoryStateContention) || defaultRetryable(coreerrors.CategoryIOFailure) {
		t.Fatalf("unexpected retryable mapping")
	}
}
