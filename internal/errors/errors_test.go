package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := stderrors.New("disk I/O error")
	err := New(StorageError, "failed to open knowledge database", cause)

	msg := err.Error()
	if !strings.Contains(msg, "STORAGE_ERROR") {
		t.Errorf("missing code in %q", msg)
	}
	if !strings.Contains(msg, "disk I/O error") {
		t.Errorf("missing cause in %q", msg)
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := New(NoSourcesAvailable, "no retrieval sources available", nil)
	if strings.Contains(err.Error(), "<nil>") {
		t.Errorf("nil cause leaked into message: %q", err.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := New(InternalError, "wrapper", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should see through Error")
	}
}

func TestCodeOf(t *testing.T) {
	err := New(Timeout, "source timed out", nil)
	wrapped := fmt.Errorf("query failed: %w", err)

	if got := CodeOf(wrapped); got != Timeout {
		t.Errorf("CodeOf = %q, want TIMEOUT", got)
	}
	if got := CodeOf(stderrors.New("plain")); got != InternalError {
		t.Errorf("CodeOf(plain) = %q, want INTERNAL_ERROR", got)
	}
}

func TestSuggestedFixesAttached(t *testing.T) {
	err := New(NoSourcesAvailable, "no retrieval sources available", nil)
	if len(err.SuggestedFixes) == 0 {
		t.Fatal("expected suggested fixes for NO_SOURCES_AVAILABLE")
	}
	if !strings.HasPrefix(err.SuggestedFixes[0].Command, "dkb ") {
		t.Errorf("unexpected fix command %q", err.SuggestedFixes[0].Command)
	}
}

func TestIsCode(t *testing.T) {
	err := New(QuerySetInvalid, "bad file", nil)
	if !IsCode(err, QuerySetInvalid) {
		t.Error("IsCode should match")
	}
	if IsCode(err, Timeout) {
		t.Error("IsCode should not match different code")
	}
}
