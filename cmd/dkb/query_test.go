package main

import (
	"testing"

	"dkb/internal/retrieval"
)

func TestParseSourceFilter(t *testing.T) {
	filter, err := parseSourceFilter([]string{"Temporal", " lexical "})
	if err != nil {
		t.Fatalf("parseSourceFilter failed: %v", err)
	}
	if len(filter) != 2 || filter[0] != retrieval.SourceTemporal || filter[1] != retrieval.SourceLexical {
		t.Errorf("filter = %v", filter)
	}

	if _, err := parseSourceFilter([]string{"vibes"}); err == nil {
		t.Error("expected error for unknown source name")
	}

	filter, err = parseSourceFilter(nil)
	if err != nil || filter != nil {
		t.Errorf("empty input: filter=%v err=%v", filter, err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a\nmultiline\nstring", 100); got != "a multiline string" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abcdefghij", 4); got != "abcd..." {
		t.Errorf("truncate = %q", got)
	}
}
