package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{session}_{date}_{uuid}", map[string]string{"session": "mi semana/1"}, ".xlsx")
	if !strings.HasPrefix(name, "mi_semana_1_") {
		t.Fatalf("expected sanitized session prefix, got %q", name)
	}
	if !strings.HasSuffix(name, ".xlsx") {
		t.Fatalf("expected .xlsx extension, got %q", name)
	}
	if strings.Contains(name, "{") {
		t.Fatalf("expected every placeholder to be replaced, got %q", name)
	}

	other := GenerateOutputFileName("{session}_{date}_{uuid}", map[string]string{"session": "mi semana/1"}, ".xlsx")
	if other == name {
		t.Fatalf("expected unique names, got %q twice", name)
	}

	if got := GenerateOutputFileName("plan.xml", nil, ".XML"); got != "plan.xml" {
		t.Fatalf("expected existing extension to be kept, got %q", got)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	if err := WriteFileAtomic(path, []byte("uno")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("dos")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "dos" {
		t.Fatalf("expected dos, got %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected no temporary files left behind, got %d entries", len(entries))
	}
}

func TestCleanOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.cache")
	fresh := filepath.Join(dir, "fresh.cache")
	other := filepath.Join(dir, "keep.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	removed, err := CleanOldFiles(dir, "*.cache", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 || FileExists(old) || !FileExists(fresh) {
		t.Fatalf("expected only the old cache file to go, removed=%d", removed)
	}

	removed, err = CleanOldFiles(dir, "*.cache", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 || FileExists(fresh) || !FileExists(other) {
		t.Fatalf("expected zero max age to clear all matches, removed=%d", removed)
	}
}

func TestFileAge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if _, ok := FileAge(path, time.Now()); ok {
		t.Fatalf("expected missing file to report ok=false")
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	age, ok := FileAge(path, time.Now().Add(time.Minute))
	if !ok || age < 30*time.Second {
		t.Fatalf("expected an age near one minute, got %v (ok=%v)", age, ok)
	}
}

func TestWriteIssueLog(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteIssueLog(nil, dir)
	if err != nil || path != "" {
		t.Fatalf("expected no log for no entries, got %q, %v", path, err)
	}

	path, err = WriteIssueLog([]IssueLogEntry{
		{Severity: "WARNING", Table: "precios", Row: 3, Column: "01/02/2024", Value: "abc", Message: "not a price"},
	}, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Total Issues: 1", "Table:     precios", "Row:       3", "Value:     abc"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected log to contain %q, got:\n%s", want, data)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	if err := SetLogLevel("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Log.GetLevel().String() != "debug" {
		t.Fatalf("expected debug, got %s", Log.GetLevel())
	}
	if err := SetLogLevel("loud"); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
	_ = SetLogLevel("info")
}
