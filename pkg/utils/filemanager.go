// =============================================================================
// mercado - File Manager Utility
// =============================================================================
//
// This module provides the file helpers shared by the download cache, the
// exporters and the CLI:
//   - Directory management
//   - Export file naming
//   - Atomic writes
//   - File age checks and stale file cleanup
//   - Issue log generation
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all given directories if they don't exist.
// Empty entries are ignored.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//     {<key>}     - Any key of params
//   - params: A map of placeholder values.
//   - ext: The extension to enforce (e.g. ".xml"); empty keeps the name as is.
//
// EXAMPLE:
//
//	format: "{session}_{timestamp}_{uuid}"
//	params: {"session": "semana"}
//	ext:    ".xlsx"
//	output: "semana_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xlsx"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = SanitizeFileName(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// SanitizeFileName replaces characters that are unsafe in file names.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}

// =============================================================================
// FILE WRITES
// =============================================================================

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// =============================================================================
// FILE AGE AND CLEANUP
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetFileModTime returns the modification time of a file.
func GetFileModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// FileAge returns how long ago path was last modified. ok is false when the
// file cannot be stat'ed.
func FileAge(path string, now time.Time) (age time.Duration, ok bool) {
	mod, err := GetFileModTime(path)
	if err != nil {
		return 0, false
	}
	return now.Sub(mod), true
}

// CleanOldFiles removes the files of dir matching pattern that are older
// than maxAge. A zero maxAge removes every match.
//
// RETURNS:
//   - The number of files removed.
//   - An error if the directory cannot be scanned or a file cannot be removed.
func CleanOldFiles(dir, pattern string, maxAge time.Duration) (int, error) {
	if pattern == "" {
		pattern = "*"
	}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	now := time.Now()
	removed := 0
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			continue
		}
		if maxAge > 0 && now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(file); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", file, err)
		}
		removed++
	}
	return removed, nil
}

// =============================================================================
// ISSUE LOG GENERATION
// =============================================================================

// IssueLogEntry represents a single issue log entry.
type IssueLogEntry struct {
	Severity string
	Table    string
	Row      int
	Column   string
	Value    string
	Message  string
}

// WriteIssueLog writes issue entries to a timestamped log file in dir.
//
// RETURNS:
//   - The path to the log file, or "" when there is nothing to write.
//   - An error if writing fails.
func WriteIssueLog(entries []IssueLogEntry, dir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	if err := EnsureDirectories(dir); err != nil {
		return "", err
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(dir, fmt.Sprintf("issues_%s.txt", timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create issue log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "mercado - Input Issues\n"+
		"Generated: %s\n"+
		"Total Issues: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Issue #%d\n"+
			"  Severity:  %s\n"+
			"  Table:     %s\n"+
			"  Message:   %s\n",
			i+1, entry.Severity, entry.Table, entry.Message)
		if entry.Row > 0 {
			fmt.Fprintf(writer, "  Row:       %d\n", entry.Row)
		}
		if entry.Column != "" {
			fmt.Fprintf(writer, "  Column:    %s\n", entry.Column)
		}
		if entry.Value != "" {
			fmt.Fprintf(writer, "  Value:     %s\n", entry.Value)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Issue Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush issue log: %w", err)
	}
	return logPath, nil
}
