package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger captures JSON log output so tests can assert on what a run
// logged, either as raw text or as decoded entries.
type TestLogger struct {
	*zerolog.Logger
	Buffer *bytes.Buffer
}

// Entry is one decoded log line.
type Entry map[string]any

// Str returns the string field key, or "" when absent.
func (e Entry) Str(key string) string {
	s, _ := e[key].(string)
	return s
}

// Message returns the entry message.
func (e Entry) Message() string { return e.Str(zerolog.MessageFieldName) }

// Level returns the entry level.
func (e Entry) Level() string { return e.Str(zerolog.LevelFieldName) }

// Record returns the record id the entry was tagged with.
func (e Entry) Record() string { return e.Str(RecordField) }

// Location returns the document location the entry was tagged with.
func (e Entry) Location() string { return e.Str(LocationField) }

// NewTestLogger returns a trace-level logger writing to a buffer. The
// global level is restored when the test ends.
func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()

	buf := &bytes.Buffer{}
	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(oldLevel)
	})

	logger := zerolog.New(buf).Level(zerolog.TraceLevel).With().Timestamp().Logger()
	return &TestLogger{Logger: &logger, Buffer: buf}
}

// Output returns the captured log output as a string
func (tl *TestLogger) Output() string {
	return tl.Buffer.String()
}

// Lines returns the captured log output as individual lines
func (tl *TestLogger) Lines() []string {
	output := strings.TrimSpace(tl.Output())
	if output == "" {
		return []string{}
	}
	return strings.Split(output, "\n")
}

// Entries decodes every captured line. Lines that are not JSON are skipped.
func (tl *TestLogger) Entries() []Entry {
	var out []Entry
	for _, line := range tl.Lines() {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entries with message msg whose string fields match
// every key/value pair in fields.
func (tl *TestLogger) Find(msg string, fields map[string]string) []Entry {
	var out []Entry
	for _, e := range tl.Entries() {
		if e.Message() != msg {
			continue
		}
		match := true
		for k, v := range fields {
			if e.Str(k) != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, e)
		}
	}
	return out
}

// Contains checks if the log output contains the given string
func (tl *TestLogger) Contains(substr string) bool {
	return strings.Contains(tl.Output(), substr)
}

// ContainsAll checks if the log output contains all given strings
func (tl *TestLogger) ContainsAll(substrs ...string) bool {
	output := tl.Output()
	for _, substr := range substrs {
		if !strings.Contains(output, substr) {
			return false
		}
	}
	return true
}

// Count returns the number of log entries
func (tl *TestLogger) Count() int {
	return len(tl.Lines())
}

// Clear clears the captured log output
func (tl *TestLogger) Clear() {
	tl.Buffer.Reset()
}

// AssertContains asserts that the log contains the given string
func (tl *TestLogger) AssertContains(t testing.TB, substr string) {
	t.Helper()
	if !tl.Contains(substr) {
		t.Errorf("Log output does not contain %q\nOutput:\n%s", substr, tl.Output())
	}
}

// AssertNotContains asserts that the log does not contain the given string
func (tl *TestLogger) AssertNotContains(t testing.TB, substr string) {
	t.Helper()
	if tl.Contains(substr) {
		t.Errorf("Log output should not contain %q\nOutput:\n%s", substr, tl.Output())
	}
}

// AssertCount asserts that the log has the expected number of entries
func (tl *TestLogger) AssertCount(t testing.TB, expected int) {
	t.Helper()
	if actual := tl.Count(); actual != expected {
		t.Errorf("Expected %d log entries, got %d\nOutput:\n%s", expected, actual, tl.Output())
	}
}

// AssertLogged asserts that msg was logged at level with the given fields.
func (tl *TestLogger) AssertLogged(t testing.TB, level zerolog.Level, msg string, fields map[string]string) {
	t.Helper()
	for _, e := range tl.Find(msg, fields) {
		if e.Level() == level.String() {
			return
		}
	}
	t.Errorf("No %s entry %q with fields %v\nOutput:\n%s", level, msg, fields, tl.Output())
}

// AssertRecordLogged asserts that msg was logged while processing record.
func (tl *TestLogger) AssertRecordLogged(t testing.TB, record, msg string) {
	t.Helper()
	if len(tl.Find(msg, map[string]string{RecordField: record})) == 0 {
		t.Errorf("No entry %q for record %s\nOutput:\n%s", msg, record, tl.Output())
	}
}

// AssertLocationLogged asserts that msg was logged for the document at
// location.
func (tl *TestLogger) AssertLocationLogged(t testing.TB, location, msg string) {
	t.Helper()
	if len(tl.Find(msg, map[string]string{LocationField: location})) == 0 {
		t.Errorf("No entry %q for location %s\nOutput:\n%s", msg, location, tl.Output())
	}
}

// NewNopLogger returns a logger that discards all output.
func NewNopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// CaptureLoggingForTest makes a TestLogger the default logger until the
// test ends.
func CaptureLoggingForTest(t testing.TB) *TestLogger {
	t.Helper()

	original := *Default()
	tl := NewTestLogger(t)
	SetDefault(*tl.Logger)
	t.Cleanup(func() {
		SetDefault(original)
	})
	return tl
}
