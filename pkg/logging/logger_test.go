package logging_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/packsync/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	original := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	buf := &bytes.Buffer{}
	logger := zerolog.New(buf).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	logging.SetDefault(logger)

	logging.Info().Msg("info message")
	logging.Warn().Msg("warning message")
	logging.Error().Msg("error message")

	output := buf.String()
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warning message")
	assert.Contains(t, output, "error message")
}

func TestContextLogger(t *testing.T) {
	testLogger := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), testLogger.Logger)
	ctx = logging.WithRecord(ctx, "spell-42")
	ctx = logging.WithLocation(ctx, "spells.db/fireball.json")

	logging.FromContext(ctx).Info().Msg("reconciled")

	testLogger.AssertContains(t, `"record_id":"spell-42"`)
	testLogger.AssertContains(t, `"location":"spells.db/fireball.json"`)
	testLogger.AssertContains(t, "reconciled")
}

func TestConfiguration(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	tests := []struct {
		name   string
		config *logging.Config
		want   []string
		absent []string
	}{
		{
			name:   "debug level",
			config: &logging.Config{Level: "debug", Format: "json"},
			want:   []string{`"level":"debug"`, `"level":"info"`},
		},
		{
			name:   "error level only",
			config: &logging.Config{Level: "error", Format: "json"},
			want:   []string{`"level":"error"`},
			absent: []string{`"level":"info"`, `"level":"debug"`},
		},
		{
			name: "default fields",
			config: &logging.Config{
				Level:  "info",
				Format: "json",
				Fields: map[string]any{"component": "packsync", "attempt": 1},
			},
			want: []string{`"component":"packsync"`, `"attempt":1`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.NewLoggerFromConfig(tc.config).Output(buf)

			logger.Debug().Msg("debug")
			logger.Info().Msg("info")
			logger.Error().Msg("error")

			for _, w := range tc.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, a := range tc.absent {
				assert.NotContains(t, buf.String(), a)
			}
		})
	}
}

func TestConfigFileOutput(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	path := filepath.Join(t.TempDir(), "packsync.log")
	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:  "info",
		Format: "json",
		Output: path,
	})
	logger.Info().Msg("written to file")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "written to file")
}

func TestDefaultConfig(t *testing.T) {
	cfg := logging.DefaultConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.False(t, cfg.AddCaller)
}

func TestTestLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	tl.Logger.Info().Msg("message 1")
	tl.Logger.Error().Err(nil).Msg("message 2")

	tl.AssertContains(t, "message 1")
	tl.AssertContains(t, "message 2")
	tl.AssertNotContains(t, "message 3")
	tl.AssertCount(t, 2)
	assert.True(t, tl.ContainsAll("message 1", "message 2"))

	tl.Clear()
	assert.Equal(t, 0, tl.Count())
}

func TestCaptureLoggingForTest(t *testing.T) {
	tl := logging.CaptureLoggingForTest(t)

	logging.Warn().Str("collection", "spells").Msg("No packs found")

	lines := tl.Lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.Contains(lines[0], `"collection":"spells"`))
}

func TestTestLoggerEntries(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithRecord(logging.WithLogger(context.Background(), tl.Logger), "spell-1")

	logging.FromContext(ctx).Debug().Msg("Parsed record")
	lctx := logging.WithLocation(ctx, "spells.db/test-bolt.json")
	logging.FromContext(lctx).Warn().Msg("Matched document")
	tl.Logger.Info().Msg("plain")

	entries := tl.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "spell-1", entries[0].Record())
	assert.Equal(t, "debug", entries[0].Level())
	assert.Equal(t, "spells.db/test-bolt.json", entries[1].Location())
	assert.Empty(t, entries[2].Record())

	assert.Len(t, tl.Find("Matched document", map[string]string{logging.RecordField: "spell-1"}), 1)
	assert.Empty(t, tl.Find("Matched document", map[string]string{logging.RecordField: "spell-2"}))

	tl.AssertRecordLogged(t, "spell-1", "Parsed record")
	tl.AssertLocationLogged(t, "spells.db/test-bolt.json", "Matched document")
	tl.AssertLogged(t, zerolog.WarnLevel, "Matched document", map[string]string{logging.LocationField: "spells.db/test-bolt.json"})
}

func TestCaptureLoggingRestoresDefault(t *testing.T) {
	before := logging.Default().GetLevel()
	t.Run("capture", func(t *testing.T) {
		tl := logging.CaptureLoggingForTest(t)
		logging.Info().Msg("captured")
		tl.AssertContains(t, "captured")
	})
	assert.Equal(t, before, logging.Default().GetLevel())
}
