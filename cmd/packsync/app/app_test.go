package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/packsync/internal/feed"
	"github.com/agentstation/packsync/pkg/errors"
	"github.com/agentstation/packsync/pkg/logging"
	"github.com/agentstation/packsync/pkg/records"
)

const bonMotDoc = `{
    "data": {
        "level": {
            "value": 1
        }
    },
    "name": "Bon Mot"
}
`

func newStore(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "packs", "data", "feats.db")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bon-mot.json"), []byte(bonMotDoc), 0o644))
	return root
}

func newApp(t *testing.T, out *bytes.Buffer, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewNopLogger()), WithOutput(out)}, opts...)
	a, err := New("1.2.3", "abc123", "2026-10-19", "test", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestExecuteRunFromFeedFile(t *testing.T) {
	root := newStore(t)
	hits := []feed.Hit{
		{ID: "feat-1", Source: map[string]any{"type": "Feat", "name": "Bon Mot", "level": 2}},
		{ID: "creature-1", Source: map[string]any{"type": "Creature", "name": "Goblin"}},
	}
	data, err := json.Marshal(hits)
	require.NoError(t, err)
	hitsFile := filepath.Join(t.TempDir(), "hits.json")
	require.NoError(t, os.WriteFile(hitsFile, data, 0o644))

	out := t.TempDir()
	reportFile := filepath.Join(out, "report.md")
	metricsFile := filepath.Join(out, "packsync.prom")

	var buf bytes.Buffer
	a := newApp(t, &buf)
	err = a.Execute(context.Background(), []string{
		"--root", root,
		"--feed-file", hitsFile,
		"--report", reportFile,
		"--metrics-file", metricsFile,
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Field changes")
	stored, err := os.ReadFile(filepath.Join(root, "packs", "data", "feats.db", "bon-mot.json"))
	require.NoError(t, err)
	assert.Contains(t, string(stored), `"value": 2`)

	report, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	assert.Contains(t, string(report), "feats.db/bon-mot.json")

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `packsync_records_total{type="Feat"} 1`)
}

func TestExecuteDryRunWithScope(t *testing.T) {
	root := newStore(t)
	src := feed.Static{{ID: "feat-1", Type: records.TypeFeat, Name: "Bon Mot", Fields: map[string]any{"level": 5}}}

	var buf bytes.Buffer
	a := newApp(t, &buf, WithSource(src))
	doc := filepath.Join(root, "packs", "data", "feats.db", "bon-mot.json")
	err := a.Execute(context.Background(), []string{"--root", root, "--dry-run", doc})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "dry run")
	stored, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, bonMotDoc, string(stored))
	assert.True(t, a.Config().DryRun)
}

func TestExecuteStructuralError(t *testing.T) {
	var buf bytes.Buffer
	a := newApp(t, &buf, WithSource(feed.Static{}))
	err := a.Execute(context.Background(), []string{"--root", t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, ExitStructural, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"structural", errors.NewStructuralError("/x", "packs/data not found", nil), ExitStructural},
		{"lookup", errors.NewLookupError("skill", "Underwater Basket Weaving"), ExitLookup},
		{"wrapped lookup", errors.Join(errors.New("feat-1"), errors.NewLookupError("rarity", "Mythic")), ExitLookup},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestFilenameCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "item keeps qualifier",
			args: []string{"filename", "Item", "Aeon Stone (Dull Grey)"},
			want: "equipment.db/aeon-stone-dull-grey.json\n",
		},
		{
			name: "name split over arguments",
			args: []string{"filename", "feat", "Bon", "Mot"},
			want: "feats.db/bon-mot.json\n",
		},
		{
			name: "ancestry routes to heritages",
			args: []string{"filename", "Ancestry", "Elf"},
			want: "ancestries.db/elf.json\nheritages.db/elf.json\n",
		},
		{
			name: "background skills",
			args: []string{"filename", "Background", "Refugee (APG)", "--skill", "Society,Lore"},
			want: "backgrounds.db/refugee.json\nbackgrounds.db/refugee-lore.json\nbackgrounds.db/refugee-society.json\n",
		},
		{
			name: "id override",
			args: []string{"filename", "Feat", "Assurance", "--id", "feat-756"},
			want: "feats.db/assurance*.json\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			a := newApp(t, &buf)
			require.NoError(t, a.Execute(context.Background(), tt.args))
			assert.Equal(t, tt.want, buf.String())
		})
	}

	var buf bytes.Buffer
	err := newApp(t, &buf).Execute(context.Background(), []string{"filename", "Creature", "Goblin"})
	assert.True(t, errors.IsValidationError(err))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newApp(t, &buf).Execute(context.Background(), []string{"version"}))
	assert.Contains(t, buf.String(), "packsync 1.2.3")
	assert.Contains(t, buf.String(), "commit: abc123")
}

func TestExecuteBadFeedAuth(t *testing.T) {
	var buf bytes.Buffer
	err := newApp(t, &buf).Execute(context.Background(), []string{"--root", newStore(t), "--feed-auth", "token"})
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ExitFailure, ExitCode(err))
}
