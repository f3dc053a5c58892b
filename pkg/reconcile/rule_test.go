package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/packsync/pkg/store"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want Price
	}{
		{"24 gp, 5 sp", Price{"gp": 24, "sp": 5}},
		{"2 gp, 4 sp, 7 cp", Price{"gp": 2, "sp": 4, "cp": 7}},
		{"5 sp", Price{"sp": 5}},
		{"3 cp", Price{"cp": 3}},
		{"1 000 gp", Price{"gp": 1000}},
		{"12gp 6sp", Price{"gp": 12, "sp": 6}},
		{"", Price{}},
		{"varies", Price{}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePrice(tt.raw))
		})
	}
}

func TestAppliers(t *testing.T) {
	path := store.ParsePath("data.v")

	t.Run("exact compares numbers numerically", func(t *testing.T) {
		doc := newDoc(t, "feats.db/x.json", `{"data": {"v": 3}}`)
		deltas, err := Exact(doc, path, 3)
		require.NoError(t, err)
		assert.Empty(t, deltas)
		assert.False(t, doc.Dirty())

		deltas, err = Exact(doc, path, 4)
		require.NoError(t, err)
		require.Len(t, deltas, 1)
		assert.Equal(t, json.Number("3"), deltas[0].Old)
		assert.Equal(t, 4, deltas[0].New)
		assert.True(t, doc.Dirty())
	})

	t.Run("exact distinguishes null from missing", func(t *testing.T) {
		doc := newDoc(t, "feats.db/x.json", `{"data": {"v": null}}`)
		deltas, err := Exact(doc, path, nil)
		require.NoError(t, err)
		assert.Empty(t, deltas)

		doc = newDoc(t, "feats.db/x.json", `{"data": {}}`)
		deltas, err = Exact(doc, path, nil)
		require.NoError(t, err)
		assert.Len(t, deltas, 1)
	})

	t.Run("fold equal ignores case", func(t *testing.T) {
		doc := newDoc(t, "spells.db/x.json", `{"data": {"v": "Reaction"}}`)
		deltas, err := FoldEqual(doc, path, "reaction")
		require.NoError(t, err)
		assert.Empty(t, deltas)
	})

	t.Run("set equal ignores order and duplicates", func(t *testing.T) {
		doc := newDoc(t, "feats.db/x.json", `{"data": {"v": ["b", "a", "a"]}}`)
		deltas, err := SetEqual(doc, path, []any{"a", "b"})
		require.NoError(t, err)
		assert.Empty(t, deltas)

		deltas, err = SetEqual(doc, path, []any{"a"})
		require.NoError(t, err)
		require.Len(t, deltas, 1)
		v, _ := doc.Get(path)
		assert.Equal(t, []any{"a"}, v)
	})

	t.Run("keep if member", func(t *testing.T) {
		doc := newDoc(t, "deities.db/x.json", `{"data": {"v": null}}`)
		deltas, err := KeepIfMember(true)(doc, path, []any{})
		require.NoError(t, err)
		assert.Empty(t, deltas, "null stays null")

		deltas, err = KeepIfMember(false)(doc, path, []any{"x", "y"})
		require.NoError(t, err)
		require.Len(t, deltas, 1)
		assert.Equal(t, "x", deltas[0].New)

		deltas, err = KeepIfMember(false)(doc, path, []any{"y", "x"})
		require.NoError(t, err)
		assert.Empty(t, deltas)
	})

	t.Run("breakdown deletes unlisted keys", func(t *testing.T) {
		doc := newDoc(t, "equipment.db/x.json", `{"data": {"v": {"gp": 1, "cp": 2}}}`)
		deltas, err := Breakdown(Denominations)(doc, path, map[string]any{"gp": 1, "sp": 3})
		require.NoError(t, err)
		require.Len(t, deltas, 2)
		assert.Equal(t, "data.v.sp", deltas[0].Path.String())
		assert.Equal(t, "data.v.cp", deltas[1].Path.String())
		assert.True(t, deltas[1].Deleted)
		assert.False(t, doc.Has(store.ParsePath("data.v.cp")))
	})

	t.Run("flags default to false", func(t *testing.T) {
		doc := newDoc(t, "spells.db/x.json", `{"data": {"v": {"material": true, "somatic": false}}}`)
		deltas, err := Flags(componentFlags)(doc, path, map[string]any{"somatic": true})
		require.NoError(t, err)
		assert.Len(t, deltas, 3)
		v, _ := doc.Get(store.ParsePath("data.v.verbal"))
		assert.Equal(t, false, v)
	})
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in      any
		want    int
		wantErr bool
	}{
		{3, 3, false},
		{float64(7), 7, false},
		{json.Number("12"), 12, false},
		{json.Number("2.0"), 2, false},
		{" 5 ", 5, false},
		{"five", 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := toInt(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSkipTrait(t *testing.T) {
	for _, tok := range []string{"Common", "Rare", "Uncommon", "Unique", "Evocation", "Arcane", "Primal", "Druid", "Cleric", "Legacy - Age of Ashes"} {
		assert.True(t, skipTrait(tok), tok)
	}
	for _, tok := range []string{"Fire", "Attack", "common", "Elemental"} {
		assert.False(t, skipTrait(tok), tok)
	}
}
