package reconcile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/packsync/pkg/diagnostics"
	"github.com/agentstation/packsync/pkg/errors"
	"github.com/agentstation/packsync/pkg/overrides"
	"github.com/agentstation/packsync/pkg/records"
	"github.com/agentstation/packsync/pkg/store"
)

func newDoc(t *testing.T, loc string, content string) *store.Document {
	t.Helper()
	root, err := store.Decode(strings.NewReader(content))
	require.NoError(t, err)
	return store.NewDocument(store.MustParseLocation(loc), root)
}

func newReconciler(t *testing.T, opts ...Option) *Reconciler {
	t.Helper()
	reg, err := overrides.Default()
	require.NoError(t, err)
	return New(reg, opts...)
}

func get(t *testing.T, doc *store.Document, path string) any {
	t.Helper()
	v, ok := doc.Get(store.ParsePath(path))
	require.True(t, ok, "missing %s", path)
	return v
}

func strList(v any) []string {
	return toStrings(v)
}

const boltDoc = `{
    "data": {
        "category": {
            "value": "spell"
        },
        "components": {
            "material": false,
            "somatic": false,
            "verbal": false
        },
        "school": {
            "value": ""
        },
        "time": {
            "value": ""
        },
        "traditions": {
            "value": []
        }
    },
    "name": "Test Bolt"
}
`

func TestReconcileSpellEndToEnd(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "packs", "data", "spells.db")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test-bolt.json"), []byte(boltDoc), 0o644))

	s, err := store.New(root)
	require.NoError(t, err)
	doc, err := s.Open(store.MustParseLocation("spells.db/test-bolt.json"))
	require.NoError(t, err)

	rec := records.Record{ID: "spell-1", Type: records.TypeSpell, Name: "Test Bolt", Fields: map[string]any{
		"school":    "Evocation",
		"tradition": []any{"Arcane"},
	}}
	r := newReconciler(t)

	out, err := r.Reconcile(context.Background(), rec, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"traditions", "school"}, out.Fields())
	assert.True(t, doc.Dirty())

	// A second pass with the same record is a no-op.
	again, err := r.Reconcile(context.Background(), rec, doc)
	require.NoError(t, err)
	assert.False(t, again.Changed())

	require.NoError(t, s.Flush())
	assert.Equal(t, 1, doc.Writes())
	require.NoError(t, s.Flush())
	assert.Equal(t, 1, doc.Writes(), "clean documents are not rewritten")

	data, err := os.ReadFile(filepath.Join(dir, "test-bolt.json"))
	require.NoError(t, err)
	persisted, err := store.Decode(strings.NewReader(string(data)))
	require.NoError(t, err)
	check := store.NewDocument(doc.Location(), persisted)
	assert.Equal(t, "evocation", get(t, check, "data.school.value"))
	assert.Equal(t, []string{"arcane"}, strList(get(t, check, "data.traditions.value")))
	assert.Equal(t, []string{"data", "name"}, persisted.Keys())
}

func TestReconcilePrice(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		raw     string
		want    map[string]int
		changed bool
	}{
		{
			name:    "absent denomination deleted",
			stored:  `{"gp": 24, "sp": 5, "cp": 3}`,
			raw:     "24 gp, 5 sp",
			want:    map[string]int{"gp": 24, "sp": 5},
			changed: true,
		},
		{
			name:    "platinum always deleted",
			stored:  `{"pp": 1, "gp": 10}`,
			raw:     "10 gp",
			want:    map[string]int{"gp": 10},
			changed: true,
		},
		{
			name:    "new denomination added",
			stored:  `{"gp": 2}`,
			raw:     "2 gp, 4 sp, 7 cp",
			want:    map[string]int{"gp": 2, "sp": 4, "cp": 7},
			changed: true,
		},
		{
			name:   "equal breakdown",
			stored: `{"gp": 1000, "sp": 5}`,
			raw:    "1 000 gp 5 sp",
			want:   map[string]int{"gp": 1000, "sp": 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t, "equipment.db/thing.json", `{"data": {"price": {"value": `+tt.stored+`}}}`)
			rec := records.Record{ID: "equipment-1", Type: records.TypeItem, Name: "Thing", Fields: map[string]any{
				"price_raw": tt.raw,
			}}
			out, err := New(nil).Reconcile(context.Background(), rec, doc)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, out.Changed())
			assert.Equal(t, tt.changed, doc.Dirty())

			value := get(t, doc, "data.price.value").(*store.Object)
			got := map[string]int{}
			for _, k := range value.Keys() {
				v, _ := value.Get(k)
				n, err := toInt(v)
				require.NoError(t, err)
				got[k] = n
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("price mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReconcileTraitSetEquality(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		raw     []any
		want    []string
		changed bool
	}{
		{
			name:   "order and dedicated tokens ignored",
			stored: `["fire", "attack"]`,
			raw:    []any{"Attack", "Fire", "Uncommon", "Evocation", "Arcane", "Legacy - Age of Ashes"},
			want:   []string{"fire", "attack"},
		},
		{
			name:   "class tag kept when present",
			stored: `["druid", "healing"]`,
			raw:    []any{"Healing", "Druid"},
			want:   []string{"druid", "healing"},
		},
		{
			name:    "class tag forced in on rewrite",
			stored:  `["cleric"]`,
			raw:     []any{"Positive", "Healing"},
			want:    []string{"positive", "healing", "cleric"},
			changed: true,
		},
		{
			name:    "multi-word traits hyphenated",
			stored:  `[]`,
			raw:     []any{"Ancestry Feat"},
			want:    []string{"ancestry-feat"},
			changed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t, "feats.db/x.json", `{"data": {"traits": {"rarity": "uncommon", "value": `+tt.stored+`}}}`)
			rec := records.Record{ID: "feat-1", Type: records.TypeFeat, Name: "X", Fields: map[string]any{
				"rarity":    "Uncommon",
				"trait_raw": tt.raw,
			}}
			out, err := New(nil).Reconcile(context.Background(), rec, doc)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, out.Changed())
			assert.Equal(t, tt.changed, doc.Dirty())
			assert.ElementsMatch(t, tt.want, strList(get(t, doc, "data.traits.value")))
		})
	}
}

func TestReconcileLevelAndRarity(t *testing.T) {
	doc := newDoc(t, "feats.db/x.json", `{"data": {"level": {"value": 2}, "traits": {"rarity": "common", "value": []}}}`)
	rec := records.Record{ID: "feat-1", Type: records.TypeFeat, Name: "X", Fields: map[string]any{
		"level":  float64(3),
		"rarity": "Rare",
	}}
	out, err := New(nil).Reconcile(context.Background(), rec, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"level", "rarity"}, out.Fields())
	assert.Equal(t, 3, get(t, doc, "data.level.value"))
	assert.Equal(t, "rare", get(t, doc, "data.traits.rarity"))

	t.Run("missing level defaults to zero", func(t *testing.T) {
		doc := newDoc(t, "feats.db/y.json", `{"data": {"level": {"value": 1}}}`)
		rec := records.Record{ID: "feat-2", Type: records.TypeFeat, Name: "Y"}
		_, err := New(nil).Reconcile(context.Background(), rec, doc)
		require.NoError(t, err)
		assert.Equal(t, 0, get(t, doc, "data.level.value"))
	})

	t.Run("guards skip absent fields", func(t *testing.T) {
		doc := newDoc(t, "feats.db/z.json", `{"data": {}}`)
		rec := records.Record{ID: "feat-3", Type: records.TypeFeat, Name: "Z", Fields: map[string]any{
			"level": float64(4), "rarity": "rare", "price_raw": "3 gp",
		}}
		out, err := New(nil).Reconcile(context.Background(), rec, doc)
		require.NoError(t, err)
		assert.False(t, out.Changed())
		assert.False(t, doc.Dirty())
	})
}

func TestReconcileLookupErrorFailsFast(t *testing.T) {
	tests := []struct {
		name  string
		rec   records.Record
		doc   string
		table string
		value string
	}{
		{
			name:  "rarity",
			rec:   records.Record{ID: "feat-9", Type: records.TypeFeat, Name: "X", Fields: map[string]any{"rarity": "Mythic"}},
			doc:   `{"data": {"traits": {"rarity": "common", "value": []}}}`,
			table: tableRarity,
			value: "Mythic",
		},
		{
			name:  "alignment",
			rec:   records.Record{ID: "deity-9", Type: records.TypeDeity, Name: "X", Fields: map[string]any{"alignment": "Chaotic-ish"}},
			doc:   `{"data": {"alignment": {"own": null, "follower": []}}}`,
			table: tableAlignment,
			value: "Chaotic-ish",
		},
		{
			name:  "ability",
			rec:   records.Record{ID: "deity-9", Type: records.TypeDeity, Name: "X", Fields: map[string]any{"ability": []any{"Luck"}}},
			doc:   `{"data": {"ability": []}}`,
			table: tableAbility,
			value: "Luck",
		},
		{
			name:  "skill",
			rec:   records.Record{ID: "deity-9", Type: records.TypeDeity, Name: "X", Fields: map[string]any{"skill": []any{"Warfare Lore"}}},
			doc:   `{"data": {"skill": "ath"}}`,
			table: tableSkill,
			value: "Warfare Lore",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t, "x.db/x.json", tt.doc)
			out, err := New(nil).Reconcile(context.Background(), tt.rec, doc)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.IsLookup(err))

			var lookup *errors.LookupError
			require.True(t, errors.As(err, &lookup))
			assert.Equal(t, tt.table, lookup.Table)
			assert.Equal(t, tt.value, lookup.Value)
			assert.Equal(t, tt.rec.ID, lookup.Record)
		})
	}
}

const deityDoc = `{
    "data": {
        "ability": ["wis"],
        "alignment": {"follower": ["LE", "LN"], "own": "LE"},
        "domains": {"alternate": ["sun"], "primary": ["fire"]},
        "font": ["harm"],
        "skill": "rel",
        "weapons": ["mace"]
    }
}`

func TestReconcileDeity(t *testing.T) {
	r := newReconciler(t)
	base := map[string]any{
		"alignment":          "LE",
		"follower_alignment": []any{"LN", "LE"},
		"ability":            []any{"Wisdom"},
		"skill":              []any{"Medicine", "Religion"},
		"favored_weapon":     []any{"Heavy Mace"},
		"domain":             []any{"sun", "fire"},
		"divine_font":        []any{"Harm"},
	}
	with := func(k string, v any) map[string]any {
		out := make(map[string]any, len(base))
		for bk, bv := range base {
			out[bk] = bv
		}
		out[k] = v
		return out
	}

	t.Run("consistent deity is a no-op", func(t *testing.T) {
		doc := newDoc(t, "deities.db/d.json", deityDoc)
		out, err := r.Reconcile(context.Background(), records.Record{ID: "deity-1", Type: records.TypeDeity, Name: "D", Fields: base}, doc)
		require.NoError(t, err)
		assert.False(t, out.Changed())
		assert.Empty(t, out.Diagnostics)
		assert.Equal(t, KindDeity, out.Kind)
	})

	t.Run("no alignment clears own", func(t *testing.T) {
		doc := newDoc(t, "deities.db/d.json", deityDoc)
		out, err := r.Reconcile(context.Background(), records.Record{ID: "deity-1", Type: records.TypeDeity, Name: "D", Fields: with("alignment", "No Alignment")}, doc)
		require.NoError(t, err)
		assert.Equal(t, []string{"alignment"}, out.Fields())
		assert.Nil(t, get(t, doc, "data.alignment.own"))
	})

	t.Run("skill replaced by first candidate", func(t *testing.T) {
		doc := newDoc(t, "deities.db/d.json", deityDoc)
		_, err := r.Reconcile(context.Background(), records.Record{ID: "deity-1", Type: records.TypeDeity, Name: "D", Fields: with("skill", []any{"Stealth", "Deception"})}, doc)
		require.NoError(t, err)
		assert.Equal(t, "ste", get(t, doc, "data.skill"))
	})

	t.Run("no skills writes null", func(t *testing.T) {
		doc := newDoc(t, "deities.db/d.json", deityDoc)
		_, err := r.Reconcile(context.Background(), records.Record{ID: "deity-1", Type: records.TypeDeity, Name: "D", Fields: with("skill", []any{})}, doc)
		require.NoError(t, err)
		assert.Nil(t, get(t, doc, "data.skill"))
	})

	t.Run("domain mismatch is reported not written", func(t *testing.T) {
		doc := newDoc(t, "deities.db/d.json", deityDoc)
		out, err := r.Reconcile(context.Background(), records.Record{ID: "deity-1", Type: records.TypeDeity, Name: "D", Fields: with("domain", []any{"fire", "sun", "truth"})}, doc)
		require.NoError(t, err)
		assert.False(t, out.Changed())
		assert.False(t, doc.Dirty())
		require.Len(t, out.Diagnostics, 1)
		assert.Equal(t, diagnostics.AmbiguousDomain, out.Diagnostics[0].Kind)
		assert.Equal(t, "deities.db/d.json", out.Diagnostics[0].Location)
		assert.Equal(t, []string{"fire"}, strList(get(t, doc, "data.domains.primary")))
	})

	t.Run("name override clears follower alignment", func(t *testing.T) {
		doc := newDoc(t, "deities.db/atheism.json", deityDoc)
		out, err := r.Reconcile(context.Background(), records.Record{ID: "deity-2", Type: records.TypeDeity, Name: "Atheism", Fields: base}, doc)
		require.NoError(t, err)
		assert.Contains(t, out.Fields(), "follower_alignment")
		assert.Empty(t, strList(get(t, doc, "data.alignment.follower")))
	})
}

const spellDoc = `{
    "data": {
        "category": {"value": "spell"},
        "components": {"material": false, "somatic": true, "verbal": true},
        "school": {"value": "evocation"},
        "source": {"value": "Pathfinder Core Rulebook"},
        "time": {"value": "2"},
        "traditions": {"value": ["occult"]}
    }
}`

func spellRecord(typ records.Type, name string, fields map[string]any) records.Record {
	base := map[string]any{
		"source":    []any{"Core Rulebook"},
		"school":    "Evocation",
		"actions":   "Two Actions",
		"component": []any{"somatic", "verbal"},
		"tradition": []any{"Occult"},
	}
	for k, v := range fields {
		base[k] = v
	}
	return records.Record{ID: "spell-1", Type: typ, Name: name, Fields: base}
}

func TestReconcileSpellFamily(t *testing.T) {
	r := newReconciler(t)

	tests := []struct {
		name   string
		rec    records.Record
		fields []string
		check  func(t *testing.T, doc *store.Document)
	}{
		{
			name: "consistent spell",
			rec:  spellRecord(records.TypeSpell, "Bolt", nil),
		},
		{
			name:   "casting time compared case-insensitively",
			rec:    spellRecord(records.TypeSpell, "Bolt", map[string]any{"actions": "Reaction"}),
			fields: []string{"time"},
			check: func(t *testing.T, doc *store.Document) {
				assert.Equal(t, "reaction", get(t, doc, "data.time.value"))
			},
		},
		{
			name:   "elemental tradition dropped",
			rec:    spellRecord(records.TypeSpell, "Bolt", map[string]any{"tradition": []any{"Elemental", "Primal"}}),
			fields: []string{"traditions"},
			check: func(t *testing.T, doc *store.Document) {
				assert.Equal(t, []string{"primal"}, strList(get(t, doc, "data.traditions.value")))
			},
		},
		{
			name: "dark archive spells keep stored traditions",
			rec: spellRecord(records.TypeSpell, "Bolt", map[string]any{
				"tradition": []any{}, "source": []any{"Dark Archive"},
			}),
			fields: []string{"source"},
			check: func(t *testing.T, doc *store.Document) {
				assert.Equal(t, []string{"occult"}, strList(get(t, doc, "data.traditions.value")))
				assert.Equal(t, "Pathfinder Dark Archive", get(t, doc, "data.source.value"))
			},
		},
		{
			name:   "other spells lose traditions",
			rec:    spellRecord(records.TypeSpell, "Bolt", map[string]any{"tradition": []any{}}),
			fields: []string{"traditions"},
		},
		{
			name:   "focus category",
			rec:    spellRecord(records.TypeFocus, "Bolt", nil),
			fields: []string{"category"},
			check: func(t *testing.T, doc *store.Document) {
				assert.Equal(t, "focus", get(t, doc, "data.category.value"))
			},
		},
		{
			name: "cantrip category untouched",
			rec:  spellRecord(records.TypeCantrip, "Bolt", nil),
		},
		{
			name:   "components",
			rec:    spellRecord(records.TypeSpell, "Bolt", map[string]any{"component": []any{"material", "verbal"}}),
			fields: []string{"components"},
			check: func(t *testing.T, doc *store.Document) {
				assert.Equal(t, true, get(t, doc, "data.components.material"))
				assert.Equal(t, false, get(t, doc, "data.components.somatic"))
				assert.Equal(t, true, get(t, doc, "data.components.verbal"))
			},
		},
		{
			name:   "name override for traditions",
			rec:    spellRecord(records.TypeRitual, "Mother's Blessing", map[string]any{"tradition": []any{}, "primary_check": ""}),
			fields: []string{"traditions", "category", "primary_check"},
			check: func(t *testing.T, doc *store.Document) {
				assert.Equal(t, []string{"primal"}, strList(get(t, doc, "data.traditions.value")))
				assert.Equal(t, "ritual", get(t, doc, "data.category.value"))
			},
		},
		{
			name:   "id override for school",
			rec:    records.Record{ID: "spell-738", Type: records.TypeSpell, Name: "Bolt", Fields: spellRecord(records.TypeSpell, "Bolt", nil).Fields},
			fields: []string{"school"},
			check: func(t *testing.T, doc *store.Document) {
				assert.Equal(t, "transmutation", get(t, doc, "data.school.value"))
			},
		},
		{
			name:   "casting time folded to ascii",
			rec:    spellRecord(records.TypeSpell, "Bolt", map[string]any{"actions": "1 minute – see text"}),
			fields: []string{"time"},
			check: func(t *testing.T, doc *store.Document) {
				assert.Equal(t, "1 minute - see text", get(t, doc, "data.time.value"))
			},
		},
		{
			name: "ritual primary check folded to ascii",
			rec: spellRecord(records.TypeRitual, "Rite", map[string]any{
				"primary_check": "  Religion  (master )’s",
			}),
			fields: []string{"category", "primary_check"},
			check: func(t *testing.T, doc *store.Document) {
				assert.Equal(t, "Religion (master)'s", get(t, doc, "data.primarycheck.value"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t, "spells.db/bolt.json", spellDoc)
			out, err := r.Reconcile(context.Background(), tt.rec, doc)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.fields, out.Fields()); diff != "" {
				t.Errorf("changed fields mismatch (-want +got):\n%s", diff)
			}
			if tt.check != nil {
				tt.check(t, doc)
			}
		})
	}
}

func TestReconcileAncestry(t *testing.T) {
	const doc = `{"data": {"hp": 8, "speed": 25}}`
	fields := map[string]any{
		"hp":    json.Number("10"),
		"speed": map[string]any{"land": float64(30), "swim": float64(10)},
	}

	t.Run("ancestry rules", func(t *testing.T) {
		d := newDoc(t, "ancestries.db/elf.json", doc)
		out, err := New(nil).Reconcile(context.Background(), records.Record{ID: "ancestry-1", Type: records.TypeAncestry, Name: "Elf", Fields: fields}, d)
		require.NoError(t, err)
		assert.Equal(t, []string{"hp", "speed"}, out.Fields())
		assert.Equal(t, 10, get(t, d, "data.hp"))
		assert.Equal(t, 30, get(t, d, "data.speed"))
	})

	t.Run("versatile heritage uses common rules", func(t *testing.T) {
		d := newDoc(t, "heritages.db/x.json", doc)
		out, err := New(nil).Reconcile(context.Background(), records.Record{ID: "ancestry-2", Type: records.TypeAncestry, Name: "Aiuvarin Heritage", Fields: fields}, d)
		require.NoError(t, err)
		assert.False(t, out.Changed())
		assert.Equal(t, KindCommon, out.Kind)
	})

	t.Run("zero land speed ignored", func(t *testing.T) {
		d := newDoc(t, "ancestries.db/elf.json", doc)
		out, err := New(nil).Reconcile(context.Background(), records.Record{ID: "ancestry-1", Type: records.TypeAncestry, Name: "Elf", Fields: map[string]any{
			"hp": float64(8), "speed": map[string]any{"land": float64(0)},
		}}, d)
		require.NoError(t, err)
		assert.False(t, out.Changed())
	})
}

func TestReconcileSource(t *testing.T) {
	r := newReconciler(t)
	tests := []struct {
		name   string
		stored string
		source []any
		want   string
	}{
		{"current kept when a candidate", "Pathfinder Bestiary", []any{"Core Rulebook", "Bestiary"}, "Pathfinder Bestiary"},
		{"first candidate otherwise", "Pathfinder Bestiary", []any{"Core Rulebook"}, "Pathfinder Core Rulebook"},
		{"PFS expanded", "", []any{"PFS Scenario #1"}, "Pathfinder Society Scenario #1"},
		{"no candidates leaves field", "Pathfinder Bestiary", []any{}, "Pathfinder Bestiary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t, "feats.db/x.json", `{"data": {"source": {"value": "`+tt.stored+`"}}}`)
			_, err := r.Reconcile(context.Background(), records.Record{ID: "feat-1", Type: records.TypeFeat, Name: "X", Fields: map[string]any{"source": tt.source}}, doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, get(t, doc, "data.source.value"))
		})
	}

	t.Run("location override wins", func(t *testing.T) {
		doc := newDoc(t, "spells.db/dragon-breath-sky.json", `{"data": {"source": {"value": "Pathfinder Core Rulebook"}}}`)
		_, err := r.Reconcile(context.Background(), records.Record{ID: "focus-1", Type: records.TypeFocus, Name: "Dragon Breath", Fields: map[string]any{"source": []any{"Core Rulebook"}}}, doc)
		require.NoError(t, err)
		assert.Equal(t, "Pathfinder Lost Omens: The Mwangi Expanse", get(t, doc, "data.source.value"))
	})
}

func TestReconcileOptions(t *testing.T) {
	const doc = `{"data": {"level": {"value": 1}, "traits": {"rarity": "common", "value": []}}}`
	rec := records.Record{ID: "feat-1", Type: records.TypeFeat, Name: "X", Fields: map[string]any{
		"level": float64(2), "rarity": "rare",
	}}

	out, err := New(nil, WithOnly("rarity")).Reconcile(context.Background(), rec, newDoc(t, "feats.db/x.json", doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"rarity"}, out.Fields())

	out, err = New(nil, WithSkip("rarity")).Reconcile(context.Background(), rec, newDoc(t, "feats.db/x.json", doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"level"}, out.Fields())
}

func TestReconcileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Reconcile(ctx, records.Record{Type: records.TypeFeat}, newDoc(t, "feats.db/x.json", `{}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		rec  records.Record
		want Kind
	}{
		{records.Record{Type: records.TypeAncestry, Name: "Elf"}, KindAncestry},
		{records.Record{Type: records.TypeAncestry, Name: "Changeling Heritage"}, KindCommon},
		{records.Record{Type: records.TypeBackground}, KindBackground},
		{records.Record{Type: records.TypeDeity}, KindDeity},
		{records.Record{Type: records.TypeFeat}, KindCommon},
		{records.Record{Type: records.TypeHeritage}, KindCommon},
		{records.Record{Type: records.TypeCantrip}, KindCantrip},
		{records.Record{Type: records.TypeFocus}, KindSpell},
		{records.Record{Type: records.TypeSpell}, KindSpell},
		{records.Record{Type: records.TypeRitual}, KindRitual},
		{records.Record{Type: records.TypeShield}, KindCommon},
	}
	for _, tt := range tests {
		t.Run(string(tt.rec.Type)+"/"+tt.rec.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.rec))
		})
	}

	common := []string{"source", "level", "rarity", "price", "traits"}
	assert.Equal(t, common, For(records.Record{Type: records.TypeFeat}).Fields())
	assert.Equal(t, append(common, "lore"), For(records.Record{Type: records.TypeBackground}).Fields())
	assert.NotContains(t, For(records.Record{Type: records.TypeCantrip}).Fields(), "category")
	assert.Contains(t, For(records.Record{Type: records.TypeRitual}).Fields(), "primary_check")
	assert.NotContains(t, For(records.Record{Type: records.TypeSpell}).Fields(), "primary_check")
}

func TestReconcileSchoolNullOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ids:\n  - {id: spell-9, fields: {school: null}}\n"), 0o644))
	reg, err := overrides.Load(path)
	require.NoError(t, err)
	r := New(reg)

	rec := spellRecord(records.TypeSpell, "Bolt", nil)
	rec.ID = "spell-9"
	doc := newDoc(t, "spells.db/bolt.json", spellDoc)

	out, err := r.Reconcile(context.Background(), rec, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"school"}, out.Fields())
	assert.Nil(t, get(t, doc, "data.school.value"))

	again, err := r.Reconcile(context.Background(), rec, doc)
	require.NoError(t, err)
	assert.False(t, again.Changed())
}
