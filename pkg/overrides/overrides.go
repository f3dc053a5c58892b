// Package overrides is the registry of curated corrections consulted before
// any value derived from the reference feed is used.
//
// Corrections are data, loaded once from YAML and never mutated. They are
// layered, highest precedence first:
//
//	location  one stored document ("spells.db/dragon-breath-sky.json")
//	id        one feed record ("spell-738")
//	name      a (type, name) pair; an entry without a type matches any type
//	type      every record of a type
//
// A lower layer is consulted for a field only when no higher layer sets it,
// so one record may override its price but not its rarity.
package overrides

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/packsync/pkg/errors"
	"github.com/agentstation/packsync/pkg/records"
	"github.com/agentstation/packsync/pkg/store"
)

//go:embed data/overrides.yaml
var embedded []byte

// Layer identifies which precedence layer produced a value.
type Layer int

// Layers, highest precedence first.
const (
	LayerNone Layer = iota
	LayerLocation
	LayerID
	LayerName
	LayerType
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerLocation:
		return "location"
	case LayerID:
		return "id"
	case LayerName:
		return "name"
	case LayerType:
		return "type"
	default:
		return "none"
	}
}

// Key identifies what a lookup is for. Location is optional; when empty the
// location layer is skipped.
type Key struct {
	Type     records.Type
	ID       string
	Name     string
	Location store.Location
}

// Allowed is a document the feed is known not to describe.
type Allowed struct {
	Location store.Location
	Reason   string
}

// Replacement is an ordered substring rewrite.
type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type nameKey struct {
	typ  records.Type
	name string
}

// Registry is the immutable, merged set of overrides.
type Registry struct {
	locations     map[store.Location]map[string]Value
	ids           map[string]map[string]Value
	idLocations   map[string][]store.Location
	names         map[nameKey]map[string]Value
	types         map[records.Type]map[string]Value
	sourceAliases map[string]string
	sourceReplace []Replacement
	weaponAliases map[string]string
	allow         map[store.Location]string
}

// Default returns the registry built from the embedded data file only.
func Default() (*Registry, error) {
	return Load()
}

// Load builds a registry from the embedded data file layered with the given
// user files. A later file replaces individual fields, locations, aliases
// and allow-list reasons of earlier ones.
func Load(paths ...string) (*Registry, error) {
	base, err := Parse(embedded, "overrides.yaml")
	if err != nil {
		return nil, err
	}
	files := []*File{base}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.WrapIO("read", p, err)
		}
		f, err := Parse(data, p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return New(files...)
}

// New merges parsed files into a registry.
func New(files ...*File) (*Registry, error) {
	r := &Registry{
		locations:     make(map[store.Location]map[string]Value),
		ids:           make(map[string]map[string]Value),
		idLocations:   make(map[string][]store.Location),
		names:         make(map[nameKey]map[string]Value),
		types:         make(map[records.Type]map[string]Value),
		sourceAliases: make(map[string]string),
		weaponAliases: make(map[string]string),
		allow:         make(map[store.Location]string),
	}
	for _, f := range files {
		if err := r.merge(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) merge(f *File) error {
	for _, e := range f.Locations {
		loc, err := store.ParseLocation(e.Location)
		if err != nil {
			return configError(f.name, err)
		}
		mergeFields(r.locations, loc, e.Fields)
	}
	for _, e := range f.IDs {
		mergeFields(r.ids, e.ID, e.Fields)
		if len(e.Locations) == 0 {
			continue
		}
		locs := make([]store.Location, 0, len(e.Locations))
		for _, s := range e.Locations {
			loc, err := store.ParseLocation(s)
			if err != nil {
				return configError(f.name, err)
			}
			locs = append(locs, loc)
		}
		r.idLocations[e.ID] = locs
	}
	for _, e := range f.Names {
		k := nameKey{name: e.Name}
		if e.Type != "" {
			t, err := records.ParseType(e.Type)
			if err != nil {
				return configError(f.name, err)
			}
			k.typ = t
		}
		mergeFields(r.names, k, e.Fields)
	}
	for _, e := range f.Types {
		t, err := records.ParseType(e.Type)
		if err != nil {
			return configError(f.name, err)
		}
		mergeFields(r.types, t, e.Fields)
	}
	for k, v := range f.Aliases.Source {
		r.sourceAliases[k] = v
	}
	if len(f.Aliases.SourceReplace) > 0 {
		r.sourceReplace = f.Aliases.SourceReplace
	}
	for k, v := range f.Aliases.Weapon {
		r.weaponAliases[strings.ToLower(k)] = v
	}
	for _, a := range f.Allowlist {
		loc, err := store.ParseLocation(a.Location)
		if err != nil {
			return configError(f.name, err)
		}
		r.allow[loc] = a.Reason
	}
	return nil
}

func mergeFields[K comparable](dst map[K]map[string]Value, key K, fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	m, ok := dst[key]
	if !ok {
		m = make(map[string]Value, len(fields))
		dst[key] = m
	}
	for field, raw := range fields {
		m[field] = newValue(raw)
	}
}

func configError(name string, err error) error {
	return errors.NewConfigError("overrides "+name, err.Error(), err)
}

// Lookup returns the override for field, consulting the layers in
// precedence order. A returned Value may be null, meaning clear the field.
func (r *Registry) Lookup(k Key, field string) (Value, bool) {
	v, _, ok := r.LookupLayer(k, field)
	return v, ok
}

// LookupLayer is Lookup that also reports the layer that matched.
func (r *Registry) LookupLayer(k Key, field string) (Value, Layer, bool) {
	if k.Location != (store.Location{}) {
		if v, ok := r.locations[k.Location][field]; ok {
			return v, LayerLocation, true
		}
	}
	if v, ok := r.ids[k.ID][field]; ok {
		return v, LayerID, true
	}
	if v, ok := r.names[nameKey{typ: k.Type, name: k.Name}][field]; ok {
		return v, LayerName, true
	}
	if v, ok := r.names[nameKey{name: k.Name}][field]; ok {
		return v, LayerName, true
	}
	if v, ok := r.types[k.Type][field]; ok {
		return v, LayerType, true
	}
	return Value{}, LayerNone, false
}

// Locations returns the literal document locations pinned to a record id.
// Filenames may be glob or regex patterns.
func (r *Registry) Locations(id string) ([]store.Location, bool) {
	locs, ok := r.idLocations[id]
	return locs, ok
}

// SourceAlias maps a feed publication name to the store's citation.
func (r *Registry) SourceAlias(name string) string {
	if alias, ok := r.sourceAliases[name]; ok {
		name = alias
	}
	for _, rep := range r.sourceReplace {
		name = strings.ReplaceAll(name, rep.From, rep.To)
	}
	return name
}

// WeaponAlias maps a favored weapon name to the store's item name.
func (r *Registry) WeaponAlias(name string) string {
	if alias, ok := r.weaponAliases[strings.ToLower(name)]; ok {
		return alias
	}
	return name
}

// Allowlist returns the known permanent coverage gaps, sorted by location.
func (r *Registry) Allowlist() []Allowed {
	out := make([]Allowed, 0, len(r.allow))
	for loc, reason := range r.allow {
		out = append(out, Allowed{Location: loc, Reason: reason})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location.Less(out[j].Location) })
	return out
}

// Allowed reports whether loc is a known permanent gap and why.
func (r *Registry) Allowed(loc store.Location) (string, bool) {
	reason, ok := r.allow[loc]
	return reason, ok
}

// Stats reports how many entries each layer holds.
func (r *Registry) Stats() map[string]int {
	return map[string]int{
		LayerLocation.String(): len(r.locations),
		LayerID.String():       len(r.ids) + len(r.idLocations),
		LayerName.String():     len(r.names),
		LayerType.String():     len(r.types),
		"allowlist":            len(r.allow),
	}
}

// File is the on-disk shape of an overrides data file.
type File struct {
	name      string
	Locations []LocationEntry `yaml:"locations"`
	IDs       []IDEntry       `yaml:"ids"`
	Names     []NameEntry     `yaml:"names"`
	Types     []TypeEntry     `yaml:"types"`
	Aliases   Aliases         `yaml:"aliases"`
	Allowlist []AllowEntry    `yaml:"allowlist"`
}

// LocationEntry overrides fields of one stored document.
type LocationEntry struct {
	Location string         `yaml:"location"`
	Fields   map[string]any `yaml:"fields"`
}

// IDEntry pins document locations or overrides fields for one feed record.
type IDEntry struct {
	ID        string         `yaml:"id"`
	Locations []string       `yaml:"locations"`
	Fields    map[string]any `yaml:"fields"`
}

// NameEntry overrides fields for a (type, name) pair.
type NameEntry struct {
	Type   string         `yaml:"type"`
	Name   string         `yaml:"name"`
	Fields map[string]any `yaml:"fields"`
}

// TypeEntry overrides fields for every record of a type.
type TypeEntry struct {
	Type   string         `yaml:"type"`
	Fields map[string]any `yaml:"fields"`
}

// Aliases holds the name translation tables.
type Aliases struct {
	Source        map[string]string `yaml:"source"`
	SourceReplace []Replacement     `yaml:"source_replace"`
	Weapon        map[string]string `yaml:"weapon"`
}

// AllowEntry is one allow-list line.
type AllowEntry struct {
	Location string `yaml:"location"`
	Reason   string `yaml:"reason"`
}

// Parse decodes one data file and rejects keys that appear twice within
// a layer.
func Parse(data []byte, name string) (*File, error) {
	f := &File{name: name}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, errors.WrapParse("yaml", name, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) validate() error {
	seen := make(map[string]bool)
	dup := func(layer, key string) error {
		k := layer + "\x00" + key
		if seen[k] {
			return errors.NewConfigError("overrides "+f.name, fmt.Sprintf("duplicate %s entry %q", layer, key), nil)
		}
		seen[k] = true
		return nil
	}
	for _, e := range f.Locations {
		if err := dup("location", e.Location); err != nil {
			return err
		}
	}
	for _, e := range f.IDs {
		if e.ID == "" {
			return errors.NewConfigError("overrides "+f.name, "id entry without id", nil)
		}
		if err := dup("id", e.ID); err != nil {
			return err
		}
	}
	for _, e := range f.Names {
		if e.Name == "" {
			return errors.NewConfigError("overrides "+f.name, "name entry without name", nil)
		}
		if err := dup("name", e.Type+"/"+e.Name); err != nil {
			return err
		}
	}
	for _, e := range f.Types {
		if err := dup("type", e.Type); err != nil {
			return err
		}
	}
	for _, e := range f.Allowlist {
		if err := dup("allowlist", e.Location); err != nil {
			return err
		}
		if strings.TrimSpace(e.Reason) == "" {
			return errors.NewConfigError("overrides "+f.name, fmt.Sprintf("allowlist entry %q has no reason", e.Location), nil)
		}
	}
	return nil
}
