// Package records defines reference records, the entity descriptions read
// from the authoritative feed.
//
// A Record is immutable once built. Its raw fields keep the shape the feed
// delivered them in (string, string list, number or nested map); the typed
// accessors never panic and read a missing field as the zero value.
package records

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/packsync/pkg/errors"
)

// Type is the closed set of entity kinds the feed describes.
type Type string

// Entity kinds.
const (
	TypeAncestry   Type = "Ancestry"
	TypeBackground Type = "Background"
	TypeDeity      Type = "Deity"
	TypeHeritage   Type = "Heritage"
	TypeFeat       Type = "Feat"
	TypeCantrip    Type = "Cantrip"
	TypeFocus      Type = "Focus"
	TypeSpell      Type = "Spell"
	TypeRitual     Type = "Ritual"
	TypeItem       Type = "Item"
	TypeWeapon     Type = "Weapon"
	TypeArmor      Type = "Armor"
	TypeShield     Type = "Shield"
)

// Types lists every known Type in feed order.
var Types = []Type{
	TypeAncestry, TypeBackground, TypeDeity, TypeHeritage, TypeFeat,
	TypeCantrip, TypeFocus, TypeSpell, TypeRitual,
	TypeItem, TypeWeapon, TypeArmor, TypeShield,
}

// ParseType returns the Type named s. Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", &errors.ValidationError{Field: "type", Value: s, Message: "unknown record type"}
}

// String returns the type name.
func (t Type) String() string {
	return string(t)
}

// IsSpell reports whether t belongs to the spell family.
func (t Type) IsSpell() bool {
	switch t {
	case TypeCantrip, TypeFocus, TypeSpell, TypeRitual:
		return true
	}
	return false
}

// IsItem reports whether t belongs to the item family.
func (t Type) IsItem() bool {
	switch t {
	case TypeItem, TypeWeapon, TypeArmor, TypeShield:
		return true
	}
	return false
}

// MustMatch reports whether a record of this type is expected to resolve
// to at least one stored document. Heritages are often folded into their
// ancestry and are exempt.
func (t Type) MustMatch() bool {
	return t != TypeHeritage && t != ""
}

// Record is one entity description from the reference feed.
type Record struct {
	ID     string         `json:"id"`
	Type   Type           `json:"type"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields,omitempty"`
}

// New builds a record from a raw feed source map. The "type" and "name"
// entries become the record's Type and Name; the full map is kept as Fields.
func New(id string, source map[string]any) (Record, error) {
	rawType, _ := source["type"].(string)
	t, err := ParseType(rawType)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: %w", id, err)
	}
	name, _ := source["name"].(string)
	fields := make(map[string]any, len(source))
	for k, v := range source {
		fields[k] = v
	}
	return Record{ID: id, Type: t, Name: name, Fields: fields}, nil
}

// String implements fmt.Stringer.
func (r Record) String() string {
	return fmt.Sprintf("%s %s (%s)", r.Type, r.Name, r.ID)
}

// Has reports whether the field is present, even if null.
func (r Record) Has(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

// Value returns the raw field value.
func (r Record) Value(key string) any {
	return r.Fields[key]
}

// Str returns a string field. Numbers are formatted; other kinds read as "".
func (r Record) Str(key string) string {
	switch v := r.Fields[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// Strings returns a string-list field. A bare string reads as a one-element
// list; non-string list entries are skipped.
func (r Record) Strings(key string) []string {
	switch v := r.Fields[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

// Map returns a nested map field.
func (r Record) Map(key string) map[string]any {
	if m, ok := r.Fields[key].(map[string]any); ok {
		return m
	}
	return nil
}
