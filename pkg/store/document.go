package store

import (
	"strings"

	"github.com/agentstation/packsync/pkg/errors"
)

// Object is a JSON object that remembers key insertion order.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set stores v under key. New keys are appended; existing keys keep their
// position.
func (o *Object) Set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Delete removes key, reporting whether it was present.
func (o *Object) Delete(key string) bool {
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// MarshalJSON implements json.Marshaler, keeping key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return Marshal(o)
}

// Path addresses a value inside a document, e.g. data.level.value.
type Path []string

// ParsePath splits a dotted path.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, "."))
}

// String joins the path with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Child returns p extended by key.
func (p Path) Child(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// Document is the in-memory projection of one stored document. Every
// mutation through Set or Delete marks it dirty.
type Document struct {
	loc    Location
	root   *Object
	dirty  bool
	writes int
}

// NewDocument wraps an already decoded root object.
func NewDocument(loc Location, root *Object) *Document {
	if root == nil {
		root = NewObject()
	}
	return &Document{loc: loc, root: root}
}

// Location returns where the document lives.
func (d *Document) Location() Location { return d.loc }

// Root returns the top-level object.
func (d *Document) Root() *Object { return d.root }

// Dirty reports whether the document holds unpersisted changes.
func (d *Document) Dirty() bool { return d.dirty }

// Writes returns how many times the document has been persisted.
func (d *Document) Writes() int { return d.writes }

// Get returns the value at p.
func (d *Document) Get(p Path) (any, bool) {
	var cur any = d.root
	for _, key := range p {
		obj, ok := cur.(*Object)
		if !ok {
			return nil, false
		}
		if cur, ok = obj.Get(key); !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether a value, possibly null, exists at p.
func (d *Document) Has(p Path) bool {
	_, ok := d.Get(p)
	return ok
}

// Set writes v at p and marks the document dirty. Missing intermediate
// objects are created at the end of their parent.
func (d *Document) Set(p Path, v any) error {
	if len(p) == 0 {
		return errors.NewValidationError("path", "", "empty document path")
	}
	obj := d.root
	for i, key := range p[:len(p)-1] {
		next, ok := obj.Get(key)
		if !ok || next == nil {
			child := NewObject()
			obj.Set(key, child)
			obj = child
			continue
		}
		if obj, ok = next.(*Object); !ok {
			return errors.NewValidationError(p[:i+1].String(), next, "not an object")
		}
	}
	obj.Set(p[len(p)-1], v)
	d.dirty = true
	return nil
}

// Delete removes the value at p, marking the document dirty if it existed.
func (d *Document) Delete(p Path) bool {
	if len(p) == 0 {
		return false
	}
	parent, ok := d.Get(p[:len(p)-1])
	if !ok {
		return false
	}
	obj, ok := parent.(*Object)
	if !ok || !obj.Delete(p[len(p)-1]) {
		return false
	}
	d.dirty = true
	return true
}
