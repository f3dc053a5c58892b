// Package store is the target store accessor: it locates, loads, caches and
// persists the JSON documents below "<root>/packs/data".
//
// A document is parsed the first time it is opened and the same instance is
// returned for the rest of the run, so changes made on behalf of several
// reference records accumulate in one place. Close persists a document only
// if it is dirty.
package store

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/packsync/internal/matcher"
	"github.com/agentstation/packsync/internal/text"
	"github.com/agentstation/packsync/pkg/constants"
	"github.com/agentstation/packsync/pkg/errors"
)

// DefaultASCIIFields are the string fields folded to ASCII on save.
var DefaultASCIIFields = []Path{
	ParsePath("data.primarycheck.value"),
	ParsePath("data.time.value"),
}

// Stats counts store activity for one run.
type Stats struct {
	Opened    int
	Persisted int
	// Suppressed counts dirty documents not written because of a dry run.
	Suppressed int
}

// Store gives access to the documents of one target store.
type Store struct {
	root        string
	dataDir     string
	docs        map[Location]*Document
	asciiFields []Path
	dryRun      bool
	stats       Stats
}

// Option configures a Store.
type Option func(*Store)

// WithASCIIFields replaces the set of fields folded to ASCII on save.
func WithASCIIFields(paths ...Path) Option {
	return func(s *Store) {
		s.asciiFields = paths
	}
}

// WithDryRun makes Close and Flush skip writing dirty documents.
func WithDryRun(dryRun bool) Option {
	return func(s *Store) {
		s.dryRun = dryRun
	}
}

// New opens the store rooted at root. It fails with a StructuralError if
// root has no packs/data directory.
func New(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.NewStructuralError(root, "cannot resolve path", err)
	}
	dataDir := filepath.Join(abs, filepath.FromSlash(constants.DataDir))
	info, err := os.Stat(dataDir)
	if err != nil {
		return nil, errors.NewStructuralError(abs, constants.DataDir+" not found", err)
	}
	if !info.IsDir() {
		return nil, errors.NewStructuralError(abs, constants.DataDir+" is not a directory", nil)
	}

	s := &Store{
		root:        abs,
		dataDir:     dataDir,
		docs:        make(map[Location]*Document),
		asciiFields: DefaultASCIIFields,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute store root.
func (s *Store) Root() string { return s.root }

// DataDir returns the absolute data directory.
func (s *Store) DataDir() string { return s.dataDir }

// Stats returns the activity counters.
func (s *Store) Stats() Stats { return s.stats }

// Path returns the file path of loc.
func (s *Store) Path(loc Location) string {
	return filepath.Join(s.dataDir, loc.Collection+constants.CollectionSuffix, filepath.FromSlash(loc.Filename))
}

// Exists reports whether loc is a regular file.
func (s *Store) Exists(loc Location) bool {
	info, err := os.Stat(s.Path(loc))
	return err == nil && info.Mode().IsRegular()
}

// Glob returns the documents of collection whose filename matches pattern,
// sorted by filename. A missing collection yields no matches.
func (s *Store) Glob(collection, pattern string) ([]Location, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, collection+constants.CollectionSuffix))
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.WrapIO("read", collection, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	matched, err := matcher.Filter(pattern, names...)
	if err != nil {
		return nil, errors.NewValidationError("pattern", pattern, err.Error())
	}
	var locs []Location
	for _, name := range matched {
		locs = append(locs, Location{Collection: collection, Filename: name})
	}
	return locs, nil
}

// Universe lists every existing document within scope, sorted.
func (s *Store) Universe(scope Scope) ([]Location, error) {
	var locs []Location
	err := filepath.WalkDir(s.dataDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || filepath.Ext(p) != constants.DocumentExt {
			return nil
		}
		loc, ok := s.locate(p)
		if ok && scope.Contains(loc) {
			locs = append(locs, loc)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapIO("walk", s.dataDir, err)
	}
	SortLocations(locs)
	return locs, nil
}

// locate maps an absolute file path below the data directory to a Location.
func (s *Store) locate(p string) (Location, bool) {
	rel, err := filepath.Rel(s.dataDir, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Location{}, false
	}
	collection, filename, ok := strings.Cut(filepath.ToSlash(rel), "/")
	if !ok || !strings.HasSuffix(collection, constants.CollectionSuffix) {
		return Location{}, false
	}
	return Location{
		Collection: strings.TrimSuffix(collection, constants.CollectionSuffix),
		Filename:   filename,
	}, true
}

// Open returns the document at loc, parsing it on first use.
func (s *Store) Open(loc Location) (*Document, error) {
	if doc, ok := s.docs[loc]; ok {
		return doc, nil
	}
	p := s.Path(loc)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.NewNotFoundError("document", loc.String())
	}
	if err != nil {
		return nil, errors.WrapIO("read", p, err)
	}
	root, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WrapParse("json", p, err)
	}
	doc := NewDocument(loc, root)
	s.docs[loc] = doc
	s.stats.Opened++
	return doc, nil
}

// Opened returns the cached documents sorted by location.
func (s *Store) Opened() []*Document {
	docs := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].loc.Less(docs[j].loc) })
	return docs
}

// Close persists doc if it is dirty. The document stays cached.
func (s *Store) Close(doc *Document) error {
	if !doc.dirty {
		return nil
	}
	if s.dryRun {
		s.stats.Suppressed++
		doc.dirty = false
		return nil
	}
	if err := s.fold(doc); err != nil {
		return err
	}
	data, err := Marshal(doc.root)
	if err != nil {
		return errors.WrapParse("json", s.Path(doc.loc), err)
	}
	if err := writeAtomic(s.Path(doc.loc), data); err != nil {
		return err
	}
	doc.dirty = false
	doc.writes++
	s.stats.Persisted++
	return nil
}

// Flush closes every cached document in location order and reports the
// first error after attempting all of them.
func (s *Store) Flush() error {
	var errs []error
	for _, doc := range s.Opened() {
		if err := s.Close(doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every cached document without persisting it.
func (s *Store) Discard() {
	s.docs = make(map[Location]*Document)
}

// fold applies the ASCII transform to the designated fields of doc.
func (s *Store) fold(doc *Document) error {
	for _, p := range s.asciiFields {
		v, ok := doc.Get(p)
		if !ok {
			continue
		}
		str, ok := v.(string)
		if !ok || text.IsASCII(str) {
			continue
		}
		folded, err := text.ASCII(str)
		if err != nil {
			return errors.NewValidationError(doc.loc.String()+":"+p.String(), str, err.Error())
		}
		parent, _ := doc.Get(p[:len(p)-1])
		parent.(*Object).Set(p[len(p)-1], folded)
	}
	return nil
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".packsync-*.json")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, constants.FilePermissions); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("chmod", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("rename", path, err)
	}
	return nil
}
