package store

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/agentstation/packsync/pkg/constants"
	"github.com/agentstation/packsync/pkg/errors"
)

// Scope is the set of documents a run may modify. The zero value covers
// the whole store.
type Scope struct {
	set map[Location]struct{}
	// Ignored lists requested paths that name no document of the store.
	Ignored []string
}

// All returns a scope covering every document.
func All() Scope {
	return Scope{}
}

// IsAll reports whether the scope is unrestricted.
func (sc Scope) IsAll() bool {
	return sc.set == nil
}

// Contains reports whether loc is in scope.
func (sc Scope) Contains(loc Location) bool {
	if sc.set == nil {
		return true
	}
	_, ok := sc.set[loc]
	return ok
}

// Len returns the number of explicitly scoped documents, or -1 for All.
func (sc Scope) Len() int {
	if sc.set == nil {
		return -1
	}
	return len(sc.set)
}

// Scope builds a scope from file and directory paths. Directories contribute
// every document below them. With no paths the scope covers the whole store.
func (s *Store) Scope(paths ...string) (Scope, error) {
	if len(paths) == 0 {
		return All(), nil
	}
	sc := Scope{set: make(map[Location]struct{})}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return Scope{}, errors.WrapIO("resolve", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			sc.Ignored = append(sc.Ignored, p)
			continue
		}
		if !info.IsDir() {
			if loc, ok := s.locate(abs); ok {
				sc.set[loc] = struct{}{}
			} else {
				sc.Ignored = append(sc.Ignored, p)
			}
			continue
		}
		err = filepath.WalkDir(abs, func(fp string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(fp) != constants.DocumentExt {
				return nil
			}
			if loc, ok := s.locate(fp); ok {
				sc.set[loc] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return Scope{}, errors.WrapIO("walk", abs, err)
		}
	}
	return sc, nil
}
