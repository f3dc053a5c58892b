package store

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/agentstation/packsync/pkg/constants"
	"github.com/agentstation/packsync/pkg/errors"
)

// Collections of the target store. Each is a "<name>.db" directory.
const (
	Ancestries  = "ancestries"
	Backgrounds = "backgrounds"
	Deities     = "deities"
	Feats       = "feats"
	Heritages   = "heritages"
	Spells      = "spells"
	Equipment   = "equipment"
)

// Location identifies one document by collection and filename.
// Filename is slash separated and relative to the collection directory.
type Location struct {
	Collection string `yaml:"collection" json:"collection"`
	Filename   string `yaml:"filename" json:"filename"`
}

// String renders the location the way it appears on disk below the data
// directory, e.g. "feats.db/assurance.json".
func (l Location) String() string {
	return l.Collection + constants.CollectionSuffix + "/" + l.Filename
}

// ParseLocation parses "feats.db/assurance.json". The ".db" suffix on the
// collection is optional.
func ParseLocation(s string) (Location, error) {
	collection, filename, ok := strings.Cut(path.Clean(s), "/")
	if !ok || collection == "" || filename == "" {
		return Location{}, errors.NewValidationError("location", s, "expected <collection>.db/<file>")
	}
	return Location{
		Collection: strings.TrimSuffix(collection, constants.CollectionSuffix),
		Filename:   filename,
	}, nil
}

// MustParseLocation is ParseLocation for literals; it panics on error.
func MustParseLocation(s string) Location {
	loc, err := ParseLocation(s)
	if err != nil {
		panic(fmt.Sprintf("store: %v", err))
	}
	return loc
}

// Less orders locations by collection, then filename.
func (l Location) Less(o Location) bool {
	if l.Collection != o.Collection {
		return l.Collection < o.Collection
	}
	return l.Filename < o.Filename
}

// SortLocations sorts locs in place by (collection, filename).
func SortLocations(locs []Location) {
	sort.Slice(locs, func(i, j int) bool { return locs[i].Less(locs[j]) })
}
