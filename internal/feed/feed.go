// Package feed acquires reference records from the authoritative search
// index.
//
// The index is queried over HTTP, the raw hits are cached, and every hit is
// turned into a records.Record. Hits whose type is not one packsync knows
// are skipped.
package feed

//go:generate mockgen -source=feed.go -destination=mock_feed/mock_source.go -package=mock_feed Source

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/packsync/pkg/records"
)

// Source yields the reference records of one run, in feed order.
type Source interface {
	Records(ctx context.Context) ([]records.Record, error)
}

// Hit is one search result as stored in the index and the cache.
type Hit struct {
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
}

// Convert turns hits into records, preserving order. It returns how many
// hits were skipped because their type is unknown.
func Convert(hits []Hit) ([]records.Record, int) {
	out := make([]records.Record, 0, len(hits))
	skipped := 0
	for _, h := range hits {
		rec, err := records.New(h.ID, h.Source)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	return out, skipped
}

var digits = regexp.MustCompile(`\d+`)

// naturalKey splits id into alternating text and number runs.
func naturalKey(id string) []any {
	var key []any
	last := 0
	for _, loc := range digits.FindAllStringIndex(id, -1) {
		key = append(key, strings.ToLower(id[last:loc[0]]))
		n, _ := strconv.Atoi(id[loc[0]:loc[1]])
		key = append(key, n)
		last = loc[1]
	}
	return append(key, strings.ToLower(id[last:]))
}

// NaturalLess orders ids with embedded numbers compared numerically, so
// "spell-9" sorts before "spell-10".
func NaturalLess(a, b string) bool {
	ka, kb := naturalKey(a), naturalKey(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		switch x := ka[i].(type) {
		case string:
			y := kb[i].(string)
			if x != y {
				return x < y
			}
		case int:
			y := kb[i].(int)
			if x != y {
				return x < y
			}
		}
	}
	return len(ka) < len(kb)
}

// SortHits sorts hits by id in natural order.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool { return NaturalLess(hits[i].ID, hits[j].ID) })
}
