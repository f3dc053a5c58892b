package feed

import (
	"context"
	"os"

	"github.com/agentstation/packsync/pkg/errors"
	"github.com/agentstation/packsync/pkg/records"
)

// Static is a Source over a fixed list of records.
type Static []records.Record

// Records implements Source.
func (s Static) Records(ctx context.Context) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]records.Record(nil), s...), nil
}

// FromHits builds a Static source from raw hits, sorting them the way the
// index download does.
func FromHits(hits []Hit) Static {
	sorted := append([]Hit(nil), hits...)
	SortHits(sorted)
	recs, _ := Convert(sorted)
	return Static(recs)
}

// FromFile reads a JSON array of hits, as written by a feed download, into
// a Static source.
func FromFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	hits, err := decodeHits(data, path)
	if err != nil {
		return nil, err
	}
	return FromHits(hits), nil
}
