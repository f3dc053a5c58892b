package feed

import (
	"context"
	"net/http"

	"github.com/agentstation/packsync/internal/transport"
	"github.com/agentstation/packsync/pkg/constants"
	"github.com/agentstation/packsync/pkg/logging"
	"github.com/agentstation/packsync/pkg/records"
)

// splitTypes partitions the index into two queries that each stay below
// the maximum result window.
var splitTypes = []string{string(records.TypeFeat), string(records.TypeItem)}

// Client reads the reference feed from an Elasticsearch _search endpoint.
type Client struct {
	URL       string
	Transport *transport.Client
	Cache     Cache
	Force     bool
	PageSize  int

	// Skipped counts hits of unknown type dropped by the last Records call.
	Skipped int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.Transport = c.Transport.WithHTTPClient(hc) }
}

// WithAuth sends credentials with every request.
func WithAuth(auth transport.Authenticator) Option {
	return func(c *Client) { c.Transport = c.Transport.WithAuth(auth) }
}

// WithCache stores downloaded hits in cache and reads them back on later
// runs.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.Cache = cache }
}

// WithForce ignores any cached copy and downloads the feed again.
func WithForce(force bool) Option {
	return func(c *Client) { c.Force = force }
}

// NewClient returns a client for url. An empty url selects the public
// endpoint.
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = constants.DefaultFeedURL
	}
	c := &Client{
		URL:       url,
		Transport: transport.New(nil),
		PageSize:  constants.FeedPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Records implements Source.
func (c *Client) Records(ctx context.Context) ([]records.Record, error) {
	hits, err := c.Hits(ctx)
	if err != nil {
		return nil, err
	}
	recs, skipped := Convert(hits)
	c.Skipped = skipped
	if skipped > 0 {
		logging.FromContext(ctx).Debug().Int("skipped", skipped).Msg("Skipped hits of unknown type")
	}
	return recs, nil
}

// Hits returns the raw, naturally sorted hits, from the cache when allowed.
func (c *Client) Hits(ctx context.Context) ([]Hit, error) {
	logger := logging.FromContext(ctx)
	if c.Cache != nil && !c.Force {
		hits, ok, err := c.Cache.Load(ctx, c.URL)
		if err != nil {
			logger.Warn().Err(err).Msg("Ignoring unreadable feed cache")
		} else if ok {
			logger.Debug().Int("hits", len(hits)).Msg("Using cached feed")
			return hits, nil
		}
	}

	logger.Info().Str("url", c.URL).Msg("Downloading reference feed")
	included, err := c.search(ctx, query{Bool: boolQuery{Filter: []clause{{Terms: terms{Type: splitTypes}}}}})
	if err != nil {
		return nil, err
	}
	rest, err := c.search(ctx, query{Bool: boolQuery{MustNot: []clause{{Terms: terms{Type: splitTypes}}}}})
	if err != nil {
		return nil, err
	}
	hits := append(included, rest...)
	SortHits(hits)
	logger.Info().Int("hits", len(hits)).Msg("Download complete")

	if c.Cache != nil {
		if err := c.Cache.Store(ctx, c.URL, hits); err != nil {
			logger.Warn().Err(err).Msg("Could not cache feed")
		}
	}
	return hits, nil
}

type terms struct {
	Type []string `json:"type"`
}

type clause struct {
	Terms terms `json:"terms"`
}

type boolQuery struct {
	Filter  []clause `json:"filter,omitempty"`
	MustNot []clause `json:"must_not,omitempty"`
}

type query struct {
	Bool boolQuery `json:"bool"`
}

type searchRequest struct {
	Query  query `json:"query"`
	Size   int   `json:"size"`
	Source struct {
		Excludes []string `json:"excludes"`
	} `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

func (c *Client) search(ctx context.Context, q query) ([]Hit, error) {
	body := searchRequest{Query: q, Size: c.PageSize}
	body.Source.Excludes = []string{"text"}

	resp, err := c.Transport.PostJSON(ctx, c.URL, body)
	if err != nil {
		return nil, err
	}
	var out searchResponse
	if err := transport.DecodeResponse(resp, c.URL, &out); err != nil {
		return nil, err
	}
	return out.Hits.Hits, nil
}
