// Package constants provides shared constants used throughout packsync.
// This includes timeouts, file permissions, store layout names and feed
// defaults that should be consistent across the application.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the standard timeout for reference feed requests
	DefaultHTTPTimeout = 2 * time.Minute

	// CommandTimeout is the default timeout for a full reconciliation run
	CommandTimeout = 30 * time.Minute

	// FeedCacheTTL is how long a cached feed download stays valid when
	// --force is not given. Zero means the cache never expires.
	FeedCacheTTL time.Duration = 0
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Store layout
const (
	// DataDir is the store directory relative to the store root
	DataDir = "packs/data"

	// CollectionSuffix is appended to a collection name to form its directory
	CollectionSuffix = ".db"

	// DocumentExt is the extension of every target document
	DocumentExt = ".json"

	// DocumentIndent is the indentation used when persisting documents
	DocumentIndent = "    "
)

// Reference feed defaults
const (
	// DefaultFeedURL is the search endpoint queried for reference records
	DefaultFeedURL = "https://2e.aonprd.com:9200/aon-test/_search"

	// FeedPageSize is the maximum number of hits requested per query
	FeedPageSize = 10000

	// FeedCacheFile is the file name of the on-disk feed cache
	FeedCacheFile = "packsync-feed.json"
)
