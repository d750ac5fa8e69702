// Package memory persists per-submitter label→field associations so that a
// submitter's idiosyncratic headers map with growing confidence on repeated
// submissions. Backends are write-through: every mutation is durable before
// the call returns.
package memory

import (
	"context"
	"strings"

	"github.com/teklifbul/intake/internal/model"
)

// GenericBucket is the shared bucket used when no submitter id is given.
const GenericBucket = "__generic__"

// DefaultBucketCap is the per-bucket entry cap. Least-recently-touched
// entries are evicted first.
const DefaultBucketCap = 1000

// Store is the persistence interface for submitter memory.
type Store interface {
	// GetAliases returns all entries for a submitter. Unknown or empty
	// submitter ids read from the shared generic bucket.
	GetAliases(ctx context.Context, submitterID string) ([]model.MemoryEntry, error)

	// Remember records one observation of alias→field at the given
	// confidence, updating the running mean for an existing entry.
	Remember(ctx context.Context, submitterID, alias string, field model.TargetField, confidence float64) error

	Migrate(ctx context.Context) error
	Close() error
}

// bucketKey maps a submitter id to its storage bucket.
func bucketKey(submitterID string) string {
	if s := strings.TrimSpace(submitterID); s != "" {
		return s
	}
	return GenericBucket
}
