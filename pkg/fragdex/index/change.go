package index

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Classification is the outcome of comparing a document's current hash
// against the store.
type Classification string

const (
	ClassNew       Classification = "new"
	ClassChanged   Classification = "changed"
	ClassUnchanged Classification = "unchanged"
)

// ChangeDetector classifies documents by comparing their content hash
// against the hash stored with their fragments. Store lookups are memoized
// so one run queries each path at most once. The cache is scoped to a
// single run: Reset must be called before each batch so entries never
// carry over.
type ChangeDetector struct {
	store Store
	log   *zap.Logger

	mu     sync.Mutex
	hashes map[string]string // path -> stored hash; "" means absent
}

// NewChangeDetector creates a detector over the given store.
func NewChangeDetector(store Store, log *zap.Logger) *ChangeDetector {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChangeDetector{
		store:  store,
		log:    log,
		hashes: make(map[string]string),
	}
}

// Reset drops the memoized hashes so the next run re-reads the store.
func (d *ChangeDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hashes = make(map[string]string)
}

// Classify compares the document's current hash against the stored one.
// A lookup failure is treated as "no stored hash": the document classifies
// as new and gets (re)indexed, which at worst re-adds fragments.
func (d *ChangeDetector) Classify(ctx context.Context, path, hash string) Classification {
	stored := d.storedHash(ctx, path)
	switch {
	case stored == "":
		return ClassNew
	case stored != hash:
		return ClassChanged
	default:
		return ClassUnchanged
	}
}

// storedHash returns the memoized stored hash for a path, querying the
// store on first use. The lock covers the lookup so each path is queried
// exactly once even under concurrent classification.
func (d *ChangeDetector) storedHash(ctx context.Context, path string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if stored, ok := d.hashes[path]; ok {
		return stored
	}

	stored := d.lookupHash(ctx, path)
	d.hashes[path] = stored
	return stored
}

// lookupHash fetches the file_hash of any one fragment stored for the path.
func (d *ChangeDetector) lookupHash(ctx context.Context, path string) string {
	results, err := d.store.Query(ctx, Query{
		TopK:    1,
		Filters: map[string]any{"file_path": path},
	})
	if err != nil {
		d.log.Warn("could not retrieve stored file hash",
			zap.String("file_path", path), zap.Error(err))
		return ""
	}

	for _, node := range results {
		if fp, _ := node.Metadata["file_path"].(string); fp != path {
			continue
		}
		if hash, _ := node.Metadata["file_hash"].(string); hash != "" {
			return hash
		}
	}

	return ""
}
