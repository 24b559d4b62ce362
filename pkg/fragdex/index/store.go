// Package index keeps a remote vector store incrementally consistent with
// parsed workbook fragments.
package index

import "context"

// Node is one stored fragment: content, its embedding, and a flat payload.
type Node struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]any
}

// ScoredNode is a query result.
type ScoredNode struct {
	Node
	Score float32
}

// Query describes a store lookup. A nil Vector requests a filter-only scan;
// implementations without exact secondary lookups may approximate it with a
// similarity query.
type Query struct {
	Vector  []float32
	TopK    int
	Filters map[string]any // payload key -> exact match value
}

// Store is the vector store boundary. Implementations must be safe for
// concurrent use.
type Store interface {
	// Add upserts nodes and returns the IDs actually stored.
	Add(ctx context.Context, nodes []Node) ([]string, error)
	// Delete removes nodes by ID. Unknown IDs are not an error.
	Delete(ctx context.Context, ids []string) error
	// Query returns up to TopK nodes matching the filters.
	Query(ctx context.Context, q Query) ([]ScoredNode, error)
	// Close releases the underlying connection.
	Close() error
}

// Embedder converts text into vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CompletionClient generates text from a prompt. Used for optional
// per-document summaries.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
