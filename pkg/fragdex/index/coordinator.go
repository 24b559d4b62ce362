package index

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fragdex/fragdex/pkg/fragdex/models"
)

// maxSummaryInput caps the text sent to the completion client for one
// document summary.
const maxSummaryInput = 8000

// Document is one parsed workbook: its path and every fragment extracted
// from it. All fragments carry the same file hash.
type Document struct {
	Path      string
	Fragments []models.Fragment
}

// Hash returns the document's content hash, taken from its fragments.
func (d Document) Hash() string {
	if len(d.Fragments) == 0 {
		return ""
	}
	return d.Fragments[0].Metadata.FileHash
}

// Summary is the full accounting of one index run. Every input document
// lands in exactly one bucket.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Failures  map[string]string // path -> reason
}

// CoordinatorConfig tunes an index run.
type CoordinatorConfig struct {
	// Workers bounds the worker pool. Zero or negative uses
	// min(8, NumCPU).
	Workers int
	// Summarize adds one completion-generated summary node per indexed
	// document when a completion client is configured.
	Summarize bool
}

// Coordinator drives incremental index updates: classify each document,
// skip unchanged ones, replace changed ones, and add new ones.
type Coordinator struct {
	store     Store
	embedder  Embedder
	completer CompletionClient
	detector  *ChangeDetector
	config    CoordinatorConfig
	log       *zap.Logger
}

// NewCoordinator creates a coordinator. completer may be nil; summaries are
// then skipped regardless of config.
func NewCoordinator(store Store, embedder Embedder, completer CompletionClient,
	config CoordinatorConfig, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		store:     store,
		embedder:  embedder,
		completer: completer,
		detector:  NewChangeDetector(store, log),
		config:    config,
		log:       log,
	}
}

func (c *Coordinator) workers() int {
	if c.config.Workers > 0 {
		return c.config.Workers
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Update indexes the documents with a bounded worker pool. A failure in one
// document never aborts the run; the summary accounts for every document.
// The context is consulted between documents, not mid-document: a canceled
// context fails the documents that have not started yet.
func (c *Coordinator) Update(ctx context.Context, docs []Document) Summary {
	// Each run starts with an empty hash cache; entries memoized during a
	// previous Update would misclassify documents indexed by that run.
	c.detector.Reset()

	summary := Summary{Failures: make(map[string]string)}
	var mu sync.Mutex

	g := &errgroup.Group{}
	g.SetLimit(c.workers())

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			outcome, reason := c.processDocument(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeSucceeded:
				summary.Succeeded++
			case outcomeSkipped:
				summary.Skipped++
			case outcomeFailed:
				summary.Failed++
				summary.Failures[doc.Path] = reason
			}
			return nil
		})
	}

	_ = g.Wait()

	c.log.Info("index update complete",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))

	return summary
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
	outcomeSkipped
)

// processDocument runs the classify/delete/add sequence for one document.
func (c *Coordinator) processDocument(ctx context.Context, doc Document) (outcome, string) {
	if err := ctx.Err(); err != nil {
		return outcomeFailed, fmt.Sprintf("canceled before indexing: %v", err)
	}

	if len(doc.Fragments) == 0 {
		return outcomeSkipped, ""
	}

	class := c.detector.Classify(ctx, doc.Path, doc.Hash())
	switch class {
	case ClassUnchanged:
		c.log.Debug("document unchanged", zap.String("file_path", doc.Path))
		return outcomeSkipped, ""
	case ClassChanged:
		// Best effort: a failed stale-fragment sweep is logged, and the
		// new fragments are still written.
		if err := c.deleteExisting(ctx, doc.Path); err != nil {
			c.log.Warn("could not delete stale fragments",
				zap.String("file_path", doc.Path), zap.Error(err))
		}
	}

	if err := c.addFragments(ctx, doc); err != nil {
		c.log.Error("failed to index document",
			zap.String("file_path", doc.Path), zap.Error(err))
		return outcomeFailed, err.Error()
	}

	if c.config.Summarize && c.completer != nil {
		// Summaries are additive; a failure never fails the document.
		if err := c.addSummary(ctx, doc); err != nil {
			c.log.Warn("could not store document summary",
				zap.String("file_path", doc.Path), zap.Error(err))
		}
	}

	c.log.Info("indexed document",
		zap.String("file_path", doc.Path),
		zap.String("classification", string(class)),
		zap.Int("fragments", len(doc.Fragments)))
	return outcomeSucceeded, ""
}

// deleteExisting removes every stored fragment of a path before its new
// fragments are added.
func (c *Coordinator) deleteExisting(ctx context.Context, path string) error {
	results, err := c.store.Query(ctx, Query{
		TopK:    1000,
		Filters: map[string]any{"file_path": path},
	})
	if err != nil {
		return fmt.Errorf("querying stale fragments: %w", err)
	}
	if len(results) == 0 {
		return nil
	}

	ids := make([]string, 0, len(results))
	for _, node := range results {
		if node.ID != "" {
			ids = append(ids, node.ID)
		}
	}

	if err := c.store.Delete(ctx, ids); err != nil {
		return fmt.Errorf("deleting %d stale fragments: %w", len(ids), err)
	}
	return nil
}

// addFragments embeds and stores every fragment of a document.
func (c *Coordinator) addFragments(ctx context.Context, doc Document) error {
	texts := make([]string, len(doc.Fragments))
	for i, frag := range doc.Fragments {
		texts[i] = frag.Content
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding fragments: %w", err)
	}
	if len(vectors) != len(doc.Fragments) {
		return fmt.Errorf("embedding count mismatch: %d fragments, %d vectors",
			len(doc.Fragments), len(vectors))
	}

	nodes := make([]Node, len(doc.Fragments))
	for i, frag := range doc.Fragments {
		nodes[i] = Node{
			ID:       uuid.New().String(),
			Content:  frag.Content,
			Vector:   vectors[i],
			Metadata: frag.Metadata.Map(),
		}
	}

	if _, err := c.store.Add(ctx, nodes); err != nil {
		return fmt.Errorf("storing fragments: %w", err)
	}
	return nil
}

// addSummary generates and stores a single summary node for a document.
func (c *Coordinator) addSummary(ctx context.Context, doc Document) error {
	prompt := summaryPrompt(doc)
	text, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generating summary: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	vector, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding summary: %w", err)
	}

	node := Node{
		ID:      uuid.New().String(),
		Content: text,
		Vector:  vector,
		Metadata: models.Metadata{
			FilePath:    doc.Path,
			SheetName:   "(workbook)",
			SheetNumber: 0,
			Type:        models.FragmentSummary,
			FileHash:    doc.Hash(),
		}.Map(),
	}

	_, err = c.store.Add(ctx, []Node{node})
	return err
}

// summaryPrompt concatenates fragment content, sheet-ordered, capped at
// maxSummaryInput characters.
func summaryPrompt(doc Document) string {
	fragments := make([]models.Fragment, len(doc.Fragments))
	copy(fragments, doc.Fragments)
	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].Metadata.SheetNumber < fragments[j].Metadata.SheetNumber
	})

	var b strings.Builder
	for _, frag := range fragments {
		if b.Len() >= maxSummaryInput {
			break
		}
		b.WriteString(frag.Content)
		b.WriteString("\n\n")
	}

	body := b.String()
	if len(body) > maxSummaryInput {
		body = body[:maxSummaryInput]
	}

	return "Summarize this document in 5 concise sentences:\n\n" + body
}
