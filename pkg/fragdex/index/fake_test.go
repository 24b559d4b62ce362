package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// fakeStore is an in-memory Store that records operations for assertions.
type fakeStore struct {
	mu      sync.Mutex
	nodes   map[string]Node
	ops     []string // "add:<path>", "delete", "query:<path>"
	queries map[string]int

	failAddPaths map[string]bool
	failQuery    bool
	failDelete   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:        make(map[string]Node),
		queries:      make(map[string]int),
		failAddPaths: make(map[string]bool),
	}
}

func (s *fakeStore) Add(ctx context.Context, nodes []Node) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for _, node := range nodes {
		path, _ := node.Metadata["file_path"].(string)
		if s.failAddPaths[path] {
			return nil, fmt.Errorf("add failed for %s", path)
		}
		s.nodes[node.ID] = node
		ids = append(ids, node.ID)
		s.ops = append(s.ops, "add:"+path)
	}
	return ids, nil
}

func (s *fakeStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDelete {
		return errors.New("delete failed")
	}
	for _, id := range ids {
		delete(s.nodes, id)
	}
	s.ops = append(s.ops, "delete")
	return nil
}

func (s *fakeStore) Query(ctx context.Context, q Query) ([]ScoredNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, _ := q.Filters["file_path"].(string)
	s.queries[path]++
	s.ops = append(s.ops, "query:"+path)

	if s.failQuery {
		return nil, errors.New("query failed")
	}

	var results []ScoredNode
	for _, node := range s.nodes {
		match := true
		for k, v := range q.Filters {
			if node.Metadata[k] != v {
				match = false
				break
			}
		}
		if match {
			results = append(results, ScoredNode{Node: node})
		}
		if q.TopK > 0 && len(results) >= q.TopK {
			break
		}
	}
	return results, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) countNodes(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, node := range s.nodes {
		if node.Metadata["file_path"] == path {
			n++
		}
	}
	return n
}

func (s *fakeStore) opsFor(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, op := range s.ops {
		if op == "delete" || strings.HasSuffix(op, ":"+path) {
			out = append(out, op)
		}
	}
	return out
}

// fakeEmbedder returns fixed-size vectors without any network.
type fakeEmbedder struct {
	fail bool
}

func (e *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, errors.New("embedding failed")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1}
	}
	return vectors, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("embedding failed")
	}
	return []float32{float32(len(text)), 1}, nil
}

// fakeCompleter returns a canned summary.
type fakeCompleter struct {
	calls int
	mu    sync.Mutex
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return "A short summary.", nil
}
