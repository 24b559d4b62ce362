package index

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// QdrantConfig configures the Qdrant gRPC store.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	VectorSize uint64

	MaxRetries   int
	RetryBackoff time.Duration
}

// ApplyDefaults fills zero values with sane defaults.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.VectorSize == 0 {
		c.VectorSize = 1536
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
}

// Validate checks the configuration.
func (c *QdrantConfig) Validate() error {
	if c.Collection == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	if !collectionNamePattern.MatchString(c.Collection) {
		return fmt.Errorf("collection name must match ^[a-z0-9_]{1,64}$, got %q", c.Collection)
	}
	return nil
}

// IsTransientError reports whether a gRPC error is worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// QdrantStore is a Store backed by Qdrant's native gRPC client.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
	log    *zap.Logger
}

// NewQdrantStore connects to Qdrant, health-checks the connection, and
// ensures the collection exists.
func NewQdrantStore(config QdrantConfig, log *zap.Logger) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	store := &QdrantStore{client: client, config: config, log: log}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	if err := store.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// ensureCollection creates the collection when it does not exist yet.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.config.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", s.config.Collection, err)
	}

	s.log.Info("created qdrant collection",
		zap.String("collection", s.config.Collection),
		zap.Uint64("vector_size", s.config.VectorSize))
	return nil
}

// retryOperation retries a transiently failing operation with exponential
// backoff.
func (s *QdrantStore) retryOperation(ctx context.Context, name string, op func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", name, err)
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, err)
		}

		s.log.Warn("retrying store operation",
			zap.String("operation", name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

// Add upserts nodes. Nodes without a valid UUID get a fresh one; the
// returned IDs are the IDs actually stored.
func (s *QdrantStore) Add(ctx context.Context, nodes []Node) ([]string, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	points := make([]*qdrant.PointStruct, len(nodes))
	ids := make([]string, len(nodes))
	for i, node := range nodes {
		id := node.ID
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		ids[i] = id

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(node.Vector...),
			Payload: toQdrantPayload(node),
		}
	}

	err := s.retryOperation(ctx, "add", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.Collection,
			Points:         points,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// Delete removes nodes by ID.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id)
	}

	return s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.Collection,
			Points:         qdrant.NewPointsSelector(pointIDs...),
		})
		return err
	})
}

// Query runs a similarity search, or a filter-only scroll when no vector is
// given.
func (s *QdrantStore) Query(ctx context.Context, q Query) ([]ScoredNode, error) {
	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}
	filter := buildFilter(q.Filters)

	if q.Vector == nil {
		return s.scroll(ctx, filter, topK)
	}

	limit := uint64(topK)
	var results []ScoredNode
	err := s.retryOperation(ctx, "query", func() error {
		points, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.Collection,
			Query:          qdrant.NewQuery(q.Vector...),
			Limit:          &limit,
			Filter:         filter,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}

		results = results[:0]
		for _, p := range points {
			node := nodeFromPayload(p.GetId(), p.GetPayload())
			results = append(results, ScoredNode{Node: node, Score: p.GetScore()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// scroll pages through points matching a filter without scoring.
func (s *QdrantStore) scroll(ctx context.Context, filter *qdrant.Filter, topK int) ([]ScoredNode, error) {
	limit := uint32(topK)
	var results []ScoredNode
	err := s.retryOperation(ctx, "scroll", func() error {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.config.Collection,
			Filter:         filter,
			Limit:          &limit,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}

		results = results[:0]
		for _, p := range points {
			node := nodeFromPayload(p.GetId(), p.GetPayload())
			results = append(results, ScoredNode{Node: node})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// buildFilter converts exact-match filters into a qdrant payload filter.
func buildFilter(filters map[string]any) *qdrant.Filter {
	if len(filters) == 0 {
		return nil
	}

	var conditions []*qdrant.Condition
	for k, v := range filters {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: k,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: fmt.Sprintf("%v", v)},
					},
				},
			},
		})
	}

	return &qdrant.Filter{Must: conditions}
}

// toQdrantPayload flattens a node into a qdrant payload map. Content is
// stored under "content" alongside the metadata keys.
func toQdrantPayload(node Node) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(node.Metadata)+1)
	payload["content"] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: node.Content}}

	for k, v := range node.Metadata {
		switch val := v.(type) {
		case string:
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
		case int:
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
		case int64:
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
		case float64:
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
		case bool:
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
		default:
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", val)}}
		}
	}

	return payload
}

// nodeFromPayload rebuilds a Node from a stored point.
func nodeFromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value) Node {
	node := Node{
		ID:       id.GetUuid(),
		Metadata: make(map[string]any, len(payload)),
	}

	for k, v := range payload {
		if k == "content" {
			node.Content = v.GetStringValue()
			continue
		}
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			node.Metadata[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			node.Metadata[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			node.Metadata[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			node.Metadata[k] = kind.BoolValue
		}
	}

	return node
}
