package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/w-h-a/lio/storer"
	getsafe "github.com/w-h-a/lio/util/get_safe"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]`)

type neo4jStorer struct {
	options    storer.Options
	driver     neo4j.DriverWithContext
	collection storer.Collection
	mtx        sync.RWMutex
}

func (s *neo4jStorer) Ensure(ctx context.Context, collection storer.Collection) error {
	if collection.Distance == storer.Dot {
		return fmt.Errorf("neo4j vector indexes support cosine and euclidean, not %s", collection.Distance)
	}

	s.mtx.Lock()
	s.collection = collection
	s.mtx.Unlock()

	return s.configure(ctx)
}

func (s *neo4jStorer) Reset(ctx context.Context, collection storer.Collection) error {
	s.mtx.Lock()
	s.collection = collection
	s.mtx.Unlock()

	if err := s.write(ctx, fmt.Sprintf("MATCH (m:%s) DETACH DELETE m", label(collection.Name)), nil); err != nil {
		return err
	}

	if err := s.write(ctx, fmt.Sprintf("DROP INDEX %s IF EXISTS", indexName(collection.Name)), nil); err != nil {
		return err
	}

	return s.Ensure(ctx, collection)
}

func (s *neo4jStorer) Upsert(ctx context.Context, records []storer.Record) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row, err := toRow(rec)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	query := fmt.Sprintf(`
		UNWIND $rows AS row
		MERGE (m:%s {id: row.id})
		SET m.content = row.content,
			m.kind = row.kind,
			m.conversation_id = row.conversation_id,
			m.metadata = row.metadata,
			m.created_at = row.created_at,
			m.embedding = row.embedding
	`, label(s.name()))

	return s.write(ctx, query, map[string]any{"rows": rows})
}

func (s *neo4jStorer) Search(ctx context.Context, vector []float32, limit int, filter storer.Filter) ([]storer.ScoredRecord, error) {
	if limit <= 0 {
		return []storer.ScoredRecord{}, nil
	}

	coll := s.current()

	// the vector index is queried before filtering, so over-fetch
	k := limit
	if len(filter.ConversationId) > 0 || len(filter.Kind) > 0 {
		k = limit * 4
	}

	query := `
		CALL db.index.vector.queryNodes($index, $k, $vec)
		YIELD node, score
		WHERE ($conversation = '' OR node.conversation_id = $conversation)
			AND ($kind = '' OR node.kind = $kind)
		RETURN node, score
		ORDER BY score DESC, node.id
		LIMIT $limit
	`

	params := map[string]any{
		"index":        indexName(coll.Name),
		"k":            k,
		"vec":          vector,
		"conversation": filter.ConversationId,
		"kind":         string(filter.Kind),
		"limit":        limit,
	}

	rows, err := s.read(ctx, query, params)
	if err != nil {
		return nil, err
	}

	out := make([]storer.ScoredRecord, 0, len(rows))

	for _, row := range rows {
		nodeVal, _ := row.Get("node")
		node, ok := nodeVal.(neo4j.Node)
		if !ok {
			continue
		}

		scoreVal, _ := row.Get("score")
		score, _ := scoreVal.(float64)

		out = append(out, storer.ScoredRecord{
			Record: fromProps(node.Props),
			Score:  normalize(coll.Distance, score),
		})
	}

	return out, nil
}

func (s *neo4jStorer) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf("MATCH (m:%s) WHERE m.id IN $ids DETACH DELETE m", label(s.name()))

	return s.write(ctx, query, map[string]any{"ids": ids})
}

func (s *neo4jStorer) DeleteConversation(ctx context.Context, conversationId string) error {
	query := fmt.Sprintf("MATCH (m:%s {conversation_id: $conversation}) DETACH DELETE m", label(s.name()))

	return s.write(ctx, query, map[string]any{"conversation": conversationId})
}

func (s *neo4jStorer) Count(ctx context.Context) (int, error) {
	rows, err := s.read(ctx, fmt.Sprintf("MATCH (m:%s) RETURN count(m) AS n", label(s.name())), nil)
	if err != nil {
		return 0, err
	}

	if len(rows) == 0 {
		return 0, nil
	}

	n, _ := rows[0].Get("n")
	count, _ := n.(int64)

	return int(count), nil
}

func (s *neo4jStorer) configure(ctx context.Context) error {
	coll := s.current()

	similarity := "cosine"
	if coll.Distance == storer.Euclidean {
		similarity = "euclidean"
	}

	vectorQuery := fmt.Sprintf(
		"CREATE VECTOR INDEX %s IF NOT EXISTS "+
			"FOR (m:%s) ON (m.embedding) "+
			"OPTIONS {indexConfig: {"+
			" `vector.dimensions`: %d,"+
			" `vector.similarity_function`: '%s'"+
			"}}",
		indexName(coll.Name), label(coll.Name), coll.VectorSize, similarity,
	)

	if err := s.write(ctx, vectorQuery, nil); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	constraintQuery := fmt.Sprintf(
		"CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (m:%s) REQUIRE m.id IS UNIQUE",
		unsafeName.ReplaceAllString(coll.Name, "_"), label(coll.Name),
	)

	if err := s.write(ctx, constraintQuery, nil); err != nil {
		return fmt.Errorf("failed to create unique constraint: %w", err)
	}

	return nil
}

func (s *neo4jStorer) write(ctx context.Context, query string, params map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, s.options.Timeout)
	defer cancel()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	return err
}

func (s *neo4jStorer) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.options.Timeout)
	defer cancel()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	return rows.([]*neo4j.Record), nil
}

func (s *neo4jStorer) current() storer.Collection {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.collection
}

func (s *neo4jStorer) name() string {
	return s.current().Name
}

func label(collection string) string {
	return "`" + strings.ReplaceAll(collection, "`", "``") + "`"
}

func indexName(collection string) string {
	return unsafeName.ReplaceAllString(collection, "_") + "_embedding"
}

func toRow(rec storer.Record) (map[string]any, error) {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("record %s: failed to encode metadata: %w", rec.Id, err)
	}

	return map[string]any{
		"id":              rec.Id,
		"content":         rec.Content,
		"kind":            string(rec.Kind),
		"conversation_id": rec.ConversationId,
		"metadata":        string(meta),
		"created_at":      rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		"embedding":       rec.Vector,
	}, nil
}

func fromProps(props map[string]any) storer.Record {
	var meta map[string]any
	if v, ok := props["metadata"].(string); ok {
		json.Unmarshal([]byte(v), &meta)
	}

	return storer.Record{
		Id:             getsafe.String(props, "id"),
		Content:        getsafe.String(props, "content"),
		Kind:           storer.Kind(getsafe.String(props, "kind")),
		ConversationId: getsafe.String(props, "conversation_id"),
		CreatedAt:      getsafe.Time(props, "created_at"),
		Metadata:       meta,
	}
}

// normalize maps neo4j's [0, 1] index scores back onto the scale the
// other stores use: raw cosine similarity and 1/(1+d) for euclidean.
func normalize(distance storer.Distance, score float64) float32 {
	switch distance {
	case storer.Euclidean:
		if score <= 0 {
			return 0
		}
		d := math.Sqrt(1/score - 1)
		return float32(1 / (1 + d))
	default:
		return float32(2*score - 1)
	}
}

// NewStorer connects to the neo4j instance at the location. A "user:password"
// api key enables basic auth.
func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	if len(options.Location) == 0 {
		detail := "a location is required for neo4j storer"
		slog.ErrorContext(options.Context, detail)
		panic(detail)
	}

	auth := neo4j.NoAuth()
	if user, password, ok := strings.Cut(options.ApiKey, ":"); ok {
		auth = neo4j.BasicAuth(user, password, "")
	}

	driver, err := neo4j.NewDriverWithContext(options.Location, auth)
	if err != nil {
		slog.ErrorContext(options.Context, "failed to create neo4j driver", "error", err)
		panic(err)
	}

	return &neo4jStorer{
		options: options,
		driver:  driver,
		mtx:     sync.RWMutex{},
	}
}
