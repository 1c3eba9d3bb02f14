// Package vector provides the semantic index for resources, backed by the
// embedded chromem-go database.
package vector

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/studypilot/studypilot/config"
	"github.com/studypilot/studypilot/internal/store"
)

// DefaultDimensions is the embedding width used when none is configured.
const DefaultDimensions = 64

// Match is a semantic search hit.
type Match struct {
	VectorID   string            `json:"vector_id"`
	Document   string            `json:"document"`
	Similarity float32           `json:"similarity"`
	Metadata   map[string]string `json:"metadata"`
}

// Index stores resource documents with metadata and supports similarity
// search. Vector ids are opaque strings, stable once assigned.
type Index struct {
	collection *chromem.Collection
	logger     *log.Logger
}

// New opens (or creates) a persistent index at the configured path.
func New(cfg config.VectorConfig, logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[VECTOR] ", log.LstdFlags)
	}
	path := cfg.Path
	if path == "" {
		path = "./var/vector"
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating vector dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector db: %w", err)
	}
	return newIndex(db, cfg, logger)
}

// NewInMemory builds a throwaway index, used in tests and when persistence
// is not needed.
func NewInMemory(cfg config.VectorConfig, logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[VECTOR] ", log.LstdFlags)
	}
	return newIndex(chromem.NewDB(), cfg, logger)
}

func newIndex(db *chromem.DB, cfg config.VectorConfig, logger *log.Logger) (*Index, error) {
	name := cfg.Collection
	if name == "" {
		name = "studypilot-resources"
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	collection, err := db.GetOrCreateCollection(name, nil, hashingEmbedding(dims))
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", name, err)
	}
	return &Index{collection: collection, logger: logger}, nil
}

// Upsert indexes the given resources and returns their vector ids. A
// resource without a vector id is assigned one exactly once; existing ids
// are never reassigned.
func (ix *Index) Upsert(ctx context.Context, resources []store.Resource) ([]string, error) {
	if len(resources) == 0 {
		return nil, nil
	}
	docs := make([]chromem.Document, 0, len(resources))
	ids := make([]string, 0, len(resources))
	for i := range resources {
		r := &resources[i]
		if r.VectorID == "" {
			r.VectorID = "resource-" + uuid.NewString()
		}
		content := r.Content
		if content == "" {
			content = r.Snippet
		}
		if content == "" {
			content = r.Title
		}
		docs = append(docs, chromem.Document{
			ID:      r.VectorID,
			Content: content,
			Metadata: map[string]string{
				"goal_id":      r.GoalID,
				"plan_item_id": r.PlanItemID,
				"title":        r.Title,
				"url":          r.URL,
				"source":       r.Source,
			},
		})
		ids = append(ids, r.VectorID)
	}
	ix.logger.Printf("upserting %d documents", len(docs))
	if err := ix.collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("adding documents: %w", err)
	}
	return ids, nil
}

// Search returns up to limit matches ranked by similarity, optionally
// filtered to one goal.
func (ix *Index) Search(ctx context.Context, query string, goalID string, limit int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query required")
	}
	if limit <= 0 {
		limit = 5
	}
	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}
	var where map[string]string
	if goalID != "" {
		where = map[string]string{"goal_id": goalID}
	}
	results, err := ix.collection.Query(ctx, query, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			VectorID:   r.ID,
			Document:   r.Content,
			Similarity: r.Similarity,
			Metadata:   r.Metadata,
		}
	}
	return matches, nil
}

// hashingEmbedding returns a deterministic, network-free embedding function:
// each whitespace token contributes its sha256 digest bytes, and the
// accumulated vector is L2-normalized. Identical text always embeds to the
// identical vector.
func hashingEmbedding(dimensions int) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		acc := make([]float64, dimensions)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			digest := sha256.Sum256([]byte(token))
			for i := 0; i < dimensions; i++ {
				acc[i] += float64(digest[i%len(digest)]) / 255.0
			}
		}
		var norm float64
		for _, v := range acc {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		vec := make([]float32, dimensions)
		for i, v := range acc {
			vec[i] = float32(v / norm)
		}
		return vec, nil
	}
}
