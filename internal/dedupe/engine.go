package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/store"
)

// embeddingDimension is the vector size of the configured embedding
// model. Cached vectors of a different size are treated as unrelated
// rather than comparable.
const embeddingDimension = 768

// Embedder produces a fixed-dimension embedding for a text. Implemented
// by the generation client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DuplicateGroup is a set of items judged near-duplicates of each
// other. Items are ordered as discovered; groups always hold at least
// two members.
type DuplicateGroup struct {
	Items      []*domain.Item `json:"items"`
	MaxScore   float64        `json:"max_score"`
	GroupScore float64        `json:"group_score"`
}

// Engine computes, caches and compares item embeddings.
type Engine struct {
	logger    *slog.Logger
	embedder  Embedder
	itemStore store.ItemStore
	threshold float64
}

// NewEngine creates a duplicate-detection engine. The threshold is the
// minimum cosine similarity at which two items are linked.
func NewEngine(logger *slog.Logger, embedder Embedder, itemStore store.ItemStore, threshold float64) *Engine {
	return &Engine{
		logger:    logger.With("component", "dedupe_engine"),
		embedder:  embedder,
		itemStore: itemStore,
		threshold: threshold,
	}
}

// EnsureEmbedding returns the item's embedding, computing and caching
// it on first use. An item with no embeddable text gets a zero vector
// without an embedding call; the zero vector never matches anything.
func (e *Engine) EnsureEmbedding(ctx context.Context, item *domain.Item) ([]float32, error) {
	if len(item.Embedding) > 0 {
		return item.Embedding, nil
	}

	text := normalizeText(item.EmbeddingText())
	if text == "" {
		zero := make([]float32, embeddingDimension)
		item.Embedding = zero
		if err := e.itemStore.SetEmbedding(ctx, item.ID, zero); err != nil {
			return nil, fmt.Errorf("failed to cache zero embedding: %w", err)
		}
		return zero, nil
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed item %s: %w", item.ID, err)
	}

	item.Embedding = vec
	if err := e.itemStore.SetEmbedding(ctx, item.ID, vec); err != nil {
		return nil, fmt.Errorf("failed to cache embedding: %w", err)
	}

	return vec, nil
}

// FindDuplicateGroups embeds every given item as needed and clusters
// them by single linkage: any pair at or above the threshold joins
// their clusters. Items flagged to ignore duplicate checks are skipped
// entirely. Singleton clusters are dropped, and groups come back
// largest first.
func (e *Engine) FindDuplicateGroups(ctx context.Context, items []*domain.Item) ([]DuplicateGroup, error) {
	candidates := make([]*domain.Item, 0, len(items))
	for _, item := range items {
		if item.IgnoreDuplicates {
			continue
		}
		candidates = append(candidates, item)
	}

	vectors := make([][]float32, len(candidates))
	for i, item := range candidates {
		vec, err := e.EnsureEmbedding(ctx, item)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}

	// Union-find over pairwise links at or above the threshold.
	parent := make([]int, len(candidates))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	scores := make(map[int]float64)
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			score := CosineSimilarity(vectors[i], vectors[j])
			if score < e.threshold {
				continue
			}
			ri, rj := find(i), find(j)
			if ri != rj {
				parent[rj] = ri
			}
			root := find(i)
			if score > scores[root] {
				scores[root] = score
			}
		}
	}

	clusters := make(map[int][]*domain.Item)
	for i, item := range candidates {
		root := find(i)
		clusters[root] = append(clusters[root], item)
	}

	groups := make([]DuplicateGroup, 0)
	for root, members := range clusters {
		if len(members) < 2 {
			continue
		}
		// Merge scores may have been recorded under a stale root before
		// a later union re-rooted the cluster.
		max := scores[root]
		for other, score := range scores {
			if find(other) == root && score > max {
				max = score
			}
		}
		groups = append(groups, DuplicateGroup{
			Items:      members,
			MaxScore:   max,
			GroupScore: max,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Items) != len(groups[j].Items) {
			return len(groups[i].Items) > len(groups[j].Items)
		}
		return groups[i].MaxScore > groups[j].MaxScore
	})

	e.logger.DebugContext(ctx, "duplicate scan complete",
		"items", len(items),
		"candidates", len(candidates),
		"groups", len(groups))

	return groups, nil
}

// CosineSimilarity computes the cosine of the angle between two
// vectors. Mismatched dimensions or a zero-magnitude vector yield 0,
// so padded or absent embeddings never register as similar.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// normalizeText collapses runs of whitespace to single spaces so that
// formatting differences do not perturb the embedding.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
