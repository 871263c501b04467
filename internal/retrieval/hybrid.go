package retrieval

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/clausecheck/clausecheck/internal/cache"
	"github.com/clausecheck/clausecheck/internal/model"
)

// Embedder produces dense vectors for a batch of texts. Implementations are
// best-effort: retrieval must keep working when Embed fails.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Engine performs hybrid candidate selection: BM25 with an optional
// embedding-similarity blend and a paragraph-level fallback.
type Engine struct {
	cfg      model.RetrievalConfig
	embedder Embedder
	cache    cache.Cache
	verbose  bool
}

// NewEngine creates a retrieval engine. embedder and embedCache may be nil;
// the engine then scores with BM25 only.
func NewEngine(cfg model.RetrievalConfig, embedder Embedder, embedCache cache.Cache) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = 8
	}
	if cfg.K1 == 0 {
		cfg.K1 = DefaultK1
	}
	if cfg.B == 0 {
		cfg.B = DefaultB
	}
	if cfg.HybridAlpha == 0 {
		cfg.HybridAlpha = 0.5
	}
	return &Engine{cfg: cfg, embedder: embedder, cache: embedCache}
}

// SetVerbose enables degradation warnings on stderr
func (e *Engine) SetVerbose(v bool) { e.verbose = v }

// TopKHybrid ranks sentences with normalized BM25 blended with embedding
// cosine similarity when an embedder is available:
//
//	score = alpha*cosine_norm + (1-alpha)*bm25_norm
//
// Any embedding failure silently degrades to pure BM25 ranking.
func (e *Engine) TopKHybrid(ctx context.Context, rule model.Rule, sentences []string) []Candidate {
	if len(sentences) == 0 {
		return nil
	}
	queryTerms := BuildQueryTerms(rule)
	ci := buildIndex(sentences)

	bm25 := make([]float64, len(sentences))
	for i := range sentences {
		bm25[i] = ci.score(queryTerms, i, e.cfg.K1, e.cfg.B)
	}
	hybrid := normalizeScores(bm25)

	if vectors := e.embeddingsFor(ctx, sentences); vectors != nil {
		ruleText := rule.Name + " " + rule.RuleText + " " + rule.Description
		if qv := e.embeddingsFor(ctx, []string{ruleText}); len(qv) == 1 {
			cosims := make([]float64, len(vectors))
			for i, sv := range vectors {
				cosims[i] = cosineSimilarity(qv[0], sv)
			}
			cosNorm := normalizeScores(cosims)
			alpha := e.cfg.HybridAlpha
			for i := range hybrid {
				hybrid[i] = alpha*cosNorm[i] + (1-alpha)*hybrid[i]
			}
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(hybrid))
	for i, s := range hybrid {
		ranked[i] = scored{idx: i, score: s}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var results []Candidate
	seenSpans := make(map[[2]int]struct{})
	for _, sc := range ranked {
		if sc.score <= 0 {
			continue
		}
		chunk, indices := mergeWindow(sentences, sc.idx, e.cfg.Window)
		span := [2]int{indices[0], indices[len(indices)-1]}
		if _, ok := seenSpans[span]; ok {
			continue
		}
		seenSpans[span] = struct{}{}
		results = append(results, Candidate{
			Index:           sc.idx,
			Score:           sc.score,
			Chunk:           chunk,
			SentenceIndices: indices,
		})
		if len(results) >= e.cfg.TopK {
			break
		}
	}
	return results
}

// CandidatesForRule orchestrates candidate selection for a rule: hybrid
// sentence retrieval first, then the paragraph fallback over raw document
// text when the sentence pass returns nothing. The second return value
// reports whether the fallback produced the candidates.
func (e *Engine) CandidatesForRule(ctx context.Context, rule model.Rule, sentences []string, documentText string) ([]Candidate, bool) {
	if len(sentences) == 0 && documentText == "" {
		return nil, false
	}

	candidates := e.TopKHybrid(ctx, rule, sentences)
	if len(candidates) > 0 {
		return candidates, false
	}

	if documentText != "" {
		if fallback := FallbackFromText(rule, documentText, e.cfg.TopK, 2); len(fallback) > 0 {
			return fallback, true
		}
	}
	return nil, false
}

// HybridEnabled reports whether embedding blending is active
func (e *Engine) HybridEnabled() bool {
	return e.cfg.UseEmbeddings && e.embedder != nil
}

// embeddingsFor returns vectors for texts, consulting the per-document cache
// first. Returns nil on any failure or when embeddings are disabled.
func (e *Engine) embeddingsFor(ctx context.Context, texts []string) [][]float64 {
	if !e.HybridEnabled() || len(texts) == 0 {
		return nil
	}

	key := cache.EmbeddingKey(texts)
	if e.cache != nil {
		if vectors, ok := e.cache.Get(key); ok && len(vectors) == len(texts) {
			return vectors
		}
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		if e.verbose {
			fmt.Fprintf(os.Stderr, "Warning: embedding request failed, using lexical ranking: %v\n", err)
		}
		return nil
	}
	if len(vectors) != len(texts) {
		if e.verbose {
			fmt.Fprintf(os.Stderr, "Warning: unexpected embedding response shape, using lexical ranking\n")
		}
		return nil
	}
	if e.cache != nil {
		_ = e.cache.Set(key, vectors, 0)
	}
	return vectors
}

// cosineSimilarity computes the cosine of the angle between two vectors,
// returning 0 for mismatched or zero-length input
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
