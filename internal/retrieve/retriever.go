// Package retrieve gathers ranked evidence for a backstory from the vector index.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/backcheck/internal/embed"
	"github.com/ppiankov/backcheck/internal/index"
	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/score"
)

// Options controls a Retriever
type Options struct {
	TopK            int
	CandidateFactor int // candidates fetched = TopK * CandidateFactor
	CharacterFilter model.FilterPolicy
	CharacterBoost  float64
	CausalRerank    bool
	CausalMarkers   []string
	Weights         model.QualityWeights
	Logger          *slog.Logger
}

// OptionsFromModel converts configuration; causal markers come from the lexicon
func OptionsFromModel(cfg model.RetrievalConfig, causalMarkers []string) Options {
	return Options{
		TopK:            cfg.TopK,
		CandidateFactor: cfg.CandidateFactor,
		CharacterFilter: cfg.CharacterFilter,
		CharacterBoost:  cfg.CharacterBoost,
		CausalRerank:    cfg.CausalRerank,
		CausalMarkers:   causalMarkers,
		Weights:         cfg.Weights,
	}
}

// Retriever runs multi-query search against one shared index
type Retriever struct {
	index    *index.Index
	embedder embed.Embedder
	scorer   *score.QualityScorer
	opts     Options
	logger   *slog.Logger
}

// New creates a retriever over ix, embedding queries with emb
func New(ix *index.Index, emb embed.Embedder, opts Options) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	if opts.CandidateFactor <= 0 {
		opts.CandidateFactor = 2
	}
	if opts.CharacterFilter == "" {
		opts.CharacterFilter = model.FilterStrict
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		index:    ix,
		embedder: emb,
		scorer:   score.NewQualityScorer(opts.Weights),
		opts:     opts,
		logger:   logger,
	}
}

// TopK returns the configured result limit
func (r *Retriever) TopK() int {
	return r.opts.TopK
}

// Queries builds one query per claim plus the whole backstory, each prefixed
// with the character name when one is given. Duplicates are dropped.
func Queries(backstory string, claims []model.Claim, character string) []string {
	character = strings.TrimSpace(character)
	seen := make(map[string]bool)
	var out []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		if character != "" {
			q = character + ": " + q
		}
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	for _, c := range claims {
		add(c.Text)
	}
	add(backstory)
	return out
}

// Retrieve returns at most TopK evidence items ranked by quality. An indexed
// document with no chunks, or a filter that rejects everything, yields an
// empty result and no error. Unknown documents fail before any embedding work.
func (r *Retriever) Retrieve(ctx context.Context, documentID, backstory string, claims []model.Claim, character string) ([]model.EvidenceItem, error) {
	if !r.index.Has(documentID) {
		return nil, &model.UnknownDocumentError{DocumentID: documentID}
	}
	total := r.index.Len(documentID)
	if total == 0 {
		return []model.EvidenceItem{}, nil
	}

	queries := Queries(backstory, claims, character)
	vectors, err := r.embedder.EmbedBatch(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("embed queries: %w", err)
	}

	hits, err := r.index.MultiQuerySearch(documentID, vectors, r.opts.TopK*r.opts.CandidateFactor)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.EvidenceItem, 0, len(hits))
	for _, h := range hits {
		c, ok := r.index.Chunk(documentID, h.ChunkID)
		if !ok {
			continue
		}
		candidates = append(candidates, model.EvidenceItem{
			Chunk:       c,
			Similarity:  h.Similarity,
			Position:    model.BucketFor(c.SequenceIndex, total),
			SourceQuery: queries[h.Query],
		})
	}

	items := r.scorer.Score(candidates, entitiesOf(claims))
	items = ApplyCharacterPolicy(items, character, r.opts.CharacterFilter, r.opts.CharacterBoost)
	if r.opts.CausalRerank {
		items = RerankCausal(items, r.opts.CausalMarkers)
	}
	score.SortByQuality(items)
	if len(items) > r.opts.TopK {
		items = items[:r.opts.TopK]
	}

	r.logger.Debug("retrieved evidence",
		"document", documentID,
		"queries", len(queries),
		"candidates", len(candidates),
		"kept", len(items),
		"character", character)
	return items, nil
}

func entitiesOf(claims []model.Claim) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range claims {
		for _, e := range c.Entities {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}
