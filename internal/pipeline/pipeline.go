// Package pipeline wires chunking, retrieval, semantic analysis and judgment
// into the two operations the orchestration layer needs: BuildIndex and Evaluate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/backcheck/internal/cache"
	"github.com/ppiankov/backcheck/internal/chunk"
	"github.com/ppiankov/backcheck/internal/embed"
	"github.com/ppiankov/backcheck/internal/extract"
	"github.com/ppiankov/backcheck/internal/index"
	"github.com/ppiankov/backcheck/internal/judge"
	"github.com/ppiankov/backcheck/internal/llm"
	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/retrieve"
	"github.com/ppiankov/backcheck/internal/semantic"
	"github.com/ppiankov/backcheck/internal/text"
)

// Options configures an Engine
type Options struct {
	Config   model.Config
	Embedder embed.Embedder    // required
	Provider llm.Provider      // nil: heuristic judgments only
	Lexicon  *semantic.Lexicon // nil: DefaultLexicon
	Logger   *slog.Logger
}

// Engine orchestrates the evaluation of backstories against indexed documents.
// BuildIndex must finish for a document before cases against it are evaluated;
// Evaluate is safe for concurrent use.
type Engine struct {
	cfg        model.Config
	chunker    *chunk.Chunker
	index      *index.Index
	embedder   embed.Embedder
	decomposer *extract.Decomposer
	retriever  *retrieve.Retriever
	analyzer   *semantic.Analyzer
	judge      *judge.Judge
	logger     *slog.Logger
}

// NewEngine creates an engine with an empty index
func NewEngine(opts Options) (*Engine, error) {
	if opts.Embedder == nil {
		return nil, errors.New("engine requires an embedder")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config

	chunker, err := chunk.New(cfg.Chunking.SizeWords, cfg.Chunking.OverlapWords)
	if err != nil {
		return nil, err
	}

	lex := semantic.DefaultLexicon()
	if opts.Lexicon != nil {
		lex = *opts.Lexicon
	}
	if err := lex.Validate(); err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}

	semOpts := semantic.OptionsFromModel(cfg.Semantic)
	semOpts.Logger = logger

	retOpts := retrieve.OptionsFromModel(cfg.Retrieval, lex.CausalMarkers)
	retOpts.Logger = logger

	ix := index.New()
	return &Engine{
		cfg:        cfg,
		chunker:    chunker,
		index:      ix,
		embedder:   opts.Embedder,
		decomposer: extract.NewDecomposer(extract.DefaultOptions()),
		retriever:  retrieve.New(ix, opts.Embedder, retOpts),
		analyzer:   semantic.NewAnalyzer(lex, semOpts),
		judge: judge.New(judge.Options{
			Config:      cfg.Judge,
			Provider:    opts.Provider,
			CallTimeout: time.Duration(cfg.LLM.Timeout) * time.Second,
			Logger:      logger,
		}),
		logger: logger,
	}, nil
}

// FromConfig builds an engine with the embedder, cache and completion
// provider named in cfg.
func FromConfig(cfg model.Config, logger *slog.Logger) (*Engine, error) {
	emb, err := embed.New(embed.ConfigFromModel(cfg.Embedding, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	// Hash vectors are cheaper to recompute than to cache
	if _, isHash := emb.(*embed.HashEmbedder); cfg.Cache.Enabled && !isHash {
		store := cache.NewMemoryDisk(cfg.Cache.MemoryTTL, filepath.Join(cfg.Cache.Dir, "embeddings"), cfg.Cache.DiskTTL)
		emb = embed.NewCachedEmbedder(emb, store, cfg.Cache.DiskTTL)
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	var lex *semantic.Lexicon
	if cfg.Semantic.LexiconPath != "" {
		loaded, err := semantic.LoadLexicon(cfg.Semantic.LexiconPath)
		if err != nil {
			return nil, err
		}
		lex = &loaded
	}

	return NewEngine(Options{
		Config:   cfg,
		Embedder: emb,
		Provider: provider,
		Lexicon:  lex,
		Logger:   logger,
	})
}

// IndexStats summarizes one BuildIndex call
type IndexStats struct {
	DocumentID string        `json:"document_id"`
	Chunks     int           `json:"chunks"`
	Words      int           `json:"words"`
	Dimension  int           `json:"dimension"`
	Duration   time.Duration `json:"duration"`
}

// BuildIndex chunks, embeds and indexes text under documentID with the
// configured window. Rebuilding replaces the previous index for that ID.
func (e *Engine) BuildIndex(ctx context.Context, documentID, doc string) (IndexStats, error) {
	return e.buildIndex(ctx, e.chunker, documentID, doc)
}

// BuildIndexWith is BuildIndex with an explicit window size and overlap
func (e *Engine) BuildIndexWith(ctx context.Context, documentID, doc string, sizeWords, overlapWords int) (IndexStats, error) {
	chunker, err := chunk.New(sizeWords, overlapWords)
	if err != nil {
		return IndexStats{}, err
	}
	return e.buildIndex(ctx, chunker, documentID, doc)
}

func (e *Engine) buildIndex(ctx context.Context, chunker *chunk.Chunker, documentID, doc string) (IndexStats, error) {
	start := time.Now()
	if strings.TrimSpace(documentID) == "" {
		return IndexStats{}, fmt.Errorf("%w: document id", model.ErrEmptyInput)
	}

	chunks, err := chunker.Chunks(documentID, text.Clean(doc))
	if err != nil {
		return IndexStats{}, fmt.Errorf("chunk %s: %w", documentID, err)
	}

	texts := make([]string, len(chunks))
	words := 0
	for i, c := range chunks {
		texts[i] = c.Text
		words += c.WordCount - c.OverlapWords
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if !errors.Is(err, embed.ErrEmbedding) {
			err = fmt.Errorf("%w: %w", embed.ErrEmbedding, err)
		}
		return IndexStats{}, fmt.Errorf("embed %s: %w", documentID, err)
	}
	if len(vectors) != len(chunks) {
		return IndexStats{}, fmt.Errorf("embed %s: %w: got %d vectors for %d chunks", documentID, embed.ErrEmbedding, len(vectors), len(chunks))
	}

	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = index.Entry{Chunk: c, Embedding: vectors[i]}
	}
	if err := e.index.Replace(documentID, entries); err != nil {
		return IndexStats{}, err
	}

	stats := IndexStats{
		DocumentID: documentID,
		Chunks:     len(chunks),
		Words:      words,
		Dimension:  e.index.Dimension(documentID),
		Duration:   time.Since(start),
	}
	e.logger.Info("indexed document",
		"document", documentID,
		"chunks", stats.Chunks,
		"words", stats.Words,
		"duration", stats.Duration.Round(time.Millisecond))
	return stats, nil
}

// HasDocument reports whether documentID has been indexed
func (e *Engine) HasDocument(documentID string) bool {
	return e.index.Has(documentID)
}

// Documents lists indexed document IDs
func (e *Engine) Documents() []string {
	return e.index.Documents()
}

// UsesLLM reports whether judgments may come from the completion service
func (e *Engine) UsesLLM() bool {
	return e.judge.UsesLLM()
}

// Evaluate judges one backstory against an indexed document
func (e *Engine) Evaluate(ctx context.Context, storyID, documentID, backstory, character string) (model.Judgment, error) {
	ev, err := e.EvaluateDetailed(ctx, storyID, documentID, backstory, character)
	if err != nil {
		return model.Judgment{}, err
	}
	return ev.Judgment, nil
}

// EvaluateDetailed runs decompose, retrieve, analyze and judge for one case.
// Input errors are returned before any retrieval work starts; an embedding
// failure fails the case; a completion failure never does.
func (e *Engine) EvaluateDetailed(ctx context.Context, storyID, documentID, backstory, character string) (*model.Evaluation, error) {
	start := time.Now()
	if strings.TrimSpace(backstory) == "" {
		return nil, model.ErrEmptyBackstory
	}
	if !e.index.Has(documentID) {
		return nil, &model.UnknownDocumentError{DocumentID: documentID}
	}
	character = strings.TrimSpace(character)

	claims, err := e.decomposer.Decompose(backstory)
	if err != nil {
		return nil, err
	}

	evidence, err := e.retriever.Retrieve(ctx, documentID, backstory, claims, character)
	if err != nil {
		return nil, fmt.Errorf("retrieve evidence: %w", err)
	}

	report := e.analyzer.Analyze(claims, evidence)
	judgment := e.judge.Decide(ctx, storyID, backstory, evidence, report)

	ev := &model.Evaluation{
		Judgment:   judgment,
		DocumentID: documentID,
		Character:  character,
		Claims:     claims,
		Evidence:   evidence,
		Report:     report,
		Duration:   time.Since(start),
	}
	e.logger.Debug("evaluated case",
		"story", storyID,
		"document", documentID,
		"claims", len(claims),
		"evidence", len(evidence),
		"prediction", judgment.Prediction,
		"confidence", judgment.Confidence,
		"method", judgment.Method,
		"duration", ev.Duration.Round(time.Millisecond))
	return ev, nil
}
