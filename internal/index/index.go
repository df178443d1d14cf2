package index

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/ppiankov/backcheck/internal/model"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the document's
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrDuplicateChunk is returned when Add sees a chunk ID twice
	ErrDuplicateChunk = errors.New("duplicate chunk id")
)

// Entry is one indexed chunk with its embedding
type Entry struct {
	Chunk     model.Chunk
	Embedding []float32
}

// Hit is one search result
type Hit struct {
	ChunkID    string
	Similarity float64
	Query      int // index of the query that produced Similarity
}

type document struct {
	entries []Entry
	byID    map[string]int
	dim     int
}

// Index maps document IDs to their chunk embeddings.
// Documents are swapped whole by Replace, so readers never observe a
// half-built document. Searches share a read lock.
type Index struct {
	mu   sync.RWMutex
	docs map[string]*document
}

// New creates an empty index
func New() *Index {
	return &Index{docs: make(map[string]*document)}
}

// Replace installs entries as the complete index for documentID,
// discarding anything previously indexed under that ID.
func (ix *Index) Replace(documentID string, entries []Entry) error {
	doc, err := buildDocument(entries)
	if err != nil {
		return fmt.Errorf("document %s: %w", documentID, err)
	}
	ix.mu.Lock()
	ix.docs[documentID] = doc
	ix.mu.Unlock()
	return nil
}

// Add appends a single chunk to documentID, creating the document if needed
func (ix *Index) Add(documentID string, chunk model.Chunk, embedding []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	doc, ok := ix.docs[documentID]
	if !ok {
		doc = &document{byID: make(map[string]int)}
		ix.docs[documentID] = doc
	}
	return doc.add(Entry{Chunk: chunk, Embedding: embedding})
}

func buildDocument(entries []Entry) (*document, error) {
	doc := &document{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if err := doc.add(e); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (d *document) add(e Entry) error {
	if _, dup := d.byID[e.Chunk.ChunkID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateChunk, e.Chunk.ChunkID)
	}
	if len(d.entries) == 0 {
		d.dim = len(e.Embedding)
	} else if len(e.Embedding) != d.dim {
		return fmt.Errorf("%w: chunk %s has %d, want %d", ErrDimensionMismatch, e.Chunk.ChunkID, len(e.Embedding), d.dim)
	}
	d.byID[e.Chunk.ChunkID] = len(d.entries)
	d.entries = append(d.entries, e)
	return nil
}

// lookup must be called with ix.mu held
func (ix *Index) lookup(documentID string) (*document, error) {
	doc, ok := ix.docs[documentID]
	if !ok {
		return nil, &model.UnknownDocumentError{DocumentID: documentID}
	}
	return doc, nil
}

// Search returns the topK chunks most similar to query, most similar first.
// Ties break by sequence index so results are deterministic.
func (ix *Index) Search(documentID string, query []float32, topK int) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc, err := ix.lookup(documentID)
	if err != nil {
		return nil, err
	}
	hits := doc.scan(query)
	return truncate(hits, topK), nil
}

// MultiQuerySearch runs every query, keeps the maximum similarity per chunk,
// and returns the topK chunks by that maximum.
func (ix *Index) MultiQuerySearch(documentID string, queries [][]float32, topK int) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc, err := ix.lookup(documentID)
	if err != nil {
		return nil, err
	}

	best := make(map[string]Hit)
	for qi, q := range queries {
		for _, h := range doc.scan(q) {
			if cur, ok := best[h.ChunkID]; !ok || h.Similarity > cur.Similarity {
				h.Query = qi
				best[h.ChunkID] = h
			}
		}
	}

	hits := make([]Hit, 0, len(best))
	for _, h := range best {
		hits = append(hits, h)
	}
	doc.sortHits(hits)
	return truncate(hits, topK), nil
}

func (d *document) scan(query []float32) []Hit {
	hits := make([]Hit, len(d.entries))
	for i, e := range d.entries {
		hits[i] = Hit{ChunkID: e.Chunk.ChunkID, Similarity: CosineSimilarity(query, e.Embedding)}
	}
	d.sortHits(hits)
	return hits
}

func (d *document) sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return d.byID[hits[i].ChunkID] < d.byID[hits[j].ChunkID]
	})
}

func truncate(hits []Hit, topK int) []Hit {
	if topK > 0 && len(hits) > topK {
		return hits[:topK]
	}
	return hits
}

// Chunk returns an indexed chunk by ID
func (ix *Index) Chunk(documentID, chunkID string) (model.Chunk, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc, err := ix.lookup(documentID)
	if err != nil {
		return model.Chunk{}, false
	}
	i, ok := doc.byID[chunkID]
	if !ok {
		return model.Chunk{}, false
	}
	return doc.entries[i].Chunk, true
}

// Len returns the number of chunks indexed for documentID
func (ix *Index) Len(documentID string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc, err := ix.lookup(documentID)
	if err != nil {
		return 0
	}
	return len(doc.entries)
}

// Dimension returns the embedding dimension of documentID, 0 if empty
func (ix *Index) Dimension(documentID string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc, err := ix.lookup(documentID)
	if err != nil {
		return 0
	}
	return doc.dim
}

// Has reports whether documentID has been indexed (possibly with zero chunks)
func (ix *Index) Has(documentID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	_, err := ix.lookup(documentID)
	return err == nil
}

// Documents lists indexed document IDs in sorted order
func (ix *Index) Documents() []string {
	ix.mu.RLock()
	ids := make([]string, 0, len(ix.docs))
	for id := range ix.docs {
		ids = append(ids, id)
	}
	ix.mu.RUnlock()
	slices.Sort(ids)
	return ids
}
