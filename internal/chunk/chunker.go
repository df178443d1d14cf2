// Package chunk splits documents into overlapping, sentence-bounded windows.
package chunk

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/text"
)

// ErrInvalidParams is returned when overlap is not in [0, size)
var ErrInvalidParams = errors.New("invalid chunk parameters")

// Chunker groups sentences into windows of at most SizeWords words, carrying
// up to OverlapWords words of trailing sentences into the next window.
// A single sentence longer than SizeWords becomes its own oversized chunk.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window parameters
func New(sizeWords, overlapWords int) (*Chunker, error) {
	if sizeWords <= 0 || overlapWords < 0 || overlapWords >= sizeWords {
		return nil, fmt.Errorf("%w: size=%d overlap=%d (need 0 <= overlap < size)", ErrInvalidParams, sizeWords, overlapWords)
	}
	return &Chunker{size: sizeWords, overlap: overlapWords}, nil
}

// Split returns a lazy, restartable sequence of chunks over doc.
// Ranging over the sequence twice yields identical chunks.
func (c *Chunker) Split(documentID, doc string) (iter.Seq[model.Chunk], error) {
	if strings.TrimSpace(doc) == "" {
		return nil, model.ErrEmptyInput
	}
	return func(yield func(model.Chunk) bool) {
		c.walk(documentID, doc, yield)
	}, nil
}

// Chunks materializes Split
func (c *Chunker) Chunks(documentID, doc string) ([]model.Chunk, error) {
	seq, err := c.Split(documentID, doc)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

func (c *Chunker) walk(documentID, doc string, yield func(model.Chunk) bool) {
	var (
		window  []text.Sentence
		words   int
		carried int
		seq     int
	)

	emit := func() bool {
		first, last := window[0], window[len(window)-1]
		ch := model.Chunk{
			ChunkID:       ChunkID(documentID, seq),
			DocumentID:    documentID,
			Text:          strings.TrimSpace(doc[first.Start:last.End]),
			StartOffset:   first.Start,
			EndOffset:     last.End,
			SequenceIndex: seq,
			WordCount:     words,
			OverlapWords:  carried,
		}
		seq++
		return yield(ch)
	}

	for _, sent := range text.SplitSentences(doc) {
		if len(window) > 0 && words+sent.Words > c.size {
			if !emit() {
				return
			}
			window, words = c.tail(window)
			for len(window) > 0 && words+sent.Words > c.size {
				words -= window[0].Words
				window = window[1:]
			}
			carried = words
		}
		window = append(window, sent)
		words += sent.Words
	}

	if len(window) > 0 {
		emit()
	}
}

// tail keeps the trailing sentences whose summed words fit in the overlap budget
func (c *Chunker) tail(window []text.Sentence) ([]text.Sentence, int) {
	words := 0
	i := len(window)
	for i > 0 && words+window[i-1].Words <= c.overlap {
		words += window[i-1].Words
		i--
	}
	return slices.Clone(window[i:]), words
}

// ChunkID formats the identifier of the seq-th chunk of a document
func ChunkID(documentID string, seq int) string {
	return fmt.Sprintf("%s-%05d", documentID, seq)
}
