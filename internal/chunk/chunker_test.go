package chunk

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/text"
)

func novel(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		// sentences of varying length: 4 to 9 words
		fmt.Fprintf(&b, "Sentence %d tells", i)
		for j := 0; j < i%6+1; j++ {
			b.WriteString(" more")
		}
		b.WriteString(".")
		if i%7 == 6 {
			b.WriteString("\n\n")
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		size, overlap int
		ok            bool
	}{
		{100, 20, true},
		{100, 0, true},
		{100, 100, false},
		{100, 150, false},
		{0, 0, false},
		{10, -1, false},
	}
	for _, tt := range tests {
		_, err := New(tt.size, tt.overlap)
		if tt.ok && err != nil {
			t.Errorf("New(%d, %d) unexpected error: %v", tt.size, tt.overlap, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidParams) {
			t.Errorf("New(%d, %d) = %v, want ErrInvalidParams", tt.size, tt.overlap, err)
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c, _ := New(50, 10)
	for _, in := range []string{"", "   \n\t "} {
		if _, err := c.Split("doc", in); !errors.Is(err, model.ErrEmptyInput) {
			t.Errorf("Split(%q) err = %v, want ErrEmptyInput", in, err)
		}
	}
}

func TestChunkProperties(t *testing.T) {
	params := []struct{ size, overlap int }{
		{20, 5},
		{30, 0},
		{15, 14},
		{50, 20},
	}
	doc := novel(60)

	boundaries := make(map[int]bool)
	for _, s := range text.SplitSentences(doc) {
		boundaries[s.Start] = true
		boundaries[s.End] = true
	}

	for _, p := range params {
		t.Run(fmt.Sprintf("size=%d/overlap=%d", p.size, p.overlap), func(t *testing.T) {
			c, err := New(p.size, p.overlap)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			chunks, err := c.Chunks("novel", doc)
			if err != nil {
				t.Fatalf("Chunks: %v", err)
			}
			if len(chunks) < 2 {
				t.Fatalf("expected several chunks, got %d", len(chunks))
			}

			// Non-overlapping spans reconstruct the original text
			var b strings.Builder
			b.WriteString(doc[chunks[0].StartOffset:chunks[0].EndOffset])
			for i := 1; i < len(chunks); i++ {
				prev, cur := chunks[i-1], chunks[i]
				if cur.EndOffset <= prev.EndOffset {
					t.Fatalf("chunk %d does not advance: end %d <= %d", i, cur.EndOffset, prev.EndOffset)
				}
				if cur.StartOffset > prev.EndOffset {
					t.Fatalf("gap before chunk %d", i)
				}
				b.WriteString(doc[prev.EndOffset:cur.EndOffset])
			}
			if chunks[0].StartOffset != 0 || b.String() != doc {
				t.Fatal("chunks do not reconstruct the original text")
			}

			for i, ch := range chunks {
				if !boundaries[ch.StartOffset] || !boundaries[ch.EndOffset] {
					t.Errorf("chunk %d [%d,%d) is not sentence-bounded", i, ch.StartOffset, ch.EndOffset)
				}
				if ch.OverlapWords >= p.size || ch.OverlapWords > p.overlap {
					t.Errorf("chunk %d overlap %d violates size=%d overlap=%d", i, ch.OverlapWords, p.size, p.overlap)
				}
				if ch.WordCount > p.size {
					t.Errorf("chunk %d has %d words > size %d", i, ch.WordCount, p.size)
				}
				if ch.SequenceIndex != i || ch.ChunkID != ChunkID("novel", i) {
					t.Errorf("chunk %d has index %d id %s", i, ch.SequenceIndex, ch.ChunkID)
				}
				if ch.DocumentID != "novel" {
					t.Errorf("chunk %d has document %q", i, ch.DocumentID)
				}
			}
		})
	}
}

func TestOversizedSentence(t *testing.T) {
	long := strings.Repeat("word ", 40) + "end."
	doc := "Short one here. " + long + " Another short one."

	c, _ := New(10, 3)
	chunks, err := c.Chunks("d", doc)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].WordCount != 41 || chunks[1].Text != strings.TrimSpace(long) {
		t.Errorf("oversized sentence should be its own chunk, got %d words: %q", chunks[1].WordCount, chunks[1].Text)
	}
	if chunks[2].OverlapWords != 0 {
		t.Errorf("oversized sentence must not be carried as overlap, got %d", chunks[2].OverlapWords)
	}
}

func TestOverlapCarriesTrailingSentences(t *testing.T) {
	doc := "One two three. Four five six. Seven eight nine. Ten eleven twelve."
	c, _ := New(6, 3)
	chunks, _ := c.Chunks("d", doc)

	want := []string{
		"One two three. Four five six.",
		"Four five six. Seven eight nine.",
		"Seven eight nine. Ten eleven twelve.",
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i].Text, w)
		}
	}
	if chunks[1].OverlapWords != 3 {
		t.Errorf("OverlapWords = %d, want 3", chunks[1].OverlapWords)
	}
}

func TestSplitIsRestartable(t *testing.T) {
	c, _ := New(12, 4)
	seq, err := c.Split("d", novel(20))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	var first, second []model.Chunk
	for ch := range seq {
		first = append(first, ch)
	}
	for ch := range seq {
		second = append(second, ch)
	}
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("iterations differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between iterations", i)
		}
	}

	// Early break stops cleanly
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("break did not stop iteration, n=%d", n)
	}
}
