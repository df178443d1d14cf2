package model

// Chunk is a contiguous, sentence-bounded slice of a document's text
type Chunk struct {
	ChunkID       string `json:"chunk_id"`       // "<document_id>-<sequence>"
	DocumentID    string `json:"document_id"`    // Owning document
	Text          string `json:"text"`           // Trimmed chunk text
	StartOffset   int    `json:"start_offset"`   // Byte offset of the first sentence
	EndOffset     int    `json:"end_offset"`     // Byte offset one past the last sentence
	SequenceIndex int    `json:"sequence_index"` // 0-based position within the document
	WordCount     int    `json:"word_count"`
	OverlapWords  int    `json:"overlap_words"` // Words shared with the previous chunk
}

// PositionBucket is the narrative third a chunk falls into
type PositionBucket string

const (
	PositionEarly  PositionBucket = "early"
	PositionMiddle PositionBucket = "middle"
	PositionLate   PositionBucket = "late"
)

// BucketFor maps a sequence index onto early/middle/late thirds of a document
func BucketFor(sequenceIndex, total int) PositionBucket {
	if total <= 0 {
		return PositionEarly
	}
	switch third := sequenceIndex * 3 / total; {
	case third <= 0:
		return PositionEarly
	case third == 1:
		return PositionMiddle
	default:
		return PositionLate
	}
}
