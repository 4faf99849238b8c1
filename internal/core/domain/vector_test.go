package domain

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1},
		{"mismatched length", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("CosineSimilarity = %f, want %f", got, tt.want)
			}
		})
	}
}

func rankedChunk(docID string, seq int, text string, sim float32) *RankedChunk {
	return &RankedChunk{
		Chunk:      &Chunk{ID: GenerateID(), DocumentID: docID, SequenceNumber: seq, Text: text},
		Similarity: sim,
	}
}

func TestGroupByDocument_RanksByAggregate(t *testing.T) {
	hits := []*RankedChunk{
		rankedChunk("doc-a", 0, "a0", 0.5),
		rankedChunk("doc-b", 0, "b0", 0.9),
		rankedChunk("doc-a", 1, "a1", 0.5),
		rankedChunk("doc-c", 0, "c0", 0.4),
	}

	contexts := GroupByDocument(hits, 2, 3)

	if len(contexts) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(contexts))
	}
	// doc-a aggregates 1.0, doc-b 0.9, doc-c 0.4
	if contexts[0].DocumentID != "doc-a" {
		t.Errorf("expected doc-a first, got %s", contexts[0].DocumentID)
	}
	if contexts[1].DocumentID != "doc-b" {
		t.Errorf("expected doc-b second, got %s", contexts[1].DocumentID)
	}
}

func TestGroupByDocument_ChunkCapAndReadingOrder(t *testing.T) {
	hits := []*RankedChunk{
		rankedChunk("doc-a", 2, "third", 0.9),
		rankedChunk("doc-a", 0, "first", 0.8),
		rankedChunk("doc-a", 1, "second", 0.7),
		rankedChunk("doc-a", 3, "fourth", 0.6),
	}

	contexts := GroupByDocument(hits, 5, 3)

	if len(contexts) != 1 {
		t.Fatalf("expected 1 document, got %d", len(contexts))
	}
	dc := contexts[0]
	if len(dc.Chunks) != 3 {
		t.Fatalf("expected chunk cap of 3, got %d", len(dc.Chunks))
	}
	// The three best hits arrive first; the text must still read in
	// sequence order.
	if dc.Text != "first\nsecond\nthird" {
		t.Errorf("expected reading-order text, got %q", dc.Text)
	}
}

func TestGroupByDocument_Empty(t *testing.T) {
	if got := GroupByDocument(nil, 5, 3); got != nil {
		t.Errorf("expected nil for no hits, got %v", got)
	}
}
