package domain

import (
	"math"
	"sort"
	"strings"
)

// CosineSimilarity returns the normalized dot product of two vectors.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
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
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// GroupByDocument turns a ranked chunk list into per-document contexts:
// documents are ranked by the sum of their kept chunks' similarities,
// truncated to maxDocuments, and each keeps at most maxChunksPerDocument
// chunks with text concatenated in reading order.
func GroupByDocument(hits []*RankedChunk, maxDocuments, maxChunksPerDocument int) []*DocumentContext {
	if len(hits) == 0 {
		return nil
	}
	if maxDocuments <= 0 {
		maxDocuments = 5
	}
	if maxChunksPerDocument <= 0 {
		maxChunksPerDocument = 3
	}

	byDoc := make(map[string]*DocumentContext)
	order := make([]string, 0)

	for _, hit := range hits {
		if hit == nil || hit.Chunk == nil {
			continue
		}
		docID := hit.Chunk.DocumentID
		dc, ok := byDoc[docID]
		if !ok {
			dc = &DocumentContext{DocumentID: docID}
			byDoc[docID] = dc
			order = append(order, docID)
		}
		if len(dc.Chunks) >= maxChunksPerDocument {
			continue
		}
		dc.Chunks = append(dc.Chunks, hit)
		dc.Score += hit.Similarity
	}

	contexts := make([]*DocumentContext, 0, len(order))
	for _, docID := range order {
		contexts = append(contexts, byDoc[docID])
	}

	sort.SliceStable(contexts, func(i, j int) bool {
		return contexts[i].Score > contexts[j].Score
	})
	if len(contexts) > maxDocuments {
		contexts = contexts[:maxDocuments]
	}

	// Reading order within each document, regardless of similarity rank
	for _, dc := range contexts {
		sort.SliceStable(dc.Chunks, func(i, j int) bool {
			return dc.Chunks[i].Chunk.SequenceNumber < dc.Chunks[j].Chunk.SequenceNumber
		})
		texts := make([]string, 0, len(dc.Chunks))
		for _, c := range dc.Chunks {
			texts = append(texts, c.Chunk.Text)
		}
		dc.Text = strings.Join(texts, "\n")
	}

	return contexts
}
