package chunkstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCSVEmptyStringYieldsNil(t *testing.T) {
	assert.Nil(t, splitCSV(""))
}

func TestSplitCSVSplitsOnComma(t *testing.T) {
	assert.Equal(t, []string{"go", "kubernetes", "terraform"}, splitCSV("go,kubernetes,terraform"))
}

func TestToChunksMapsFieldsAndDecodesEmbedding(t *testing.T) {
	vec := []float32{0.5, -0.25, 1.0}
	rows := []Row{
		{
			ResumeID:       "r1",
			ChunkID:        "r1-c1",
			SectionType:    "experience",
			SectionOrdinal: 0,
			Text:           "built services in go",
			Embedding:      PackEmbedding(vec),
			SkillsInChunk:  "go,grpc",
		},
	}
	chunks := toChunks(rows)
	assert.Len(t, chunks, 1)
	assert.Equal(t, "r1-c1", chunks[0].ChunkID)
	assert.Equal(t, []string{"go", "grpc"}, chunks[0].SkillsInChunk)
	assert.InDeltaSlice(t, toFloat64(vec), toFloat64(chunks[0].Embedding), 1e-6)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func TestPackUnpackEmbeddingRoundTrips(t *testing.T) {
	vec := []float32{1.5, -3.25, 0, 7.125}
	packed := PackEmbedding(vec)
	assert.Equal(t, vec, unpackEmbedding(packed))
}

func TestUnpackEmptyEmbeddingIsNil(t *testing.T) {
	assert.Nil(t, unpackEmbedding(nil))
}
