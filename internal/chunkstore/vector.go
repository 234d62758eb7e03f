package chunkstore

import (
	"encoding/binary"
	"math"
)

// PackEmbedding serializes a float32 vector to little-endian bytes for
// storage in the embedding column. Exported so ingestion-side fixtures and
// tests can build rows without reaching into package internals.
func PackEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackEmbedding(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
