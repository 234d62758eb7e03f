// Package chunkstore implements the read-only chunk store (C3): chunks are
// produced by the external ingestion pipeline, this package only iterates
// and fetches them in the spec's deterministic order (resumeID, then
// sectionType, then sectionOrdinal).
package chunkstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// Row is the gorm model backing resume_chunks.
type Row struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	ResumeID       string `gorm:"column:resume_id;index:idx_resume_order,priority:1"`
	ChunkID        string `gorm:"column:chunk_id;uniqueIndex"`
	SectionType    string `gorm:"column:section_type;index:idx_resume_order,priority:2"`
	SectionOrdinal int    `gorm:"column:section_ordinal;index:idx_resume_order,priority:3"`
	Text           string `gorm:"column:text"`
	Embedding      []byte `gorm:"column:embedding"` // little-endian float32 vector, packed by ingestion
	SkillsInChunk  string `gorm:"column:skills_in_chunk"` // comma-joined canonical skills
}

func (Row) TableName() string { return "resume_chunks" }

// Store is the narrow interface the retrieval legs depend on.
type Store interface {
	// ChunksForResumes returns every chunk belonging to any of the given
	// resume IDs, in deterministic order. A nil/empty resumeIDs means "all
	// resumes" (used when the query has no must-have skills to gate on).
	ChunksForResumes(ctx context.Context, resumeIDs []string) ([]types.Chunk, error)
	// ChunksByIDs fetches specific chunks by chunk ID, used by evidence
	// building once fusion has picked winning chunk IDs.
	ChunksByIDs(ctx context.Context, chunkIDs []string) ([]types.Chunk, error)
}

// GormStore is the gorm-backed Store implementation.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ChunksForResumes(ctx context.Context, resumeIDs []string) ([]types.Chunk, error) {
	q := s.db.WithContext(ctx).Model(&Row{}).
		Order("resume_id asc, section_type asc, section_ordinal asc")
	if len(resumeIDs) > 0 {
		q = q.Where("resume_id IN ?", resumeIDs)
	}
	var rows []Row
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("chunkstore: chunks for resumes: %w", err)
	}
	return toChunks(rows), nil
}

func (s *GormStore) ChunksByIDs(ctx context.Context, chunkIDs []string) ([]types.Chunk, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	var rows []Row
	if err := s.db.WithContext(ctx).Model(&Row{}).
		Where("chunk_id IN ?", chunkIDs).
		Order("resume_id asc, section_type asc, section_ordinal asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("chunkstore: chunks by ids: %w", err)
	}
	return toChunks(rows), nil
}

func toChunks(rows []Row) []types.Chunk {
	out := make([]types.Chunk, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.Chunk{
			ResumeID:       r.ResumeID,
			ChunkID:        r.ChunkID,
			SectionType:    types.SectionType(r.SectionType),
			SectionOrdinal: r.SectionOrdinal,
			Text:           r.Text,
			Embedding:      unpackEmbedding(r.Embedding),
			SkillsInChunk:  splitCSV(r.SkillsInChunk),
		})
	}
	return out
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
