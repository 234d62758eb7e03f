// Package ledger implements the skill ledger (C2): a per-resume inverted
// index (resumeID, canonicalSkill) -> evidence, used to gate candidates
// before retrieval runs.
package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// Entry is the gorm model backing resume_skills, one row per
// (resumeID, canonicalSkill) observation.
type Entry struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	ResumeID        string    `gorm:"column:resume_id;index:idx_resume_skill,priority:1"`
	CanonicalSkill  string    `gorm:"column:canonical_skill;index:idx_resume_skill,priority:2"`
	Confidence      float64   `gorm:"column:confidence"`
	EvidenceSources string    `gorm:"column:evidence_sources"` // comma-joined section names
	LastSeen        time.Time `gorm:"column:last_seen"`
}

func (Entry) TableName() string { return "resume_skills" }

// Ledger is the narrow interface the gating path depends on, so the
// retrieval core can be tested against a fake without a database.
type Ledger interface {
	// SkillsFor returns every canonical skill the resume carries evidence
	// for, with its ledger metadata.
	SkillsFor(ctx context.Context, resumeID string) ([]types.SkillEvidence, error)
	// ResumesWithAnySkill returns distinct resume IDs that carry at least
	// one evidence row for any of the given canonical skills.
	ResumesWithAnySkill(ctx context.Context, canonicalSkills []string) ([]string, error)
	// MatchedSkills returns the subset of canonicalSkills the resume has
	// evidence for.
	MatchedSkills(ctx context.Context, resumeID string, canonicalSkills []string) ([]string, error)
}

// GormLedger is the gorm-backed Ledger implementation.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) SkillsFor(ctx context.Context, resumeID string) ([]types.SkillEvidence, error) {
	var rows []Entry
	if err := l.db.WithContext(ctx).
		Where("resume_id = ?", resumeID).
		Order("canonical_skill asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ledger: skills for %s: %w", resumeID, err)
	}
	out := make([]types.SkillEvidence, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.SkillEvidence{
			ResumeID:        r.ResumeID,
			CanonicalSkill:  r.CanonicalSkill,
			Confidence:      r.Confidence,
			EvidenceSources: splitSources(r.EvidenceSources),
			LastSeen:        r.LastSeen,
		})
	}
	return out, nil
}

func (l *GormLedger) ResumesWithAnySkill(ctx context.Context, canonicalSkills []string) ([]string, error) {
	if len(canonicalSkills) == 0 {
		return nil, nil
	}
	var ids []string
	if err := l.db.WithContext(ctx).
		Model(&Entry{}).
		Distinct("resume_id").
		Where("canonical_skill IN ?", canonicalSkills).
		Pluck("resume_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("ledger: resumes with any skill: %w", err)
	}
	return ids, nil
}

func (l *GormLedger) MatchedSkills(ctx context.Context, resumeID string, canonicalSkills []string) ([]string, error) {
	if len(canonicalSkills) == 0 {
		return nil, nil
	}
	var matched []string
	if err := l.db.WithContext(ctx).
		Model(&Entry{}).
		Where("resume_id = ? AND canonical_skill IN ?", resumeID, canonicalSkills).
		Pluck("canonical_skill", &matched).Error; err != nil {
		return nil, fmt.Errorf("ledger: matched skills for %s: %w", resumeID, err)
	}
	return matched, nil
}

func splitSources(s string) []string {
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
