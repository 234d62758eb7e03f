package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ResumeCore is the resume's identity/contact row, grounded on the
// teacher's Candidate model (internal/storage/models/models.go) — the
// searchable content itself lives in chunkstore.Row and ledger.Entry, not
// here.
type ResumeCore struct {
	ResumeID        string          `gorm:"type:char(36);primaryKey"`
	PrimaryName     string          `gorm:"type:varchar(255)"`
	PrimaryPhone    string          `gorm:"type:varchar(50)"`
	PrimaryEmail    string          `gorm:"type:varchar(255);uniqueIndex:idx_resumes_core_primary_email_unique"`
	CurrentLocation string          `gorm:"type:varchar(255)"`
	ProfileSummary  string          `gorm:"type:text"`
	YearsExperience *float64        `gorm:"type:float"`
	RawMetadataJSON datatypes.JSON  `gorm:"type:json"`
	BirthDate       *datatypes.Date `gorm:"type:date"`
	CreatedAt       time.Time       `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time       `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ResumeCore) TableName() string {
	return "resumes_core"
}

// Headline derives "<latest title> at <latest company>" from the raw
// ingestion metadata (spec §4.8 step 7), when both fields are present.
func (r ResumeCore) Headline() string {
	if len(r.RawMetadataJSON) == 0 {
		return ""
	}
	var meta struct {
		LatestTitle   string `json:"latestTitle"`
		LatestCompany string `json:"latestCompany"`
	}
	if err := json.Unmarshal(r.RawMetadataJSON, &meta); err != nil {
		return ""
	}
	if meta.LatestTitle == "" || meta.LatestCompany == "" {
		return ""
	}
	return meta.LatestTitle + " at " + meta.LatestCompany
}
