package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/chunkstore"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/ledger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/storage/models"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"

	"gorm.io/gorm"
)

// ResumeHandler serves the supplemented single-resume surface: fetching a
// profile view for evidence drill-down, and deleting a resume, which fans
// out a resume.deleted event via the outbox so the (out-of-scope)
// ingestion/indexing services can drop their own copies.
type ResumeHandler struct {
	db    *gorm.DB
	store chunkstore.Store
	led   ledger.Ledger
}

func NewResumeHandler(db *gorm.DB, store chunkstore.Store, led ledger.Ledger) *ResumeHandler {
	return &ResumeHandler{db: db, store: store, led: led}
}

// HandleGetResume serves GET /api/v1/resume/:id.
func (h *ResumeHandler) HandleGetResume(ctx context.Context, c *app.RequestContext) {
	resumeID := c.Param("id")
	if resumeID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "id is required"})
		return
	}

	var core models.ResumeCore
	if err := h.db.WithContext(ctx).Where("resume_id = ?", resumeID).First(&core).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "resume not found"})
			return
		}
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "lookup failed"})
		return
	}

	skillEvidence, err := h.led.SkillsFor(ctx, resumeID)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "skill lookup failed"})
		return
	}
	chunks, err := h.store.ChunksForResumes(ctx, []string{resumeID})
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "chunk lookup failed"})
		return
	}

	c.JSON(consts.StatusOK, types.ResumeProfile{
		ResumeID: resumeID,
		Name:     core.PrimaryName,
		Skills:   skillEvidence,
		Chunks:   chunks,
	})
}

// HandleDeleteResume serves DELETE /api/v1/resume/:id. It removes the
// resume's rows from the three tables this service owns and writes a
// resume.deleted outbox row in the same transaction, following the
// teacher's outbox-write-inside-the-business-transaction pattern.
func (h *ResumeHandler) HandleDeleteResume(ctx context.Context, c *app.RequestContext) {
	resumeID := c.Param("id")
	if resumeID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "id is required"})
		return
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", resumeID).Delete(&ledger.Entry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resume_id = ?", resumeID).Delete(&chunkstore.Row{}).Error; err != nil {
			return err
		}
		res := tx.Where("resume_id = ?", resumeID).Delete(&models.ResumeCore{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		event := models.OutboxMessage{
			AggregateID:      resumeID,
			EventType:        "resume.deleted",
			Payload:          fmt.Sprintf(`{"resumeId":%q}`, resumeID),
			TargetExchange:   "resume.events.exchange",
			TargetRoutingKey: "resume.deleted",
			Status:           "PENDING",
		}
		return tx.Create(&event).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "resume not found"})
			return
		}
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "delete failed"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"status": "deleted", "resumeId": resumeID})
}
