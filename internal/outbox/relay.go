// Package outbox implements the outbox pattern for the one event this
// service emits: resume.deleted, fanned out to RabbitMQ so downstream
// ingestion/indexing services can drop their own copies of a resume.
package outbox

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/storage"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/storage/models"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultBatchSize       = 10
	maxRetryCount          = 5
)

// MessageRelay polls the outbox_messages table and publishes pending rows
// to RabbitMQ, following the teacher's MessageRelay (internal/outbox/relay.go)
// — OTel span creation around each batch is dropped here, see DESIGN.md.
type MessageRelay struct {
	db              *gorm.DB
	publisher       storage.MessageQueue
	pollingInterval time.Duration
	batchSize       int
	done            chan struct{}
}

func NewMessageRelay(db *gorm.DB, publisher storage.MessageQueue) *MessageRelay {
	return &MessageRelay{
		db:              db,
		publisher:       publisher,
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		done:            make(chan struct{}),
	}
}

// Start begins the polling loop in a background goroutine.
func (r *MessageRelay) Start() {
	logger.Info().Msg("outbox relay starting")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				logger.Info().Msg("outbox relay stopped")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					logger.Error().Err(err).Msg("outbox relay: batch failed")
				}
			}
		}
	}()
}

// Stop signals the polling goroutine to exit.
func (r *MessageRelay) Stop() {
	close(r.done)
}

// processPendingMessages fetches one batch of PENDING rows under a
// row-level lock (FOR UPDATE SKIP LOCKED, so multiple relay instances can
// run side by side without double-publishing) and publishes each.
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", "PENDING").
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return fmt.Errorf("outbox: fetch pending: %w", err)
	}
	if len(messages) == 0 {
		return tx.Commit().Error
	}

	for _, msg := range messages {
		pubErr := r.publisher.PublishMessage(ctx, msg.TargetExchange, msg.TargetRoutingKey, []byte(msg.Payload), true)
		if pubErr != nil {
			logger.Warn().Err(pubErr).Uint64("message_id", msg.ID).Int("retry_count", msg.RetryCount+1).Msg("outbox: publish failed")
			msg.RetryCount++
			msg.ErrorMessage = pubErr.Error()
			if msg.RetryCount >= maxRetryCount {
				msg.Status = "FAILED"
			}
		} else {
			msg.Status = "SENT"
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		if err := tx.Save(&msg).Error; err != nil {
			return fmt.Errorf("outbox: update message %d: %w", msg.ID, err)
		}
	}

	return tx.Commit().Error
}
