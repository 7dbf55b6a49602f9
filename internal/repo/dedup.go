package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/varejolabs/salesbot/internal/domain"
)

// DedupStore is the processed-message table behind the webhook intake.
type DedupStore struct {
	DB *gorm.DB
}

// MarkProcessed records a message ID as handled and reports whether this
// call was the first to see it.
func (s *DedupStore) MarkProcessed(ctx context.Context, messageID, conversationID string, now time.Time) (bool, error) {
	return MarkProcessed(ctx, s.DB, messageID, conversationID, now)
}

// PurgeBefore removes dedup records older than the cutoff.
func (s *DedupStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return PurgeProcessedBefore(ctx, s.DB, cutoff)
}

// MarkProcessed records a message ID as handled and reports whether this
// call was the first to see it. A second call with the same ID returns
// (false, nil), which is how webhook redeliveries get dropped.
func MarkProcessed(ctx context.Context, db *gorm.DB, messageID, conversationID string, now time.Time) (bool, error) {
	if strings.TrimSpace(messageID) == "" {
		return false, errors.New("repo: empty message id")
	}
	rec := &domain.ProcessedMessage{
		ID:             messageID,
		ConversationID: conversationID,
		SeenAt:         now.UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PurgeProcessedBefore deletes dedup records seen before the cutoff and
// returns the number removed. Called periodically so the table stays small.
func PurgeProcessedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("seen_at < ?", cutoff.UTC()).
		Delete(&domain.ProcessedMessage{})
	return res.RowsAffected, res.Error
}
