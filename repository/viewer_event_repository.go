package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/clipgreet/clipgreet/models"
	"gorm.io/gorm"
)

// ViewerEventRepositoryImpl implements ViewerEventRepository
type ViewerEventRepositoryImpl struct {
	*BaseRepository[models.ViewerEvent, models.ViewerEventFilter]
}

func NewViewerEventRepository(db *gorm.DB) ViewerEventRepository {
	return &ViewerEventRepositoryImpl{BaseRepository: NewBaseRepository[models.ViewerEvent, models.ViewerEventFilter](db)}
}

// Append inserts one event row. A duplicate-key failure on the dedup index is
// not an error: it means a concurrent request recorded the same
// (video, session, kind, bucket) first, and the caller must treat the event
// as already recorded.
func (r *ViewerEventRepositoryImpl) Append(ctx context.Context, event *models.ViewerEvent) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Create(event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = nil
			return false, nil
		}
		return false, fmt.Errorf("failed to append viewer event: %w", err)
	}

	return true, nil
}

func (r *ViewerEventRepositoryImpl) FindMatching(ctx context.Context, videoID uint, sessionID string, kind models.EventKind, progress *int) (*models.ViewerEvent, error) {
	db := r.getDB(ctx)
	query := db.Where("video_id = ? AND session_id = ?", videoID, sessionID)

	// Deduplicated kinds have a precise identity column backed by the unique
	// index; everything else matches on the raw (kind, progress) pair.
	if dedupKey := models.DedupKeyFor(&sessionID, kind, progress); dedupKey != nil {
		query = query.Where("dedup_key = ?", *dedupKey)
	} else {
		query = query.Where("kind = ?", kind)
		if progress != nil {
			query = query.Where("progress = ?", *progress)
		}
	}

	var row models.ViewerEvent
	err := query.First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find matching viewer event: %w", err)
	}
	return &row, nil
}

func (r *ViewerEventRepositoryImpl) ListByVideo(ctx context.Context, videoID uint, limit int) ([]*models.ViewerEvent, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ViewerEvent{}).
		Where("video_id = ?", videoID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []*models.ViewerEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list viewer events for video %d: %w", videoID, err)
	}
	return rows, nil
}

func (r *ViewerEventRepositoryImpl) CountsByVideoAndKind(ctx context.Context, videoID uint) (map[models.EventKind]int64, error) {
	grouped, err := r.GroupedCounts(ctx, videoID)
	if err != nil {
		return nil, err
	}
	counts := make(map[models.EventKind]int64, len(grouped))
	for _, g := range grouped {
		counts[g.Kind] += g.Count
	}
	return counts, nil
}

func (r *ViewerEventRepositoryImpl) GroupedCounts(ctx context.Context, videoID uint) ([]EventKindCount, error) {
	db := r.getDB(ctx)
	var rows []EventKindCount
	err := db.Model(&models.ViewerEvent{}).
		Select("kind, progress, COUNT(*) as count").
		Where("video_id = ?", videoID).
		Group("kind, progress").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count viewer events for video %d: %w", videoID, err)
	}
	return rows, nil
}
