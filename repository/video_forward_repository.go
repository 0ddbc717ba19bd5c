package repository

import (
	"context"

	"github.com/clipgreet/clipgreet/models"
	"gorm.io/gorm"
)

// VideoForwardRepositoryImpl implements VideoForwardRepository
type VideoForwardRepositoryImpl struct {
	*BaseRepository[models.VideoForward, models.VideoForwardFilter]
}

func NewVideoForwardRepository(db *gorm.DB) VideoForwardRepository {
	return &VideoForwardRepositoryImpl{BaseRepository: NewBaseRepository[models.VideoForward, models.VideoForwardFilter](db)}
}

func (r *VideoForwardRepositoryImpl) applyFilter(db *gorm.DB, f models.VideoForwardFilter) *gorm.DB {
	if f.VideoID != nil {
		db = db.Where("video_id = ?", *f.VideoID)
	}
	if f.SessionID != nil {
		db = db.Where("session_id = ?", *f.SessionID)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *VideoForwardRepositoryImpl) ByFilter(ctx context.Context, filter models.VideoForwardFilter, orderBy string, limit, offset int) ([]*models.VideoForward, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.VideoForward{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.VideoForward
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
