package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/clipgreet/clipgreet/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoRepositoryImpl implements VideoRepository
type VideoRepositoryImpl struct {
	*BaseRepository[models.Video, models.VideoFilter]
}

func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &VideoRepositoryImpl{BaseRepository: NewBaseRepository[models.Video, models.VideoFilter](db)}
}

func (r *VideoRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	filter := models.VideoFilter{UUID: &id}
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *VideoRepositoryImpl) ByShareToken(ctx context.Context, token string) (*models.Video, error) {
	filter := models.VideoFilter{ShareToken: &token}
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *VideoRepositoryImpl) applyFilter(db *gorm.DB, f models.VideoFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.ShareToken != nil {
		db = db.Where("share_token = ?", *f.ShareToken)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *VideoRepositoryImpl) ByFilter(ctx context.Context, filter models.VideoFilter, orderBy string, limit, offset int) ([]*models.Video, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Video{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Video
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// IncrementCounter bumps a single denormalized counter in place. The update
// is a SQL-level increment, so concurrent events against the same video row
// cannot lose counts.
func (r *VideoRepositoryImpl) IncrementCounter(ctx context.Context, videoID uint, counter models.StatsCounter) error {
	if counter == "" {
		return nil
	}
	db := r.getDB(ctx)
	column := string(counter)
	err := db.Model(&models.Video{}).
		Where("id = ?", videoID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("failed to increment %s for video %d: %w", column, videoID, err)
	}
	return nil
}

// funnelStatusesBelow returns every status ranked strictly below the given one.
func funnelStatusesBelow(status models.VideoStatus) []models.VideoStatus {
	all := []models.VideoStatus{
		models.VideoStatusDraft,
		models.VideoStatusProcessing,
		models.VideoStatusReady,
		models.VideoStatusSent,
		models.VideoStatusViewed,
		models.VideoStatusClicked,
		models.VideoStatusBooked,
	}
	var below []models.VideoStatus
	for _, s := range all {
		if s.Rank() < status.Rank() {
			below = append(below, s)
		}
	}
	return below
}

// AdvanceStatus is the single persistence point for event-driven status
// changes. The WHERE clause restricts the update to lower-ranked statuses,
// keeping the transition forward-only even under concurrent writers.
func (r *VideoRepositoryImpl) AdvanceStatus(ctx context.Context, videoID uint, newStatus models.VideoStatus) error {
	if !newStatus.Valid() {
		return fmt.Errorf("invalid target status: %s", newStatus)
	}
	db := r.getDB(ctx)
	err := db.Model(&models.Video{}).
		Where("id = ? AND status IN ?", videoID, funnelStatusesBelow(newStatus)).
		UpdateColumn("status", newStatus).Error
	if err != nil {
		return fmt.Errorf("failed to advance status for video %d: %w", videoID, err)
	}
	return nil
}

func (r *VideoRepositoryImpl) MarkSent(ctx context.Context, videoID uint, sentAt time.Time) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.Video{}).
		Where("id = ? AND status = ?", videoID, models.VideoStatusReady).
		UpdateColumns(map[string]any{
			"status":  models.VideoStatusSent,
			"sent_at": sentAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark video %d sent: %w", videoID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *VideoRepositoryImpl) MarkReady(ctx context.Context, videoID uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.Video{}).
		Where("id = ? AND status IN ?", videoID, []models.VideoStatus{
			models.VideoStatusDraft,
			models.VideoStatusProcessing,
		}).
		UpdateColumn("status", models.VideoStatusReady)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark video %d ready: %w", videoID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ApplyCounts overwrites the denormalized counters from recomputed event
// totals. Missing counters are reset to zero so stale drift cannot survive a
// reconciliation pass.
func (r *VideoRepositoryImpl) ApplyCounts(ctx context.Context, videoID uint, counts map[models.StatsCounter]int64) error {
	columns := map[string]any{
		string(models.CounterViews):    int64(0),
		string(models.CounterClicks):   int64(0),
		string(models.CounterWatch25):  int64(0),
		string(models.CounterWatch50):  int64(0),
		string(models.CounterWatch75):  int64(0),
		string(models.CounterWatch100): int64(0),
		string(models.CounterBookings): int64(0),
	}
	for counter, n := range counts {
		if _, ok := columns[string(counter)]; ok {
			columns[string(counter)] = n
		}
	}

	db := r.getDB(ctx)
	err := db.Model(&models.Video{}).
		Where("id = ?", videoID).
		UpdateColumns(columns).Error
	if err != nil {
		return fmt.Errorf("failed to apply reconciled counts for video %d: %w", videoID, err)
	}
	return nil
}
