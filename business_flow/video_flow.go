package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/repository"
	"github.com/clipgreet/clipgreet/utils"
)

// CreateVideoInput carries the owner-provided fields of a new outreach video.
type CreateVideoInput struct {
	Title            string
	RecipientName    *string
	RecipientCompany *string
	RecipientEmail   *string
	CTAType          *string
	CTAURL           *string
	CTALabel         *string
	VideoPath        string
	GifPath          *string
	ThumbnailPath    *string
}

// VideoStats is the owner-facing counter snapshot.
type VideoStats struct {
	UUID       uuid.UUID          `json:"uuid"`
	Status     models.VideoStatus `json:"status"`
	Views      int64              `json:"views"`
	Clicks     int64              `json:"clicks"`
	Watch25    int64              `json:"watch_25"`
	Watch50    int64              `json:"watch_50"`
	Watch75    int64              `json:"watch_75"`
	Watch100   int64              `json:"watch_100"`
	Bookings   int64              `json:"bookings"`
	TotalEvent int64              `json:"total_events"`
}

// ReconcileResult reports what a counter reconciliation changed.
type ReconcileResult struct {
	VideoUUID uuid.UUID                     `json:"video_uuid"`
	Counts    map[models.StatsCounter]int64 `json:"counts"`
	ByKind    map[models.EventKind]int64    `json:"by_kind"`
}

// VideoFlow is the owner-facing surface: lifecycle transitions, stats,
// timeline and reconciliation for videos the customer owns.
type VideoFlow interface {
	CreateVideo(ctx context.Context, customerID uint, input *CreateVideoInput) (*models.Video, error)
	MarkReady(ctx context.Context, customerID uint, videoUUID uuid.UUID) (*models.Video, error)
	// MarkSent transitions ready -> sent, stamps sent_at and records a
	// synthetic email_delivered timeline event.
	MarkSent(ctx context.Context, customerID uint, videoUUID uuid.UUID) (*models.Video, error)
	Stats(ctx context.Context, customerID uint, videoUUID uuid.UUID) (*VideoStats, error)
	Timeline(ctx context.Context, customerID uint, videoUUID uuid.UUID, limit int) ([]*models.ViewerEvent, error)
	// Reconcile recomputes every counter from the event log and overwrites
	// the denormalized columns.
	Reconcile(ctx context.Context, customerID uint, videoUUID uuid.UUID) (*ReconcileResult, error)
	// ExportTimeline renders the event timeline as an xlsx workbook.
	ExportTimeline(ctx context.Context, customerID uint, videoUUID uuid.UUID) ([]byte, string, error)
}

type VideoFlowImpl struct {
	videoRepo    repository.VideoRepository
	eventRepo    repository.ViewerEventRepository
	customerRepo repository.CustomerRepository
}

func NewVideoFlow(
	videoRepo repository.VideoRepository,
	eventRepo repository.ViewerEventRepository,
	customerRepo repository.CustomerRepository,
) VideoFlow {
	return &VideoFlowImpl{
		videoRepo:    videoRepo,
		eventRepo:    eventRepo,
		customerRepo: customerRepo,
	}
}

// ownedVideo loads the video and enforces that it belongs to the customer.
// A foreign video reads as access denied, not as not-found, so owners get an
// honest signal when they mix up accounts.
func (f *VideoFlowImpl) ownedVideo(ctx context.Context, customerID uint, videoUUID uuid.UUID) (*models.Video, error) {
	video, err := f.videoRepo.ByUUID(ctx, videoUUID)
	if err != nil {
		return nil, unavailable("failed to look up video", err)
	}
	if video == nil {
		return nil, ErrVideoNotFound
	}
	if video.CustomerID != customerID {
		return nil, ErrVideoAccessDenied
	}
	return video, nil
}

func (f *VideoFlowImpl) CreateVideo(ctx context.Context, customerID uint, input *CreateVideoInput) (*models.Video, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrVideoTitleRequired
	}
	if strings.TrimSpace(input.VideoPath) == "" {
		return nil, ErrVideoPathRequired
	}

	customer, err := f.customerRepo.ByID(ctx, customerID)
	if err != nil {
		return nil, unavailable("failed to look up customer", err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	if !utils.IsTrue(customer.IsActive) {
		return nil, ErrAccountInactive
	}

	video := &models.Video{
		CustomerID:       customerID,
		Title:            title,
		RecipientName:    input.RecipientName,
		RecipientCompany: input.RecipientCompany,
		RecipientEmail:   input.RecipientEmail,
		CTAType:          input.CTAType,
		CTAURL:           input.CTAURL,
		CTALabel:         input.CTALabel,
		VideoPath:        strings.TrimSpace(input.VideoPath),
		GifPath:          input.GifPath,
		ThumbnailPath:    input.ThumbnailPath,
		Status:           models.VideoStatusDraft,
	}
	if err := f.videoRepo.Save(ctx, video); err != nil {
		return nil, unavailable("failed to create video", err)
	}
	return video, nil
}

func (f *VideoFlowImpl) MarkReady(ctx context.Context, customerID uint, videoUUID uuid.UUID) (*models.Video, error) {
	video, err := f.ownedVideo(ctx, customerID, videoUUID)
	if err != nil {
		return nil, err
	}
	if _, err := f.videoRepo.MarkReady(ctx, video.ID); err != nil {
		return nil, unavailable("failed to mark video ready", err)
	}
	return f.ownedVideo(ctx, customerID, videoUUID)
}

func (f *VideoFlowImpl) MarkSent(ctx context.Context, customerID uint, videoUUID uuid.UUID) (*models.Video, error) {
	video, err := f.ownedVideo(ctx, customerID, videoUUID)
	if err != nil {
		return nil, err
	}

	sent, err := f.videoRepo.MarkSent(ctx, video.ID, utils.UTCNow())
	if err != nil {
		return nil, unavailable("failed to mark video sent", err)
	}
	if !sent {
		return nil, ErrVideoNotReady
	}

	// Synthetic delivery event so the timeline shows when the outreach went
	// out. Timeline-only: no counter, no status change, no dedup key.
	delivered := &models.ViewerEvent{
		VideoID:  video.ID,
		Kind:     models.EventKindEmailDelivered,
		Metadata: models.EventMetadata{"source": "system"},
	}
	if _, err := f.eventRepo.Append(ctx, delivered); err != nil {
		return nil, unavailable("failed to record delivery event", err)
	}

	return f.ownedVideo(ctx, customerID, videoUUID)
}

func (f *VideoFlowImpl) Stats(ctx context.Context, customerID uint, videoUUID uuid.UUID) (*VideoStats, error) {
	video, err := f.ownedVideo(ctx, customerID, videoUUID)
	if err != nil {
		return nil, err
	}

	byKind, err := f.eventRepo.CountsByVideoAndKind(ctx, video.ID)
	if err != nil {
		return nil, unavailable("failed to count events", err)
	}
	var total int64
	for _, c := range byKind {
		total += c
	}

	return &VideoStats{
		UUID:       video.UUID,
		Status:     video.Status,
		Views:      video.StatsViews,
		Clicks:     video.StatsClicks,
		Watch25:    video.StatsWatch25,
		Watch50:    video.StatsWatch50,
		Watch75:    video.StatsWatch75,
		Watch100:   video.StatsWatch100,
		Bookings:   video.StatsBookings,
		TotalEvent: total,
	}, nil
}

func (f *VideoFlowImpl) Timeline(ctx context.Context, customerID uint, videoUUID uuid.UUID, limit int) ([]*models.ViewerEvent, error) {
	video, err := f.ownedVideo(ctx, customerID, videoUUID)
	if err != nil {
		return nil, err
	}
	events, err := f.eventRepo.ListByVideo(ctx, video.ID, limit)
	if err != nil {
		return nil, unavailable("failed to list events", err)
	}
	return events, nil
}

func (f *VideoFlowImpl) Reconcile(ctx context.Context, customerID uint, videoUUID uuid.UUID) (*ReconcileResult, error) {
	video, err := f.ownedVideo(ctx, customerID, videoUUID)
	if err != nil {
		return nil, err
	}
	counts, byKind, err := RecomputeCounts(ctx, f.eventRepo, video.ID)
	if err != nil {
		return nil, err
	}
	if err := f.videoRepo.ApplyCounts(ctx, video.ID, counts); err != nil {
		return nil, unavailable("failed to apply reconciled counters", err)
	}
	return &ReconcileResult{
		VideoUUID: video.UUID,
		Counts:    counts,
		ByKind:    byKind,
	}, nil
}

// RecomputeCounts folds the grouped event log back into counter values. The
// scheduler's periodic reconciliation shares this with the on-demand
// endpoint.
func RecomputeCounts(ctx context.Context, eventRepo repository.ViewerEventRepository, videoID uint) (map[models.StatsCounter]int64, map[models.EventKind]int64, error) {
	grouped, err := eventRepo.GroupedCounts(ctx, videoID)
	if err != nil {
		return nil, nil, unavailable("failed to read grouped event counts", err)
	}

	counts := make(map[models.StatsCounter]int64)
	byKind := make(map[models.EventKind]int64)
	for _, row := range grouped {
		byKind[row.Kind] += row.Count
		if counter := models.CounterFor(row.Kind, row.Progress); counter != "" {
			counts[counter] += row.Count
		}
	}
	return counts, byKind, nil
}

var timelineExportHeaders = []string{"Recorded At", "Event", "Progress", "Session", "Visitor", "User Agent"}

func (f *VideoFlowImpl) ExportTimeline(ctx context.Context, customerID uint, videoUUID uuid.UUID) ([]byte, string, error) {
	video, err := f.ownedVideo(ctx, customerID, videoUUID)
	if err != nil {
		return nil, "", err
	}
	events, err := f.eventRepo.ListByVideo(ctx, video.ID, 0)
	if err != nil {
		return nil, "", unavailable("failed to list events", err)
	}

	wb := excelize.NewFile()
	defer wb.Close()

	const sheet = "Timeline"
	wb.SetSheetName(wb.GetSheetName(0), sheet)

	for i, header := range timelineExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := wb.SetCellValue(sheet, cell, header); err != nil {
			return nil, "", fmt.Errorf("failed to write export header: %w", err)
		}
	}

	for i, event := range events {
		row := i + 2
		progress := ""
		if event.Progress != nil {
			progress = fmt.Sprintf("%d%%", *event.Progress)
		}
		session := ""
		if event.SessionID != nil {
			session = *event.SessionID
		}
		values := []interface{}{
			event.CreatedAt.Format("2006-01-02 15:04:05"),
			string(event.Kind),
			progress,
			session,
			event.Metadata["visitor_hash"],
			event.Metadata["user_agent"],
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := wb.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", fmt.Errorf("failed to write export row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render export workbook: %w", err)
	}

	filename := fmt.Sprintf("timeline_%s.xlsx", video.UUID.String())
	return buf.Bytes(), filename, nil
}
