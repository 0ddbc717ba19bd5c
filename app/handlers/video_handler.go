package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/clipgreet/clipgreet/app/dto"
	businessflow "github.com/clipgreet/clipgreet/business_flow"
	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/utils"
)

// VideoHandlerInterface defines the contract for owner-facing video handlers
type VideoHandlerInterface interface {
	CreateVideo(c fiber.Ctx) error
	UpdateStatus(c fiber.Ctx) error
	GetStats(c fiber.Ctx) error
	GetTimeline(c fiber.Ctx) error
	ExportTimeline(c fiber.Ctx) error
	Reconcile(c fiber.Ctx) error
}

// VideoHandler handles owner-facing video HTTP requests
type VideoHandler struct {
	videoFlow businessflow.VideoFlow
	validator *validator.Validate
}

func NewVideoHandler(videoFlow businessflow.VideoFlow) VideoHandlerInterface {
	return &VideoHandler{
		videoFlow: videoFlow,
		validator: validator.New(),
	}
}

func (h *VideoHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *VideoHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ownerAndVideo extracts the authenticated customer ID and the path UUID.
// The bool result reports whether a response was already written.
func (h *VideoHandler) ownerAndVideo(c fiber.Ctx) (uint, uuid.UUID, bool, error) {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return 0, uuid.Nil, true, h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	videoUUID, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return 0, uuid.Nil, true, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid video UUID", "INVALID_UUID", nil)
	}
	return customerID, videoUUID, false, nil
}

func (h *VideoHandler) videoErrorResponse(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	if businessflow.IsVideoNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Video not found", "VIDEO_NOT_FOUND", nil)
	}
	if businessflow.IsVideoAccessDenied(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Video access denied", "VIDEO_ACCESS_DENIED", nil)
	}
	log.Println(fallbackMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

// CreateVideo handles outreach video creation
// @Summary Create Video
// @Tags Videos
// @Accept json
// @Produce json
// @Param request body dto.CreateVideoRequest true "Video creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateVideoResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/videos [post]
func (h *VideoHandler) CreateVideo(c fiber.Ctx) error {
	var req dto.CreateVideoRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	input := &businessflow.CreateVideoInput{
		Title:            req.Title,
		RecipientName:    req.RecipientName,
		RecipientCompany: req.RecipientCompany,
		RecipientEmail:   req.RecipientEmail,
		CTAType:          req.CTAType,
		CTAURL:           req.CTAURL,
		CTALabel:         req.CTALabel,
		VideoPath:        req.VideoPath,
		GifPath:          req.GifPath,
		ThumbnailPath:    req.ThumbnailPath,
	}

	video, err := h.videoFlow.CreateVideo(h.createRequestContext(c, "/api/v1/videos"), customerID, input)
	if err != nil {
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsStoreUnavailable(err) {
			log.Println("Video creation failed", err)
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Video creation failed", "VIDEO_CREATION_FAILED", nil)
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_VIDEO", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Video created successfully", dto.CreateVideoResponse{
		UUID:       video.UUID.String(),
		ShareToken: video.ShareToken,
		Status:     video.Status.String(),
		CreatedAt:  video.CreatedAt.Format(time.RFC3339),
	})
}

// UpdateStatus handles the owner-driven ready and sent transitions
// @Summary Update Video Status
// @Tags Videos
// @Accept json
// @Produce json
// @Param uuid path string true "Video UUID"
// @Param request body dto.UpdateVideoStatusRequest true "Target status"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/videos/{uuid}/status [patch]
func (h *VideoHandler) UpdateStatus(c fiber.Ctx) error {
	var req dto.UpdateVideoStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	customerID, videoUUID, done, resp := h.ownerAndVideo(c)
	if done {
		return resp
	}

	ctx := h.createRequestContext(c, "/api/v1/videos/status")

	var video *models.Video
	var err error
	switch req.Status {
	case models.VideoStatusReady.String():
		video, err = h.videoFlow.MarkReady(ctx, customerID, videoUUID)
	case models.VideoStatusSent.String():
		video, err = h.videoFlow.MarkSent(ctx, customerID, videoUUID)
	default:
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported status transition", "INVALID_STATUS", nil)
	}
	if err != nil {
		if businessflow.IsVideoNotReady(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Video must be ready before it can be sent", "VIDEO_NOT_READY", nil)
		}
		return h.videoErrorResponse(c, err, "Status update failed", "STATUS_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Status updated successfully", fiber.Map{
		"uuid":   video.UUID.String(),
		"status": video.Status.String(),
	})
}

// GetStats returns the counter snapshot for one video
// @Summary Get Video Stats
// @Tags Videos
// @Produce json
// @Param uuid path string true "Video UUID"
// @Success 200 {object} dto.APIResponse{data=dto.VideoStatsResponse}
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/videos/{uuid}/stats [get]
func (h *VideoHandler) GetStats(c fiber.Ctx) error {
	customerID, videoUUID, done, resp := h.ownerAndVideo(c)
	if done {
		return resp
	}

	stats, err := h.videoFlow.Stats(h.createRequestContext(c, "/api/v1/videos/stats"), customerID, videoUUID)
	if err != nil {
		return h.videoErrorResponse(c, err, "Stats lookup failed", "STATS_LOOKUP_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Stats retrieved successfully", dto.VideoStatsResponse{
		UUID:        stats.UUID.String(),
		Status:      stats.Status.String(),
		Views:       stats.Views,
		Clicks:      stats.Clicks,
		Watch25:     stats.Watch25,
		Watch50:     stats.Watch50,
		Watch75:     stats.Watch75,
		Watch100:    stats.Watch100,
		Bookings:    stats.Bookings,
		TotalEvents: stats.TotalEvent,
	})
}

// GetTimeline returns the newest-first event timeline for one video
// @Summary Get Video Timeline
// @Tags Videos
// @Produce json
// @Param uuid path string true "Video UUID"
// @Success 200 {object} dto.APIResponse{data=[]dto.TimelineEventResponse}
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/videos/{uuid}/timeline [get]
func (h *VideoHandler) GetTimeline(c fiber.Ctx) error {
	customerID, videoUUID, done, resp := h.ownerAndVideo(c)
	if done {
		return resp
	}

	limit := fiber.Query[int](c, "limit", 100)
	if limit < 0 || limit > 1000 {
		limit = 100
	}

	events, err := h.videoFlow.Timeline(h.createRequestContext(c, "/api/v1/videos/timeline"), customerID, videoUUID, limit)
	if err != nil {
		return h.videoErrorResponse(c, err, "Timeline lookup failed", "TIMELINE_LOOKUP_FAILED")
	}

	timeline := make([]dto.TimelineEventResponse, 0, len(events))
	for _, event := range events {
		entry := dto.TimelineEventResponse{
			Kind:      string(event.Kind),
			Progress:  event.Progress,
			CreatedAt: event.CreatedAt.Format(time.RFC3339),
		}
		if event.SessionID != nil {
			entry.SessionID = *event.SessionID
		}
		timeline = append(timeline, entry)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Timeline retrieved successfully", timeline)
}

// ExportTimeline streams the event timeline as an xlsx workbook
// @Summary Export Video Timeline
// @Tags Videos
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param uuid path string true "Video UUID"
// @Success 200 {file} binary
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/videos/{uuid}/export [get]
func (h *VideoHandler) ExportTimeline(c fiber.Ctx) error {
	customerID, videoUUID, done, resp := h.ownerAndVideo(c)
	if done {
		return resp
	}

	content, filename, err := h.videoFlow.ExportTimeline(h.createRequestContextWithTimeout(c, "/api/v1/videos/export", 30*time.Second), customerID, videoUUID)
	if err != nil {
		return h.videoErrorResponse(c, err, "Timeline export failed", "TIMELINE_EXPORT_FAILED")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Status(fiber.StatusOK).Send(content)
}

// Reconcile recomputes the denormalized counters from the event log
// @Summary Reconcile Video Counters
// @Tags Videos
// @Produce json
// @Param uuid path string true "Video UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileResponse}
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/videos/{uuid}/reconcile [post]
func (h *VideoHandler) Reconcile(c fiber.Ctx) error {
	customerID, videoUUID, done, resp := h.ownerAndVideo(c)
	if done {
		return resp
	}

	result, err := h.videoFlow.Reconcile(h.createRequestContextWithTimeout(c, "/api/v1/videos/reconcile", 30*time.Second), customerID, videoUUID)
	if err != nil {
		return h.videoErrorResponse(c, err, "Reconciliation failed", "RECONCILIATION_FAILED")
	}

	counts := make(map[string]int64, len(result.Counts))
	for counter, value := range result.Counts {
		counts[string(counter)] = value
	}
	byKind := make(map[string]int64, len(result.ByKind))
	for kind, value := range result.ByKind {
		byKind[string(kind)] = value
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Counters reconciled successfully", dto.ReconcileResponse{
		UUID:   result.VideoUUID.String(),
		Counts: counts,
		ByKind: byKind,
	})
}

func (h *VideoHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 10*time.Second)
}

func (h *VideoHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
