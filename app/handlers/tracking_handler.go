package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/clipgreet/clipgreet/app/dto"
	businessflow "github.com/clipgreet/clipgreet/business_flow"
	"github.com/clipgreet/clipgreet/utils"
)

// TrackingHandlerInterface defines the contract for the public viewer-facing endpoints
type TrackingHandlerInterface interface {
	TrackEvent(c fiber.Ctx) error
	ForwardVideo(c fiber.Ctx) error
	SharedVideo(c fiber.Ctx) error
}

// TrackingHandler handles viewer-side HTTP requests. These endpoints are
// unauthenticated, so responses use the compact public shapes rather than
// the owner API envelope.
type TrackingHandler struct {
	trackFlow   businessflow.TrackEventFlow
	forwardFlow businessflow.ForwardFlow
	sharedFlow  businessflow.SharedVideoFlow
	validator   *validator.Validate
}

func NewTrackingHandler(
	trackFlow businessflow.TrackEventFlow,
	forwardFlow businessflow.ForwardFlow,
	sharedFlow businessflow.SharedVideoFlow,
) TrackingHandlerInterface {
	return &TrackingHandler{
		trackFlow:   trackFlow,
		forwardFlow: forwardFlow,
		sharedFlow:  sharedFlow,
		validator:   validator.New(),
	}
}

func (h *TrackingHandler) publicError(c fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(dto.PublicError{Error: message})
}

// TrackEvent ingests one viewer event report
// @Summary Track Viewer Event
// @Tags Tracking
// @Accept json
// @Produce json
// @Param request body dto.TrackEventRequest true "Event report"
// @Success 200 {object} dto.TrackEventResponse
// @Failure 400 {object} dto.PublicError
// @Failure 404 {object} dto.PublicError
// @Failure 500 {object} dto.PublicError
// @Router /api/v1/track [post]
func (h *TrackingHandler) TrackEvent(c fiber.Ctx) error {
	var req dto.TrackEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.publicError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(&req); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return h.publicError(c, fiber.StatusBadRequest, getValidationErrorMessage(errs[0]))
		}
		return h.publicError(c, fiber.StatusBadRequest, "invalid request")
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.RequestID = c.Get("X-Request-ID")
	metadata.Referer = c.Get("Referer")

	result, err := h.trackFlow.TrackEvent(h.createRequestContext(c, "/api/v1/track"), req.VideoRef, req.EventType, req.Progress, req.SessionID, metadata)
	if err != nil {
		if businessflow.IsVideoNotFound(err) {
			return h.publicError(c, fiber.StatusNotFound, "video not found")
		}
		if businessflow.IsUnknownEventKind(err) {
			return h.publicError(c, fiber.StatusBadRequest, "unknown event type")
		}
		log.Println("Track event failed", err)
		return h.publicError(c, fiber.StatusInternalServerError, "internal error")
	}

	return c.Status(fiber.StatusOK).JSON(dto.TrackEventResponse{
		OK:        true,
		Duplicate: result.Duplicate,
	})
}

// ForwardVideo records a viewer-submitted forward request
// @Summary Forward Video
// @Tags Tracking
// @Accept json
// @Produce json
// @Param request body dto.ForwardVideoRequest true "Forward request"
// @Success 200 {object} dto.TrackEventResponse
// @Failure 400 {object} dto.PublicError
// @Failure 404 {object} dto.PublicError
// @Failure 500 {object} dto.PublicError
// @Router /api/v1/forward [post]
func (h *TrackingHandler) ForwardVideo(c fiber.Ctx) error {
	var req dto.ForwardVideoRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.publicError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(&req); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return h.publicError(c, fiber.StatusBadRequest, getValidationErrorMessage(errs[0]))
		}
		return h.publicError(c, fiber.StatusBadRequest, "invalid request")
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.RequestID = c.Get("X-Request-ID")

	err := h.forwardFlow.ForwardVideo(h.createRequestContext(c, "/api/v1/forward"), req.VideoRef, req.RecipientName, req.RecipientEmail, req.Note, req.SessionID, metadata)
	if err != nil {
		if businessflow.IsVideoNotFound(err) {
			return h.publicError(c, fiber.StatusNotFound, "video not found")
		}
		if businessflow.IsForwardRecipientRequired(err) {
			return h.publicError(c, fiber.StatusBadRequest, "recipient name or email is required")
		}
		log.Println("Forward video failed", err)
		return h.publicError(c, fiber.StatusInternalServerError, "internal error")
	}

	return c.Status(fiber.StatusOK).JSON(dto.TrackEventResponse{OK: true})
}

// SharedVideo serves the landing-page payload for a share token
// @Summary Get Shared Video
// @Tags Tracking
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} dto.SharedVideoResponse
// @Failure 404 {object} dto.PublicError
// @Failure 500 {object} dto.PublicError
// @Router /api/v1/videos/shared/{token} [get]
func (h *TrackingHandler) SharedVideo(c fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return h.publicError(c, fiber.StatusBadRequest, "invalid share token")
	}

	video, err := h.sharedFlow.Resolve(h.createRequestContext(c, "/api/v1/videos/shared"), token)
	if err != nil {
		if businessflow.IsVideoNotFound(err) {
			return h.publicError(c, fiber.StatusNotFound, "video not found")
		}
		log.Println("Shared video lookup failed", err)
		return h.publicError(c, fiber.StatusInternalServerError, "internal error")
	}

	return c.Status(fiber.StatusOK).JSON(dto.SharedVideoResponse{
		ShareToken:    video.ShareToken,
		Title:         video.Title,
		RecipientName: video.RecipientName,
		CTAType:       video.CTAType,
		CTAURL:        video.CTAURL,
		CTALabel:      video.CTALabel,
		VideoPath:     video.VideoPath,
		GifPath:       video.GifPath,
		ThumbnailPath: video.ThumbnailPath,
	})
}

func (h *TrackingHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 10*time.Second)
}

func (h *TrackingHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
