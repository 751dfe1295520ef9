package mediaHandler

import (
	"SnapSight/internal/api/media"
	contextPkg "SnapSight/pkg/context"
	"SnapSight/pkg/handlerUtil"
	"SnapSight/pkg/log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *MediaHandler) UploadVideo(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing video upload request")

	var req media.UploadVideoRequest
	if err := ctx.BodyParser(&req); err != nil {
		// An unparsable body carries no video field either.
		return errHandler.Handle(ctx, requestID, media.ErrMissingVideo, ctx.Path(), "upload_video")
	}

	if req.Video == "" {
		return errHandler.Handle(ctx, requestID, media.ErrMissingVideo, ctx.Path(), "upload_video")
	}

	fileID, err := h.mediaService.UploadVideo(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "upload_video")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, media.UploadVideoResponse{
			Status:     "success",
			StatusCode: fiber.StatusOK,
			Message:    "Video uploaded successfully",
			FileID:     fileID,
		})
	}
}

func (h *MediaHandler) GetVideo(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"video_id":   ctx.Params("videoId"),
	}).Debug("Video retrieval requested")

	return ctx.Status(fiber.StatusNotFound).JSON(media.UploadVideoResponse{
		Status:     "error",
		StatusCode: fiber.StatusNotFound,
		Message:    "Video retrieval not yet implemented",
	})
}

func (h *MediaHandler) ListMedia(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	page, err := strconv.Atoi(ctx.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(ctx.Query("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}

	result, err := h.mediaService.ListMedia(c, page, limit)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_media")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

// BrokerStatus is the connectivity signal clients poll to decide whether to
// offer the video-recording affordances.
func (h *MediaHandler) BrokerStatus(ctx *fiber.Ctx) error {
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	status := "disconnected"
	if h.broker.Connected(c) {
		status = "connected"
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"broker": status,
	})
}
