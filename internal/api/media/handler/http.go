package mediaHandler

import (
	mediaService "SnapSight/internal/api/media/service"
	"SnapSight/internal/middleware"
	"SnapSight/pkg/broker"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type MediaHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	mediaService mediaService.IMediaService
	broker       broker.IBroker
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	ms mediaService.IMediaService,
	brokerClient broker.IBroker,
) *MediaHandler {
	return &MediaHandler{
		log:          log,
		validator:    validate,
		middleware:   middleware,
		mediaService: ms,
		broker:       brokerClient,
	}
}

func (h *MediaHandler) Start(srv fiber.Router) {
	videos := srv.Group("/videos")
	videos.Post("/", h.middleware.NewRateLimiter, h.UploadVideo)
	videos.Get("/:videoId", h.GetVideo)

	srv.Get("/media", h.ListMedia)
	srv.Get("/status", h.BrokerStatus)

	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Use("/ws", wsMiddleware)
	srv.Get("/ws", websocket.New(h.handleMediaSocket))
}
