package mediaService

import (
	"SnapSight/internal/api/media"
	"SnapSight/internal/entity"
	mediaRepository "SnapSight/internal/api/media/repository"
	"SnapSight/pkg/broker"
	"SnapSight/pkg/s3"
	"SnapSight/pkg/utils"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IMediaService interface {
	Send(ctx context.Context, artifact entity.CapturedArtifact) (entity.PublishAck, error)
	Forward(ctx context.Context, msg media.SocketMessage) (entity.PublishAck, error)
	UploadVideo(ctx context.Context, req media.UploadVideoRequest) (string, error)
	ListMedia(ctx context.Context, page, limit int) (media.MediaListResponse, error)
}

type mediaService struct {
	log       *logrus.Logger
	mediaRepo mediaRepository.Repository
	s3Client  s3.ItfS3
	broker    broker.IBroker
	utils     utils.IUtils
	topic     string
}

func NewMediaService(
	log *logrus.Logger,
	mediaRepo mediaRepository.Repository,
	s3Client s3.ItfS3,
	brokerClient broker.IBroker,
	utils utils.IUtils,
) IMediaService {
	topic := os.Getenv("MEDIA_TOPIC")
	if topic == "" {
		topic = "images"
	}

	return &mediaService{
		log:       log,
		mediaRepo: mediaRepo,
		s3Client:  s3Client,
		broker:    brokerClient,
		utils:     utils,
		topic:     topic,
	}
}
