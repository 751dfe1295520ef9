package mediaService

import (
	"SnapSight/internal/api/media"
	"SnapSight/internal/entity"
	contextPkg "SnapSight/pkg/context"
	"encoding/base64"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Send persists the artifact best-effort and publishes its envelope to the
// broker topic keyed by userId. Storage and publish are independent side
// effects of the same input: a storage failure is logged and the publish
// still proceeds. Envelopes go out in call order; the bridge keeps no queue
// of its own.
func (s *mediaService) Send(ctx context.Context, artifact entity.CapturedArtifact) (entity.PublishAck, error) {
	requestID := contextPkg.GetRequestID(ctx)

	storedRef := s.persist(ctx, artifact)

	date := artifact.Date
	if date == "" {
		date = time.UnixMilli(artifact.CapturedAt).UTC().Format(time.RFC3339Nano)
	}

	envelope := entity.TransportEnvelope{
		UserID: artifact.UserID,
		Date:   date,
		Time:   artifact.CapturedAt,
		Type:   string(artifact.Kind),
	}

	payload := base64.StdEncoding.EncodeToString(artifact.Bytes)
	if artifact.Kind == entity.ArtifactVideo {
		envelope.Video = payload
	} else {
		envelope.Image = payload
	}

	value, err := jsoniter.Marshal(envelope)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to marshal transport envelope")
		return entity.PublishAck{}, err
	}

	if err := s.broker.Publish(ctx, s.topic, artifact.UserID, value); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"topic":      s.topic,
			"user_id":    artifact.UserID,
			"error":      err.Error(),
		}).Error("Broker publish failed, artifact lost")
		return entity.PublishAck{}, media.ErrPublish
	}

	return entity.PublishAck{
		Topic:     s.topic,
		Key:       artifact.UserID,
		StoredRef: storedRef,
	}, nil
}

// Forward decodes one socket envelope into an artifact and sends it.
func (s *mediaService) Forward(ctx context.Context, msg media.SocketMessage) (entity.PublishAck, error) {
	requestID := contextPkg.GetRequestID(ctx)

	kind := entity.ArtifactImage
	data := msg.Image
	mimeType := "image/jpeg"
	if msg.Type == string(entity.ArtifactVideo) {
		kind = entity.ArtifactVideo
		data = msg.Video
		mimeType = "video/webm"
	}

	raw, err := s.utils.DecodeBase64(s.utils.StripDataURI(data))
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"type":       msg.Type,
			"error":      err.Error(),
		}).Warn("Dropping socket message with undecodable payload")
		return entity.PublishAck{}, err
	}

	capturedAt := msg.Time
	if capturedAt == 0 {
		capturedAt = time.Now().UnixMilli()
	}

	return s.Send(ctx, entity.CapturedArtifact{
		Kind:       kind,
		Bytes:      raw,
		MimeType:   mimeType,
		CapturedAt: capturedAt,
		Date:       msg.Date,
		UserID:     msg.UserID,
	})
}

// UploadVideo stores an uploaded clip and returns the storage key. The
// payload is decoded leniently, so a present but malformed video still
// stores whatever bytes it yields. The upload endpoint only persists;
// nothing is published from this path. Storage failure is logged and an
// empty fileId is returned.
func (s *mediaService) UploadVideo(ctx context.Context, req media.UploadVideoRequest) (string, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if req.Video == "" {
		return "", media.ErrMissingVideo
	}

	raw := s.utils.DecodeBase64Lenient(s.utils.StripDataURI(req.Video))

	key := s.utils.NewStorageKey("videos", "webm", time.Now())
	if _, err := s.s3Client.Store(ctx, raw, key); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"key":        key,
			"error":      err.Error(),
		}).Error("Failure to write video to storage")
		return "", nil
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"key":        key,
	}).Info("Video stored")

	return key, nil
}

func (s *mediaService) ListMedia(ctx context.Context, page, limit int) (media.MediaListResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.mediaRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return media.MediaListResponse{}, err
	}

	offset := (page - 1) * limit
	refs, total, err := repo.Media.ListRefs(ctx, limit, offset)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to list stored media refs")
		return media.MediaListResponse{}, media.ErrMediaLookup
	}

	items := make([]media.MediaItem, 0, len(refs))
	for _, ref := range refs {
		item := media.MediaItem{StoredMediaRef: ref}
		if url, err := s.s3Client.PresignUrl(ref.ID); err == nil {
			item.Url = url
		}
		items = append(items, item)
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	return media.MediaListResponse{
		Items:       items,
		Length:      total,
		TotalPages:  totalPages,
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

// persist is the best-effort side of Send: blob write plus an advisory
// metadata row. Neither failure reaches the caller.
func (s *mediaService) persist(ctx context.Context, artifact entity.CapturedArtifact) *entity.StoredMediaRef {
	requestID := contextPkg.GetRequestID(ctx)

	prefix, ext := "images", "jpg"
	if artifact.Kind == entity.ArtifactVideo {
		prefix, ext = "videos", "webm"
	}

	key := s.utils.NewStorageKey(prefix, ext, time.UnixMilli(artifact.CapturedAt))
	if _, err := s.s3Client.Store(ctx, artifact.Bytes, key); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"key":        key,
			"error":      err.Error(),
		}).Error("Failure to write media to storage, publish proceeds")
		return nil
	}

	ref := entity.StoredMediaRef{
		ID:        key,
		UserID:    artifact.UserID,
		Kind:      string(artifact.Kind),
		CreatedAt: time.UnixMilli(artifact.CapturedAt).UTC(),
	}

	if s.mediaRepo != nil {
		repo, err := s.mediaRepo.NewClient(false)
		if err == nil {
			if err := repo.Media.CreateRef(ctx, ref); err != nil {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"key":        key,
					"error":      err.Error(),
				}).Warn("Failed to index stored media ref")
			}
		}
	}

	return &ref
}
