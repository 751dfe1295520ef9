package mediaService

import (
	"SnapSight/internal/api/media"
	"SnapSight/internal/entity"
	mediaRepository "SnapSight/internal/api/media/repository"
	"SnapSight/pkg/utils"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type mockS3 struct {
	mu       sync.Mutex
	storeErr error
	stored   map[string][]byte
}

func (m *mockS3) Store(ctx context.Context, data []byte, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return "", m.storeErr
	}
	if m.stored == nil {
		m.stored = make(map[string][]byte)
	}
	m.stored[key] = data
	return key, nil
}

func (m *mockS3) PresignUrl(key string) (string, error) {
	return "https://example.com/" + key, nil
}

type published struct {
	topic string
	key   string
	value []byte
}

type mockBroker struct {
	mu         sync.Mutex
	publishErr error
	records    []published
}

func (m *mockBroker) Publish(ctx context.Context, topic, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.records = append(m.records, published{topic: topic, key: key, value: value})
	return nil
}

func (m *mockBroker) Connected(ctx context.Context) bool {
	return m.publishErr == nil
}

type mockMediaRefs struct {
	mu      sync.Mutex
	created []entity.StoredMediaRef
	refs    []entity.StoredMediaRef
	total   int
}

func (m *mockMediaRefs) CreateRef(ctx context.Context, ref entity.StoredMediaRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, ref)
	return nil
}

func (m *mockMediaRefs) ListRefs(ctx context.Context, limit, offset int) ([]entity.StoredMediaRef, int, error) {
	return m.refs, m.total, nil
}

type mockRepo struct {
	media *mockMediaRefs
}

func (m *mockRepo) NewClient(tx bool) (mediaRepository.Client, error) {
	return mediaRepository.Client{
		Media:    m.media,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

func newTestService(s3 *mockS3, broker *mockBroker, repo *mockRepo) IMediaService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewMediaService(logger, repo, s3, broker, utils.New())
}

func imageArtifact(data []byte) entity.CapturedArtifact {
	return entity.CapturedArtifact{
		Kind:       entity.ArtifactImage,
		Bytes:      data,
		MimeType:   "image/jpeg",
		CapturedAt: 1700000000000,
		UserID:     "user-1",
	}
}

func TestSendPublishesEnvelope(t *testing.T) {
	s3 := &mockS3{}
	broker := &mockBroker{}
	repo := &mockRepo{media: &mockMediaRefs{}}
	svc := newTestService(s3, broker, repo)

	raw := []byte{0x01, 0x02, 0x03}
	ack, err := svc.Send(context.Background(), imageArtifact(raw))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ack.Topic != "images" || ack.Key != "user-1" {
		t.Fatalf("ack = %+v, want topic images key user-1", ack)
	}

	if len(broker.records) != 1 {
		t.Fatalf("published = %d, want 1", len(broker.records))
	}

	var envelope entity.TransportEnvelope
	if err := jsoniter.Unmarshal(broker.records[0].value, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.UserID != "user-1" {
		t.Fatalf("envelope userId = %q, want user-1", envelope.UserID)
	}
	if envelope.Type != "image" {
		t.Fatalf("envelope type = %q, want image", envelope.Type)
	}
	if want := base64.StdEncoding.EncodeToString(raw); envelope.Image != want {
		t.Fatalf("envelope image = %q, want %q", envelope.Image, want)
	}
	if envelope.Video != "" {
		t.Fatalf("envelope video = %q, want empty", envelope.Video)
	}
	if envelope.Time != 1700000000000 {
		t.Fatalf("envelope time = %d, want 1700000000000", envelope.Time)
	}
	if envelope.Date != "2023-11-14T22:13:20Z" {
		t.Fatalf("envelope date = %q, want derived from capture time", envelope.Date)
	}
}

func TestSendKeepsArtifactDate(t *testing.T) {
	broker := &mockBroker{}
	svc := newTestService(&mockS3{}, broker, &mockRepo{media: &mockMediaRefs{}})

	artifact := imageArtifact([]byte("frame"))
	artifact.Date = "14/11/2023, 22.13.20"
	if _, err := svc.Send(context.Background(), artifact); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var envelope entity.TransportEnvelope
	if err := jsoniter.Unmarshal(broker.records[0].value, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Date != "14/11/2023, 22.13.20" {
		t.Fatalf("envelope date = %q, want the artifact date unchanged", envelope.Date)
	}
}

func TestSendStorageFailureStillPublishes(t *testing.T) {
	s3 := &mockS3{storeErr: errors.New("bucket unavailable")}
	broker := &mockBroker{}
	repo := &mockRepo{media: &mockMediaRefs{}}
	svc := newTestService(s3, broker, repo)

	ack, err := svc.Send(context.Background(), imageArtifact([]byte("frame")))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(broker.records) != 1 {
		t.Fatalf("published = %d, want 1 despite storage failure", len(broker.records))
	}
	if ack.StoredRef != nil {
		t.Fatalf("stored ref = %+v, want nil after storage failure", ack.StoredRef)
	}
	if len(repo.media.created) != 0 {
		t.Fatalf("indexed refs = %d, want 0", len(repo.media.created))
	}
}

func TestSendPublishFailure(t *testing.T) {
	s3 := &mockS3{}
	broker := &mockBroker{publishErr: errors.New("stream down")}
	repo := &mockRepo{media: &mockMediaRefs{}}
	svc := newTestService(s3, broker, repo)

	_, err := svc.Send(context.Background(), imageArtifact([]byte("frame")))
	if !errors.Is(err, media.ErrPublish) {
		t.Fatalf("err = %v, want ErrPublish", err)
	}
}

func TestSendIndexesStoredRef(t *testing.T) {
	s3 := &mockS3{}
	broker := &mockBroker{}
	repo := &mockRepo{media: &mockMediaRefs{}}
	svc := newTestService(s3, broker, repo)

	ack, err := svc.Send(context.Background(), imageArtifact([]byte("frame")))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ack.StoredRef == nil {
		t.Fatal("stored ref is nil")
	}
	if !strings.HasPrefix(ack.StoredRef.ID, "images/") || !strings.HasSuffix(ack.StoredRef.ID, ".jpg") {
		t.Fatalf("stored key = %q, want images/...jpg", ack.StoredRef.ID)
	}
	if len(repo.media.created) != 1 {
		t.Fatalf("indexed refs = %d, want 1", len(repo.media.created))
	}
}

func TestForwardDecodesDataURI(t *testing.T) {
	s3 := &mockS3{}
	broker := &mockBroker{}
	repo := &mockRepo{media: &mockMediaRefs{}}
	svc := newTestService(s3, broker, repo)

	raw := []byte{0xFF, 0xD8, 0xFF}
	msg := media.SocketMessage{
		Type:   "image",
		Image:  "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw),
		UserID: "user-1",
		Time:   1700000000000,
	}

	if _, err := svc.Forward(context.Background(), msg); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	var envelope entity.TransportEnvelope
	if err := jsoniter.Unmarshal(broker.records[0].value, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if want := base64.StdEncoding.EncodeToString(raw); envelope.Image != want {
		t.Fatalf("envelope image = %q, want %q", envelope.Image, want)
	}
}

func TestForwardPassesClientDate(t *testing.T) {
	broker := &mockBroker{}
	svc := newTestService(&mockS3{}, broker, &mockRepo{media: &mockMediaRefs{}})

	msg := media.SocketMessage{
		Type:   "image",
		Image:  base64.StdEncoding.EncodeToString([]byte{0xFF}),
		UserID: "user-1",
		Date:   "14/11/2023, 22.13.20",
		Time:   1700000000000,
	}
	if _, err := svc.Forward(context.Background(), msg); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	var envelope entity.TransportEnvelope
	if err := jsoniter.Unmarshal(broker.records[0].value, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Date != "14/11/2023, 22.13.20" {
		t.Fatalf("envelope date = %q, want the client date unchanged", envelope.Date)
	}
}

func TestForwardRejectsBadPayload(t *testing.T) {
	svc := newTestService(&mockS3{}, &mockBroker{}, &mockRepo{media: &mockMediaRefs{}})

	msg := media.SocketMessage{Type: "image", Image: "!!not base64!!", UserID: "user-1"}
	if _, err := svc.Forward(context.Background(), msg); err == nil {
		t.Fatal("Forward accepted undecodable payload")
	}
}

func TestUploadVideoMissingPayload(t *testing.T) {
	svc := newTestService(&mockS3{}, &mockBroker{}, &mockRepo{media: &mockMediaRefs{}})

	_, err := svc.UploadVideo(context.Background(), media.UploadVideoRequest{})
	if !errors.Is(err, media.ErrMissingVideo) {
		t.Fatalf("err = %v, want ErrMissingVideo", err)
	}
}

func TestUploadVideoStores(t *testing.T) {
	s3 := &mockS3{}
	svc := newTestService(s3, &mockBroker{}, &mockRepo{media: &mockMediaRefs{}})

	payload := base64.StdEncoding.EncodeToString([]byte("webm-bytes"))
	key, err := svc.UploadVideo(context.Background(), media.UploadVideoRequest{Video: payload})
	if err != nil {
		t.Fatalf("UploadVideo: %v", err)
	}
	if !strings.HasPrefix(key, "videos/") || !strings.HasSuffix(key, ".webm") {
		t.Fatalf("key = %q, want videos/...webm", key)
	}
	if string(s3.stored[key]) != "webm-bytes" {
		t.Fatalf("stored bytes = %q, want raw decoded payload", s3.stored[key])
	}
}

func TestUploadVideoDecodesLeniently(t *testing.T) {
	s3 := &mockS3{}
	svc := newTestService(s3, &mockBroker{}, &mockRepo{media: &mockMediaRefs{}})

	key, err := svc.UploadVideo(context.Background(), media.UploadVideoRequest{Video: "AA!AA"})
	if err != nil {
		t.Fatalf("UploadVideo with malformed payload = %v, want nil", err)
	}
	if key == "" {
		t.Fatal("key is empty, want a storage key for a present payload")
	}
	if got := s3.stored[key]; len(got) != 3 || got[0] != 0 || got[1] != 0 || got[2] != 0 {
		t.Fatalf("stored bytes = %v, want the three bytes the cleaned payload decodes to", got)
	}
}

func TestUploadVideoStorageFailureReturnsEmptyKey(t *testing.T) {
	s3 := &mockS3{storeErr: errors.New("bucket unavailable")}
	svc := newTestService(s3, &mockBroker{}, &mockRepo{media: &mockMediaRefs{}})

	payload := base64.StdEncoding.EncodeToString([]byte("webm-bytes"))
	key, err := svc.UploadVideo(context.Background(), media.UploadVideoRequest{Video: payload})
	if err != nil {
		t.Fatalf("UploadVideo after storage failure = %v, want nil", err)
	}
	if key != "" {
		t.Fatalf("key = %q, want empty after storage failure", key)
	}
}

func TestListMedia(t *testing.T) {
	refs := &mockMediaRefs{
		refs:  []entity.StoredMediaRef{{ID: "images/a.jpg"}, {ID: "images/b.jpg"}},
		total: 5,
	}
	svc := newTestService(&mockS3{}, &mockBroker{}, &mockRepo{media: refs})

	resp, err := svc.ListMedia(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("ListMedia: %v", err)
	}
	if resp.Length != 5 || resp.TotalPages != 3 || resp.CurrentPage != 1 {
		t.Fatalf("pagination = %+v, want length 5, 3 pages, page 1", resp)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}
	if resp.Items[0].Url != "https://example.com/images/a.jpg" {
		t.Fatalf("item url = %q, want presigned url", resp.Items[0].Url)
	}
}
