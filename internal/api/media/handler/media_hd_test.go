package mediaHandler

import (
	"SnapSight/internal/api/media"
	"SnapSight/internal/entity"
	"SnapSight/internal/middleware"
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type stubMediaService struct {
	uploadKey  string
	uploadErr  error
	listResp   media.MediaListResponse
	listErr    error
	forwardErr error
}

func (s *stubMediaService) Send(ctx context.Context, artifact entity.CapturedArtifact) (entity.PublishAck, error) {
	return entity.PublishAck{}, nil
}

func (s *stubMediaService) Forward(ctx context.Context, msg media.SocketMessage) (entity.PublishAck, error) {
	if s.forwardErr != nil {
		return entity.PublishAck{}, s.forwardErr
	}
	return entity.PublishAck{Topic: "images", Key: msg.UserID}, nil
}

func (s *stubMediaService) UploadVideo(ctx context.Context, req media.UploadVideoRequest) (string, error) {
	return s.uploadKey, s.uploadErr
}

func (s *stubMediaService) ListMedia(ctx context.Context, page, limit int) (media.MediaListResponse, error) {
	return s.listResp, s.listErr
}

type stubBroker struct {
	connected bool
}

func (b *stubBroker) Publish(ctx context.Context, topic, key string, value []byte) error {
	return nil
}

func (b *stubBroker) Connected(ctx context.Context) bool {
	return b.connected
}

// newTestApp mirrors the production fiber config without pulling in the
// server package, which itself registers this handler.
func newTestApp(svc *stubMediaService, brokerClient *stubBroker) *fiber.App {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New(fiber.Config{
		StrictRouting: true,
		CaseSensitive: true,
		JSONEncoder:   jsoniter.Marshal,
		JSONDecoder:   jsoniter.Unmarshal,
	})
	handler := New(logger, validator.New(), middleware.New(logger), svc, brokerClient)
	handler.Start(app.Group("/api"))
	return app
}

func decodeBody(t *testing.T, body io.Reader, dest interface{}) {
	t.Helper()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := jsoniter.Unmarshal(data, dest); err != nil {
		t.Fatalf("unmarshal body %q: %v", data, err)
	}
}

func TestUploadVideoMissingField(t *testing.T) {
	app := newTestApp(&stubMediaService{}, &stubBroker{connected: true})

	req := httptest.NewRequest(fiber.MethodPost, "/api/videos/", bytes.NewBufferString(`{}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	var body media.UploadVideoResponse
	decodeBody(t, resp.Body, &body)
	if body.Status != "error" || body.StatusCode != 422 || body.Message != "Missing Fields: video" {
		t.Fatalf("body = %+v, want the missing-field error shape", body)
	}
}

func TestUploadVideoUnparsableBody(t *testing.T) {
	app := newTestApp(&stubMediaService{}, &stubBroker{connected: true})

	req := httptest.NewRequest(fiber.MethodPost, "/api/videos/", bytes.NewBufferString(`{broken`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestUploadVideoSuccess(t *testing.T) {
	svc := &stubMediaService{uploadKey: "videos/20240101-120000000-ab1cd.webm"}
	app := newTestApp(svc, &stubBroker{connected: true})

	req := httptest.NewRequest(fiber.MethodPost, "/api/videos/", bytes.NewBufferString(`{"video":"AAAA"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body media.UploadVideoResponse
	decodeBody(t, resp.Body, &body)
	if body.Status != "success" || body.FileID != svc.uploadKey {
		t.Fatalf("body = %+v, want success with file id", body)
	}
}

func TestUploadVideoStorageFailureStillSucceeds(t *testing.T) {
	// The service reports storage failure as an empty key, not an error.
	app := newTestApp(&stubMediaService{uploadKey: ""}, &stubBroker{connected: true})

	req := httptest.NewRequest(fiber.MethodPost, "/api/videos/", bytes.NewBufferString(`{"video":"AAAA"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body media.UploadVideoResponse
	decodeBody(t, resp.Body, &body)
	if body.FileID != "" {
		t.Fatalf("fileId = %q, want empty", body.FileID)
	}
}

func TestUploadVideoInternalError(t *testing.T) {
	app := newTestApp(&stubMediaService{uploadErr: errors.New("boom")}, &stubBroker{connected: true})

	req := httptest.NewRequest(fiber.MethodPost, "/api/videos/", bytes.NewBufferString(`{"video":"AAAA"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestGetVideoNotImplemented(t *testing.T) {
	app := newTestApp(&stubMediaService{}, &stubBroker{connected: true})

	req := httptest.NewRequest(fiber.MethodGet, "/api/videos/some-id", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	var body media.UploadVideoResponse
	decodeBody(t, resp.Body, &body)
	if body.Message != "Video retrieval not yet implemented" {
		t.Fatalf("message = %q", body.Message)
	}
}

func TestListMedia(t *testing.T) {
	svc := &stubMediaService{
		listResp: media.MediaListResponse{
			Items:       []media.MediaItem{{StoredMediaRef: entity.StoredMediaRef{ID: "images/a.jpg"}}},
			Length:      1,
			TotalPages:  1,
			CurrentPage: 1,
			Limit:       10,
		},
	}
	app := newTestApp(svc, &stubBroker{connected: true})

	req := httptest.NewRequest(fiber.MethodGet, "/api/media?page=1&limit=10", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body media.MediaListResponse
	decodeBody(t, resp.Body, &body)
	if body.Length != 1 || len(body.Items) != 1 {
		t.Fatalf("body = %+v, want one item", body)
	}
}

func TestBrokerStatus(t *testing.T) {
	cases := []struct {
		connected bool
		want      string
	}{
		{true, "connected"},
		{false, "disconnected"},
	}

	for _, tc := range cases {
		app := newTestApp(&stubMediaService{}, &stubBroker{connected: tc.connected})

		req := httptest.NewRequest(fiber.MethodGet, "/api/status", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		var body map[string]string
		decodeBody(t, resp.Body, &body)
		if body["broker"] != tc.want {
			t.Fatalf("broker = %q, want %q", body["broker"], tc.want)
		}
	}
}
