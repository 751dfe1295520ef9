package camera

import (
	"SnapSight/internal/capture"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"golang.org/x/net/context"
)

const recordFPS = 15

var errSourceClosed = errors.New("camera source is closed")

// fourccByMime maps the negotiable recording types to a writer codec. The
// bare container type records with the vp8 codec.
var fourccByMime = map[string]string{
	"video/webm;codecs=vp9": "VP90",
	"video/webm;codecs=vp8": "VP80",
	"video/webm":            "VP80",
}

type acquirer struct {
	log *logrus.Logger
}

// New returns a device-backed acquirer. Facing modes map to capture device
// ids through CAMERA_DEVICE_USER and CAMERA_DEVICE_ENVIRONMENT.
func New(log *logrus.Logger) capture.MediaAcquirer {
	return &acquirer{log: log}
}

func (a *acquirer) Acquire(ctx context.Context, facing capture.FacingMode) (capture.FrameSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deviceID := deviceFor(facing)
	cam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("open capture device %d: %w", deviceID, err)
	}

	a.log.WithFields(logrus.Fields{
		"facing":    facing,
		"device_id": deviceID,
	}).Info("Camera device acquired")

	return &source{log: a.log, cam: cam}, nil
}

func deviceFor(facing capture.FacingMode) int {
	key := "CAMERA_DEVICE_ENVIRONMENT"
	if facing == capture.FacingUser {
		key = "CAMERA_DEVICE_USER"
	}
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return 0
}

type source struct {
	log    *logrus.Logger
	mu     sync.Mutex
	cam    *gocv.VideoCapture
	closed bool
}

func (s *source) readMat() (gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return gocv.Mat{}, errSourceClosed
	}

	mat := gocv.NewMat()
	if ok := s.cam.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return gocv.Mat{}, errors.New("failed to read frame from device")
	}
	return mat, nil
}

func (s *source) Grab(ctx context.Context) (capture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return capture.Frame{}, err
	}

	mat, err := s.readMat()
	if err != nil {
		return capture.Frame{}, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return capture.Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	return capture.Frame{
		Bytes:    data,
		MimeType: "image/jpeg",
		Width:    mat.Cols(),
		Height:   mat.Rows(),
	}, nil
}

// StopVideoTracks releases the device; a still preview does not need the
// live stream anymore.
func (s *source) StopVideoTracks() {
	s.StopTracks()
}

func (s *source) StopTracks() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if err := s.cam.Close(); err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Error releasing capture device")
	}
}

func (s *source) Recorder() capture.Recorder {
	return &recorder{log: s.log, src: s}
}

// recorder encodes frames into a temp webm file and flushes the whole file
// as one chunk on Stop.
type recorder struct {
	log *logrus.Logger
	src *source

	mu      sync.Mutex
	writer  *gocv.VideoWriter
	path    string
	onChunk func([]byte)
	stop    chan struct{}
	done    chan struct{}
}

func (r *recorder) IsTypeSupported(mimeType string) bool {
	_, ok := fourccByMime[mimeType]
	return ok
}

func (r *recorder) Start(mimeType string, timeslice time.Duration, onChunk func([]byte)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer != nil {
		return errors.New("recorder already started")
	}

	fourcc, ok := fourccByMime[mimeType]
	if !ok {
		return fmt.Errorf("unsupported recording type %q", mimeType)
	}

	// One probe frame sizes the writer.
	mat, err := r.src.readMat()
	if err != nil {
		return err
	}
	width, height := mat.Cols(), mat.Rows()
	mat.Close()

	tmp, err := os.CreateTemp("", "recording-*.webm")
	if err != nil {
		return err
	}
	path := tmp.Name()
	tmp.Close()

	writer, err := gocv.VideoWriterFile(path, fourcc, recordFPS, width, height, true)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("open video writer: %w", err)
	}

	r.writer = writer
	r.path = path
	r.onChunk = onChunk
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.run(timeslice)
	return nil
}

func (r *recorder) run(interval time.Duration) {
	defer close(r.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			mat, err := r.src.readMat()
			if err != nil {
				r.log.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Warn("Failed to read frame while recording")
				continue
			}
			if err := r.writer.Write(mat); err != nil {
				r.log.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Warn("Failed to write recorded frame")
			}
			mat.Close()
		}
	}
}

func (r *recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil {
		return nil
	}

	close(r.stop)
	<-r.done

	err := r.writer.Close()
	r.writer = nil

	data, readErr := os.ReadFile(r.path)
	os.Remove(r.path)
	if readErr != nil {
		return readErr
	}

	if r.onChunk != nil && len(data) > 0 {
		r.onChunk(data)
	}
	return err
}
