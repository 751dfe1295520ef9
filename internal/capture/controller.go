package capture

import (
	"SnapSight/internal/entity"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type State string

const (
	StateIdle           State = "idle"
	StateCameraActive   State = "camera_active"
	StateStillPreview   State = "still_preview"
	StateFrameCapture   State = "frame_capture"
	StateVideoRecording State = "video_recording"
)

// codecPreference is checked in order before a recording commits; the last
// entry is the generic container fallback.
var codecPreference = []string{
	"video/webm;codecs=vp9",
	"video/webm;codecs=vp8",
	"video/webm",
}

const recorderTimeslice = 100 * time.Millisecond

type frameTimer struct {
	stop chan struct{}
	done chan struct{}
}

// Controller is the capture state machine. One controller exclusively owns
// one camera handle and one pending image; all operations are serialized
// through its mutex, matching the cooperative event loop of a capture
// client. Timer ticks and recorder chunk callbacks never take the mutex,
// so stop-before-start replacement can wait for them safely.
type Controller struct {
	mu       sync.Mutex
	log      *logrus.Logger
	acquirer MediaAcquirer
	bridge   Bridge
	status   StatusSource
	sink     PendingImageSink
	now      func() time.Time

	userID string
	facing FacingMode
	state  State
	source FrameSource
	still  *entity.CapturedArtifact

	timer     *frameTimer
	framerate float64

	recorder   Recorder
	recordMime string

	chunkMu       sync.Mutex
	chunks        [][]byte
	recordingTime float64
	elapsedStop   chan struct{}
}

func NewController(
	log *logrus.Logger,
	acquirer MediaAcquirer,
	bridge Bridge,
	status StatusSource,
	sink PendingImageSink,
	userID string,
) *Controller {
	return &Controller{
		log:       log,
		acquirer:  acquirer,
		bridge:    bridge,
		status:    status,
		sink:      sink,
		now:       time.Now,
		userID:    userID,
		facing:    FacingEnvironment,
		state:     StateIdle,
		framerate: 2,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Facing() FacingMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facing
}

// EnableCamera acquires a stream for the current facing mode. Valid from
// Idle or StillPreview; a prior preview artifact and any pending prediction
// state are discarded.
func (c *Controller) EnableCamera(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle && c.state != StateStillPreview {
		return ErrInvalidTransition
	}

	if c.still != nil {
		c.still = nil
		if c.sink != nil {
			c.sink.Clear()
		}
	}

	return c.acquireLocked(ctx)
}

// SwitchFacing toggles the physical camera. The previous tracks are always
// stopped before the new stream is acquired.
func (c *Controller) SwitchFacing(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateCameraActive {
		return ErrInvalidTransition
	}

	c.facing = c.facing.Toggle()
	return c.acquireLocked(ctx)
}

func (c *Controller) acquireLocked(ctx context.Context) error {
	if c.source != nil {
		c.source.StopTracks()
		c.source = nil
	}

	src, err := c.acquirer.Acquire(ctx, c.facing)
	if err != nil {
		c.state = StateIdle
		c.log.WithFields(logrus.Fields{
			"facing": c.facing,
			"error":  err.Error(),
		}).Error("Error accessing camera")
		return fmt.Errorf("%w: %v", ErrCameraAcquisition, err)
	}

	c.source = src
	c.state = StateCameraActive
	return nil
}

// CaptureStill snapshots the current frame, stops the live video tracks and
// hands the image artifact to the transport. A second call while already in
// StillPreview is a no-op.
func (c *Controller) CaptureStill(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStillPreview {
		return nil
	}
	if c.state != StateCameraActive {
		return ErrInvalidTransition
	}

	frame, err := c.source.Grab(ctx)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to grab still frame")
		return err
	}

	c.source.StopVideoTracks()

	artifact := entity.CapturedArtifact{
		Kind:       entity.ArtifactImage,
		Bytes:      frame.Bytes,
		MimeType:   frame.MimeType,
		CapturedAt: c.now().UnixMilli(),
		UserID:     c.userID,
	}
	c.still = &artifact
	c.state = StateStillPreview

	if c.sink != nil {
		c.sink.SetCurrentImage(artifact)
	}

	if _, err := c.bridge.Send(ctx, artifact); err != nil {
		c.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Transport failed for still capture")
	}

	return nil
}

// Retake discards the preview artifact and pending prediction state and
// re-acquires the camera.
func (c *Controller) Retake(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStillPreview {
		return ErrInvalidTransition
	}

	c.still = nil
	if c.sink != nil {
		c.sink.Clear()
	}

	return c.acquireLocked(ctx)
}

// StartFrameCapture begins periodic snapshotting at the given framerate.
// Mutually exclusive with video recording.
func (c *Controller) StartFrameCapture(ctx context.Context, framerateHz float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateVideoRecording {
		return ErrCaptureModeBusy
	}
	if c.state != StateCameraActive {
		return ErrInvalidTransition
	}
	if framerateHz <= 0 {
		return fmt.Errorf("invalid framerate %v", framerateHz)
	}

	c.framerate = framerateHz
	c.startTimerLocked()
	c.state = StateFrameCapture
	return nil
}

// SetFramerate replaces the active capture timer atomically: the old timer
// is fully stopped before the new one starts, so no tick is dropped or
// duplicated across the change.
func (c *Controller) SetFramerate(framerateHz float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if framerateHz <= 0 {
		return fmt.Errorf("invalid framerate %v", framerateHz)
	}

	c.framerate = framerateHz
	if c.state == StateFrameCapture {
		c.stopTimerLocked()
		c.startTimerLocked()
	}
	return nil
}

// StopFrameCapture cancels the periodic timer. After it returns no further
// capture callbacks fire. Stopping while not frame-capturing is a no-op.
func (c *Controller) StopFrameCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateFrameCapture {
		return nil
	}

	c.stopTimerLocked()
	c.state = StateCameraActive
	return nil
}

// StartVideoRecording negotiates a codec from the preference list and
// starts buffering chunks in memory. Refused while the broker is offline
// and while frame capture is active.
func (c *Controller) StartVideoRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateFrameCapture {
		return ErrCaptureModeBusy
	}
	if c.state != StateCameraActive {
		return ErrInvalidTransition
	}

	if c.status != nil && !c.status.Connected(ctx) {
		return ErrBrokerOffline
	}

	rec := c.source.Recorder()

	var mimeType string
	for _, candidate := range codecPreference {
		if rec.IsTypeSupported(candidate) {
			mimeType = candidate
			break
		}
	}
	if mimeType == "" {
		return ErrEncodingUnsupported
	}

	c.chunkMu.Lock()
	c.chunks = nil
	c.recordingTime = 0
	c.chunkMu.Unlock()

	onChunk := func(data []byte) {
		if len(data) == 0 {
			return
		}
		c.chunkMu.Lock()
		c.chunks = append(c.chunks, data)
		c.chunkMu.Unlock()
	}

	if err := rec.Start(mimeType, recorderTimeslice, onChunk); err != nil {
		c.log.WithFields(logrus.Fields{
			"mime_type": mimeType,
			"error":     err.Error(),
		}).Error("Error starting video recording")
		return err
	}

	c.recorder = rec
	c.recordMime = mimeType
	c.startElapsedLocked()
	c.state = StateVideoRecording
	return nil
}

// StopVideoRecording finalizes the buffered chunks into one video artifact
// and hands it to the transport. Stopping while no recorder is active is a
// no-op, not an error.
func (c *Controller) StopVideoRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recorder == nil {
		return nil
	}

	if err := c.recorder.Stop(); err != nil {
		c.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Error stopping recorder")
	}
	c.recorder = nil
	c.stopElapsedLocked()

	c.chunkMu.Lock()
	var size int
	for _, chunk := range c.chunks {
		size += len(chunk)
	}
	data := make([]byte, 0, size)
	for _, chunk := range c.chunks {
		data = append(data, chunk...)
	}
	c.chunks = nil
	c.chunkMu.Unlock()

	artifact := entity.CapturedArtifact{
		Kind:       entity.ArtifactVideo,
		Bytes:      data,
		MimeType:   "video/webm",
		CapturedAt: c.now().UnixMilli(),
		UserID:     c.userID,
	}

	if _, err := c.bridge.Send(ctx, artifact); err != nil {
		c.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Transport failed for recorded video")
	}

	c.state = StateCameraActive
	return nil
}

// RecordingTime reports elapsed recording seconds for display.
func (c *Controller) RecordingTime() float64 {
	c.chunkMu.Lock()
	defer c.chunkMu.Unlock()
	return c.recordingTime
}

// FormatRecordingTime renders seconds as "MM:SS.s".
func FormatRecordingTime(seconds float64) string {
	mins := int(seconds) / 60
	rem := seconds - float64(mins*60)
	return fmt.Sprintf("%02d:%04.1f", mins, rem)
}

// Close releases every held resource: timers, recorder and camera tracks.
// Safe on every exit path, including after errors.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()

	if c.recorder != nil {
		if err := c.recorder.Stop(); err != nil {
			c.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Warn("Error stopping recorder during close")
		}
		c.recorder = nil
	}
	c.stopElapsedLocked()

	if c.source != nil {
		c.source.StopTracks()
		c.source = nil
	}

	c.still = nil
	if c.sink != nil {
		c.sink.Clear()
	}
	c.state = StateIdle
}

func (c *Controller) startTimerLocked() {
	interval := time.Duration(math.Ceil(1000/c.framerate)) * time.Millisecond
	t := &frameTimer{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	c.timer = t
	go c.runFrameTimer(t, c.source, interval)
}

func (c *Controller) stopTimerLocked() {
	if c.timer == nil {
		return
	}
	close(c.timer.stop)
	<-c.timer.done
	c.timer = nil
}

func (c *Controller) runFrameTimer(t *frameTimer, src FrameSource, interval time.Duration) {
	defer close(t.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			c.captureFrame(src)
		}
	}
}

// captureFrame runs on the timer goroutine and deliberately avoids the
// controller mutex: the stop-before-start discipline guarantees the source
// stays valid while the timer is live.
func (c *Controller) captureFrame(src FrameSource) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	frame, err := src.Grab(ctx)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Failed to grab periodic frame")
		return
	}

	artifact := entity.CapturedArtifact{
		Kind:       entity.ArtifactImage,
		Bytes:      frame.Bytes,
		MimeType:   frame.MimeType,
		CapturedAt: c.now().UnixMilli(),
		UserID:     c.userID,
	}

	if c.sink != nil {
		c.sink.SetCurrentImage(artifact)
	}

	if _, err := c.bridge.Send(ctx, artifact); err != nil {
		c.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Transport failed for periodic frame, frame lost")
	}
}

func (c *Controller) startElapsedLocked() {
	stop := make(chan struct{})
	c.elapsedStop = stop

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.chunkMu.Lock()
				c.recordingTime += 0.1
				c.chunkMu.Unlock()
			}
		}
	}()
}

func (c *Controller) stopElapsedLocked() {
	if c.elapsedStop != nil {
		close(c.elapsedStop)
		c.elapsedStop = nil
	}
	c.chunkMu.Lock()
	c.recordingTime = 0
	c.chunkMu.Unlock()
}
