package capture

import (
	"SnapSight/internal/entity"
	"time"

	"golang.org/x/net/context"
)

type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// Toggle returns the other physical camera.
func (f FacingMode) Toggle() FacingMode {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Frame is one encoded still grabbed from a live stream.
type Frame struct {
	Bytes    []byte
	MimeType string
	Width    int
	Height   int
}

// FrameSource is a live camera stream. Exactly one controller owns a source
// at a time; StopTracks must be safe to call more than once.
type FrameSource interface {
	Grab(ctx context.Context) (Frame, error)
	StopVideoTracks()
	StopTracks()
	Recorder() Recorder
}

// MediaAcquirer owns the camera device handles and yields live sources.
type MediaAcquirer interface {
	Acquire(ctx context.Context, facing FacingMode) (FrameSource, error)
}

// Recorder buffers continuous media from a live stream. Support for a mime
// type must be checked before Start commits to it.
type Recorder interface {
	IsTypeSupported(mimeType string) bool
	Start(mimeType string, timeslice time.Duration, onChunk func([]byte)) error
	Stop() error
}

// Bridge is the transport the controller hands finished artifacts to.
type Bridge interface {
	Send(ctx context.Context, artifact entity.CapturedArtifact) (entity.PublishAck, error)
}

// StatusSource is the broker connectivity signal. Video recording is
// refused while the broker reports disconnected.
type StatusSource interface {
	Connected(ctx context.Context) bool
}

// PendingImageSink receives the image currently on screen so asynchronous
// prediction results can be paired with it.
type PendingImageSink interface {
	SetCurrentImage(artifact entity.CapturedArtifact)
	Clear()
}
