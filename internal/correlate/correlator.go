package correlate

import (
	"SnapSight/internal/entity"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Match pairs a prediction result with the most recent captured image at
// the time the result arrived.
type Match struct {
	Image  entity.CapturedArtifact
	Result entity.PredictionResult
}

// Correlator implements the match-latest policy: each incoming prediction
// is paired with whatever image is current right now. There is no queueing
// and no tagging; a result arriving while no image is pending is dropped.
type Correlator struct {
	mu      sync.Mutex
	log     *logrus.Logger
	current *entity.CapturedArtifact
	sink    func(Match)
	onError func(error)
}

func New(log *logrus.Logger, sink func(Match)) *Correlator {
	return &Correlator{
		log:  log,
		sink: sink,
	}
}

// OnError registers a callback for prediction stream failures. The callback
// replaces any previous one.
func (c *Correlator) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// SetCurrentImage replaces the pending image. Later captures win.
func (c *Correlator) SetCurrentImage(artifact entity.CapturedArtifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &artifact
}

// Clear drops the pending image so stale results cannot pair with it.
func (c *Correlator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

// Deliver pairs one result with the current image, if any. Returns true
// when a match was produced.
func (c *Correlator) Deliver(result entity.PredictionResult) bool {
	c.mu.Lock()
	current := c.current
	sink := c.sink
	c.mu.Unlock()

	if current == nil {
		c.log.WithFields(logrus.Fields{
			"detections": len(result.Detections),
		}).Debug("Prediction dropped, no pending image")
		return false
	}

	if sink != nil {
		sink(Match{Image: *current, Result: result})
	}
	return true
}

// Fail forwards a stream error to the registered callback.
func (c *Correlator) Fail(err error) {
	c.mu.Lock()
	onError := c.onError
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"error": err.Error(),
	}).Error("Prediction stream error")
	if onError != nil {
		onError(err)
	}
}

// Run consumes the prediction stream until the context is cancelled or the
// channel closes.
func (c *Correlator) Run(ctx context.Context, results <-chan entity.PredictionResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			c.Deliver(result)
		}
	}
}
