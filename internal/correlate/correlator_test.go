package correlate

import (
	"SnapSight/internal/entity"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func artifactWithID(id string) entity.CapturedArtifact {
	return entity.CapturedArtifact{
		Kind:     entity.ArtifactImage,
		Bytes:    []byte(id),
		MimeType: "image/jpeg",
		UserID:   "user-1",
	}
}

func resultWithLabel(label string) entity.PredictionResult {
	return entity.PredictionResult{
		Detections: []entity.Detection{{Label: label, Score: 0.9}},
	}
}

func TestDeliverDropsWithoutPendingImage(t *testing.T) {
	var matches []Match
	c := New(newTestLogger(), func(m Match) { matches = append(matches, m) })

	if c.Deliver(resultWithLabel("person")) {
		t.Fatal("Deliver matched with no pending image")
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %d, want 0", len(matches))
	}
}

func TestDeliverMatchesLatestImage(t *testing.T) {
	var matches []Match
	c := New(newTestLogger(), func(m Match) { matches = append(matches, m) })

	c.SetCurrentImage(artifactWithID("first"))
	c.SetCurrentImage(artifactWithID("second"))

	if !c.Deliver(resultWithLabel("person")) {
		t.Fatal("Deliver did not match")
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if string(matches[0].Image.Bytes) != "second" {
		t.Fatalf("matched image = %q, want the latest", matches[0].Image.Bytes)
	}
}

func TestClearDropsStaleResults(t *testing.T) {
	var matches []Match
	c := New(newTestLogger(), func(m Match) { matches = append(matches, m) })

	c.SetCurrentImage(artifactWithID("a"))
	c.Clear()

	if c.Deliver(resultWithLabel("person")) {
		t.Fatal("Deliver matched after Clear")
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %d, want 0", len(matches))
	}
}

func TestFailForwardsToCallback(t *testing.T) {
	c := New(newTestLogger(), nil)

	var got error
	c.OnError(func(err error) { got = err })

	want := errors.New("stream closed")
	c.Fail(want)

	if !errors.Is(got, want) {
		t.Fatalf("callback error = %v, want %v", got, want)
	}
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	var mu sync.Mutex
	var matches []Match
	c := New(newTestLogger(), func(m Match) {
		mu.Lock()
		matches = append(matches, m)
		mu.Unlock()
	})
	c.SetCurrentImage(artifactWithID("frame"))

	results := make(chan entity.PredictionResult)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Run(ctx, results)
		close(done)
	}()

	results <- resultWithLabel("person")
	results <- resultWithLabel("car")
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
}

func TestRunStopsOnClosedChannel(t *testing.T) {
	c := New(newTestLogger(), nil)

	results := make(chan entity.PredictionResult)
	close(results)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), results)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on closed channel")
	}
}
