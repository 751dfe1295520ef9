package main

import (
	"SnapSight/internal/capture"
	"SnapSight/internal/correlate"
	"SnapSight/internal/overlay"
	"SnapSight/pkg/camera"
	"SnapSight/pkg/log"
	"SnapSight/pkg/predict"
	"SnapSight/pkg/relay"
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Fatalf("Error loading .env file: %v", err)
	}

	userID := os.Getenv("CAPTURE_USER_ID")
	if userID == "" {
		userID = "capture-client"
	}

	threshold := 0.6
	if v, err := strconv.ParseFloat(os.Getenv("MIN_SCORE"), 64); err == nil {
		threshold = v
	}

	framerate := 2.0
	if v, err := strconv.ParseFloat(os.Getenv("CAPTURE_FRAMERATE"), 64); err == nil && v > 0 {
		framerate = v
	}

	outputDir := os.Getenv("OVERLAY_OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "./storage/overlays"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Fatalf("Error creating overlay output dir: %v", err)
	}

	relayClient := relay.New()
	predictClient := predict.NewPredictionClient()
	renderer := overlay.NewRenderer()

	correlator := correlate.New(logger, func(m correlate.Match) {
		writeOverlay(logger, renderer, outputDir, threshold, m)
	})
	correlator.OnError(func(err error) {
		logger.Errorf("Prediction stream failed: %v", err)
	})

	controller := capture.NewController(logger, camera.New(logger), relayClient, relayClient, correlator, userID)

	ctx, cancel := context.WithCancel(context.Background())
	go correlator.Run(ctx, predictClient.Results())

	if err := controller.EnableCamera(ctx); err != nil {
		logger.Fatalf("Error enabling camera: %v", err)
	}
	if err := controller.StartFrameCapture(ctx, framerate); err != nil {
		logger.Fatalf("Error starting frame capture: %v", err)
	}

	logger.WithFields(log.Fields{
		"user_id":   userID,
		"framerate": framerate,
	}).Info("Capture client started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down capture client...")
	controller.Close()
	cancel()
	predictClient.Close()
	relayClient.Close()
}

// writeOverlay composites the mask layer over the annotated image and saves
// the result as a png next to the capture timestamp.
func writeOverlay(logger *logrus.Logger, renderer *overlay.Renderer, dir string, threshold float64, m correlate.Match) {
	src, err := jpeg.Decode(bytes.NewReader(m.Image.Bytes))
	if err != nil {
		logger.Errorf("Error decoding matched frame: %v", err)
		return
	}

	surfaces := renderer.Render(src, m.Result.Detections, threshold)

	bounds := surfaces.Image.Bounds()
	out := image.NewNRGBA(bounds)
	draw.Draw(out, bounds, surfaces.Image, bounds.Min, draw.Src)
	draw.Draw(out, bounds, surfaces.Zones, bounds.Min, draw.Over)

	path := filepath.Join(dir, fmt.Sprintf("overlay-%d.png", m.Image.CapturedAt))
	f, err := os.Create(path)
	if err != nil {
		logger.Errorf("Error creating overlay file: %v", err)
		return
	}
	defer f.Close()

	if err := png.Encode(f, out); err != nil {
		logger.Errorf("Error encoding overlay: %v", err)
	}
}
