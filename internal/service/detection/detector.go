package detection

import (
	"context"
	"fmt"
	"image"
	"time"

	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/metrics"
	"trafficmonitor/internal/model"
)

// Detector finds objects in a single frame.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]model.Detection, error)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(ctx context.Context, frame image.Image) ([]model.Detection, error)

func (f DetectorFunc) Detect(ctx context.Context, frame image.Image) ([]model.Detection, error) {
	return f(ctx, frame)
}

// Adapter shields the pipeline from detector failures. A failing call, or one
// that panics, yields an empty detection list and ok=false.
type Adapter struct {
	detector Detector
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewAdapter(detector Detector, logger *logger.Logger, m *metrics.Metrics) *Adapter {
	return &Adapter{
		detector: detector,
		logger:   logger,
		metrics:  m,
	}
}

// Detect runs the wrapped detector. The returned slice is never nil and only
// holds detections with a valid box and a confidence in [0,1].
func (a *Adapter) Detect(ctx context.Context, frame image.Image) ([]model.Detection, bool) {
	start := time.Now()
	raw, err := a.safeDetect(ctx, frame)
	if a.metrics != nil {
		a.metrics.ObserveDetection(time.Since(start))
	}

	if err != nil {
		a.logger.Error("Detection failed, treating frame as empty: %v", err)
		if a.metrics != nil {
			a.metrics.DetectionFailures.Add(1)
		}
		return []model.Detection{}, false
	}

	detections := make([]model.Detection, 0, len(raw))
	for _, d := range raw {
		if !d.Box.Valid() || d.Confidence < 0 || d.Confidence > 1 {
			a.logger.Warning("Dropping malformed detection %s (%.2f) box=%+v", d.Label, d.Confidence, d.Box)
			continue
		}
		detections = append(detections, d)
	}
	return detections, true
}

func (a *Adapter) safeDetect(ctx context.Context, frame image.Image) (dets []model.Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	if frame == nil {
		return nil, fmt.Errorf("nil frame")
	}
	return a.detector.Detect(ctx, frame)
}
