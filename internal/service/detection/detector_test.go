package detection

import (
	"context"
	"errors"
	"image"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/metrics"
	"trafficmonitor/internal/model"
)

func frame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 64, 48))
}

func newAdapter(d Detector) (*Adapter, *metrics.Metrics) {
	m := metrics.New()
	return NewAdapter(d, logger.NewWithWriter(io.Discard), m), m
}

func TestAdapter_PassesValidDetections(t *testing.T) {
	want := []model.Detection{
		{Label: "car", Confidence: 0.9, Box: model.BBox{X1: 1, Y1: 2, X2: 10, Y2: 20}},
		{Label: "person", Confidence: 0.7, Box: model.BBox{X1: 5, Y1: 5, X2: 6, Y2: 6}},
	}
	a, m := newAdapter(DetectorFunc(func(ctx context.Context, f image.Image) ([]model.Detection, error) {
		return want, nil
	}))

	got, ok := a.Detect(context.Background(), frame())

	assert.True(t, ok)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("detections mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, m.DetectionFailures.Load())
}

func TestAdapter_DropsMalformedDetections(t *testing.T) {
	a, _ := newAdapter(DetectorFunc(func(ctx context.Context, f image.Image) ([]model.Detection, error) {
		return []model.Detection{
			{Label: "car", Confidence: 0.8, Box: model.BBox{X1: 10, Y1: 10, X2: 5, Y2: 20}},
			{Label: "bus", Confidence: 1.2, Box: model.BBox{X1: 0, Y1: 0, X2: 5, Y2: 5}},
			{Label: "truck", Confidence: -0.1, Box: model.BBox{X1: 0, Y1: 0, X2: 5, Y2: 5}},
			{Label: "motorcycle", Confidence: 0.5, Box: model.BBox{X1: 0, Y1: 0, X2: 5, Y2: 5}},
		}, nil
	}))

	got, ok := a.Detect(context.Background(), frame())

	assert.True(t, ok)
	assert.Len(t, got, 1)
	assert.Equal(t, "motorcycle", got[0].Label)
}

func TestAdapter_DegradesOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		detector Detector
		frame    image.Image
	}{
		{
			name: "error",
			detector: DetectorFunc(func(ctx context.Context, f image.Image) ([]model.Detection, error) {
				return []model.Detection{{Label: "car", Confidence: 0.9, Box: model.BBox{X2: 1, Y2: 1}}}, errors.New("inference backend gone")
			}),
			frame: frame(),
		},
		{
			name: "panic",
			detector: DetectorFunc(func(ctx context.Context, f image.Image) ([]model.Detection, error) {
				panic("tensor shape mismatch")
			}),
			frame: frame(),
		},
		{
			name: "nil frame",
			detector: DetectorFunc(func(ctx context.Context, f image.Image) ([]model.Detection, error) {
				return nil, nil
			}),
			frame: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, m := newAdapter(tt.detector)

			got, ok := a.Detect(context.Background(), tt.frame)

			assert.False(t, ok)
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Equal(t, uint64(1), m.DetectionFailures.Load())
		})
	}
}

func TestAdapter_NilResultIsEmpty(t *testing.T) {
	a, _ := newAdapter(DetectorFunc(func(ctx context.Context, f image.Image) ([]model.Detection, error) {
		return nil, nil
	}))

	got, ok := a.Detect(context.Background(), frame())

	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCOCOLabel(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{3, "car"},
		{4, "motorcycle"},
		{6, "bus"},
		{8, "truck"},
		{1, "person"},
		{77, "class77"},
	}
	for _, tt := range tests {
		if got := COCOLabel(tt.id); got != tt.want {
			t.Errorf("COCOLabel(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
