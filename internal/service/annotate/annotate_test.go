package annotate

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"trafficmonitor/internal/model"
)

var green = color.RGBA{G: 255, A: 255}

func blank(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestLabel(t *testing.T) {
	tests := []struct {
		label string
		conf  float64
		want  string
	}{
		{"car", 0.876, "car (88%)"},
		{"bus", 0.5, "bus (50%)"},
		{"truck", 0.994, "truck (99%)"},
		{"motorcycle", 0.996, "motorcycle (100%)"},
		{"car", 0, "car (0%)"},
	}
	for _, tt := range tests {
		got := Label(model.Detection{Label: tt.label, Confidence: tt.conf})
		if got != tt.want {
			t.Errorf("Label(%s, %v) = %q, want %q", tt.label, tt.conf, got, tt.want)
		}
	}
}

func TestAnnotate_DrawsVehicleBoxOnCopy(t *testing.T) {
	src := blank(200, 150)
	dets := []model.Detection{
		{Label: "car", Confidence: 0.9, Box: model.BBox{X1: 50, Y1: 60, X2: 120, Y2: 110}},
	}

	out := Annotate(src, dets)

	assert.Equal(t, green, out.RGBAAt(50, 60), "top-left corner")
	assert.Equal(t, green, out.RGBAAt(85, 61), "top edge")
	assert.Equal(t, green, out.RGBAAt(119, 109), "bottom-right corner")
	assert.Equal(t, color.RGBA{}, out.RGBAAt(85, 85), "box interior stays untouched")

	for i, v := range src.Pix {
		if v != 0 {
			t.Fatalf("source frame modified at byte %d", i)
		}
	}
}

func TestAnnotate_IgnoresNonVehicles(t *testing.T) {
	src := blank(100, 100)
	dets := []model.Detection{
		{Label: "person", Confidence: 0.99, Box: model.BBox{X1: 10, Y1: 30, X2: 60, Y2: 90}},
	}

	out := Annotate(src, dets)

	assert.Equal(t, src.Pix, out.Pix)
}

func TestAnnotate_LabelNearTopEdgeStaysInFrame(t *testing.T) {
	src := blank(120, 60)
	dets := []model.Detection{
		{Label: "bus", Confidence: 0.7, Box: model.BBox{X1: 0, Y1: 0, X2: 110, Y2: 58}},
	}

	out := Annotate(src, dets)

	found := false
	for y := 3; y < 13 && !found; y++ {
		for x := 3; x < 60; x++ {
			if out.RGBAAt(x, y) == green {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "label text should be drawn inside the frame")
}

func TestAnnotate_EmptyDetections(t *testing.T) {
	src := blank(10, 10)
	out := Annotate(src, nil)
	assert.Equal(t, src.Pix, out.Pix)
	assert.NotSame(t, src, out)
}
