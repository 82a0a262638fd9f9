package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"trafficmonitor/internal/imageutil"
	"trafficmonitor/internal/model"
)

const (
	boxThickness = 2
	labelOffset  = 10
)

var boxColor = color.RGBA{G: 255, A: 255}

// Label formats a detection as "<label> (<pct>%)".
func Label(d model.Detection) string {
	return fmt.Sprintf("%s (%d%%)", d.Label, int(math.Round(d.Confidence*100)))
}

// Annotate returns a copy of frame with a box and label drawn for every
// vehicle detection. The input frame is never modified.
func Annotate(frame image.Image, detections []model.Detection) *image.RGBA {
	out := imageutil.Clone(frame)
	offset := frame.Bounds().Min

	for _, d := range detections {
		if !model.IsVehicle(d.Label) {
			continue
		}
		box := d.Box.Rect().Sub(offset)
		drawBox(out, box)
		drawLabel(out, Label(d), box.Min)
	}
	return out
}

func drawBox(img *image.RGBA, r image.Rectangle) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	src := image.NewUniform(boxColor)
	t := boxThickness
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, min(r.Min.Y+t, r.Max.Y)),
		image.Rect(r.Min.X, max(r.Max.Y-t, r.Min.Y), r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, min(r.Min.X+t, r.Max.X), r.Max.Y),
		image.Rect(max(r.Max.X-t, r.Min.X), r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e, src, image.Point{}, draw.Src)
	}
}

// drawLabel puts text with its baseline labelOffset pixels above at,
// clamped so the glyphs stay inside the image.
func drawLabel(img *image.RGBA, text string, at image.Point) {
	face := basicfont.Face7x13
	ascent := face.Metrics().Ascent.Ceil()

	x := max(at.X, 0)
	y := at.Y - labelOffset
	if y < ascent {
		y = ascent
	}
	if maxY := img.Bounds().Max.Y - face.Metrics().Descent.Ceil(); y > maxY {
		y = maxY
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(boxColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
