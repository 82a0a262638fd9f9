package vision

import (
	"fmt"
	"image"
	"io"
	"os"

	"gocv.io/x/gocv"

	"trafficmonitor/internal/service/capture"
)

// VideoSource decodes a video file frame by frame.
type VideoSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

var _ capture.Source = (*VideoSource)(nil)

// OpenVideo opens a video file for sequential reading. It satisfies
// capture.OpenFunc.
func OpenVideo(path string) (capture.Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video file %s: %w", path, err)
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video %s could not be opened", path)
	}

	return &VideoSource{capture: vc, mat: gocv.NewMat()}, nil
}

// Read returns the next decoded frame, or io.EOF after the last one.
func (v *VideoSource) Read() (image.Image, error) {
	if ok := v.capture.Read(&v.mat); !ok || v.mat.Empty() {
		return nil, io.EOF
	}
	img, err := v.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to convert frame: %v", capture.ErrBadFrame, err)
	}
	return img, nil
}

func (v *VideoSource) Close() error {
	v.mat.Close()
	return v.capture.Close()
}
