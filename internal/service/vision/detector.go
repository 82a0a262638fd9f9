package vision

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"trafficmonitor/internal/config"
	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/model"
	"trafficmonitor/internal/service/detection"
)

// Detector runs an SSD COCO network through the OpenCV DNN module.
type Detector struct {
	net        gocv.Net
	ready      bool
	threshold  float32
	modelPath  string
	configPath string
	logger     *logger.Logger
	mu         sync.Mutex
}

// NewDetector creates a detector with model/config paths and a logger.
// A network that fails to load is logged and every Detect call then errors.
func NewDetector(config *config.Config, logger *logger.Logger) *Detector {
	d := &Detector{
		threshold:  float32(config.ConfidenceThreshold),
		modelPath:  config.ModelPath,
		configPath: config.ConfigPath,
		logger:     logger,
	}

	if err := d.initializeNet(); err != nil {
		d.logger.Warning("Could not initialize detection network: %v", err)
	}

	return d
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (d *Detector) initializeNet() error {
	if _, err := os.Stat(d.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", d.modelPath)
	}

	if _, err := os.Stat(d.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", d.configPath)
	}

	net := gocv.ReadNet(d.modelPath, d.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	d.net = net
	d.ready = true
	d.logger.Info("Detection network initialized successfully")
	return nil
}

// Detect runs the network on one frame and returns the detections above the
// confidence threshold in pixel coordinates of the frame.
func (d *Detector) Detect(ctx context.Context, frame image.Image) ([]model.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ready {
		return nil, fmt.Errorf("detection network not initialized")
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("converted frame is empty")
	}

	// SSD MobileNet COCO input: 300x300, mean 127.5, scale 1/127.5
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	// Rows: [batch_id, class_id, confidence, x1, y1, x2, y2]
	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	cols, height := float32(mat.Cols()), float32(mat.Rows())
	detections := make([]model.Detection, 0)
	for i := 0; i < rows.Rows(); i++ {
		confidence := rows.GetFloatAt(i, 2)
		if confidence <= d.threshold {
			continue
		}
		classID := int(rows.GetFloatAt(i, 1))
		detections = append(detections, model.Detection{
			Label:      detection.COCOLabel(classID),
			Confidence: float64(confidence),
			Box: model.BBox{
				X1: int(rows.GetFloatAt(i, 3) * cols),
				Y1: int(rows.GetFloatAt(i, 4) * height),
				X2: int(rows.GetFloatAt(i, 5) * cols),
				Y2: int(rows.GetFloatAt(i, 6) * height),
			},
		})
	}

	return detections, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ready {
		return nil
	}
	d.ready = false
	return d.net.Close()
}
