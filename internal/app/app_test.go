package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficmonitor/internal/config"
	"trafficmonitor/internal/dto"
	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/model"
	"trafficmonitor/internal/service"
	"trafficmonitor/internal/service/detection"
)

func writeFrames(t *testing.T, dir string, n int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for i := 0; i < n; i++ {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%04d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 40, 30))))
		require.NoError(t, f.Close())
	}
}

func testConfig(t *testing.T, videoPath string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Port:            0,
		VideoPath:       videoPath,
		ServedVideoPath: videoPath,
		SampleStride:    10,
		Junction:        "main_junction",
		FrameWidth:      64,
		FrameHeight:     48,
		DatabasePath:    filepath.Join(dir, "data", "traffic.db"),
		LogDirectory:    filepath.Join(dir, "logs"),
		StaticDirectory: filepath.Join(dir, "static"),
		BroadcastBuffer: 16,
	}
}

var busDetector = detection.DetectorFunc(func(ctx context.Context, frame image.Image) ([]model.Detection, error) {
	return []model.Detection{{Label: "bus", Confidence: 0.8, Box: model.BBox{X1: 4, Y1: 4, X2: 30, Y2: 30}}}, nil
})

func startApp(t *testing.T, cfg *config.Config) (*App, string, context.CancelFunc, <-chan error) {
	t.Helper()
	a, err := NewApp(cfg, WithDetector(busDetector), WithLogger(logger.NewWithWriter(io.Discard)))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	return a, "http://" + a.Addr().String(), cancel, done
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestApp_ProcessesFrameDirectory(t *testing.T) {
	frames := filepath.Join(t.TempDir(), "frames")
	writeFrames(t, frames, 25)
	a, base, cancel, done := startApp(t, testConfig(t, frames))

	select {
	case err := <-a.PipelineDone():
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not finish")
	}

	var records []dto.RecordResponse
	getJSON(t, base+"/api/data", &records)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, 1, rec.Bus)
		assert.Equal(t, 1, rec.Total)
	}
	assert.Greater(t, records[0].ID, records[1].ID)

	resp, err := http.Get(base + "/video-preview")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, service.StateClosed, a.Manager().State())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_MissingVideoKeepsServing(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.mp4"))
	a, base, cancel, done := startApp(t, cfg)

	select {
	case err := <-a.PipelineDone():
		assert.ErrorIs(t, err, service.ErrSourceUnavailable)
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not report failure")
	}

	var status map[string]any
	getJSON(t, base+"/api/status", &status)
	assert.Equal(t, "failed", status["state"])

	resp, err := http.Get(base + "/video-preview")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "video.mp4")
	cfg.SampleStride = 0

	_, err := NewApp(cfg, WithDetector(busDetector), WithLogger(logger.NewWithWriter(io.Discard)))
	assert.Error(t, err)
}
