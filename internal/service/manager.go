package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync/atomic"
	"time"

	"trafficmonitor/internal/config"
	"trafficmonitor/internal/dto"
	"trafficmonitor/internal/imageutil"
	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/metrics"
	"trafficmonitor/internal/model"
	"trafficmonitor/internal/repository"
	"trafficmonitor/internal/service/annotate"
	"trafficmonitor/internal/service/capture"
	"trafficmonitor/internal/service/counting"
)

// ErrSourceUnavailable is returned by Run when the video cannot be opened.
var ErrSourceUnavailable = errors.New("video source unavailable")

// maxConsecutiveBadFrames ends the stream when the source keeps failing.
const maxConsecutiveBadFrames = 30

// FrameDetector is the failure-isolated detection capability; ok is false
// when detection degraded to an empty result.
type FrameDetector interface {
	Detect(ctx context.Context, frame image.Image) (detections []model.Detection, ok bool)
}

// Publisher delivers count events to live subscribers without blocking.
type Publisher interface {
	Publish(ev dto.CountEvent) bool
}

// PreviewWriter stores the latest annotated frame.
type PreviewWriter interface {
	Set(img image.Image, frameIndex int)
}

// Dependencies are the collaborators the Manager drives.
type Dependencies struct {
	Open     capture.OpenFunc
	Detector FrameDetector
	Store    repository.CountRepository
	Hub      Publisher
	Preview  PreviewWriter
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

// Stats is a point-in-time copy of the loop counters.
type Stats struct {
	FramesRead        uint64 `json:"frames_read"`
	FramesProcessed   uint64 `json:"frames_processed"`
	FramesSkipped     uint64 `json:"frames_skipped"`
	BadFrames         uint64 `json:"bad_frames"`
	DetectionFailures uint64 `json:"detection_failures"`
	PersistFailures   uint64 `json:"persist_failures"`
	EventsPublished   uint64 `json:"events_published"`
}

// Manager runs the sampling loop: it reads the video once, processes every
// Nth frame and is the only writer of the store and the preview cache.
type Manager struct {
	deps      Dependencies
	videoPath string
	junction  string
	stride    int
	width     int
	height    int
	delay     time.Duration
	now       func() time.Time

	state   atomic.Int32
	started atomic.Bool

	framesRead        atomic.Uint64
	framesProcessed   atomic.Uint64
	framesSkipped     atomic.Uint64
	badFrames         atomic.Uint64
	detectionFailures atomic.Uint64
	persistFailures   atomic.Uint64
	eventsPublished   atomic.Uint64
}

func NewManager(config *config.Config, deps Dependencies) *Manager {
	stride := config.SampleStride
	if stride < 1 {
		stride = 1
	}
	return &Manager{
		deps:      deps,
		videoPath: config.VideoPath,
		junction:  config.Junction,
		stride:    stride,
		width:     config.FrameWidth,
		height:    config.FrameHeight,
		delay:     config.FrameDelay,
		now:       time.Now,
	}
}

// SetClock replaces the wall clock used for record timestamps.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// State returns the current loop state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

// Stats returns the loop counters.
func (m *Manager) Stats() Stats {
	return Stats{
		FramesRead:        m.framesRead.Load(),
		FramesProcessed:   m.framesProcessed.Load(),
		FramesSkipped:     m.framesSkipped.Load(),
		BadFrames:         m.badFrames.Load(),
		DetectionFailures: m.detectionFailures.Load(),
		PersistFailures:   m.persistFailures.Load(),
		EventsPublished:   m.eventsPublished.Load(),
	}
}

// Run processes the video to the end or until ctx is cancelled. Only a
// failure to open the source is returned as an error; per-frame failures are
// logged and the loop moves on.
func (m *Manager) Run(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("sampling loop already started")
	}

	m.setState(StateOpening)
	src, err := m.deps.Open(m.videoPath)
	if err != nil {
		m.setState(StateFailed)
		m.deps.Logger.Error("Cannot open video %s: %v", m.videoPath, err)
		return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, m.videoPath, err)
	}

	m.deps.Logger.Info("🎬 Sampling %s every %d frame(s) for junction %s", m.videoPath, m.stride, m.junction)
	m.setState(StateReading)

	frameIndex := 0
	consecutiveBad := 0
	for {
		if ctx.Err() != nil {
			m.deps.Logger.Info("Sampling loop cancelled after %d frames", frameIndex)
			break
		}

		frame, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil && frame == nil {
			err = fmt.Errorf("%w: source returned no image", capture.ErrBadFrame)
		}
		if err != nil && !errors.Is(err, capture.ErrBadFrame) {
			m.deps.Logger.Error("Read failed after frame %d, treating as end of stream: %v", frameIndex, err)
			break
		}

		frameIndex++
		m.framesRead.Add(1)
		m.incMetric(func(mt *metrics.Metrics) { mt.FramesRead.Add(1) })

		// A bad frame still occupies its position in the stride.
		if err != nil {
			consecutiveBad++
			m.badFrames.Add(1)
			m.incMetric(func(mt *metrics.Metrics) { mt.BadFrames.Add(1) })
			m.deps.Logger.Warning("Frame %d unreadable, skipping: %v", frameIndex, err)
			if consecutiveBad >= maxConsecutiveBadFrames {
				m.deps.Logger.Error("Giving up after %d consecutive unreadable frames", consecutiveBad)
				break
			}
			continue
		}
		consecutiveBad = 0

		if frameIndex%m.stride != 0 {
			m.setState(StateSkipping)
			m.framesSkipped.Add(1)
			m.incMetric(func(mt *metrics.Metrics) { mt.FramesSkipped.Add(1) })
			m.setState(StateReading)
			continue
		}

		m.setState(StateProcessing)
		m.processFrame(ctx, frame, frameIndex)
		m.framesProcessed.Add(1)
		m.incMetric(func(mt *metrics.Metrics) { mt.FramesProcessed.Add(1) })

		if !m.pause(ctx) {
			m.deps.Logger.Info("Sampling loop cancelled after %d frames", frameIndex)
			break
		}
		m.setState(StateReading)
	}

	m.setState(StateDraining)
	if err := src.Close(); err != nil {
		m.deps.Logger.Warning("Closing video source: %v", err)
	}

	stats := m.Stats()
	m.deps.Logger.Info("🛑 Sampling finished: read=%d processed=%d skipped=%d bad=%d detection_failures=%d persist_failures=%d published=%d",
		stats.FramesRead, stats.FramesProcessed, stats.FramesSkipped, stats.BadFrames,
		stats.DetectionFailures, stats.PersistFailures, stats.EventsPublished)
	m.setState(StateClosed)
	return nil
}

// processFrame runs one sampled frame through detection, annotation and
// counting, then updates the preview, the store and live subscribers.
func (m *Manager) processFrame(ctx context.Context, frame image.Image, frameIndex int) {
	resized := imageutil.Resize(frame, m.width, m.height)

	detections, ok := m.deps.Detector.Detect(ctx, resized)
	annotated := annotate.Annotate(resized, detections)
	counts := counting.Aggregate(detections)
	rec := model.NewCountRecord(m.junction, counts, m.now())

	m.deps.Preview.Set(annotated, frameIndex)

	if !ok {
		m.detectionFailures.Add(1)
		m.deps.Logger.Warning("Frame %d: detection degraded, no record stored", frameIndex)
		return
	}

	if _, err := m.deps.Store.Insert(&rec); err != nil {
		m.persistFailures.Add(1)
		m.incMetric(func(mt *metrics.Metrics) { mt.PersistFailures.Add(1) })
		m.deps.Logger.Error("Frame %d: dropping count record: %v", frameIndex, err)
		return
	}
	m.incMetric(func(mt *metrics.Metrics) { mt.ObserveCounts(counts) })

	if m.deps.Hub.Publish(dto.NewCountEvent(rec)) {
		m.eventsPublished.Add(1)
	}
}

// pause waits for the pacing delay; it returns false if ctx ended first.
func (m *Manager) pause(ctx context.Context) bool {
	if m.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (m *Manager) incMetric(fn func(*metrics.Metrics)) {
	if m.deps.Metrics != nil {
		fn(m.deps.Metrics)
	}
}
