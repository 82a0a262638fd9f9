package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficmonitor/internal/dto"
	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/model"
	"trafficmonitor/internal/repository"
	"trafficmonitor/internal/service"
	"trafficmonitor/internal/service/preview"
	hub "trafficmonitor/internal/service/websocket"
)

var discard = logger.NewWithWriter(io.Discard)

type stubRepo struct {
	records   []model.CountRecord
	err       error
	lastLimit int
}

func (s *stubRepo) Insert(rec *model.CountRecord) (int64, error) {
	return 0, errors.New("read-only")
}

func (s *stubRepo) GetRecent(limit int) ([]model.CountRecord, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.records) {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func (s *stubRepo) Count() (int, error) {
	return len(s.records), s.err
}

func TestGetRecordsHandler(t *testing.T) {
	ts := time.Date(2026, 5, 1, 8, 30, 0, 0, time.Local)
	newer := model.NewCountRecord("main_junction", model.Counts{Car: 2, Bus: 1}, ts.Add(time.Second))
	newer.ID = 2
	older := model.NewCountRecord("main_junction", model.Counts{Truck: 1}, ts)
	older.ID = 1
	repo := &stubRepo{records: []model.CountRecord{newer, older}}

	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	rec := httptest.NewRecorder()
	GetRecordsHandler(repo, discard)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, DefaultRecordLimit, repo.lastLimit)

	var got []dto.RecordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, dto.RecordResponse{
		ID: 2, Junction: "main_junction", Total: 3, Car: 2, Bus: 1,
		Timestamp: "2026-05-01 08:30:01",
	}, got[0])
	assert.Equal(t, int64(1), got[1].ID)
}

func TestGetRecordsHandler_Limit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"?limit=2", 2},
		{"?limit=0", DefaultRecordLimit},
		{"?limit=-4", DefaultRecordLimit},
		{"?limit=abc", DefaultRecordLimit},
		{"?limit=5000", MaxRecordLimit},
	}
	for _, tt := range tests {
		repo := &stubRepo{}
		rec := httptest.NewRecorder()
		GetRecordsHandler(repo, discard)(rec, httptest.NewRequest(http.MethodGet, "/api/data"+tt.query, nil))
		assert.Equal(t, tt.want, repo.lastLimit, tt.query)
	}
}

func TestGetRecordsHandler_StoreErrorReturnsEmptyList(t *testing.T) {
	repo := &stubRepo{err: &repository.StoreError{Op: "query", Err: repository.ErrStoreClosed}}

	rec := httptest.NewRecorder()
	GetRecordsHandler(repo, discard)(rec, httptest.NewRequest(http.MethodGet, "/api/data", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetRecordsHandler_EmptyStore(t *testing.T) {
	rec := httptest.NewRecorder()
	GetRecordsHandler(&stubRepo{}, discard)(rec, httptest.NewRequest(http.MethodGet, "/api/data", nil))

	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestVideoPreviewHandler(t *testing.T) {
	cache := preview.NewCache()
	handler := VideoPreviewHandler(cache, discard)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/video-preview", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Video not ready", rec.Body.String())

	cache.Set(image.NewRGBA(image.Rect(0, 0, 64, 48)), 10)
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/video-preview", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "10", rec.Header().Get("X-Frame-Index"))
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestVideoPreviewHandler_EncodeFailure(t *testing.T) {
	cache := preview.NewCache()
	cache.Set(nil, 3)

	rec := httptest.NewRecorder()
	VideoPreviewHandler(cache, discard)(rec, httptest.NewRequest(http.MethodGet, "/video-preview", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestVideoStreamHandler(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "traffic.mp4")
	content := []byte("0123456789abcdef")
	require.NoError(t, os.WriteFile(video, content, 0644))

	rec := httptest.NewRecorder()
	VideoStreamHandler(video)(rec, httptest.NewRequest(http.MethodGet, "/video-stream", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())

	req := httptest.NewRequest(http.MethodGet, "/video-stream", nil)
	req.Header.Set("Range", "bytes=4-7")
	rec = httptest.NewRecorder()
	VideoStreamHandler(video)(rec, req)
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "4567", rec.Body.String())

	rec = httptest.NewRecorder()
	VideoStreamHandler(filepath.Join(dir, "missing.mp4"))(rec, httptest.NewRequest(http.MethodGet, "/video-stream", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubPipeline struct{}

func (stubPipeline) State() service.State { return service.StateProcessing }
func (stubPipeline) Stats() service.Stats {
	return service.Stats{FramesRead: 30, FramesProcessed: 3, FramesSkipped: 27}
}

func startHub(t *testing.T) *hub.HubService {
	t.Helper()
	h := hub.NewHubService(8, discard, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h
}

func TestStatusHandler(t *testing.T) {
	cache := preview.NewCache()
	cache.Set(image.NewRGBA(image.Rect(0, 0, 4, 4)), 30)

	rec := httptest.NewRecorder()
	StatusHandler("main_junction", stubPipeline{}, startHub(t), cache, discard)(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "processing", got["state"])
	assert.Equal(t, "main_junction", got["junction"])
	assert.Equal(t, true, got["preview_ready"])
	assert.Equal(t, float64(3), got["stats"].(map[string]any)["frames_processed"])
}

func TestWriteJSON_EncodeFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf)

	rec := httptest.NewRecorder()
	writeJSON(rec, log, http.StatusOK, map[string]any{"stream": make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "ERROR")
	assert.Contains(t, buf.String(), "Failed to encode json response")
}

func TestLiveWebsocketHandler_StreamsEvents(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(LiveWebsocketHandler(h, discard))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	for i := int64(1); i <= 3; i++ {
		require.True(t, h.Publish(dto.CountEvent{ID: i, Junction: "main_junction", Count: int(i), Car: int(i), Time: "08:00:00"}))
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := int64(1); i <= 3; i++ {
		var ev dto.CountEvent
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, i, ev.ID)
		assert.Equal(t, int(i), ev.Count)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestLogsHandlers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, logger.ErrorFile), []byte("insert failed\n"), 0644))

	router := mux.NewRouter()
	router.HandleFunc("/logs/{level}", ShowLogsHandler(dir)).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/error", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "insert failed\n", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/debug", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
