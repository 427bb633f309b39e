package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"petwatch/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecordingRepo struct {
	mu      sync.Mutex
	records []*domain.RecordingRecord
	calls   int
}

func (r *fakeRecordingRepo) Save(ctx context.Context, record *domain.RecordingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *fakeRecordingRepo) GetByID(ctx context.Context, id domain.RecordingID) (*domain.RecordingRecord, error) {
	return nil, domain.ErrRecordNotFound
}

func (r *fakeRecordingRepo) List(ctx context.Context, limit int) ([]*domain.RecordingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if limit > len(r.records) {
		limit = len(r.records)
	}
	return r.records[:limit], nil
}

func (r *fakeRecordingRepo) listCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newRecordingsRouter(t *testing.T, repo *fakeRecordingRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewRecordingsHandler(repo)
	t.Cleanup(handler.Close)
	handler.SetupRoutes(router)
	return router
}

func TestListRecordings(t *testing.T) {
	repo := &fakeRecordingRepo{
		records: []*domain.RecordingRecord{
			{ID: "rec-2", MediaPath: "/recordings/b.mjpeg", StartedAt: time.Now()},
			{ID: "rec-1", MediaPath: "/recordings/a.mjpeg", StartedAt: time.Now().Add(-time.Minute)},
		},
	}
	router := newRecordingsRouter(t, repo)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recordings", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Recordings []domain.RecordingRecord `json:"recordings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Recordings, 2)
	assert.Equal(t, domain.RecordingID("rec-2"), body.Recordings[0].ID)
}

func TestListRecordingsBadLimit(t *testing.T) {
	router := newRecordingsRouter(t, &fakeRecordingRepo{})

	for _, limit := range []string{"abc", "0", "-3"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/recordings?limit="+limit, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestListRecordingsCachesRepeatedCalls(t *testing.T) {
	repo := &fakeRecordingRepo{
		records: []*domain.RecordingRecord{{ID: "rec-1"}},
	}
	router := newRecordingsRouter(t, repo)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/recordings?limit=10", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 1, repo.listCalls())
}

func TestListRecordingsSeesNewRecordAfterSave(t *testing.T) {
	repo := &fakeRecordingRepo{
		records: []*domain.RecordingRecord{{ID: "rec-1"}},
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewRecordingsHandler(repo)
	t.Cleanup(handler.Close)
	handler.SetupRoutes(router)

	list := func() []domain.RecordingRecord {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/recordings?limit=10", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Recordings []domain.RecordingRecord `json:"recordings"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Recordings
	}

	require.Len(t, list(), 1)

	// A finalized recording saved through the handler's repository view
	// must show up on the next listing, not after the cache TTL.
	err := handler.Repository().Save(context.Background(), &domain.RecordingRecord{ID: "rec-2"})
	require.NoError(t, err)

	assert.Len(t, list(), 2)
	assert.Equal(t, 2, repo.listCalls())
}

func TestWSStreamDeliversBinaryFrames(t *testing.T) {
	frame := domain.Frame{Seq: 1, Data: []byte{0xff, 0xd8, 0xaa, 0xff, 0xd9}}
	viewer := newFakeViewer(frame)
	ctrl := &fakeController{viewer: viewer}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewWSHandler(ctrl, zap.NewNop().Sugar()).SetupRoutes(router)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/live/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	assert.Equal(t, frame.Data, data)

	// Broadcaster shutdown closes the viewer; the server should send a
	// going-away close frame.
	viewer.Detach()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
}

func TestWSStreamRejectedWhenNotRunning(t *testing.T) {
	ctrl := &fakeController{attachErr: domain.ErrStreamNotRunning}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewWSHandler(ctrl, zap.NewNop().Sugar()).SetupRoutes(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/live/ws", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
