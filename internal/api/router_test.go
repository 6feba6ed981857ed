package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/insights/internal/config"
	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/service"
	"github.com/timmy/insights/internal/source"
	"github.com/timmy/insights/internal/storage"
	"github.com/timmy/insights/internal/store"
)

type fetcherFunc func(ctx context.Context) ([]domain.Dataset, error)

func (f fetcherFunc) FetchAll(ctx context.Context) ([]domain.Dataset, error) { return f(ctx) }

type testEnv struct {
	router http.Handler
	store  *store.Store
}

func newTestEnv(t *testing.T, opts ...store.Option) *testEnv {
	t.Helper()

	files, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	opts = append([]store.Option{
		store.WithFetcher(source.NewBuiltin(0)),
		store.WithUploader(storage.NewDatasetUploader(files)),
	}, opts...)
	s := store.New(opts...)
	t.Cleanup(s.Close)
	require.NoError(t, s.Load(context.Background()))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Mode: "test",
			CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		},
		Upload: config.UploadConfig{MaxBytes: 1024},
	}
	rules := service.NewRuleAssistant()
	r := SetupRouter(Deps{
		Store:    s,
		Analysis: service.NewAnalysisService(files),
		Chat:     service.NewChatService(rules),
		Rules:    rules,
	}, cfg)
	return &testEnv{router: r, store: s}
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func multipartFile(t *testing.T, name, content, tags string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	if tags != "" {
		require.NoError(t, mw.WriteField("tags", tags))
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 5, body["datasets"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestListDatasets(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		query  string
		status int
		ids    []string
	}{
		{name: "all", query: "", status: http.StatusOK, ids: []string{"1", "2", "3", "4", "5"}},
		{name: "search is case insensitive", query: "?search=RESULTS", status: http.StatusOK, ids: []string{"1", "3"}},
		{name: "status filter", query: "?status=completed", status: http.StatusOK, ids: []string{"1", "2", "4"}},
		{name: "combined", query: "?search=results&status=processing", status: http.StatusOK, ids: []string{"3"}},
		{name: "no match", query: "?search=zzz", status: http.StatusOK, ids: []string{}},
		{name: "bad status", query: "?status=archived", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/datasets"+tt.query, nil, "")
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			body := decode[struct {
				Datasets []domain.Dataset `json:"datasets"`
				Total    int              `json:"total"`
			}](t, w)
			ids := make([]string, 0, len(body.Datasets))
			for _, ds := range body.Datasets {
				ids = append(ids, ds.ID)
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, 5, body.Total)
		})
	}
}

func TestGetDataset_NotFound(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/datasets/missing", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	body := decode[map[string]string](t, w)
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "Dataset not found", body["message"])
}

func TestUploadCSV(t *testing.T) {
	env := newTestEnv(t, store.WithIDGenerator(func() string { return "new" }))

	body, ct := multipartFile(t, "q1 sales.csv", "region,sales\nwest,10\neast,\n", "sales, q1")
	w := env.do(t, http.MethodPost, "/api/v1/datasets", body, ct)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "new", decode[map[string]string](t, w)["id"])

	snap := env.store.Snapshot()
	require.Len(t, snap, 6)
	ds := snap[0]
	assert.Equal(t, "new", ds.ID)
	assert.Equal(t, "q1 sales", ds.Name)
	assert.Equal(t, domain.StatusPending, ds.Status)
	assert.Equal(t, 2, ds.RowCount)
	assert.Equal(t, 2, ds.ColumnCount)
	assert.Equal(t, domain.StringArray{"sales", "q1"}, ds.Tags)
	assert.True(t, strings.HasSuffix(ds.StorageKey, "/q1_sales.csv"), ds.StorageKey)

	w = env.do(t, http.MethodGet, "/api/v1/analysis/insights/new", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	in := decode[service.Insights](t, w)
	assert.True(t, in.Profiled)
	assert.Equal(t, 1, in.Summary.MissingValues)
	assert.Equal(t, []string{"sales"}, in.NumericColumns)
}

func TestUpload_Rejected(t *testing.T) {
	env := newTestEnv(t)

	noFile, ct := multipartFile(t, "", "", "x")
	w := env.do(t, http.MethodPost, "/api/v1/datasets", noFile, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	empty, ct := multipartFile(t, "empty.csv", "", "")
	w = env.do(t, http.MethodPost, "/api/v1/datasets", empty, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[map[string]string](t, w)["code"])

	big, ct := multipartFile(t, "big.csv", strings.Repeat("a", 2048), "")
	w = env.do(t, http.MethodPost, "/api/v1/datasets", big, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	assert.Len(t, env.store.Snapshot(), 5)
}

func TestDeleteDataset(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodDelete, "/api/v1/datasets/2", nil, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/datasets/2", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, env.store.Snapshot(), 4)
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/datasets/1/analyze", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[struct {
		Dataset  domain.Dataset   `json:"dataset"`
		Insights service.Insights `json:"insights"`
	}](t, w)
	assert.NotNil(t, body.Dataset.LastAnalyzed)
	assert.Equal(t, "Sales by Region", body.Insights.Charts[0].Title)

	w = env.do(t, http.MethodPost, "/api/v1/datasets/nope/analyze", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/datasets/analyze", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, decode[map[string]any](t, w)["analyzed"])
	for _, ds := range env.store.Snapshot() {
		assert.NotNil(t, ds.LastAnalyzed, ds.ID)
	}
}

func TestSummaryAndCorrelations(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/datasets/summary", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	sum := decode[map[string]any](t, w)
	assert.EqualValues(t, 5, sum["total"])

	w = env.do(t, http.MethodGet, "/api/v1/datasets/correlations", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	corr := decode[struct {
		Correlations []service.Correlation `json:"correlations"`
	}](t, w)
	require.Len(t, corr.Correlations, 1)
	assert.Equal(t, []string{"performance"}, corr.Correlations[0].SharedTags)
}

func TestLoad(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/datasets/load", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]int](t, w)
	assert.Equal(t, 5, body["count"])
	assert.Equal(t, int(env.store.Version()), body["version"])
}

func TestLoad_FetchFailure(t *testing.T) {
	fail := false
	env := newTestEnv(t, store.WithFetcher(fetcherFunc(func(ctx context.Context) ([]domain.Dataset, error) {
		if fail {
			return nil, errors.New("upstream timeout")
		}
		return source.NewBuiltin(0).FetchAll(ctx)
	})))
	fail = true

	w := env.do(t, http.MethodPost, "/api/v1/datasets/load", nil, "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "FETCH_FAILED", body["code"])
	assert.Equal(t, "Failed to load datasets. Please try again later.", body["message"])
	assert.Len(t, env.store.Snapshot(), 5)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/chat/messages", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[struct {
		Messages []domain.Message `json:"messages"`
	}](t, w).Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, service.Greeting, msgs[0].Content)

	w = env.do(t, http.MethodPost, "/api/v1/chat", []byte(`{"message":"show revenue by region"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string]any](t, w)["response"], "I understand you want to data_exploration")

	w = env.do(t, http.MethodPost, "/api/v1/chat", []byte(`{"message":"  "}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoice(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/voice/process", []byte(`{"command":"display revenue"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Voice command understood. Intent: data_exploration. I'll process your request about revenue.", body["response"])
	assert.Equal(t, "data_exploration", body["intent"])

	w = env.do(t, http.MethodPost, "/api/v1/voice/process", []byte(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/datasets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEvents(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/datasets/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	lines.Buffer(make([]byte, 0, 64*1024), 1<<20)
	next := func() map[string]any {
		for lines.Scan() {
			line := lines.Text()
			if data, ok := strings.CutPrefix(line, "data:"); ok {
				var ev map[string]any
				require.NoError(t, json.Unmarshal([]byte(data), &ev))
				return ev
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return nil
	}

	first := next()
	assert.Equal(t, "snapshot", first["op"])
	assert.Len(t, first["datasets"], 5)

	require.Eventually(t, func() bool { return env.store.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, env.store.Delete("3"))

	ev := next()
	assert.Equal(t, store.OpDelete, ev["op"])
	assert.Equal(t, "3", ev["id"])
	assert.Len(t, ev["datasets"], 4)

	cancel()
	require.Eventually(t, func() bool { return env.store.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
