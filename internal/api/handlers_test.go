package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/animeblog-service/internal/domain"
	"github.com/UkralStul/animeblog-service/internal/storage"
	"github.com/UkralStul/animeblog-service/internal/storage/inmemory"
	"github.com/UkralStul/animeblog-service/internal/storage/sqlstore"
)

type nopMetrics struct{}

func (nopMetrics) RecordHTTPRequest(context.Context, string, string, int, time.Duration) {}
func (nopMetrics) RecordCreated(context.Context, string)                                 {}

// brokenStore fails the calls registered on its mock. Anything else panics
// through the nil embedded interface.
type brokenStore struct {
	mock.Mock
	storage.Storage
}

func (s *brokenStore) ListAnime(ctx context.Context) ([]*domain.Anime, error) {
	args := s.Called(ctx)
	return nil, args.Error(1)
}

func (s *brokenStore) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := s.Called(ctx, u)
	return nil, args.Error(1)
}

func (s *brokenStore) FindUserByName(ctx context.Context, name *string) (*domain.User, error) {
	args := s.Called(ctx, name)
	return nil, args.Error(1)
}

func (s *brokenStore) Ping(ctx context.Context) error {
	return s.Called(ctx).Error(0)
}

func newTestServer(t *testing.T, store storage.Storage, opts RouteOptions) *httptest.Server {
	t.Helper()
	logger := zap.NewNop().Sugar()
	h := NewHandler(store, logger, nopMetrics{})
	srv := httptest.NewServer(h.Routes(NewMiddleware(logger, nopMetrics{}), opts))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestAnime_AddThenGet(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})

	resp := postJSON(t, srv, "/anime/add", `{"title":"Mushishi","description":"quiet","image":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, msgAnimeAdded, decodeBody[string](t, resp))

	resp = get(t, srv, "/anime/get")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	anime := decodeBody[[]AnimeDTO](t, resp)
	require.Len(t, anime, 1)
	assert.Equal(t, uint(1), anime[0].ID)
	assert.Equal(t, "Mushishi", *anime[0].Title)
	assert.Equal(t, "quiet", *anime[0].Description)
	assert.Equal(t, 3, *anime[0].Image)
}

func TestAnime_EmptyListIsArray(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})

	resp := get(t, srv, "/anime/get")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]\n", readBody(t, resp))
}

func TestAnime_MissingFieldIsServerError(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})

	resp := postJSON(t, srv, "/anime/add", `{"title":"no image","description":"d"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, resp.Header.Get("Content-Type"), "application/json")

	resp = get(t, srv, "/anime/get")
	assert.Empty(t, decodeBody[[]AnimeDTO](t, resp))
}

func TestUser_AddThenGetHasEmptyBlogs(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})

	resp := postJSON(t, srv, "/user/add", `{"user_name":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, msgUserAdded, decodeBody[string](t, resp))

	resp = get(t, srv, "/user/get")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.JSONEq(t, `[{"id":1,"user_name":"alice","password":"pw","blogs":[]}]`, body)
}

func TestUser_AddWithEmptyObject(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})

	resp := postJSON(t, srv, "/user/add", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, srv, "/user/get")
	assert.JSONEq(t, `[{"id":1,"user_name":null,"password":null,"blogs":[]}]`, readBody(t, resp))
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})
	postJSON(t, srv, "/user/add", `{"user_name":"alice","password":"secret"}`)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"known user, right password", `{"user_name":"alice","password":"secret"}`, msgLoggedIn},
		{"known user, wrong password", `{"user_name":"alice","password":"nope"}`, msgLoggedIn},
		{"unknown user", `{"user_name":"bob","password":"secret"}`, msgNoUser},
		{"no name", `{}`, msgNoUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv, "/user/login", tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, decodeBody[string](t, resp))
		})
	}
}

func TestLogin_RequiresJSONContentType(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})
	postJSON(t, srv, "/user/add", `{"user_name":"alice"}`)

	for _, ct := range []string{"text/plain", "application/json; charset=utf-8", ""} {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/user/login", strings.NewReader(`{"user_name":"alice"}`))
		require.NoError(t, err)
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, ct)
		assert.Equal(t, msgNotJSON, decodeBody[string](t, resp), ct)
	}
}

func TestBlogAndReview_NestUnderOwner(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})

	postJSON(t, srv, "/user/add", `{"user_name":"alice","password":"pw"}`)
	postJSON(t, srv, "/user/add", `{"user_name":"bob","password":"pw"}`)

	resp := postJSON(t, srv, "/blog/add", `{"characters":"first post","user_fk":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, msgBlogAdded, decodeBody[string](t, resp))

	resp = postJSON(t, srv, "/review/add", `{"post":"nice","review_fk":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, msgReviewAdded, decodeBody[string](t, resp))

	resp = get(t, srv, "/user/get")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[
		{"id":1,"user_name":"alice","password":"pw","blogs":[
			{"id":1,"characters":"first post","user_fk":1,"reviews":[
				{"id":1,"post":"nice","review_fk":1}
			]}
		]},
		{"id":2,"user_name":"bob","password":"pw","blogs":[]}
	]`, readBody(t, resp))
}

func TestBlog_DanglingOwnerIsAccepted(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})

	resp := postJSON(t, srv, "/blog/add", `{"characters":"orphan","user_fk":42}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv, "/review/add", `{"review_fk":1}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGet_IsIdempotent(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})
	postJSON(t, srv, "/anime/add", `{"title":"t","description":"d","image":1}`)
	postJSON(t, srv, "/user/add", `{"user_name":"alice"}`)
	postJSON(t, srv, "/blog/add", `{"characters":"c","user_fk":1}`)

	for _, path := range []string{"/anime/get", "/user/get"} {
		first := readBody(t, get(t, srv, path))
		second := readBody(t, get(t, srv, path))
		assert.Equal(t, first, second, path)
	}
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})

	for _, body := range []string{`{"title":`, `[1,2]`, ``} {
		resp := postJSON(t, srv, "/anime/add", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestDecode_NullBodyIsServerError(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})

	for _, path := range []string{"/anime/add", "/user/add", "/user/login", "/blog/add", "/review/add"} {
		resp := postJSON(t, srv, path, ` null `)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, path)
	}

	resp := get(t, srv, "/user/get")
	assert.Empty(t, decodeBody[[]UserDTO](t, resp))
}

func TestDecode_RejectsOversizedBody(t *testing.T) {
	sugar := zap.NewNop().Sugar()
	store := inmemory.New()
	router := NewHandler(store, sugar, nopMetrics{}).Routes(NewMiddleware(sugar, nopMetrics{}), RouteOptions{})

	body := `{"user_name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/user/add", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	users, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUsers_NestedOverSQLite(t *testing.T) {
	store, err := sqlstore.NewSQLite(filepath.Join(t.TempDir(), "app.sqlite"), sqlstore.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	srv := newTestServer(t, store, RouteOptions{})

	postJSON(t, srv, "/user/add", `{"user_name":"alice","password":"pw"}`)
	postJSON(t, srv, "/user/add", `{"user_name":"bob"}`)
	postJSON(t, srv, "/blog/add", `{"characters":"first","user_fk":1}`)
	postJSON(t, srv, "/blog/add", `{"characters":"second","user_fk":1}`)
	postJSON(t, srv, "/blog/add", `{"characters":"bob's","user_fk":2}`)
	postJSON(t, srv, "/review/add", `{"post":"nice","review_fk":2}`)
	postJSON(t, srv, "/review/add", `{"post":"also nice","review_fk":2}`)

	resp := get(t, srv, "/user/get")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[
		{"id":1,"user_name":"alice","password":"pw","blogs":[
			{"id":1,"characters":"first","user_fk":1,"reviews":[]},
			{"id":2,"characters":"second","user_fk":1,"reviews":[
				{"id":1,"post":"nice","review_fk":2},
				{"id":2,"post":"also nice","review_fk":2}
			]}
		]},
		{"id":2,"user_name":"bob","password":null,"blogs":[
			{"id":3,"characters":"bob's","user_fk":2,"reviews":[]}
		]}
	]`, readBody(t, resp))

	resp = postJSON(t, srv, "/user/login", `{"user_name":"bob","password":"anything"}`)
	assert.Equal(t, msgLoggedIn, decodeBody[string](t, resp))
}

func TestStorageFailuresAreBare500(t *testing.T) {
	boom := errors.New("disk on fire")
	store := &brokenStore{}
	store.On("ListAnime", mock.Anything).Return(nil, boom)
	store.On("CreateUser", mock.Anything, mock.Anything).Return(nil, boom)
	store.On("FindUserByName", mock.Anything, mock.Anything).Return(nil, boom)

	srv := newTestServer(t, store, RouteOptions{})

	resp := get(t, srv, "/anime/get")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, readBody(t, resp), "disk on fire")

	resp = postJSON(t, srv, "/user/add", `{"user_name":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp = postJSON(t, srv, "/user/login", `{"user_name":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	store.AssertExpectations(t)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{})

	resp := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "READY", readBody(t, resp))

	resp = get(t, srv, "/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyz_StoreDown(t *testing.T) {
	store := &brokenStore{}
	store.On("Ping", mock.Anything).Return(errors.New("connection refused"))
	srv := newTestServer(t, store, RouteOptions{})

	resp := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{CORSAllowedOrigins: []string{"http://front.test"}})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/anime/get", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://front.test")
	req.Header.Set("X-Request-Id", "req-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://front.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-Id"))

	resp = get(t, srv, "/anime/get")
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestMiddleware_RateLimit(t *testing.T) {
	srv := newTestServer(t, inmemory.New(), RouteOptions{RateLimitRPM: 1})

	assert.Equal(t, http.StatusOK, get(t, srv, "/anime/get").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, get(t, srv, "/anime/get").StatusCode)
}

func TestRoutes_MetricsMountedWhenProvided(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("animeblog_http_requests_total 1"))
	})
	srv := newTestServer(t, inmemory.New(), RouteOptions{MetricsHandler: metricsHandler})
	assert.Contains(t, readBody(t, get(t, srv, "/metrics")), "animeblog_http_requests_total")

	bare := newTestServer(t, inmemory.New(), RouteOptions{})
	assert.Equal(t, http.StatusNotFound, get(t, bare, "/metrics").StatusCode)
}
