package handler_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelshelf/internal/config"
	"github.com/user/reelshelf/internal/handler"
	"github.com/user/reelshelf/internal/model"
	"github.com/user/reelshelf/internal/router"
	"github.com/user/reelshelf/internal/service"
	"github.com/user/reelshelf/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

const adminPassword = "letmein"

type testApp struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, nil)
}

// newTestAppWith 允许在创建处理器前替换数据源
func newTestAppWith(t *testing.T, override func(*service.Sources)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:               "test",
		SiteName:          "ReelShelf",
		SiteUrl:           "http://localhost:5005",
		AppSecret:         "test-secret",
		AdminPasswordHash: string(hash),
		TokenExpiry:       time.Hour,
		DataSource:        config.SourceMock,
		CacheTTL:          time.Minute,
		SearchCacheSize:   50,
	}
	logger := utils.NewLoggerTo(io.Discard, "error")

	sources, err := service.NewSources(cfg, service.Deps{Logger: logger})
	require.NoError(t, err)
	if override != nil {
		override(sources)
	}
	h := handler.NewHandler(cfg, sources, logger)
	srv := httptest.NewServer(router.New(cfg, h, logger, prometheus.NewRegistry()))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testApp{t: t, srv: srv, client: &http.Client{Jar: jar}}
}

// brokenGenreSource 按分类查询总是失败，用来触发相关推荐的错误分支
type brokenGenreSource struct {
	service.MovieSource
}

func (brokenGenreSource) GetByGenre(context.Context, string) ([]model.Movie, error) {
	return nil, errors.New("genre index unavailable")
}

func withBrokenGenres(s *service.Sources) {
	s.Movies = brokenGenreSource{s.Movies}
}

// envelope 统一响应结构，data 延迟解析
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
}

func (a *testApp) do(method, path string, body interface{}, header http.Header) (*http.Response, []byte) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, data
}

// api 发起请求并解析响应，data 写入 out
func (a *testApp) api(method, path string, body interface{}, out interface{}) (int, envelope) {
	a.t.Helper()
	resp, raw := a.do(method, path, body, nil)
	var env envelope
	require.NoError(a.t, json.Unmarshal(raw, &env), string(raw))
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode, env
}

func (a *testApp) page(path string) (int, *goquery.Document) {
	a.t.Helper()
	resp, raw := a.do(http.MethodGet, path, nil, nil)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	require.NoError(a.t, err)
	return resp.StatusCode, doc
}

func (a *testApp) submit(path string, form url.Values) (int, *goquery.Document) {
	a.t.Helper()
	resp, err := a.client.PostForm(a.srv.URL+path, form)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, doc
}

type movieJSON struct {
	ID     int      `json:"id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
}

func ids(movies []movieJSON) []int {
	out := make([]int, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	return out
}

func flashes(doc *goquery.Document) []string {
	var out []string
	doc.Find(".flash").Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","source":"mock"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, body = app.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "reelshelf_http_requests_total")
}

func TestMetricsCompressedOnce(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/health", nil, nil)

	// 手动声明 gzip 后客户端不再自动解压，只应解压一层
	resp, body := app.do(http.MethodGet, "/metrics", nil, http.Header{"Accept-Encoding": {"gzip"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(bytes.NewReader(body))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(plain), "reelshelf_http_requests_total")

	// 页面仍然压缩
	resp, _ = app.do(http.MethodGet, "/", nil, http.Header{"Accept-Encoding": {"gzip"}})
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}
