package recordstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Options 客户端配置
type Options struct {
	BaseURL           string
	ProjectID         string
	PublicKey         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client 托管记录存储的 SDK 客户端
type Client struct {
	baseURL    string
	projectID  string
	publicKey  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Entry
}

// New 创建客户端
func New(opts Options, logger *logrus.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("record store URL is required")
	}
	if opts.ProjectID == "" || opts.PublicKey == "" {
		return nil, fmt.Errorf("record store credentials are required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		projectID: opts.ProjectID,
		publicKey: opts.PublicKey,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.WithField("component", "recordstore"),
	}, nil
}

// FetchRecords 查询表中的记录
func (c *Client) FetchRecords(ctx context.Context, table string, params FetchParams) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/tables/"+table+"/records/query", params)
}

// GetRecordByID 按 ID 查询单条记录
func (c *Client) GetRecordByID(ctx context.Context, table string, id int, params FetchParams) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/tables/"+table+"/records/"+strconv.Itoa(id)+"/query", params)
}

// CreateRecord 创建记录
func (c *Client) CreateRecord(ctx context.Context, table string, params RecordsParams) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/tables/"+table+"/records", params)
}

// UpdateRecord 更新记录（只写入传入的字段）
func (c *Client) UpdateRecord(ctx context.Context, table string, params RecordsParams) (*Response, error) {
	return c.do(ctx, http.MethodPatch, "/tables/"+table+"/records", params)
}

// DeleteRecord 删除记录
func (c *Client) DeleteRecord(ctx context.Context, table string, params DeleteParams) (*Response, error) {
	return c.do(ctx, http.MethodDelete, "/tables/"+table+"/records", params)
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("等待请求配额失败: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("record store request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("记录存储请求完成")

	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("创建gzip读取器失败: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		c.logger.WithError(err).WithField("body", string(raw)).Error("解析响应失败")
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}

	if !out.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: out.Message}
	}

	return &out, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", "reelshelf/1.0")
	req.Header.Set("X-Project-Id", c.projectID)
	req.Header.Set("Authorization", "Bearer "+c.publicKey)
}
