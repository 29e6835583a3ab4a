package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/inkboard/internal/views"
	"github.com/sirupsen/logrus"
)

const (
	maxViewsResponseBytes = 32 << 20
	maxViewPages          = 1000
)

var (
	// ErrViewsAPINotConfigured 表示未配置远端接口地址。
	ErrViewsAPINotConfigured = errors.New("views api base url is not configured")
	// ErrUpstreamUnavailable 表示请求未能得到响应，如连接被拒绝、DNS 失败或超时。
	ErrUpstreamUnavailable = errors.New("views api unreachable")
	// ErrPagination 表示分页信息前后矛盾，此时不能把已拉取的部分当作完整列表。
	ErrPagination = errors.New("inconsistent views pagination")
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError 描述远端接口返回的错误状态。
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("views api returned %d: %s", e.StatusCode, e.Message)
}

// ViewQuery 是远端接口及本地快照都支持的服务端过滤条件。
type ViewQuery struct {
	Type       views.ViewableType
	ViewableID string
	UserID     string
}

// ViewClient 从平台 REST 接口拉取浏览记录，并在边界处完成解码与校验。
type ViewClient struct {
	http    httpDoer
	baseURL string
	token   string
	decoder *viewDecoder
}

// NewViewClient 构造 ViewClient，timeout<=0 时使用 15 秒。
func NewViewClient(baseURL, token string, timeout time.Duration, log logrus.FieldLogger) *ViewClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ViewClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		decoder: newViewDecoder(log),
	}
}

// SetLocation 设置不带时区的 created_at 所使用的时区，nil 表示 UTC。
func (c *ViewClient) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	c.decoder.loc = loc
}

// SetHTTPClient 替换底层 HTTP 客户端，传入 nil 时恢复默认客户端。
func (c *ViewClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
		return
	}
	c.http = client
}

// ListViews 请求 GET {base}/views，按 type/post/user 过滤。
// 响应带分页信息时依次拉取后续页，全部成功后才返回合并结果。
func (c *ViewClient) ListViews(ctx context.Context, q ViewQuery) (ViewBatch, error) {
	if c.baseURL == "" {
		return ViewBatch{}, ErrViewsAPINotConfigured
	}

	params := url.Values{}
	if q.Type != "" {
		params.Set("type", string(q.Type))
	}
	if q.ViewableID != "" {
		params.Set("post", q.ViewableID)
	}
	if q.UserID != "" {
		params.Set("user", q.UserID)
	}

	endpoint, err := url.Parse(c.baseURL + "/views")
	if err != nil {
		return ViewBatch{}, fmt.Errorf("parse views endpoint: %w", err)
	}
	endpoint.RawQuery = params.Encode()

	batch := ViewBatch{Events: []views.ViewEvent{}}
	seen := make(map[string]struct{})
	visited := make(map[string]struct{})
	current := endpoint
	for fetched := 1; ; fetched++ {
		if _, dup := visited[current.String()]; dup {
			return ViewBatch{}, fmt.Errorf("%w: page %s requested twice", ErrPagination, current)
		}
		visited[current.String()] = struct{}{}

		body, err := c.fetch(ctx, current.String())
		if err != nil {
			return ViewBatch{}, err
		}
		part, page, err := c.decoder.decodePage(body, seen)
		if err != nil {
			return ViewBatch{}, fmt.Errorf("decode views response: %w", err)
		}
		batch.Events = append(batch.Events, part.Events...)
		batch.Rejected += part.Rejected

		if !page.hasMore() {
			return batch, nil
		}
		if fetched >= maxViewPages {
			return ViewBatch{}, fmt.Errorf("%w: more than %d pages", ErrPagination, maxViewPages)
		}
		current, err = nextPage(endpoint, current, params, page, fetched)
		if err != nil {
			return ViewBatch{}, err
		}
	}
}

// nextPage 优先使用 next_page_url，否则在当前查询上递增 page 参数。
// 过滤参数始终保留，且不允许跳转到其他主机。
func nextPage(endpoint, current *url.URL, params url.Values, page viewPage, fetched int) (*url.URL, error) {
	if page.NextPageURL != "" {
		ref, err := url.Parse(page.NextPageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: next_page_url %q: %v", ErrPagination, page.NextPageURL, err)
		}
		next := current.ResolveReference(ref)
		if next.Scheme != endpoint.Scheme || next.Host != endpoint.Host {
			return nil, fmt.Errorf("%w: next_page_url points to %s", ErrPagination, next.Host)
		}
		query := next.Query()
		for key := range params {
			if query.Get(key) == "" {
				query.Set(key, params.Get(key))
			}
		}
		next.RawQuery = query.Encode()
		return next, nil
	}

	pageNo := page.CurrentPage + 1
	if page.CurrentPage <= 0 {
		pageNo = fetched + 1
	}
	next := *current
	query := current.Query()
	query.Set("page", strconv.Itoa(pageNo))
	next.RawQuery = query.Encode()
	return &next, nil
}

func (c *ViewClient) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create views request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "inkboard/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxViewsResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read views response: %w", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body, resp.Status)}
	}
	return body, nil
}

func apiErrorMessage(body []byte, status string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := firstNonEmpty(payload.Message, payload.Error); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" && len(msg) <= 512 {
		return msg
	}
	return status
}
