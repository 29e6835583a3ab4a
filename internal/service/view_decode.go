package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/inkboard/internal/views"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
)

// ErrUnexpectedPayload 表示接口返回的 JSON 既不是数组也不是已知的包裹结构。
var ErrUnexpectedPayload = errors.New("unexpected views payload")

// ViewBatch 是一次拉取解码后的结果，Rejected 为被丢弃的非法记录数。
type ViewBatch struct {
	Events   []views.ViewEvent
	Rejected int
}

// flexString 兼容字符串与数字两种 ID 表示。
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", trimmed)
	}
	*f = flexString(n.String())
	return nil
}

type rawViewer struct {
	ID       flexString `json:"id"`
	Name     string     `json:"name"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
}

// rawViewEvent 同时接受 camelCase 与 snake_case 字段名。
type rawViewEvent struct {
	ID                flexString  `json:"id"`
	UserID            *flexString `json:"userId"`
	UserIDSnake       *flexString `json:"user_id"`
	ViewableType      string      `json:"viewableType"`
	ViewableTypeSnake string      `json:"viewable_type"`
	ViewableID        flexString  `json:"viewableId"`
	ViewableIDSnake   flexString  `json:"viewable_id"`
	IPAddress         string      `json:"ipAddress"`
	IPAddressSnake    string      `json:"ip_address"`
	CreatedAt         string      `json:"createdAt"`
	CreatedAtSnake    string      `json:"created_at"`
	User              *rawViewer  `json:"user"`
}

type viewEventInput struct {
	ID           string `validate:"required,max=64"`
	ViewableType string `validate:"required,oneof=post question answer draft media"`
	ViewableID   string `validate:"required,max=64"`
	IPAddress    string `validate:"required,max=64"`
	CreatedAt    string `validate:"required"`
	UserEmail    string `validate:"omitempty,email"`
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// viewPage 是分页包裹结构里的翻页信息，字段缺失时为零值。
type viewPage struct {
	CurrentPage int
	LastPage    int
	NextPageURL string
}

func (p viewPage) hasMore() bool {
	if p.NextPageURL != "" {
		return true
	}
	return p.LastPage > 0 && p.CurrentPage < p.LastPage
}

type viewDecoder struct {
	validate *validator.Validate
	policy   *bluemonday.Policy
	log      logrus.FieldLogger
	loc      *time.Location
}

func newViewDecoder(log logrus.FieldLogger) *viewDecoder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &viewDecoder{
		validate: validator.New(),
		policy:   bluemonday.StrictPolicy(),
		log:      log,
		loc:      time.UTC,
	}
}

// Decode 解析响应体：支持裸数组，或以 data/views/items 包裹（可嵌套一层分页对象）。
// 非法记录会被记录日志并丢弃，不会进入统计逻辑。
func (d *viewDecoder) Decode(body []byte) (ViewBatch, error) {
	batch, _, err := d.decodePage(body, make(map[string]struct{}))
	return batch, err
}

// decodePage 解码单页并返回翻页信息，seen 在多页之间共享以剔除重复 ID。
func (d *viewDecoder) decodePage(body []byte, seen map[string]struct{}) (ViewBatch, viewPage, error) {
	var page viewPage
	raws, err := unwrapViewList(body, 2, &page)
	if err != nil {
		return ViewBatch{}, viewPage{}, err
	}

	batch := ViewBatch{Events: make([]views.ViewEvent, 0, len(raws))}
	for i, raw := range raws {
		event, err := d.decodeOne(raw)
		if err == nil {
			if _, dup := seen[event.ID]; dup {
				err = fmt.Errorf("duplicate id %q", event.ID)
			}
		}
		if err != nil {
			batch.Rejected++
			d.log.WithFields(logrus.Fields{
				"index": i,
				"error": err.Error(),
			}).Warn("dropping malformed view event")
			continue
		}
		seen[event.ID] = struct{}{}
		batch.Events = append(batch.Events, event)
	}
	return batch, page, nil
}

func unwrapViewList(body []byte, depth int, page *viewPage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrUnexpectedPayload
	}

	switch trimmed[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
		}
		return list, nil
	case '{':
		if depth == 0 {
			return nil, ErrUnexpectedPayload
		}
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
		}
		readPageInfo(envelope, page)
		for _, key := range []string{"data", "views", "items"} {
			if inner, ok := envelope[key]; ok {
				return unwrapViewList(inner, depth-1, page)
			}
		}
	}
	return nil, ErrUnexpectedPayload
}

// readPageInfo 识别 current_page/last_page/next_page_url，以及 meta 与 links 中的同类字段。
func readPageInfo(envelope map[string]json.RawMessage, page *viewPage) {
	var meta map[string]json.RawMessage
	if raw, ok := envelope["meta"]; ok {
		_ = json.Unmarshal(raw, &meta)
	}
	for _, fields := range []map[string]json.RawMessage{meta, envelope} {
		if n, ok := pageNumber(fields["current_page"]); ok {
			page.CurrentPage = n
		}
		if n, ok := pageNumber(fields["last_page"]); ok {
			page.LastPage = n
		}
	}

	var next string
	if raw, ok := envelope["next_page_url"]; ok && json.Unmarshal(raw, &next) == nil {
		page.NextPageURL = strings.TrimSpace(next)
		return
	}
	var links struct {
		Next string `json:"next"`
	}
	if raw, ok := envelope["links"]; ok && json.Unmarshal(raw, &links) == nil {
		page.NextPageURL = strings.TrimSpace(links.Next)
	}
}

func pageNumber(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var s flexString
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(string(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (d *viewDecoder) decodeOne(raw json.RawMessage) (views.ViewEvent, error) {
	var rec rawViewEvent
	if err := json.Unmarshal(raw, &rec); err != nil {
		return views.ViewEvent{}, fmt.Errorf("decode: %w", err)
	}

	input := viewEventInput{
		ID:           string(rec.ID),
		ViewableType: normalizeViewableType(firstNonEmpty(rec.ViewableType, rec.ViewableTypeSnake)),
		ViewableID:   firstNonEmpty(string(rec.ViewableID), string(rec.ViewableIDSnake)),
		IPAddress:    strings.TrimSpace(firstNonEmpty(rec.IPAddress, rec.IPAddressSnake)),
		CreatedAt:    strings.TrimSpace(firstNonEmpty(rec.CreatedAt, rec.CreatedAtSnake)),
	}
	if rec.User != nil {
		input.UserEmail = strings.TrimSpace(rec.User.Email)
	}
	if err := d.validate.Struct(input); err != nil {
		return views.ViewEvent{}, fmt.Errorf("validate: %w", err)
	}

	createdAt, err := parseCreatedAt(input.CreatedAt, d.loc)
	if err != nil {
		return views.ViewEvent{}, err
	}

	event := views.ViewEvent{
		ID:           input.ID,
		ViewableType: views.ViewableType(input.ViewableType),
		ViewableID:   input.ViewableID,
		IPAddress:    input.IPAddress,
		CreatedAt:    createdAt,
	}

	userID := ""
	for _, candidate := range []*flexString{rec.UserID, rec.UserIDSnake} {
		if candidate != nil && *candidate != "" {
			userID = string(*candidate)
			break
		}
	}
	if userID == "" && rec.User != nil {
		userID = string(rec.User.ID)
	}
	if userID != "" {
		event.UserID = &userID
		if rec.User != nil {
			event.User = &views.Viewer{
				ID:    userID,
				Name:  d.plainText(firstNonEmpty(rec.User.Name, rec.User.Username)),
				Email: input.UserEmail,
			}
		}
	}

	return event, nil
}

func (d *viewDecoder) plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(d.policy.Sanitize(s)))
}

// normalizeViewableType 兼容 "Post"、"App\\Models\\Post" 等写法。
func normalizeViewableType(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, `\`); i >= 0 {
		raw = raw[i+1:]
	}
	return strings.ToLower(raw)
}

// parseCreatedAt 中不带时区的时间按 loc 解释，带偏移量的保持原偏移。
func parseCreatedAt(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable created_at %q", raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
