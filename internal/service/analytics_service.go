package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/inkboard/internal/views"
)

const (
	// DefaultTopViewers 是排行接口未指定数量时的默认值。
	DefaultTopViewers = 10
	// MaxTopViewers 限制排行接口的最大返回数量。
	MaxTopViewers = 100
)

type viewLister interface {
	List(ctx context.Context, q ViewQuery) ([]views.ViewEvent, error)
}

// AnalyticsService 负责浏览记录的统计逻辑：读取快照、筛选并调用 views 包完成聚合，
// 结果按 (种类, 条件, 输入指纹) 缓存。
type AnalyticsService struct {
	source viewLister
	cache  *ResultCache
	loc    *time.Location
	now    func() time.Time
}

// NewAnalyticsService 创建 AnalyticsService，cache 可为 nil，loc 为 nil 时使用本地时区。
func NewAnalyticsService(source viewLister, cache *ResultCache, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.Local
	}
	return &AnalyticsService{
		source: source,
		cache:  cache,
		loc:    loc,
		now:    time.Now,
	}
}

// WithClock 允许在测试或特定场景下替换“当前时间”。
func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	if now == nil {
		return s
	}
	s.now = now
	return s
}

// Location 返回按日/按小时分组所使用的时区。
func (s *AnalyticsService) Location() *time.Location {
	return s.loc
}

// Events 返回筛选并排序后的浏览记录。
func (s *AnalyticsService) Events(ctx context.Context, criteria views.Criteria, order views.SortOrder) ([]views.ViewEvent, error) {
	return aggregate(ctx, s, "events", criteria, order, func(filtered []views.ViewEvent) []views.ViewEvent {
		return views.Sort(filtered, order)
	})
}

// Summary 计算汇总统计。“当前时间”按分钟截断，使同一分钟内的请求可以复用缓存。
func (s *AnalyticsService) Summary(ctx context.Context, criteria views.Criteria) (views.Summary, error) {
	now := s.now().Truncate(time.Minute)
	kind := "summary@" + strconv.FormatInt(now.Unix(), 10)
	return aggregate(ctx, s, kind, criteria, "", func(filtered []views.ViewEvent) views.Summary {
		return views.Summarize(filtered, now, s.loc)
	})
}

// ByType 按内容类型分组。
func (s *AnalyticsService) ByType(ctx context.Context, criteria views.Criteria) ([]views.TypeGroup, error) {
	return aggregate(ctx, s, "by_type", criteria, "", views.GroupByType)
}

// ByViewable 按具体内容分组。
func (s *AnalyticsService) ByViewable(ctx context.Context, criteria views.Criteria) ([]views.ViewableGroup, error) {
	return aggregate(ctx, s, "by_viewable", criteria, "", views.GroupByViewable)
}

// ByDay 按日历日分组。
func (s *AnalyticsService) ByDay(ctx context.Context, criteria views.Criteria) ([]views.DayGroup, error) {
	return aggregate(ctx, s, "by_day", criteria, "", func(filtered []views.ViewEvent) []views.DayGroup {
		return views.GroupByDay(filtered, s.loc)
	})
}

// ByHour 按小时统计浏览数。
func (s *AnalyticsService) ByHour(ctx context.Context, criteria views.Criteria) (map[int]int, error) {
	return aggregate(ctx, s, "by_hour", criteria, "", func(filtered []views.ViewEvent) map[int]int {
		return views.GroupByHour(filtered, s.loc)
	})
}

// TopViewers 返回浏览最多的登录用户，limit 会被限制在 [1, MaxTopViewers]。
func (s *AnalyticsService) TopViewers(ctx context.Context, criteria views.Criteria, limit int) ([]views.Viewer, error) {
	if limit <= 0 {
		limit = DefaultTopViewers
	}
	if limit > MaxTopViewers {
		limit = MaxTopViewers
	}
	kind := "top_viewers:" + strconv.Itoa(limit)
	return aggregate(ctx, s, kind, criteria, "", func(filtered []views.ViewEvent) []views.Viewer {
		return views.TopViewers(filtered, limit)
	})
}

func aggregate[T any](ctx context.Context, s *AnalyticsService, kind string, criteria views.Criteria, order views.SortOrder, fn func([]views.ViewEvent) T) (T, error) {
	var zero T

	events, err := s.source.List(ctx, ViewQuery{
		Type:       criteria.Type,
		ViewableID: criteria.ViewableID,
		UserID:     criteria.UserID,
	})
	if err != nil {
		return zero, fmt.Errorf("load views: %w", err)
	}

	key := views.Key(kind, criteria, order, views.Fingerprint(events))
	return memoize(s.cache, key, func() T {
		return fn(views.Filter(events, criteria))
	}), nil
}
