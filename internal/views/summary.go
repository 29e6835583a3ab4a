package views

import (
	"math"
	"time"
)

const (
	summaryTopViewers  = 10
	summaryRecentViews = 10
	weekWindow         = 7 * 24 * time.Hour
)

// Summary 汇总一批浏览记录的统计数据。
type Summary struct {
	Total              int                  `json:"total"`
	Authenticated      int                  `json:"authenticated"`
	Anonymous          int                  `json:"anonymous"`
	UniqueUsers        int                  `json:"unique_users"`
	UniqueIPs          int                  `json:"unique_ips"`
	UniqueVisitors     int                  `json:"unique_visitors"`
	Today              int                  `json:"today"`
	ThisWeek           int                  `json:"this_week"`
	ThisMonth          int                  `json:"this_month"`
	ByType             map[ViewableType]int `json:"by_type"`
	ViewsByDay         map[string]int       `json:"views_by_day"`
	ViewsByHour        map[int]int          `json:"views_by_hour"`
	PeakViewDate       string               `json:"peak_view_date"`
	PeakViewCount      int                  `json:"peak_view_count"`
	AverageViewsPerDay int                  `json:"average_views_per_day"`
	TopViewers         []Viewer             `json:"top_viewers"`
	RecentViews        []ViewEvent          `json:"recent_views"`
}

// Summarize 计算统计数据。today/thisMonth 以 loc 时区的日历为准，
// thisWeek 为截至 now 的滚动 7 天窗口。
func Summarize(events []ViewEvent, now time.Time, loc *time.Location) Summary {
	loc = location(loc)
	now = now.In(loc)

	summary := Summary{
		Total:       len(events),
		ByType:      make(map[ViewableType]int),
		ViewsByDay:  make(map[string]int),
		ViewsByHour: GroupByHour(events, loc),
		TopViewers:  TopViewers(events, summaryTopViewers),
		RecentViews: RecentViews(events, summaryRecentViews),
	}

	today := now.Format(dayFormat)
	weekStart := now.Add(-weekWindow)
	year, month, _ := now.Date()

	for _, event := range events {
		if event.Authenticated() {
			summary.Authenticated++
		} else {
			summary.Anonymous++
		}
		summary.ByType[event.ViewableType]++

		local := event.CreatedAt.In(loc)
		if local.Format(dayFormat) == today {
			summary.Today++
		}
		if !local.Before(weekStart) {
			summary.ThisWeek++
		}
		if y, m, _ := local.Date(); y == year && m == month {
			summary.ThisMonth++
		}
	}

	summary.UniqueUsers = countUniqueUsers(events)
	summary.UniqueIPs = countUniqueIPs(events)
	summary.UniqueVisitors = countUniqueVisitors(events)

	days := GroupByDay(events, loc)
	for _, day := range days {
		summary.ViewsByDay[day.Date] = day.Count
		// days 已按日期升序，严格大于保证并列时取最早的一天
		if day.Count > summary.PeakViewCount {
			summary.PeakViewDate = day.Date
			summary.PeakViewCount = day.Count
		}
	}
	if len(days) > 0 {
		summary.AverageViewsPerDay = int(math.Round(float64(summary.Total) / float64(len(days))))
	}

	return summary
}
