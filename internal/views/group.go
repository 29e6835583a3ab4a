package views

import (
	"slices"
	"time"
)

// TypeGroup 是按内容类型分组的结果。
type TypeGroup struct {
	Type   ViewableType `json:"type"`
	Count  int          `json:"count"`
	Events []ViewEvent  `json:"events"`
}

// ViewableGroup 是按 (类型, 内容 ID) 分组的结果。
type ViewableGroup struct {
	ViewableType ViewableType `json:"viewable_type"`
	ViewableID   string       `json:"viewable_id"`
	Count        int          `json:"count"`
	UniqueUsers  int          `json:"unique_users"`
	UniqueIPs    int          `json:"unique_ips"`
	Events       []ViewEvent  `json:"events"`
}

// DayGroup 是按日历日分组的结果，Date 为 loc 时区下的 2006-01-02。
type DayGroup struct {
	Date           string      `json:"date"`
	Count          int         `json:"count"`
	UniqueVisitors int         `json:"unique_visitors"`
	Events         []ViewEvent `json:"events"`
}

// GroupByType 按内容类型分组，分组顺序为类型首次出现的顺序。
func GroupByType(events []ViewEvent) []TypeGroup {
	groups := make([]TypeGroup, 0)
	index := make(map[ViewableType]int)
	for _, event := range events {
		i, ok := index[event.ViewableType]
		if !ok {
			i = len(groups)
			index[event.ViewableType] = i
			groups = append(groups, TypeGroup{Type: event.ViewableType})
		}
		groups[i].Events = append(groups[i].Events, event)
		groups[i].Count++
	}
	return groups
}

type viewableKey struct {
	typ ViewableType
	id  string
}

// GroupByViewable 按具体内容分组，并统计分组内的独立用户数与独立 IP 数。
func GroupByViewable(events []ViewEvent) []ViewableGroup {
	groups := make([]ViewableGroup, 0)
	index := make(map[viewableKey]int)
	for _, event := range events {
		key := viewableKey{typ: event.ViewableType, id: event.ViewableID}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, ViewableGroup{ViewableType: key.typ, ViewableID: key.id})
		}
		groups[i].Events = append(groups[i].Events, event)
		groups[i].Count++
	}

	for i := range groups {
		groups[i].UniqueUsers = countUniqueUsers(groups[i].Events)
		groups[i].UniqueIPs = countUniqueIPs(groups[i].Events)
	}
	return groups
}

// GroupByDay 按 loc 时区的日历日分组，只包含有记录的日期，按日期升序排列。
func GroupByDay(events []ViewEvent, loc *time.Location) []DayGroup {
	groups := make([]DayGroup, 0)
	index := make(map[string]int)
	for _, event := range events {
		day := DayKey(event.CreatedAt, loc)
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{Date: day})
		}
		groups[i].Events = append(groups[i].Events, event)
		groups[i].Count++
	}

	for i := range groups {
		groups[i].UniqueVisitors = countUniqueVisitors(groups[i].Events)
	}

	slices.SortFunc(groups, func(a, b DayGroup) int {
		switch {
		case a.Date < b.Date:
			return -1
		case a.Date > b.Date:
			return 1
		}
		return 0
	})
	return groups
}

// GroupByHour 统计每个小时（0-23，loc 时区）的浏览数，没有记录的小时不出现。
func GroupByHour(events []ViewEvent, loc *time.Location) map[int]int {
	loc = location(loc)
	hours := make(map[int]int)
	for _, event := range events {
		hours[event.CreatedAt.In(loc).Hour()]++
	}
	return hours
}

func countUniqueUsers(events []ViewEvent) int {
	seen := make(map[string]struct{})
	for _, event := range events {
		if event.UserID != nil {
			seen[*event.UserID] = struct{}{}
		}
	}
	return len(seen)
}

func countUniqueIPs(events []ViewEvent) int {
	seen := make(map[string]struct{})
	for _, event := range events {
		seen[event.IPAddress] = struct{}{}
	}
	return len(seen)
}

func countUniqueVisitors(events []ViewEvent) int {
	seen := make(map[string]struct{})
	for _, event := range events {
		seen[event.VisitorKey()] = struct{}{}
	}
	return len(seen)
}
