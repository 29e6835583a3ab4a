package views

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Criteria 描述列表筛选条件，零值字段不参与过滤。
type Criteria struct {
	Type       ViewableType
	UserID     string
	ViewableID string
	Start      *time.Time
	End        *time.Time
	Search     string
}

// IsZero 报告是否没有任何筛选条件。
func (c Criteria) IsZero() bool {
	return c.Type == "" && c.UserID == "" && c.ViewableID == "" &&
		c.Start == nil && c.End == nil && strings.TrimSpace(c.Search) == ""
}

// SortOrder 指定按创建时间排序的方向。
type SortOrder string

const (
	SortRecent SortOrder = "recent"
	SortOldest SortOrder = "oldest"
)

// ParseSortOrder 解析排序参数，空字符串视为 recent。
func ParseSortOrder(raw string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SortRecent:
		return SortRecent, nil
	case SortOldest:
		return SortOldest, nil
	default:
		return "", fmt.Errorf("unsupported sort order %q", raw)
	}
}

// Filter 按条件筛选记录，所有条件为“与”关系，结果保持输入的相对顺序。
func Filter(events []ViewEvent, criteria Criteria) []ViewEvent {
	term := strings.ToLower(strings.TrimSpace(criteria.Search))

	out := make([]ViewEvent, 0, len(events))
	for _, event := range events {
		if criteria.Type != "" && event.ViewableType != criteria.Type {
			continue
		}
		if criteria.UserID != "" && (event.UserID == nil || *event.UserID != criteria.UserID) {
			continue
		}
		if criteria.ViewableID != "" && event.ViewableID != criteria.ViewableID {
			continue
		}
		if criteria.Start != nil && event.CreatedAt.Before(*criteria.Start) {
			continue
		}
		if criteria.End != nil && event.CreatedAt.After(*criteria.End) {
			continue
		}
		if term != "" && !matchesSearch(event, term) {
			continue
		}
		out = append(out, event)
	}
	return out
}

func matchesSearch(event ViewEvent, term string) bool {
	if strings.Contains(strings.ToLower(event.IPAddress), term) {
		return true
	}
	if event.User == nil {
		return false
	}
	return strings.Contains(strings.ToLower(event.User.Name), term) ||
		strings.Contains(strings.ToLower(event.User.Email), term)
}

// Sort 返回按创建时间排序的新切片，稳定排序，时间相同时保持输入顺序。
func Sort(events []ViewEvent, order SortOrder) []ViewEvent {
	out := cloneEvents(events)
	if order == SortOldest {
		slices.SortStableFunc(out, func(a, b ViewEvent) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
		return out
	}
	slices.SortStableFunc(out, func(a, b ViewEvent) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
