package views

import (
	"cmp"
	"slices"
)

type viewerCount struct {
	userID string
	viewer *Viewer
	count  int
}

// TopViewers 返回浏览次数最多的前 limit 个登录用户，匿名记录不参与排行。
// 次数相同时按用户 ID 升序，保证结果可复现。
func TopViewers(events []ViewEvent, limit int) []Viewer {
	if limit <= 0 {
		return []Viewer{}
	}

	counts := make(map[string]*viewerCount)
	for _, event := range events {
		if event.UserID == nil {
			continue
		}
		entry, ok := counts[*event.UserID]
		if !ok {
			entry = &viewerCount{userID: *event.UserID}
			counts[*event.UserID] = entry
		}
		if entry.viewer == nil && event.User != nil {
			entry.viewer = event.User
		}
		entry.count++
	}

	ranked := make([]*viewerCount, 0, len(counts))
	for _, entry := range counts {
		ranked = append(ranked, entry)
	}
	slices.SortFunc(ranked, func(a, b *viewerCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.userID, b.userID)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]Viewer, 0, len(ranked))
	for _, entry := range ranked {
		if entry.viewer != nil {
			out = append(out, *entry.viewer)
			continue
		}
		out = append(out, Viewer{ID: entry.userID})
	}
	return out
}

// RecentViews 返回最近的 limit 条记录。
func RecentViews(events []ViewEvent, limit int) []ViewEvent {
	if limit <= 0 {
		return []ViewEvent{}
	}
	sorted := Sort(events, SortRecent)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
