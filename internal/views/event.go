// Package views 提供浏览记录的筛选、排序、分组与汇总统计。
// 所有函数都是纯函数：不修改入参，不做 I/O，对任意输入（包括空切片）都返回结果。
package views

import "time"

// ViewableType 表示被浏览内容的类型。
type ViewableType string

const (
	TypePost     ViewableType = "post"
	TypeQuestion ViewableType = "question"
	TypeAnswer   ViewableType = "answer"
	TypeDraft    ViewableType = "draft"
	TypeMedia    ViewableType = "media"
)

// ViewableTypes 列出全部合法的内容类型。
var ViewableTypes = []ViewableType{TypePost, TypeQuestion, TypeAnswer, TypeDraft, TypeMedia}

// Valid 判断类型是否为已知取值。
func (t ViewableType) Valid() bool {
	for _, known := range ViewableTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Viewer 是浏览者的冗余摘要，仅用于展示与排行。
type Viewer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ViewEvent 是一次浏览记录。UserID 为 nil 表示匿名访问。
type ViewEvent struct {
	ID           string       `json:"id"`
	UserID       *string      `json:"user_id,omitempty"`
	ViewableType ViewableType `json:"viewable_type"`
	ViewableID   string       `json:"viewable_id"`
	IPAddress    string       `json:"ip_address"`
	CreatedAt    time.Time    `json:"created_at"`
	User         *Viewer      `json:"user,omitempty"`
}

// Authenticated 报告该记录是否来自已登录用户。
func (e ViewEvent) Authenticated() bool {
	return e.UserID != nil
}

// VisitorKey 返回去重用的访客标识：登录用户取用户 ID，匿名访问取 IP。
func (e ViewEvent) VisitorKey() string {
	if e.UserID != nil {
		return "u:" + *e.UserID
	}
	return "ip:" + e.IPAddress
}

const dayFormat = "2006-01-02"

// DayKey 返回记录在 loc 时区下的日历日期字符串。
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(location(loc)).Format(dayFormat)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

func cloneEvents(events []ViewEvent) []ViewEvent {
	out := make([]ViewEvent, len(events))
	copy(out, events)
	return out
}
