package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkboard/internal/views"
)

const dateOnlyLayout = "2006-01-02"

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// parseCriteria 从查询参数读取筛选条件：type、user_id、viewable_id、start、end、search。
func parseCriteria(c *gin.Context, loc *time.Location) (views.Criteria, error) {
	criteria := views.Criteria{
		UserID:     strings.TrimSpace(c.Query("user_id")),
		ViewableID: strings.TrimSpace(c.Query("viewable_id")),
		Search:     strings.TrimSpace(c.Query("search")),
	}

	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		t := views.ViewableType(strings.ToLower(raw))
		if !t.Valid() {
			return views.Criteria{}, fmt.Errorf("不支持的内容类型: %s", raw)
		}
		criteria.Type = t
	}

	start, err := parseDateParam(c.Query("start"), false, loc)
	if err != nil {
		return views.Criteria{}, fmt.Errorf("无效的开始时间: %w", err)
	}
	end, err := parseDateParam(c.Query("end"), true, loc)
	if err != nil {
		return views.Criteria{}, fmt.Errorf("无效的结束时间: %w", err)
	}
	if start != nil && end != nil && end.Before(*start) {
		return views.Criteria{}, errors.New("结束时间不能早于开始时间")
	}
	criteria.Start = start
	criteria.End = end

	return criteria, nil
}

// parseDateParam 接受 RFC3339 或 2006-01-02。仅日期的结束时间取当天最后一刻。
func parseDateParam(raw string, endOfDay bool, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}

	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(dateOnlyLayout, raw, loc)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, nil
}

func parseLimitQuery(c *gin.Context, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}
