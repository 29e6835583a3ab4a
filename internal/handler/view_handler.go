package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkboard/internal/db"
	"github.com/inkboard/internal/service"
	"github.com/inkboard/internal/views"
)

const hoursPerDay = 24

func (a *API) criteria(c *gin.Context) (views.Criteria, bool) {
	criteria, err := parseCriteria(c, a.analytics.Location())
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return views.Criteria{}, false
	}
	return criteria, true
}

// ListViews 返回筛选、排序后的浏览记录
func (a *API) ListViews(c *gin.Context) {
	criteria, ok := a.criteria(c)
	if !ok {
		return
	}
	order, err := views.ParseSortOrder(c.Query("order"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "排序方式无效")
		return
	}

	events, err := a.analytics.Events(c.Request.Context(), criteria, order)
	if err != nil {
		a.serverError(c, err, "获取浏览记录失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"views": events,
		"total": len(events),
		"order": order,
	})
}

// ViewSummary 返回汇总统计
func (a *API) ViewSummary(c *gin.Context) {
	criteria, ok := a.criteria(c)
	if !ok {
		return
	}

	summary, err := a.analytics.Summary(c.Request.Context(), criteria)
	if err != nil {
		a.serverError(c, err, "获取统计数据失败")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ViewsByType 按内容类型分组，附带当前语言下的类型名称
func (a *API) ViewsByType(c *gin.Context) {
	criteria, ok := a.criteria(c)
	if !ok {
		return
	}

	groups, err := a.analytics.ByType(c.Request.Context(), criteria)
	if err != nil {
		a.serverError(c, err, "获取分组数据失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"labels": viewableTypeLabels(requestLanguage(c)),
	})
}

// ViewsByViewable 按具体内容分组
func (a *API) ViewsByViewable(c *gin.Context) {
	respondGroups(a, c, a.analytics.ByViewable)
}

// ViewsByDay 按日期分组
func (a *API) ViewsByDay(c *gin.Context) {
	respondGroups(a, c, a.analytics.ByDay)
}

// ViewsByHour 返回 0-23 点每小时的浏览数
func (a *API) ViewsByHour(c *gin.Context) {
	criteria, ok := a.criteria(c)
	if !ok {
		return
	}

	counts, err := a.analytics.ByHour(c.Request.Context(), criteria)
	if err != nil {
		a.serverError(c, err, "获取分组数据失败")
		return
	}

	hours := make([]gin.H, 0, hoursPerDay)
	for hour := 0; hour < hoursPerDay; hour++ {
		hours = append(hours, gin.H{"hour": hour, "count": counts[hour]})
	}
	c.JSON(http.StatusOK, gin.H{
		"hours":    hours,
		"timezone": a.analytics.Location().String(),
	})
}

// TopViewers 返回浏览次数最多的用户
func (a *API) TopViewers(c *gin.Context) {
	criteria, ok := a.criteria(c)
	if !ok {
		return
	}
	limit, err := parseLimitQuery(c, service.DefaultTopViewers)
	if err != nil {
		respondError(c, http.StatusBadRequest, "数量参数无效")
		return
	}

	viewers, err := a.analytics.TopViewers(c.Request.Context(), criteria, limit)
	if err != nil {
		a.serverError(c, err, "获取排行失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewers": viewers})
}

// TriggerSync 立即从平台同步一次浏览记录
func (a *API) TriggerSync(c *gin.Context) {
	if a.syncer == nil || !a.syncer.Enabled() {
		respondError(c, http.StatusServiceUnavailable, "未配置浏览记录数据源")
		return
	}

	run, err := a.syncer.Sync(c.Request.Context())
	if err != nil {
		var apiErr *service.APIError
		switch {
		case errors.Is(err, service.ErrSyncInProgress):
			respondError(c, http.StatusConflict, "同步正在进行中")
		case errors.Is(err, service.ErrSyncDisabled):
			respondError(c, http.StatusServiceUnavailable, "未配置浏览记录数据源")
		case errors.As(err, &apiErr),
			errors.Is(err, service.ErrUpstreamUnavailable),
			errors.Is(err, service.ErrUnexpectedPayload),
			errors.Is(err, service.ErrPagination),
			errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusBadGateway, gin.H{"error": "数据源请求失败", "run": syncRunPayload(run)})
		default:
			a.log.WithError(err).Error("view sync failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "同步失败", "run": syncRunPayload(run)})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": syncRunPayload(run)})
}

// LatestSync 返回最近一次同步结果
func (a *API) LatestSync(c *gin.Context) {
	enabled := a.syncer != nil && a.syncer.Enabled()
	if a.runs == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": enabled, "run": nil})
		return
	}

	run, err := a.runs.LatestSyncRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoSyncRun) {
			c.JSON(http.StatusOK, gin.H{"enabled": enabled, "run": nil})
			return
		}
		a.serverError(c, err, "获取同步记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled, "run": syncRunPayload(run)})
}

func respondGroups[T any](a *API, c *gin.Context, fn func(context.Context, views.Criteria) (T, error)) {
	criteria, ok := a.criteria(c)
	if !ok {
		return
	}

	groups, err := fn(c.Request.Context(), criteria)
	if err != nil {
		a.serverError(c, err, "获取分组数据失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (a *API) serverError(c *gin.Context, err error, message string) {
	a.log.WithError(err).WithField("path", c.FullPath()).Error(message)
	respondError(c, http.StatusInternalServerError, message)
}

func syncRunPayload(run *db.SyncRun) gin.H {
	if run == nil {
		return nil
	}
	payload := gin.H{
		"id":          run.ID,
		"started_at":  run.StartedAt.Format(time.RFC3339),
		"finished_at": run.FinishedAt.Format(time.RFC3339),
		"fetched":     run.Fetched,
		"stored":      run.Stored,
		"rejected":    run.Rejected,
		"succeeded":   run.Succeeded(),
	}
	if run.Error != "" {
		payload["error"] = run.Error
	}
	return payload
}
