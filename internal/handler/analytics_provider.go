package handler

import (
	"context"
	"time"

	"github.com/inkboard/internal/db"
	"github.com/inkboard/internal/views"
)

type analyticsProvider interface {
	Location() *time.Location
	Events(ctx context.Context, criteria views.Criteria, order views.SortOrder) ([]views.ViewEvent, error)
	Summary(ctx context.Context, criteria views.Criteria) (views.Summary, error)
	ByType(ctx context.Context, criteria views.Criteria) ([]views.TypeGroup, error)
	ByViewable(ctx context.Context, criteria views.Criteria) ([]views.ViewableGroup, error)
	ByDay(ctx context.Context, criteria views.Criteria) ([]views.DayGroup, error)
	ByHour(ctx context.Context, criteria views.Criteria) (map[int]int, error)
	TopViewers(ctx context.Context, criteria views.Criteria, limit int) ([]views.Viewer, error)
}

type syncRunner interface {
	Enabled() bool
	Sync(ctx context.Context) (*db.SyncRun, error)
}

type syncRunReader interface {
	LatestSyncRun(ctx context.Context) (*db.SyncRun, error)
}
