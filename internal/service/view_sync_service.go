package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/inkboard/internal/db"
	"github.com/inkboard/internal/metrics"
	"github.com/sirupsen/logrus"
)

var (
	// ErrSyncInProgress 表示已有同步在执行。
	ErrSyncInProgress = errors.New("view sync already in progress")
	// ErrSyncDisabled 表示未配置远端数据源。
	ErrSyncDisabled = errors.New("view sync is disabled")
)

type viewFetcher interface {
	ListViews(ctx context.Context, q ViewQuery) (ViewBatch, error)
}

// SyncService 从平台接口拉取全部浏览记录并替换本地快照。
type SyncService struct {
	fetcher viewFetcher
	store   *ViewStore
	cache   *ResultCache
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
	running sync.Mutex
}

// NewSyncService 构造 SyncService。fetcher 为 nil 时同步被禁用；cache 与 m 可为 nil。
func NewSyncService(fetcher viewFetcher, store *ViewStore, cache *ResultCache, m *metrics.Metrics, log logrus.FieldLogger) *SyncService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SyncService{
		fetcher: fetcher,
		store:   store,
		cache:   cache,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// WithClock 替换时钟，便于测试。
func (s *SyncService) WithClock(now func() time.Time) *SyncService {
	if now != nil {
		s.now = now
	}
	return s
}

// Enabled 报告是否配置了远端数据源。
func (s *SyncService) Enabled() bool {
	return s.fetcher != nil
}

// Sync 执行一次同步并记录结果。同一时间只允许一个同步在执行。
func (s *SyncService) Sync(ctx context.Context) (*db.SyncRun, error) {
	if s.fetcher == nil {
		return nil, ErrSyncDisabled
	}
	if !s.running.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.running.Unlock()

	run := &db.SyncRun{StartedAt: s.now()}
	err := s.sync(ctx, run)
	run.FinishedAt = s.now()
	if err != nil {
		run.Error = err.Error()
	}

	if recordErr := s.store.RecordSyncRun(context.WithoutCancel(ctx), run); recordErr != nil {
		s.log.WithError(recordErr).Error("failed to record sync run")
	}

	fields := logrus.Fields{
		"fetched":     run.Fetched,
		"stored":      run.Stored,
		"rejected":    run.Rejected,
		"duration_ms": run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	}
	if err != nil {
		s.observe("error", run)
		s.log.WithFields(fields).WithError(err).Error("view sync failed")
		return run, err
	}

	s.observe("success", run)
	s.log.WithFields(fields).Info("view sync finished")
	return run, nil
}

func (s *SyncService) sync(ctx context.Context, run *db.SyncRun) error {
	batch, err := s.fetcher.ListViews(ctx, ViewQuery{})
	if err != nil {
		return err
	}
	run.Fetched = len(batch.Events) + batch.Rejected
	run.Rejected = batch.Rejected

	stored, err := s.store.ReplaceSnapshot(ctx, batch.Events, run.StartedAt)
	if err != nil {
		return err
	}
	run.Stored = stored

	if s.cache != nil {
		s.cache.Purge()
	}
	return nil
}

func (s *SyncService) observe(result string, run *db.SyncRun) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncRuns.WithLabelValues(result).Inc()
	s.metrics.SyncedEvents.Add(float64(run.Stored))
	s.metrics.RejectedEvents.Add(float64(run.Rejected))
}

// Run 启动后立即同步一次，之后每隔 interval 同步，直到 ctx 结束。interval<=0 时直接返回。
func (s *SyncService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.fetcher == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sync(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) && ctx.Err() == nil {
			s.log.WithError(err).Warn("scheduled view sync failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
