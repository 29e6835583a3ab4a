package handler

import (
	"github.com/inkboard/internal/service"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	analytics analyticsProvider
	syncer    syncRunner
	runs      syncRunReader
	log       logrus.FieldLogger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, analytics *service.AnalyticsService, syncer *service.SyncService, store *service.ViewStore, log logrus.FieldLogger) *API {
	if log == nil {
		log = logrus.StandardLogger()
	}
	api := &API{
		db:        gdb,
		analytics: analytics,
		log:       log,
	}
	// nil 指针不能直接赋给接口字段，否则判空失效
	if syncer != nil {
		api.syncer = syncer
	}
	if store != nil {
		api.runs = store
	}
	return api
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
