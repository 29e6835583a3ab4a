package db

import "time"

// SyncRun 记录一次快照同步的结果，Error 为空表示成功。
type SyncRun struct {
	ID         uint `gorm:"primaryKey"`
	StartedAt  time.Time
	FinishedAt time.Time
	Fetched    int
	Stored     int
	Rejected   int
	Error      string
}

// TableName 指定自定义表名。
func (SyncRun) TableName() string {
	return "sync_runs"
}

// Succeeded 报告同步是否成功。
func (r SyncRun) Succeeded() bool {
	return r.Error == ""
}
