package db

import "time"

// Viewer 保存浏览者的冗余摘要，ID 与上游平台的用户 ID 一致。
type Viewer struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (Viewer) TableName() string {
	return "viewers"
}

// ViewRecord 是从平台同步下来的一条浏览记录快照。
// SyncGeneration 标记写入它的那次同步，用于清理上游已删除的记录。
type ViewRecord struct {
	ID             string    `gorm:"primaryKey;size:64"`
	UserID         *string   `gorm:"size:64;index"`
	Viewer         *Viewer   `gorm:"foreignKey:UserID;references:ID"`
	ViewableType   string    `gorm:"size:16;not null;index:idx_view_records_viewable"`
	ViewableID     string    `gorm:"size:64;not null;index:idx_view_records_viewable"`
	IPAddress      string    `gorm:"size:64;not null"`
	CreatedAt      time.Time `gorm:"index"`
	SyncedAt       time.Time
	SyncGeneration int64 `gorm:"index"`
}

// TableName 指定自定义表名，避免自动复数化导致的歧义。
func (ViewRecord) TableName() string {
	return "view_records"
}
