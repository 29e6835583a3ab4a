package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkboard/internal/db"
	"github.com/inkboard/internal/views"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const snapshotBatchSize = 200

// ErrNoSyncRun 在尚未执行过同步时返回。
var ErrNoSyncRun = errors.New("no sync run recorded")

// ViewStore 负责本地 sqlite 中浏览记录快照的读写。
type ViewStore struct {
	db *gorm.DB
}

// NewViewStore 构造 ViewStore。
func NewViewStore(gdb *gorm.DB) *ViewStore {
	return &ViewStore{db: gdb}
}

// ReplaceSnapshot 用 events 整体替换快照：新记录写入、已有记录更新、缺失记录删除，
// 不再被任何记录引用的浏览者一并删除。
// 返回写入的记录数。
func (s *ViewStore) ReplaceSnapshot(ctx context.Context, events []views.ViewEvent, syncedAt time.Time) (int, error) {
	generation := syncedAt.UnixNano()

	viewers := make([]db.Viewer, 0)
	seenViewers := make(map[string]struct{})
	records := make([]db.ViewRecord, 0, len(events))
	for _, event := range events {
		records = append(records, toRecord(event, syncedAt, generation))
		if event.User == nil || event.UserID == nil {
			continue
		}
		if _, ok := seenViewers[*event.UserID]; ok {
			continue
		}
		seenViewers[*event.UserID] = struct{}{}
		viewers = append(viewers, db.Viewer{ID: *event.UserID, Name: event.User.Name, Email: event.User.Email})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(viewers) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
			}).CreateInBatches(&viewers, snapshotBatchSize).Error; err != nil {
				return fmt.Errorf("upsert viewers: %w", err)
			}
		}

		if len(records) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).CreateInBatches(&records, snapshotBatchSize).Error; err != nil {
				return fmt.Errorf("upsert view records: %w", err)
			}
		}

		if err := tx.Where("sync_generation <> ?", generation).Delete(&db.ViewRecord{}).Error; err != nil {
			return fmt.Errorf("prune view records: %w", err)
		}

		referenced := tx.Model(&db.ViewRecord{}).Select("user_id").Where("user_id IS NOT NULL")
		if err := tx.Where("id NOT IN (?)", referenced).Delete(&db.Viewer{}).Error; err != nil {
			return fmt.Errorf("prune viewers: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// List 读取快照，按创建时间升序返回，支持服务端的 type/viewable/user 过滤。
func (s *ViewStore) List(ctx context.Context, q ViewQuery) ([]views.ViewEvent, error) {
	query := s.db.WithContext(ctx).Model(&db.ViewRecord{}).Preload("Viewer")
	if q.Type != "" {
		query = query.Where("viewable_type = ?", string(q.Type))
	}
	if q.ViewableID != "" {
		query = query.Where("viewable_id = ?", q.ViewableID)
	}
	if q.UserID != "" {
		query = query.Where("user_id = ?", q.UserID)
	}

	var records []db.ViewRecord
	if err := query.Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list view records: %w", err)
	}

	events := make([]views.ViewEvent, 0, len(records))
	for _, record := range records {
		events = append(events, fromRecord(record))
	}
	return events, nil
}

// RecordSyncRun 保存一次同步结果。
func (s *ViewStore) RecordSyncRun(ctx context.Context, run *db.SyncRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// LatestSyncRun 返回最近一次同步结果。
func (s *ViewStore) LatestSyncRun(ctx context.Context) (*db.SyncRun, error) {
	var run db.SyncRun
	if err := s.db.WithContext(ctx).Order("id DESC").First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSyncRun
		}
		return nil, fmt.Errorf("load latest sync run: %w", err)
	}
	return &run, nil
}

func toRecord(event views.ViewEvent, syncedAt time.Time, generation int64) db.ViewRecord {
	record := db.ViewRecord{
		ID:             event.ID,
		ViewableType:   string(event.ViewableType),
		ViewableID:     event.ViewableID,
		IPAddress:      event.IPAddress,
		CreatedAt:      event.CreatedAt.UTC(),
		SyncedAt:       syncedAt.UTC(),
		SyncGeneration: generation,
	}
	if event.UserID != nil {
		userID := *event.UserID
		record.UserID = &userID
	}
	return record
}

func fromRecord(record db.ViewRecord) views.ViewEvent {
	event := views.ViewEvent{
		ID:           record.ID,
		ViewableType: views.ViewableType(record.ViewableType),
		ViewableID:   record.ViewableID,
		IPAddress:    record.IPAddress,
		CreatedAt:    record.CreatedAt,
	}
	if record.UserID != nil {
		userID := *record.UserID
		event.UserID = &userID
		if record.Viewer != nil {
			event.User = &views.Viewer{ID: record.Viewer.ID, Name: record.Viewer.Name, Email: record.Viewer.Email}
		}
	}
	return event
}
