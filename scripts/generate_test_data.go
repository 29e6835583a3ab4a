package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/inkboard/internal/config"
	"github.com/inkboard/internal/db"
	"github.com/inkboard/internal/service"
	"github.com/inkboard/internal/views"
)

const (
	seedDays       = 30
	seedViewsTotal = 600
	anonymousRatio = 0.35
)

var seedViewers = []views.Viewer{
	{ID: "1001", Name: "李雷", Email: "lilei@example.com"},
	{ID: "1002", Name: "韩梅梅", Email: "hanmeimei@example.com"},
	{ID: "1003", Name: "Alice", Email: "alice@example.com"},
	{ID: "1004", Name: "Bob", Email: "bob@example.com"},
	{ID: "1005", Name: "Carol", Email: "carol@example.com"},
	{ID: "1006", Name: "Dave", Email: "dave@example.com"},
}

var seedViewables = map[views.ViewableType][]string{
	views.TypePost:     {"101", "102", "103", "104"},
	views.TypeQuestion: {"201", "202"},
	views.TypeAnswer:   {"301", "302", "303"},
	views.TypeDraft:    {"401"},
	views.TypeMedia:    {"501", "502"},
}

// 测试数据生成器：为本地快照写入一批浏览记录
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	if err := db.EnsureUser(db.DB, "admin", "admin123"); err != nil {
		log.Fatal("创建管理员失败:", err)
	}

	events := generateViewEvents(time.Now(), rand.New(rand.NewSource(42)))
	stored, err := service.NewViewStore(db.DB).ReplaceSnapshot(context.Background(), events, time.Now())
	if err != nil {
		log.Fatal("写入浏览记录失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: admin (密码: admin123)")
	fmt.Printf("浏览记录: %d 条，覆盖最近 %d 天\n", stored, seedDays)
}

// generateViewEvents 生成最近 seedDays 天内的浏览记录，工作日白天的访问更密集。
func generateViewEvents(now time.Time, rng *rand.Rand) []views.ViewEvent {
	types := make([]views.ViewableType, 0, len(seedViewables))
	for _, t := range views.ViewableTypes {
		if len(seedViewables[t]) > 0 {
			types = append(types, t)
		}
	}

	events := make([]views.ViewEvent, 0, seedViewsTotal)
	for len(events) < seedViewsTotal {
		createdAt := now.Add(-time.Duration(rng.Int63n(int64(seedDays * 24 * time.Hour))))
		if createdAt.Hour() < 7 && rng.Intn(3) > 0 {
			continue
		}

		viewableType := types[rng.Intn(len(types))]
		ids := seedViewables[viewableType]

		event := views.ViewEvent{
			ID:           uuid.NewString(),
			ViewableType: viewableType,
			ViewableID:   ids[rng.Intn(len(ids))],
			IPAddress:    fmt.Sprintf("192.168.%d.%d", rng.Intn(4), rng.Intn(250)+1),
			CreatedAt:    createdAt,
		}
		if rng.Float64() >= anonymousRatio {
			viewer := seedViewers[rng.Intn(len(seedViewers))]
			userID := viewer.ID
			event.UserID = &userID
			event.User = &viewer
		}
		events = append(events, event)
	}
	return events
}
