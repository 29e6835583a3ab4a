package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkboard/internal/db"
	"github.com/inkboard/internal/handler"
	"github.com/inkboard/internal/metrics"
	"github.com/inkboard/internal/service"
	"github.com/inkboard/internal/views"
	"github.com/sirupsen/logrus"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := db.EnsureUser(gdb, "admin", "s3cret"); err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}

	store := service.NewViewStore(gdb)
	userID := "u1"
	seed := []views.ViewEvent{
		{ID: "v1", UserID: &userID, ViewableType: views.TypePost, ViewableID: "p1", IPAddress: "10.0.0.1",
			CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), User: &views.Viewer{ID: "u1", Name: "Alice"}},
		{ID: "v2", ViewableType: views.TypeMedia, ViewableID: "m1", IPAddress: "10.0.0.2",
			CreatedAt: time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)},
	}
	if _, err := store.ReplaceSnapshot(context.Background(), seed, time.Now()); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	m := metrics.New()
	cache := service.NewResultCache(16).WithObserver(m.CacheHit, m.CacheMiss)
	analytics := service.NewAnalyticsService(store, cache, time.UTC).WithClock(func() time.Time {
		return time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	})
	syncer := service.NewSyncService(nil, store, cache, m, log)

	api := handler.NewAPI(gdb, analytics, syncer, store, log)
	return SetupRouter(api, "test-secret", log, m)
}

func TestSetupRouterPublicEndpoints(t *testing.T) {
	r := setupTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "pong") {
		t.Fatalf("unexpected ping response %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"sync":false`) {
		t.Fatalf("unexpected health response %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "inkboard_http_requests_total") {
		t.Fatalf("expected request metrics, got %d", rr.Code)
	}
}

func TestSetupRouterProtectsViewsAPI(t *testing.T) {
	r := setupTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/api/views/summary", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rr.Code)
	}

	login := httptest.NewRequest(http.MethodPost, "/admin/api/login", bytes.NewBufferString(`{"username":"admin","password":"s3cret"}`))
	login.Header.Set("Content-Type", "application/json")
	loginRec := httptest.NewRecorder()
	r.ServeHTTP(loginRec, login)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", loginRec.Code, loginRec.Body.String())
	}
	cookies := loginRec.Result().Cookies()

	get := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		rec := get("/admin/api/views/summary")
		if rec.Code != http.StatusOK {
			t.Fatalf("summary returned %d: %s", rec.Code, rec.Body.String())
		}
		var summary views.Summary
		if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
			t.Fatalf("decode summary: %v", err)
		}
		if summary.Total != 2 || summary.Authenticated != 1 || summary.Anonymous != 1 {
			t.Fatalf("unexpected summary %+v", summary)
		}
	}

	metricsRec := get("/metrics")
	if !strings.Contains(metricsRec.Body.String(), `inkboard_cache_lookups_total{outcome="hit"} 1`) {
		t.Fatalf("expected one cache hit in metrics:\n%s", metricsRec.Body.String())
	}

	rec := get("/admin/api/views?type=media")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Fatalf("unexpected list response %d %s", rec.Code, rec.Body.String())
	}

	syncReq := httptest.NewRequest(http.MethodPost, "/admin/api/views/sync", nil)
	for _, c := range cookies {
		syncReq.AddCookie(c)
	}
	syncRec := httptest.NewRecorder()
	r.ServeHTTP(syncRec, syncReq)
	if syncRec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected sync disabled, got %d", syncRec.Code)
	}
}
