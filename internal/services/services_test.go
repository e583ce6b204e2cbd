package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/colegio-digital/grading-service/internal/cache"
	"github.com/colegio-digital/grading-service/internal/events"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories/postgres"
	"github.com/colegio-digital/grading-service/internal/testutil"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

const teacherID uint = 100

var (
	admin    = models.Actor{ID: 1, Role: models.RoleAdmin}
	operator = models.Actor{ID: 2, Role: models.RoleOperator}
	teacher  = models.Actor{ID: teacherID, Role: models.RoleTeacher}
	stranger = models.Actor{ID: 200, Role: models.RoleTeacher}
	parent   = models.Actor{ID: 300, Role: models.RoleParent}
)

// env is a service manager over a seeded sqlite database
type env struct {
	db        *gorm.DB
	fx        *testutil.Fixture
	manager   ServiceManager
	publisher *events.MockEventPublisher
	cache     *memCache
}

func newEnv(t *testing.T, students int) *env {
	return newEnvWith(t, students, func(*Dependencies) {})
}

func newEnvWith(t *testing.T, students int, configure func(*Dependencies)) *env {
	t.Helper()

	db := testutil.NewTestDB(t)
	fx := testutil.Seed(t, db, teacherID, students)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := events.NewMockEventPublisher(logger)
	memory := newMemCache()

	deps := Dependencies{
		Repo:      postgres.NewRepository(db),
		Cache:     memory,
		Publisher: publisher,
		Logger:    logger,
		Settings:  DefaultSettings(),
	}
	configure(&deps)

	return &env{
		db:        db,
		fx:        fx,
		manager:   NewServiceManager(deps),
		publisher: publisher,
		cache:     memory,
	}
}

func (e *env) reloadUnit(t *testing.T, id uint) *models.Unit {
	t.Helper()
	var unit models.Unit
	if err := e.db.First(&unit, id).Error; err != nil {
		t.Fatalf("failed to reload unit %d: %v", id, err)
	}
	return &unit
}

func (e *env) closeUnitDirectly(t *testing.T, unit *models.Unit) {
	t.Helper()
	err := e.db.Model(&models.Unit{}).Where("id = ?", unit.ID).
		Updates(map[string]interface{}{"status": models.UnitClosed, "is_active": false}).Error
	if err != nil {
		t.Fatalf("failed to close unit: %v", err)
	}
}

func score(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

// memCache is an in-process CacheService that keeps JSON like redis does
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	raw, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memCache) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memCache) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if raw, ok := m.entries[key]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n++
	m.entries[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (m *memCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

// mockAuditSink lets tests assert audit calls and inject failures
type mockAuditSink struct {
	mock.Mock
}

func (m *mockAuditSink) Record(ctx context.Context, actorID uint, action models.AuditAction, detail string) error {
	args := m.Called(ctx, actorID, action, detail)
	return args.Error(0)
}

func (m *mockAuditSink) RecordEntry(ctx context.Context, entry *AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
