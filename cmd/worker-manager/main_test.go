package main

import (
	"path/filepath"
	"runtime"
	"testing"

	"passport-workers/internal/common/config"
	"passport-workers/internal/common/logger"
	"passport-workers/internal/scoring"
	"passport-workers/pkg/registry"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryPath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs", "activity-registry.json")
}

func createTestDependencies(t *testing.T) *dependencies {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{"http://127.0.0.1:9200"}})
	require.NoError(t, err)

	return &dependencies{
		cfg: &config.Config{
			Passport: config.PassportConfig{HistoryLimit: 5, HistoryCacheTTL: 600, PaymentCacheTTL: 60},
		},
		engine: scoring.NewEngine(),
		prices: scoring.DefaultPricePoints,
		db:     db,
		redis:  rdb,
		es:     es,
		log:    logger.NewTestLogger(t),
	}
}

func TestRegistrations_UniqueTaskTypes(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range registrations() {
		assert.False(t, seen[r.taskType], "duplicate task type %s", r.taskType)
		seen[r.taskType] = true
	}
	assert.Len(t, seen, 8)
}

func TestRegistrations_MatchActivityRegistry(t *testing.T) {
	reg, err := registry.LoadRegistry(registryPath(t))
	require.NoError(t, err)

	assert.Empty(t, missingFromRegistry(reg))
	assert.Len(t, reg.Activities, len(registrations()))
}

func TestRegistrations_MissingTaskTypeReported(t *testing.T) {
	reg := &registry.ActivityRegistry{Activities: []registry.Activity{
		{ID: "generate-credit-passport", TaskType: "generate-credit-passport"},
	}}

	missing := missingFromRegistry(reg)
	assert.Len(t, missing, len(registrations())-1)
	assert.NotContains(t, missing, "generate-credit-passport")
}

func TestRegistrations_BuildHandlers(t *testing.T) {
	d := createTestDependencies(t)
	for _, r := range registrations() {
		t.Run(r.taskType, func(t *testing.T) {
			assert.NotNil(t, r.build(d, config.GetDuration(5000)))
		})
	}
}
