package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type mapCacheRepo struct {
	data   map[string][]byte
	getErr error
}

func (r *mapCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *mapCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.data[key] = raw
	return nil
}

func (r *mapCacheRepo) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	n := 0
	for key := range r.data {
		if strings.HasPrefix(key, prefix) {
			delete(r.data, key)
			n++
		}
	}
	return n, nil
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	repo := &mapCacheRepo{data: map[string][]byte{}}
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out []string
	hit, err := cache.Get(ctx, "ranking:lesson:l1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "ranking:lesson:l1", []string{"U"}, 0))
	hit, err = cache.Get(ctx, "ranking:lesson:l1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"U"}, out)

	body := scrape(t, metrics)
	assert.Contains(t, body, "ranking_cache_hits_total 1")
	assert.Contains(t, body, "ranking_cache_misses_total 1")
	assert.Contains(t, body, "ranking_cache_hit_ratio 0.5")

	require.NoError(t, cache.Invalidate(ctx, rankingCachePattern))
	assert.Empty(t, repo.data)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &mapCacheRepo{data: map[string][]byte{}}
	cache := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, cache.Set(context.Background(), "k", "v", 0))
	assert.Empty(t, repo.data)
	hit, err := cache.Get(context.Background(), "k", new(string))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceGetError(t *testing.T) {
	repo := &mapCacheRepo{data: map[string][]byte{}, getErr: errors.New("redis down")}
	cache := NewCacheService(repo, nil, 0, nil, true)

	hit, err := cache.Get(context.Background(), "k", new(string))
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestMetricsServiceCounters(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordAssignment(NotificationLesson, "TEACHER_SUBSTITUTE", "auto")
	metrics.RecordAssignment(NotificationLesson, "TEACHER_SUBSTITUTE", "auto")
	metrics.RecordRemoval(NotificationSupervision)
	metrics.ObserveAutoAssign("ok", 2, 1, time.Millisecond)
	metrics.RecordNotification(NotificationLesson, "sent")

	body := scrape(t, metrics)
	assert.Contains(t, body, `substitution_assignments_total{coverage_type="TEACHER_SUBSTITUTE",kind="lesson",origin="auto"} 2`)
	assert.Contains(t, body, `substitution_removals_total{kind="supervision"} 1`)
	assert.Contains(t, body, `auto_assign_items_total{result="assigned"} 2`)
	assert.Contains(t, body, `auto_assign_items_total{result="failed"} 1`)
	assert.Contains(t, body, `substitution_notifications_total{kind="lesson",result="sent"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	assert.NotPanics(t, func() {
		metrics.RecordAssignment("lesson", "CANCELLED", "manual")
		metrics.RecordRemoval("lesson")
		metrics.ObserveAutoAssign("ok", 0, 0, 0)
		metrics.RecordNotification("lesson", "failed")
		metrics.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	})
}

func scrape(t *testing.T, metrics *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
