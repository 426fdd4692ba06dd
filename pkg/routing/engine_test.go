package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeStore 内存记录存储，统计查询次数
type fakeStore struct {
	records []*Record
	lookups int
}

func (s *fakeStore) FindExact(ctx context.Context, url, sourceLang, targetLang, status string) (*Record, error) {
	s.lookups++
	for _, r := range s.records {
		if r.URL == url && r.SourceLang == sourceLang && r.TargetLang == targetLang && r.Status == status {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByURL(ctx context.Context, url, status string) (*Record, error) {
	s.lookups++
	for _, r := range s.records {
		if r.URL == url && r.Status == status {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindAny(ctx context.Context, url string) (*Record, error) {
	s.lookups++
	for _, r := range s.records {
		if r.URL == url {
			return r, nil
		}
	}
	return nil, nil
}

func newTestEngine(t *testing.T, store RecordStore) *Engine {
	t.Helper()
	return NewEngine(store, DefaultEngineConfig(), zaptest.NewLogger(t))
}

func TestEngine_QueryStatus_Filters(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	t.Run("精确成功记录", func(t *testing.T) {
		store := &fakeStore{records: []*Record{
			{ID: 1, URL: "u", SourceLang: "en", TargetLang: "zh", Status: RecordStatusSuccess, ExpiresAt: &future},
		}}
		result, err := newTestEngine(t, store).QueryStatus(ctx, "u", "en", "zh")
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, result.Status)
		assert.Equal(t, StrategyUseCache, result.Strategy)
		assert.EqualValues(t, 1, result.RecordID)
	})

	t.Run("精确成功但已过期", func(t *testing.T) {
		store := &fakeStore{records: []*Record{
			{ID: 2, URL: "u", SourceLang: "en", TargetLang: "zh", Status: RecordStatusSuccess, ExpiresAt: &past},
		}}
		result, err := newTestEngine(t, store).QueryStatus(ctx, "u", "en", "zh")
		require.NoError(t, err)
		assert.Equal(t, StatusExpired, result.Status)
		assert.Equal(t, StrategyReprocessWithCheck, result.Strategy)
	})

	t.Run("其他语言对的成功记录", func(t *testing.T) {
		store := &fakeStore{records: []*Record{
			{ID: 3, URL: "u", SourceLang: "en", TargetLang: "ja", Status: RecordStatusSuccess},
		}}
		result, err := newTestEngine(t, store).QueryStatus(ctx, "u", "en", "zh")
		require.NoError(t, err)
		assert.Equal(t, StatusExpired, result.Status)
		assert.Equal(t, StrategyReprocessWithCheck, result.Strategy)
	})

	t.Run("处理中记录", func(t *testing.T) {
		store := &fakeStore{records: []*Record{
			{ID: 4, URL: "u", SourceLang: "en", TargetLang: "zh", Status: RecordStatusPending},
		}}
		result, err := newTestEngine(t, store).QueryStatus(ctx, "u", "en", "zh")
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, result.Status)
		assert.Equal(t, StrategyWaitForProcessing, result.Strategy)
	})

	t.Run("仅有失败记录", func(t *testing.T) {
		store := &fakeStore{records: []*Record{
			{ID: 5, URL: "u", SourceLang: "en", TargetLang: "zh", Status: RecordStatusError},
		}}
		result, err := newTestEngine(t, store).QueryStatus(ctx, "u", "en", "zh")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, StrategyFullReprocess, result.Strategy)
	})

	t.Run("无任何记录", func(t *testing.T) {
		store := &fakeStore{}
		result, err := newTestEngine(t, store).QueryStatus(ctx, "u", "en", "zh")
		require.NoError(t, err)
		assert.Equal(t, StatusNotFound, result.Status)
		assert.Equal(t, StrategyFullReprocess, result.Strategy)
		assert.Zero(t, result.RecordID)
	})
}

func TestEngine_QueryStatus_Memoized(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{records: []*Record{
		{ID: 1, URL: "u", SourceLang: "en", TargetLang: "zh", Status: RecordStatusSuccess},
	}}
	engine := newTestEngine(t, store)

	first, err := engine.QueryStatus(ctx, "u", "en", "zh")
	require.NoError(t, err)
	lookupsAfterFirst := store.lookups
	assert.Positive(t, lookupsAfterFirst)

	// 五分钟内的重复查询不再落到存储
	second, err := engine.QueryStatus(ctx, "u", "en", "zh")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, lookupsAfterFirst, store.lookups)
}

func TestEngine_Invalidate(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	engine := newTestEngine(t, store)

	_, err := engine.QueryStatus(ctx, "u", "en", "zh")
	require.NoError(t, err)
	lookups := store.lookups

	engine.Invalidate("u", "en", "zh")

	// 失效后重新查询存储
	_, err = engine.QueryStatus(ctx, "u", "en", "zh")
	require.NoError(t, err)
	assert.Greater(t, store.lookups, lookups)
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	id, err := store.Insert(ctx, &Record{
		URL:        "https://example.com/page",
		SourceLang: "en",
		TargetLang: "zh",
		Status:     RecordStatusSuccess,
		ExpiresAt:  &expires,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	t.Run("FindExact", func(t *testing.T) {
		record, err := store.FindExact(ctx, "https://example.com/page", "en", "zh", RecordStatusSuccess)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, id, record.ID)
		require.NotNil(t, record.ExpiresAt)
	})

	t.Run("FindByURL 任意语言对", func(t *testing.T) {
		record, err := store.FindByURL(ctx, "https://example.com/page", RecordStatusSuccess)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "zh", record.TargetLang)
	})

	t.Run("未命中返回 nil", func(t *testing.T) {
		record, err := store.FindExact(ctx, "https://example.com/other", "en", "zh", RecordStatusSuccess)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		require.NoError(t, store.UpdateStatus(ctx, id, RecordStatusError))
		record, err := store.FindAny(ctx, "https://example.com/page")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, RecordStatusError, record.Status)
	})

	t.Run("Lookups 计数", func(t *testing.T) {
		assert.Positive(t, store.Lookups())
	})
}

func TestEngine_WithSQLiteStore(t *testing.T) {
	store, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	engine := newTestEngine(t, store)

	// 第一次查询落库
	result, err := engine.QueryStatus(ctx, "https://example.com", "en", "zh")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, result.Status)
	lookups := store.Lookups()

	// 第二次查询走决策缓存
	_, err = engine.QueryStatus(ctx, "https://example.com", "en", "zh")
	require.NoError(t, err)
	assert.Equal(t, lookups, store.Lookups())
}
