package livecalc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/impact-engine/internal/waterfall"
)

func TestKey_String(t *testing.T) {
	assert.Equal(t, "impact:livecalc:org-1:proc-9", Key{OrgID: "org-1", ProcessID: "proc-9"}.String())
}

func TestEntry_IsExpired(t *testing.T) {
	stored := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Entry{StoredAt: stored}
	assert.False(t, e.IsExpired(stored.Add(DefaultTTL-time.Second), DefaultTTL))
	assert.True(t, e.IsExpired(stored.Add(DefaultTTL), DefaultTTL))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	k := Key{OrgID: "o", ProcessID: "p"}

	got, err := c.Get(ctx, k)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(ctx, k, Entry{Result: waterfall.LiveResult{ProcessID: "p"}}))
	got, err = c.Get(ctx, k)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p", got.Result.ProcessID)
}

type fakeRepo struct {
	entries map[Key]Entry
}

func (f *fakeRepo) GetLiveCalcCache(_ context.Context, key Key) (*Entry, error) {
	e, ok := f.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeRepo) PutLiveCalcCache(_ context.Context, key Key, entry Entry) error {
	f.entries[key] = entry
	return nil
}

func TestStoreCache(t *testing.T) {
	repo := &fakeRepo{entries: map[Key]Entry{}}
	c := NewStoreCache(repo)
	k := Key{OrgID: "o", ProcessID: "p"}

	require.NoError(t, c.Put(context.Background(), k, Entry{Result: waterfall.LiveResult{Method: "EF 3.1"}}))
	got, err := c.Get(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, "EF 3.1", got.Result.Method)
}

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	if f.getErr != nil {
		return goredis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd {
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return goredis.NewStatusResult("OK", nil)
}

func TestRedisCache(t *testing.T) {
	rdb := &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
	c := NewRedisCache(rdb, 0)
	ctx := context.Background()
	k := Key{OrgID: "org", ProcessID: "proc"}

	got, err := c.Get(ctx, k)
	require.NoError(t, err)
	assert.Nil(t, got)

	stored := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	entry := Entry{
		Result:   waterfall.LiveResult{ProcessID: "proc", Factors: waterfall.FactorSet{Climate: waterfall.Float(1.25)}},
		StoredAt: stored,
	}
	require.NoError(t, c.Put(ctx, k, entry))
	assert.Equal(t, DefaultTTL, rdb.ttls["impact:livecalc:org:proc"])

	var raw Entry
	require.NoError(t, json.Unmarshal([]byte(rdb.values["impact:livecalc:org:proc"]), &raw))
	assert.Equal(t, 1.25, *raw.Result.Factors.Climate)

	got, err = c.Get(ctx, k)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, stored.Equal(got.StoredAt))
	assert.Equal(t, 1.25, *got.Result.Factors.Climate)
}

func TestRedisCache_Errors(t *testing.T) {
	rdb := &fakeRedis{values: map[string]string{"impact:livecalc:o:p": "{bad"}, ttls: map[string]time.Duration{}}
	c := NewRedisCache(rdb, time.Hour)

	_, err := c.Get(context.Background(), Key{OrgID: "o", ProcessID: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "livecalc: decode cache entry")

	rdb.getErr = errors.New("connection refused")
	_, err = c.Get(context.Background(), Key{OrgID: "o", ProcessID: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "livecalc: redis get")
}
