package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock はテスト用に手動で進められる時計です。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type payload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// TestGetOrCompute_HitWithinTTL はTTL内の再リクエストでcomputeが1回しか呼ばれないことを検証します。
func TestGetOrCompute_HitWithinTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	memo := NewMemo(NewMemoryStore(10, DefaultTTL, clock))
	ctx := context.Background()

	calls := 0
	compute := func(ctx context.Context) (payload, error) {
		calls++
		return payload{Symbol: "AAPL", Price: 189.5}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrCompute(ctx, memo, "stock:AAPL", DefaultTTL, compute)
		require.NoError(t, err)
		assert.Equal(t, payload{Symbol: "AAPL", Price: 189.5}, v)
		clock.Advance(10 * time.Second)
	}
	assert.Equal(t, 1, calls)
}

// TestGetOrCompute_RecomputesAfterTTL はTTL経過後に再度computeが呼ばれることを検証します。
func TestGetOrCompute_RecomputesAfterTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	memo := NewMemo(NewMemoryStore(10, DefaultTTL, clock))
	ctx := context.Background()

	calls := 0
	compute := func(ctx context.Context) (payload, error) {
		calls++
		return payload{Symbol: "AAPL", Price: float64(calls)}, nil
	}

	v, err := GetOrCompute(ctx, memo, "k", DefaultTTL, compute)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Price)

	clock.Advance(59 * time.Second)
	v, err = GetOrCompute(ctx, memo, "k", DefaultTTL, compute)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Price)

	// age == TTL is stale
	clock.Advance(time.Second)
	v, err = GetOrCompute(ctx, memo, "k", DefaultTTL, compute)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Price)
	assert.Equal(t, 2, calls)
}

// TestGetOrCompute_ErrorNotCached は失敗した計算結果がキャッシュされず、エラーがそのまま伝播することを検証します。
func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	t.Parallel()

	memo := NewMemo(NewMemoryStore(10, DefaultTTL, newFakeClock()))
	ctx := context.Background()
	errBoom := errors.New("boom")

	calls := 0
	_, err := GetOrCompute(ctx, memo, "k", DefaultTTL, func(ctx context.Context) (payload, error) {
		calls++
		return payload{}, errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	v, err := GetOrCompute(ctx, memo, "k", DefaultTTL, func(ctx context.Context) (payload, error) {
		calls++
		return payload{Symbol: "OK"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "OK", v.Symbol)
	assert.Equal(t, 2, calls)
}

// TestGetOrCompute_DistinctKeys はキーごとに独立してキャッシュされることを検証します。
func TestGetOrCompute_DistinctKeys(t *testing.T) {
	t.Parallel()

	memo := NewMemo(NewMemoryStore(10, DefaultTTL, newFakeClock()))
	ctx := context.Background()

	calls := map[string]int{}
	for _, key := range []string{"history:AAPL:1mo", "history:AAPL:3mo", "history:AAPL:1mo"} {
		key := key
		_, err := GetOrCompute(ctx, memo, key, DefaultTTL, func(ctx context.Context) (int, error) {
			calls[key]++
			return len(key), nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls["history:AAPL:1mo"])
	assert.Equal(t, 1, calls["history:AAPL:3mo"])
}

// TestGetOrCompute_CorruptedEntry は破損したエントリを削除して再計算することを検証します。
func TestGetOrCompute_CorruptedEntry(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(10, DefaultTTL, newFakeClock())
	memo := NewMemo(store)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("{not json"), DefaultTTL)

	calls := 0
	v, err := GetOrCompute(ctx, memo, "k", DefaultTTL, func(ctx context.Context) (payload, error) {
		calls++
		return payload{Symbol: "MSFT"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "MSFT", v.Symbol)
	assert.Equal(t, 1, calls)

	b, ok := store.Get(ctx, "k", DefaultTTL)
	require.True(t, ok)
	assert.JSONEq(t, `{"symbol":"MSFT","price":0}`, string(b))
}

// TestGetOrCompute_SingleFlight は同一キーへの同時リクエストで計算が1回に集約されることを検証します。
func TestGetOrCompute_SingleFlight(t *testing.T) {
	t.Parallel()

	memo := NewMemo(NewMemoryStore(10, DefaultTTL, newFakeClock()))
	ctx := context.Background()

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) (payload, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return payload{Symbol: "TSLA"}, nil
	}

	var wg sync.WaitGroup
	results := make([]payload, 8)
	errs := make([]error, 8)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = GetOrCompute(ctx, memo, "k", DefaultTTL, compute)
	}()
	<-started

	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = GetOrCompute(ctx, memo, "k", DefaultTTL, compute)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "TSLA", results[i].Symbol)
	}
}

// TestGetOrCompute_CallerCancelled は待機中の呼び出し元がキャンセルされた場合に即座に戻ることを検証します。
func TestGetOrCompute_CallerCancelled(t *testing.T) {
	t.Parallel()

	memo := NewMemo(NewMemoryStore(10, DefaultTTL, newFakeClock()))
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := GetOrCompute(ctx, memo, "k", DefaultTTL, func(ctx context.Context) (payload, error) {
		<-release
		return payload{}, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestGetOrCompute_PanicBecomesError はcompute内のpanicがエラーに変換されることを検証します。
func TestGetOrCompute_PanicBecomesError(t *testing.T) {
	t.Parallel()

	memo := NewMemo(NewMemoryStore(10, DefaultTTL, newFakeClock()))
	_, err := GetOrCompute(context.Background(), memo, "k", DefaultTTL, func(ctx context.Context) (payload, error) {
		panic("provider exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider exploded")
}

func TestKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		parts    []string
		expected string
	}{
		{[]string{"stock", "AAPL"}, "stock:AAPL"},
		{[]string{"history", "BRK A", "1mo"}, "history:BRK_A:1mo"},
		{[]string{"history", "a:b", "5d"}, "history:a_b:5d"},
		{[]string{"x", ""}, "x:"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Key(tt.parts...))
	}
}
