package leads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotationCacheFetchesOnce(t *testing.T) {
	source := newStubSource(samplePayload())
	telemetry := &recordingTelemetry{}
	cache := NewQuotationCache(CacheOptions{Source: source, Telemetry: telemetry})

	first, err := cache.EnsureLoaded(context.Background())
	require.NoError(t, err)
	second, err := cache.EnsureLoaded(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), source.calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, telemetry.count(EventCacheHit))
}

func TestQuotationCacheSharesInflightFetch(t *testing.T) {
	source := newStubSource(samplePayload())
	source.gate = make(chan struct{})
	source.started = make(chan struct{}, 1)
	cache := NewQuotationCache(CacheOptions{Source: source})

	const callers = 16
	var wg sync.WaitGroup
	results := make([]QuotationPayload, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.EnsureLoaded(context.Background())
		}(i)
	}
	<-source.started
	time.Sleep(10 * time.Millisecond)
	close(source.gate)
	wg.Wait()

	assert.Equal(t, int32(1), source.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i].Users, 3)
	}
}

func TestQuotationCacheFailureLeavesCacheEmpty(t *testing.T) {
	source := newStubSource(QuotationPayload{})
	source.set(QuotationPayload{}, errBackendDown)
	notifier := &recordingNotifier{}
	cache := NewQuotationCache(CacheOptions{Source: source, Notifier: notifier})

	_, err := cache.EnsureLoaded(context.Background())
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
	assert.ErrorIs(t, err, errBackendDown)
	_, ok := cache.Snapshot()
	assert.False(t, ok)
	assert.Equal(t, []string{MsgConnectionFailed}, notifier.messages())

	source.set(samplePayload(), nil)
	payload, err := cache.EnsureLoaded(context.Background())
	require.NoError(t, err)
	assert.Len(t, payload.Users, 3)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestQuotationCacheUnsuccessfulResponseMessage(t *testing.T) {
	source := newStubSource(QuotationPayload{})
	source.set(QuotationPayload{}, ErrUnsuccessfulResponse)
	notifier := &recordingNotifier{}
	cache := NewQuotationCache(CacheOptions{Source: source, Notifier: notifier})

	_, err := cache.EnsureLoaded(context.Background())
	require.ErrorIs(t, err, ErrUnsuccessfulResponse)
	assert.Equal(t, []string{MsgFetchFailed}, notifier.messages())
}

func TestQuotationCacheInvalidateDuringFetchDropsResult(t *testing.T) {
	source := newStubSource(samplePayload())
	source.gate = make(chan struct{})
	source.started = make(chan struct{}, 1)
	cache := NewQuotationCache(CacheOptions{Source: source})

	done := make(chan QuotationPayload, 1)
	go func() {
		payload, err := cache.EnsureLoaded(context.Background())
		assert.NoError(t, err)
		done <- payload
	}()
	<-source.started
	cache.Invalidate()
	close(source.gate)

	delivered := <-done
	assert.Len(t, delivered.Users, 3, "stale fetch still answers its waiter")
	_, ok := cache.Snapshot()
	assert.False(t, ok, "stale fetch must not populate the cache")
	assert.Equal(t, uint64(1), cache.Generation())

	source.gate = nil
	source.started = nil
	_, err := cache.EnsureLoaded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestQuotationCacheCancelledWaiterDoesNotCancelFetch(t *testing.T) {
	source := newStubSource(samplePayload())
	source.gate = make(chan struct{})
	source.started = make(chan struct{}, 1)
	cache := NewQuotationCache(CacheOptions{Source: source})

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := cache.EnsureLoaded(ctx)
		cancelled <- err
	}()
	<-source.started

	patient := make(chan error, 1)
	go func() {
		_, err := cache.EnsureLoaded(context.Background())
		patient <- err
	}()

	cancel()
	err := <-cancelled
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, IsFetchError(err))

	close(source.gate)
	require.NoError(t, <-patient)
	_, ok := cache.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestQuotationCacheRefreshRefetches(t *testing.T) {
	source := newStubSource(samplePayload())
	cache := NewQuotationCache(CacheOptions{Source: source})
	_, err := cache.EnsureLoaded(context.Background())
	require.NoError(t, err)

	source.set(QuotationPayload{Users: samplePayload().Users[:1]}, nil)
	payload, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, payload.Users, 1)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestQuotationCacheWithoutSource(t *testing.T) {
	cache := NewQuotationCache(CacheOptions{})
	_, err := cache.EnsureLoaded(context.Background())
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
}

func TestQuotationCacheLoadGenerationSkipsStaleGeneration(t *testing.T) {
	source := newStubSource(samplePayload())
	cache := NewQuotationCache(CacheOptions{Source: source})
	gen := cache.Generation()

	cache.Invalidate()
	_, err := cache.LoadGeneration(context.Background(), gen)
	require.ErrorIs(t, err, ErrStaleGeneration)
	assert.Equal(t, int32(0), source.calls.Load())

	payload, err := cache.LoadGeneration(context.Background(), cache.Generation())
	require.NoError(t, err)
	assert.Len(t, payload.Users, len(samplePayload().Users))
	assert.Equal(t, int32(1), source.calls.Load())
}
