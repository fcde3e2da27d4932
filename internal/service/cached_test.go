package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelshelf/internal/model"
)

// countingSource 统计对底层数据源的调用次数
type countingSource struct {
	MovieSource
	all    int32
	search int32
	byID   int32
	fail   error
}

func (c *countingSource) GetAll(ctx context.Context) ([]model.Movie, error) {
	atomic.AddInt32(&c.all, 1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.MovieSource.GetAll(ctx)
}

func (c *countingSource) Search(ctx context.Context, q string) ([]model.Movie, error) {
	atomic.AddInt32(&c.search, 1)
	return c.MovieSource.Search(ctx, q)
}

func (c *countingSource) GetByID(ctx context.Context, id int) (*model.Movie, error) {
	atomic.AddInt32(&c.byID, 1)
	return c.MovieSource.GetByID(ctx, id)
}

func newCounting(t *testing.T) *countingSource {
	return &countingSource{MovieSource: newMockMovies(t)}
}

func TestCachedMovieSourceCachesLists(t *testing.T) {
	src := newCounting(t)
	cached := NewCachedMovieSource(src, time.Minute, 10, testLogger())
	ctx := context.Background()

	first, err := cached.GetAll(ctx)
	require.NoError(t, err)
	second, err := cached.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, movieIDs(first), movieIDs(second))
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.all))

	// 返回的是副本
	second[0].Title = "changed"
	third, err := cached.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The Dark Knight", third[0].Title)

	cached.Invalidate()
	_, err = cached.GetAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&src.all))
}

func TestCachedMovieSourceSearchIsCaseInsensitiveKey(t *testing.T) {
	src := newCounting(t)
	cached := NewCachedMovieSource(src, time.Minute, 10, testLogger())
	ctx := context.Background()

	a, err := cached.Search(ctx, "Nolan")
	require.NoError(t, err)
	b, err := cached.Search(ctx, " nolan ")
	require.NoError(t, err)
	assert.Equal(t, movieIDs(a), movieIDs(b))
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.search))

	empty, err := cached.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.search))
}

func TestCachedMovieSourceGetByID(t *testing.T) {
	src := newCounting(t)
	cached := NewCachedMovieSource(src, time.Minute, 10, testLogger())
	ctx := context.Background()

	m, err := cached.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Interstellar", m.Title)
	_, err = cached.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.byID))

	// 不存在的结果不缓存
	_, err = cached.GetByID(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cached.GetByID(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 3, atomic.LoadInt32(&src.byID))
}

func TestCachedMovieSourceDoesNotCacheErrors(t *testing.T) {
	src := newCounting(t)
	src.fail = errors.New("upstream unavailable")
	cached := NewCachedMovieSource(src, time.Minute, 10, testLogger())
	ctx := context.Background()

	_, err := cached.GetAll(ctx)
	assert.EqualError(t, err, "upstream unavailable")

	src.fail = nil
	movies, err := cached.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, movies, 20)
}

func TestCachedMovieSourceConcurrentReaders(t *testing.T) {
	src := newCounting(t)
	cached := NewCachedMovieSource(src, time.Minute, 10, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			movies, err := cached.GetAll(context.Background())
			assert.NoError(t, err)
			assert.Len(t, movies, 20)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&src.all), int32(16))
}

// slowSource 回源时阻塞，直到 release 关闭或自身 ctx 结束
type slowSource struct {
	MovieSource
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowSource) GetAll(ctx context.Context) ([]model.Movie, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return s.MovieSource.GetAll(ctx)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCachedMovieSourceCallerCancelDoesNotAffectOthers(t *testing.T) {
	src := &slowSource{MovieSource: newMockMovies(t), started: make(chan struct{}), release: make(chan struct{})}
	cached := NewCachedMovieSource(src, time.Minute, 10, testLogger())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cached.GetAll(ctxA)
		errA <- err
	}()
	<-src.started

	type result struct {
		movies []model.Movie
		err    error
	}
	resB := make(chan result, 1)
	go func() {
		movies, err := cached.GetAll(context.Background())
		resB <- result{movies, err}
	}()
	time.Sleep(20 * time.Millisecond)

	// A 断开后立即返回，B 继续等待同一次回源
	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(src.release)
	select {
	case r := <-resB:
		require.NoError(t, r.err)
		assert.Len(t, r.movies, 20)
	case <-time.After(time.Second):
		t.Fatal("independent caller did not return")
	}

	// 回源结果已写入缓存
	movies, err := cached.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, movies, 20)
}

func TestCachedMovieSourceWarm(t *testing.T) {
	src := newCounting(t)
	cached := NewCachedMovieSource(src, time.Minute, 10, testLogger())

	require.NoError(t, cached.Warm(context.Background()))
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.all))

	_, err := cached.GetAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.all))
}
