package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/user/reelshelf/internal/model"
	"github.com/user/reelshelf/internal/utils"
	"golang.org/x/sync/singleflight"
)

// 列表缓存键
const (
	keyAll         = "movies:all"
	keyTrending    = "movies:trending"
	keyPopular     = "movies:popular"
	keyNewReleases = "movies:new"
	keyGenrePrefix = "movies:genre:"
	keyMoviePrefix = "movies:id:"
)

// sharedFetchTimeout 合并后的回源请求不跟随单个调用方取消，只受这个上限约束
const sharedFetchTimeout = 30 * time.Second

// CachedMovieSource 电影数据源缓存装饰器
// 列表走 go-cache，搜索走带 TTL 的 LRU，并发的相同未命中请求由 singleflight 合并
type CachedMovieSource struct {
	next   MovieSource
	lists  *cache.Cache
	search *utils.SearchCache[[]model.Movie]
	sf     singleflight.Group
	logger *logrus.Entry
}

// NewCachedMovieSource 创建缓存装饰器
func NewCachedMovieSource(next MovieSource, ttl time.Duration, searchSize int, logger *logrus.Logger) *CachedMovieSource {
	return &CachedMovieSource{
		next:   next,
		lists:  utils.NewListCache(ttl),
		search: utils.NewSearchCache[[]model.Movie](searchSize, ttl),
		logger: logger.WithField("component", "movie_cache"),
	}
}

// Unwrap 返回被装饰的数据源
func (c *CachedMovieSource) Unwrap() MovieSource {
	return c.next
}

func (c *CachedMovieSource) GetAll(ctx context.Context) ([]model.Movie, error) {
	return c.list(ctx, keyAll, c.next.GetAll)
}

func (c *CachedMovieSource) GetByID(ctx context.Context, id int) (*model.Movie, error) {
	key := keyMoviePrefix + strconv.Itoa(id)
	if v, ok := c.lists.Get(key); ok {
		m := v.(model.Movie).Clone()
		return &m, nil
	}
	v, err := c.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		m, err := c.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		c.lists.SetDefault(key, m.Clone())
		return *m, nil
	})
	if err != nil {
		return nil, err
	}
	m := v.(model.Movie).Clone()
	return &m, nil
}

func (c *CachedMovieSource) GetTrending(ctx context.Context) ([]model.Movie, error) {
	return c.list(ctx, keyTrending, c.next.GetTrending)
}

func (c *CachedMovieSource) GetByGenre(ctx context.Context, genre string) ([]model.Movie, error) {
	return c.list(ctx, keyGenrePrefix+strings.ToLower(genre), func(ctx context.Context) ([]model.Movie, error) {
		return c.next.GetByGenre(ctx, genre)
	})
}

func (c *CachedMovieSource) Search(ctx context.Context, query string) ([]model.Movie, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return []model.Movie{}, nil
	}
	if movies, ok := c.search.Get(key); ok {
		return cloneMovies(movies), nil
	}
	v, err := c.shared(ctx, "search:"+key, func(ctx context.Context) (interface{}, error) {
		movies, err := c.next.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		c.search.Set(key, cloneMovies(movies))
		return movies, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneMovies(v.([]model.Movie)), nil
}

func (c *CachedMovieSource) GetPopular(ctx context.Context) ([]model.Movie, error) {
	return c.list(ctx, keyPopular, c.next.GetPopular)
}

func (c *CachedMovieSource) GetNewReleases(ctx context.Context) ([]model.Movie, error) {
	return c.list(ctx, keyNewReleases, c.next.GetNewReleases)
}

// Invalidate 清空所有缓存
func (c *CachedMovieSource) Invalidate() {
	c.lists.Flush()
	c.search.Clear()
	c.logger.Info("电影缓存已清空")
}

// Warm 预热首页用到的列表
func (c *CachedMovieSource) Warm(ctx context.Context) error {
	loaders := map[string]func(context.Context) ([]model.Movie, error){
		keyAll:         c.next.GetAll,
		keyTrending:    c.next.GetTrending,
		keyPopular:     c.next.GetPopular,
		keyNewReleases: c.next.GetNewReleases,
	}
	for key, load := range loaders {
		movies, err := load(ctx)
		if err != nil {
			return err
		}
		c.lists.SetDefault(key, cloneMovies(movies))
	}
	return nil
}

func (c *CachedMovieSource) list(ctx context.Context, key string, load func(context.Context) ([]model.Movie, error)) ([]model.Movie, error) {
	if v, ok := c.lists.Get(key); ok {
		return cloneMovies(v.([]model.Movie)), nil
	}
	v, err := c.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		movies, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.lists.SetDefault(key, cloneMovies(movies))
		return movies, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneMovies(v.([]model.Movie)), nil
}

// shared 合并相同 key 的并发回源
// 回源使用脱离调用方取消的 ctx，每个调用方只按自己的 ctx 放弃等待
func (c *CachedMovieSource) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := c.sf.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return fn(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func cloneMovies(movies []model.Movie) []model.Movie {
	out := make([]model.Movie, len(movies))
	for i, m := range movies {
		out[i] = m.Clone()
	}
	return out
}
