package service

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/user/reelshelf/internal/config"
	"github.com/user/reelshelf/internal/recordstore"
	"github.com/user/reelshelf/internal/repository"
)

// Sources 按配置选出的数据源
type Sources struct {
	Kind      string
	Movies    MovieSource
	Watchlist WatchlistSource
	// Cache 电影缓存装饰器，Movies 即为它
	Cache *CachedMovieSource
	// Writer 仅 database 数据源可写
	Writer MovieWriter
}

// Deps 构造数据源需要的外部依赖
type Deps struct {
	Repos  *repository.Repositories
	Store  RecordStore
	Logger *logrus.Logger
}

// NewSources 根据 DATA_SOURCE 选择 mock / remote / database
func NewSources(cfg *config.Config, deps Deps) (*Sources, error) {
	var (
		movies    MovieSource
		watchlist WatchlistSource
		writer    MovieWriter
	)

	switch cfg.DataSource {
	case config.SourceMock:
		m, err := NewMockMovieSource(nil, cfg.MockLatency)
		if err != nil {
			return nil, err
		}
		w, err := NewMockWatchlistSource(nil, cfg.MockLatency)
		if err != nil {
			return nil, err
		}
		movies, watchlist = m, w

	case config.SourceRemote:
		store := deps.Store
		if store == nil {
			client, err := recordstore.New(recordstore.Options{
				BaseURL:           cfg.RecordStoreURL,
				ProjectID:         cfg.RecordStoreProjectID,
				PublicKey:         cfg.RecordStorePublicKey,
				Timeout:           cfg.RecordStoreTimeout,
				RequestsPerSecond: cfg.RecordStoreRPS,
			}, deps.Logger)
			if err != nil {
				return nil, err
			}
			store = client
		}
		movies = NewRemoteMovieSource(store, deps.Logger)
		watchlist = NewRemoteWatchlistSource(store, deps.Logger)

	case config.SourceDatabase:
		if deps.Repos == nil {
			return nil, fmt.Errorf("database source requires repositories")
		}
		db := NewDBMovieSource(deps.Repos.Movie, deps.Logger)
		movies, writer = db, db
		watchlist = NewDBWatchlistSource(deps.Repos.Watchlist)

	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}

	cached := NewCachedMovieSource(movies, cfg.CacheTTL, cfg.SearchCacheSize, deps.Logger)
	return &Sources{
		Kind:      cfg.DataSource,
		Movies:    cached,
		Watchlist: watchlist,
		Cache:     cached,
		Writer:    writer,
	}, nil
}
