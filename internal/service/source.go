package service

import (
	"context"
	"errors"
	"sort"

	"github.com/user/reelshelf/internal/model"
)

// ErrNotFound 电影或清单条目不存在
var ErrNotFound = errors.New("not found")

// 各数据源共用的查询常量
const (
	TrendingLimit     = 8
	PopularMinRating  = 7.5
	NewReleaseMinYear = 2022
)

// MovieSource 电影查询；mock、remote、database 三种实现签名一致
type MovieSource interface {
	GetAll(ctx context.Context) ([]model.Movie, error)
	GetByID(ctx context.Context, id int) (*model.Movie, error)
	GetTrending(ctx context.Context) ([]model.Movie, error)
	GetByGenre(ctx context.Context, genre string) ([]model.Movie, error)
	Search(ctx context.Context, query string) ([]model.Movie, error)
	GetPopular(ctx context.Context) ([]model.Movie, error)
	GetNewReleases(ctx context.Context) ([]model.Movie, error)
}

// WatchlistSource 待看清单 CRUD
type WatchlistSource interface {
	GetAll(ctx context.Context) ([]model.WatchlistEntry, error)
	GetByID(ctx context.Context, id int) (*model.WatchlistEntry, error)
	Create(ctx context.Context, movieID int) (*model.WatchlistEntry, error)
	Update(ctx context.Context, id int, patch model.WatchlistPatch) (*model.WatchlistEntry, error)
	Delete(ctx context.Context, id int) error
	// GetByMovieID 不存在时返回 nil, nil
	GetByMovieID(ctx context.Context, movieID int) (*model.WatchlistEntry, error)
	// IsInWatchlist 出错时返回 false
	IsInWatchlist(ctx context.Context, movieID int) bool
}

// MovieWriter 支持写入目录的数据源（仅 database）
type MovieWriter interface {
	Upsert(ctx context.Context, movie *model.Movie) error
	Delete(ctx context.Context, id int) error
}

// SimilarFinder 支持向量相似查询的数据源
type SimilarFinder interface {
	Similar(ctx context.Context, id, limit int) ([]model.Movie, error)
}

func sortByRating(movies []model.Movie) {
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].Rating > movies[j].Rating
	})
}

func sortByYear(movies []model.Movie) {
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].Year > movies[j].Year
	})
}

func sortByAdded(entries []model.WatchlistEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AddedDate.After(entries[j].AddedDate)
	})
}

func topN(movies []model.Movie, n int) []model.Movie {
	if len(movies) > n {
		return movies[:n]
	}
	return movies
}
