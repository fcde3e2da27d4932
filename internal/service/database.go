package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/user/reelshelf/internal/model"
	"github.com/user/reelshelf/internal/repository"
)

// DBMovieSource 基于 PostgreSQL 的电影数据源
type DBMovieSource struct {
	repo   *repository.MovieRepository
	logger *logrus.Entry
}

// NewDBMovieSource 创建数据库电影数据源
func NewDBMovieSource(repo *repository.MovieRepository, logger *logrus.Logger) *DBMovieSource {
	return &DBMovieSource{repo: repo, logger: logger.WithField("component", "movie_source")}
}

func (s *DBMovieSource) GetAll(ctx context.Context) ([]model.Movie, error) {
	return s.repo.List(ctx, repository.OrderRatingDesc)
}

func (s *DBMovieSource) GetByID(ctx context.Context, id int) (*model.Movie, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "movie", id)
	}
	return m, nil
}

func (s *DBMovieSource) GetTrending(ctx context.Context) ([]model.Movie, error) {
	all, err := s.repo.List(ctx, repository.OrderRatingDesc)
	if err != nil {
		return nil, err
	}
	return topN(all, TrendingLimit), nil
}

func (s *DBMovieSource) GetByGenre(ctx context.Context, genre string) ([]model.Movie, error) {
	return s.repo.ListByGenre(ctx, genre)
}

func (s *DBMovieSource) Search(ctx context.Context, query string) ([]model.Movie, error) {
	if strings.TrimSpace(query) == "" {
		return []model.Movie{}, nil
	}
	return s.repo.Search(ctx, strings.TrimSpace(query))
}

func (s *DBMovieSource) GetPopular(ctx context.Context) ([]model.Movie, error) {
	return s.repo.ListMinRating(ctx, PopularMinRating)
}

func (s *DBMovieSource) GetNewReleases(ctx context.Context) ([]model.Movie, error) {
	return s.repo.ListFromYear(ctx, NewReleaseMinYear)
}

// Upsert 写入电影（管理接口）
func (s *DBMovieSource) Upsert(ctx context.Context, movie *model.Movie) error {
	if err := s.repo.Upsert(ctx, movie); err != nil {
		s.logger.WithError(err).WithField("movie_id", movie.ID).Error("写入电影失败")
		return err
	}
	return nil
}

// Delete 删除电影（管理接口）
func (s *DBMovieSource) Delete(ctx context.Context, id int) error {
	return translate(s.repo.Delete(ctx, id), "movie", id)
}

// Similar 向量相似电影；数据库不支持时返回 ErrSimilarUnsupported
func (s *DBMovieSource) Similar(ctx context.Context, id, limit int) ([]model.Movie, error) {
	movies, err := s.repo.Similar(ctx, id, limit)
	if errors.Is(err, repository.ErrUnsupported) {
		return nil, ErrSimilarUnsupported
	}
	return movies, translate(err, "movie", id)
}

// ErrSimilarUnsupported 当前数据源不支持相似查询
var ErrSimilarUnsupported = errors.New("similarity search not supported")

// DBWatchlistSource 基于 PostgreSQL 的清单数据源
type DBWatchlistSource struct {
	repo *repository.WatchlistRepository
}

// NewDBWatchlistSource 创建数据库清单数据源
func NewDBWatchlistSource(repo *repository.WatchlistRepository) *DBWatchlistSource {
	return &DBWatchlistSource{repo: repo}
}

func (s *DBWatchlistSource) GetAll(ctx context.Context) ([]model.WatchlistEntry, error) {
	return s.repo.List(ctx)
}

func (s *DBWatchlistSource) GetByID(ctx context.Context, id int) (*model.WatchlistEntry, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "watchlist item", id)
	}
	return e, nil
}

func (s *DBWatchlistSource) Create(ctx context.Context, movieID int) (*model.WatchlistEntry, error) {
	return s.repo.Create(ctx, movieID)
}

func (s *DBWatchlistSource) Update(ctx context.Context, id int, patch model.WatchlistPatch) (*model.WatchlistEntry, error) {
	e, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "watchlist item", id)
	}
	return e, nil
}

func (s *DBWatchlistSource) Delete(ctx context.Context, id int) error {
	return translate(s.repo.Delete(ctx, id), "watchlist item", id)
}

func (s *DBWatchlistSource) GetByMovieID(ctx context.Context, movieID int) (*model.WatchlistEntry, error) {
	e, err := s.repo.FindByMovieID(ctx, movieID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return e, err
}

func (s *DBWatchlistSource) IsInWatchlist(ctx context.Context, movieID int) bool {
	e, err := s.GetByMovieID(ctx, movieID)
	return err == nil && e != nil
}

// translate 把仓库层的 ErrNotFound 转成 service.ErrNotFound
func translate(err error, kind string, id int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return err
}
