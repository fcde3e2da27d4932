package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/user/reelshelf/internal/model"
	"golang.org/x/sync/errgroup"
)

// 首页与详情页的展示数量
const (
	HomeSectionLimit = 10
	RelatedLimit     = 4
)

// BrowseResult 浏览页结果
type BrowseResult struct {
	Movies []model.Movie      `json:"movies"`
	Total  int                `json:"total"`
	Filter model.BrowseFilter `json:"filter"`
}

// Section 首页的一个区块，出错时只影响本区块
type Section struct {
	Movies []model.Movie `json:"movies"`
	Err    error         `json:"-"`
}

// Error 区块错误信息，没有错误时为空
func (s Section) Error() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// HomeSections 首页三个区块
type HomeSections struct {
	Trending    Section `json:"trending"`
	Popular     Section `json:"popular"`
	NewReleases Section `json:"new_releases"`
}

// CatalogService 电影目录相关的页面逻辑
type CatalogService struct {
	movies MovieSource
	logger *logrus.Entry
}

// NewCatalogService 创建目录服务
func NewCatalogService(movies MovieSource, logger *logrus.Logger) *CatalogService {
	return &CatalogService{movies: movies, logger: logger.WithField("component", "catalog")}
}

// Browse 按分类、年份、评分筛选并排序
func (s *CatalogService) Browse(ctx context.Context, f model.BrowseFilter) (*BrowseResult, error) {
	all, err := s.movies.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := ApplyBrowseFilter(all, f)
	return &BrowseResult{Movies: out, Total: len(all), Filter: f}, nil
}

// ApplyBrowseFilter 筛选：分类任一命中，年份与评分为闭区间
func ApplyBrowseFilter(movies []model.Movie, f model.BrowseFilter) []model.Movie {
	out := make([]model.Movie, 0, len(movies))
	for i := range movies {
		m := &movies[i]
		if len(f.Genres) > 0 && !hasAnyGenre(m, f.Genres) {
			continue
		}
		if m.Year < f.YearMin || m.Year > f.YearMax {
			continue
		}
		if m.Rating < f.RatingMin || m.Rating > f.RatingMax {
			continue
		}
		out = append(out, *m)
	}

	switch f.SortBy {
	case model.SortYear:
		sortByYear(out)
	case model.SortTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	case model.SortRating, model.SortPopularity:
		// 暂无独立的热度数据，按评分排序
		sortByRating(out)
	}
	return out
}

func hasAnyGenre(m *model.Movie, genres []string) bool {
	for _, g := range genres {
		if m.HasGenre(g) {
			return true
		}
	}
	return false
}

// Related 相关推荐
// 数据源支持向量查询时按分类向量距离，否则取第一个分类下的其他电影
func (s *CatalogService) Related(ctx context.Context, movie *model.Movie, limit int) ([]model.Movie, error) {
	if movie == nil || len(movie.Genres) == 0 {
		return []model.Movie{}, nil
	}

	if finder, ok := unwrapSimilar(s.movies); ok {
		related, err := finder.Similar(ctx, movie.ID, limit)
		if err == nil && len(related) > 0 {
			return related, nil
		}
		if err != nil && !errors.Is(err, ErrSimilarUnsupported) {
			s.logger.WithError(err).WithField("movie_id", movie.ID).Warn("向量相似查询失败，改用分类匹配")
		}
	}

	sameGenre, err := s.movies.GetByGenre(ctx, movie.Genres[0])
	if err != nil {
		return nil, err
	}
	out := make([]model.Movie, 0, limit)
	for _, m := range sameGenre {
		if m.ID == movie.ID {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func unwrapSimilar(src MovieSource) (SimilarFinder, bool) {
	for {
		if f, ok := src.(SimilarFinder); ok {
			return f, true
		}
		w, ok := src.(interface{ Unwrap() MovieSource })
		if !ok {
			return nil, false
		}
		src = w.Unwrap()
	}
}

// Home 并发加载首页三个区块，各区块错误互不影响
func (s *CatalogService) Home(ctx context.Context) *HomeSections {
	var home HomeSections
	var g errgroup.Group

	g.Go(func() error {
		home.Trending = s.section(ctx, "trending", s.movies.GetTrending, 0)
		return nil
	})
	g.Go(func() error {
		home.Popular = s.section(ctx, "popular", s.movies.GetPopular, HomeSectionLimit)
		return nil
	})
	g.Go(func() error {
		home.NewReleases = s.section(ctx, "new_releases", s.movies.GetNewReleases, HomeSectionLimit)
		return nil
	})
	_ = g.Wait()

	return &home
}

// Section 加载首页的单个区块，供重试使用
func (s *CatalogService) Section(ctx context.Context, name string) (Section, bool) {
	switch name {
	case "trending":
		return s.section(ctx, name, s.movies.GetTrending, 0), true
	case "popular":
		return s.section(ctx, name, s.movies.GetPopular, HomeSectionLimit), true
	case "new_releases":
		return s.section(ctx, name, s.movies.GetNewReleases, HomeSectionLimit), true
	}
	return Section{}, false
}

func (s *CatalogService) section(ctx context.Context, name string, load func(context.Context) ([]model.Movie, error), limit int) Section {
	movies, err := load(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("section", name).Error("加载首页区块失败")
		return Section{Err: err}
	}
	if limit > 0 {
		movies = topN(movies, limit)
	}
	return Section{Movies: movies}
}
