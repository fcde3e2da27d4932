package service

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/reelshelf/internal/model"
)

//go:embed mockdata/*.json
var mockData embed.FS

// LoadMockMovies 读取内置的电影数据集
func LoadMockMovies() ([]model.Movie, error) {
	raw, err := mockData.ReadFile("mockdata/movies.json")
	if err != nil {
		return nil, err
	}
	var movies []model.Movie
	if err := json.Unmarshal(raw, &movies); err != nil {
		return nil, fmt.Errorf("解析电影数据集失败: %w", err)
	}
	return movies, nil
}

// LoadMockWatchlist 读取内置的清单数据集
func LoadMockWatchlist() ([]model.WatchlistEntry, error) {
	raw, err := mockData.ReadFile("mockdata/watchlist.json")
	if err != nil {
		return nil, err
	}
	var entries []model.WatchlistEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("解析清单数据集失败: %w", err)
	}
	return entries, nil
}

// MockMovieSource 内存电影数据源
type MockMovieSource struct {
	mu      sync.RWMutex
	movies  []model.Movie
	latency time.Duration
}

// NewMockMovieSource movies 为 nil 时使用内置数据集
func NewMockMovieSource(movies []model.Movie, latency time.Duration) (*MockMovieSource, error) {
	if movies == nil {
		var err error
		if movies, err = LoadMockMovies(); err != nil {
			return nil, err
		}
	}
	data := make([]model.Movie, len(movies))
	for i, m := range movies {
		data[i] = m.Clone()
	}
	sort.SliceStable(data, func(i, j int) bool { return data[i].ID < data[j].ID })
	return &MockMovieSource{movies: data, latency: latency}, nil
}

func (s *MockMovieSource) GetAll(ctx context.Context) ([]model.Movie, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	out := s.filter(func(*model.Movie) bool { return true })
	sortByRating(out)
	return out, nil
}

func (s *MockMovieSource) GetByID(ctx context.Context, id int) (*model.Movie, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.movies {
		if m.ID == id {
			c := m.Clone()
			return &c, nil
		}
	}
	return nil, fmt.Errorf("movie %d: %w", id, ErrNotFound)
}

func (s *MockMovieSource) GetTrending(ctx context.Context) ([]model.Movie, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return topN(all, TrendingLimit), nil
}

func (s *MockMovieSource) GetByGenre(ctx context.Context, genre string) ([]model.Movie, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	out := s.filter(func(m *model.Movie) bool { return m.HasGenre(genre) })
	sortByRating(out)
	return out, nil
}

func (s *MockMovieSource) Search(ctx context.Context, query string) ([]model.Movie, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []model.Movie{}, nil
	}
	out := s.filter(func(m *model.Movie) bool { return m.Matches(query) })
	sortByRating(out)
	return out, nil
}

func (s *MockMovieSource) GetPopular(ctx context.Context) ([]model.Movie, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	out := s.filter(func(m *model.Movie) bool { return m.Rating >= PopularMinRating })
	sortByRating(out)
	return out, nil
}

func (s *MockMovieSource) GetNewReleases(ctx context.Context) ([]model.Movie, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	out := s.filter(func(m *model.Movie) bool { return m.Year >= NewReleaseMinYear })
	sortByYear(out)
	return out, nil
}

func (s *MockMovieSource) filter(keep func(*model.Movie) bool) []model.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Movie, 0, len(s.movies))
	for i := range s.movies {
		if keep(&s.movies[i]) {
			out = append(out, s.movies[i].Clone())
		}
	}
	return out
}

// delay 模拟网络延迟
func delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
