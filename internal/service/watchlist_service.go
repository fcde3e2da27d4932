package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/user/reelshelf/internal/model"
)

// 用户评分范围
const (
	MinUserRating = 1
	MaxUserRating = 5
)

// ErrInvalidRating 评分超出 1..5
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// WatchlistView 清单页数据
type WatchlistView struct {
	Items          []model.WatchlistItem `json:"items"`
	Total          int                   `json:"total"`
	WatchedCount   int                   `json:"watched_count"`
	UnwatchedCount int                   `json:"unwatched_count"`
	Filter         model.WatchlistFilter `json:"filter"`
}

// ToggleResult 切换收藏的结果
type ToggleResult struct {
	InWatchlist bool                  `json:"in_watchlist"`
	Entry       *model.WatchlistEntry `json:"entry,omitempty"`
}

// WatchlistService 待看清单页面逻辑
type WatchlistService struct {
	watchlist WatchlistSource
	movies    MovieSource
	logger    *logrus.Entry
}

// NewWatchlistService 创建清单服务
func NewWatchlistService(watchlist WatchlistSource, movies MovieSource, logger *logrus.Logger) *WatchlistService {
	return &WatchlistService{
		watchlist: watchlist,
		movies:    movies,
		logger:    logger.WithField("component", "watchlist"),
	}
}

// View 读取清单并关联电影，按状态筛选后排序
func (s *WatchlistService) View(ctx context.Context, f model.WatchlistFilter) (*WatchlistView, error) {
	entries, err := s.watchlist.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]model.WatchlistItem, 0, len(entries))
	for _, e := range entries {
		movie, err := s.movies.GetByID(ctx, e.MovieID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// 电影已下架，跳过孤立条目
				s.logger.WithField("movie_id", e.MovieID).Warn("清单中的电影不存在")
				continue
			}
			return nil, err
		}
		items = append(items, model.WatchlistItem{Movie: *movie, Entry: e})
	}

	view := &WatchlistView{Total: len(items), Filter: f}
	for _, it := range items {
		if it.Entry.Watched {
			view.WatchedCount++
		}
	}
	view.UnwatchedCount = view.Total - view.WatchedCount
	view.Items = ApplyWatchlistFilter(items, f)
	return view, nil
}

// ApplyWatchlistFilter 按观看状态筛选并排序
func ApplyWatchlistFilter(items []model.WatchlistItem, f model.WatchlistFilter) []model.WatchlistItem {
	out := make([]model.WatchlistItem, 0, len(items))
	for _, it := range items {
		switch f.Status {
		case model.StatusWatched:
			if !it.Entry.Watched {
				continue
			}
		case model.StatusUnwatched:
			if it.Entry.Watched {
				continue
			}
		}
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch f.SortBy {
		case model.SortRating:
			return out[i].Movie.Rating > out[j].Movie.Rating
		case model.SortTitle:
			return strings.ToLower(out[i].Movie.Title) < strings.ToLower(out[j].Movie.Title)
		default:
			return out[i].Entry.AddedDate.After(out[j].Entry.AddedDate)
		}
	})
	return out
}

// Add 加入清单；已存在时返回已有条目
func (s *WatchlistService) Add(ctx context.Context, movieID int) (*model.WatchlistEntry, bool, error) {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		return nil, false, err
	}
	existing, err := s.watchlist.GetByMovieID(ctx, movieID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	entry, err := s.watchlist.Create(ctx, movieID)
	if err != nil {
		return nil, false, err
	}
	s.logger.WithField("movie_id", movieID).Info("已加入清单")
	return entry, true, nil
}

// Toggle 详情页收藏按钮：不在清单则加入，在则移除
func (s *WatchlistService) Toggle(ctx context.Context, movieID int) (*ToggleResult, error) {
	existing, err := s.watchlist.GetByMovieID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.watchlist.Delete(ctx, existing.ID); err != nil {
			return nil, err
		}
		s.logger.WithField("movie_id", movieID).Info("已移出清单")
		return &ToggleResult{InWatchlist: false}, nil
	}

	entry, _, err := s.Add(ctx, movieID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{InWatchlist: true, Entry: entry}, nil
}

// ToggleWatched 切换已看状态
func (s *WatchlistService) ToggleWatched(ctx context.Context, id int) (*model.WatchlistEntry, error) {
	entry, err := s.watchlist.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	watched := !entry.Watched
	return s.watchlist.Update(ctx, id, model.WatchlistPatch{Watched: &watched})
}

// Rate 评分 1..5
func (s *WatchlistService) Rate(ctx context.Context, id, rating int) (*model.WatchlistEntry, error) {
	if rating < MinUserRating || rating > MaxUserRating {
		return nil, fmt.Errorf("rating %d: %w", rating, ErrInvalidRating)
	}
	r := &rating
	return s.watchlist.Update(ctx, id, model.WatchlistPatch{UserRating: &r})
}

// Remove 移出清单
func (s *WatchlistService) Remove(ctx context.Context, id int) error {
	return s.watchlist.Delete(ctx, id)
}
