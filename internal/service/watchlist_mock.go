package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/reelshelf/internal/model"
)

// MockWatchlistSource 内存清单数据源
type MockWatchlistSource struct {
	mu      sync.Mutex
	entries []model.WatchlistEntry
	latency time.Duration
	now     func() time.Time
}

// NewMockWatchlistSource entries 为 nil 时使用内置数据集
func NewMockWatchlistSource(entries []model.WatchlistEntry, latency time.Duration) (*MockWatchlistSource, error) {
	if entries == nil {
		var err error
		if entries, err = LoadMockWatchlist(); err != nil {
			return nil, err
		}
	}
	data := make([]model.WatchlistEntry, len(entries))
	for i, e := range entries {
		data[i] = e.Clone()
	}
	return &MockWatchlistSource{entries: data, latency: latency, now: time.Now}, nil
}

func (s *MockWatchlistSource) GetAll(ctx context.Context) ([]model.WatchlistEntry, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]model.WatchlistEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	s.mu.Unlock()
	sortByAdded(out)
	return out, nil
}

func (s *MockWatchlistSource) GetByID(ctx context.Context, id int) (*model.WatchlistEntry, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		e := s.entries[i].Clone()
		return &e, nil
	}
	return nil, fmt.Errorf("watchlist item %d: %w", id, ErrNotFound)
}

func (s *MockWatchlistSource) Create(ctx context.Context, movieID int) (*model.WatchlistEntry, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	nextID := 1
	for _, e := range s.entries {
		if e.ID >= nextID {
			nextID = e.ID + 1
		}
	}
	entry := model.WatchlistEntry{
		ID:        nextID,
		MovieID:   movieID,
		AddedDate: s.now().UTC(),
	}
	s.entries = append(s.entries, entry)
	out := entry.Clone()
	return &out, nil
}

func (s *MockWatchlistSource) Update(ctx context.Context, id int, patch model.WatchlistPatch) (*model.WatchlistEntry, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("watchlist item %d: %w", id, ErrNotFound)
	}
	patch.Apply(&s.entries[i])
	out := s.entries[i].Clone()
	return &out, nil
}

func (s *MockWatchlistSource) Delete(ctx context.Context, id int) error {
	if err := delay(ctx, s.latency); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("watchlist item %d: %w", id, ErrNotFound)
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

func (s *MockWatchlistSource) GetByMovieID(ctx context.Context, movieID int) (*model.WatchlistEntry, error) {
	if err := delay(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.MovieID == movieID {
			out := e.Clone()
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MockWatchlistSource) IsInWatchlist(ctx context.Context, movieID int) bool {
	entry, err := s.GetByMovieID(ctx, movieID)
	return err == nil && entry != nil
}

func (s *MockWatchlistSource) indexOf(id int) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
