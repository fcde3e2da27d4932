package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelshelf/internal/model"
)

func newWatchlistService(t *testing.T) *WatchlistService {
	t.Helper()
	return NewWatchlistService(newMockWatchlist(t), newMockMovies(t), testLogger())
}

func itemMovieIDs(items []model.WatchlistItem) []int {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.Movie.ID
	}
	return ids
}

func TestWatchlistView(t *testing.T) {
	svc := newWatchlistService(t)
	ctx := context.Background()

	tests := []struct {
		status, sort string
		want         []int
	}{
		{model.StatusAll, model.SortAdded, []int{9, 4, 3}},
		{model.StatusAll, model.SortRating, []int{3, 4, 9}},
		{model.StatusAll, model.SortTitle, []int{9, 3, 4}},
		{model.StatusWatched, model.SortAdded, []int{3}},
		{model.StatusUnwatched, model.SortTitle, []int{9, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.sort, func(t *testing.T) {
			view, err := svc.View(ctx, model.WatchlistFilter{Status: tt.status, SortBy: tt.sort})
			require.NoError(t, err)
			assert.Equal(t, tt.want, itemMovieIDs(view.Items))
			assert.Equal(t, 3, view.Total)
			assert.Equal(t, 1, view.WatchedCount)
			assert.Equal(t, 2, view.UnwatchedCount)
		})
	}
}

func TestWatchlistViewSkipsMissingMovies(t *testing.T) {
	entries := []model.WatchlistEntry{{ID: 1, MovieID: 3}, {ID: 2, MovieID: 404}}
	wl, err := NewMockWatchlistSource(entries, 0)
	require.NoError(t, err)
	svc := NewWatchlistService(wl, newMockMovies(t), testLogger())

	view, err := svc.View(context.Background(), model.DefaultWatchlistFilter())
	require.NoError(t, err)
	assert.Equal(t, []int{3}, itemMovieIDs(view.Items))
}

func TestWatchlistToggle(t *testing.T) {
	svc := newWatchlistService(t)
	ctx := context.Background()

	res, err := svc.Toggle(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.InWatchlist)
	require.NotNil(t, res.Entry)
	assert.Equal(t, 1, res.Entry.MovieID)
	assert.True(t, svc.watchlist.IsInWatchlist(ctx, 1))

	res, err = svc.Toggle(ctx, 1)
	require.NoError(t, err)
	assert.False(t, res.InWatchlist)
	assert.False(t, svc.watchlist.IsInWatchlist(ctx, 1))

	_, err = svc.Toggle(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWatchlistAddIsIdempotent(t *testing.T) {
	svc := newWatchlistService(t)

	entry, created, err := svc.Add(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, entry.ID)
}

func TestWatchlistToggleWatchedAndRate(t *testing.T) {
	svc := newWatchlistService(t)
	ctx := context.Background()

	entry, err := svc.ToggleWatched(ctx, 2)
	require.NoError(t, err)
	assert.True(t, entry.Watched)
	entry, err = svc.ToggleWatched(ctx, 2)
	require.NoError(t, err)
	assert.False(t, entry.Watched)

	entry, err = svc.Rate(ctx, 2, 3)
	require.NoError(t, err)
	require.NotNil(t, entry.UserRating)
	assert.Equal(t, 3, *entry.UserRating)

	_, err = svc.Rate(ctx, 2, 6)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = svc.Rate(ctx, 2, 0)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = svc.ToggleWatched(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Remove(ctx, 2))
	assert.ErrorIs(t, svc.Remove(ctx, 2), ErrNotFound)
}
