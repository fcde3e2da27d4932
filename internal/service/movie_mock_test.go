package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelshelf/internal/model"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func movieIDs(movies []model.Movie) []int {
	ids := make([]int, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
	}
	return ids
}

func newMockMovies(t *testing.T) *MockMovieSource {
	t.Helper()
	src, err := NewMockMovieSource(nil, 0)
	require.NoError(t, err)
	return src
}

func TestMockMovieSourceLists(t *testing.T) {
	src := newMockMovies(t)
	ctx := context.Background()

	all, err := src.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
	assert.Equal(t, 2, all[0].ID)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Rating, all[i].Rating)
	}

	trending, err := src.GetTrending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 19, 1, 3, 5, 12, 4, 20}, movieIDs(trending))

	popular, err := src.GetPopular(ctx)
	require.NoError(t, err)
	assert.Len(t, popular, 17)
	for _, m := range popular {
		assert.GreaterOrEqual(t, m.Rating, PopularMinRating)
	}

	releases, err := src.GetNewReleases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 12, 16, 17, 8, 18}, movieIDs(releases))
}

func TestMockMovieSourceGenreAndSearch(t *testing.T) {
	src := newMockMovies(t)
	ctx := context.Background()

	horror, err := src.GetByGenre(ctx, "horror")
	require.NoError(t, err)
	assert.Equal(t, []int{14, 9, 17}, movieIDs(horror))

	tests := []struct {
		query string
		want  []int
	}{
		{"nolan", []int{2, 1, 3, 6}},
		{"Gosling", []int{10, 7}},
		{"music", []int{20, 10}},
		{"  ", []int{}},
		{"no such movie", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := src.Search(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, movieIDs(got))
		})
	}
}

func TestMockMovieSourceGetByID(t *testing.T) {
	src := newMockMovies(t)
	ctx := context.Background()

	m, err := src.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Inception", m.Title)

	// 修改返回值不影响内部数据
	m.Title = "changed"
	m.Genres[0] = "changed"
	again, err := src.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Inception", again.Title)
	assert.Equal(t, "Action", again.Genres[0])

	_, err = src.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockMovieSourceLatencyHonoursContext(t *testing.T) {
	src, err := NewMockMovieSource(nil, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.GetAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
