package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelshelf/internal/config"
)

func TestNewSources(t *testing.T) {
	t.Run("mock", func(t *testing.T) {
		s, err := NewSources(&config.Config{DataSource: config.SourceMock, SearchCacheSize: 10}, Deps{Logger: testLogger()})
		require.NoError(t, err)
		assert.IsType(t, &MockMovieSource{}, s.Cache.Unwrap())
		assert.IsType(t, &MockWatchlistSource{}, s.Watchlist)
		assert.Nil(t, s.Writer)
	})

	t.Run("remote", func(t *testing.T) {
		s, err := NewSources(&config.Config{DataSource: config.SourceRemote}, Deps{Store: new(mockRecordStore), Logger: testLogger()})
		require.NoError(t, err)
		assert.IsType(t, &RemoteMovieSource{}, s.Cache.Unwrap())
		assert.IsType(t, &RemoteWatchlistSource{}, s.Watchlist)
	})

	t.Run("remote without credentials", func(t *testing.T) {
		_, err := NewSources(&config.Config{DataSource: config.SourceRemote}, Deps{Logger: testLogger()})
		assert.Error(t, err)
	})

	t.Run("database without repositories", func(t *testing.T) {
		_, err := NewSources(&config.Config{DataSource: config.SourceDatabase}, Deps{Logger: testLogger()})
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewSources(&config.Config{DataSource: "ftp"}, Deps{Logger: testLogger()})
		assert.Error(t, err)
	})
}
