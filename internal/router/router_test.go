package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelshelf/web"
)

func TestLoadTemplates(t *testing.T) {
	r := LoadTemplates(web.Templates)

	for _, name := range []string{"home.html", "browse.html", "search.html", "watchlist.html", "movie.html", "404.html"} {
		assert.Contains(t, r, name)
	}
}

func TestFuncMap(t *testing.T) {
	fm := FuncMap()

	dict := fm["dict"].(func(...interface{}) (map[string]interface{}, error))
	m, err := dict("a", 1, "b", "x")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "x"}, m)
	_, err = dict("a")
	assert.Error(t, err)
	_, err = dict(1, 2)
	assert.Error(t, err)

	def := fm["default"].(func(interface{}, interface{}) interface{})
	assert.Equal(t, "fallback", def("fallback", ""))
	assert.Equal(t, "value", def("fallback", "value"))
	assert.Equal(t, 3, def(3, 0))

	rating := fm["rating"].(func(float64) string)
	assert.Equal(t, "8.0", rating(8))

	deref := fm["deref"].(func(*int) int)
	four := 4
	assert.Equal(t, 0, deref(nil))
	assert.Equal(t, 4, deref(&four))

	date := fm["date"].(func(time.Time) string)
	assert.Equal(t, "Feb 2, 2024", date(time.Date(2024, 2, 2, 19, 5, 0, 0, time.UTC)))

	contains := fm["contains"].(func([]string, string) bool)
	assert.True(t, contains([]string{"Drama", "Music"}, "music"))
	assert.False(t, contains(nil, "music"))
}
