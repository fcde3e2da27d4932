package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/reelshelf/internal/model"
	"github.com/user/reelshelf/internal/service"
)

// ==================== 页面 ====================

type option struct {
	Value string
	Label string
}

var browseSortOptions = []option{
	{model.SortRating, "Highest Rated"},
	{model.SortYear, "Newest First"},
	{model.SortTitle, "Title A-Z"},
	{model.SortPopularity, "Most Popular"},
}

var watchlistStatusOptions = []option{
	{model.StatusAll, "All"},
	{model.StatusUnwatched, "To Watch"},
	{model.StatusWatched, "Watched"},
}

var watchlistSortOptions = []option{
	{model.SortAdded, "Recently Added"},
	{model.SortRating, "Highest Rated"},
	{model.SortTitle, "Title A-Z"},
}

// renderError 页面内的错误块，带重试链接
func (h *Handler) renderError(c *gin.Context, page, title string, err error, data gin.H) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Error"] = errorMessage(err)
	data["RetryURL"] = c.Request.URL.RequestURI()
	data["Notices"] = []string{title + " failed"}
	c.HTML(status, page, h.RenderData(c, data))
}

// Home 首页：热门轮播、高分、新片，各区块独立出错
func (h *Handler) Home(c *gin.Context) {
	home := h.Catalog.Home(c.Request.Context())

	var notices []string
	if home.Trending.Err != nil {
		notices = append(notices, "Failed to load trending movies")
	}
	if home.Popular.Err != nil {
		notices = append(notices, "Failed to load popular movies")
	}
	if home.NewReleases.Err != nil {
		notices = append(notices, "Failed to load new releases")
	}

	c.HTML(http.StatusOK, "home.html", h.RenderData(c, gin.H{
		"Title":    h.Config.SiteName + " - Discover Movies",
		"Home":     home,
		"RetryURL": c.Request.URL.RequestURI(),
		"Notices":  notices,
	}))
}

// Browse 浏览页
func (h *Handler) Browse(c *gin.Context) {
	data := gin.H{
		"AllGenres":   model.GenreVocabulary,
		"SortOptions": browseSortOptions,
	}

	filter, err := h.bindBrowseFilter(c)
	data["Filter"] = filter
	if err != nil {
		h.renderError(c, "browse.html", "Browse", err, data)
		return
	}

	res, err := h.Catalog.Browse(c.Request.Context(), filter)
	if err != nil {
		h.renderError(c, "browse.html", "Browse", err, data)
		return
	}

	data["Title"] = "Browse - " + h.Config.SiteName
	data["Result"] = res
	data["ActiveFilters"] = filter.ActiveCount()
	c.HTML(http.StatusOK, "browse.html", h.RenderData(c, data))
}

// Search 搜索页；没有关键词时展示搜索历史与推荐
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	history := searchHistory(c)

	if query == "" {
		c.HTML(http.StatusOK, "search.html", h.RenderData(c, gin.H{
			"Title":       "Search - " + h.Config.SiteName,
			"Query":       "",
			"History":     history,
			"Suggestions": service.Suggestions(history),
		}))
		return
	}

	movies, err := h.Sources.Movies.Search(c.Request.Context(), query)
	if err != nil {
		h.renderError(c, "search.html", "Search", err, gin.H{"Query": query})
		return
	}

	h.saveSearchHistory(c, service.PushHistory(history, query))
	c.HTML(http.StatusOK, "search.html", h.RenderData(c, gin.H{
		"Title":   query + " - Search - " + h.Config.SiteName,
		"Query":   query,
		"Results": movies,
	}))
}

// ClearSearchHistory 清空搜索历史
func (h *Handler) ClearSearchHistory(c *gin.Context) {
	h.saveSearchHistory(c, nil)
	h.flash(c, "Search history cleared")
	c.Redirect(http.StatusSeeOther, "/search")
}

// WatchlistPage 清单页
func (h *Handler) WatchlistPage(c *gin.Context) {
	data := gin.H{
		"StatusOptions": watchlistStatusOptions,
		"SortOptions":   watchlistSortOptions,
	}

	filter, err := h.bindWatchlistFilter(c)
	data["Filter"] = filter
	if err != nil {
		h.renderError(c, "watchlist.html", "Watchlist", err, data)
		return
	}

	view, err := h.Watchlist.View(c.Request.Context(), filter)
	if err != nil {
		h.renderError(c, "watchlist.html", "Watchlist", err, data)
		return
	}

	data["Title"] = "My Watchlist - " + h.Config.SiteName
	data["View"] = view
	data["Ratings"] = []int{1, 2, 3, 4, 5}
	c.HTML(http.StatusOK, "watchlist.html", h.RenderData(c, data))
}

// Movie 详情页
func (h *Handler) Movie(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.NotFound(c)
		return
	}
	ctx := c.Request.Context()

	movie, err := h.Sources.Movies.GetByID(ctx, id)
	if errors.Is(err, service.ErrNotFound) {
		h.NotFound(c)
		return
	}
	if err != nil {
		h.renderError(c, "movie.html", "Movie", err, nil)
		return
	}

	data := gin.H{
		"Title":       movie.Title + " - " + h.Config.SiteName,
		"Movie":       movie,
		"InWatchlist": h.Sources.Watchlist.IsInWatchlist(ctx, id),
		"RetryURL":    c.Request.URL.RequestURI(),
	}
	related, err := h.Catalog.Related(ctx, movie, service.RelatedLimit)
	if err != nil {
		h.Logger.WithError(err).WithField("movie_id", id).Warn("加载相关推荐失败")
		data["RelatedError"] = errorMessage(err)
		data["Notices"] = []string{"Failed to load related movies"}
	}
	data["Related"] = related

	c.HTML(http.StatusOK, "movie.html", h.RenderData(c, data))
}

// NotFound 404 页面
func (h *Handler) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "404.html", h.RenderData(c, gin.H{
		"Title": "Page Not Found - " + h.Config.SiteName,
	}))
}

// ==================== 表单操作 ====================

// ToggleWatchlistForm 详情页收藏按钮
func (h *Handler) ToggleWatchlistForm(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.NotFound(c)
		return
	}
	res, err := h.Watchlist.Toggle(c.Request.Context(), id)
	switch {
	case err != nil:
		h.Logger.WithError(err).WithField("movie_id", id).Error("切换收藏失败")
		h.flash(c, "Failed to update watchlist")
	case res.InWatchlist:
		h.flash(c, "Added to watchlist")
	default:
		h.flash(c, "Removed from watchlist")
	}
	c.Redirect(http.StatusSeeOther, redirectTarget(c, "/movie/"+strconv.Itoa(id)))
}

// ToggleWatchedForm 清单页切换已看
func (h *Handler) ToggleWatchedForm(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err == nil {
		var entry *model.WatchlistEntry
		entry, err = h.Watchlist.ToggleWatched(c.Request.Context(), id)
		if err == nil {
			if entry.Watched {
				h.flash(c, "Marked as watched")
			} else {
				h.flash(c, "Marked as unwatched")
			}
		}
	}
	if err != nil {
		h.Logger.WithError(err).Error("更新观看状态失败")
		h.flash(c, "Failed to update watch status")
	}
	c.Redirect(http.StatusSeeOther, redirectTarget(c, "/watchlist"))
}

// RateForm 清单页评分
func (h *Handler) RateForm(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err == nil {
		var rating int
		rating, err = strconv.Atoi(c.PostForm("rating"))
		if err == nil {
			_, err = h.Watchlist.Rate(c.Request.Context(), id, rating)
		}
	}
	if err != nil {
		h.Logger.WithError(err).Warn("保存评分失败")
		h.flash(c, "Failed to save rating")
	} else {
		h.flash(c, "Rating saved")
	}
	c.Redirect(http.StatusSeeOther, redirectTarget(c, "/watchlist"))
}

// RemoveForm 清单页移除
func (h *Handler) RemoveForm(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err == nil {
		err = h.Watchlist.Remove(c.Request.Context(), id)
	}
	if err != nil {
		h.Logger.WithError(err).Error("移出清单失败")
		h.flash(c, "Failed to remove from watchlist")
	} else {
		h.flash(c, "Removed from watchlist")
	}
	c.Redirect(http.StatusSeeOther, redirectTarget(c, "/watchlist"))
}

// redirectTarget 表单提交后的跳转地址，只允许站内路径
func redirectTarget(c *gin.Context, fallback string) string {
	target := c.PostForm("redirect")
	// 浏览器会把 /\host 当作 //host 处理
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.ContainsAny(target, "\\\r\n") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}
