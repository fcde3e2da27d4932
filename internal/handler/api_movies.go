package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/reelshelf/internal/model"
	"github.com/user/reelshelf/internal/service"
	"github.com/user/reelshelf/internal/utils"
)

// MovieDetail 详情接口返回
type MovieDetail struct {
	Movie        *model.Movie  `json:"movie"`
	Related      []model.Movie `json:"related"`
	InWatchlist  bool          `json:"in_watchlist"`
	RelatedError string        `json:"related_error,omitempty"`
}

// SearchResponse 搜索接口返回
type SearchResponse struct {
	Query   string        `json:"query"`
	Results []model.Movie `json:"results"`
	History []string      `json:"history"`
}

// listMovies 包装无参数的列表查询
func (h *Handler) listMovies(load func(ctx context.Context) ([]model.Movie, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		movies, err := load(c.Request.Context())
		if err != nil {
			h.fail(c, err)
			return
		}
		utils.Success(c, movies)
	}
}

// APIMovies 全部电影
func (h *Handler) APIMovies(c *gin.Context) {
	h.listMovies(h.Sources.Movies.GetAll)(c)
}

// APITrending 热门
func (h *Handler) APITrending(c *gin.Context) {
	h.listMovies(h.Sources.Movies.GetTrending)(c)
}

// APIPopular 高分
func (h *Handler) APIPopular(c *gin.Context) {
	h.listMovies(h.Sources.Movies.GetPopular)(c)
}

// APINewReleases 新片
func (h *Handler) APINewReleases(c *gin.Context) {
	h.listMovies(h.Sources.Movies.GetNewReleases)(c)
}

// APIHome 首页三个区块，单个区块失败时带上错误信息
func (h *Handler) APIHome(c *gin.Context) {
	home := h.Catalog.Home(c.Request.Context())
	utils.Success(c, gin.H{
		"trending":     sectionPayload(home.Trending),
		"popular":      sectionPayload(home.Popular),
		"new_releases": sectionPayload(home.NewReleases),
	})
}

// APIHomeSection 重新加载首页的单个区块
func (h *Handler) APIHomeSection(c *gin.Context) {
	section, ok := h.Catalog.Section(c.Request.Context(), c.Param("section"))
	if !ok {
		utils.NotFound(c, "unknown section")
		return
	}
	if section.Err != nil {
		h.fail(c, section.Err)
		return
	}
	utils.Success(c, section.Movies)
}

func sectionPayload(s service.Section) gin.H {
	return gin.H{"movies": s.Movies, "error": s.Error()}
}

// APIMoviesByGenre 按分类
func (h *Handler) APIMoviesByGenre(c *gin.Context) {
	genre := c.Param("genre")
	movies, err := h.Sources.Movies.GetByGenre(c.Request.Context(), genre)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, movies)
}

// APISearch 搜索并记录搜索历史
func (h *Handler) APISearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.BadRequest(c, "query parameter q is required")
		return
	}

	movies, err := h.Sources.Movies.Search(c.Request.Context(), query)
	if err != nil {
		h.fail(c, err)
		return
	}

	history := service.PushHistory(searchHistory(c), query)
	h.saveSearchHistory(c, history)

	utils.Success(c, SearchResponse{Query: query, Results: movies, History: history})
}

// APIClearSearchHistory 清空搜索历史
func (h *Handler) APIClearSearchHistory(c *gin.Context) {
	h.saveSearchHistory(c, nil)
	utils.SuccessWithMessage(c, "search history cleared", nil)
}

// APIBrowse 浏览筛选
func (h *Handler) APIBrowse(c *gin.Context) {
	filter, err := h.bindBrowseFilter(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.Catalog.Browse(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, res)
}

// APIMovie 电影详情，附带相关推荐
func (h *Handler) APIMovie(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	movie, err := h.Sources.Movies.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	detail := MovieDetail{
		Movie:       movie,
		InWatchlist: h.Sources.Watchlist.IsInWatchlist(ctx, id),
	}
	related, err := h.Catalog.Related(ctx, movie, service.RelatedLimit)
	if err != nil {
		// 相关推荐失败不影响详情，错误随响应返回
		h.Logger.WithError(err).WithField("movie_id", id).Warn("加载相关推荐失败")
		related = []model.Movie{}
		detail.RelatedError = errorMessage(err)
	}
	detail.Related = related

	utils.Success(c, detail)
}

// bindBrowseFilter 从查询参数读取筛选条件，缺省项使用默认值
func (h *Handler) bindBrowseFilter(c *gin.Context) (model.BrowseFilter, error) {
	filter := model.DefaultBrowseFilter()
	if err := c.ShouldBindQuery(&filter); err != nil {
		return filter, &badRequestError{err}
	}
	filter.Genres = splitGenres(filter.Genres)
	if err := h.validate.Struct(filter); err != nil {
		return filter, err
	}
	return filter, nil
}

// splitGenres 同时支持 genre=a&genre=b 与 genre=a,b
func splitGenres(in []string) []string {
	var out []string
	for _, g := range in {
		for _, p := range strings.Split(g, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// paramID 解析路径中的正整数 ID，失败时直接返回 400
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
