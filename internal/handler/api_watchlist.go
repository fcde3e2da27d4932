package handler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/user/reelshelf/internal/model"
	"github.com/user/reelshelf/internal/utils"
)

// createWatchlistRequest 加入清单请求
type createWatchlistRequest struct {
	MovieID int `json:"movie_id" validate:"gt=0"`
}

// updateWatchlistRequest 部分更新；user_rating 为 null 时清除评分
type updateWatchlistRequest struct {
	Watched    *bool           `json:"watched"`
	UserRating json.RawMessage `json:"user_rating"`
}

type ratingValue struct {
	Rating int `json:"user_rating" validate:"min=1,max=5"`
}

// patch 转换为 WatchlistPatch 并校验评分
func (r updateWatchlistRequest) patch(h *Handler) (model.WatchlistPatch, error) {
	p := model.WatchlistPatch{Watched: r.Watched}
	if len(r.UserRating) == 0 {
		return p, nil
	}
	if bytes.Equal(bytes.TrimSpace(r.UserRating), []byte("null")) {
		var cleared *int
		p.UserRating = &cleared
		return p, nil
	}

	var v ratingValue
	if err := json.Unmarshal(r.UserRating, &v.Rating); err != nil {
		return p, &badRequestError{fmt.Errorf("user_rating must be an integer: %w", err)}
	}
	if err := h.validate.Struct(v); err != nil {
		return p, err
	}
	rating := &v.Rating
	p.UserRating = &rating
	return p, nil
}

// APIWatchlist 清单（关联电影，支持筛选与排序）
func (h *Handler) APIWatchlist(c *gin.Context) {
	filter, err := h.bindWatchlistFilter(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	view, err := h.Watchlist.View(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, view)
}

// APICreateWatchlist 加入清单；已在清单中时返回原条目
func (h *Handler) APICreateWatchlist(c *gin.Context) {
	var req createWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.fail(c, err)
		return
	}

	entry, created, err := h.Watchlist.Add(c.Request.Context(), req.MovieID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !created {
		utils.SuccessWithMessage(c, "already in watchlist", entry)
		return
	}
	utils.Created(c, entry)
}

// APIWatchlistItem 按 ID 获取条目
func (h *Handler) APIWatchlistItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	entry, err := h.Sources.Watchlist.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, entry)
}

// APIUpdateWatchlist 更新已看状态或评分
func (h *Handler) APIUpdateWatchlist(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "invalid request body")
		return
	}
	patch, err := req.patch(h)
	if err != nil {
		h.fail(c, err)
		return
	}
	if patch.Empty() {
		utils.BadRequest(c, "nothing to update")
		return
	}

	entry, err := h.Sources.Watchlist.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, entry)
}

// APIDeleteWatchlist 移出清单
func (h *Handler) APIDeleteWatchlist(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Watchlist.Remove(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessWithMessage(c, "removed from watchlist", nil)
}

// APIWatchlistByMovie 按电影 ID 查找条目
func (h *Handler) APIWatchlistByMovie(c *gin.Context) {
	movieID, ok := paramID(c, "movieId")
	if !ok {
		return
	}
	entry, err := h.Sources.Watchlist.GetByMovieID(c.Request.Context(), movieID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if entry == nil {
		utils.NotFound(c, "movie is not in watchlist")
		return
	}
	utils.Success(c, entry)
}

// APIWatchlistCheck 是否在清单中；查询失败视为不在
func (h *Handler) APIWatchlistCheck(c *gin.Context) {
	movieID, ok := paramID(c, "movieId")
	if !ok {
		return
	}
	utils.Success(c, gin.H{
		"movie_id":     movieID,
		"in_watchlist": h.Sources.Watchlist.IsInWatchlist(c.Request.Context(), movieID),
	})
}

// APIToggleWatchlist 收藏按钮
func (h *Handler) APIToggleWatchlist(c *gin.Context) {
	movieID, ok := paramID(c, "movieId")
	if !ok {
		return
	}
	res, err := h.Watchlist.Toggle(c.Request.Context(), movieID)
	if err != nil {
		h.fail(c, err)
		return
	}
	msg := "removed from watchlist"
	if res.InWatchlist {
		msg = "added to watchlist"
	}
	utils.SuccessWithMessage(c, msg, res)
}

// bindWatchlistFilter 读取清单筛选条件
func (h *Handler) bindWatchlistFilter(c *gin.Context) (model.WatchlistFilter, error) {
	filter := model.DefaultWatchlistFilter()
	if err := c.ShouldBindQuery(&filter); err != nil {
		return filter, &badRequestError{err}
	}
	if err := h.validate.Struct(filter); err != nil {
		return filter, err
	}
	return filter, nil
}
