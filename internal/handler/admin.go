package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/user/reelshelf/internal/middleware"
	"github.com/user/reelshelf/internal/model"
	"github.com/user/reelshelf/internal/utils"
)

// ==================== 管理接口 ====================

type tokenRequest struct {
	Password string `json:"password" validate:"required"`
}

// movieRequest 管理端写入电影
type movieRequest struct {
	Title          string            `json:"title" validate:"required,max=200"`
	Year           int               `json:"year" validate:"gte=1888,lte=2100"`
	Poster         string            `json:"poster" validate:"omitempty,url"`
	Synopsis       string            `json:"synopsis"`
	Rating         float64           `json:"rating" validate:"gte=0,lte=10"`
	Genres         []string          `json:"genres" validate:"dive,required"`
	Cast           []string          `json:"cast"`
	Director       string            `json:"director"`
	StreamingLinks map[string]string `json:"streaming_links" validate:"dive,url"`
}

func (r movieRequest) toModel(id int) *model.Movie {
	return &model.Movie{
		ID:             id,
		Title:          r.Title,
		Year:           r.Year,
		Poster:         r.Poster,
		Synopsis:       r.Synopsis,
		Rating:         r.Rating,
		Genres:         pq.StringArray(r.Genres),
		Cast:           pq.StringArray(r.Cast),
		Director:       r.Director,
		StreamingLinks: model.StreamingLinks(r.StreamingLinks),
	}
}

// AdminToken 校验管理员密码并签发 Token
func (h *Handler) AdminToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.fail(c, err)
		return
	}

	if err := middleware.CheckAdminPassword(h.Config.AdminPasswordHash, req.Password); err != nil {
		h.Logger.WithField("client_ip", c.ClientIP()).Warn("管理员登录失败")
		utils.Unauthorized(c, "invalid password")
		return
	}

	token, err := middleware.GenerateToken("admin", middleware.RoleAdmin, h.Config.AppSecret, h.Config.TokenExpiry)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, gin.H{
		"token":      token,
		"expires_in": int(h.Config.TokenExpiry.Seconds()),
	})
}

// AdminUpsertMovie 创建或更新电影（仅 database 数据源）
func (h *Handler) AdminUpsertMovie(c *gin.Context) {
	if h.Sources.Writer == nil {
		utils.Error(c, http.StatusNotImplemented, "catalog is read-only for data source "+h.Sources.Kind)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req movieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.fail(c, err)
		return
	}

	movie := req.toModel(id)
	if err := h.Sources.Writer.Upsert(c.Request.Context(), movie); err != nil {
		h.fail(c, err)
		return
	}
	h.Sources.Cache.Invalidate()
	utils.Success(c, movie)
}

// AdminDeleteMovie 删除电影（仅 database 数据源）
func (h *Handler) AdminDeleteMovie(c *gin.Context) {
	if h.Sources.Writer == nil {
		utils.Error(c, http.StatusNotImplemented, "catalog is read-only for data source "+h.Sources.Kind)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Sources.Writer.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.Sources.Cache.Invalidate()
	utils.SuccessWithMessage(c, "movie deleted", nil)
}

// AdminFlushCache 清空目录缓存
func (h *Handler) AdminFlushCache(c *gin.Context) {
	h.Sources.Cache.Invalidate()
	utils.SuccessWithMessage(c, "cache flushed", nil)
}
