package handler

import (
	"encoding/gob"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/user/reelshelf/internal/config"
	"github.com/user/reelshelf/internal/service"
	"github.com/user/reelshelf/internal/utils"
)

// session 键
const (
	sessionHistoryKey = "search_history"
)

func init() {
	// cookie session 使用 gob 编码搜索历史
	gob.Register([]string{})
}

// Handler HTTP 处理器
type Handler struct {
	Config    *config.Config
	Sources   *service.Sources
	Catalog   *service.CatalogService
	Watchlist *service.WatchlistService
	Logger    *logrus.Entry
	validate  *validator.Validate
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, sources *service.Sources, logger *logrus.Logger) *Handler {
	return &Handler{
		Config:    cfg,
		Sources:   sources,
		Catalog:   service.NewCatalogService(sources.Movies, logger),
		Watchlist: service.NewWatchlistService(sources.Watchlist, sources.Movies, logger),
		Logger:    logger.WithField("component", "handler"),
		validate:  newValidator(),
	}
}

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	res := gin.H{
		"SiteName":   h.Config.SiteName,
		"SiteUrl":    h.Config.SiteUrl,
		"Path":       c.Request.URL.Path,
		"CurrentURL": c.Request.URL.RequestURI(),
		"ActiveMenu": getActiveMenu(c.Request.URL.Path),
	}

	// 取出上一次请求留下的提示
	var flashes []string
	session := sessions.Default(c)
	for _, f := range session.Flashes() {
		if s, ok := f.(string); ok {
			flashes = append(flashes, s)
		}
	}
	if len(flashes) > 0 {
		if err := session.Save(); err != nil {
			h.Logger.WithError(err).Warn("保存 session 失败")
		}
	}
	res["Flashes"] = flashes

	for k, v := range data {
		res[k] = v
	}
	// 本次请求产生的提示追加在后面
	if notices, ok := data["Notices"].([]string); ok {
		res["Flashes"] = append(flashes, notices...)
	}
	return res
}

// getActiveMenu 根据路径判断当前高亮菜单
func getActiveMenu(path string) string {
	switch path {
	case "/":
		return "home"
	case "/browse":
		return "browse"
	case "/search":
		return "search"
	case "/watchlist":
		return "watchlist"
	default:
		return ""
	}
}

// flash 写入一次性提示，下一个页面展示
func (h *Handler) flash(c *gin.Context, msg string) {
	session := sessions.Default(c)
	session.AddFlash(msg)
	if err := session.Save(); err != nil {
		h.Logger.WithError(err).Warn("保存 session 失败")
	}
}

// searchHistory 当前访客的搜索记录
func searchHistory(c *gin.Context) []string {
	if v, ok := sessions.Default(c).Get(sessionHistoryKey).([]string); ok {
		return v
	}
	return nil
}

func (h *Handler) saveSearchHistory(c *gin.Context, history []string) {
	session := sessions.Default(c)
	if len(history) == 0 {
		session.Delete(sessionHistoryKey)
	} else {
		session.Set(sessionHistoryKey, history)
	}
	if err := session.Save(); err != nil {
		h.Logger.WithError(err).Warn("保存搜索记录失败")
	}
}

// statusFor 错误对应的 HTTP 状态码
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRating), errors.As(err, &verrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail 以统一结构返回错误
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		utils.InternalServerError(c, errorMessage(err))
		return
	}
	utils.Error(c, status, errorMessage(err))
}

// errorMessage 校验错误转成可读的提示
func errorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid " + fe.Field() + ": failed on " + fe.Tag()
	}
	return err.Error()
}

// badRequestError 请求参数无法解析
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }
