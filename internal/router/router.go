package router

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/user/reelshelf/internal/config"
	"github.com/user/reelshelf/internal/handler"
	"github.com/user/reelshelf/internal/middleware"
	"github.com/user/reelshelf/web"
)

const sessionName = "reelshelf"

// New 组装 gin 引擎：中间件、模板、路由
func New(cfg *config.Config, h *handler.Handler, logger *logrus.Logger, reg *prometheus.Registry) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别；/metrics 由 promhttp 自行压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 设置 Session 中间件（搜索历史、提示消息）
	store := cookie.NewStore([]byte(cfg.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// 中间件
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.NewMetrics(reg).Handler())
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(corsConfig(cfg)))

	// 加载模板（使用 multitemplate 解决继承问题）
	r.HTMLRender = LoadTemplates(web.Templates)

	RegisterRoutes(r, h, reg)
	r.NoRoute(h.NotFound)

	return r
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowOrigins = []string{"http://localhost:5005"}
	if strings.HasPrefix(cfg.SiteUrl, "http://") || strings.HasPrefix(cfg.SiteUrl, "https://") {
		c.AllowOrigins = []string{strings.TrimSuffix(cfg.SiteUrl, "/")}
	}
	c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	c.ExposeHeaders = []string{"Content-Length", "X-Request-ID", middleware.RefreshHeader}
	c.AllowCredentials = true
	c.MaxAge = 12 * time.Hour
	return c
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler, reg *prometheus.Registry) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "source": h.Sources.Kind})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// ==================== 公开页面 ====================
	r.GET("/", h.Home)
	r.GET("/browse", h.Browse)
	r.GET("/search", h.Search)
	r.POST("/search/history/clear", h.ClearSearchHistory)
	r.GET("/watchlist", h.WatchlistPage)
	r.POST("/watchlist/:id/watched", h.ToggleWatchedForm)
	r.POST("/watchlist/:id/rate", h.RateForm)
	r.POST("/watchlist/:id/remove", h.RemoveForm)
	r.GET("/movie/:id", h.Movie)
	r.POST("/movie/:id/watchlist", h.ToggleWatchlistForm)

	// ==================== JSON API ====================
	api := r.Group("/api")
	{
		api.GET("/home", h.APIHome)
		api.GET("/home/:section", h.APIHomeSection)

		movies := api.Group("/movies")
		movies.GET("", h.APIMovies)
		movies.GET("/trending", h.APITrending)
		movies.GET("/popular", h.APIPopular)
		movies.GET("/new-releases", h.APINewReleases)
		movies.GET("/genre/:genre", h.APIMoviesByGenre)
		movies.GET("/search", h.APISearch)
		movies.GET("/browse", h.APIBrowse)
		movies.GET("/:id", h.APIMovie)

		watchlist := api.Group("/watchlist")
		watchlist.GET("", h.APIWatchlist)
		watchlist.POST("", h.APICreateWatchlist)
		watchlist.GET("/movie/:movieId", h.APIWatchlistByMovie)
		watchlist.GET("/check/:movieId", h.APIWatchlistCheck)
		watchlist.POST("/toggle/:movieId", h.APIToggleWatchlist)
		watchlist.GET("/:id", h.APIWatchlistItem)
		watchlist.PATCH("/:id", h.APIUpdateWatchlist)
		watchlist.DELETE("/:id", h.APIDeleteWatchlist)

		api.DELETE("/search/history", h.APIClearSearchHistory)
	}

	// ==================== 管理接口 ====================
	r.POST("/admin/token", h.AdminToken)
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAdmin(h.Config.AppSecret))
	{
		admin.PUT("/movies/:id", h.AdminUpsertMovie)
		admin.DELETE("/movies/:id", h.AdminDeleteMovie)
		admin.POST("/cache/flush", h.AdminFlushCache)
	}
}

// LoadTemplates 使用 multitemplate 加载模板，解决模板继承问题
func LoadTemplates(fsys fs.FS) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := fs.Glob(fsys, "templates/layouts/*.html")
	if err != nil {
		panic(err)
	}
	partials, err := fs.Glob(fsys, "templates/partials/*.html")
	if err != nil {
		panic(err)
	}
	pages, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		panic(err)
	}

	// 组装模板文件列表
	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(partials)+1)
		files = append(files, layouts...)
		files = append(files, partials...)
		files = append(files, view)
		return files
	}

	// 注册所有页面模板
	for _, view := range pages {
		tmpl := template.Must(template.New(path.Base(layouts[0])).Funcs(FuncMap()).ParseFS(fsys, assemble(view)...))
		r.Add(path.Base(view), tmpl)
	}

	return r
}

// FuncMap 模板函数
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"default": func(defaultValue, value interface{}) interface{} {
			switch v := value.(type) {
			case string:
				if v == "" {
					return defaultValue
				}
			case int:
				if v == 0 {
					return defaultValue
				}
			case nil:
				return defaultValue
			}
			return value
		},
		"join": strings.Join,
		"contains": func(list []string, s string) bool {
			for _, v := range list {
				if strings.EqualFold(v, s) {
					return true
				}
			}
			return false
		},
		"rating": func(r float64) string {
			return fmt.Sprintf("%.1f", r)
		},
		"deref": func(p *int) int {
			if p == nil {
				return 0
			}
			return *p
		},
		"date": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
	}
}
