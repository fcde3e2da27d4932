package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/user/reelshelf/internal/config"
	"github.com/user/reelshelf/internal/handler"
	"github.com/user/reelshelf/internal/repository"
	"github.com/user/reelshelf/internal/router"
	"github.com/user/reelshelf/internal/service"
	"github.com/user/reelshelf/internal/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reelshelf",
		Short:         "Movie discovery and watchlist server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve()
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create database tables",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate()
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load the bundled movie dataset into the database",
			RunE: func(cmd *cobra.Command, args []string) error {
				return seed(cmd.Context())
			},
		},
	)
	return root
}

// bootstrap 加载环境变量与配置，创建日志
func bootstrap() (*config.Config, *logrus.Logger, error) {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "未找到 .env 文件，使用系统环境变量")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	if cfg.IsProduction() && cfg.UsesDefaultSecret() {
		logger.Warn("APP_SECRET 仍是默认值，请在生产环境中修改")
	}
	return cfg, logger, nil
}

func openRepositories(cfg *config.Config, logger *logrus.Logger) (*repository.Repositories, func(), error) {
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	logger.Info("数据库已连接")
	return repository.NewRepositories(db), func() { _ = sqlDB.Close() }, nil
}

func serve() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	logger.WithField("source", cfg.DataSource).Info("Starting ReelShelf")

	deps := service.Deps{Logger: logger}
	if cfg.DataSource == config.SourceDatabase {
		repos, closeDB, err := openRepositories(cfg, logger)
		if err != nil {
			return err
		}
		defer closeDB()
		deps.Repos = repos
	}

	sources, err := service.NewSources(cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to initialize data source: %w", err)
	}

	// 启动定时刷新任务
	refresh := service.NewRefreshService(sources.Cache, cfg.RefreshCron, logger)
	if err := refresh.Start(); err != nil {
		return err
	}
	defer refresh.Stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := handler.NewHandler(cfg, sources, logger)
	r := router.New(cfg, h, logger, reg)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("服务器启动失败: %w", err)
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("正在关闭服务器...")
	}

	// 5 秒超时上下文用于关闭过程
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}

	logger.Info("服务器已退出")
	return nil
}

func migrate() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	repos, closeDB, err := openRepositories(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := repository.AutoMigrate(repos.DB); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	logger.Info("数据库迁移完成")
	return nil
}

func seed(ctx context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	repos, closeDB, err := openRepositories(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := repository.AutoMigrate(repos.DB); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	movies, err := service.LoadMockMovies()
	if err != nil {
		return err
	}
	source := service.NewDBMovieSource(repos.Movie, logger)
	for i := range movies {
		if err := source.Upsert(ctx, &movies[i]); err != nil {
			return fmt.Errorf("写入电影 %d 失败: %w", movies[i].ID, err)
		}
	}
	total, err := repos.Movie.Count(ctx)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"imported": len(movies), "total": total}).Info("电影数据已导入")
	return nil
}
