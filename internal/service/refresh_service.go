package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Warmer 可以清空并预热的缓存
type Warmer interface {
	Invalidate()
	Warm(ctx context.Context) error
}

// RefreshService 定时刷新电影目录缓存
type RefreshService struct {
	cron     *cron.Cron
	schedule string
	cache    Warmer
	timeout  time.Duration
	logger   *logrus.Entry
}

// NewRefreshService schedule 为标准五段 cron 表达式
func NewRefreshService(cache Warmer, schedule string, logger *logrus.Logger) *RefreshService {
	return &RefreshService{
		cron:     cron.New(),
		schedule: schedule,
		cache:    cache,
		timeout:  30 * time.Second,
		logger:   logger.WithField("component", "refresh"),
	}
}

// Start 注册任务并启动；启动时先预热一次
func (s *RefreshService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("failed to add refresh job: %w", err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("缓存刷新任务已启动")

	go s.RunOnce()
	return nil
}

// Stop 停止调度并等待正在执行的任务
func (s *RefreshService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("缓存刷新任务已停止")
}

// RunOnce 清空缓存后重新加载首页列表
func (s *RefreshService) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	s.cache.Invalidate()
	if err := s.cache.Warm(ctx); err != nil {
		s.logger.WithError(err).Error("预热电影缓存失败")
		return
	}
	s.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("电影缓存已刷新")
}
