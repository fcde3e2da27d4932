package repository

import (
	"context"
	"time"

	"github.com/user/reelshelf/internal/model"
	"gorm.io/gorm"
)

type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// List 按加入时间倒序
func (r *WatchlistRepository) List(ctx context.Context) ([]model.WatchlistEntry, error) {
	var entries []model.WatchlistEntry
	err := r.db.WithContext(ctx).Order("added_date DESC, id DESC").Find(&entries).Error
	return entries, err
}

// FindByID 根据 ID 查找
func (r *WatchlistRepository) FindByID(ctx context.Context, id int) (*model.WatchlistEntry, error) {
	var entry model.WatchlistEntry
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

// FindByMovieID 根据电影 ID 查找（取最早加入的一条）
func (r *WatchlistRepository) FindByMovieID(ctx context.Context, movieID int) (*model.WatchlistEntry, error) {
	var entry model.WatchlistEntry
	err := r.db.WithContext(ctx).Where("movie_id = ?", movieID).Order("id ASC").First(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

// Create 加入清单：当前时间、未看、无评分
func (r *WatchlistRepository) Create(ctx context.Context, movieID int) (*model.WatchlistEntry, error) {
	entry := &model.WatchlistEntry{
		MovieID:   movieID,
		AddedDate: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// Update 只更新补丁中设置的字段
func (r *WatchlistRepository) Update(ctx context.Context, id int, patch model.WatchlistPatch) (*model.WatchlistEntry, error) {
	var entry *model.WatchlistEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.WatchlistEntry
		if err := tx.First(&current, id).Error; err != nil {
			return notFound(err)
		}

		updates := map[string]interface{}{}
		if patch.Watched != nil {
			updates["watched"] = *patch.Watched
		}
		if patch.UserRating != nil {
			updates["user_rating"] = *patch.UserRating
		}
		if len(updates) > 0 {
			if err := tx.Model(&model.WatchlistEntry{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		patch.Apply(&current)
		entry = &current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete 移出清单
func (r *WatchlistRepository) Delete(ctx context.Context, id int) error {
	res := r.db.WithContext(ctx).Delete(&model.WatchlistEntry{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count 清单条目数量
func (r *WatchlistRepository) Count(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WatchlistEntry{}).Count(&count).Error
	return int(count), err
}

// CountWatched 已看数量
func (r *WatchlistRepository) CountWatched(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WatchlistEntry{}).Where("watched = ?", true).Count(&count).Error
	return int(count), err
}
