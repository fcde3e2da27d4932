package model

import "time"

// WatchlistEntry 待看清单条目
type WatchlistEntry struct {
	ID         int       `json:"id" gorm:"primaryKey"`
	MovieID    int       `json:"movie_id" gorm:"index;not null"`
	AddedDate  time.Time `json:"added_date" gorm:"index"`
	Watched    bool      `json:"watched"`
	UserRating *int      `json:"user_rating"`
}

// TableName 表名
func (WatchlistEntry) TableName() string {
	return "watchlist"
}

// WatchlistPatch 部分更新，只写入设置过的字段
// UserRating 外层非 nil 而内层为 nil 表示清除评分
type WatchlistPatch struct {
	Watched    *bool
	UserRating **int
}

// Empty 没有任何字段需要更新
func (p WatchlistPatch) Empty() bool {
	return p.Watched == nil && p.UserRating == nil
}

// Apply 把补丁应用到条目上
func (p WatchlistPatch) Apply(e *WatchlistEntry) {
	if p.Watched != nil {
		e.Watched = *p.Watched
	}
	if p.UserRating != nil {
		if *p.UserRating == nil {
			e.UserRating = nil
		} else {
			r := **p.UserRating
			e.UserRating = &r
		}
	}
}

// Clone 拷贝条目
func (e WatchlistEntry) Clone() WatchlistEntry {
	out := e
	if e.UserRating != nil {
		r := *e.UserRating
		out.UserRating = &r
	}
	return out
}

// WatchlistItem 清单页的一行：电影 + 清单条目
type WatchlistItem struct {
	Movie Movie          `json:"movie"`
	Entry WatchlistEntry `json:"entry"`
}
