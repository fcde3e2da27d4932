package model

// 浏览页默认筛选区间
const (
	DefaultYearMin   = 2000
	DefaultYearMax   = 2024
	DefaultRatingMin = 0
	DefaultRatingMax = 10
)

// 浏览页排序方式
const (
	SortRating     = "rating"
	SortYear       = "year"
	SortTitle      = "title"
	SortPopularity = "popularity"
)

// BrowseFilter 浏览页筛选条件
type BrowseFilter struct {
	Genres    []string `form:"genre" json:"genres"`
	YearMin   int      `form:"year_min" json:"year_min" validate:"gte=1888,lte=2100"`
	YearMax   int      `form:"year_max" json:"year_max" validate:"gte=1888,lte=2100,gtefield=YearMin"`
	RatingMin float64  `form:"rating_min" json:"rating_min" validate:"gte=0,lte=10"`
	RatingMax float64  `form:"rating_max" json:"rating_max" validate:"gte=0,lte=10,gtefield=RatingMin"`
	SortBy    string   `form:"sort" json:"sort" validate:"oneof=rating year title popularity"`
}

// DefaultBrowseFilter 默认筛选条件
func DefaultBrowseFilter() BrowseFilter {
	return BrowseFilter{
		YearMin:   DefaultYearMin,
		YearMax:   DefaultYearMax,
		RatingMin: DefaultRatingMin,
		RatingMax: DefaultRatingMax,
		SortBy:    SortRating,
	}
}

// ActiveCount 生效的筛选项数量
func (f BrowseFilter) ActiveCount() int {
	n := len(f.Genres)
	if f.YearMin != DefaultYearMin || f.YearMax != DefaultYearMax {
		n++
	}
	if f.RatingMin != DefaultRatingMin || f.RatingMax != DefaultRatingMax {
		n++
	}
	return n
}

// 清单页筛选与排序
const (
	StatusAll       = "all"
	StatusWatched   = "watched"
	StatusUnwatched = "unwatched"

	SortAdded = "added"
)

// WatchlistFilter 清单页筛选条件
type WatchlistFilter struct {
	Status string `form:"filter" json:"filter" validate:"oneof=all watched unwatched"`
	SortBy string `form:"sort" json:"sort" validate:"oneof=added rating title"`
}

// DefaultWatchlistFilter 默认显示全部，按加入时间排序
func DefaultWatchlistFilter() WatchlistFilter {
	return WatchlistFilter{Status: StatusAll, SortBy: SortAdded}
}
