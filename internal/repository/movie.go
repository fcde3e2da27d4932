package repository

import (
	"context"
	"strings"

	"github.com/user/reelshelf/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 列表排序
const (
	OrderRatingDesc = "rating DESC, id ASC"
	OrderYearDesc   = "year DESC, id ASC"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// List 全部电影
func (r *MovieRepository) List(ctx context.Context, order string) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.WithContext(ctx).Order(order).Find(&movies).Error
	return movies, err
}

// FindByID 根据 ID 查找电影
func (r *MovieRepository) FindByID(ctx context.Context, id int) (*model.Movie, error) {
	var movie model.Movie
	if err := r.db.WithContext(ctx).First(&movie, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &movie, nil
}

// ListByGenre 分类包含 genre 的电影（忽略大小写）
func (r *MovieRepository) ListByGenre(ctx context.Context, genre string) ([]model.Movie, error) {
	var movies []model.Movie
	q := r.db.WithContext(ctx)
	if isPostgres(r.db) {
		q = q.Where("EXISTS (SELECT 1 FROM unnest(genres) g WHERE LOWER(g) = LOWER(?))", genre)
	} else {
		// 其他方言下数组以 {"a","b"} 文本存储
		q = q.Where("LOWER(genres) LIKE ?", `%"`+strings.ToLower(genre)+`"%`)
	}
	err := q.Order(OrderRatingDesc).Find(&movies).Error
	return movies, err
}

// Search 标题、导演、演员、分类模糊匹配
func (r *MovieRepository) Search(ctx context.Context, query string) ([]model.Movie, error) {
	var movies []model.Movie
	like := "%" + escapeLike(strings.ToLower(query)) + "%"
	cast, genres := "cast_members", "genres"
	if isPostgres(r.db) {
		cast, genres = "array_to_string(cast_members, ',')", "array_to_string(genres, ',')"
	}
	err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(director) LIKE ? ESCAPE '\\' OR LOWER("+cast+") LIKE ? ESCAPE '\\' OR LOWER("+genres+") LIKE ? ESCAPE '\\'",
			like, like, like, like).
		Order(OrderRatingDesc).
		Find(&movies).Error
	return movies, err
}

// ListMinRating 评分不低于 min
func (r *MovieRepository) ListMinRating(ctx context.Context, min float64) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.WithContext(ctx).Where("rating >= ?", min).Order(OrderRatingDesc).Find(&movies).Error
	return movies, err
}

// ListFromYear 年份不早于 year
func (r *MovieRepository) ListFromYear(ctx context.Context, year int) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.WithContext(ctx).Where("year >= ?", year).Order(OrderYearDesc).Find(&movies).Error
	return movies, err
}

// Upsert 创建或更新电影，同时刷新分类向量
func (r *MovieRepository) Upsert(ctx context.Context, movie *model.Movie) error {
	vec := model.GenreEmbedding(movie.Genres)
	movie.Embedding = &vec
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "year", "poster", "synopsis", "rating", "genres",
			"cast_members", "director", "streaming_links", "embedding",
		}),
	}).Create(movie).Error
}

// Delete 删除电影
func (r *MovieRepository) Delete(ctx context.Context, id int) error {
	res := r.db.WithContext(ctx).Delete(&model.Movie{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Similar 按分类向量距离查找相似电影（仅 postgres + pgvector）
func (r *MovieRepository) Similar(ctx context.Context, id, limit int) ([]model.Movie, error) {
	if !isPostgres(r.db) {
		return nil, ErrUnsupported
	}
	src, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if src.Embedding == nil {
		return nil, nil
	}

	var movies []model.Movie
	err = r.db.WithContext(ctx).
		Where("id <> ? AND embedding IS NOT NULL", id).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <-> ?, rating DESC", Vars: []interface{}{*src.Embedding}, WithoutParentheses: true},
		}).
		Limit(limit).
		Find(&movies).Error
	return movies, err
}

// Count 电影总数
func (r *MovieRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Movie{}).Count(&count).Error
	return count, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
