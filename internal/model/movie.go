package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Movie 电影
type Movie struct {
	ID             int              `json:"id" gorm:"primaryKey"`
	Title          string           `json:"title" gorm:"not null"`
	Year           int              `json:"year" gorm:"index"`
	Poster         string           `json:"poster"`
	Synopsis       string           `json:"synopsis"`
	Rating         float64          `json:"rating" gorm:"index"`
	Genres         pq.StringArray   `json:"genres" gorm:"type:text[]"`
	Cast           pq.StringArray   `json:"cast" gorm:"column:cast_members;type:text[]"`
	Director       string           `json:"director"`
	StreamingLinks StreamingLinks   `json:"streaming_links" gorm:"type:jsonb"`
	Embedding      *pgvector.Vector `json:"-" gorm:"type:vector(12)"`
}

// HasGenre 忽略大小写判断是否属于某个分类
func (m *Movie) HasGenre(genre string) bool {
	for _, g := range m.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// Matches 标题、导演、演员、分类任一包含关键词即命中
func (m *Movie) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	if strings.Contains(strings.ToLower(m.Title), q) ||
		strings.Contains(strings.ToLower(m.Director), q) {
		return true
	}
	for _, c := range m.Cast {
		if strings.Contains(strings.ToLower(c), q) {
			return true
		}
	}
	for _, g := range m.Genres {
		if strings.Contains(strings.ToLower(g), q) {
			return true
		}
	}
	return false
}

// Clone 深拷贝，避免调用方修改内存数据
func (m Movie) Clone() Movie {
	out := m
	out.Genres = append(pq.StringArray(nil), m.Genres...)
	out.Cast = append(pq.StringArray(nil), m.Cast...)
	if m.StreamingLinks != nil {
		out.StreamingLinks = make(StreamingLinks, len(m.StreamingLinks))
		for k, v := range m.StreamingLinks {
			out.StreamingLinks[k] = v
		}
	}
	if m.Embedding != nil {
		v := pgvector.NewVector(append([]float32(nil), m.Embedding.Slice()...))
		out.Embedding = &v
	}
	return out
}

// StreamingLinks 平台名 -> 播放地址
type StreamingLinks map[string]string

// Value 以 JSON 字符串入库
func (s StreamingLinks) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 从 JSON 列读取
func (s *StreamingLinks) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("streaming links: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

// GenreVocabulary 分类向量的维度顺序
var GenreVocabulary = []string{
	"Action", "Adventure", "Comedy", "Crime", "Drama", "Fantasy",
	"Horror", "Mystery", "Romance", "Sci-Fi", "Thriller", "Music",
}

// GenreEmbedding 按 GenreVocabulary 生成 one-hot 分类向量
func GenreEmbedding(genres []string) pgvector.Vector {
	vec := make([]float32, len(GenreVocabulary))
	for i, name := range GenreVocabulary {
		for _, g := range genres {
			if strings.EqualFold(g, name) {
				vec[i] = 1
				break
			}
		}
	}
	return pgvector.NewVector(vec)
}
