package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/user/reelshelf/internal/model"
	"github.com/user/reelshelf/internal/recordstore"
)

const (
	movieTable     = "movie"
	watchlistTable = "watchlist"
)

// RecordStore 远程数据源依赖的记录存储操作
type RecordStore interface {
	FetchRecords(ctx context.Context, table string, params recordstore.FetchParams) (*recordstore.Response, error)
	GetRecordByID(ctx context.Context, table string, id int, params recordstore.FetchParams) (*recordstore.Response, error)
	CreateRecord(ctx context.Context, table string, params recordstore.RecordsParams) (*recordstore.Response, error)
	UpdateRecord(ctx context.Context, table string, params recordstore.RecordsParams) (*recordstore.Response, error)
	DeleteRecord(ctx context.Context, table string, params recordstore.DeleteParams) (*recordstore.Response, error)
}

var (
	movieFields     = recordstore.Fields("Name", "title", "year", "poster", "synopsis", "rating", "genres", "cast", "director", "streaming_links")
	watchlistFields = recordstore.Fields("Name", "movie_id", "added_date", "watched", "user_rating")
)

// flexList 记录存储里的多选字段，可能是数组也可能是逗号分隔的字符串
type flexList []string

func (l *flexList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*l = nil
		return nil
	}
	if b[0] == '[' {
		var arr []string
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}

// flexLinks streaming_links 可能是对象，也可能是 JSON 字符串
type flexLinks map[string]string

func (l *flexLinks) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*l = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*l = nil
			return nil
		}
		b = []byte(s)
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*l = m
	return nil
}

type remoteMovie struct {
	ID             int       `json:"Id"`
	Name           string    `json:"Name"`
	Title          string    `json:"title"`
	Year           int       `json:"year"`
	Poster         string    `json:"poster"`
	Synopsis       string    `json:"synopsis"`
	Rating         float64   `json:"rating"`
	Genres         flexList  `json:"genres"`
	Cast           flexList  `json:"cast"`
	Director       string    `json:"director"`
	StreamingLinks flexLinks `json:"streaming_links"`
}

func (r remoteMovie) toModel() model.Movie {
	title := r.Title
	if title == "" {
		title = r.Name
	}
	m := model.Movie{
		ID:       r.ID,
		Title:    title,
		Year:     r.Year,
		Poster:   r.Poster,
		Synopsis: r.Synopsis,
		Rating:   r.Rating,
		Genres:   []string(r.Genres),
		Cast:     []string(r.Cast),
		Director: r.Director,
	}
	if r.StreamingLinks != nil {
		m.StreamingLinks = model.StreamingLinks(r.StreamingLinks)
	}
	return m
}

type remoteWatchlist struct {
	ID         int        `json:"Id"`
	MovieID    flexInt    `json:"movie_id"`
	AddedDate  *time.Time `json:"added_date"`
	Watched    bool       `json:"watched"`
	UserRating *flexInt   `json:"user_rating"`
}

func (r remoteWatchlist) toModel() model.WatchlistEntry {
	e := model.WatchlistEntry{
		ID:      r.ID,
		MovieID: int(r.MovieID),
		Watched: r.Watched,
	}
	if r.AddedDate != nil {
		e.AddedDate = r.AddedDate.UTC()
	}
	if r.UserRating != nil {
		v := int(*r.UserRating)
		e.UserRating = &v
	}
	return e
}

// flexInt 查找类字段可能以数字、字符串或 {"Id":n} 返回
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*n = 0
		return nil
	case b[0] == '{':
		var ref struct {
			ID int `json:"Id"`
		}
		if err := json.Unmarshal(b, &ref); err != nil {
			return err
		}
		*n = flexInt(ref.ID)
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		*n = flexInt(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = flexInt(int(f))
	return nil
}

// RemoteMovieSource 基于托管记录存储的电影数据源
type RemoteMovieSource struct {
	store  RecordStore
	logger *logrus.Entry
}

// NewRemoteMovieSource 创建远程电影数据源
func NewRemoteMovieSource(store RecordStore, logger *logrus.Logger) *RemoteMovieSource {
	return &RemoteMovieSource{store: store, logger: logger.WithField("component", "movie_source")}
}

func (s *RemoteMovieSource) GetAll(ctx context.Context) ([]model.Movie, error) {
	return s.fetch(ctx, "fetch movies", recordstore.FetchParams{
		Fields:  movieFields,
		OrderBy: []recordstore.OrderBy{{FieldName: "rating", SortType: recordstore.SortDesc}},
	})
}

func (s *RemoteMovieSource) GetByID(ctx context.Context, id int) (*model.Movie, error) {
	resp, err := s.store.GetRecordByID(ctx, movieTable, id, recordstore.FetchParams{Fields: movieFields})
	if err != nil {
		s.logger.WithError(err).WithField("movie_id", id).Error("获取电影失败")
		return nil, err
	}
	var rec remoteMovie
	if err := resp.Decode(&rec); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, fmt.Errorf("movie %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	m := rec.toModel()
	return &m, nil
}

func (s *RemoteMovieSource) GetTrending(ctx context.Context) ([]model.Movie, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sortByRating(all)
	return topN(all, TrendingLimit), nil
}

func (s *RemoteMovieSource) GetByGenre(ctx context.Context, genre string) ([]model.Movie, error) {
	return s.fetch(ctx, "fetch movies by genre", recordstore.FetchParams{
		Fields: movieFields,
		Where: []recordstore.Condition{
			{FieldName: "genres", Operator: recordstore.OpContains, Values: []string{genre}},
		},
	})
}

func (s *RemoteMovieSource) Search(ctx context.Context, query string) ([]model.Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Movie{}, nil
	}
	group := recordstore.WhereGroup{Operator: "OR"}
	for _, field := range []string{"title", "director", "cast", "genres"} {
		group.SubGroups = append(group.SubGroups, recordstore.SubGroup{
			Conditions: []recordstore.GroupCondition{
				{FieldName: field, Operator: recordstore.OpContains, Values: []string{query}},
			},
		})
	}
	return s.fetch(ctx, "search movies", recordstore.FetchParams{
		Fields:      movieFields,
		WhereGroups: []recordstore.WhereGroup{group},
	})
}

func (s *RemoteMovieSource) GetPopular(ctx context.Context) ([]model.Movie, error) {
	return s.fetch(ctx, "fetch popular movies", recordstore.FetchParams{
		Fields: movieFields,
		Where: []recordstore.Condition{
			{FieldName: "rating", Operator: recordstore.OpGreaterThanOrEqualTo, Values: []string{strconv.FormatFloat(PopularMinRating, 'f', -1, 64)}},
		},
		OrderBy: []recordstore.OrderBy{{FieldName: "rating", SortType: recordstore.SortDesc}},
	})
}

func (s *RemoteMovieSource) GetNewReleases(ctx context.Context) ([]model.Movie, error) {
	return s.fetch(ctx, "fetch new releases", recordstore.FetchParams{
		Fields: movieFields,
		Where: []recordstore.Condition{
			{FieldName: "year", Operator: recordstore.OpGreaterThanOrEqualTo, Values: []string{strconv.Itoa(NewReleaseMinYear)}},
		},
		OrderBy: []recordstore.OrderBy{{FieldName: "year", SortType: recordstore.SortDesc}},
	})
}

func (s *RemoteMovieSource) fetch(ctx context.Context, op string, params recordstore.FetchParams) ([]model.Movie, error) {
	resp, err := s.store.FetchRecords(ctx, movieTable, params)
	if err != nil {
		s.logger.WithError(err).Errorf("%s 失败", op)
		return nil, err
	}
	var recs []remoteMovie
	if err := resp.Decode(&recs); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return []model.Movie{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]model.Movie, len(recs))
	for i, r := range recs {
		out[i] = r.toModel()
	}
	return out, nil
}

// RemoteWatchlistSource 基于托管记录存储的清单数据源
type RemoteWatchlistSource struct {
	store  RecordStore
	logger *logrus.Entry
	now    func() time.Time
}

// NewRemoteWatchlistSource 创建远程清单数据源
func NewRemoteWatchlistSource(store RecordStore, logger *logrus.Logger) *RemoteWatchlistSource {
	return &RemoteWatchlistSource{
		store:  store,
		logger: logger.WithField("component", "watchlist_source"),
		now:    time.Now,
	}
}

func (s *RemoteWatchlistSource) GetAll(ctx context.Context) ([]model.WatchlistEntry, error) {
	return s.fetch(ctx, recordstore.FetchParams{
		Fields:  watchlistFields,
		OrderBy: []recordstore.OrderBy{{FieldName: "added_date", SortType: recordstore.SortDesc}},
	})
}

func (s *RemoteWatchlistSource) GetByID(ctx context.Context, id int) (*model.WatchlistEntry, error) {
	resp, err := s.store.GetRecordByID(ctx, watchlistTable, id, recordstore.FetchParams{Fields: watchlistFields})
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("获取清单条目失败")
		return nil, err
	}
	var rec remoteWatchlist
	if err := resp.Decode(&rec); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, fmt.Errorf("watchlist item %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	e := rec.toModel()
	return &e, nil
}

func (s *RemoteWatchlistSource) Create(ctx context.Context, movieID int) (*model.WatchlistEntry, error) {
	resp, err := s.store.CreateRecord(ctx, watchlistTable, recordstore.RecordsParams{
		Records: []map[string]interface{}{{
			"movie_id":    movieID,
			"added_date":  s.now().UTC().Format(time.RFC3339),
			"watched":     false,
			"user_rating": nil,
		}},
	})
	if err != nil {
		s.logger.WithError(err).WithField("movie_id", movieID).Error("创建清单条目失败")
		return nil, err
	}
	return s.single(resp, "create")
}

func (s *RemoteWatchlistSource) Update(ctx context.Context, id int, patch model.WatchlistPatch) (*model.WatchlistEntry, error) {
	record := map[string]interface{}{"Id": id}
	if patch.Watched != nil {
		record["watched"] = *patch.Watched
	}
	if patch.UserRating != nil {
		if *patch.UserRating == nil {
			record["user_rating"] = nil
		} else {
			record["user_rating"] = **patch.UserRating
		}
	}
	resp, err := s.store.UpdateRecord(ctx, watchlistTable, recordstore.RecordsParams{
		Records: []map[string]interface{}{record},
	})
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("更新清单条目失败")
		return nil, err
	}
	return s.single(resp, "update")
}

func (s *RemoteWatchlistSource) Delete(ctx context.Context, id int) error {
	resp, err := s.store.DeleteRecord(ctx, watchlistTable, recordstore.DeleteParams{RecordIds: []int{id}})
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("删除清单条目失败")
		return err
	}
	if len(resp.Results) == 0 {
		return nil
	}
	_, err = resp.FirstResult("delete")
	return err
}

func (s *RemoteWatchlistSource) GetByMovieID(ctx context.Context, movieID int) (*model.WatchlistEntry, error) {
	entries, err := s.fetch(ctx, recordstore.FetchParams{
		Fields: watchlistFields,
		Where: []recordstore.Condition{
			{FieldName: "movie_id", Operator: recordstore.OpEqualTo, Values: []string{strconv.Itoa(movieID)}},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *RemoteWatchlistSource) IsInWatchlist(ctx context.Context, movieID int) bool {
	entries, err := s.fetch(ctx, recordstore.FetchParams{
		Fields: recordstore.Fields("Name"),
		Where: []recordstore.Condition{
			{FieldName: "movie_id", Operator: recordstore.OpEqualTo, Values: []string{strconv.Itoa(movieID)}},
		},
	})
	if err != nil {
		return false
	}
	return len(entries) > 0
}

func (s *RemoteWatchlistSource) fetch(ctx context.Context, params recordstore.FetchParams) ([]model.WatchlistEntry, error) {
	resp, err := s.store.FetchRecords(ctx, watchlistTable, params)
	if err != nil {
		s.logger.WithError(err).Error("获取清单失败")
		return nil, err
	}
	var recs []remoteWatchlist
	if err := resp.Decode(&recs); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return []model.WatchlistEntry{}, nil
		}
		return nil, fmt.Errorf("fetch watchlist: %w", err)
	}
	out := make([]model.WatchlistEntry, len(recs))
	for i, r := range recs {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *RemoteWatchlistSource) single(resp *recordstore.Response, op string) (*model.WatchlistEntry, error) {
	res, err := resp.FirstResult(op)
	if err != nil {
		s.logger.WithError(err).Errorf("%s watchlist item 失败", op)
		return nil, fmt.Errorf("failed to %s watchlist item: %w", op, err)
	}
	var rec remoteWatchlist
	if err := json.Unmarshal(res.Data, &rec); err != nil {
		return nil, fmt.Errorf("解析清单条目失败: %w", err)
	}
	e := rec.toModel()
	return &e, nil
}
