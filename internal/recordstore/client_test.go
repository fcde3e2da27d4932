package recordstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c, err := New(Options{BaseURL: srv.URL + "/", ProjectID: "proj", PublicKey: "pk"}, logger)
	require.NoError(t, err)
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Options{BaseURL: "http://x"}, logrus.New())
	assert.Error(t, err)

	_, err = New(Options{ProjectID: "p", PublicKey: "k"}, logrus.New())
	assert.Error(t, err)
}

func TestFetchRecordsSendsParams(t *testing.T) {
	var got FetchParams
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tables/movie/records/query", r.URL.Path)
		assert.Equal(t, "proj", r.Header.Get("X-Project-Id"))
		assert.Equal(t, "Bearer pk", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"data":[{"Id":1,"title":"Heat"}]}`))
	})

	resp, err := c.FetchRecords(context.Background(), "movie", FetchParams{
		Fields:  Fields("title", "year"),
		Where:   []Condition{{FieldName: "rating", Operator: OpGreaterThanOrEqualTo, Values: []string{"7.5"}}},
		OrderBy: []OrderBy{{FieldName: "rating", SortType: SortDesc}},
	})
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, resp.Decode(&rows))
	assert.Len(t, rows, 1)
	assert.Equal(t, "Heat", rows[0]["title"])

	require.Len(t, got.Fields, 2)
	assert.Equal(t, "title", got.Fields[0].Field.Name)
	assert.Equal(t, OpGreaterThanOrEqualTo, got.Where[0].Operator)
	assert.Equal(t, SortDesc, got.OrderBy[0].SortType)
}

func TestUnsuccessfulResponseBecomesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"quota exceeded"}`))
	})

	_, err := c.FetchRecords(context.Background(), "movie", FetchParams{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "quota exceeded", apiErr.Message)
}

func TestNonJSONErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.GetRecordByID(context.Background(), "movie", 3, FetchParams{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestDeleteRecordPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		var p DeleteParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, []int{7}, p.RecordIds)
		w.Write([]byte(`{"success":true,"results":[{"success":true}]}`))
	})

	resp, err := c.DeleteRecord(context.Background(), "watchlist", DeleteParams{RecordIds: []int{7}})
	require.NoError(t, err)
	_, err = resp.FirstResult("delete")
	assert.NoError(t, err)
}

func TestFirstResult(t *testing.T) {
	resp := &Response{Results: []Result{{Success: true, Data: json.RawMessage(`{"Id":1}`)}, {Success: false}}}
	_, err := resp.FirstResult("create")
	require.Error(t, err)
	assert.Equal(t, "failed to create 1 records", err.Error())

	resp = &Response{}
	_, err = resp.FirstResult("update")
	assert.EqualError(t, err, "failed to update record")

	resp = &Response{Results: []Result{{Success: true, Data: json.RawMessage(`{"Id":9}`)}}}
	res, err := resp.FirstResult("create")
	require.NoError(t, err)
	assert.JSONEq(t, `{"Id":9}`, string(res.Data))
}

func TestDecodeNullData(t *testing.T) {
	resp := &Response{Success: true, Data: json.RawMessage("null")}
	var v map[string]interface{}
	assert.ErrorIs(t, resp.Decode(&v), ErrNotFound)
}
