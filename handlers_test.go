package dsbplan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldashboard/dsbplan/aggregator"
	"github.com/schooldashboard/dsbplan/dsb"
	"github.com/schooldashboard/dsbplan/plan"
	"github.com/schooldashboard/dsbplan/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPlans struct {
	plans  []plan.SubstitutionPlan
	status aggregator.Status
}

func (s stubPlans) Plans() []plan.SubstitutionPlan { return s.plans }
func (s stubPlans) Status() aggregator.Status      { return s.status }

type stubTimetables struct {
	tables []dsb.TimeTable
	news   []dsb.News
	err    error
}

func (s stubTimetables) GetTimeTables(context.Context) ([]dsb.TimeTable, error) {
	if s.err != nil {
		return []dsb.TimeTable{}, s.err
	}
	return s.tables, nil
}

func (s stubTimetables) GetNews(context.Context) ([]dsb.News, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.news, nil
}

type stubCache map[string]string

func (s stubCache) GetRawJSON(_ context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

func serve(t *testing.T, h *Handlers, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func plansN(n int) []plan.SubstitutionPlan {
	out := make([]plan.SubstitutionPlan, n)
	for i := range out {
		out[i] = plan.NewSubstitutionPlan("d")
	}
	return out
}

func TestSubstitutionPlans_Published(t *testing.T) {
	h := &Handlers{Plans: stubPlans{plans: plansN(3)}, Cache: stubCache{store.KeySubstitutionPlans: `[{"cached":true}]`}}

	rec := serve(t, h, "/api/substitution/plans?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []plan.SubstitutionPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestSubstitutionPlans_CachedWhenEmpty(t *testing.T) {
	h := &Handlers{Plans: stubPlans{}, Cache: stubCache{store.KeySubstitutionPlans: `[{"a":1},{"a":2},{"a":3}]`}}

	rec := serve(t, h, "/api/substitution/plans?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"a":1}]`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestSubstitutionPlans_EmptyWithoutCache(t *testing.T) {
	h := &Handlers{Plans: stubPlans{}, Cache: stubCache{}}

	rec := serve(t, h, "/api/substitution/plans")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestLimitValidation(t *testing.T) {
	h := &Handlers{Plans: stubPlans{}, Timetables: stubTimetables{}}
	for _, q := range []string{"0", "101", "-1", "abc"} {
		rec := serve(t, h, "/api/substitution/plans?limit="+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		rec = serve(t, h, "/api/dsb/timetables?limit="+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestTimeTables(t *testing.T) {
	tables := []dsb.TimeTable{{UUID: "a", Title: "1"}, {UUID: "a", Title: "2"}}
	h := &Handlers{Timetables: stubTimetables{tables: tables}}

	rec := serve(t, h, "/api/dsb/timetables?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []dsb.TimeTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, tables[:1], got)
}

func TestTimeTables_FailureWithoutCache(t *testing.T) {
	h := &Handlers{Timetables: stubTimetables{err: dsb.ErrTransport}, Cache: stubCache{}}

	rec := serve(t, h, "/api/dsb/timetables")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error fetching timetables")
}

func TestTimeTables_FailureIgnoresRawCache(t *testing.T) {
	h := &Handlers{
		Timetables: stubTimetables{err: dsb.ErrTransport},
		Cache:      stubCache{store.KeyTimeTables: `[{"uuid":"a"},{"uuid":"b"}]`},
	}

	rec := serve(t, h, "/api/dsb/timetables?limit=1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"uuid":"a"`)
}

func TestNews(t *testing.T) {
	h := &Handlers{Timetables: stubTimetables{news: []dsb.News{{Title: "Elternabend"}}}}
	rec := serve(t, h, "/api/dsb/news")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Elternabend")

	h = &Handlers{Timetables: stubTimetables{err: errors.New("boom")}}
	rec = serve(t, h, "/api/dsb/news")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealth(t *testing.T) {
	success := time.Date(2026, 10, 17, 7, 30, 0, 0, time.UTC)
	h := &Handlers{
		Plans:   stubPlans{status: aggregator.Status{LastSuccess: success, Plans: 2, LastError: "previous failure"}},
		Ping:    func(context.Context) error { return nil },
		Version: "1.2.3",
	}

	rec := serve(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UP", body.Status)
	assert.Equal(t, "UP", body.DB)
	assert.Equal(t, "2026-10-17T07:30:00Z", body.LastUpdate)
	assert.Equal(t, "previous failure", body.LastError)
	assert.Equal(t, 2, body.Plans)
	assert.Equal(t, "1.2.3", body.Version)
	assert.NotEmpty(t, body.Timestamp)
}

func TestHealth_DatabaseDown(t *testing.T) {
	h := &Handlers{
		Plans: stubPlans{},
		Ping:  func(context.Context) error { return errors.New("connection refused") },
	}

	rec := serve(t, h, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DOWN", body.Status)
	assert.Equal(t, "DOWN", body.DB)
	assert.Equal(t, "connection refused", body.DBError)
	assert.Empty(t, body.LastUpdate)
}

func TestParseLimit(t *testing.T) {
	v, err := parseLimit("")
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = parseLimit(" 100 ")
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	_, err = parseLimit("1.5")
	var qe *queryError
	assert.ErrorAs(t, err, &qe)
}
