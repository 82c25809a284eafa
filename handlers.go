package dsbplan

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/schooldashboard/dsbplan/aggregator"
	"github.com/schooldashboard/dsbplan/dsb"
	"github.com/schooldashboard/dsbplan/plan"
	"github.com/schooldashboard/dsbplan/store"
	"github.com/schooldashboard/dsbplan/utils"
)

// PlanSource exposes the published plans.
type PlanSource interface {
	Plans() []plan.SubstitutionPlan
	Status() aggregator.Status
}

// TimetableSource serves live upstream data with cache fallback.
type TimetableSource interface {
	GetTimeTables(ctx context.Context) ([]dsb.TimeTable, error)
	GetNews(ctx context.Context) ([]dsb.News, error)
}

// RawCache returns previously stored JSON payloads.
type RawCache interface {
	GetRawJSON(ctx context.Context, key string) (string, bool, error)
}

// Handlers serves the REST endpoints.
type Handlers struct {
	Plans      PlanSource
	Timetables TimetableSource
	Cache      RawCache
	Ping       func(ctx context.Context) error
	Version    string
	Logger     *zap.Logger

	started time.Time
}

const jsonContentType = "application/json; charset=utf-8"

func (h *Handlers) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func badLimit(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// cached writes the payload stored under key, truncated to limit. It reports
// whether anything was written.
func (h *Handlers) cached(c *gin.Context, key string, limit int) bool {
	if h.Cache == nil {
		return false
	}
	raw, ok, err := h.Cache.GetRawJSON(c.Request.Context(), key)
	if err != nil {
		h.logger().Warn("failed to read response cache", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	c.Data(http.StatusOK, jsonContentType, []byte(utils.LimitJSONArray(raw, limit)))
	return true
}

func (h *Handlers) handleSubstitutionPlans(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		badLimit(c, err)
		return
	}
	plans := h.Plans.Plans()
	if len(plans) == 0 && h.cached(c, store.KeySubstitutionPlans, limit) {
		return
	}
	if plans == nil {
		plans = []plan.SubstitutionPlan{}
	}
	c.JSON(http.StatusOK, limitSlice(plans, limit))
}

func (h *Handlers) handleTimeTables(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		badLimit(c, err)
		return
	}
	// GetTimeTables already falls back to the validated cache records; the raw
	// payload is not served here.
	tables, err := h.Timetables.GetTimeTables(c.Request.Context())
	if err != nil {
		h.logger().Warn("timetables unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error fetching timetables: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, limitSlice(tables, limit))
}

func (h *Handlers) handleNews(c *gin.Context) {
	news, err := h.Timetables.GetNews(c.Request.Context())
	if err != nil {
		h.logger().Warn("news unavailable", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Error fetching news: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, news)
}
