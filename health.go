package dsbplan

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schooldashboard/dsbplan/utils"
)

type healthResponse struct {
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
	DB           string `json:"db"`
	DBError      string `json:"dbError,omitempty"`
	LastUpdate   string `json:"lastUpdate"`
	LastError    string `json:"lastError"`
	LastDuration int64  `json:"lastDurationMs"`
	Plans        int    `json:"plans"`
	Version      string `json:"version,omitempty"`
	UptimeMS     int64  `json:"uptimeMs"`
}

func (h *Handlers) handleHealth(c *gin.Context) {
	resp := healthResponse{
		Status:    "UP",
		Timestamp: utils.Iso8601Now(),
		DB:        "NOT CONFIGURED",
		Version:   h.Version,
	}
	if !h.started.IsZero() {
		resp.UptimeMS = time.Since(h.started).Milliseconds()
	}
	if h.Plans != nil {
		st := h.Plans.Status()
		resp.LastUpdate = utils.Iso8601(st.LastSuccess)
		resp.LastError = st.LastError
		resp.LastDuration = st.LastDuration.Milliseconds()
		resp.Plans = st.Plans
	}

	code := http.StatusOK
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			resp.Status = "DOWN"
			resp.DB = "DOWN"
			resp.DBError = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			resp.DB = "UP"
		}
	}
	c.JSON(code, resp)
}
