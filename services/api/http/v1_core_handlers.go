package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hidrolab/telemetria/services/api/db"
)

var errBadRequest = errors.New("bad request")

// handleV1ListStations returns all stations
// GET /api/v1/stations
func (s *Server) handleV1ListStations(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stations, err := s.store.ListStations(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stations,
		"meta": gin.H{
			"count": len(stations),
		},
	})
}

// handleV1GetStation returns one station
// GET /api/v1/stations/:code
func (s *Server) handleV1GetStation(c *gin.Context) {
	station, ok := s.lookupStation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": station})
}

// handleV1Readings returns readings, newest first
// GET /api/v1/stations/:code/readings?last_n=&last_n_days=&start=&end=
func (s *Server) handleV1Readings(c *gin.Context) {
	limit := s.cfg.DefaultLimit
	if limitStr := c.Query("last_n"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid last_n"})
			return
		}
		limit = parsed
	}

	since, until, err := timeWindow(c)
	if err != nil {
		return
	}
	if daysStr := c.Query("last_n_days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid last_n_days"})
			return
		}
		t := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
		since = &t
	}

	station, ok := s.lookupStation(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	readings, err := s.store.FetchReadings(ctx, db.ReadingQuery{
		StationID: station.ID,
		Limit:     limit,
		Since:     since,
		Until:     until,
	})
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": readings,
		"meta": gin.H{
			"station": station.Code,
			"count":   len(readings),
		},
	})
}

// handleV1Series returns chart series in ascending time. Without start the
// window opens API_DEFAULT_DAYS ago.
// GET /api/v1/stations/:code/series?start=&end=
func (s *Server) handleV1Series(c *gin.Context) {
	since, until, err := timeWindow(c)
	if err != nil {
		return
	}
	if since == nil {
		t := time.Now().UTC().Add(-time.Duration(s.cfg.DefaultDays) * 24 * time.Hour)
		since = &t
	}

	station, ok := s.lookupStation(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	readings, err := s.store.FetchReadings(ctx, db.ReadingQuery{
		StationID: station.ID,
		Since:     since,
		Until:     until,
		Ascending: true,
	})
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": db.BuildSeries(readings),
		"meta": gin.H{
			"station":     station.Code,
			"min_oxygen":  station.MinOxygen,
			"min_battery": station.MinBattery,
			"start":       since.Format(time.RFC3339),
			"count":       len(readings),
		},
	})
}

// handleV1RealtimeNow returns the newest reading of every station
// GET /api/v1/realtime/now
func (s *Server) handleV1RealtimeNow(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	latest, err := s.store.LatestReadings(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": latest,
		"meta": gin.H{
			"stations_count": len(latest),
			"generated_at":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) lookupStation(c *gin.Context) (*db.Station, bool) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "station code is required"})
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	station, err := s.store.GetStation(ctx, code)
	if err != nil {
		s.internalError(c, err)
		return nil, false
	}
	if station == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
		return nil, false
	}
	return station, true
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// timeWindow parses start/end as RFC 3339. On failure it has already written
// the 400 response.
func timeWindow(c *gin.Context) (since, until *time.Time, err error) {
	if startStr := c.Query("start"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start timestamp"})
			return nil, nil, errBadRequest
		}
		tt := t.UTC()
		since = &tt
	}

	if endStr := c.Query("end"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end timestamp"})
			return nil, nil, errBadRequest
		}
		tt := t.UTC()
		until = &tt
	}
	return since, until, nil
}
