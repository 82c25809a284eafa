package aggregator

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schooldashboard/dsbplan/dsb"
	"github.com/schooldashboard/dsbplan/store"
)

// TimetableService wraps the upstream client with cache write-through and a
// cache-backed fallback.
type TimetableService struct {
	upstream Upstream
	cache    ResponseCache
	logger   *zap.Logger
}

// NewTimetableService creates a TimetableService. cache may be nil.
func NewTimetableService(upstream Upstream, cache ResponseCache, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{upstream: upstream, cache: cache, logger: logger.Named("timetables")}
}

// Fetch returns the live page list and records non-empty results in the cache.
func (s *TimetableService) Fetch(ctx context.Context) ([]dsb.TimeTable, error) {
	tables, err := s.upstream.GetTimeTables(ctx)
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []dsb.TimeTable{}
	}
	if len(tables) > 0 && s.cache != nil {
		if err := s.cache.Store(ctx, store.KeyTimeTables, tables); err != nil {
			s.logger.Warn("failed to cache timetables", zap.Error(err))
		}
	}
	return tables, nil
}

// GetTimeTables returns the live list, or the cached one when the upstream
// fails. Without a usable cache the live error is returned with an empty list.
func (s *TimetableService) GetTimeTables(ctx context.Context) ([]dsb.TimeTable, error) {
	tables, err := s.Fetch(ctx)
	if err == nil {
		return tables, nil
	}
	cached := s.cachedTimeTables(ctx)
	if len(cached) > 0 {
		s.logger.Warn("failed to fetch timetables, using cached data",
			zap.Int("count", len(cached)), zap.Error(err))
		return cached, nil
	}
	s.logger.Warn("failed to fetch timetables and no cache available", zap.Error(err))
	return []dsb.TimeTable{}, err
}

// GetNews returns the live news list.
func (s *TimetableService) GetNews(ctx context.Context) ([]dsb.News, error) {
	news, err := s.upstream.GetNews(ctx)
	if err != nil {
		return nil, err
	}
	if news == nil {
		news = []dsb.News{}
	}
	return news, nil
}

func (s *TimetableService) cachedTimeTables(ctx context.Context) []dsb.TimeTable {
	if s.cache == nil {
		return nil
	}
	var records []json.RawMessage
	ok, err := s.cache.GetJSON(ctx, store.KeyTimeTables, &records)
	if err != nil {
		s.logger.Warn("failed to read cached timetables", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	tables := make([]dsb.TimeTable, 0, len(records))
	for _, raw := range records {
		var r map[string]json.RawMessage
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		t, ok := timeTableFromRecord(r)
		if !ok {
			continue
		}
		if _, err := uuid.Parse(t.UUID); err != nil {
			s.logger.Warn("skipping cached timetable with invalid uuid", zap.String("uuid", t.UUID))
			continue
		}
		tables = append(tables, t)
	}
	return tables
}

// timeTableFromRecord requires every field to be present as a JSON string.
func timeTableFromRecord(r map[string]json.RawMessage) (dsb.TimeTable, bool) {
	var t dsb.TimeTable
	fields := []struct {
		name string
		dst  *string
	}{
		{"uuid", &t.UUID},
		{"groupName", &t.GroupName},
		{"date", &t.Date},
		{"title", &t.Title},
		{"detail", &t.Detail},
	}
	for _, f := range fields {
		raw, ok := r[f.name]
		if !ok || string(raw) == "null" {
			return dsb.TimeTable{}, false
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return dsb.TimeTable{}, false
		}
	}
	return t, true
}
