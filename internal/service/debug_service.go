package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"nana-be/internal/dto"
	"nana-be/internal/pkg/logger"
	"nana-be/pkg/debuglog"
	"nana-be/pkg/events"
)

type IDebugService interface {
	LogCacheHits(ctx context.Context, req *dto.CacheHitRequest) *dto.CacheHitResponse
	GetLogs(query *dto.LogsQuery) ([]logger.LogEntry, error)
}

type debugService struct {
	recorder  debuglog.Recorder
	publisher IPublisherService
	logger    logger.ILogger
	now       func() time.Time
}

func NewDebugService(recorder debuglog.Recorder, publisher IPublisherService, log logger.ILogger) IDebugService {
	return &debugService{
		recorder:  recorder,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

func (s *debugService) LogCacheHits(ctx context.Context, req *dto.CacheHitRequest) *dto.CacheHitResponse {
	if len(req.CachedPages) == 0 {
		return &dto.CacheHitResponse{Logged: false, Message: "No cached pages to log"}
	}

	pages := append([]int(nil), req.CachedPages...)
	sort.Ints(pages)

	s.recorder.LogCacheHit(req.DocumentName, cacheHitSummary(req.DocumentName, pages, req.TotalPages), deref(req.SessionId))

	if s.publisher != nil {
		evt := events.NewNotesCacheHitEvent(deref(req.SessionId), req.DocumentName, pages, req.TotalPages, s.now())
		if err := s.publisher.PublishEvent(ctx, evt); err != nil {
			s.logger.Warn("USAGE", "Failed to publish usage event", map[string]interface{}{
				"type":  evt.EventType(),
				"error": err.Error(),
			})
		}
	}

	return &dto.CacheHitResponse{
		Logged:  true,
		Message: fmt.Sprintf("Logged %d cached pages for %s", len(pages), req.DocumentName),
	}
}

func cacheHitSummary(document string, pages []int, total int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	var b strings.Builder
	b.WriteString("**Cache Hit Summary**\n\n")
	fmt.Fprintf(&b, "- Document: `%s`\n", document)
	fmt.Fprintf(&b, "- Pages served from cache: [%s]\n", strings.Join(parts, ", "))
	fmt.Fprintf(&b, "- Total cached: %d of %d pages\n", len(pages), total)
	b.WriteString("- No LLM calls made for these pages\n")
	return b.String()
}

func (s *debugService) GetLogs(query *dto.LogsQuery) ([]logger.LogEntry, error) {
	limit := query.Limit
	if limit == 0 {
		limit = 100
	}
	return s.logger.GetLogs(query.Level, limit, query.Offset)
}
