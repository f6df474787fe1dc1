package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"elearn/internal/logging"
	"elearn/internal/media"
	"elearn/internal/store"
)

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "conflict")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}

func pathID(c echo.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func queryBool(c echo.Context, key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(c.QueryParam(key))) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func (h *Handler) requestLogger(c echo.Context) *slog.Logger {
	return logging.WithRequestID(h.logger, c.Response().Header().Get(echo.HeaderXRequestID))
}

// streamPath is where clients fetch the bytes of a record.
func streamPath(rec media.Record) string {
	id := strconv.FormatInt(rec.ID, 10)
	if rec.Kind == media.KindDocument {
		return "/api/documents/" + id + "/download"
	}
	return "/api/videos/" + id + "/stream"
}

func recordResponse(rec media.Record) map[string]any {
	resp := map[string]any{
		"id":          rec.ID,
		"lessonId":    rec.LessonID,
		"kind":        rec.Kind,
		"title":       rec.Title,
		"description": rec.Description,
		"contentType": rec.ServedContentType(),
		"orderIndex":  rec.OrderIndex,
		"createdAt":   toMillis(rec.CreatedAt),
		"url":         streamPath(rec),
	}
	if rec.Kind == media.KindVideo {
		resp["durationSec"] = rec.DurationSec
	}
	return resp
}

func recordsResponse(recs []media.Record) []map[string]any {
	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordResponse(rec))
	}
	return out
}

func lessonResponse(l media.Lesson) map[string]any {
	return map[string]any{
		"id":             l.ID,
		"title":          l.Title,
		"description":    l.Description,
		"specialization": l.Specialization,
		"createdAt":      toMillis(l.CreatedAt),
	}
}
