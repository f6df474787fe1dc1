package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"elearn/internal/media"
)

func (h *Handler) GetVideo(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	rec, err := h.store.GetVideo(c.Request().Context(), id)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, recordResponse(rec))
}

func (h *Handler) GetDocument(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	rec, err := h.store.GetDocument(c.Request().Context(), id)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, recordResponse(rec))
}

func (h *Handler) ListLessonVideos(c echo.Context) error {
	lessonID, err := pathID(c, "lessonId")
	if err != nil {
		return err
	}
	recs, err := h.store.ListVideos(c.Request().Context(), lessonID)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": recordsResponse(recs)})
}

func (h *Handler) ListLessonDocuments(c echo.Context) error {
	lessonID, err := pathID(c, "lessonId")
	if err != nil {
		return err
	}
	recs, err := h.store.ListDocuments(c.Request().Context(), lessonID)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": recordsResponse(recs)})
}

func (h *Handler) GetLesson(c echo.Context) error {
	id, err := pathID(c, "lessonId")
	if err != nil {
		return err
	}
	l, err := h.store.GetLesson(c.Request().Context(), id)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, lessonResponse(l))
}

func (h *Handler) CreateLesson(c echo.Context) error {
	var req struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		Specialization string `json:"specialization"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	l, err := h.store.CreateLesson(c.Request().Context(), media.Lesson{
		Title:          title,
		Description:    strings.TrimSpace(req.Description),
		Specialization: strings.TrimSpace(req.Specialization),
	})
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, lessonResponse(l))
}
