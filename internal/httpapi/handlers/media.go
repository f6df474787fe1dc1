package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"elearn/internal/media"
	"elearn/internal/storage"
	"elearn/internal/stream"
)

func (h *Handler) StreamVideo(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	rec, err := h.store.GetVideo(c.Request().Context(), id)
	if err != nil {
		return h.recordLookupError(c, err)
	}
	return h.serveMedia(c, rec, stream.Inline, nil)
}

func (h *Handler) StreamLessonVideo(c echo.Context) error {
	lessonID, err := pathID(c, "lessonId")
	if err != nil {
		return err
	}
	videoID, err := pathID(c, "videoId")
	if err != nil {
		return err
	}
	rec, err := h.store.GetLessonVideo(c.Request().Context(), lessonID, videoID)
	if err != nil {
		return h.recordLookupError(c, err)
	}
	return h.serveMedia(c, rec, stream.Inline, nil)
}

func (h *Handler) DownloadDocument(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	rec, err := h.store.GetDocument(c.Request().Context(), id)
	if err != nil {
		return h.recordLookupError(c, err)
	}
	disposition := stream.Attachment
	if queryBool(c, "inline", true) {
		disposition = stream.Inline
	}
	// The PDF viewer embeds documents in an iframe on other origins.
	extra := http.Header{}
	extra.Set("Content-Security-Policy", "frame-ancestors *")
	return h.serveMedia(c, rec, disposition, extra)
}

// MediaPreflight answers CORS preflight for the streaming routes.
func (h *Handler) MediaPreflight(c echo.Context) error {
	stream.Preflight(c.Response())
	return nil
}

func (h *Handler) recordLookupError(c echo.Context, err error) error {
	stream.SetCORS(c.Response().Header())
	return mapStoreError(err)
}

// serveMedia resolves the record's object, plans the byte range and streams it.
func (h *Handler) serveMedia(c echo.Context, rec media.Record, disposition stream.Disposition, extra http.Header) error {
	log := h.requestLogger(c).With("kind", rec.Kind, "media_id", rec.ID)
	kind := string(rec.Kind)
	stream.SetCORS(c.Response().Header())

	handle, err := h.resolver.Handle(rec.Reference)
	if err != nil {
		h.metrics.ObserveOpenFailure(kind, "unresolved")
		return echo.NewHTTPError(http.StatusNotFound, "media not found")
	}

	req := c.Request()
	size := h.objects.Stat(req.Context(), handle.Key)
	plan := stream.PlanRange(req.Header.Get("Range"), size)

	n, err := h.responder.Serve(c.Response(), req, stream.Request{
		Handle:      handle,
		ContentType: rec.ServedContentType(),
		Disposition: disposition,
		Filename:    rec.DownloadName(),
		Plan:        plan,
		Header:      extra,
	})
	if err != nil {
		if c.Response().Committed {
			// Headers are out; typically the client went away mid-body.
			log.Warn("media stream aborted", "bytes", n, "error", err)
			h.metrics.ObserveResponse(kind, c.Response().Status, n)
			return nil
		}
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Warn("media object missing", "object", handle.String())
			h.metrics.ObserveOpenFailure(kind, "not_found")
			return echo.NewHTTPError(http.StatusNotFound, "media not found")
		}
		log.Error("open media stream", "object", handle.String(), "error", err)
		h.metrics.ObserveOpenFailure(kind, "error")
		return echo.NewHTTPError(http.StatusInternalServerError, "error streaming media")
	}
	h.metrics.ObserveResponse(kind, c.Response().Status, n)
	return nil
}
