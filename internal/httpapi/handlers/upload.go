package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"elearn/internal/media"
)

func (h *Handler) UploadVideo(c echo.Context) error {
	return h.upload(c, media.KindVideo)
}

func (h *Handler) UploadDocument(c echo.Context) error {
	return h.upload(c, media.KindDocument)
}

func (h *Handler) upload(c echo.Context, kind media.Kind) (err error) {
	ctx := c.Request().Context()
	defer func() {
		if err != nil {
			h.metrics.ObserveUpload(string(kind), err)
		}
	}()

	lessonID, err := pathID(c, "lessonId")
	if err != nil {
		return err
	}
	if _, err := h.store.GetLesson(ctx, lessonID); err != nil {
		return mapStoreError(err)
	}

	// Leave room for the other multipart fields on top of the file itself.
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.cfg.MaxUploadBytes+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if header.Size > h.cfg.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	filename := safeFilename(header.Filename)
	contentType := header.Header.Get(echo.HeaderContentType)
	switch kind {
	case media.KindVideo:
		contentType = media.NormalizeVideoContentType(contentType, filename)
	case media.KindDocument:
		if !media.IsPDF(contentType, filename) {
			return echo.NewHTTPError(http.StatusBadRequest, "only PDF documents are accepted")
		}
		contentType = media.ContentTypePDF
	}

	key := uuid.NewString() + "_" + filename
	f, err := header.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid uploaded file")
	}
	defer f.Close()

	if err := h.objects.Put(ctx, key, f, header.Size, contentType); err != nil {
		h.requestLogger(c).Error("store uploaded media", "kind", kind, "key", key, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store media").SetInternal(err)
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(filename, path.Ext(filename))
	}
	durationSec, _ := strconv.Atoi(strings.TrimSpace(c.FormValue("durationSec")))
	if durationSec < 0 {
		durationSec = 0
	}

	rec, err := h.store.CreateRecord(ctx, media.NewRecord{
		LessonID:    lessonID,
		Kind:        kind,
		Title:       title,
		Description: strings.TrimSpace(c.FormValue("description")),
		Reference:   h.publicReference(key),
		ContentType: contentType,
		DurationSec: durationSec,
	})
	if err != nil {
		h.removeOrphan(c, kind, key)
		return mapStoreError(err)
	}

	h.metrics.ObserveUpload(string(kind), nil)
	h.requestLogger(c).Info("media uploaded", "kind", kind, "media_id", rec.ID, "key", key, "bytes", header.Size)
	return c.JSON(http.StatusCreated, recordResponse(rec))
}

// removeOrphan deletes an object whose record could not be created.
func (h *Handler) removeOrphan(c echo.Context, kind media.Kind, key string) {
	ctx := context.WithoutCancel(c.Request().Context())
	if err := h.objects.Delete(ctx, key); err != nil {
		h.requestLogger(c).Warn("orphaned uploaded media", "kind", kind, "key", key, "error", err)
	}
}

// publicReference is the URL persisted for an uploaded object:
// PUBLIC_MEDIA_URL/<bucket>/<key>.
func (h *Handler) publicReference(key string) string {
	return h.cfg.PublicMediaURL + "/" + url.PathEscape(h.objects.Bucket()) + "/" + url.PathEscape(key)
}

// safeFilename keeps the base name and drops characters that would break a URL
// path segment or a Content-Disposition value.
func safeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '?', r == '#', r == '%', r == '/', r == '"':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}
