package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"elearn/internal/storage"
)

type memStore struct {
	objects        map[string][]byte
	statUnknown    bool
	hideLength     bool
	rejectRanges   bool
	openErr        error
	opened, closed int
}

func newMemStore(objects map[string][]byte) *memStore {
	return &memStore{objects: objects}
}

func (m *memStore) Bucket() string { return "media" }

func (m *memStore) Stat(_ context.Context, key string) storage.Size {
	b, ok := m.objects[key]
	if !ok || m.statUnknown {
		return storage.UnknownSize
	}
	return storage.KnownSize(int64(len(b)))
}

func (m *memStore) Open(_ context.Context, key string) (*storage.Object, error) {
	return m.open(key, 0, 0, false)
}

func (m *memStore) OpenRange(_ context.Context, key string, offset, length int64) (*storage.Object, error) {
	return m.open(key, offset, length, true)
}

func (m *memStore) open(key string, offset, length int64, ranged bool) (*storage.Object, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	b, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("mem %q: %w", key, storage.ErrObjectNotFound)
	}
	if ranged && (m.rejectRanges || offset >= int64(len(b))) {
		return nil, storage.ErrInvalidRange
	}
	end := int64(len(b))
	if length > 0 && offset+length < end {
		end = offset + length
	}
	part := b[offset:end]
	m.opened++
	n := int64(len(part))
	if m.hideLength {
		n = -1
	}
	return &storage.Object{Body: &trackedBody{Reader: bytes.NewReader(part), store: m}, Length: n}, nil
}

func (m *memStore) Put(context.Context, string, io.Reader, int64, string) error {
	return errors.New("read only")
}

func (m *memStore) Delete(context.Context, string) error {
	return errors.New("read only")
}

type trackedBody struct {
	io.Reader
	store *memStore
}

func (b *trackedBody) Close() error {
	b.store.closed++
	return nil
}

var sample = []byte("The quick brown fox jumps over the lazy dog. 0123456789")

func serve(t *testing.T, store *memStore, method, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/videos/1/stream", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	resp := NewResponder(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := resp.Serve(rec, req, Request{
		Handle:      storage.Handle{Bucket: "media", Key: "clip.mp4"},
		ContentType: "video/mp4",
		Disposition: Inline,
		Filename:    "clip.mp4",
		Plan:        PlanRange(rangeHeader, store.Stat(req.Context(), "clip.mp4")),
	})
	require.NoError(t, err)
	return rec
}

func TestServePartial(t *testing.T) {
	store := newMemStore(map[string][]byte{"clip.mp4": sample})
	rec := serve(t, store, http.MethodGet, "bytes=4-8")

	total := len(sample)
	require.Equal(t, http.StatusPartialContent, rec.Code)
	require.Equal(t, "quick", rec.Body.String())
	require.Equal(t, fmt.Sprintf("bytes 4-8/%d", total), rec.Header().Get("Content-Range"))
	require.Equal(t, "5", rec.Header().Get("Content-Length"))
	require.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	require.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	require.Equal(t, `inline; filename="clip.mp4"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Content-Range, Content-Length, Accept-Ranges", rec.Header().Get("Access-Control-Expose-Headers"))
	require.Equal(t, 1, store.closed)
}

func TestServeFull(t *testing.T) {
	store := newMemStore(map[string][]byte{"clip.mp4": sample})
	for _, header := range []string{"", "bytes=abc-", "items=0-1"} {
		rec := serve(t, store, http.MethodGet, header)
		require.Equal(t, http.StatusOK, rec.Code, header)
		require.Equal(t, sample, rec.Body.Bytes(), header)
		require.Empty(t, rec.Header().Get("Content-Range"), header)
		require.Equal(t, strconv.Itoa(len(sample)), rec.Header().Get("Content-Length"), header)
	}
}

func TestServeOpenEndedKnownSize(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 500)
	store := newMemStore(map[string][]byte{"clip.mp4": data})
	rec := serve(t, store, http.MethodGet, "bytes=100-")

	require.Equal(t, http.StatusPartialContent, rec.Code)
	require.Equal(t, "bytes 100-499/500", rec.Header().Get("Content-Range"))
	require.Equal(t, "400", rec.Header().Get("Content-Length"))
	require.Len(t, rec.Body.Bytes(), 400)
}

func TestServeUnknownSize(t *testing.T) {
	t.Run("no range streams to eof without length", func(t *testing.T) {
		store := newMemStore(map[string][]byte{"clip.mp4": sample})
		store.statUnknown = true
		rec := serve(t, store, http.MethodGet, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Content-Length"))
		require.Equal(t, sample, rec.Body.Bytes())
	})

	t.Run("open ended uses reported length", func(t *testing.T) {
		store := newMemStore(map[string][]byte{"clip.mp4": sample})
		store.statUnknown = true
		rec := serve(t, store, http.MethodGet, "bytes=10-")
		want := sample[10:]
		require.Equal(t, http.StatusPartialContent, rec.Code)
		require.Equal(t, fmt.Sprintf("bytes 10-%d/*", len(sample)-1), rec.Header().Get("Content-Range"))
		require.Equal(t, strconv.Itoa(len(want)), rec.Header().Get("Content-Length"))
		require.Equal(t, want, rec.Body.Bytes())
	})

	t.Run("explicit end past object end is corrected", func(t *testing.T) {
		store := newMemStore(map[string][]byte{"clip.mp4": sample})
		store.statUnknown = true
		rec := serve(t, store, http.MethodGet, "bytes=50-5000")
		require.Equal(t, http.StatusPartialContent, rec.Code)
		require.Equal(t, fmt.Sprintf("bytes 50-%d/*", len(sample)-1), rec.Header().Get("Content-Range"))
		require.Equal(t, sample[50:], rec.Body.Bytes())
	})

	t.Run("open ended without reported length falls back to full", func(t *testing.T) {
		store := newMemStore(map[string][]byte{"clip.mp4": sample})
		store.statUnknown = true
		store.hideLength = true
		rec := serve(t, store, http.MethodGet, "bytes=10-")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Content-Range"))
		require.Empty(t, rec.Header().Get("Content-Length"))
		require.Equal(t, sample, rec.Body.Bytes())
		require.Equal(t, store.opened, store.closed)
	})

	t.Run("explicit end without reported length falls back to full", func(t *testing.T) {
		store := newMemStore(map[string][]byte{"clip.mp4": sample})
		store.statUnknown = true
		store.hideLength = true
		rec := serve(t, store, http.MethodGet, "bytes=0-999")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Content-Range"))
		require.Empty(t, rec.Header().Get("Content-Length"))
		require.Equal(t, sample, rec.Body.Bytes())
		require.Equal(t, 2, store.opened)
		require.Equal(t, store.opened, store.closed)
	})
}

func TestServeRejectedRangeFallsBackToFull(t *testing.T) {
	store := newMemStore(map[string][]byte{"clip.mp4": sample})
	store.rejectRanges = true
	rec := serve(t, store, http.MethodGet, "bytes=0-3")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, sample, rec.Body.Bytes())
	require.Empty(t, rec.Header().Get("Content-Range"))
}

func TestServeHead(t *testing.T) {
	store := newMemStore(map[string][]byte{"clip.mp4": sample})
	rec := serve(t, store, http.MethodHead, "bytes=0-9")
	require.Equal(t, http.StatusPartialContent, rec.Code)
	require.Equal(t, "10", rec.Header().Get("Content-Length"))
	require.Zero(t, rec.Body.Len())
	require.Equal(t, 1, store.closed)
}

func TestServeSequentialRangesConcatenate(t *testing.T) {
	store := newMemStore(map[string][]byte{"clip.mp4": sample})
	var got []byte
	const chunk = 7
	for start := 0; start < len(sample); start += chunk {
		rec := serve(t, store, http.MethodGet, fmt.Sprintf("bytes=%d-%d", start, start+chunk-1))
		require.Equal(t, http.StatusPartialContent, rec.Code)
		got = append(got, rec.Body.Bytes()...)
	}
	require.Equal(t, sample, got)
}

func TestServeIsIdempotent(t *testing.T) {
	store := newMemStore(map[string][]byte{"clip.mp4": sample})
	first := serve(t, store, http.MethodGet, "bytes=3-20")
	second := serve(t, store, http.MethodGet, "bytes=3-20")
	require.Equal(t, first.Code, second.Code)
	require.Equal(t, first.Header(), second.Header())
	require.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestServeOpenErrors(t *testing.T) {
	resp := NewResponder(newMemStore(nil), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/videos/1/stream", nil)
	rec := httptest.NewRecorder()

	_, err := resp.Serve(rec, req, Request{Handle: storage.Handle{Bucket: "media", Key: "gone.mp4"}, Plan: Plan{Mode: Full}})
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
	require.False(t, rec.Flushed)
	require.Zero(t, rec.Body.Len())
	require.Empty(t, rec.Header().Get("Content-Type"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	failing := newMemStore(map[string][]byte{"clip.mp4": sample})
	failing.openErr = errors.New("connection refused")
	_, err = NewResponder(failing, nil).Serve(httptest.NewRecorder(), req, Request{
		Handle: storage.Handle{Key: "clip.mp4"},
		Plan:   Plan{Mode: Full},
	})
	require.Error(t, err)
	require.False(t, errors.Is(err, storage.ErrObjectNotFound))
}

func TestContentDisposition(t *testing.T) {
	require.Equal(t, `attachment; filename="Intro notes.pdf"`, contentDisposition(Attachment, "Intro notes.pdf"))
	require.Equal(t, `inline; filename="say 'hi'.pdf"`, contentDisposition("", `say "hi".pdf`))
	require.Equal(t, "inline", contentDisposition(Inline, ""))
}

func TestPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	Preflight(rec)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, HEAD, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Range, Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
	require.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
	require.Zero(t, rec.Body.Len())
}
