package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"elearn/internal/media"
	"elearn/internal/store"
)

func TestSafeFilename(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "intro.mp4", "intro.mp4"},
		{"keeps spaces", "lecture 2.webm", "lecture 2.webm"},
		{"unix path", "../../etc/passwd", "passwd"},
		{"windows path", `C:\Users\me\slides.pdf`, "slides.pdf"},
		{"url characters", "a?b#c%d.mp4", "abcd.mp4"},
		{"quotes", `say "hi".pdf`, "say hi.pdf"},
		{"control", "bad\x00name\n.mp4", "badname.mp4"},
		{"empty", "", "file"},
		{"dots", "..", "file"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := safeFilename(tt.in); got != tt.want {
				t.Fatalf("safeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestQueryBool(t *testing.T) {
	t.Parallel()
	tests := []struct {
		query    string
		fallback bool
		want     bool
	}{
		{"", true, true},
		{"", false, false},
		{"inline=false", true, false},
		{"inline=0", true, false},
		{"inline=TRUE", false, true},
		{"inline=yes", false, true},
		{"inline=maybe", true, true},
	}
	e := echo.New()
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		if got := queryBool(c, "inline", tt.fallback); got != tt.want {
			t.Fatalf("queryBool(%q, fallback=%v) = %v, want %v", tt.query, tt.fallback, got, tt.want)
		}
	}
}

func TestPathID(t *testing.T) {
	t.Parallel()
	e := echo.New()
	for _, raw := range []string{"abc", "0", "-4", ""} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(raw)
		_, err := pathID(c, "id")
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Fatalf("pathID(%q) error = %v, want 400", raw, err)
		}
	}

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")
	if id, err := pathID(c, "id"); err != nil || id != 42 {
		t.Fatalf("pathID(42) = %d, %v", id, err)
	}
}

func TestMapStoreError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("get video: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		var he *echo.HTTPError
		if !errors.As(mapStoreError(tt.err), &he) || he.Code != tt.want {
			t.Fatalf("mapStoreError(%v) = %v, want %d", tt.err, he, tt.want)
		}
	}
}

func TestRecordResponse(t *testing.T) {
	t.Parallel()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	video := recordResponse(media.Record{ID: 7, Kind: media.KindVideo, Reference: "x/intro.webm", DurationSec: 90, CreatedAt: created})
	if video["url"] != "/api/videos/7/stream" {
		t.Fatalf("video url = %v", video["url"])
	}
	if video["contentType"] != media.ContentTypeWebM {
		t.Fatalf("video contentType = %v", video["contentType"])
	}
	if video["durationSec"] != 90 {
		t.Fatalf("video durationSec = %v", video["durationSec"])
	}
	if video["createdAt"] != created.UnixMilli() {
		t.Fatalf("video createdAt = %v", video["createdAt"])
	}
	if _, ok := video["reference"]; ok {
		t.Fatalf("reference must not be exposed")
	}

	doc := recordResponse(media.Record{ID: 3, Kind: media.KindDocument})
	if doc["url"] != "/api/documents/3/download" {
		t.Fatalf("document url = %v", doc["url"])
	}
	if _, ok := doc["durationSec"]; ok {
		t.Fatalf("documents have no duration")
	}
}
