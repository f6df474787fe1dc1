package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"elearn/internal/auth"
	"elearn/internal/ratelimit"
)

type access int

const (
	accessPublic access = iota
	accessUser
	accessAdmin
)

// route is one entry of the route table. Streaming routes answer with their own
// CORS headers and count against the stream rate-limit scope.
type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
	access  access
	stream  bool
}

func (a *API) routes() []route {
	h := a.handler
	var rs []route

	for _, s := range []struct {
		path    string
		handler echo.HandlerFunc
	}{
		{"/api/videos/:id/stream", h.StreamVideo},
		{"/api/documents/:id/download", h.DownloadDocument},
		{"/api/lessons/:lessonId/videos/:videoId/stream", h.StreamLessonVideo},
	} {
		rs = append(rs,
			route{method: http.MethodGet, path: s.path, handler: s.handler, stream: true},
			route{method: http.MethodHead, path: s.path, handler: s.handler, stream: true},
			route{method: http.MethodOptions, path: s.path, handler: h.MediaPreflight, stream: true},
		)
	}

	return append(rs,
		route{method: http.MethodGet, path: "/api/health", handler: h.Health},
		route{method: http.MethodGet, path: "/metrics", handler: echo.WrapHandler(a.metricsHandler)},

		route{method: http.MethodGet, path: "/api/videos/:id", handler: h.GetVideo},
		route{method: http.MethodGet, path: "/api/documents/:id", handler: h.GetDocument},
		route{method: http.MethodGet, path: "/api/lessons/:lessonId", handler: h.GetLesson},
		route{method: http.MethodGet, path: "/api/lessons/:lessonId/videos", handler: h.ListLessonVideos},
		route{method: http.MethodGet, path: "/api/lessons/:lessonId/documents", handler: h.ListLessonDocuments},

		route{method: http.MethodGet, path: "/api/whoami", handler: h.Whoami, access: accessUser},

		route{method: http.MethodPost, path: "/api/lessons", handler: h.CreateLesson, access: accessAdmin},
		route{method: http.MethodPost, path: "/api/lessons/:lessonId/videos", handler: h.UploadVideo, access: accessAdmin},
		route{method: http.MethodPost, path: "/api/lessons/:lessonId/documents", handler: h.UploadDocument, access: accessAdmin},
		route{method: http.MethodPost, path: "/api/internal/tokens", handler: h.CreateToken, access: accessAdmin},
	)
}

func (a *API) registerRoutes(e *echo.Echo) {
	for _, r := range a.routes() {
		var mws []echo.MiddlewareFunc
		if r.stream {
			mws = append(mws, a.rateLimit.ForScope(ratelimit.ScopeStream))
		} else {
			mws = append(mws, a.rateLimit.Middleware())
		}
		switch r.access {
		case accessUser:
			mws = append(mws, a.auth.Middleware)
		case accessAdmin:
			mws = append(mws, a.auth.Middleware, auth.RequireAdmin)
		}
		if r.stream {
			a.selfCORS[r.path] = struct{}{}
		}
		e.Add(r.method, r.path, r.handler, mws...)
	}
}
