package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"elearn/internal/auth"
	"elearn/internal/config"
	"elearn/internal/httpapi/handlers"
	"elearn/internal/httpapi/middlewares"
	"elearn/internal/logging"
	"elearn/internal/metrics"
	"elearn/internal/ratelimit"
	"elearn/internal/storage"
	"elearn/internal/store"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	Store    store.Store
	Objects  storage.ObjectStore
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

type API struct {
	cfg            config.Config
	logger         *slog.Logger
	auth           *auth.Authenticator
	rateLimit      *middlewares.RateLimiter
	handler        *handlers.Handler
	metricsHandler http.Handler
	selfCORS       map[string]struct{}
}

func New(cfg config.Config, deps Deps) *API {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	authn := auth.NewAuthenticator(deps.Store, cfg.AdminToken)
	return &API{
		cfg:    cfg,
		logger: logger,
		auth:   authn,
		rateLimit: middlewares.NewRateLimiter(authn, ratelimit.Config{
			Window: cfg.RateLimitWindow,
			Scopes: map[ratelimit.Scope]ratelimit.Limit{
				ratelimit.ScopeRead:   {IP: cfg.RateLimitReadIP, Key: cfg.RateLimitReadKey},
				ratelimit.ScopeWrite:  {IP: cfg.RateLimitWriteIP, Key: cfg.RateLimitWriteKey},
				ratelimit.ScopeStream: {IP: cfg.RateLimitStreamIP, Key: cfg.RateLimitStreamKey},
			},
		}),
		handler:        handlers.New(cfg, deps.Store, deps.Objects, metrics.MustNew(reg), logger),
		metricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		selfCORS:       map[string]struct{}{},
	}
}

func (a *API) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", logging.SanitizeReference(v.URI)),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
				slog.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			a.logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		// Streaming routes write their own wildcard CORS headers.
		Skipper: func(c echo.Context) bool {
			_, ok := a.selfCORS[c.Path()]
			return ok
		},
		AllowOrigins: a.cfg.CORSAllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderAccept,
			echo.HeaderContentType,
			echo.HeaderAuthorization,
			"X-API-Token",
			"Range",
		},
		ExposeHeaders: []string{
			"RateLimit-Limit",
			"RateLimit-Remaining",
			"RateLimit-Reset",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		MaxAge: 600,
	}))

	a.registerRoutes(e)
	return e
}
