package handlers

import (
	"log/slog"

	"elearn/internal/config"
	"elearn/internal/logging"
	"elearn/internal/metrics"
	"elearn/internal/objectref"
	"elearn/internal/storage"
	"elearn/internal/store"
	"elearn/internal/stream"
)

type Handler struct {
	cfg       config.Config
	store     store.Store
	objects   storage.ObjectStore
	resolver  *objectref.Resolver
	responder *stream.Responder
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(cfg config.Config, st store.Store, objects storage.ObjectStore, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		cfg:       cfg,
		store:     st,
		objects:   objects,
		resolver:  objectref.NewResolver(objects.Bucket(), logging.WithComponent(logger, "objectref")),
		responder: stream.NewResponder(objects, logging.WithComponent(logger, "stream")),
		metrics:   m,
		logger:    logging.WithComponent(logger, "handlers"),
	}
}
