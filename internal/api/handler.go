package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"machine-access-backend/internal/bot"
	"machine-access-backend/internal/directory"
	"machine-access-backend/internal/engine"
	"machine-access-backend/internal/history"
	"machine-access-backend/internal/notification"
	"machine-access-backend/internal/registry"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	set     *engine.Set
	dir     *directory.Directory
	reg     *registry.Registry
	hist    history.Store
	pool    *notification.WorkerPool
	bot     *bot.Responder
	webpush *webpush.Options

	slackSigningSecret string
}

// NewHandler creates a new API handler.
func NewHandler(
	set *engine.Set,
	dir *directory.Directory,
	reg *registry.Registry,
	hist history.Store,
	pool *notification.WorkerPool,
	responder *bot.Responder,
	webpushOptions *webpush.Options,
	slackSigningSecret string,
) *Handler {
	return &Handler{
		set:                set,
		dir:                dir,
		reg:                reg,
		hist:               hist,
		pool:               pool,
		bot:                responder,
		webpush:            webpushOptions,
		slackSigningSecret: slackSigningSecret,
	}
}

// dispatch hands events to the worker pool when one is wired.
func (h *Handler) dispatch(events []engine.Event) {
	if h.pool != nil {
		h.pool.Dispatch(events)
	}
}
