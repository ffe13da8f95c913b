// Package httpapi maps the JSON HTTP API onto the stores, the reminder
// scheduler and the assistant.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Tiliavir/personal-assistant/internal/model"
	"github.com/Tiliavir/personal-assistant/internal/notify"
	"github.com/Tiliavir/personal-assistant/internal/scheduler"
	"github.com/Tiliavir/personal-assistant/internal/storage"
)

// Replier answers a chat conversation. It must not fail.
type Replier interface {
	Reply(ctx context.Context, messages []model.ChatMessage) string
}

// Options wires the handler to its collaborators.
type Options struct {
	Stores    *storage.Stores
	Scheduler *scheduler.Scheduler
	Emitter   *notify.Emitter
	Hub       *notify.Hub
	Assistant Replier

	StaticDir      string
	RequestTimeout time.Duration
	Logger         *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type api struct {
	stores    *storage.Stores
	sched     *scheduler.Scheduler
	emitter   *notify.Emitter
	hub       *notify.Hub
	assistant Replier
	log       *slog.Logger
	now       func() time.Time
}

// NewHandler returns the full HTTP handler.
func NewHandler(o Options) http.Handler {
	a := &api{
		stores:    o.Stores,
		sched:     o.Scheduler,
		emitter:   o.Emitter,
		hub:       o.Hub,
		assistant: o.Assistant,
		log:       o.Logger,
		now:       o.Now,
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.log))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		// The notification stream outlives any request deadline.
		if a.hub != nil {
			r.Get("/notifications/ws", a.streamNotifications)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(o.RequestTimeout))

			r.Get("/health", a.health)

			r.Get("/todos", a.listTodos)
			r.Post("/todos", a.createTodo)
			r.Put("/todos/{id}", a.updateTodo)
			r.Delete("/todos/{id}", a.deleteTodo)

			r.Get("/reminders", a.listReminders)
			r.Post("/reminders", a.createReminder)
			r.Delete("/reminders/{id}", a.deleteReminder)

			r.Get("/notifications", a.listNotifications)
			r.Delete("/notifications", a.pruneNotifications)

			r.Post("/chat", a.chat)
		})
	})

	if o.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(o.StaticDir)))
	}
	return r
}

// requestLogger records one slog line per request.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			log.Info("handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", m.Code,
				"duration", m.Duration,
				"bytes", m.Written,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type healthResponse struct {
	Status           string `json:"status"`
	SchedulerRunning bool   `json:"scheduler_running"`
	PendingTimers    int    `json:"pending_timers"`
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		SchedulerRunning: a.sched.Running(),
		PendingTimers:    len(a.sched.Pending()),
	})
}
