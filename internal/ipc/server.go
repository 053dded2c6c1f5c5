// Package ipc exposes the relay to the local host and consumer over HTTP.
//
// The host posts raw signals (SMS, notifications, lifecycle, resume and
// intents); the consumer attaches its callback, issues commands and drains
// the queue. The server listens on a unix socket by default or on a
// loopback TCP address.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/roach88/capture-relay/internal/binding"
	"github.com/roach88/capture-relay/internal/commands"
	"github.com/roach88/capture-relay/internal/event"
	"github.com/roach88/capture-relay/internal/host"
	"github.com/roach88/capture-relay/internal/lifecycle"
	"github.com/roach88/capture-relay/internal/listener"
	"github.com/roach88/capture-relay/internal/metrics"
	"github.com/roach88/capture-relay/internal/queue"
	"github.com/roach88/capture-relay/internal/supervisor"
)

// SMSReceiver is implemented by *listener.SMSListener.
type SMSReceiver interface {
	OnReceive(ctx context.Context, sig listener.RawSMSSignal) int
}

// NotificationReceiver is implemented by *listener.NotificationListener.
type NotificationReceiver interface {
	OnPosted(ctx context.Context, n listener.RawNotification) bool
	OnRemoved(ctx context.Context, n listener.RawNotification)
}

// LifecycleReceiver is implemented by *lifecycle.Trigger.
type LifecycleReceiver interface {
	OnSignal(ctx context.Context, sig lifecycle.Signal) bool
}

// HostReceiver is implemented by *host.Host.
type HostReceiver interface {
	OnResume(ctx context.Context, in *host.Intent) string
	OnNewIntent(ctx context.Context, in *host.Intent) string
}

// Binder is implemented by *binding.Registry.
type Binder interface {
	Attach(category event.Category, f binding.Forwarder) error
	AttachAll(f binding.Forwarder) error
}

// CommandHandler is implemented by *commands.Dispatcher.
type CommandHandler interface {
	Handle(ctx context.Context, method string, args map[string]any) (any, *commands.CommandError)
}

// QueueReader is implemented by *queue.Queue.
type QueueReader interface {
	List(ctx context.Context) ([]string, error)
	Drain(ctx context.Context) ([]string, error)
}

// KeepAliveStatus is implemented by *supervisor.Supervisor.
type KeepAliveStatus interface {
	Snapshot() supervisor.Snapshot
}

// Services are the components the server routes to.
type Services struct {
	SMS           SMSReceiver
	Notifications NotificationReceiver
	Lifecycle     LifecycleReceiver
	Host          HostReceiver
	Bindings      Binder
	Commands      CommandHandler
	Queue         QueueReader
	KeepAlive     KeepAliveStatus
}

// Options tune the router.
type Options struct {
	Log            zerolog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	CORSOrigins    []string
	MaxBodyBytes   int64
	ForwardTimeout time.Duration
}

type server struct {
	svc  Services
	opts Options
}

// NewRouter builds the HTTP handler.
func NewRouter(svc Services, opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &server{svc: svc, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe(opts.Log, opts.Metrics))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/signals/sms", s.handleSMS)
		r.Post("/signals/notifications", s.handleNotificationPosted)
		r.Post("/signals/notifications/removed", s.handleNotificationRemoved)
		r.Post("/signals/lifecycle/{name}", s.handleLifecycle)

		r.Post("/host/resume", s.handleResume)
		r.Post("/host/intent", s.handleIntent)

		r.Put("/bindings/{category}", s.handleBind)
		r.Post("/commands/{method}", s.handleCommand)

		r.Get("/queue", s.handleQueueList)
		r.Post("/queue/drain", s.handleQueueDrain)
		r.Get("/keepalive", s.handleKeepAlive)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "no such route")
	})
	return r
}

// decode reads a JSON body. An empty body leaves v untouched.
func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
	return false
}

func (s *server) handleSMS(w http.ResponseWriter, r *http.Request) {
	var sig listener.RawSMSSignal
	if !s.decode(w, r, &sig) {
		return
	}
	n := s.svc.SMS.OnReceive(r.Context(), sig)
	writeOK(w, map[string]any{"delivered": n})
}

func (s *server) handleNotificationPosted(w http.ResponseWriter, r *http.Request) {
	var n listener.RawNotification
	if !s.decode(w, r, &n) {
		return
	}
	ok := s.svc.Notifications.OnPosted(r.Context(), n)
	writeOK(w, map[string]any{"delivered": ok})
}

func (s *server) handleNotificationRemoved(w http.ResponseWriter, r *http.Request) {
	var n listener.RawNotification
	if !s.decode(w, r, &n) {
		return
	}
	s.svc.Notifications.OnRemoved(r.Context(), n)
	writeOK(w, nil)
}

func (s *server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	handled := s.svc.Lifecycle.OnSignal(r.Context(), lifecycle.Signal(chi.URLParam(r, "name")))
	writeOK(w, map[string]any{"handled": handled})
}

func (s *server) handleResume(w http.ResponseWriter, r *http.Request) {
	var in host.Intent
	if !s.decode(w, r, &in) {
		return
	}
	method := s.svc.Host.OnResume(r.Context(), &in)
	writeOK(w, map[string]any{"routed": method})
}

func (s *server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var in host.Intent
	if !s.decode(w, r, &in) {
		return
	}
	method := s.svc.Host.OnNewIntent(r.Context(), &in)
	writeOK(w, map[string]any{"routed": method})
}

type bindRequest struct {
	CallbackURL string `json:"callbackUrl"`
}

func (s *server) handleBind(w http.ResponseWriter, r *http.Request) {
	var req bindRequest
	if !s.decode(w, r, &req) {
		return
	}
	fwd, err := binding.NewHTTPForwarder(req.CallbackURL, s.opts.ForwardTimeout)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	category := chi.URLParam(r, "category")
	if category == "all" {
		err = s.svc.Bindings.AttachAll(fwd)
	} else {
		err = s.svc.Bindings.Attach(event.Category(category), fwd)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	s.opts.Log.Info().Str("category", category).Str("callback", req.CallbackURL).Msg("consumer bound")
	writeOK(w, map[string]any{"category": category})
}

func (s *server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var args map[string]any
	if !s.decode(w, r, &args) {
		return
	}
	result, cerr := s.svc.Commands.Handle(r.Context(), chi.URLParam(r, "method"), args)
	if cerr != nil {
		status := http.StatusInternalServerError
		if cerr.Code == commands.CodeNotImplemented {
			status = http.StatusNotFound
		}
		writeError(w, status, string(cerr.Code), cerr.Message)
		return
	}
	writeOK(w, result)
}

func (s *server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.Queue.List(r.Context())
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeOK(w, map[string]any{"records": records})
}

func (s *server) handleQueueDrain(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.Queue.Drain(r.Context())
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeOK(w, map[string]any{"records": records})
}

func writeQueueError(w http.ResponseWriter, err error) {
	if queue.IsStoreUnavailable(err) {
		writeError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
}

func (s *server) handleKeepAlive(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, s.svc.KeepAlive.Snapshot())
}
