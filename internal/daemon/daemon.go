// Package daemon wires the relay components together and runs them.
//
// Startup order: open the store, start the queue writer, replay lifecycle
// signals missed while the relay was down, restart keep-alive if the last
// run held it, then serve IPC until the context is cancelled.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/roach88/capture-relay/internal/binding"
	"github.com/roach88/capture-relay/internal/bridge"
	"github.com/roach88/capture-relay/internal/commands"
	"github.com/roach88/capture-relay/internal/config"
	"github.com/roach88/capture-relay/internal/host"
	"github.com/roach88/capture-relay/internal/ipc"
	"github.com/roach88/capture-relay/internal/lifecycle"
	"github.com/roach88/capture-relay/internal/listener"
	"github.com/roach88/capture-relay/internal/metrics"
	"github.com/roach88/capture-relay/internal/queue"
	"github.com/roach88/capture-relay/internal/store"
	"github.com/roach88/capture-relay/internal/supervisor"
)

// ShutdownGrace bounds how long in-flight IPC requests may run after
// shutdown starts.
const ShutdownGrace = 5 * time.Second

// Options configure a Daemon.
type Options struct {
	Config  config.Config
	Version string
	Log     *slog.Logger

	// AccessLog receives one line per IPC request. Default: disabled.
	AccessLog *zerolog.Logger

	// Registry collects metrics. Default: a fresh registry.
	Registry *prometheus.Registry

	// Platform grants the foreground state. Default: ProcessPlatform.
	Platform supervisor.Platform

	// BootIDPath overrides the boot id source for lifecycle detection.
	BootIDPath string
}

// Daemon is a fully wired relay.
type Daemon struct {
	cfg      config.Config
	log      *slog.Logger
	store    *store.Store
	queue    *queue.Queue
	bindings *binding.Registry
	bridge   *bridge.Bridge
	keep     *supervisor.Supervisor
	trigger  *lifecycle.Trigger
	detector *lifecycle.Detector
	handler  http.Handler
}

// New opens the store and builds every component. Nothing runs until Run.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config.Resolve()
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	accessLog := zerolog.Nop()
	if opts.AccessLog != nil {
		accessLog = *opts.AccessLog
	}

	timeout, err := cfg.ForwardTimeoutDuration()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	m := metrics.New(reg)
	platform := opts.Platform
	if platform == nil {
		platform = supervisor.NewProcessPlatform(cfg.KeepAlive.IndicatorPath, *cfg.KeepAlive.OOMScoreAdj)
	}

	d := &Daemon{cfg: cfg, log: log, store: st}

	d.queue = queue.New(st,
		queue.WithLogger(log.With("component", "queue")),
		queue.WithMetrics(m))
	d.bindings = binding.NewRegistry()
	d.bridge = bridge.New(d.bindings, d.queue,
		bridge.WithLogger(log.With("component", "bridge")),
		bridge.WithMetrics(m),
		bridge.WithForwardTimeout(timeout))

	listenerLog := listener.WithLogger(log.With("component", "listener"))
	sms := listener.NewSMSListener(d.bridge, listenerLog)
	notifications := listener.NewNotificationListener(d.bridge, listenerLog)

	d.keep = supervisor.New(platform,
		supervisor.WithLogger(log.With("component", "keepalive")),
		supervisor.WithMetrics(m),
		supervisor.WithSettings(st),
		supervisor.WithIndicator(supervisor.DefaultIndicator(cfg.KeepAlive.Title, cfg.KeepAlive.Text)))
	d.trigger = lifecycle.NewTrigger(d.keep, log.With("component", "lifecycle"))
	d.detector = lifecycle.NewDetector(st, opts.Version, log.With("component", "lifecycle"))
	if opts.BootIDPath != "" {
		d.detector.WithBootIDPath(opts.BootIDPath)
	}

	hostLog := log.With("component", "host")
	h := host.New(d.keep, d.bindings, hostLog)
	cmds := commands.New(d.keep, st, cfg.PackageID, commands.WithLogger(log.With("component", "commands")))

	d.handler = ipc.NewRouter(ipc.Services{
		SMS:           sms,
		Notifications: notifications,
		Lifecycle:     d.trigger,
		Host:          h,
		Bindings:      d.bindings,
		Commands:      cmds,
		Queue:         d.queue,
		KeepAlive:     d.keep,
	}, ipc.Options{
		Log:            accessLog,
		Metrics:        m,
		Gatherer:       reg,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		ForwardTimeout: timeout,
	})

	if cfg.Consumer.CallbackURL != "" {
		fwd, err := binding.NewHTTPForwarder(cfg.Consumer.CallbackURL, timeout)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("consumer callback: %w", err)
		}
		if err := d.bindings.AttachAll(fwd); err != nil {
			st.Close()
			return nil, err
		}
	}

	return d, nil
}

// Handler returns the IPC handler.
func (d *Daemon) Handler() http.Handler {
	return d.handler
}

// Supervisor returns the keep-alive supervisor.
func (d *Daemon) Supervisor() *supervisor.Supervisor {
	return d.keep
}

// Bindings returns the consumer binding registry.
func (d *Daemon) Bindings() *binding.Registry {
	return d.bindings
}

// Queue returns the durable queue.
func (d *Daemon) Queue() *queue.Queue {
	return d.queue
}

// Run serves IPC on ln until ctx is cancelled, then flushes the queue and
// closes the store. Run owns ln and the store; the Daemon is not reusable
// after Run returns.
func (d *Daemon) Run(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	queueCtx, stopQueue := context.WithCancel(context.WithoutCancel(ctx))
	defer stopQueue()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.queue.Run(queueCtx); err != nil {
			d.log.Error("queue writer stopped with error", "error", err)
		}
	}()

	d.startup(ctx)

	d.log.Info("relay listening", "addr", ln.Addr().String())
	serveErr := ipc.Serve(ctx, ln, d.handler, ShutdownGrace)

	// Records accepted before shutdown still reach the store.
	d.queue.Close()
	wg.Wait()

	if err := d.store.Close(); err != nil {
		d.log.Error("error closing store", "error", err)
	}
	d.log.Info("relay stopped")
	return serveErr
}

func (d *Daemon) startup(ctx context.Context) {
	signals, err := d.detector.Detect(ctx)
	if err != nil {
		d.log.Warn("lifecycle detection failed", "error", err)
	}
	for _, sig := range signals {
		d.trigger.OnSignal(ctx, sig)
	}

	if _, err := d.keep.RestartIfSticky(ctx); err != nil {
		d.log.Warn("sticky restart failed", "error", err)
	}
}
