// Package vitalflow is the embedding facade: it wires the default
// adapters behind a Runtime with functional-option overrides, so a host
// service can run the monitoring pipeline with a few lines of code.
package vitalflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/halcyonlabs/vitalflow/internal/adapters/codec"
	"github.com/halcyonlabs/vitalflow/internal/adapters/dsp"
	"github.com/halcyonlabs/vitalflow/internal/adapters/features"
	"github.com/halcyonlabs/vitalflow/internal/adapters/models"
	"github.com/halcyonlabs/vitalflow/internal/adapters/observability"
	"github.com/halcyonlabs/vitalflow/internal/adapters/store"
	"github.com/halcyonlabs/vitalflow/internal/adapters/transport"
	"github.com/halcyonlabs/vitalflow/internal/app/alerts"
	"github.com/halcyonlabs/vitalflow/internal/app/pipeline"
	"github.com/halcyonlabs/vitalflow/internal/app/scheduler"
	"github.com/halcyonlabs/vitalflow/internal/logger"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	source   FrameSource
	store    RecordStore
	uploader Uploader
	notifier Notifier
	obs      Observability
	log      *zap.Logger
	models   *ModelSet
}

// WithTransport injects a frame source (Bluetooth bridge, file replay,
// custom simulator) in place of the built-in wearable simulator.
func WithTransport(src FrameSource) RuntimeOption {
	return func(o *runtimeOverrides) { o.source = src }
}

// WithStore replaces the default SQLite-backed offline store.
func WithStore(s RecordStore) RuntimeOption {
	return func(o *runtimeOverrides) { o.store = s }
}

// WithUploader wires the backend collaborator; without one, records
// accumulate locally and sync never runs.
func WithUploader(u Uploader) RuntimeOption {
	return func(o *runtimeOverrides) { o.uploader = u }
}

// WithNotifier routes alerts to the consumer layer.
func WithNotifier(n Notifier) RuntimeOption {
	return func(o *runtimeOverrides) { o.notifier = n }
}

// WithObservability plugs in a custom metrics/logging backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) { o.obs = obs }
}

// WithLogger overrides the zap logger built from the logging config.
func WithLogger(log *zap.Logger) RuntimeOption {
	return func(o *runtimeOverrides) { o.log = log }
}

// WithModels swaps individual scoring models; nil fields keep defaults.
func WithModels(set ModelSet) RuntimeOption {
	return func(o *runtimeOverrides) { o.models = &set }
}

// Runtime owns the full pipeline: transport intake, processing workers,
// alert engine, adaptive scheduler, offline store, sync and maintenance
// loops, plus the metrics endpoint.
type Runtime struct {
	cfg *Config
	log *zap.Logger
	obs ports.Observability

	source    ports.FrameSource
	storeImpl ports.RecordStore
	resilient *store.Resilient
	pipe      *pipeline.Pipeline
	engine    *alerts.Engine
	sched     *scheduler.Scheduler
	syncer    *pipeline.Syncer
	maint     *pipeline.Maintainer

	metricsSrv *http.Server
	frameCh    chan []byte
	cancel     context.CancelFunc
	ownsLogger bool
}

// NewRuntime bootstraps the default adapters: wearable simulator
// transport, SQLite store behind the in-memory fallback, the built-in
// scoring models, zap logging and Prometheus metrics. Options override
// any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	log := overrides.log
	ownsLogger := false
	if log == nil {
		var err error
		log, err = logger.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		ownsLogger = true
	}

	obs := overrides.obs
	if obs == nil {
		obs = observability.NewPromObs(log, prometheus.DefaultRegisterer)
	}

	transportKey, err := cfg.Keys.TransportKey()
	if err != nil {
		return nil, err
	}
	cdc, err := codec.New(transportKey)
	if err != nil {
		return nil, err
	}

	var (
		storeImpl ports.RecordStore
		resilient *store.Resilient
	)
	if overrides.store != nil {
		storeImpl = overrides.store
	} else {
		storageKey, err := cfg.Keys.StorageKey()
		if err != nil {
			return nil, err
		}
		sealer, err := store.NewSealer(storageKey)
		if err != nil {
			return nil, err
		}
		sqlStore, err := store.NewSQLiteStore(cfg.Store, sealer)
		if err != nil {
			return nil, err
		}
		resilient = store.NewResilient(sqlStore, store.NewMemBuffer(0), obs)
		storeImpl = resilient
	}

	set := defaultModels()
	if overrides.models != nil {
		if overrides.models.Arrhythmia != nil {
			set.Arrhythmia = overrides.models.Arrhythmia
		}
		if overrides.models.STElevation != nil {
			set.STElevation = overrides.models.STElevation
		}
		if overrides.models.BloodPressure != nil {
			set.BloodPressure = overrides.models.BloodPressure
		}
		if overrides.models.Hypoglycemia != nil {
			set.Hypoglycemia = overrides.models.Hypoglycemia
		}
		if overrides.models.SpO2 != nil {
			set.SpO2 = overrides.models.SpO2
		}
		if overrides.models.Fall != nil {
			set.Fall = overrides.models.Fall
		}
	}

	notifier := overrides.notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	engine := alerts.NewEngine(notifier, overrides.uploader, obs, cfg.Alerts.Cooldown)
	sched := scheduler.New(cfg.Scheduler, obs)

	pipe := pipeline.New(pipeline.Config{
		Workers:         cfg.Inference.Workers,
		Intake:          cfg.Intake,
		ECGSampleRateHz: cfg.DSP.ECGSampleRateHz,
	}, cdc, dsp.NewConditioner(cfg.DSP), features.NewExtractor(features.Config{
		ECGSampleRateHz: cfg.DSP.ECGSampleRateHz,
		PPGSampleRateHz: cfg.DSP.PPGSampleRateHz,
	}), set, engine, storeImpl, sched, cfg.Inference.Budget, obs)

	source := overrides.source
	if source == nil {
		source = transport.NewSim(transport.SimConfig{
			ECGSampleRateHz: cfg.DSP.ECGSampleRateHz,
			PPGSampleRateHz: cfg.DSP.PPGSampleRateHz,
		}, cdc, obs)
	}

	rt := &Runtime{
		cfg:        cfg,
		log:        log,
		obs:        obs,
		source:     source,
		storeImpl:  storeImpl,
		resilient:  resilient,
		pipe:       pipe,
		engine:     engine,
		sched:      sched,
		maint:      pipeline.NewMaintainer(storeImpl, obs, cfg.Sync.SweepInterval),
		frameCh:    make(chan []byte, cfg.Intake.MaxQueueLen),
		ownsLogger: ownsLogger,
	}
	if overrides.uploader != nil {
		rt.syncer = pipeline.NewSyncer(storeImpl, overrides.uploader, obs, cfg.Sync.BatchSize)
	}
	return rt, nil
}

// Start launches the pipeline, scheduler, sync and maintenance loops,
// and the metrics server. It returns immediately; use Run to block.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	if r.resilient != nil {
		go r.resilient.RunFlusher(ctx)
	}

	r.pipe.Start(ctx)

	if err := r.source.Start(r.frameCh); err != nil {
		cancel()
		return fmt.Errorf("start transport: %w", err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-r.frameCh:
				if err := r.pipe.Ingest(frame); err != nil && !errors.Is(err, pipeline.ErrIntakeFull) {
					return
				}
			}
		}
	}()

	r.sched.Register(scheduler.TaskVitals, func() { r.pipe.VitalsPass(ctx) })
	r.sched.Register(scheduler.TaskBiomarkers, func() { r.pipe.BiomarkersPass(ctx) })
	r.sched.Register(scheduler.TaskPattern, func() { r.pipe.PatternPass(ctx) })
	if r.syncer != nil {
		r.sched.Register(scheduler.TaskSync, r.syncer.Trigger)
		go r.syncer.Run(ctx)
	} else {
		r.obs.LogInfo("sync_disabled_no_uploader")
	}
	r.sched.Start()

	go r.maint.Run(ctx)
	r.startMetrics()

	r.obs.LogInfo("runtime_started",
		ports.Field{Key: "workers", Value: r.cfg.Inference.Workers},
		ports.Field{Key: "metrics_addr", Value: r.cfg.Metrics.Addr})
	return nil
}

// Run starts the runtime and blocks until ctx is canceled, then shuts
// down gracefully.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops intake first, lets in-flight passes finish, then tears
// down the loops and the store. Results completing after Stop are
// discarded by the pipeline.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if err := r.source.Stop(); err != nil {
		errs = append(errs, err)
	}
	r.sched.Stop()
	r.pipe.Stop()

	if r.cancel != nil {
		r.cancel()
	}
	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if err := r.storeImpl.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.ownsLogger {
		_ = r.log.Sync()
	}
	return errors.Join(errs...)
}

// Ingest hands a sealed frame to the pipeline directly, for hosts that
// receive frames themselves instead of wiring a FrameSource.
func (r *Runtime) Ingest(frame []byte) error {
	return r.pipe.Ingest(frame)
}

// NotifyConnectivity signals that the backend is reachable; pending
// records are synced immediately instead of waiting for the cadence.
func (r *Runtime) NotifyConnectivity() {
	if r.syncer != nil {
		r.syncer.Trigger()
	}
}

// Snapshot returns the current metrics snapshot by value.
func (r *Runtime) Snapshot() Snapshot {
	return r.pipe.Snapshot()
}

// ActiveAlerts lists unacknowledged alerts, oldest first.
func (r *Runtime) ActiveAlerts() []Alert {
	return r.engine.Active()
}

// Acknowledge ends an alert's lifecycle. Returns false for unknown ids.
func (r *Runtime) Acknowledge(id string) bool {
	return r.engine.Acknowledge(id)
}

// StorageDegraded reports whether writes are currently buffered in
// memory because the store is unavailable.
func (r *Runtime) StorageDegraded() bool {
	return r.resilient != nil && r.resilient.Degraded()
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err)
		}
	}()
}

func defaultModels() ports.ModelSet {
	return ports.ModelSet{
		Arrhythmia:    models.NewArrhythmia(models.ArrhythmiaConfig{}),
		STElevation:   models.NewSTElevation(models.STElevationConfig{}),
		BloodPressure: models.NewBloodPressure(models.BloodPressureConfig{}),
		Hypoglycemia:  models.NewHypoglycemia(models.HypoglycemiaConfig{}),
		SpO2:          models.NewSpO2(models.SpO2Config{}),
		Fall:          models.NewFall(models.FallConfig{}),
	}
}
