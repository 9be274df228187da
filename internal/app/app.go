// Package app runs one telemetry generation job end to end.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arkilian/telemetrygen/internal/config"
	generrors "github.com/arkilian/telemetrygen/internal/errors"
	"github.com/arkilian/telemetrygen/internal/manifest"
	"github.com/arkilian/telemetrygen/internal/metrics"
	"github.com/arkilian/telemetrygen/internal/sampling"
	"github.com/arkilian/telemetrygen/internal/simulation"
	"github.com/arkilian/telemetrygen/internal/storage"
	"github.com/arkilian/telemetrygen/internal/store"
	"github.com/arkilian/telemetrygen/pkg/types"
)

// App wires the generators to the configured sink and side outputs.
type App struct {
	cfg     *config.Config
	params  simulation.Params
	log     *logrus.Logger
	metrics *metrics.Collector
}

// Result describes a finished run.
type Result struct {
	Manifest     *manifest.Manifest
	ManifestPath string
	Summary      simulation.Summary

	// Sink is the underlying sink, closed. Memory runs expose their rows here.
	Sink store.Sink

	Published []storage.Published
}

// New creates a new App with the given configuration.
func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, generrors.NewConfigError(generrors.CodeInvalidValue, err.Error())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, generrors.Wrap(generrors.ErrCategoryConfig, generrors.CodeLoadFailed, "failed to create directories", err)
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &App{
		cfg:     cfg,
		params:  params,
		log:     logger,
		metrics: metrics.NewCollector(),
	}, nil
}

// Metrics returns the run's collector.
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}

// Run generates the dataset. Any failure aborts the run.
func (a *App) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	p := a.params
	seed := a.cfg.Simulation.Seed

	a.log.WithFields(logrus.Fields{
		"seed":     seed,
		"days":     p.Days,
		"players":  p.Players,
		"peak_dau": p.PeakDAU,
		"driver":   a.cfg.Store.Driver,
	}).Info("generation started")

	inner, err := store.Open(ctx, a.cfg.StoreOptions())
	if err != nil {
		return nil, err
	}
	sink := manifest.NewRecorder(inner)
	closed := false
	defer func() {
		if !closed {
			_ = sink.Close()
		}
	}()

	src := sampling.New(seed)

	var players []types.Player
	a.phase("players", func() {
		players = simulation.GeneratePlayers(src, p)
	})
	var (
		teams   []types.Team
		members []types.Membership
	)
	a.phase("teams", func() {
		teams, members = simulation.GenerateTeams(src, players, p)
	})
	var assignments []types.Assignment
	a.phase("experiments", func() {
		assignments = simulation.AssignExperiment(src, players, p)
	})

	if err := a.phaseErr("write_static", func() error {
		if err := sink.WritePlayers(ctx, players); err != nil {
			return err
		}
		a.metrics.AddRows(types.TablePlayers, len(players))
		if err := sink.WriteTeams(ctx, teams, members); err != nil {
			return err
		}
		a.metrics.AddRows(types.TableTeams, len(teams))
		a.metrics.AddRows(types.TableTeamMemberships, len(members))
		if err := sink.WriteAssignments(ctx, assignments); err != nil {
			return err
		}
		a.metrics.AddRows(types.TableExperimentAssignments, len(assignments))
		return nil
	}); err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{
		"players":     len(players),
		"teams":       len(teams),
		"memberships": len(members),
		"assignments": len(assignments),
	}).Info("population written")

	var curve []int
	a.phase("curve", func() {
		curve = simulation.BuildDAUCurve(src, p)
	})

	buf := store.NewBuffer(sink, p.BatchSize)
	buf.OnFlush(a.onFlush)
	act := simulation.NewActivity(src, p, players, buf)
	act.OnDay(a.onDay)

	var summary simulation.Summary
	if err := a.phaseErr("activity", func() error {
		var runErr error
		summary, runErr = act.Run(ctx, curve)
		return runErr
	}); err != nil {
		return nil, err
	}

	if err := a.phaseErr("finalize", func() error {
		return sink.UpdatePlayerProgress(ctx, players)
	}); err != nil {
		return nil, err
	}

	closed = true
	if err := sink.Close(); err != nil {
		return nil, generrors.NewStorageError(generrors.CodeWriteFailed, "failed to close sink", err)
	}

	m := a.buildManifest(sink, summary)
	manifestPath := a.manifestPath()
	if err := m.WriteToFile(manifestPath); err != nil {
		return nil, generrors.NewStorageError(generrors.CodeWriteFailed, "failed to write manifest", err)
	}

	for _, table := range types.AllTables() {
		a.log.WithFields(logrus.Fields{
			"table": table,
			"rows":  m.Tables[table].Rows,
		}).Info("table written")
	}

	res := &Result{
		Manifest:     m,
		ManifestPath: manifestPath,
		Summary:      summary,
		Sink:         inner,
	}

	if a.cfg.Publish.Type != config.PublishNone {
		if err := a.phaseErr("publish", func() error {
			published, err := a.publish(ctx, m.RunID, manifestPath)
			res.Published = published
			return err
		}); err != nil {
			return nil, err
		}
	}

	a.metrics.MarkFinished(time.Now())
	if a.cfg.MetricsEnabled() {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			return nil, generrors.NewStorageError(generrors.CodeWriteFailed, "failed to write metrics textfile", err)
		}
	}

	a.log.WithFields(logrus.Fields{
		"run_id":       m.RunID,
		"rows":         m.TotalRows(),
		"skipped_days": summary.SkippedDays,
		"flushes":      summary.Flushes,
		"elapsed":      time.Since(started).Round(time.Millisecond),
	}).Info("generation finished")

	return res, nil
}

func (a *App) buildManifest(sink *manifest.Recorder, summary simulation.Summary) *manifest.Manifest {
	p := a.params
	m := manifest.New(a.cfg.Simulation.Seed)
	m.StartDate = p.Start.Format("2006-01-02")
	m.Days = p.Days
	m.Players = p.Players
	m.PeakDAU = p.PeakDAU
	m.PatchDays = p.PatchDays
	m.BatchSize = p.BatchSize
	m.Experiment = p.ExperimentName
	m.Driver = a.cfg.Store.Driver
	m.Tables = sink.Tables()
	m.SkippedDays = summary.SkippedDays
	m.Matches = summary.Matches
	m.RevenueCents = summary.RevenueCents
	m.Flushes = summary.Flushes
	return m
}

// manifestPath places the manifest next to the SQLite file, or in the data
// directory for drivers without a local file.
func (a *App) manifestPath() string {
	if a.cfg.Store.Driver == store.DriverSQLite {
		return manifest.PathFor(a.cfg.Store.Path)
	}
	return filepath.Join(a.cfg.DataDir, "telemetry-"+a.cfg.Store.Driver+manifest.Suffix)
}

func (a *App) onFlush(s store.FlushStats) {
	a.metrics.ObserveFlush(s.Sessions, s.Events, s.Purchases, s.Duration)
	a.log.WithFields(logrus.Fields{
		"flush":     s.Seq,
		"sessions":  s.Sessions,
		"events":    s.Events,
		"purchases": s.Purchases,
		"duration":  s.Duration,
	}).Debug("batch flushed")
}

func (a *App) onDay(s simulation.DayStats) {
	a.metrics.ObserveDay(s.Target, s.Realized, s.PoolSize, s.Skipped)

	fields := logrus.Fields{
		"day":      s.Day,
		"target":   s.Target,
		"realized": s.Realized,
		"pool":     s.PoolSize,
		"sessions": s.Sessions,
	}
	if s.Skipped {
		a.log.WithFields(fields).Debug("day skipped")
		return
	}
	every := a.cfg.Log.ProgressEvery
	if (every > 0 && s.Day%every == 0) || s.Day == a.params.LastDay() {
		a.log.WithFields(fields).Info("day simulated")
	}
}

func (a *App) phase(name string, fn func()) {
	start := time.Now()
	fn()
	a.metrics.ObservePhase(name, time.Since(start))
	a.log.WithField("phase", name).Debug("phase finished")
}

func (a *App) phaseErr(name string, fn func() error) error {
	var err error
	a.phase(name, func() { err = fn() })
	if err != nil {
		a.log.WithField("phase", name).WithError(err).Error("phase failed")
	}
	return err
}

func (a *App) publish(ctx context.Context, runID, manifestPath string) ([]storage.Published, error) {
	objects, err := openObjectStorage(ctx, a.cfg.Publish)
	if err != nil {
		return nil, err
	}
	pub := storage.NewPublisher(objects, a.cfg.Publish.Compress, a.log.WithField("target", a.cfg.Publish.Type))
	return pub.Publish(ctx, runID, a.cfg.Store.Path, manifestPath)
}

func openObjectStorage(ctx context.Context, cfg config.PublishConfig) (storage.ObjectStorage, error) {
	switch cfg.Type {
	case config.PublishLocal:
		local, err := storage.NewLocalStorage(cfg.Path)
		if err != nil {
			return nil, generrors.NewStorageError(generrors.CodeOpenFailed, "failed to open local storage", err)
		}
		return local, nil
	case config.PublishS3:
		s3Cfg := storage.DefaultS3Config()
		if cfg.Region != "" {
			s3Cfg.Region = cfg.Region
		}
		if cfg.Endpoint != "" {
			s3Cfg.Endpoint = cfg.Endpoint
			s3Cfg.UsePathStyle = true
		}
		s3, err := storage.NewS3Storage(ctx, cfg.Bucket, s3Cfg)
		if err != nil {
			return nil, generrors.NewStorageError(generrors.CodeOpenFailed, "failed to open s3 storage", err)
		}
		return s3, nil
	default:
		return nil, generrors.NewConfigError(generrors.CodeInvalidValue, fmt.Sprintf("unsupported publish type: %s", cfg.Type))
	}
}
