// qrstage-sim runs the reconciliation core against scripted tracking input.
// It wires the full stack - config, logging, session storage, dispatcher,
// engine, monitor - with fake tracking and rendering collaborators, and walks
// a simulated viewer through a small exhibit of QR anchors.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/qrstage/qrstage/internal/assoc"
	"github.com/qrstage/qrstage/internal/config"
	"github.com/qrstage/qrstage/internal/core"
	"github.com/qrstage/qrstage/internal/database"
	"github.com/qrstage/qrstage/internal/dispatcher"
	"github.com/qrstage/qrstage/internal/display"
	"github.com/qrstage/qrstage/internal/influx"
	"github.com/qrstage/qrstage/internal/logging"
	"github.com/qrstage/qrstage/internal/monitor"
	"github.com/qrstage/qrstage/internal/reconciler"
	"github.com/qrstage/qrstage/internal/render"
	"github.com/qrstage/qrstage/internal/session"
	"github.com/qrstage/qrstage/internal/tracking"
)

// simViewer is the movable simulated viewer.
type simViewer struct {
	mu  sync.Mutex
	pos core.Position3D
}

func (v *simViewer) Set(pos core.Position3D) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pos = pos
}

func (v *simViewer) ViewerPosition() (core.Position3D, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pos, true
}

func main() {
	configDir := flag.String("config", ".", "directory containing qrstage.cfg.json")
	tag := flag.String("tag", "simulation", "session tag")
	duration := flag.Duration("duration", 10*time.Second, "how long to run the scripted walk")
	flag.Parse()

	// Console-only logging until config is loaded.
	logManager := logging.NewManager()
	logManager.Setup(nil, "info")
	log := logManager.Logger()

	if err := config.Load(*configDir); err != nil {
		log.Warn("Failed to load config, using defaults", "error", err)
	} else {
		log.Info("Loaded config")
	}

	var fileSink io.Writer
	if logFile, err := logging.OpenLogFile(config.GetString("logsDir")); err != nil {
		log.Error("Failed to open log file", "error", err)
	} else {
		fileSink = logFile
		defer logFile.Close()
	}

	// The reconciliation engine is created below; the context provider reads
	// it lazily so every record carries live selection state.
	var engine *reconciler.Engine
	provider := func() []slog.Attr {
		if engine == nil {
			return nil
		}
		stats := engine.Snapshot()
		return []slog.Attr{
			slog.String("active", stats.ActiveIdentity),
			slog.Int("registered", stats.Registered),
		}
	}

	var extra []slog.Handler
	if config.GetBool("graylog.enabled") {
		gelfHandler, err := logging.NewGelfHandler(config.GetString("graylog.address"), config.GetString("logLevel"))
		if err != nil {
			log.Warn("Failed to connect GELF handler", "error", err)
		} else {
			extra = append(extra, logging.NewContextHandler(gelfHandler, provider))
		}
	}

	logManager.Setup(fileSink, config.GetString("logLevel"), extra...)
	log = logManager.Logger()

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	// Session storage: database-backed kinds get a connection with an
	// in-memory SQLite fallback, dumped to disk on shutdown so an offline run
	// is not lost; the memory kind needs none of this.
	sessionType := config.GetString("session.type")
	var dbManager *database.Manager
	if sessionType == "postgres" || sessionType == "sqlite" {
		dbManager = database.NewManager(zlog)
		if err := dbManager.Connect(); err != nil {
			log.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		dbManager.SqliteFilePath = filepath.Join(*configDir, fmt.Sprintf("qrstage_%s.db", time.Now().UTC().Format("20060102_150405")))
		defer dbManager.Close()
	}

	var backend session.Backend
	var err error
	if dbManager != nil {
		backend, err = session.NewBackend(sessionType, dbManager.DB, config.Memory())
	} else {
		backend, err = session.NewBackend(sessionType, nil, config.Memory())
	}
	if err != nil {
		log.Error("Failed to create session backend", "error", err)
		os.Exit(1)
	}
	if err := backend.Init(); err != nil {
		log.Error("Failed to init session backend", "error", err)
		os.Exit(1)
	}

	recorder := session.NewRecorder(backend, config.GetDuration("session.flushInterval"), log)
	if err := recorder.Begin(*tag); err != nil {
		log.Error("Failed to begin session", "error", err)
		os.Exit(1)
	}

	// Associations and display defaults.
	entries, err := config.Associations()
	if err != nil {
		log.Error("Failed to decode associations", "error", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		entries = demoAssociations()
		log.Info("No associations configured, using demo exhibit", "count", len(entries))
	}
	table := assoc.Build(entries, log)

	defaults, err := config.GlobalDefaults()
	if err != nil {
		log.Warn("Failed to decode defaults", "error", err)
	}

	viewer := &simViewer{}
	renderer := &render.FakeRenderer{}

	engine = reconciler.New(reconciler.Dependencies{
		Table:     table,
		Lifecycle: display.NewLifecycle(renderer, log),
		Viewer:    viewer,
		Logger:    log,
		Recorder:  recorder,
	}, reconciler.Config{
		Interval:    config.GetDuration("reconcile.interval"),
		SettleDelay: config.GetDuration("reconcile.settleDelay"),
		Defaults:    defaults,
	})

	// The callback boundary: tracking notifications enter through the
	// dispatcher, buffered so the subsystem thread never blocks.
	disp, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		log.Error("Failed to create dispatcher", "error", err)
		os.Exit(1)
	}
	disp.Register(dispatcher.CmdMarkerAdded, func(e dispatcher.Event) (any, error) {
		engine.OnMarkerAdded(e.Handle)
		return nil, nil
	}, dispatcher.Buffered(256), dispatcher.Logged())
	disp.Register(dispatcher.CmdMarkerRemoved, func(e dispatcher.Event) (any, error) {
		engine.OnMarkerRemoved(e.Handle)
		return nil, nil
	}, dispatcher.Buffered(256), dispatcher.Logged())

	var influxManager *influx.Manager
	if config.GetBool("influx.enabled") {
		influxManager = influx.NewManager(zlog, filepath.Join(*configDir, "influx_backup.gz"))
		if err := influxManager.Connect(); err != nil {
			log.Warn("InfluxDB unavailable", "error", err)
			influxManager = nil
		}
	}

	monitorService := monitor.NewService(monitor.Dependencies{
		Engine:     engine,
		Recorder:   recorder,
		LogManager: logManager,
		Influx:     influxManager,
		StatusDir:  *configDir,
	})

	if err := engine.Start(); err != nil {
		log.Error("Failed to start engine", "error", err)
		os.Exit(1)
	}
	if err := monitorService.Start(); err != nil {
		log.Error("Failed to start monitor", "error", err)
	}

	runScriptedWalk(disp, viewer, entries, *duration, log)

	engine.Stop()
	monitorService.Stop()
	if err := recorder.End(); err != nil {
		log.Error("Failed to end session", "error", err)
	}
	if exp, ok := backend.(session.Exportable); ok {
		log.Info("Session exported", "path", exp.ExportedFilePath())
	}
	if dbManager != nil && dbManager.ShouldSaveLocal {
		if err := dbManager.DumpMemoryToDisk(); err != nil {
			log.Error("Failed to save session database", "error", err)
		} else {
			log.Info("Session database saved", "path", dbManager.SqliteFilePath)
		}
	}
	if influxManager != nil {
		influxManager.Close()
	}
	log.Info("Simulation complete",
		"instancesCreated", len(renderer.Created()),
		"instancesLive", renderer.LiveCount())
}

// demoAssociations is the fallback exhibit when the config names none.
func demoAssociations() []config.AssociationEntry {
	return []config.AssociationEntry{
		{Identity: "qr-anchor-north", AssetRef: "models/statue.glb"},
		{Identity: "qr-anchor-south", AssetRef: "models/vase.glb"},
		{Identity: "qr-anchor-east", AssetRef: "models/mural.glb"},
	}
}

// runScriptedWalk simulates markers entering and leaving the tracking volume
// while the viewer walks between them.
func runScriptedWalk(disp *dispatcher.Dispatcher, viewer *simViewer, entries []config.AssociationEntry, duration time.Duration, log *slog.Logger) {
	positions := []core.Position3D{
		{X: 0, Y: 1.5, Z: 2},
		{X: 4, Y: 1.5, Z: -1},
		{X: -3, Y: 1.5, Z: 3},
	}

	handles := make([]*tracking.FakeHandle, 0, len(entries))
	for i, entry := range entries {
		handles = append(handles, tracking.NewFakeHandle(entry.Identity, positions[i%len(positions)]))
	}

	dispatch := func(cmd string, h tracking.Handle) {
		if _, err := disp.Dispatch(dispatcher.Event{Command: cmd, Handle: h, Timestamp: time.Now()}); err != nil {
			log.Warn("Dispatch failed", "command", cmd, "error", err)
		}
	}

	deadline := time.Now().Add(duration)
	step := 0
	for time.Now().Before(deadline) {
		// The viewer drifts towards each anchor in turn; markers flicker in
		// and out as if detection were imperfect.
		target := positions[step%len(positions)]
		viewer.Set(core.Position3D{X: target.X * 0.8, Y: 1.7, Z: target.Z * 0.8})

		h := handles[step%len(handles)]
		dispatch(dispatcher.CmdMarkerAdded, h)

		if step > 0 && step%4 == 0 {
			gone := handles[(step-1)%len(handles)]
			dispatch(dispatcher.CmdMarkerRemoved, gone)
			time.Sleep(150 * time.Millisecond)
			dispatch(dispatcher.CmdMarkerAdded, gone)
		}

		step++
		time.Sleep(500 * time.Millisecond)
	}

	log.Info("Scripted walk finished", "steps", step)
}
