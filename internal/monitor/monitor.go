// Package monitor runs the 1-second status loop: it snapshots engine and
// recorder state, mirrors it to a status file for quick inspection, and ships
// performance points to InfluxDB.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/qrstage/qrstage/internal/influx"
	"github.com/qrstage/qrstage/internal/logging"
	"github.com/qrstage/qrstage/internal/reconciler"
	"github.com/qrstage/qrstage/internal/session"
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Engine     *reconciler.Engine
	Recorder   *session.Recorder
	LogManager *logging.Manager
	Influx     *influx.Manager // optional
	StatusDir  string
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// status is the document written to the status file each second.
type status struct {
	Time           time.Time      `json:"time"`
	Registered     int            `json:"registered"`
	InFlight       int            `json:"inFlight"`
	ActiveIdentity string         `json:"activeIdentity"`
	LastPassMs     float64        `json:"lastPassMs"`
	Passes         uint64         `json:"passes"`
	QueueDepths    map[string]int `json:"queueDepths,omitempty"`
}

// GetStatus snapshots engine and recorder state.
func (s *Service) GetStatus() status {
	stats := s.deps.Engine.Snapshot()
	doc := status{
		Time:           time.Now().UTC(),
		Registered:     stats.Registered,
		InFlight:       stats.InFlight,
		ActiveIdentity: stats.ActiveIdentity,
		LastPassMs:     float64(stats.LastPass.Microseconds()) / 1000,
		Passes:         stats.Passes,
	}
	if s.deps.Recorder != nil {
		doc.QueueDepths = s.deps.Recorder.QueueDepths()
	}
	return doc
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine")

		statusFile, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
		}()

		ticker := time.NewTicker(1000 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				doc := s.GetStatus()

				if statusFile != nil {
					data, err := json.MarshalIndent(doc, "", "  ")
					if err != nil {
						data = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
					}
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					statusFile.Write(data)
					statusFile.WriteString("\n")
				}

				if s.deps.Influx != nil {
					stats := s.deps.Engine.Snapshot()
					point := influx.ReconcilePoint(
						stats.Registered, stats.InFlight, stats.ActiveIdentity,
						stats.LastPass, stats.Passes,
					)
					if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketReconcilePerformance, point); err != nil {
						logger.Error("Error writing reconcile point", "error", err)
					}
					if s.deps.Recorder != nil {
						qp := influx.QueueDepthPoint(s.deps.Recorder.QueueDepths())
						if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketSessionActivity, qp); err != nil {
							logger.Error("Error writing queue depth point", "error", err)
						}
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
		s.isRunning = false
	}
}
