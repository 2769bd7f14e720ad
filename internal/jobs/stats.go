package jobs

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/example/homecare/backend/internal/tcp"
)

// StatsReporter periodically logs a snapshot of the connection manager
// metrics so operators can watch load without attaching a client.
type StatsReporter struct {
	scheduler *cron.Cron
	manager   *tcp.ConnManager
	spec      string
	jobID     cron.EntryID
}

// NewStatsReporter creates a reporter with the given cron spec (seconds field
// included, e.g. "0 * * * * *" for once a minute).
func NewStatsReporter(manager *tcp.ConnManager, spec string) *StatsReporter {
	return &StatsReporter{
		scheduler: cron.New(cron.WithSeconds()),
		manager:   manager,
		spec:      spec,
	}
}

// Start schedules the reporting job and launches the scheduler.
func (r *StatsReporter) Start() error {
	var err error
	r.jobID, err = r.scheduler.AddFunc(r.spec, func() {
		stats := r.manager.Stats()
		log.Printf("server stats: active=%d total=%d requests=%d errors=%d",
			stats.ActiveConnections, stats.TotalConnections, stats.TotalRequests, stats.TotalErrors)
	})
	if err != nil {
		return fmt.Errorf("error scheduling stats job: %w", err)
	}
	r.scheduler.Start()
	return nil
}

// Stop halts the scheduler; running jobs finish first.
func (r *StatsReporter) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}
