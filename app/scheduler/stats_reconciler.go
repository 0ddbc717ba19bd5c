// Package scheduler contains background jobs that run alongside the HTTP server
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	businessflow "github.com/clipgreet/clipgreet/business_flow"
	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/repository"
)

// StatsReconciler periodically recomputes the denormalized engagement
// counters from the viewer event log. The projection path increments
// counters outside the append transaction, so a crash between the two can
// leave a counter behind the log; this job closes that gap.
type StatsReconciler struct {
	videoRepo repository.VideoRepository
	eventRepo repository.ViewerEventRepository
	logger    *log.Logger
	interval  time.Duration
	batchSize int
}

func NewStatsReconciler(
	videoRepo repository.VideoRepository,
	eventRepo repository.ViewerEventRepository,
	interval time.Duration,
	batchSize int,
	logDir string,
) *StatsReconciler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 200
	}

	s := &StatsReconciler{
		videoRepo: videoRepo,
		eventRepo: eventRepo,
		interval:  interval,
		batchSize: batchSize,
	}
	s.initLogger(logDir)

	return s
}

// initLogger configures a logger that writes to both stdout and a rotating
// file under the configured log directory.
func (s *StatsReconciler) initLogger(logDir string) {
	if logDir == "" {
		logDir = "data"
	}
	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "reconciler.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	mw := io.MultiWriter(os.Stdout, rotating)
	s.logger = log.New(mw, "reconciler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the reconciliation loop in a background goroutine and
// returns a stop function
func (s *StatsReconciler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *StatsReconciler) runOnce(ctx context.Context) {
	start := time.Now()
	var scanned, repaired, failed int

	offset := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		videos, err := s.videoRepo.ByFilter(ctx, models.VideoFilter{}, "id ASC", s.batchSize, offset)
		if err != nil {
			s.logger.Printf("reconciler: list videos failed at offset %d: %v", offset, err)
			return
		}
		if len(videos) == 0 {
			break
		}

		for _, video := range videos {
			scanned++
			changed, err := s.reconcileVideo(ctx, video)
			if err != nil {
				failed++
				s.logger.Printf("reconciler: video %s failed: %v", video.UUID, err)
				continue
			}
			if changed {
				repaired++
				s.logger.Printf("reconciler: video %s counters repaired", video.UUID)
			}
		}

		offset += len(videos)
	}

	if repaired > 0 || failed > 0 {
		s.logger.Printf("reconciler: pass finished, scanned=%d repaired=%d failed=%d in %s", scanned, repaired, failed, time.Since(start).Round(time.Millisecond))
	}
}

// reconcileVideo recomputes the counters for one video and overwrites them
// when they drifted from the event log. Returns whether a repair happened.
func (s *StatsReconciler) reconcileVideo(ctx context.Context, video *models.Video) (bool, error) {
	counts, _, err := businessflow.RecomputeCounts(ctx, s.eventRepo, video.ID)
	if err != nil {
		return false, err
	}

	current := map[models.StatsCounter]int64{
		models.CounterViews:    video.StatsViews,
		models.CounterClicks:   video.StatsClicks,
		models.CounterWatch25:  video.StatsWatch25,
		models.CounterWatch50:  video.StatsWatch50,
		models.CounterWatch75:  video.StatsWatch75,
		models.CounterWatch100: video.StatsWatch100,
		models.CounterBookings: video.StatsBookings,
	}

	drifted := false
	for counter, value := range current {
		if counts[counter] != value {
			drifted = true
			break
		}
	}
	if !drifted {
		return false, nil
	}

	if err := s.videoRepo.ApplyCounts(ctx, video.ID, counts); err != nil {
		return false, err
	}
	return true, nil
}
