// Package scheduler runs periodic background jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/importers"
	"github.com/mrlokans/librarian/internal/services"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// Importer imports a spreadsheet file for a user.
type Importer interface {
	Import(ctx context.Context, path, email string) (services.ImportResult, error)
}

// ScanResult summarizes one pass over the inbox.
type ScanResult struct {
	Imported int
	Rejected int
	Deferred int
}

// InboxScheduler periodically imports spreadsheets dropped into
// <inbox>/<user email>/. Imported files move to processed/, files that
// fail validation move to failed/, and files hit by a connectivity error
// stay for the next run.
type InboxScheduler struct {
	inbox    string
	schedule string
	importer Importer
	log      *zap.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isScanning bool
	cancelFunc context.CancelFunc
}

// NewInboxScheduler creates a new scheduler instance.
func NewInboxScheduler(inbox, schedule string, importer Importer, log *zap.Logger) *InboxScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InboxScheduler{
		inbox:    inbox,
		schedule: schedule,
		importer: importer,
		log:      log.Named("inbox"),
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start schedules inbox scans. It stops on its own when ctx is done.
func (s *InboxScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	var runCtx context.Context
	runCtx, s.cancelFunc = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Scan(runCtx); err != nil {
			s.log.Error("inbox scan failed", zap.Error(err))
		}
	})
	if err != nil {
		s.cancelFunc()
		return fmt.Errorf("failed to schedule inbox job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	s.log.Info("inbox scheduler started",
		zap.String("dir", s.inbox),
		zap.String("schedule", s.schedule),
		zap.Time("next_run", s.cron.Entry(entryID).Next),
	)

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running scan to complete.
func (s *InboxScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.cron.Remove(s.entryID)
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()
	s.log.Info("inbox scheduler stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *InboxScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next scan will occur.
func (s *InboxScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	t := s.cron.Entry(s.entryID).Next
	return &t
}

// Scan imports every spreadsheet currently in the inbox. Overlapping scans
// are skipped.
func (s *InboxScheduler) Scan(ctx context.Context) (ScanResult, error) {
	s.mu.Lock()
	if s.isScanning {
		s.mu.Unlock()
		s.log.Debug("inbox scan skipped, already scanning")
		return ScanResult{}, nil
	}
	s.isScanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isScanning = false
		s.mu.Unlock()
	}()

	var result ScanResult
	owners, err := os.ReadDir(s.inbox)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return result, fmt.Errorf("failed to read inbox: %w", err)
	}

	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		if err := s.scanOwner(ctx, owner.Name(), &result); err != nil {
			return result, err
		}
	}

	if result != (ScanResult{}) {
		s.log.Info("inbox scan finished",
			zap.Int("imported", result.Imported),
			zap.Int("rejected", result.Rejected),
			zap.Int("deferred", result.Deferred),
		)
	}
	return result, nil
}

func (s *InboxScheduler) scanOwner(ctx context.Context, email string, result *ScanResult) error {
	dir := filepath.Join(s.inbox, email)
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read inbox for %s: %w", email, err)
	}

	for _, f := range files {
		if f.IsDir() || !importers.IsSpreadsheet(f.Name(), "") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dir, f.Name())
		_, err := s.importer.Import(ctx, path, email)
		switch {
		case err == nil:
			result.Imported++
			if err := moveTo(path, processedDir); err != nil {
				return err
			}
		case database.IsRetryable(err):
			result.Deferred++
			s.log.Warn("inbox import deferred", zap.String("path", path), zap.Error(err))
		default:
			result.Rejected++
			s.log.Error("inbox import rejected", zap.String("path", path), zap.Error(err))
			if err := moveTo(path, failedDir); err != nil {
				return err
			}
		}
	}
	return nil
}

// moveTo moves path into the named subdirectory next to it.
func moveTo(path, sub string) error {
	dir := filepath.Join(filepath.Dir(path), sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", sub, err)
	}
	if err := os.Rename(path, filepath.Join(dir, filepath.Base(path))); err != nil {
		return fmt.Errorf("failed to move %s: %w", path, err)
	}
	return nil
}
