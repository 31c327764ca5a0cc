// Package scheduler runs the periodic batch walks: each configured batch
// job visits its sources sequentially with an inter-source pause, so the
// pipeline never bursts traffic at several sites from one origin at once.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"streamvault/config"
	"streamvault/services/scraper"
)

// Service manages scheduled batch execution.
type Service struct {
	configManager *config.Manager
	scraper       *scraper.Service

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Batch state tracking (in-memory, not persisted)
	batchRunning map[string]bool
	batchMu      sync.RWMutex
}

func NewService(configManager *config.Manager, scraperService *scraper.Service) *Service {
	return &Service{
		configManager: configManager,
		scraper:       scraperService,
		batchRunning:  make(map[string]bool),
	}
}

// Start begins the scheduler background loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.schedulerLoop()

	log.Println("[scheduler] Scheduler service started")
	return nil
}

// Stop gracefully stops the scheduler, waiting for in-flight batches up to
// the context deadline.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[scheduler] Scheduler service stopped gracefully")
	case <-ctx.Done():
		log.Println("[scheduler] Scheduler service stopped (timeout)")
	}

	s.running = false
	return nil
}

// schedulerLoop checks for due batches on a fixed interval.
func (s *Service) schedulerLoop() {
	defer s.wg.Done()

	settings, err := s.configManager.Load()
	if err != nil {
		log.Printf("[scheduler] Failed to load settings: %v", err)
		return
	}

	checkInterval := time.Duration(settings.ScheduledTasks.CheckIntervalSeconds) * time.Second
	if checkInterval < time.Second {
		checkInterval = 60 * time.Second
	}

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	s.checkAndRunBatches()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkAndRunBatches()
		}
	}
}

// checkAndRunBatches starts every due batch. Batches run concurrently with
// each other; the sources inside one batch always run sequentially.
func (s *Service) checkAndRunBatches() {
	settings, err := s.configManager.Load()
	if err != nil {
		log.Printf("[scheduler] Failed to load settings: %v", err)
		return
	}
	if !settings.ScheduledTasks.Enabled {
		return
	}

	for _, batch := range settings.ScheduledTasks.Batches {
		if s.shouldRun(batch) {
			s.wg.Add(1)
			go func(b config.BatchJob, pause time.Duration) {
				defer s.wg.Done()
				s.executeBatch(b, pause)
			}(batch, time.Duration(settings.Scraper.InterSourcePauseSeconds)*time.Second)
		}
	}
}

// shouldRun checks if a batch is due.
func (s *Service) shouldRun(batch config.BatchJob) bool {
	s.batchMu.RLock()
	if s.batchRunning[batch.ID] {
		s.batchMu.RUnlock()
		return false
	}
	s.batchMu.RUnlock()

	if batch.LastRunAt == nil {
		return true
	}

	freq := time.Duration(batch.FrequencyHrs) * time.Hour
	if freq <= 0 {
		freq = 24 * time.Hour
	}
	return time.Since(*batch.LastRunAt) >= freq
}

// executeBatch walks the batch's sources in order, pausing between them.
func (s *Service) executeBatch(batch config.BatchJob, pause time.Duration) {
	s.batchMu.Lock()
	s.batchRunning[batch.ID] = true
	s.batchMu.Unlock()

	defer func() {
		s.batchMu.Lock()
		delete(s.batchRunning, batch.ID)
		s.batchMu.Unlock()
	}()

	log.Printf("[scheduler] Executing batch: %s (%d sources)", batch.ID, len(batch.Sources))

	var (
		imported int
		lastErr  error
	)
	for i, source := range batch.Sources {
		if i > 0 && pause > 0 {
			select {
			case <-s.ctx.Done():
				log.Printf("[scheduler] Batch %s interrupted by shutdown", batch.ID)
				s.updateBatchStatus(batch.ID, s.ctx.Err(), imported)
				return
			case <-time.After(pause):
			}
		}

		res, err := s.scraper.Scrape(s.ctx, scraper.Request{
			Source:   source,
			Limit:    batch.Limit,
			Detailed: true,
		})
		if err != nil {
			// One source failing never stops the rest of the walk.
			log.Printf("[scheduler] Batch %s: source %s failed: %v", batch.ID, source, err)
			lastErr = err
			continue
		}
		imported += len(res.Records)
	}

	s.updateBatchStatus(batch.ID, lastErr, imported)
}

// updateBatchStatus stamps the batch outcome into the settings file.
func (s *Service) updateBatchStatus(batchID string, err error, itemsImported int) {
	settings, loadErr := s.configManager.Load()
	if loadErr != nil {
		log.Printf("[scheduler] Failed to load settings to update batch status: %v", loadErr)
		return
	}

	now := time.Now().UTC()
	for i := range settings.ScheduledTasks.Batches {
		if settings.ScheduledTasks.Batches[i].ID == batchID {
			settings.ScheduledTasks.Batches[i].LastRunAt = &now
			settings.ScheduledTasks.Batches[i].ItemsImported = itemsImported

			if err != nil {
				settings.ScheduledTasks.Batches[i].LastStatus = "error"
				settings.ScheduledTasks.Batches[i].LastError = err.Error()
				log.Printf("[scheduler] Batch %s finished with errors: %v", batchID, err)
			} else {
				settings.ScheduledTasks.Batches[i].LastStatus = "success"
				settings.ScheduledTasks.Batches[i].LastError = ""
				log.Printf("[scheduler] Batch %s completed, imported %d items", batchID, itemsImported)
			}
			break
		}
	}

	if saveErr := s.configManager.Save(settings); saveErr != nil {
		log.Printf("[scheduler] Failed to save batch status: %v", saveErr)
	}
}

// RunBatchNow triggers immediate execution of a batch, outside its schedule.
func (s *Service) RunBatchNow(batchID string) error {
	settings, err := s.configManager.Load()
	if err != nil {
		return err
	}

	for _, batch := range settings.ScheduledTasks.Batches {
		if batch.ID != batchID {
			continue
		}

		s.batchMu.RLock()
		running := s.batchRunning[batchID]
		s.batchMu.RUnlock()
		if running {
			return nil
		}

		s.wg.Add(1)
		go func(b config.BatchJob, pause time.Duration) {
			defer s.wg.Done()
			s.executeBatch(b, pause)
		}(batch, time.Duration(settings.Scraper.InterSourcePauseSeconds)*time.Second)
		return nil
	}
	return fmt.Errorf("unknown batch: %s", batchID)
}
