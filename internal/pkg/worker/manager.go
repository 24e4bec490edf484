package worker

import (
	"sync"
	"time"

	"github.com/causekit/CauseLedger/app/repository"
	"github.com/causekit/CauseLedger/internal/pkg/env"
	metrics "github.com/causekit/CauseLedger/internal/pkg/metrics/counter"
	"github.com/causekit/CauseLedger/internal/pkg/reconcile"
	"github.com/causekit/CauseLedger/internal/pkg/replay"
	"github.com/causekit/CauseLedger/internal/pkg/statistics"
	"github.com/gofiber/fiber/v2/log"
)

// Manager manages the background maintenance tasks: counter flushing,
// nonce sweeping, statistics refresh and the duplicate reconciliation scan.
type Manager struct {
	counterFlushTicker *time.Ticker
	nonceSweepTicker   *time.Ticker
	statsTicker        *time.Ticker
	reconcileTicker    *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global background worker manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// Start starts the background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Worker Manager] Starting background tasks")

	// Counter flush (Redis -> DB) every 5 seconds
	m.counterFlushTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()

	// Nonce sweep - configurable interval, half the trust window by default
	sweepInterval := env.GetEnvDuration("NONCE_SWEEP_INTERVAL", replay.DefaultTrustWindow/2)
	m.nonceSweepTicker = time.NewTicker(sweepInterval)
	m.wg.Add(1)
	go m.nonceSweepWorker()

	// Statistics cache refresh check every minute
	m.statsTicker = time.NewTicker(1 * time.Minute)
	m.wg.Add(1)
	go m.statsWorker()

	// Duplicate reconciliation scan - configurable interval
	reconcileInterval := env.GetEnvDuration("RECONCILE_SCAN_INTERVAL", 15*time.Minute)
	m.reconcileTicker = time.NewTicker(reconcileInterval)
	m.wg.Add(1)
	go m.reconcileWorker()

	log.Info("[Worker Manager] Started successfully")
}

// Stop stops the background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Worker Manager] Stopping background tasks...")

	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}
	if m.nonceSweepTicker != nil {
		m.nonceSweepTicker.Stop()
	}
	if m.statsTicker != nil {
		m.statsTicker.Stop()
	}
	if m.reconcileTicker != nil {
		m.reconcileTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	log.Info("[Worker Manager] Stopped successfully")
}

// counterFlushWorker periodically flushes ingest counters from Redis to DB
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Worker Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[Worker Manager] Counter flush error: %v", err)
			}
		}
	}
}

// nonceSweepWorker periodically removes nonces older than the trust window
func (m *Manager) nonceSweepWorker() {
	defer m.wg.Done()
	guard := replay.NewGuardFromEnv(repository.GetGlobalFactory().GetNonceRepository())
	for {
		select {
		case <-m.stopCh:
			log.Info("[Worker Manager] Nonce sweep worker stopping")
			return
		case <-m.nonceSweepTicker.C:
			removed, err := guard.Sweep()
			if err != nil {
				log.Errorf("[Worker Manager] Nonce sweep error: %v", err)
			} else if removed > 0 {
				log.Debugf("[Worker Manager] Nonce sweep removed %d expired entries", removed)
			}
		}
	}
}

// statsWorker keeps the cached ingest overview fresh
func (m *Manager) statsWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Worker Manager] Statistics worker stopping")
			return
		case <-m.statsTicker.C:
			statistics.UpdateCacheIfNeeded()
		}
	}
}

// reconcileWorker periodically scans recent transactions for duplicate candidates
func (m *Manager) reconcileWorker() {
	defer m.wg.Done()
	scanner := reconcile.NewScanner(repository.GetGlobalFactory().GetReconciliationRepository(), reconcile.ConfigFromEnv())
	for {
		select {
		case <-m.stopCh:
			log.Info("[Worker Manager] Reconciliation worker stopping")
			return
		case <-m.reconcileTicker.C:
			flagged, err := scanner.Scan()
			if err != nil {
				log.Errorf("[Worker Manager] Reconciliation scan error: %v", err)
			} else if flagged > 0 {
				log.Infof("[Worker Manager] Reconciliation scan flagged %d duplicate candidates", flagged)
			}
		}
	}
}

// RunReconcileScanOnce exposes a manual trigger for a single reconciliation scan (monitoring use).
func (m *Manager) RunReconcileScanOnce() (int, error) {
	scanner := reconcile.NewScanner(repository.GetGlobalFactory().GetReconciliationRepository(), reconcile.ConfigFromEnv())
	return scanner.Scan()
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
