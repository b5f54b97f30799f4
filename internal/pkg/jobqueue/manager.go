package jobqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/app/repository"
	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
)

// ReprocessConfig controls the sweeper that re-dispatches raw events which
// never reached a final outcome.
type ReprocessConfig struct {
	Interval    time.Duration
	MinAge      time.Duration
	MaxAttempts int
	BatchSize   int
}

// Manager owns the Redis queue (when that driver is used) and the
// reprocess sweeper.
type Manager struct {
	queue      *Queue
	events     repository.RawEventRepository
	dispatcher dispatch.Dispatcher
	reprocess  ReprocessConfig
	ticker     *time.Ticker
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

var (
	globalManager *Manager
	managerMu     sync.Mutex
)

// NewManager wires the sweeper to dispatcher. queue may be nil when raw
// events are handed off through AMQP or HTTP instead of Redis.
func NewManager(queue *Queue, events repository.RawEventRepository, dispatcher dispatch.Dispatcher, cfg ReprocessConfig) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Minute
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Manager{
		queue:      queue,
		events:     events,
		dispatcher: dispatcher,
		reprocess:  cfg,
		stopCh:     make(chan struct{}),
	}
}

// SetManager registers the process wide manager.
func SetManager(m *Manager) {
	managerMu.Lock()
	defer managerMu.Unlock()
	globalManager = m
}

// GetManager returns the manager registered by SetManager, or nil.
func GetManager() *Manager {
	managerMu.Lock()
	defer managerMu.Unlock()
	return globalManager
}

func (m *Manager) GetQueue() *Queue {
	return m.queue
}

func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true
	qlog(context.Background()).Info("manager starting")

	if m.queue != nil {
		m.queue.Start()
	}

	m.ticker = time.NewTicker(m.reprocess.Interval)
	m.wg.Add(1)
	go m.reprocessWorker()

	qlog(context.Background()).Info("manager started")
}

func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	qlog(context.Background()).Info("manager stopping")
	if m.ticker != nil {
		m.ticker.Stop()
	}
	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	if m.queue != nil {
		m.queue.Stop()
	}
	qlog(context.Background()).Info("manager stopped")
}

func (m *Manager) reprocessWorker() {
	defer m.wg.Done()
	log := qlog(context.Background())
	log.Info("reprocess worker started", zap.Duration("interval", m.reprocess.Interval), zap.Duration("min_age", m.reprocess.MinAge))

	for {
		select {
		case <-m.stopCh:
			log.Info("reprocess worker stopping")
			return
		case <-m.ticker.C:
			if _, err := m.ReprocessOnce(context.Background()); err != nil {
				log.Error("reprocess sweep failed", zap.Error(err))
			}
		}
	}
}

// ReprocessOnce re-dispatches raw events older than MinAge that have no
// final outcome and fewer than MaxAttempts attempts. Processing is
// idempotent, so an event whose first job is merely slow is safe to send
// twice.
func (m *Manager) ReprocessOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-m.reprocess.MinAge)
	pending, err := m.events.ListUnprocessed(ctx, cutoff, m.reprocess.MaxAttempts, m.reprocess.BatchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, ev := range pending {
		task := dispatch.Task{EventID: ev.ID, Platform: ev.Platform, Hash: ev.Hash}
		if err := m.dispatcher.Dispatch(ctx, task); err != nil {
			qlog(ctx).Error("re-dispatch failed", zap.Uint("event_id", ev.ID), zap.Error(err))
			continue
		}
		dispatched++
	}
	if dispatched > 0 {
		qlog(ctx).Info("re-dispatched unprocessed raw events", zap.Int("count", dispatched))
	}
	return dispatched, nil
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
