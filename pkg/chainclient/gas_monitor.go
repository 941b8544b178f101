package chainclient

import (
	"context"
	"sync"
	"time"

	"github.com/speedrun-hq/zora-runner/pkg/logger"
)

// GasMonitor periodically samples the gas price of a set of clients so the
// gas price gauge stays fresh between transactions
type GasMonitor struct {
	ctx      context.Context
	clients  []*Client
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
	mu       sync.RWMutex
	running  bool
	logger   logger.Logger
}

// NewGasMonitor creates a new gas monitor
func NewGasMonitor(ctx context.Context, interval time.Duration, log logger.Logger, clients ...*Client) *GasMonitor {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &GasMonitor{
		ctx:      ctx,
		clients:  clients,
		interval: interval,
		logger:   log,
	}
}

// Start begins the periodic sampling
func (m *GasMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true

	go m.run(m.stopChan, m.done)
}

// Stop halts the sampling and waits for the goroutine to exit
func (m *GasMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.stopChan)
	done := m.done
	m.stopChan = nil
	m.running = false
	m.mu.Unlock()

	<-done
}

func (m *GasMonitor) isRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *GasMonitor) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sample()

	for {
		select {
		case <-ticker.C:
			m.sample()
		case <-stop:
			return
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *GasMonitor) sample() {
	for _, client := range m.clients {
		ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
		if _, err := client.GasPrice(ctx); err != nil {
			m.logger.DebugWithChain(client.Name(), "Failed to sample gas price: %v", err)
		}
		cancel()
	}
}
