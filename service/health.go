package service

import (
	"context"
	"sync"
	"time"

	"github.com/dyng/subfeed/types"
	"github.com/robfig/cron/v3"
)

const pingTimeout = 5 * time.Second

// HealthMonitor pings the content store on a cron schedule and remembers the
// outcome of the last probe.
type HealthMonitor struct {
	pinger types.Pinger
	cron   *cron.Cron

	mu        sync.RWMutex
	lastErr   error
	checkedAt time.Time
}

type HealthStatus struct {
	Healthy   bool
	Error     string
	CheckedAt time.Time
}

func NewHealthMonitor(pinger types.Pinger) *HealthMonitor {
	return &HealthMonitor{
		pinger: pinger,
		cron:   cron.New(),
	}
}

// Start runs one probe immediately, then one per schedule tick.
func (h *HealthMonitor) Start(schedule string) error {
	if _, err := h.cron.AddFunc(schedule, func() {
		h.Check(context.Background())
	}); err != nil {
		return err
	}
	h.Check(context.Background())
	h.cron.Start()
	return nil
}

func (h *HealthMonitor) Stop() {
	<-h.cron.Stop().Done()
}

func (h *HealthMonitor) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := h.pinger.Ping(ctx)
	if err != nil {
		logger.Warn("content store health check failed", "err", err)
	}

	h.mu.Lock()
	h.lastErr = err
	h.checkedAt = time.Now()
	h.mu.Unlock()
	return err
}

func (h *HealthMonitor) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := HealthStatus{Healthy: h.lastErr == nil, CheckedAt: h.checkedAt}
	if h.lastErr != nil {
		status.Error = h.lastErr.Error()
	}
	return status
}
