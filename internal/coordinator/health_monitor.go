package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/inboxdeploy/internal/cluster"
)

// InstanceHealth tracks the health of a single registered instance.
// Thread-safe: Protected by HealthMonitor's mutex when accessed.
type InstanceHealth struct {
	LastCheck        time.Time // Timestamp of the last health check attempt
	LastHealthy      time.Time // Timestamp of the last successful health check
	InstanceID       string    // Unique identifier of the instance
	Status           string    // One of the cluster.Status* values
	ConsecutiveFails int       // Number of consecutive failed health checks
}

// HealthMonitor periodically probes the agent of every registered instance
// and reports status transitions. Instances without an agent address, such
// as those declared in a topology file, are not probed.
// Thread-safe: All methods are safe for concurrent access.
type HealthMonitor struct {
	instances   map[string]*InstanceHealth
	httpClient  *http.Client
	checkFunc   func(addr string) error
	onChange    func(instanceID, status string)
	log         zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	interval    time.Duration
	timeout     time.Duration
	mu          sync.RWMutex
	wg          sync.WaitGroup
	maxFailures int // Failures before marking unhealthy
}

// NewHealthMonitor creates a monitor that checks every interval. Instances
// are marked unhealthy after 3 consecutive failures.
//
// Example:
//
//	monitor := NewHealthMonitor(5*time.Second, logger)
//	monitor.SetOnStatusChange(registry.SetStatus)
//	go monitor.Start(ctx, registry.Instances)
func NewHealthMonitor(interval time.Duration, logger zerolog.Logger) *HealthMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &HealthMonitor{
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		instances:   make(map[string]*InstanceHealth),
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
		log:    logger.With().Str("component", "health").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetOnStatusChange sets the callback invoked when an instance turns healthy
// or unhealthy. It is called once per transition, outside the monitor lock.
// Must be set before Start.
func (h *HealthMonitor) SetOnStatusChange(callback func(instanceID, status string)) {
	h.onChange = callback
}

// SetCheckFunction overrides the HTTP probe. Must be set before Start.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(addr string) error) {
	h.checkFunc = checkFunc
}

// Start checks the instances returned by provider immediately and then on
// every tick, until ctx or the monitor is stopped. A nil ctx uses the
// monitor's own context.
func (h *HealthMonitor) Start(ctx context.Context, provider func() []cluster.Instance) {
	h.wg.Add(1)
	defer h.wg.Done()

	if ctx == nil {
		ctx = h.ctx
	}
	if h.checkFunc == nil {
		h.checkFunc = h.defaultHealthCheck
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.log.Info().Dur("interval", h.interval).Msg("health monitor started")

	h.checkAll(provider())

	for {
		select {
		case <-ticker.C:
			h.checkAll(provider())
		case <-ctx.Done():
			h.log.Debug().Msg("health monitor stopping: context cancelled")
			return
		case <-h.ctx.Done():
			h.log.Debug().Msg("health monitor stopping: stopped")
			return
		}
	}
}

// Stop cancels the monitoring loop and waits for it to return.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
	h.log.Info().Msg("health monitor stopped")
}

func (h *HealthMonitor) checkAll(instances []cluster.Instance) {
	current := make(map[string]bool, len(instances))

	for _, inst := range instances {
		if inst.Addr == "" {
			continue
		}
		current[inst.ID] = true
		h.check(inst)
	}

	h.mu.Lock()
	for id := range h.instances {
		if !current[id] {
			delete(h.instances, id)
			h.log.Debug().Str("instance", id).Msg("removed from health monitoring")
		}
	}
	h.mu.Unlock()
}

func (h *HealthMonitor) check(inst cluster.Instance) {
	h.mu.Lock()
	health, exists := h.instances[inst.ID]
	if !exists {
		health = &InstanceHealth{
			InstanceID:  inst.ID,
			Status:      cluster.StatusUnknown,
			LastCheck:   time.Now(),
			LastHealthy: time.Now(),
		}
		h.instances[inst.ID] = health
	}
	h.mu.Unlock()

	err := h.checkFunc(inst.Addr)

	h.mu.Lock()
	health.LastCheck = time.Now()
	previous := health.Status

	if err != nil {
		health.ConsecutiveFails++
		h.log.Warn().Err(err).
			Str("instance", inst.ID).
			Int("attempt", health.ConsecutiveFails).
			Int("max", h.maxFailures).
			Msg("health check failed")
		if health.ConsecutiveFails >= h.maxFailures {
			health.Status = cluster.StatusUnhealthy
		}
	} else {
		if previous == cluster.StatusUnhealthy {
			h.log.Info().Str("instance", inst.ID).Msg("instance recovered")
		}
		health.Status = cluster.StatusHealthy
		health.ConsecutiveFails = 0
		health.LastHealthy = time.Now()
	}
	status := health.Status
	h.mu.Unlock()

	if status != previous && status != cluster.StatusUnknown {
		if status == cluster.StatusUnhealthy {
			h.log.Warn().Str("instance", inst.ID).Msg("instance marked unhealthy")
		}
		if h.onChange != nil {
			h.onChange(inst.ID, status)
		}
	}
}

// defaultHealthCheck GETs <addr>/health and expects 200.
func (h *HealthMonitor) defaultHealthCheck(addr string) error {
	url := addr
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		url = fmt.Sprintf("http://%s", addr)
	}
	if !strings.HasSuffix(url, "/health") {
		url = strings.TrimRight(url, "/") + "/health"
	}

	resp, err := h.httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// GetInstanceHealth returns a copy of the health record for id, or nil if
// the instance is not monitored.
func (h *HealthMonitor) GetInstanceHealth(id string) *InstanceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.instances[id]
	if !exists {
		return nil
	}
	c := *health
	return &c
}

// GetAllInstanceHealth returns copies of all health records keyed by ID.
func (h *HealthMonitor) GetAllInstanceHealth() map[string]*InstanceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]*InstanceHealth, len(h.instances))
	for id, health := range h.instances {
		c := *health
		result[id] = &c
	}
	return result
}

// IsHealthy reports whether the instance passed its last check. Unmonitored
// instances are not healthy.
func (h *HealthMonitor) IsHealthy(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.instances[id]
	return exists && health.Status == cluster.StatusHealthy
}
