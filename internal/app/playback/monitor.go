package playback

import (
	"sync/atomic"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonobox/internal/app/command"
)

// MonitorConfig holds reconciliation monitor configuration.
type MonitorConfig struct {
	PollInterval time.Duration // Interval between device polls
	ErrorBackoff time.Duration // Sleep after a failed poll cycle
}

func (c *MonitorConfig) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 5 * time.Second
	}
}

// Monitor polls the device's observed transport state and reconciles it
// against the controller's intended state. Drift is translated into
// internal commands fed back through the same queue, so the monitor
// never mutates controller state itself. Polling is deliberate: the
// device can silently drop end-of-track notifications, and a purely
// event-driven design would stall the jukebox.
type Monitor struct {
	ctrl   *Controller
	config MonitorConfig

	lastObserved TransportState
	observedOnce bool

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// NewMonitor creates a monitor for the given controller.
func NewMonitor(ctrl *Controller, cfg MonitorConfig) *Monitor {
	cfg.applyDefaults()
	return &Monitor{ctrl: ctrl, config: cfg}
}

// Start launches the polling loop.
func (m *Monitor) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run()
	zlog.Info().Msgf("monitor: started: interval=%v", m.config.PollInterval)
}

// Stop terminates the polling loop and waits for it to exit.
func (m *Monitor) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stop)
	<-m.done
	zlog.Info().Msg("monitor: stopped")
}

func (m *Monitor) run() {
	defer close(m.done)

	for m.running.Load() {
		if err := m.poll(); err != nil {
			zlog.Debug().Msgf("monitor: error checking device state: %v", err)
			m.sleep(m.config.ErrorBackoff)
			continue
		}
		m.sleep(m.config.PollInterval)
	}
}

// poll runs one reconciliation cycle.
func (m *Monitor) poll() error {
	snap := m.ctrl.State()

	// An empty queue leaves nothing to reconcile toward.
	if snap.QueueDepth == 0 {
		m.observedOnce = false
		return nil
	}

	observed, err := m.ctrl.Device().TransportState()
	if err != nil {
		return err
	}
	defer func() {
		m.lastObserved = observed
		m.observedOnce = true
	}()

	switch {
	case !snap.HasPlaying && observed != Playing && snap.State == Playing:
		// Should be playing but nothing is: kick playback off.
		zlog.Info().Msg("monitor: queue has songs, taking control and starting playback")
		return m.ctrl.enqueueInternal(command.New(command.TrackEnded))

	case !snap.HasPlaying && observed == Playing:
		// An external source took the device while we hold a queue.
		// Preempt it directly, then reclaim through the queue.
		zlog.Info().Msg("monitor: external source playing but queue is pending, taking over")
		if err := m.ctrl.Device().Stop(); err != nil {
			zlog.Debug().Msgf("monitor: preempt stop failed: %v", err)
		}
		return m.ctrl.enqueueInternal(command.New(command.TrackEnded))

	case m.observedOnce && m.lastObserved == Playing && observed != Playing:
		// Natural end of track. Only advance when the controller still
		// intends to play; a user pause or stop wins.
		if snap.State == Playing {
			zlog.Info().Msg("monitor: song ended, queuing next")
			return m.ctrl.enqueueInternal(command.New(command.TrackEnded))
		}
		zlog.Info().Msgf("monitor: song ended but controller state is %s, respecting user command", snap.State)
	}

	return nil
}

// sleep waits for d but returns early on Stop.
func (m *Monitor) sleep(d time.Duration) {
	select {
	case <-m.stop:
	case <-time.After(d):
	}
}
