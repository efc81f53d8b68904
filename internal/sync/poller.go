package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/service"
	"github.com/nhle/mail-assistant/internal/source"
)

// SyncState represents the current state of the poll loop.
type SyncState string

const (
	SyncStopped SyncState = "stopped"
	SyncIdle    SyncState = "idle"
	SyncRunning SyncState = "running"
	SyncError   SyncState = "error"
)

// SyncStatus is a point-in-time view of the poll loop.
type SyncStatus struct {
	State     SyncState           `json:"state"`
	Interval  string              `json:"interval,omitempty"`
	LastRun   time.Time           `json:"lastRun,omitzero"`
	LastError string              `json:"lastError,omitempty"`
	Runs      int                 `json:"runs"`
	Last      *service.PollResult `json:"last,omitempty"`
}

// PollFunc runs one poll pass.
type PollFunc func(ctx context.Context) (service.PollResult, error)

// pollTimeout is the maximum time allowed for a single pass.
const pollTimeout = 5 * time.Minute

// Poller runs poll-once on a fixed interval.
type Poller struct {
	poll      PollFunc
	interval  time.Duration
	log       logger.Logger
	status    SyncStatus
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a Poller. It does nothing until Start is called.
func New(poll PollFunc, interval time.Duration, log logger.Logger) *Poller {
	if log == nil {
		log = logger.Nop()
	}
	return &Poller{
		poll:      poll,
		interval:  interval,
		log:       log.With("component", "poller"),
		status:    SyncStatus{State: SyncStopped},
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the polling goroutine. The first pass runs immediately.
// Calling Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.interval <= 0 {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.status.State = SyncIdle
	p.status.Interval = p.interval.String()

	go p.loop(ctx, p.stopCh, p.doneCh)
	p.log.Info("poller started", "interval", p.interval)
}

// Stop halts the polling goroutine and waits for an in-flight pass to
// finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	done := p.doneCh
	p.running = false
	p.mu.Unlock()

	<-done

	p.mu.Lock()
	p.status.State = SyncStopped
	p.mu.Unlock()
	p.log.Info("poller stopped")
}

// Refresh asks the loop to run a pass now. It never blocks and does
// nothing when the poller is stopped.
func (p *Poller) Refresh() {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return
	}

	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the current status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runOnce(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(parent context.Context) {
	p.setState(SyncRunning)

	ctx, cancel := context.WithTimeout(parent, pollTimeout)
	defer cancel()

	result, err := p.poll(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.Runs++
	p.status.LastRun = time.Now()
	if err != nil {
		p.status.State = SyncError
		p.status.LastError = err.Error()
		if source.IsAuthError(err) {
			p.log.Error("poll failed: credentials rejected; update the configuration", "error", err)
		} else {
			p.log.Warn("poll failed", "error", err)
		}
		return
	}

	p.status.State = SyncIdle
	p.status.LastError = ""
	p.status.Last = &result
}

func (p *Poller) setState(state SyncState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = state
}
