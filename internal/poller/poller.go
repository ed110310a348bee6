// Package poller provides the shared polling primitive behind every
// monitor in the portal: immediate fetch on start, fixed-delay ticks
// while active, suspend/resume mirroring page visibility, and a
// sequence guard so late responses never overwrite fresher state.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Fetch performs one poll tick. The seq value identifies the invocation
// and must be passed to Apply before publishing any state derived from
// the response.
type Fetch func(ctx context.Context, seq uint64) error

type command int

const (
	cmdSuspend command = iota
	cmdResume
	cmdRefresh
)

// Poller owns one polling schedule. All scheduling is fixed-delay: the
// next tick is armed only after the previous fetch returns, so ticks of
// a single poller never overlap.
type Poller struct {
	name     string
	interval time.Duration
	fetch    Fetch
	logger   *logrus.Entry

	mu          sync.Mutex
	running     bool
	suspended   bool
	seq         uint64
	consecFails int
	lastSuccess time.Time
	cancel      context.CancelFunc
	ctx         context.Context
	cmds        chan command
	done        chan struct{}
}

// New creates a poller. It does nothing until Start is called.
func New(name string, interval time.Duration, fetch Fetch, logger *logrus.Logger) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		fetch:    fetch,
		logger:   logger.WithField("poller", name),
	}
}

// Start launches the schedule with an immediate first fetch. Starting an
// already-running poller is a no-op; there is never more than one
// schedule goroutine per instance. Returns whether this call started it.
func (p *Poller) Start(parent context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.logger.Warn("Poller already running, ignoring duplicate start")
		return false
	}
	p.running = true
	p.suspended = false
	p.ctx, p.cancel = context.WithCancel(parent)
	p.cmds = make(chan command)
	p.done = make(chan struct{})
	go p.run()
	return true
}

// Stop cancels the schedule unconditionally and waits for the loop to
// exit. Results of any in-flight fetch are discarded by the Apply guard.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
}

// Suspend cancels future scheduling without touching any in-flight
// fetch. Mirrors the page going hidden.
func (p *Poller) Suspend() { p.send(cmdSuspend) }

// Resume fetches immediately and re-arms the schedule. Mirrors the page
// becoming visible again.
func (p *Poller) Resume() { p.send(cmdResume) }

// Refresh runs one immediate fetch independent of the schedule
func (p *Poller) Refresh() { p.send(cmdRefresh) }

func (p *Poller) send(c command) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	ctx, cmds := p.ctx, p.cmds
	p.mu.Unlock()

	select {
	case cmds <- c:
	case <-ctx.Done():
	}
}

func (p *Poller) run() {
	defer close(p.done)

	p.invoke()

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return

		case c := <-p.cmds:
			switch c {
			case cmdSuspend:
				p.setSuspended(true)
				if !timer.Stop() {
					drain(timer)
				}
			case cmdResume:
				if !p.isSuspended() {
					continue
				}
				p.setSuspended(false)
				p.invoke()
				timer.Reset(p.interval)
			case cmdRefresh:
				p.invoke()
				if !p.isSuspended() {
					if !timer.Stop() {
						drain(timer)
					}
					timer.Reset(p.interval)
				}
			}

		case <-timer.C:
			if p.isSuspended() {
				continue
			}
			p.invoke()
			timer.Reset(p.interval)
		}
	}
}

func drain(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}

// invoke runs one fetch. Failures are logged and counted but never stop
// the schedule; the next tick retries.
func (p *Poller) invoke() {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	ctx := p.ctx
	p.mu.Unlock()

	if err := p.fetch(ctx, seq); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.mu.Lock()
		p.consecFails++
		fails := p.consecFails
		p.mu.Unlock()
		p.logger.WithFields(logrus.Fields{
			"seq":                  seq,
			"consecutive_failures": fails,
		}).WithError(err).Warn("Poll tick failed")
		return
	}

	p.mu.Lock()
	p.consecFails = 0
	p.lastSuccess = time.Now()
	p.mu.Unlock()
}

// Apply runs fn only when seq is still the latest issued invocation and
// the poller has not been stopped. Fetch callbacks publish state through
// this guard so stale responses and post-teardown completions are
// dropped.
func (p *Poller) Apply(seq uint64, fn func()) bool {
	p.mu.Lock()
	ok := p.running && seq == p.seq
	p.mu.Unlock()
	// All invocations run on the schedule goroutine, so seq cannot
	// advance while fn executes.
	if ok {
		fn()
	}
	return ok
}

func (p *Poller) setSuspended(v bool) {
	p.mu.Lock()
	p.suspended = v
	p.mu.Unlock()
}

func (p *Poller) isSuspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suspended
}

// Running reports whether the schedule is active
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Suspended reports whether scheduling is currently paused
func (p *Poller) Suspended() bool {
	return p.isSuspended()
}

// ConsecutiveFailures returns how many ticks in a row have failed
func (p *Poller) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consecFails
}

// LastSuccess returns when the last successful tick completed
func (p *Poller) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSuccess
}
