package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session is the lifecycle surface shared by every monitor kind. The
// UI forwards page-visibility changes as Suspend/Resume calls.
type Session interface {
	Start(ctx context.Context)
	Stop()
	Suspend()
	Resume()
	Refresh()
}

// Kinds of registered sessions
const (
	KindClientStatus = "client-status"
	KindHistory      = "history"
	KindBatch        = "batch"
)

type entrada struct {
	id      string
	kind    string
	session Session
	lastUse time.Time
}

// Registry tracks live monitor sessions by id, reaping the ones the UI
// abandoned without closing (tab killed, network gone).
type Registry struct {
	ttl    time.Duration
	logger *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*entrada
	cancel   context.CancelFunc
}

// NewRegistry creates a session registry and starts its reaper
func NewRegistry(ttl time.Duration, logger *logrus.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*entrada),
		cancel:   cancel,
	}
	go r.reap(ctx)
	return r
}

// Add registers and starts a session, returning its id
func (r *Registry) Add(ctx context.Context, kind string, session Session) string {
	id := uuid.New().String()
	session.Start(ctx)

	r.mu.Lock()
	r.sessions[id] = &entrada{id: id, kind: kind, session: session, lastUse: time.Now()}
	total := len(r.sessions)
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"session_id": id,
		"kind":       kind,
		"active":     total,
	}).Info("Monitor session started")
	return id
}

// Get returns a session and marks it as recently used
func (r *Registry) Get(id string) (Session, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, "", false
	}
	e.lastUse = time.Now()
	return e.session, e.kind, true
}

// Remove stops and forgets a session
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	e.session.Stop()
	r.logger.WithFields(logrus.Fields{
		"session_id": id,
		"kind":       e.kind,
	}).Info("Monitor session closed")
	return true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the reaper and every live session
func (r *Registry) Close() {
	r.cancel()

	r.mu.Lock()
	restantes := make([]*entrada, 0, len(r.sessions))
	for _, e := range r.sessions {
		restantes = append(restantes, e)
	}
	r.sessions = make(map[string]*entrada)
	r.mu.Unlock()

	for _, e := range restantes {
		e.session.Stop()
	}
}

func (r *Registry) reap(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.ttl)

			r.mu.Lock()
			var expiradas []*entrada
			for id, e := range r.sessions {
				if e.lastUse.Before(cutoff) {
					expiradas = append(expiradas, e)
					delete(r.sessions, id)
				}
			}
			r.mu.Unlock()

			for _, e := range expiradas {
				e.session.Stop()
				r.logger.WithFields(logrus.Fields{
					"session_id": e.id,
					"kind":       e.kind,
					"idle":       time.Since(e.lastUse),
				}).Warn("Monitor session reaped after inactivity")
			}
		}
	}
}
