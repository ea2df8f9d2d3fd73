package workspace

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/core/events"
	"github.com/gianix81/payAnalyst/internal/payslip"
)

type session struct {
	ws   *Workspace
	once sync.Once
	err  error
}

// Manager keeps one workspace per signed-in user, opens them on demand and
// closes the ones left idle.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*session
	opts      Options
	idleTTL   time.Duration
	maxActive int
	cron      *cron.Cron
	cancels   []func()
	logger    *slog.Logger
}

func NewManager(opts Options, idleTTL time.Duration, maxActive int) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:  map[string]*session{},
		opts:      opts,
		idleTTL:   idleTTL,
		maxActive: maxActive,
		logger:    logger.With("component", "workspace_manager"),
	}
}

// Open returns the workspace of id, starting it on first use.
func (m *Manager) Open(ctx context.Context, id apperrors.Identity) (*Workspace, error) {
	if id.UID == "" {
		return nil, apperrors.ErrWorkspaceNotStarted
	}
	m.mu.Lock()
	s, ok := m.sessions[id.UID]
	if !ok {
		s = &session{ws: New(id, m.opts)}
		m.sessions[id.UID] = s
		m.evictLocked(id.UID)
	}
	m.mu.Unlock()

	s.once.Do(func() {
		s.err = s.ws.Start(context.WithoutCancel(ctx))
		if s.err == nil {
			m.logger.Info("workspace opened", "user_id", id.UID, "provider", id.Provider)
		}
	})
	if s.err != nil {
		m.mu.Lock()
		if m.sessions[id.UID] == s {
			delete(m.sessions, id.UID)
		}
		m.mu.Unlock()
		return nil, s.err
	}
	return s.ws, nil
}

// evictLocked closes the least recently used workspaces beyond maxActive.
func (m *Manager) evictLocked(keep string) {
	if m.maxActive <= 0 || len(m.sessions) <= m.maxActive {
		return
	}
	type idle struct {
		uid  string
		last time.Time
	}
	var candidates []idle
	for uid, s := range m.sessions {
		if uid != keep {
			candidates = append(candidates, idle{uid, s.ws.IdleSince()})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].last.Before(candidates[j].last) })
	for _, c := range candidates[:len(m.sessions)-m.maxActive] {
		m.sessions[c.uid].ws.Close()
		delete(m.sessions, c.uid)
		m.logger.Info("workspace evicted", "user_id", c.uid)
	}
}

// Get returns a workspace that is already open.
func (m *Manager) Get(uid string) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[uid]
	if !ok {
		return nil, apperrors.ErrWorkspaceNotStarted
	}
	return s.ws, nil
}

// SignOut logs the workspace out and forgets it.
func (m *Manager) SignOut(uid string) {
	m.mu.Lock()
	s, ok := m.sessions[uid]
	delete(m.sessions, uid)
	m.mu.Unlock()
	if ok {
		s.ws.Logout()
		m.logger.Info("workspace signed out", "user_id", uid)
	}
}

// Reset wipes the persisted workspace data of uid and forgets the session.
func (m *Manager) Reset(ctx context.Context, id apperrors.Identity) error {
	ws, err := m.Open(ctx, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id.UID)
	m.mu.Unlock()
	return ws.Reset(ctx)
}

// ReapIdle closes workspaces unused since before now minus the idle TTL.
func (m *Manager) ReapIdle(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.idleTTL)
	m.mu.Lock()
	var stale []*Workspace
	for uid, s := range m.sessions {
		if s.ws.IdleSince().Before(cutoff) {
			stale = append(stale, s.ws)
			delete(m.sessions, uid)
		}
	}
	m.mu.Unlock()

	for _, ws := range stale {
		ws.Close()
	}
	if len(stale) > 0 {
		m.logger.Info("idle workspaces closed", "count", len(stale))
	}
	return len(stale)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartReaper schedules ReapIdle with a six-field cron spec.
func (m *Manager) StartReaper(spec string) error {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() { m.ReapIdle(time.Now()) }); err != nil {
		return err
	}
	c.Start()
	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()
	m.logger.Info("workspace reaper started", "spec", spec, "idle_ttl", m.idleTTL)
	return nil
}

// Listen reacts to identity events: sign-in opens the workspace ahead of the
// first request, sign-out tears it down.
func (m *Manager) Listen(bus *events.EventBus) {
	in := bus.Listen(events.EventTypeSignedIn, func(ctx context.Context, e events.Event) error {
		ev, ok := e.(*events.IdentityEvent)
		if !ok {
			return nil
		}
		_, err := m.Open(ctx, apperrors.Identity{
			UID:       ev.UserID,
			Email:     ev.Email,
			Role:      ev.Role,
			Provider:  ev.Provider,
			FirstName: ev.FirstName,
			LastName:  ev.LastName,
		})
		return err
	})
	out := bus.Listen(events.EventTypeSignedOut, func(ctx context.Context, e events.Event) error {
		if ev, ok := e.(*events.IdentityEvent); ok {
			m.SignOut(ev.UserID)
		}
		return nil
	})
	m.mu.Lock()
	m.cancels = append(m.cancels, in, out)
	m.mu.Unlock()
}

// Shutdown stops the reaper and the listeners and closes every workspace.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	c := m.cron
	cancels := m.cancels
	sessions := m.sessions
	m.cron = nil
	m.cancels = nil
	m.sessions = map[string]*session{}
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	for _, cancel := range cancels {
		cancel()
	}
	for _, s := range sessions {
		s.ws.Close()
	}
	m.logger.Info("workspace manager stopped", "closed", len(sessions))
}

// Archive returns the archived payslips of id's workspace, opening it if needed.
func (m *Manager) Archive(ctx context.Context, id apperrors.Identity) ([]payslip.Payslip, error) {
	ws, err := m.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return ws.Payslips(), nil
}
