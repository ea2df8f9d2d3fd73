package workspace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/analysis"
	"github.com/gianix81/payAnalyst/internal/assistant"
	"github.com/gianix81/payAnalyst/internal/core/events"
	"github.com/gianix81/payAnalyst/internal/profile"
	"github.com/gianix81/payAnalyst/internal/remote"
	"github.com/gianix81/payAnalyst/internal/store"
	"github.com/gianix81/payAnalyst/internal/view"
)

// SyncWarning is shown when a change was applied locally but the backend refused it.
const SyncWarning = "Alcune modifiche non sono state sincronizzate con il server. I dati mostrati potrebbero non essere aggiornati."

// Options is what every workspace of a deployment shares.
type Options struct {
	Mode         view.Mode
	Port         store.Port
	KeyPrefix    string
	Remote       remote.Adapter
	Analysis     analysis.ServiceAPI
	Streamer     assistant.Streamer
	TaxTables    string
	Bus          *events.EventBus
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Workspace is one signed-in user's state: the cached collections, the view
// controller and the assistant conversation. Every mutation enters through mu;
// remote writes run after the local change is applied and the lock released.
type Workspace struct {
	mu       sync.Mutex
	identity apperrors.Identity
	cache    *store.Cache
	remote   remote.Adapter
	ai       analysis.ServiceAPI
	views    *view.Controller
	chat     *assistant.Conversation
	bus      *events.EventBus
	timeout  time.Duration
	logger   *slog.Logger

	subs     []remote.Subscription
	epoch    uint64
	pending  map[string]*pendingCreate
	lastUsed time.Time
}

func New(identity apperrors.Identity, opts Options) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "workspace", "user_id", identity.UID)
	mode := opts.Mode
	if mode == "" {
		mode = view.ModeLocal
	}
	return &Workspace{
		identity: identity,
		cache:    store.NewCache(opts.Port, identity.UID, opts.KeyPrefix, logger),
		remote:   opts.Remote,
		ai:       opts.Analysis,
		views:    view.NewController(mode),
		chat:     assistant.NewConversation(opts.Streamer, opts.TaxTables, logger),
		bus:      opts.Bus,
		timeout:  opts.WriteTimeout,
		logger:   logger,
		pending:  map[string]*pendingCreate{},
		lastUsed: time.Now(),
	}
}

func (w *Workspace) UserID() string {
	return w.identity.UID
}

// Start loads the cached state, seeds a profile from the identity when none
// exists yet and, with a remote backend, subscribes to every collection.
func (w *Workspace) Start(ctx context.Context) error {
	w.cache.Load(ctx)

	var remoteProfile *profile.UserProfile
	if w.remote != nil {
		p, ok, err := w.remote.GetProfile(ctx, w.identity.UID)
		if err != nil {
			w.logger.Warn("failed to read remote profile, using cached one", "error", err)
		} else if ok {
			remoteProfile = &p
		}
	}

	w.mu.Lock()
	seeded := w.establishProfileLocked(ctx, remoteProfile)
	epoch := w.epoch
	w.mu.Unlock()

	if seeded != nil && w.remote != nil {
		w.push(ctx, "profile", w.identity.UID, func(ctx context.Context) error {
			return w.remote.SaveProfile(ctx, w.identity.UID, *seeded)
		})
	}

	if w.remote == nil {
		return nil
	}
	if err := w.subscribe(ctx, epoch); err != nil {
		w.logger.Error("remote subscriptions unavailable, serving cached data", "error", err)
		w.mu.Lock()
		w.views.SetSyncWarning(SyncWarning)
		w.mu.Unlock()
	}
	return nil
}

// establishProfileLocked settles the profile at start. It returns the profile
// when one was seeded from identity claims and still has to be written remotely.
func (w *Workspace) establishProfileLocked(ctx context.Context, remoteProfile *profile.UserProfile) *profile.UserProfile {
	if remoteProfile != nil {
		p := w.withIdentity(*remoteProfile)
		w.cache.PutProfile(ctx, p)
		w.views.ProfileEstablished(p.IsAdmin())
		return nil
	}
	if p, ok := w.cache.Profile(); ok {
		w.views.ProfileEstablished(w.withIdentity(p).IsAdmin())
		return nil
	}
	if w.identity.FirstName == "" || w.identity.LastName == "" {
		return nil
	}
	p := w.withIdentity(profile.UserProfile{
		FirstName: w.identity.FirstName,
		LastName:  w.identity.LastName,
		Email:     w.identity.Email,
	})
	w.cache.PutProfile(ctx, p)
	w.views.ProfileEstablished(p.IsAdmin())
	w.logger.Info("profile seeded from identity", "provider", w.identity.Provider)
	return &p
}

// withIdentity stamps the fields owned by the identity provider onto p.
func (w *Workspace) withIdentity(p profile.UserProfile) profile.UserProfile {
	p.UID = w.identity.UID
	if w.identity.IsAdmin() {
		p.Role = profile.RoleAdmin
	} else {
		p.Role = profile.RoleUser
	}
	if p.Email == "" {
		p.Email = w.identity.Email
	}
	return p
}

func (w *Workspace) subscribe(ctx context.Context, epoch uint64) error {
	handlers := map[remote.Collection]remote.SnapshotFunc{
		remote.Payslips:   w.onPayslips(epoch),
		remote.Shifts:     w.onShifts(epoch),
		remote.Absences:   w.onAbsences(epoch),
		remote.LeavePlans: w.onLeavePlans(epoch),
	}
	subs := make([]remote.Subscription, 0, len(handlers))
	for _, c := range remote.Collections {
		sub, err := w.remote.Subscribe(ctx, w.identity.UID, c, handlers[c])
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			return apperrors.NewExternalError("failed to subscribe to remote collections", apperrors.ErrCodeRemoteUnavailable, err)
		}
		subs = append(subs, sub)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		for _, s := range subs {
			s.Unsubscribe()
		}
		return nil
	}
	w.subs = subs
	w.logger.Info("remote subscriptions started", "collections", len(subs))
	return nil
}

// Close tears down the subscriptions and keeps the cached state.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teardownLocked()
	w.chat.Clear()
}

func (w *Workspace) teardownLocked() {
	w.epoch++
	for _, s := range w.subs {
		s.Unsubscribe()
	}
	w.subs = nil
	w.pending = map[string]*pendingCreate{}
}

// Logout tears down the subscriptions and forgets everything held in memory.
// Persisted data is kept.
func (w *Workspace) Logout() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teardownLocked()
	w.cache.Clear()
	w.views.Logout()
	w.chat.Clear()
	w.logger.Info("workspace logged out")
}

// Reset is Logout plus removal of every locally persisted key.
func (w *Workspace) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teardownLocked()
	w.views.Logout()
	w.chat.Clear()
	if err := w.cache.Reset(ctx); err != nil {
		w.logger.Error("failed to remove persisted workspace data", "error", err)
		return apperrors.NewInternalError("failed to reset workspace", err)
	}
	w.logger.Info("workspace reset")
	return nil
}

func (w *Workspace) touchLocked() {
	w.lastUsed = time.Now()
}

// IdleSince reports when the workspace was last used.
func (w *Workspace) IdleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// push runs a remote write for an already applied local change. Failures are
// logged, published and surfaced as the sync warning; the local change stays.
func (w *Workspace) push(ctx context.Context, collection, docID string, write func(ctx context.Context) error) bool {
	if w.remote == nil {
		return true
	}
	wctx, cancel := apperrors.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	err := write(wctx)
	if err == nil {
		return true
	}

	w.logger.Error("remote write failed",
		"collection", collection,
		"document_id", docID,
		"error", err,
	)
	if w.bus != nil {
		_ = w.bus.Publish(ctx, events.NewRemoteWriteFailedEvent(w.identity.UID, collection, docID, err))
	}
	w.mu.Lock()
	w.views.SetSyncWarning(SyncWarning)
	w.mu.Unlock()
	return false
}

// Snapshot is the render state of the workspace.
type Snapshot struct {
	view.State
	Profile     *profile.UserProfile `json:"profile"`
	ArchiveSize int                  `json:"archiveSize"`
	Streaming   bool                 `json:"assistantStreaming"`
}

func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() Snapshot {
	s := Snapshot{
		State:       w.views.Snapshot(),
		ArchiveSize: len(w.cache.Payslips()),
		Streaming:   w.chat.Streaming(),
	}
	if p, ok := w.cache.Profile(); ok {
		s.Profile = &p
	}
	return s
}

func (w *Workspace) Profile() (profile.UserProfile, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	return w.cache.Profile()
}

// SaveProfile creates the profile (onboarding) or merges update into it (settings).
func (w *Workspace) SaveProfile(ctx context.Context, update profile.UserProfile) (profile.UserProfile, error) {
	w.mu.Lock()
	w.touchLocked()
	next := update
	if current, ok := w.cache.Profile(); ok {
		next = current.Merge(update)
	}
	next = w.withIdentity(next)
	if err := next.Validate(); err != nil {
		w.mu.Unlock()
		return profile.UserProfile{}, err
	}
	w.cache.PutProfile(ctx, next)
	w.views.ProfileEstablished(next.IsAdmin())
	w.mu.Unlock()

	w.logger.Info("profile saved")
	w.push(ctx, "profile", w.identity.UID, func(ctx context.Context) error {
		return w.remote.SaveProfile(ctx, w.identity.UID, next)
	})
	return next, nil
}

func (w *Workspace) Navigate(v view.View) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	if err := w.views.Navigate(v); err != nil {
		return Snapshot{}, err
	}
	return w.snapshotLocked(), nil
}

func (w *Workspace) requireProfileLocked() (profile.UserProfile, error) {
	p, ok := w.cache.Profile()
	if !ok {
		return profile.UserProfile{}, apperrors.ErrProfileRequired
	}
	return p, nil
}

func newID() string {
	return uuid.NewString()
}
