package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/gianix81/payAnalyst/internal/payslip"
	"github.com/gianix81/payAnalyst/internal/profile"
	"github.com/gianix81/payAnalyst/internal/schedule"
)

// Cache holds the in-memory copy of one user's collections and profile and
// mirrors every write to a Port. Reads never fail: anything unreadable in the
// port degrades to an empty collection or an absent profile.
type Cache struct {
	port   Port
	owner  string
	prefix string
	logger *slog.Logger

	mu         sync.RWMutex
	profile    *profile.UserProfile
	payslips   []payslip.Payslip
	shifts     []schedule.Shift
	absences   []schedule.Absence
	leavePlans []schedule.LeavePlan
}

func NewCache(port Port, owner, prefix string, logger *slog.Logger) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{
		port:   port,
		owner:  owner,
		prefix: prefix,
		logger: logger.With("component", "cache", "owner", owner),
	}
}

func (c *Cache) Key(name string) string {
	return ComposeKey(c.owner, c.prefix, name)
}

// Load replaces the in-memory state with whatever the port holds.
func (c *Cache) Load(ctx context.Context) {
	var prof *profile.UserProfile
	if p, ok := readInto[profile.UserProfile](ctx, c, KeyProfile); ok {
		prof = &p
	}
	payslips, _ := readInto[[]payslip.Payslip](ctx, c, KeyPayslips)
	shifts, _ := readInto[[]schedule.Shift](ctx, c, KeyShifts)
	absences, _ := readInto[[]schedule.Absence](ctx, c, KeyAbsences)
	leavePlans, _ := readInto[[]schedule.LeavePlan](ctx, c, KeyLeavePlans)

	payslip.SortByPeriodDesc(payslips)
	schedule.SortLeavePlans(leavePlans)

	c.mu.Lock()
	c.profile = prof
	c.payslips = orEmpty(payslips)
	c.shifts = orEmpty(shifts)
	c.absences = orEmpty(absences)
	c.leavePlans = orEmpty(leavePlans)
	c.mu.Unlock()
}

// readInto decodes the named value into a fresh T. On any failure the zero
// value is returned, never a partially decoded one.
func readInto[T any](ctx context.Context, c *Cache, name string) (T, bool) {
	var zero T
	raw, err := c.port.Load(ctx, c.Key(name))
	if errors.Is(err, ErrNotFound) {
		return zero, false
	}
	if err != nil {
		c.logger.Warn("failed to read persisted value", "key", name, "error", err)
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("discarding corrupt persisted value", "key", name, "error", err)
		return zero, false
	}
	return v, true
}

func (c *Cache) write(ctx context.Context, name string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to serialise value", "key", name, "error", err)
		return
	}
	if err := c.port.Save(ctx, c.Key(name), raw); err != nil {
		c.logger.Error("failed to persist value", "key", name, "error", err)
	}
}

// Profile returns the stored profile; ok is false when none has been established.
func (c *Cache) Profile() (profile.UserProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return profile.UserProfile{}, false
	}
	return *c.profile, true
}

func (c *Cache) Payslips() []payslip.Payslip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]payslip.Payslip{}, c.payslips...)
}

func (c *Cache) Shifts() []schedule.Shift {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]schedule.Shift{}, c.shifts...)
}

func (c *Cache) Absences() []schedule.Absence {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]schedule.Absence{}, c.absences...)
}

func (c *Cache) LeavePlans() []schedule.LeavePlan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]schedule.LeavePlan{}, c.leavePlans...)
}

func (c *Cache) PutProfile(ctx context.Context, p profile.UserProfile) {
	c.mu.Lock()
	c.profile = &p
	c.mu.Unlock()
	c.write(ctx, KeyProfile, p)
}

func (c *Cache) PutPayslips(ctx context.Context, list []payslip.Payslip) {
	list = orEmpty(append([]payslip.Payslip(nil), list...))
	payslip.SortByPeriodDesc(list)
	c.mu.Lock()
	c.payslips = list
	c.mu.Unlock()
	c.write(ctx, KeyPayslips, list)
}

func (c *Cache) PutShifts(ctx context.Context, list []schedule.Shift) {
	list = orEmpty(append([]schedule.Shift(nil), list...))
	c.mu.Lock()
	c.shifts = list
	c.mu.Unlock()
	c.write(ctx, KeyShifts, list)
}

func (c *Cache) PutAbsences(ctx context.Context, list []schedule.Absence) {
	list = orEmpty(append([]schedule.Absence(nil), list...))
	c.mu.Lock()
	c.absences = list
	c.mu.Unlock()
	c.write(ctx, KeyAbsences, list)
}

func (c *Cache) PutLeavePlans(ctx context.Context, list []schedule.LeavePlan) {
	list = orEmpty(append([]schedule.LeavePlan(nil), list...))
	schedule.SortLeavePlans(list)
	c.mu.Lock()
	c.leavePlans = list
	c.mu.Unlock()
	c.write(ctx, KeyLeavePlans, list)
}

// Clear drops the in-memory state only. Persisted values survive for the next Load.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = nil
	c.payslips = []payslip.Payslip{}
	c.shifts = []schedule.Shift{}
	c.absences = []schedule.Absence{}
	c.leavePlans = []schedule.LeavePlan{}
}

// Reset clears memory and removes every persisted key for the owner.
func (c *Cache) Reset(ctx context.Context) error {
	c.Clear()
	var errs []error
	for _, name := range Keys {
		if err := c.port.Remove(ctx, c.Key(name)); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
