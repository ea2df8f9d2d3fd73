package view

import (
	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/payslip"
)

// Controller owns the current view, the selected payslip, the comparison
// staging and the transient alert. It is not safe for concurrent use; the
// owning workspace serialises access.
type Controller struct {
	mode        Mode
	current     View
	hasProfile  bool
	isAdmin     bool
	selected    *payslip.Payslip
	staged      []payslip.Payslip
	alert       string
	syncWarning string
}

// State is the render state derived from the controller.
type State struct {
	View        View              `json:"view"`
	HasProfile  bool              `json:"hasProfile"`
	IsAdmin     bool              `json:"isAdmin"`
	Selected    *payslip.Payslip  `json:"selected"`
	Staged      []payslip.Payslip `json:"staged"`
	Alert       string            `json:"alert,omitempty"`
	SyncWarning string            `json:"syncWarning,omitempty"`
}

func NewController(mode Mode) *Controller {
	return &Controller{mode: mode, current: mode.entry()}
}

func (c *Controller) Current() View {
	return c.current
}

// ProfileEstablished records that a profile now exists. Leaving onboarding or
// login lands on the dashboard; any other view is kept.
func (c *Controller) ProfileEstablished(admin bool) {
	c.hasProfile = true
	c.isAdmin = admin
	if !c.current.RequiresProfile() {
		c.current = Dashboard
	}
	if c.current == AdminPanel && !admin {
		c.current = Dashboard
	}
}

// ExtractionCompleted selects a freshly extracted payslip. A record that was not
// archived raises the mismatch alert.
func (c *Controller) ExtractionCompleted(p payslip.Payslip, archived bool) {
	c.selected = &p
	if archived {
		c.alert = ""
	} else {
		c.alert = payslip.MismatchAlert
	}
	c.current = Dashboard
}

func (c *Controller) SelectPayslip(p payslip.Payslip) {
	c.selected = &p
	c.alert = ""
	c.current = Dashboard
}

// Selected returns the selected payslip, if any.
func (c *Controller) Selected() (payslip.Payslip, bool) {
	if c.selected == nil {
		return payslip.Payslip{}, false
	}
	return *c.selected, true
}

// StageForComparison adds p to the pair. Only the last two staged payslips are
// kept; staging one already present moves it to the back.
func (c *Controller) StageForComparison(p payslip.Payslip) {
	kept := make([]payslip.Payslip, 0, 2)
	for _, s := range c.staged {
		if s.ID != p.ID {
			kept = append(kept, s)
		}
	}
	kept = append(kept, p)
	if len(kept) > 2 {
		kept = kept[len(kept)-2:]
	}
	c.staged = kept
}

func (c *Controller) Unstage(id string) {
	c.staged = payslip.Without(c.staged, id)
}

// Compare moves to the comparison view once exactly two payslips are staged.
func (c *Controller) Compare() error {
	if len(c.staged) != 2 {
		return apperrors.ErrComparisonNotReady
	}
	c.current = Compare
	return nil
}

func (c *Controller) ComparePair(a, b payslip.Payslip) error {
	if a.ID == b.ID {
		return apperrors.ErrComparisonNotReady
	}
	c.staged = []payslip.Payslip{a, b}
	c.current = Compare
	return nil
}

// StagedPair returns the comparison pair; ok is false unless two are staged.
func (c *Controller) StagedPair() (a, b payslip.Payslip, ok bool) {
	if len(c.staged) != 2 {
		return payslip.Payslip{}, payslip.Payslip{}, false
	}
	return c.staged[0], c.staged[1], true
}

// PayslipDeleted repairs selection and staging after id was removed from the
// archive. remaining is the archive in its standing order.
func (c *Controller) PayslipDeleted(id string, remaining []payslip.Payslip) {
	if c.selected != nil && c.selected.ID == id {
		if len(remaining) > 0 {
			first := remaining[0]
			c.selected = &first
		} else {
			c.selected = nil
		}
	}
	c.Unstage(id)
}

// ArchiveReplaced refreshes the selection and staging from a new archive state.
// Entries that vanished are repaired as if deleted; a transient selection that
// was never archived is left alone.
func (c *Controller) ArchiveReplaced(previous, current []payslip.Payslip) {
	for _, old := range previous {
		if _, still := payslip.Find(current, old.ID); !still {
			c.PayslipDeleted(old.ID, current)
		}
	}
	if c.selected != nil {
		if fresh, ok := payslip.Find(current, c.selected.ID); ok {
			c.selected = &fresh
		}
	}
}

// PayslipRenamed swaps a provisional id for the one the backend assigned.
func (c *Controller) PayslipRenamed(oldID string, p payslip.Payslip) {
	if c.selected != nil && c.selected.ID == oldID {
		c.selected = &p
	}
	for i := range c.staged {
		if c.staged[i].ID == oldID {
			c.staged[i] = p
		}
	}
}

// Logout clears selection, alert and staging and returns to the entry view.
func (c *Controller) Logout() {
	c.selected = nil
	c.staged = nil
	c.alert = ""
	c.syncWarning = ""
	c.hasProfile = false
	c.isAdmin = false
	c.current = c.mode.entry()
}

// Navigate switches to v. Views that need a profile are unavailable without
// one and the admin panel needs the admin role.
func (c *Controller) Navigate(v View) error {
	if v.RequiresProfile() && !c.hasProfile {
		return apperrors.ErrProfileRequired
	}
	if !v.RequiresProfile() && c.hasProfile {
		return apperrors.ErrViewUnavailable
	}
	if v == AdminPanel && !c.isAdmin {
		return apperrors.ErrViewUnavailable
	}
	c.current = v
	return nil
}

func (c *Controller) SetSyncWarning(msg string) {
	c.syncWarning = msg
}

func (c *Controller) ClearSyncWarning() {
	c.syncWarning = ""
}

func (c *Controller) ClearAlert() {
	c.alert = ""
}

func (c *Controller) Snapshot() State {
	st := State{
		View:        c.current,
		HasProfile:  c.hasProfile,
		IsAdmin:     c.isAdmin,
		Staged:      append([]payslip.Payslip{}, c.staged...),
		Alert:       c.alert,
		SyncWarning: c.syncWarning,
	}
	if c.selected != nil {
		sel := *c.selected
		st.Selected = &sel
	}
	return st
}
