package view

type View string

const (
	Onboarding   View = "onboarding"
	Login        View = "login"
	Dashboard    View = "dashboard"
	Upload       View = "upload"
	Archive      View = "archive"
	Compare      View = "compare"
	Assistant    View = "assistant"
	ShiftPlanner View = "shift_planner"
	LeavePlanner View = "leave_planner"
	Settings     View = "settings"
	AdminPanel   View = "admin_panel"
)

var all = []View{Onboarding, Login, Dashboard, Upload, Archive, Compare, Assistant, ShiftPlanner, LeavePlanner, Settings, AdminPanel}

// Parse resolves a view name.
func Parse(name string) (View, bool) {
	for _, v := range all {
		if string(v) == name {
			return v, true
		}
	}
	return "", false
}

// RequiresProfile reports whether v can only be shown once a profile exists.
func (v View) RequiresProfile() bool {
	return v != Onboarding && v != Login
}

// Mode selects the entry view shown while no profile is established.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

func (m Mode) entry() View {
	if m == ModeRemote {
		return Login
	}
	return Onboarding
}
