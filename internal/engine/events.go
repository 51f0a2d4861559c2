package engine

import "time"

// EventKind tags an audit event variant.
type EventKind string

const (
	EventRebooted            EventKind = "rebooted"
	EventOopsPressed         EventKind = "oops_pressed"
	EventOopsCleared         EventKind = "oops_cleared"
	EventLockedOut           EventKind = "locked_out"
	EventUnlocked            EventKind = "unlocked"
	EventBadgeLogout         EventKind = "badge_logout"
	EventLoginAuthorized     EventKind = "login_authorized"
	EventWarnOnlyOverride    EventKind = "warn_only_override"
	EventLoginUnauthorized   EventKind = "login_unauthorized"
	EventLoginUnknownFob     EventKind = "login_unknown_fob"
	EventLoginWhileLockedOut EventKind = "login_while_locked_out"
	EventLoginWhileOopsed    EventKind = "login_while_oopsed"
)

// Event is one audit/notification record emitted by a state transition.
// It carries enough context for a sink to render a human-readable line;
// the engine itself never formats announcement text.
type Event struct {
	Kind    EventKind `json:"kind"`
	Machine string    `json:"machine"`
	Time    time.Time `json:"time"`

	// Badge context, when a badge is involved. FobCode is normalized.
	FobCode   string `json:"fob_code,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	AccountID string `json:"account_id,omitempty"`

	// KnownUser and Authorized distinguish the attempt variants (unknown
	// fob vs. known-but-denied vs. authorized-but-blocked).
	KnownUser  bool `json:"known_user"`
	Authorized bool `json:"authorized"`

	// Duration is the session length, set on badge logout.
	Duration time.Duration `json:"duration,omitempty"`
}
