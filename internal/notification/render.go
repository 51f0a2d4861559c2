package notification

import (
	"fmt"

	"machine-access-backend/internal/engine"
)

// Render formats one audit event as a human-readable announcement line.
// The engine emits structured events only; all text lives here.
func Render(ev engine.Event) string {
	who := ev.UserName
	if who == "" && ev.FobCode != "" {
		who = "unknown fob " + ev.FobCode
	}

	switch ev.Kind {
	case engine.EventRebooted:
		return fmt.Sprintf("%s: device rebooted", ev.Machine)
	case engine.EventOopsPressed:
		if who == "" {
			return fmt.Sprintf("%s: Oops pressed (no badge present)", ev.Machine)
		}
		return fmt.Sprintf("%s: Oops pressed by %s", ev.Machine, who)
	case engine.EventOopsCleared:
		return fmt.Sprintf("%s: Oops cleared", ev.Machine)
	case engine.EventLockedOut:
		return fmt.Sprintf("%s: locked out for maintenance", ev.Machine)
	case engine.EventUnlocked:
		return fmt.Sprintf("%s: maintenance lockout cleared", ev.Machine)
	case engine.EventBadgeLogout:
		return fmt.Sprintf("%s: %s logged out after %s", ev.Machine, who, ev.Duration)
	case engine.EventLoginAuthorized:
		return fmt.Sprintf("%s: %s logged in", ev.Machine, who)
	case engine.EventWarnOnlyOverride:
		return fmt.Sprintf("%s: %s is not authorized, but machine is warn-only; allowing", ev.Machine, who)
	case engine.EventLoginUnauthorized:
		return fmt.Sprintf("%s: denied login for %s (not authorized)", ev.Machine, who)
	case engine.EventLoginUnknownFob:
		return fmt.Sprintf("%s: denied login for unknown fob %s", ev.Machine, ev.FobCode)
	case engine.EventLoginWhileLockedOut:
		switch {
		case !ev.KnownUser:
			return fmt.Sprintf("%s: login attempt by unknown fob %s while locked out", ev.Machine, ev.FobCode)
		case ev.Authorized:
			return fmt.Sprintf("%s: %s is authorized but machine is locked out", ev.Machine, who)
		default:
			return fmt.Sprintf("%s: login attempt by %s (not authorized) while locked out", ev.Machine, who)
		}
	case engine.EventLoginWhileOopsed:
		switch {
		case !ev.KnownUser:
			return fmt.Sprintf("%s: login attempt by unknown fob %s while oopsed", ev.Machine, ev.FobCode)
		case ev.Authorized:
			return fmt.Sprintf("%s: %s is authorized but machine is oopsed", ev.Machine, who)
		default:
			return fmt.Sprintf("%s: login attempt by %s (not authorized) while oopsed", ev.Machine, who)
		}
	default:
		return fmt.Sprintf("%s: %s", ev.Machine, ev.Kind)
	}
}

// alertKinds are the events pushed to subscribed staff browsers in
// addition to the chat announcement.
func isAlert(kind engine.EventKind) bool {
	switch kind {
	case engine.EventOopsPressed, engine.EventLockedOut, engine.EventRebooted:
		return true
	}
	return false
}
