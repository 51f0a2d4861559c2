// Package bot turns chat commands into engine operations. It owns no
// state of its own: every command is a thin call into the same public
// operations a device report would trigger, and every reply is rendered
// from the returned snapshot or error.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"machine-access-backend/internal/engine"
	"machine-access-backend/internal/history"
	"machine-access-backend/internal/notification"
)

// Responder executes commands against the engine set.
type Responder struct {
	set  *engine.Set
	hist history.Store
	pool *notification.WorkerPool
}

// New creates a Responder. hist and pool may be nil in tests.
func New(set *engine.Set, hist history.Store, pool *notification.WorkerPool) *Responder {
	return &Responder{set: set, hist: hist, pool: pool}
}

// Handle parses and executes one command line and returns the reply text.
func (b *Responder) Handle(ctx context.Context, text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return b.helpText()
	}

	verb := strings.ToLower(fields[0])
	switch verb {
	case "help":
		return b.helpText()
	case "machines", "list":
		return "Machines: " + strings.Join(b.set.Names(), ", ")
	}

	if len(fields) < 2 {
		return fmt.Sprintf("Usage: %s <machine>", verb)
	}
	name := fields[1]
	m, ok := b.set.Get(name)
	if !ok {
		return fmt.Sprintf("Unknown machine %q. Machines: %s", name, strings.Join(b.set.Names(), ", "))
	}

	switch verb {
	case "lock", "lockout":
		return b.operate(m.Lock, fmt.Sprintf("%s is now locked out.", name))
	case "unlock":
		return b.operate(m.Unlock, fmt.Sprintf("%s is unlocked.", name))
	case "oops":
		return b.operate(m.Oops, fmt.Sprintf("%s is now oopsed.", name))
	case "clear", "unoops":
		return b.operate(m.ClearOops, fmt.Sprintf("Oops cleared on %s.", name))
	case "status":
		return statusText(m.Snapshot())
	case "history":
		return b.historyText(ctx, name)
	default:
		return b.helpText()
	}
}

// operate runs an engine operation, dispatches its events, and maps the
// redundant-command errors to replies telling the operator that nothing
// changed.
func (b *Responder) operate(op func() ([]engine.Event, error), okReply string) string {
	events, err := op()
	switch {
	case err == nil:
		if b.pool != nil {
			b.pool.Dispatch(events)
		}
		return okReply
	case errors.Is(err, engine.ErrAlreadyLockedOut):
		return "No change: machine is already locked out."
	case errors.Is(err, engine.ErrNotLockedOut):
		return "No change: machine is not locked out."
	case errors.Is(err, engine.ErrAlreadyOopsed):
		return "No change: machine is already oopsed."
	case errors.Is(err, engine.ErrNotOopsed):
		return "No change: machine is not oopsed."
	default:
		return "Command failed: " + err.Error()
	}
}

func statusText(snap engine.Snapshot) string {
	st := snap.State
	var parts []string
	if st.RelayDesiredState {
		parts = append(parts, "relay ON")
	} else {
		parts = append(parts, "relay off")
	}
	if st.IsLockedOut {
		parts = append(parts, "LOCKED OUT")
	}
	if st.IsOopsed {
		parts = append(parts, "OOPSED")
	}
	if st.RFIDValue != "" {
		if st.CurrentUserFob != "" {
			parts = append(parts, "badge present (known user)")
		} else {
			parts = append(parts, "badge present")
		}
	}
	if st.LastCheckin != nil {
		parts = append(parts, "last checkin "+st.LastCheckin.Format("2006-01-02 15:04:05 MST"))
	} else {
		parts = append(parts, "never checked in")
	}
	return fmt.Sprintf("%s: %s", snap.Name, strings.Join(parts, ", "))
}

func (b *Responder) historyText(ctx context.Context, name string) string {
	if b.hist == nil {
		return "Event history is not available."
	}
	rows, err := b.hist.RecentForMachine(ctx, name, 10)
	if err != nil {
		return "Could not fetch history: " + err.Error()
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No recorded events for %s.", name)
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		line := fmt.Sprintf("%s %s", r.OccurredAt.Format("2006-01-02 15:04"), r.Kind)
		if r.UserName != "" {
			line += " " + r.UserName
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf("Last events for %s:\n%s", name, strings.Join(lines, "\n"))
}

func (b *Responder) helpText() string {
	return "Commands: status <machine>, lock <machine>, unlock <machine>, " +
		"oops <machine>, clear <machine>, history <machine>, machines"
}
