package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"machine-access-backend/internal/directory"
	"machine-access-backend/internal/registry"
)

var (
	// ErrUnknownMachine is returned when a machine's policy has
	// disappeared from the registry between construction and use.
	ErrUnknownMachine = errors.New("machine is not configured")

	// ErrInvalidReport is returned for reports that no sane firmware
	// would produce; these must be visible, not silently dropped.
	ErrInvalidReport = errors.New("invalid device report")

	// Redundant operator commands. These are not failures, but callers
	// need to tell the operator that nothing changed.
	ErrAlreadyLockedOut = errors.New("machine is already locked out")
	ErrNotLockedOut     = errors.New("machine is not locked out")
	ErrAlreadyOopsed    = errors.New("machine is already oopsed")
	ErrNotOopsed        = errors.New("machine is not oopsed")
)

// Store persists machine state between process restarts.
type Store interface {
	Save(name string, st State) error
	Load(name string) (State, bool, error)
}

// Report is one device check-in, already parsed and type-checked by the
// HTTP layer. Optional telemetry is nil when the device didn't send it.
type Report struct {
	Oops                 bool
	RFIDValue            string
	Uptime               float64
	Amps                 *float64
	WifiSignalDB         *float64
	WifiSignalPercent    *float64
	InternalTemperatureC *float64
}

// Response is the payload returned to the device.
type Response struct {
	Relay               bool       `json:"relay"`
	Display             string     `json:"display"`
	OopsLED             bool       `json:"oops_led"`
	StatusLEDRGB        [3]float64 `json:"status_led_rgb"`
	StatusLEDBrightness float64    `json:"status_led_brightness"`
}

// Snapshot is a read-only copy of a machine's settled state, plus the
// policy it was resolved against.
type Snapshot struct {
	Name   string          `json:"name"`
	Policy registry.Policy `json:"policy"`
	State  State           `json:"state"`
}

// Machine is the state engine for a single machine. All mutation and all
// reads go through the per-instance mutex, so observers never see a state
// that is mid-transition.
type Machine struct {
	name  string
	reg   *registry.Registry
	dir   *directory.Directory
	store Store
	now   func() time.Time

	mu    sync.Mutex
	state State
}

// NewMachine builds the engine for one configured machine, restoring its
// last durable state. A missing state file is not an error; the machine
// starts at defaults.
func NewMachine(name string, reg *registry.Registry, dir *directory.Directory, store Store) (*Machine, error) {
	if _, ok := reg.Get(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMachine, name)
	}
	st, found, err := store.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", name, err)
	}
	if !found {
		st = defaultState()
	}
	return &Machine{
		name:  name,
		reg:   reg,
		dir:   dir,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		state: st,
	}, nil
}

// Name returns the machine name.
func (m *Machine) Name() string { return m.name }

// ApplyReport is the sole report-driven mutator. It merges telemetry,
// detects reboots, applies oops and badge edges, recomputes the output
// baseline, persists, and returns the device response plus any audit
// events. The live state is only replaced after a successful persist.
func (m *Machine) ApplyReport(r Report) (Response, []Event, error) {
	if r.Uptime < 0 {
		return Response{}, nil, fmt.Errorf("%w: negative uptime %f", ErrInvalidReport, r.Uptime)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pol, ok := m.reg.Get(m.name)
	if !ok {
		return Response{}, nil, fmt.Errorf("%w: %s", ErrUnknownMachine, m.name)
	}

	now := m.now()
	prev := m.state
	st := m.state
	var events []Event

	// Step 1: telemetry merge. Every report advances the checkin clock.
	st.LastCheckin = &now
	if r.Amps != nil {
		st.CurrentAmps = *r.Amps
	}
	if r.WifiSignalDB != nil {
		v := *r.WifiSignalDB
		st.WifiSignalDB = &v
	}
	if r.WifiSignalPercent != nil {
		v := *r.WifiSignalPercent
		st.WifiSignalPercent = &v
	}
	if r.InternalTemperatureC != nil {
		v := *r.InternalTemperatureC
		st.InternalTemperatureC = &v
	}

	// Step 2: reboot detection. A decreased uptime means the device
	// restarted; the session is dropped but a badge physically still in
	// the reader stays tracked in RFIDValue.
	if r.Uptime < st.Uptime {
		st.CurrentUserFob = ""
		events = append(events, Event{
			Kind: EventRebooted, Machine: m.name, Time: now,
		})
	}
	st.Uptime = r.Uptime

	// Step 3: oops edge. Sticky; a later report with oops=false does not
	// clear it, only ClearOops does.
	if r.Oops && !st.IsOopsed {
		st.IsOopsed = true
		events = append(events, m.badgeContextEvent(EventOopsPressed, pol, st, now))
	}

	// Step 4: badge edge.
	fob := ""
	if r.RFIDValue != "" {
		fob = directory.NormalizeFob(r.RFIDValue)
	}
	var login loginStatus
	loginEdge := fob != st.RFIDValue && fob != ""
	switch {
	case fob == "" && st.RFIDValue != "":
		// Logout.
		ev := Event{Kind: EventBadgeLogout, Machine: m.name, Time: now, FobCode: st.RFIDValue}
		if u := m.dir.Lookup(st.RFIDValue); u != nil {
			ev.KnownUser = true
			ev.UserName = u.DisplayName()
			ev.AccountID = u.AccountID
		}
		if st.RFIDPresentSince != nil {
			ev.Duration = now.Sub(*st.RFIDPresentSince).Truncate(time.Second)
		}
		events = append(events, ev)
		st.RFIDValue = ""
		st.RFIDPresentSince = nil
		st.CurrentUserFob = ""
	case loginEdge:
		// Login.
		st.RFIDValue = fob
		st.RFIDPresentSince = &now
		_, dec := Resolve(pol, m.dir, fob)
		if dec.User != nil {
			st.CurrentUserFob = fob
		} else {
			st.CurrentUserFob = ""
		}
		events = append(events, m.loginEvents(pol, st, dec, fob, now)...)
		login = loginStatus{present: true, user: dec.User, authorized: dec.Authorized}
	}
	if !loginEdge {
		login = steadyLogin(pol, m.dir, &st)
	}

	// Step 5: steady-state recompute. Runs on every report so that
	// policy edits (always_enabled flips) and flag changes take effect
	// without a badge event.
	st.applyOutputs(computeOutputs(pol, st.IsLockedOut, st.IsOopsed, login))

	if meaningfulChange(prev, st) {
		st.LastUpdate = &now
	}

	// Step 6: persist before committing to the live instance, so a
	// failed write leaves the prior state both in memory and on disk.
	if err := m.store.Save(m.name, st); err != nil {
		return Response{}, nil, fmt.Errorf("persist state for %s: %w", m.name, err)
	}
	m.state = st

	return responseFrom(st), events, nil
}

// steadyLogin derives the badge context from tracked state rather than a
// fresh edge. The weak user reference is re-resolved against the live
// directory; if the record is gone, the reference is cleared.
func steadyLogin(pol registry.Policy, dir *directory.Directory, st *State) loginStatus {
	if st.RFIDValue == "" || st.CurrentUserFob == "" {
		return loginStatus{}
	}
	user := dir.Lookup(st.CurrentUserFob)
	if user == nil {
		st.CurrentUserFob = ""
		return loginStatus{}
	}
	return loginStatus{
		present:    true,
		user:       user,
		authorized: user.HasAnyAuthorization(pol.AuthorizationsOr),
	}
}

// loginEvents builds the audit events for a login edge.
func (m *Machine) loginEvents(pol registry.Policy, st State, dec Decision, fob string, now time.Time) []Event {
	ev := Event{
		Kind: EventLoginAuthorized, Machine: m.name, Time: now,
		FobCode: fob, KnownUser: dec.User != nil, Authorized: dec.Authorized,
	}
	if dec.User != nil {
		ev.UserName = dec.User.DisplayName()
		ev.AccountID = dec.User.AccountID
	}
	switch {
	case st.IsLockedOut:
		ev.Kind = EventLoginWhileLockedOut
		return []Event{ev}
	case st.IsOopsed:
		ev.Kind = EventLoginWhileOopsed
		return []Event{ev}
	case dec.User != nil && !dec.Authorized && pol.UnauthorizedWarnOnly:
		warn := ev
		warn.Kind = EventWarnOnlyOverride
		return []Event{warn, ev}
	case dec.Authorized:
		return []Event{ev}
	case dec.User != nil:
		ev.Kind = EventLoginUnauthorized
		return []Event{ev}
	default:
		ev.Kind = EventLoginUnknownFob
		return []Event{ev}
	}
}

// badgeContextEvent builds an event carrying the resolved user for the
// badge currently in the reader, or no badge context when the reader is
// empty.
func (m *Machine) badgeContextEvent(kind EventKind, pol registry.Policy, st State, now time.Time) Event {
	ev := Event{Kind: kind, Machine: m.name, Time: now}
	if st.RFIDValue == "" {
		return ev
	}
	ev.FobCode = st.RFIDValue
	if u := m.dir.Lookup(st.RFIDValue); u != nil {
		ev.KnownUser = true
		ev.UserName = u.DisplayName()
		ev.AccountID = u.AccountID
		ev.Authorized = u.HasAnyAuthorization(pol.AuthorizationsOr)
	}
	return ev
}

// applyOperation runs an operator command: mutate a flag on a copy,
// recompute the baseline, persist, commit, and emit the given event.
func (m *Machine) applyOperation(kind EventKind, mutate func(*State) error) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pol, ok := m.reg.Get(m.name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMachine, m.name)
	}

	now := m.now()
	st := m.state
	if err := mutate(&st); err != nil {
		return nil, err
	}
	st.applyOutputs(computeOutputs(pol, st.IsLockedOut, st.IsOopsed, steadyLogin(pol, m.dir, &st)))
	st.LastUpdate = &now

	if err := m.store.Save(m.name, st); err != nil {
		return nil, fmt.Errorf("persist state for %s: %w", m.name, err)
	}
	m.state = st

	return []Event{m.badgeContextEvent(kind, pol, st, now)}, nil
}

// Lock puts the machine into maintenance lockout.
func (m *Machine) Lock() ([]Event, error) {
	return m.applyOperation(EventLockedOut, func(st *State) error {
		if st.IsLockedOut {
			return ErrAlreadyLockedOut
		}
		st.IsLockedOut = true
		return nil
	})
}

// Unlock clears the maintenance lockout and falls through to the normal
// baseline recomputation.
func (m *Machine) Unlock() ([]Event, error) {
	return m.applyOperation(EventUnlocked, func(st *State) error {
		if !st.IsLockedOut {
			return ErrNotLockedOut
		}
		st.IsLockedOut = false
		return nil
	})
}

// Oops trips the oops stop without a device report (e.g. from chat).
func (m *Machine) Oops() ([]Event, error) {
	return m.applyOperation(EventOopsPressed, func(st *State) error {
		if st.IsOopsed {
			return ErrAlreadyOopsed
		}
		st.IsOopsed = true
		return nil
	})
}

// ClearOops clears the oops stop and falls through to the normal
// baseline recomputation.
func (m *Machine) ClearOops() ([]Event, error) {
	return m.applyOperation(EventOopsCleared, func(st *State) error {
		if !st.IsOopsed {
			return ErrNotOopsed
		}
		st.IsOopsed = false
		return nil
	})
}

// Snapshot returns a consistent copy of the machine's state and policy.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	pol, _ := m.reg.Get(m.name)
	return Snapshot{Name: m.name, Policy: pol, State: m.state}
}

func responseFrom(st State) Response {
	return Response{
		Relay:               st.RelayDesiredState,
		Display:             st.DisplayText,
		OopsLED:             st.OopsLED,
		StatusLEDRGB:        st.StatusLEDRGB,
		StatusLEDBrightness: st.StatusLEDBrightness,
	}
}
