package engine

import "machine-access-backend/internal/registry"

// Display texts fit the device's two-line character LCD.
const (
	DefaultDisplayText      = "Please Insert\nRFID Card"
	AlwaysOnDisplayText     = "Always On"
	OopsDisplayText         = "Oops!! Please\nsee staff."
	LockoutDisplayText      = "Down for\nmaintenance"
	UnauthorizedDisplayText = "Unauthorized"
	UnknownFobDisplayText   = "Unknown RFID"
)

// StatusLEDBrightness is the brightness used whenever the status LED is lit.
const StatusLEDBrightness = 0.5

var (
	ledOff   = [3]float64{0.0, 0.0, 0.0}
	ledRed   = [3]float64{1.0, 0.0, 0.0}
	ledGreen = [3]float64{0.0, 1.0, 0.0}
	ledAmber = [3]float64{1.0, 0.5, 0.0}
)

// Outputs is the resolved baseline for a given flag/authorization
// combination: the relay line, display text, and LED state sent back to
// the device.
type Outputs struct {
	Relay         bool
	Display       string
	OopsLED       bool
	LEDRGB        [3]float64
	LEDBrightness float64
}

// computeOutputs derives the output baseline from the sticky flags, the
// machine policy, and the current badge resolution. Precedence is strict:
// lockout, then oops, then always-enabled, then the badge decision, then
// idle. This is the only place outputs are decided, which keeps them from
// drifting out of sync with the flags.
func computeOutputs(pol registry.Policy, lockedOut, oopsed bool, login loginStatus) Outputs {
	switch {
	case lockedOut:
		return Outputs{Display: LockoutDisplayText, LEDRGB: ledAmber, LEDBrightness: StatusLEDBrightness}
	case oopsed:
		return Outputs{Display: OopsDisplayText, OopsLED: true, LEDRGB: ledRed, LEDBrightness: StatusLEDBrightness}
	case pol.AlwaysEnabled:
		return Outputs{Relay: true, Display: AlwaysOnDisplayText, LEDRGB: ledGreen, LEDBrightness: StatusLEDBrightness}
	case login.present && login.user != nil && (login.authorized || pol.UnauthorizedWarnOnly):
		return Outputs{
			Relay:         true,
			Display:       "Welcome,\n" + login.user.DisplayName(),
			LEDRGB:        ledGreen,
			LEDBrightness: StatusLEDBrightness,
		}
	case login.present && login.user != nil:
		return Outputs{Display: UnauthorizedDisplayText, LEDRGB: ledAmber, LEDBrightness: StatusLEDBrightness}
	case login.present:
		return Outputs{Display: UnknownFobDisplayText, LEDRGB: ledRed, LEDBrightness: StatusLEDBrightness}
	default:
		return Outputs{Display: DefaultDisplayText, LEDRGB: ledOff}
	}
}

func (st *State) applyOutputs(o Outputs) {
	st.RelayDesiredState = o.Relay
	st.DisplayText = o.Display
	st.OopsLED = o.OopsLED
	st.StatusLEDRGB = o.LEDRGB
	st.StatusLEDBrightness = o.LEDBrightness
}
