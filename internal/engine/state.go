package engine

import "time"

// State is the full mutable, persisted state of one machine. Every field
// round-trips through the state store; unknown fields on load fall back
// to zero values so older state files keep working.
type State struct {
	// Resolved outputs, always recomputed together from the flags and
	// the current badge resolution, never written piecemeal.
	RelayDesiredState   bool       `json:"relay_desired_state"`
	DisplayText         string     `json:"display_text"`
	OopsLED             bool       `json:"oops_led"`
	StatusLEDRGB        [3]float64 `json:"status_led_rgb"`
	StatusLEDBrightness float64    `json:"status_led_brightness"`

	// Badge tracking. RFIDValue is the normalized code currently in the
	// reader ("" when empty). CurrentUserFob is a weak reference to the
	// logged-in user: the lookup key only, re-resolved against the live
	// directory on every recompute and cleared when the record is gone.
	RFIDValue        string     `json:"rfid_value"`
	RFIDPresentSince *time.Time `json:"rfid_present_since"`
	CurrentUserFob   string     `json:"current_user_fob"`

	// Sticky flags, cleared only by explicit operator action.
	IsOopsed    bool `json:"is_oopsed"`
	IsLockedOut bool `json:"is_locked_out"`

	// LastCheckin advances on every report; LastUpdate only on reports
	// or operations that changed meaningful state.
	LastCheckin *time.Time `json:"last_checkin"`
	LastUpdate  *time.Time `json:"last_update"`

	// Raw device telemetry, overwritten whenever present in a report.
	Uptime               float64  `json:"uptime"`
	CurrentAmps          float64  `json:"current_amps"`
	WifiSignalDB         *float64 `json:"wifi_signal_db"`
	WifiSignalPercent    *float64 `json:"wifi_signal_percent"`
	InternalTemperatureC *float64 `json:"internal_temperature_c"`
}

// defaultState is the state of a machine that has never checked in.
func defaultState() State {
	return State{
		DisplayText:  DefaultDisplayText,
		StatusLEDRGB: ledOff,
	}
}

// meaningfulChange reports whether anything beyond telemetry and the
// checkin timestamp differs between two states. It drives LastUpdate.
func meaningfulChange(prev, next State) bool {
	return prev.RelayDesiredState != next.RelayDesiredState ||
		prev.DisplayText != next.DisplayText ||
		prev.OopsLED != next.OopsLED ||
		prev.StatusLEDRGB != next.StatusLEDRGB ||
		prev.StatusLEDBrightness != next.StatusLEDBrightness ||
		prev.RFIDValue != next.RFIDValue ||
		prev.CurrentUserFob != next.CurrentUserFob ||
		prev.IsOopsed != next.IsOopsed ||
		prev.IsLockedOut != next.IsLockedOut
}
