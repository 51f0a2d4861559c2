package statestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-access-backend/internal/engine"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	amps := 4.2
	st := engine.State{
		RelayDesiredState:   true,
		DisplayText:         "Welcome,\nJS",
		StatusLEDRGB:        [3]float64{0, 1, 0},
		StatusLEDBrightness: 0.5,
		RFIDValue:           "0014916441",
		RFIDPresentSince:    &now,
		CurrentUserFob:      "0014916441",
		LastCheckin:         &now,
		LastUpdate:          &now,
		Uptime:              512.25,
		CurrentAmps:         amps,
		WifiSignalDB:        &amps,
	}

	require.NoError(t, s.Save("mill", st))
	got, found, err := s.Load("mill")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, st, got)
}

func TestLoadMissingFile(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	st, found, err := s.Load("mill")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, engine.State{}, st)
}

func TestSaveOverwrites(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	require.NoError(t, s.Save("mill", engine.State{IsOopsed: true}))
	require.NoError(t, s.Save("mill", engine.State{IsLockedOut: true}))

	got, found, err := s.Load("mill")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, got.IsOopsed)
	assert.True(t, got.IsLockedOut)
}

func TestMachinesAreIndependent(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	require.NoError(t, s.Save("mill", engine.State{IsOopsed: true}))
	_, found, err := s.Load("lathe")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "mill.json"), []byte("not json"), 0o644))
	_, _, err = s.Load("mill")
	assert.Error(t, err)
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save("mill", engine.State{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"mill.json", "mill.lock"}, names)
}
