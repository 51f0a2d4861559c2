package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-access-backend/internal/directory"
	"machine-access-backend/internal/engine"
	"machine-access-backend/internal/registry"
)

type memStore struct {
	mu     sync.Mutex
	states map[string]engine.State
}

func (s *memStore) Save(name string, st engine.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[name] = st
	return nil
}

func (s *memStore) Load(name string) (engine.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[name]
	return st, ok, nil
}

func newTestCollector(t *testing.T) (*Collector, *engine.Set) {
	t.Helper()
	tmp := t.TempDir()
	machinesPath := filepath.Join(tmp, "machines.json")
	usersPath := filepath.Join(tmp, "users.json")
	require.NoError(t, os.WriteFile(machinesPath, []byte(`{
	  "mill": {"authorizations_or": ["Metal Mill"]}
	}`), 0o644))
	require.NoError(t, os.WriteFile(usersPath, []byte(`[
	  {"fob_codes": ["0014916441"], "account_id": "1001",
	   "full_name": "Jamie Smith", "authorizations": ["Metal Mill"]}
	]`), 0o644))

	reg, err := registry.Load(machinesPath)
	require.NoError(t, err)
	dir, err := directory.Load(usersPath)
	require.NoError(t, err)
	set, err := engine.NewSet(reg, dir, &memStore{states: make(map[string]engine.State)})
	require.NoError(t, err)

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return NewCollector(set, dir, reg, start), set
}

func TestCollectorGauges(t *testing.T) {
	c, set := newTestCollector(t)

	m, ok := set.Get("mill")
	require.True(t, ok)
	_, _, err := m.ApplyReport(engine.Report{RFIDValue: "0014916441", Uptime: 42})
	require.NoError(t, err)

	expected := `
# HELP machine_relay_state The state of the machine relay
# TYPE machine_relay_state gauge
machine_relay_state{machine_name="mill"} 1
# HELP machine_oops_state The Oops state of the machine
# TYPE machine_oops_state gauge
machine_oops_state{machine_name="mill"} 0
# HELP machine_known_user Whether a known user RFID is inserted into the machine
# TYPE machine_known_user gauge
machine_known_user{machine_name="mill"} 1
# HELP machine_uptime_seconds The machine uptime seconds
# TYPE machine_uptime_seconds gauge
machine_uptime_seconds{machine_name="mill"} 42
# HELP user_count The number of users configured
# TYPE user_count gauge
user_count 1
# HELP fob_count The number of fobs configured
# TYPE fob_count gauge
fob_count 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"machine_relay_state", "machine_oops_state", "machine_known_user",
		"machine_uptime_seconds", "user_count", "fob_count"))
}

func TestCollectorLEDSeries(t *testing.T) {
	c, set := newTestCollector(t)

	m, ok := set.Get("mill")
	require.True(t, ok)
	_, err := m.Oops()
	require.NoError(t, err)

	expected := `
# HELP machine_status_led The machine status LED state
# TYPE machine_status_led gauge
machine_status_led{led_attribute="red",machine_name="mill"} 1
machine_status_led{led_attribute="green",machine_name="mill"} 0
machine_status_led{led_attribute="blue",machine_name="mill"} 0
machine_status_led{led_attribute="brightness",machine_name="mill"} 0.5
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"machine_status_led"))
}

func TestCollectorSeriesCount(t *testing.T) {
	c, _ := newTestCollector(t)
	// 18 per-machine series plus 5 globals.
	assert.Equal(t, 23, testutil.CollectAndCount(c))
}

func TestHandlerServesScrape(t *testing.T) {
	c, _ := newTestCollector(t)
	srv := httptest.NewServer(Handler(c))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "machine_relay_state")
	assert.Contains(t, body, "app_start_timestamp")
}
