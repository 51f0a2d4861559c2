package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"machine-access-backend/internal/bot"
	"machine-access-backend/internal/directory"
	"machine-access-backend/internal/engine"
	"machine-access-backend/internal/model"
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

// fakeHistory is an in-memory history.Store.
type fakeHistory struct {
	mu   sync.Mutex
	rows []model.AccessEvent
}

func (f *fakeHistory) Record(_ context.Context, ev engine.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, model.AccessEvent{
		MachineName: ev.Machine,
		Kind:        string(ev.Kind),
		OccurredAt:  ev.Time,
		UserName:    ev.UserName,
	})
	return nil
}

func (f *fakeHistory) RecentForMachine(_ context.Context, machine string, limit int) ([]model.AccessEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AccessEvent
	for _, r := range f.rows {
		if r.MachineName == machine && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeHistory) DB() *gorm.DB { return nil }

type testEnv struct {
	router       *gin.Engine
	hist         *fakeHistory
	machinesPath string
	usersPath    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmp := t.TempDir()
	machinesPath := filepath.Join(tmp, "machines.json")
	usersPath := filepath.Join(tmp, "users.json")
	require.NoError(t, os.WriteFile(machinesPath, []byte(`{
	  "mill": {"authorizations_or": ["Metal Mill"]},
	  "dustcollector": {"always_enabled": true}
	}`), 0o644))
	require.NoError(t, os.WriteFile(usersPath, []byte(`[
	  {"fob_codes": ["0014916441"], "account_id": "1001",
	   "full_name": "Jamie Smith", "preferred_name": "JS",
	   "authorizations": ["Metal Mill"]}
	]`), 0o644))

	reg, err := registry.Load(machinesPath)
	require.NoError(t, err)
	dir, err := directory.Load(usersPath)
	require.NoError(t, err)
	set, err := engine.NewSet(reg, dir, &memStore{states: make(map[string]engine.State)})
	require.NoError(t, err)

	hist := &fakeHistory{}
	h := NewHandler(set, dir, reg, hist, nil, bot.New(set, hist, nil), nil, "")

	r := gin.New()
	api := r.Group("/api")
	{
		api.POST("/machine/update", h.PostMachineUpdate)
		api.POST("/machine/lockout/:name", h.PostLockout)
		api.DELETE("/machine/lockout/:name", h.DeleteLockout)
		api.POST("/machine/oops/:name", h.PostOops)
		api.DELETE("/machine/oops/:name", h.DeleteOops)
		api.GET("/machines", h.GetMachines)
		api.GET("/machines/:name", h.GetMachine)
		api.GET("/machines/:name/events", h.GetMachineEvents)
		api.POST("/reload-users", h.PostReloadUsers)
		api.POST("/reload-machines", h.PostReloadMachines)
		api.POST("/slack/command", h.PostSlackCommand)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return &testEnv{router: r, hist: hist, machinesPath: machinesPath, usersPath: usersPath}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	e.router.ServeHTTP(w, req)
	return w
}

func TestPostMachineUpdateValidation(t *testing.T) {
	env := newTestEnv(t)

	testCases := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"machine_name": `},
		{name: "unknown field", body: `{"machine_name":"mill","oops":false,"rfid_value":"","uptime":1,"bogus":true}`},
		{name: "missing machine_name", body: `{"oops":false,"rfid_value":"","uptime":1}`},
		{name: "missing oops", body: `{"machine_name":"mill","rfid_value":"","uptime":1}`},
		{name: "missing rfid_value", body: `{"machine_name":"mill","oops":false,"uptime":1}`},
		{name: "missing uptime", body: `{"machine_name":"mill","oops":false,"rfid_value":""}`},
		{name: "negative uptime", body: `{"machine_name":"mill","oops":false,"rfid_value":"","uptime":-5}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do("POST", "/api/machine/update", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPostMachineUpdateUnknownMachine(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("POST", "/api/machine/update",
		`{"machine_name":"bandsaw","oops":false,"rfid_value":"","uptime":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostMachineUpdateLogin(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("POST", "/api/machine/update",
		`{"machine_name":"mill","oops":false,"rfid_value":"14916441","uptime":12.5,"amps":3.1}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
	  "relay": true,
	  "display": "Welcome,\nJS",
	  "oops_led": false,
	  "status_led_rgb": [0, 1, 0],
	  "status_led_brightness": 0.5
	}`, w.Body.String())
}

func TestPostMachineUpdateIdle(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("POST", "/api/machine/update",
		`{"machine_name":"mill","oops":false,"rfid_value":"","uptime":1}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
	  "relay": false,
	  "display": "Please Insert\nRFID Card",
	  "oops_led": false,
	  "status_led_rgb": [0, 0, 0],
	  "status_led_brightness": 0
	}`, w.Body.String())
}

func TestControlEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/machine/lockout/mill", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	// Redundant command: 200 but flagged as no_change.
	w = env.do("POST", "/api/machine/lockout/mill", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"no_change"`)

	w = env.do("DELETE", "/api/machine/lockout/mill", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do("DELETE", "/api/machine/oops/mill", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"no_change"`)

	w = env.do("POST", "/api/machine/oops/mill", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do("POST", "/api/machine/oops/bandsaw", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMachines(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("GET", "/api/machines", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mill"`)
	assert.Contains(t, w.Body.String(), `"dustcollector"`)
}

func TestGetMachineUnknown(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("GET", "/api/machines/bandsaw", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMachineEvents(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.hist.Record(context.Background(), engine.Event{
		Kind: engine.EventLockedOut, Machine: "mill", Time: time.Now().UTC(),
	}))

	w := env.do("GET", "/api/machines/mill/events?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"locked_out"`)
}

func TestPostReloadUsers(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.usersPath, []byte(`[
	  {"fob_codes": ["0014916441"], "account_id": "1001",
	   "full_name": "Jamie Smith", "preferred_name": "JS",
	   "authorizations": ["Metal Mill"]},
	  {"fob_codes": ["2"], "account_id": "1002", "full_name": "Robin Tran"}
	]`), 0o644))

	w := env.do("POST", "/api/reload-users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"added":1,"removed":0,"updated":0}`, w.Body.String())
}

func TestPostReloadUsersBadFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.usersPath, []byte(`not json`), 0o644))
	w := env.do("POST", "/api/reload-users", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPostReloadMachines(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.machinesPath, []byte(`{
	  "mill": {"always_enabled": true}
	}`), 0o644))

	w := env.do("POST", "/api/reload-machines", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"machines":1`)
}
