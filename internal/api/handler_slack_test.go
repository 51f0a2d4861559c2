package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) doForm(path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	e.router.ServeHTTP(w, req)
	return w
}

func TestPostSlackCommandList(t *testing.T) {
	env := newTestEnv(t)

	w := env.doForm("/api/slack/command", url.Values{
		"command": {"/macd"},
		"text":    {"machines"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ephemeral"`)
	assert.Contains(t, w.Body.String(), "dustcollector, mill")
}

func TestPostSlackCommandLock(t *testing.T) {
	env := newTestEnv(t)

	w := env.doForm("/api/slack/command", url.Values{
		"command": {"/macd"},
		"text":    {"lock mill"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mill is now locked out.")

	w = env.doForm("/api/slack/command", url.Values{
		"command": {"/macd"},
		"text":    {"lock mill"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No change: machine is already locked out.")
}

func TestGetVAPIDPublicKeyUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("GET", "/api/vapid_public_key", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
