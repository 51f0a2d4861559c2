package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMachines(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machines.json")
	writeMachines(t, path, `{
	  "mill": {"authorizations_or": ["Metal Mill"], "unauthorized_warn_only": true},
	  "dust-collector_2": {"always_enabled": true}
	}`)

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dust-collector_2", "mill"}, r.Names())
	assert.False(t, r.LoadTime().IsZero())

	pol, ok := r.Get("mill")
	require.True(t, ok)
	assert.Equal(t, "mill", pol.Name)
	assert.Equal(t, []string{"Metal Mill"}, pol.AuthorizationsOr)
	assert.True(t, pol.UnauthorizedWarnOnly)
	assert.False(t, pol.AlwaysEnabled)

	_, ok = r.Get("lathe")
	assert.False(t, ok)
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "empty set", content: `{}`},
		{name: "name with spaces", content: `{"band saw": {}}`},
		{name: "name with slash", content: `{"mill/2": {}}`},
		{name: "not json", content: `[]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "machines.json")
			writeMachines(t, path, tc.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestReloadKeepsPoliciesOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machines.json")
	writeMachines(t, path, `{"mill": {}}`)
	r, err := Load(path)
	require.NoError(t, err)

	writeMachines(t, path, `{"bad name": {}}`)
	require.Error(t, r.Reload())
	_, ok := r.Get("mill")
	assert.True(t, ok, "previous policies stay live")
}

func TestReloadSwapsPolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machines.json")
	writeMachines(t, path, `{"mill": {}}`)
	r, err := Load(path)
	require.NoError(t, err)

	writeMachines(t, path, `{"mill": {"always_enabled": true}, "lathe": {}}`)
	require.NoError(t, r.Reload())

	pol, ok := r.Get("mill")
	require.True(t, ok)
	assert.True(t, pol.AlwaysEnabled)
	assert.Equal(t, []string{"lathe", "mill"}, r.Names())
}
