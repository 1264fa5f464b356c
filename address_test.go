package ipc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocal(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	addr, err := Resolve("svc-a", ScopeLocal)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/run/user/1000", "svc-a.sock"), addr.String())
	assert.Equal(t, "unix", addr.Network())
	assert.False(t, addr.IsZero())
}

func TestResolveLocalFallsBackToCacheDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	addr, err := Resolve("svc-a", ScopeLocal)
	require.NoError(t, err)
	assert.Contains(t, addr.String(), "svc-a.sock")
}

func TestResolveRuntimeDir(t *testing.T) {
	addr, err := Resolve("daemon", ScopeRuntimeDir)
	require.NoError(t, err)
	assert.Equal(t, "/run/daemon.sock", addr.String())
}

func TestResolveSameNameSameAddress(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	a, err := Resolve("svc-a", ScopeLocal)
	require.NoError(t, err)
	b, err := Resolve("svc-a", ScopeLocal)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Resolve("svc-b", ScopeLocal)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestResolveInvalidName(t *testing.T) {
	for _, name := range []string{"", "a/b", `a\b`, "/abs"} {
		_, err := Resolve(name, ScopeLocal)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestResolveNoRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "")

	_, err := Resolve("svc-a", ScopeLocal)
	assert.ErrorIs(t, err, ErrResolutionFailed)
}

func TestResolveUnknownScope(t *testing.T) {
	_, err := Resolve("svc-a", Scope(42))
	assert.ErrorIs(t, err, ErrResolutionFailed)
}

func TestPathAddress(t *testing.T) {
	addr := PathAddress("/tmp/x.sock")
	assert.Equal(t, "/tmp/x.sock", addr.String())
	assert.Equal(t, "unix", addr.Network())
	assert.True(t, Address{}.IsZero())
}
