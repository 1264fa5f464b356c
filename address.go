package ipc

import (
	"os"
	"path/filepath"
	"strings"
)

// Scope selects the directory a channel name resolves under.
type Scope int

const (
	// ScopeLocal resolves names under the calling user's runtime
	// directory ($XDG_RUNTIME_DIR, falling back to the user cache
	// directory). Sockets are private to the user.
	ScopeLocal Scope = iota
	// ScopeRuntimeDir resolves names under the system runtime
	// directory (/run). Binding usually requires elevated privileges.
	ScopeRuntimeDir
)

// Address identifies a platform IPC endpoint. Addresses resolved from
// the same name and scope compare equal and name the same endpoint.
type Address struct {
	path string
}

// PathAddress returns an Address for an explicit socket path, bypassing
// name resolution. Useful for tests and non-standard layouts.
func PathAddress(path string) Address {
	return Address{path: path}
}

// String returns the filesystem path of the endpoint.
func (a Address) String() string {
	return a.path
}

// Network returns the network name used with the net package.
func (a Address) Network() string {
	return "unix"
}

// IsZero reports whether the address was never resolved.
func (a Address) IsZero() bool {
	return a.path == ""
}

// Resolve maps a logical channel name to a platform endpoint. The name
// must be non-empty and free of path separators; the endpoint is the
// name suffixed with ".sock" inside the scope's directory. Resolve has
// no side effects and does not touch the filesystem beyond reading the
// environment.
func Resolve(name string, scope Scope) (Address, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return Address{}, ErrInvalidName
	}

	dir, err := scopeDir(scope)
	if err != nil {
		return Address{}, err
	}

	return Address{path: filepath.Join(dir, name+".sock")}, nil
}

func scopeDir(scope Scope) (string, error) {
	switch scope {
	case ScopeRuntimeDir:
		return "/run", nil
	case ScopeLocal:
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return dir, nil
		}
		if dir, err := os.UserCacheDir(); err == nil && dir != "" {
			return dir, nil
		}
		return "", ErrResolutionFailed
	default:
		return "", ErrResolutionFailed
	}
}
