package cairn

import (
	"github.com/cairn-engine/cairn/server"
	"github.com/cairn-engine/cairn/storage"
	"github.com/cairn-engine/cairn/worldstate"
)

type WorldOption func(w *World)

// WithPort sets the HTTP port. The CAIRN_PORT environment variable overrides
// it.
func WithPort(port string) WorldOption {
	return func(w *World) {
		w.serverOptions = append(w.serverOptions, server.WithPort(port))
	}
}

// WithStorage substitutes the word storage substrate, overriding the
// mode-derived default.
func WithStorage(store storage.WordStorage) WorldOption {
	return func(w *World) {
		w.dbStorage = store
	}
}

// WithDisableAuth approves every write regardless of grants. Registration
// ownership checks still apply.
func WithDisableAuth() WorldOption {
	return func(w *World) {
		w.access = worldstate.AllowAll{}
	}
}

// WithUpgradePolicy replaces the default append-only schema evolution rule.
func WithUpgradePolicy(policy worldstate.UpgradePolicy) WorldOption {
	return func(w *World) {
		w.policy = policy
	}
}
