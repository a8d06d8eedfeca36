package database

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Model is a data model bound to a Database.
//
// Bind receives the owning Database. Use receives the plugins registered
// at the moment the model itself is registered; the slice is the model's
// own copy.
type Model interface {
	Name() string
	Bind(db *Database)
	Use(plugins []Plugin) error
}

// Plugin is an extension applied to models at registration time.
// Only its identity and registration order matter to the Registry.
type Plugin interface {
	Name() string
}

// Registry keeps the ordered models and plugins of a Database and pushes
// the current plugin set into each model as it is registered.
//
// Propagation is push-only: plugins added after a model was registered
// are not applied to it. Duplicate registrations are kept as-is.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Model hooks run outside the registry lock.
type Registry struct {
	owner  *Database
	logger *slog.Logger

	mu      sync.RWMutex
	models  []Model
	plugins []Plugin
}

// newRegistry creates an empty Registry that binds models to owner.
func newRegistry(owner *Database, logger *slog.Logger) *Registry {
	return &Registry{
		owner:  owner,
		logger: logger,
	}
}

// RegisterModel appends m, binds it to the Database, and calls m.Use with
// a snapshot of the plugins registered so far.
//
// If the Use hook fails the model stays registered and the error is
// returned wrapped in ErrRegistrationFailed. The caller decides whether to
// register it again or apply plugins manually.
func (r *Registry) RegisterModel(m Model) error {
	if m == nil {
		return ErrNilModel
	}

	r.mu.Lock()
	r.models = append(r.models, m)
	snapshot := slices.Clone(r.plugins)
	r.mu.Unlock()

	m.Bind(r.owner)
	if err := m.Use(snapshot); err != nil {
		r.logger.Warn("model plugin hook failed",
			"model", m.Name(),
			"plugins", len(snapshot),
			"error", err,
		)
		return fmt.Errorf("%w: model %q: %w", ErrRegistrationFailed, m.Name(), err)
	}

	r.logger.Debug("model registered", "model", m.Name(), "plugins", len(snapshot))
	return nil
}

// RegisterModels registers each model in order. It stops at the first
// failure; models registered before it stay registered.
func (r *Registry) RegisterModels(models ...Model) error {
	for _, m := range models {
		if err := r.RegisterModel(m); err != nil {
			return err
		}
	}
	return nil
}

// UsePlugin appends p to the plugin set. Models registered earlier are not
// notified.
func (r *Registry) UsePlugin(p Plugin) error {
	return r.UsePlugins(p)
}

// UsePlugins appends plugins in order. Either all are added or, if any is
// nil, none are.
func (r *Registry) UsePlugins(plugins ...Plugin) error {
	for i, p := range plugins {
		if p == nil {
			return fmt.Errorf("%w: index %d", ErrNilPlugin, i)
		}
	}

	r.mu.Lock()
	r.plugins = append(r.plugins, plugins...)
	total := len(r.plugins)
	r.mu.Unlock()

	for _, p := range plugins {
		r.logger.Debug("plugin registered", "plugin", p.Name(), "total", total)
	}
	return nil
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.models)
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.plugins)
}
