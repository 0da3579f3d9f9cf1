package tables

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"tablekv/lib/logging"
	"tablekv/lib/store"
	"tablekv/lib/store/pebbledb"
)

// Suffix is appended to every table name to form its directory name under
// the manager's root.
const Suffix = ".db"

// ErrInvalidTableName is returned for empty table names and names that
// would escape the root directory.
var ErrInvalidTableName = errors.New("tables: invalid table name")

// --------------------------------------------------------------------------
// Manager
// --------------------------------------------------------------------------

// Manager resolves table names to on-disk locations and hands out store
// instances, at most one per table name. Two facades over the same
// directory would fight over the engine's directory lock, so all access to
// a table must go through one Manager.
//
// Thread-safety: safe for concurrent use.
type Manager struct {
	root    string
	factory store.Factory
	stores  *xsync.MapOf[string, store.Store]
	log     *slog.Logger
}

// ManagerOption customizes a Manager during construction.
type ManagerOption func(*Manager)

// WithFactory replaces the backend factory. The default builds pebble
// stores with default engine options and no offset source.
func WithFactory(f store.Factory) ManagerOption {
	return func(m *Manager) {
		m.factory = f
	}
}

// WithEngineOptions keeps the default pebble backend but applies the given
// tuning and offset source to every store the manager creates.
func WithEngineOptions(opts *pebbledb.Options) ManagerOption {
	return func(m *Manager) {
		m.factory = func(table, dir string) (store.Store, error) {
			return pebbledb.New(table, dir, opts), nil
		}
	}
}

// NewManager creates a manager rooted at the given directory. The directory
// itself is created lazily by the stores on their first open.
func NewManager(root string, opts ...ManagerOption) *Manager {
	m := &Manager{
		root: root,
		factory: func(table, dir string) (store.Store, error) {
			return pebbledb.New(table, dir, nil), nil
		},
		stores: xsync.NewMapOf[string, store.Store](),
		log:    logging.For("tables"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the directory a table persists under: <root>/<name>.db.
func (m *Manager) Path(table string) string {
	return filepath.Join(m.root, table+Suffix)
}

// validate rejects names that are empty or contain path separators, which
// would resolve outside the root.
func validate(table string) error {
	if table == "" || strings.ContainsAny(table, `/\`) || table == "." || table == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}
	return nil
}

// Get returns the store for a table, creating it on first request.
// Concurrent callers for the same table share one instance.
func (m *Manager) Get(table string) (store.Store, error) {
	if err := validate(table); err != nil {
		return nil, err
	}

	var factoryErr error
	s, ok := m.stores.Compute(table, func(old store.Store, loaded bool) (store.Store, bool) {
		if loaded {
			return old, false
		}
		created, err := m.factory(table, m.Path(table))
		if err != nil {
			factoryErr = err
			return nil, true // delete the placeholder entry
		}
		m.log.Debug("table store created", slog.String("table", table))
		return created, false
	})
	if factoryErr != nil {
		return nil, fmt.Errorf("creating store for table %q: %w", table, factoryErr)
	}
	if !ok || s == nil {
		return nil, fmt.Errorf("creating store for table %q: store not available", table)
	}
	return s, nil
}

// Reset destroys a table's on-disk state and forgets its instance, so the
// next Get starts from a fresh, empty store. Resetting an unknown table
// resets whatever is on disk at its path, which succeeds if nothing is.
func (m *Manager) Reset(table string) error {
	s, err := m.Get(table)
	if err != nil {
		return err
	}
	if err := s.Reset(); err != nil {
		return err
	}
	m.stores.Delete(table)
	m.log.Info("table reset", slog.String("table", table))
	return nil
}

// Tables returns the names of all tables with a live store instance.
func (m *Manager) Tables() []string {
	var names []string
	m.stores.Range(func(name string, _ store.Store) bool {
		names = append(names, name)
		return true
	})
	return names
}

// Close closes every live store and forgets all instances. The first error
// is reported, but every store is closed regardless.
func (m *Manager) Close() error {
	var errs []error
	m.stores.Range(func(name string, s store.Store) bool {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing table %q: %w", name, err))
		}
		m.stores.Delete(name)
		return true
	})
	return errors.Join(errs...)
}
