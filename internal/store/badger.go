package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/SmartX-Team/OpenARK-sub002/internal/graph"
)

var keyPrefix = []byte("graph/")

// BadgerConfig configures the persistent store.
type BadgerConfig struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM; useful for tests that want
	// the badger code path without touching disk.
	InMemory bool
	// SyncWrites makes every write wait for fsync.
	SyncWrites bool
	// Logger receives badger's own log output.
	Logger *slog.Logger
}

// DefaultBadgerConfig is a durable store at path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// InMemoryBadgerConfig is a RAM-only store.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// Badger is the badger-backed GraphDB. Snapshots are stored as JSON
// under graph/<namespace>/<name>; each Insert is one transaction, so
// a scope's snapshot is replaced atomically.
type Badger struct {
	db *badger.DB
}

var _ GraphDB = (*Badger)(nil)

// OpenBadger opens or creates the store.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(&badgerLogger{logger: logger.With("component", "badger")})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func scopeKey(scope graph.Scope) []byte {
	return append(append([]byte{}, keyPrefix...), scope.String()...)
}

func (b *Badger) Get(_ context.Context, scope graph.Scope) (*graph.Graph, error) {
	var out *graph.Graph
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(scopeKey(scope))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var g graph.Graph
			if err := json.Unmarshal(val, &g); err != nil {
				return fmt.Errorf("store: decode %s: %w", scope, err)
			}
			out = &g
			return nil
		})
	})
	return out, err
}

func (b *Badger) Insert(_ context.Context, g graph.Graph) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", g.Scope, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(scopeKey(g.Scope), raw)
	})
}

func (b *Badger) Delete(_ context.Context, scope graph.Scope) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(scopeKey(scope))
	})
}

func (b *Badger) List(_ context.Context, filter graph.Filter) ([]graph.Graph, error) {
	var out []graph.Graph
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var g graph.Graph
				if err := json.Unmarshal(val, &g); err != nil {
					return fmt.Errorf("store: decode %s: %w", it.Item().Key(), err)
				}
				if filter.Contains(g.Scope) {
					out = append(out, g)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Scope, out[j].Scope
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Name < b.Name
	})
	return out, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger adapts badger's printf logging onto slog.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
