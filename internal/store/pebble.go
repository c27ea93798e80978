package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
)

// PebbleBackend persists values in an embedded Pebble database, for single-node deployments
// that want state to survive restarts without external services.
type PebbleBackend struct {
	db     *pebble.DB
	closed atomic.Bool
}

// OpenPebble opens (or creates) the database under dir.
func OpenPebble(dir string) (*PebbleBackend, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleBackend{db: db}, nil
}

func (p *PebbleBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() { _ = closer.Close() }()
	return append([]byte(nil), v...), true, nil
}

func (p *PebbleBackend) Set(_ context.Context, key string, value []byte) error {
	return p.db.Set([]byte(key), value, pebble.Sync)
}

func (p *PebbleBackend) Remove(_ context.Context, key string) error {
	return p.db.Delete([]byte(key), pebble.Sync)
}

func (p *PebbleBackend) Ping(context.Context) error {
	if p.closed.Load() {
		return errors.New("pebble: closed")
	}
	return nil
}

func (p *PebbleBackend) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.db.Close()
}
