// Package store persists per-session client state behind typed keys.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/jwfoods/internal/common"
)

// ErrNoSession is returned when a request reaches the store without a session identifier.
var ErrNoSession = errors.New("store: no session on context")

// Backend is a raw byte store. Writes are whole-value overwrites; the last write wins.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Store scopes a Backend per browser session.
type Store struct {
	backend Backend
	locker  Locker
	logger  zerolog.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithLocker overrides the session locker. Defaults to an in-process striped lock.
func WithLocker(l Locker) Option {
	return func(s *Store) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithLogger sets the logger used for decode warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New wraps backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, locker: NewLocalLocker(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend exposes the underlying backend, for health checks.
func (s *Store) Backend() Backend {
	return s.backend
}

// Scope returns the store view for the session on ctx.
func (s *Store) Scope(ctx context.Context) (Scope, error) {
	sid, ok := common.SessionID(ctx)
	if !ok {
		return Scope{}, ErrNoSession
	}
	return s.ForSession(sid), nil
}

// ForSession returns the store view for sid.
func (s *Store) ForSession(sid string) Scope {
	return Scope{store: s, sid: sid}
}

// Scope is the set of keys owned by one session.
type Scope struct {
	store *Store
	sid   string
}

// SessionID returns the owning session.
func (sc Scope) SessionID() string {
	return sc.sid
}

func (sc Scope) rawKey(name string) string {
	return "session:" + sc.sid + ":" + name
}

type heldKey struct{ sid string }

// Atomically runs fn while holding the session lock so read-modify-write sequences on the
// session's keys do not interleave. Nested calls on the same session reuse the held lock.
func (sc Scope) Atomically(ctx context.Context, fn func(context.Context) error) error {
	if sc.store == nil {
		return ErrNoSession
	}
	if held, _ := ctx.Value(heldKey{sid: sc.sid}).(bool); held {
		return fn(ctx)
	}
	return sc.store.locker.WithLock(ctx, "lock:"+sc.rawKey("state"), func(ctx context.Context) error {
		return fn(context.WithValue(ctx, heldKey{sid: sc.sid}, true))
	})
}

// Key is a typed handle on a named session value.
type Key[T any] struct {
	name string
}

// NewKey declares a typed key. Names must be unique per value shape.
func NewKey[T any](name string) Key[T] {
	name = strings.TrimSpace(name)
	if name == "" {
		panic("store: empty key name")
	}
	return Key[T]{name: name}
}

// Name returns the key name.
func (k Key[T]) Name() string { return k.name }

// Get loads the value. A value that no longer decodes into T is reported as absent.
func (k Key[T]) Get(ctx context.Context, sc Scope) (T, bool, error) {
	var zero T
	if sc.store == nil {
		return zero, false, ErrNoSession
	}
	data, ok, err := sc.store.backend.Get(ctx, sc.rawKey(k.name))
	if err != nil {
		return zero, false, fmt.Errorf("store get %s: %w", k.name, err)
	}
	if !ok {
		return zero, false, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		sc.store.logger.Warn().Err(err).Str("key", k.name).Msg("store_value_discarded")
		return zero, false, nil
	}
	return v, true, nil
}

// Set overwrites the value.
func (k Key[T]) Set(ctx context.Context, sc Scope, v T) error {
	if sc.store == nil {
		return ErrNoSession
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store encode %s: %w", k.name, err)
	}
	if err := sc.store.backend.Set(ctx, sc.rawKey(k.name), data); err != nil {
		return fmt.Errorf("store set %s: %w", k.name, err)
	}
	return nil
}

// Remove deletes the value. Removing an absent key is not an error.
func (k Key[T]) Remove(ctx context.Context, sc Scope) error {
	if sc.store == nil {
		return ErrNoSession
	}
	if err := sc.store.backend.Remove(ctx, sc.rawKey(k.name)); err != nil {
		return fmt.Errorf("store remove %s: %w", k.name, err)
	}
	return nil
}
