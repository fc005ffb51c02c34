// Package mirror backs up the local store to remote object storage as a
// whole-file snapshot and restores it wholesale. Last writer to the remote
// wins; there is no versioning and no conflict resolution.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ObjectStore is the remote collaborator: blob put/get addressed by a fixed
// object key. Credentials are the adapter's concern.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ErrNotFound is returned by Get when the remote object does not exist yet.
var ErrNotFound = errors.New("remote object not found")

// SyncError wraps a mirror failure (remote unreachable, bad credentials,
// local snapshot I/O). A sync failure never blocks continued local use.
type SyncError struct {
	Op    string
	Cause error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("mirror %s: %v", e.Op, e.Cause)
}

func (e *SyncError) Unwrap() error { return e.Cause }

// SnapshotStore is the local side of the mirror, implemented by the
// storage repository.
type SnapshotStore interface {
	Snapshot() ([]byte, error)
	Replace(data []byte) error
}

// Syncer copies whole snapshots between the local store and the remote
// object under a fixed key.
type Syncer struct {
	store   SnapshotStore
	objects ObjectStore
	key     string
}

func NewSyncer(store SnapshotStore, objects ObjectStore, key string) *Syncer {
	return &Syncer{store: store, objects: objects, key: key}
}

// SyncToRemote uploads the full local snapshot. Idempotent: re-running after
// a redelivered checkpoint message just uploads the same bytes again.
func (s *Syncer) SyncToRemote(ctx context.Context) error {
	data, err := s.store.Snapshot()
	if err != nil {
		return &SyncError{Op: "snapshot", Cause: err}
	}
	if err := s.objects.Put(ctx, s.key, data); err != nil {
		return &SyncError{Op: "upload", Cause: err}
	}
	slog.InfoContext(ctx, "Store snapshot uploaded", "key", s.key, "bytes", len(data))
	return nil
}

// RestoreFromRemote downloads the remote snapshot and replaces the local
// store wholesale. A missing remote object is not an error: the session
// starts with a fresh local store.
func (s *Syncer) RestoreFromRemote(ctx context.Context) error {
	data, err := s.objects.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		slog.InfoContext(ctx, "No remote snapshot, starting fresh", "key", s.key)
		return nil
	}
	if err != nil {
		return &SyncError{Op: "download", Cause: err}
	}
	if err := s.store.Replace(data); err != nil {
		return &SyncError{Op: "replace", Cause: err}
	}
	slog.InfoContext(ctx, "Store restored from remote snapshot", "key", s.key, "bytes", len(data))
	return nil
}
