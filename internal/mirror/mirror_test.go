package mirror_test

import (
	"context"
	"errors"
	"testing"

	"contribs/internal/mirror"
	"contribs/internal/mirror/memory"
)

// fakeStore implements mirror.SnapshotStore in memory.
type fakeStore struct {
	data    []byte
	snapErr error
}

func (f *fakeStore) Snapshot() ([]byte, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	return f.data, nil
}

func (f *fakeStore) Replace(data []byte) error {
	f.data = data
	return nil
}

func TestSyncAndRestore(t *testing.T) {
	ctx := context.Background()
	objects := memory.New()

	src := &fakeStore{data: []byte("snapshot-v1")}
	if err := mirror.NewSyncer(src, objects, "contribs.db").SyncToRemote(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	dst := &fakeStore{}
	if err := mirror.NewSyncer(dst, objects, "contribs.db").RestoreFromRemote(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if string(dst.data) != "snapshot-v1" {
		t.Fatalf("restored %q", dst.data)
	}
}

func TestLastWriterWins(t *testing.T) {
	ctx := context.Background()
	objects := memory.New()

	a := &fakeStore{data: []byte("from-a")}
	b := &fakeStore{data: []byte("from-b")}
	if err := mirror.NewSyncer(a, objects, "k").SyncToRemote(ctx); err != nil {
		t.Fatalf("sync a: %v", err)
	}
	if err := mirror.NewSyncer(b, objects, "k").SyncToRemote(ctx); err != nil {
		t.Fatalf("sync b: %v", err)
	}

	dst := &fakeStore{}
	if err := mirror.NewSyncer(dst, objects, "k").RestoreFromRemote(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if string(dst.data) != "from-b" {
		t.Fatalf("expected last writer to win, got %q", dst.data)
	}
}

func TestRestoreMissingRemoteIsNoOp(t *testing.T) {
	dst := &fakeStore{data: []byte("local")}
	err := mirror.NewSyncer(dst, memory.New(), "absent").RestoreFromRemote(context.Background())
	if err != nil {
		t.Fatalf("missing remote object must not be an error: %v", err)
	}
	if string(dst.data) != "local" {
		t.Fatalf("local store must be untouched, got %q", dst.data)
	}
}

func TestSyncErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk gone")
	src := &fakeStore{snapErr: cause}
	err := mirror.NewSyncer(src, memory.New(), "k").SyncToRemote(context.Background())

	var syncErr *mirror.SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("SyncError should unwrap to the cause")
	}
}
