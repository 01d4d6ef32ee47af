package directory_tree

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
)

const blockWindow = 50 * time.Millisecond

func newLockedTree(t *testing.T) (*Tree, *LockCoordinator) {
	t.Helper()
	tr := NewTree()
	_, _ = tr.Insert(p("/a"), KindDirectory, nil)
	_, _ = tr.Insert(p("/a/b"), KindFile, nil)
	_, _ = tr.Insert(p("/c"), KindDirectory, nil)
	return tr, NewLockCoordinator(tr)
}

// lockAsync runs Lock in a goroutine and returns a channel closed once it is
// granted.
func lockAsync(lc *LockCoordinator, path dfs_path.Path, exclusive bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		_ = lc.Lock(path, exclusive)
		close(done)
	}()
	return done
}

func assertBlocked(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("%s was granted while it should block", what)
	case <-time.After(blockWindow):
	}
}

func assertGranted(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s was not granted", what)
	}
}

func TestLockCoordinator_SharedLocksDoNotBlock(t *testing.T) {
	_, lc := newLockedTree(t)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- lc.Lock(p("/a/b"), false)
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	assertGranted(t, done, "concurrent shared locks")

	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
	}
	for i := 0; i < n; i++ {
		if err := lc.Unlock(p("/a/b"), false); err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
	}
}

func TestLockCoordinator_ExclusiveWaitsForSharedHolders(t *testing.T) {
	_, lc := newLockedTree(t)

	if err := lc.Lock(p("/a/b"), false); err != nil {
		t.Fatal(err)
	}
	if err := lc.Lock(p("/a/b"), false); err != nil {
		t.Fatal(err)
	}

	exclusive := lockAsync(lc, p("/a/b"), true)
	assertBlocked(t, exclusive, "exclusive lock with shared holders")

	_ = lc.Unlock(p("/a/b"), false)
	assertBlocked(t, exclusive, "exclusive lock with one shared holder left")

	_ = lc.Unlock(p("/a/b"), false)
	assertGranted(t, exclusive, "exclusive lock after shared holders released")

	shared := lockAsync(lc, p("/a/b"), false)
	assertBlocked(t, shared, "shared lock while exclusive is held")

	if err := lc.Unlock(p("/a/b"), true); err != nil {
		t.Fatalf("Unlock(exclusive) error = %v", err)
	}
	assertGranted(t, shared, "shared lock after exclusive released")
	_ = lc.Unlock(p("/a/b"), false)
}

func TestLockCoordinator_AncestorExclusiveBlocksDescendant(t *testing.T) {
	_, lc := newLockedTree(t)

	if err := lc.Lock(p("/a"), true); err != nil {
		t.Fatal(err)
	}

	child := lockAsync(lc, p("/a/b"), false)
	assertBlocked(t, child, "descendant lock under an exclusive ancestor")

	sibling := lockAsync(lc, p("/c"), true)
	assertGranted(t, sibling, "lock in an unrelated subtree")

	_ = lc.Unlock(p("/a"), true)
	assertGranted(t, child, "descendant lock after ancestor released")

	_ = lc.Unlock(p("/a/b"), false)
	_ = lc.Unlock(p("/c"), true)
}

func TestLockCoordinator_PendingExclusiveIsNotStarved(t *testing.T) {
	_, lc := newLockedTree(t)

	if err := lc.Lock(p("/c"), false); err != nil {
		t.Fatal(err)
	}
	exclusive := lockAsync(lc, p("/c"), true)
	assertBlocked(t, exclusive, "exclusive lock with a shared holder")

	lateReader := lockAsync(lc, p("/c"), false)
	assertBlocked(t, lateReader, "shared lock queued behind a waiting writer")

	_ = lc.Unlock(p("/c"), false)
	assertGranted(t, exclusive, "waiting exclusive lock")
	_ = lc.Unlock(p("/c"), true)
	assertGranted(t, lateReader, "queued shared lock")
	_ = lc.Unlock(p("/c"), false)
}

func TestLockCoordinator_UnlockErrors(t *testing.T) {
	tests := []struct {
		name      string
		setupFn   func(*LockCoordinator)
		path      string
		exclusive bool
		wantErr   error
	}{
		{name: "never locked shared", path: "/a/b", wantErr: ErrInvalidState},
		{name: "never locked exclusive", path: "/a/b", exclusive: true, wantErr: ErrInvalidState},
		{
			name:      "wrong mode",
			setupFn:   func(lc *LockCoordinator) { _ = lc.Lock(p("/a/b"), false) },
			path:      "/a/b",
			exclusive: true,
			wantErr:   ErrInvalidState,
		},
		{
			name:    "shared while exclusive held",
			setupFn: func(lc *LockCoordinator) { _ = lc.Lock(p("/a"), true) },
			path:    "/a",
			wantErr: ErrInvalidState,
		},
		{name: "missing path", path: "/missing", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, lc := newLockedTree(t)
			if tt.setupFn != nil {
				tt.setupFn(lc)
			}
			err := lc.Unlock(p(tt.path), tt.exclusive)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Unlock() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLockCoordinator_FailedUnlockKeepsAncestorsHeld(t *testing.T) {
	tr, lc := newLockedTree(t)
	if err := lc.Lock(p("/a/b"), false); err != nil {
		t.Fatal(err)
	}

	if err := lc.Unlock(p("/a/b"), true); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Unlock() error = %v", err)
	}

	readers, _ := tr.root.lock.holders()
	if readers != 1 {
		t.Errorf("root shared holders = %d after failed unlock, want 1", readers)
	}
	if err := lc.Unlock(p("/a/b"), false); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	readers, writer := tr.root.lock.holders()
	if readers != 0 || writer {
		t.Errorf("root still held after unlock: readers=%d writer=%v", readers, writer)
	}
}

func TestLockCoordinator_UnlockWithReleasedAncestorReleasesNothing(t *testing.T) {
	tr, lc := newLockedTree(t)
	if err := lc.Lock(p("/a/b"), false); err != nil {
		t.Fatal(err)
	}
	chain, err := lc.resolve(p("/a/b"))
	if err != nil {
		t.Fatal(err)
	}

	// Drop the root's shared hold behind the coordinator's back.
	if err := tr.root.lock.Unlock(false); err != nil {
		t.Fatal(err)
	}
	if err := lc.Unlock(p("/a/b"), false); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Unlock() error = %v, want %v", err, ErrInvalidState)
	}

	for _, n := range chain[1:] {
		if readers, _ := n.lock.holders(); readers != 1 {
			t.Errorf("shared holders = %d after refused unlock, want 1", readers)
		}
	}
}

func TestLockCoordinator_LockMissingPathReleasesAncestors(t *testing.T) {
	tr, lc := newLockedTree(t)

	if err := lc.Lock(p("/a/missing/deeper"), true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lock() error = %v, want %v", err, ErrNotFound)
	}
	if readers, writer := tr.root.lock.holders(); readers != 0 || writer {
		t.Errorf("root held after failed Lock: readers=%d writer=%v", readers, writer)
	}

	exclusive := lockAsync(lc, dfs_path.Root(), true)
	assertGranted(t, exclusive, "exclusive root lock after failed Lock")
	_ = lc.Unlock(dfs_path.Root(), true)
}

func TestLockCoordinator_OperationsDoNotWaitOnClientLocks(t *testing.T) {
	tr, lc := newLockedTree(t)
	if err := lc.Lock(p("/a"), true); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lc.Unlock(p("/a"), true) }()

	created, err := tr.Insert(p("/a/new"), KindFile, nil)
	if err != nil || !created {
		t.Fatalf("Insert() under a client lock = %v, %v", created, err)
	}
}
