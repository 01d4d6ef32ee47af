package directory_tree

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
)

var p = dfs_path.MustParse

func TestTree_Insert(t *testing.T) {
	tests := []struct {
		name    string
		setupFn func(*Tree)
		path    string
		kind    Kind
		want    bool
		wantErr error
	}{
		{name: "directory under root", path: "/a", kind: KindDirectory, want: true},
		{name: "file under root", path: "/f", kind: KindFile, want: true},
		{
			name:    "file under existing directory",
			setupFn: func(tr *Tree) { _, _ = tr.Insert(p("/a"), KindDirectory, nil) },
			path:    "/a/b",
			kind:    KindFile,
			want:    true,
		},
		{
			name:    "duplicate name",
			setupFn: func(tr *Tree) { _, _ = tr.Insert(p("/a"), KindDirectory, nil) },
			path:    "/a",
			kind:    KindFile,
			want:    false,
		},
		{name: "missing parent", path: "/x/y", kind: KindFile, wantErr: ErrNotFound},
		{
			name:    "parent is a file",
			setupFn: func(tr *Tree) { _, _ = tr.Insert(p("/f"), KindFile, nil) },
			path:    "/f/y",
			kind:    KindFile,
			wantErr: ErrNotFound,
		},
		{name: "root", path: "/", kind: KindDirectory, wantErr: ErrInvalidRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTree()
			if tt.setupFn != nil {
				tt.setupFn(tr)
			}

			got, err := tr.Insert(p(tt.path), tt.kind, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Insert() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Insert() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Insert() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTree_InsertCommitFailureLeavesTreeUntouched(t *testing.T) {
	tr := NewTree()
	boom := errors.New("remote create failed")

	created, err := tr.Insert(p("/f"), KindFile, func() error { return boom })
	if !errors.Is(err, boom) || created {
		t.Fatalf("Insert() = %v, %v; want false, %v", created, err, boom)
	}
	if _, err := tr.Stat(p("/f")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat() after failed commit error = %v, want %v", err, ErrNotFound)
	}
}

func TestTree_InsertSkipsCommitForExistingName(t *testing.T) {
	tr := NewTree()
	_, _ = tr.Insert(p("/f"), KindFile, nil)

	calls := 0
	created, err := tr.Insert(p("/f"), KindFile, func() error { calls++; return nil })
	if err != nil || created {
		t.Fatalf("Insert() = %v, %v; want false, nil", created, err)
	}
	if calls != 0 {
		t.Errorf("commit called %d times for an existing name", calls)
	}
}

func TestTree_StatAndList(t *testing.T) {
	tr := NewTree()
	_, _ = tr.Insert(p("/a"), KindDirectory, nil)
	_, _ = tr.Insert(p("/a/x"), KindFile, nil)
	_, _ = tr.Insert(p("/a/y"), KindDirectory, nil)

	kind, err := tr.Stat(dfs_path.Root())
	if err != nil || kind != KindDirectory {
		t.Errorf("Stat(/) = %v, %v", kind, err)
	}
	kind, err = tr.Stat(p("/a/x"))
	if err != nil || kind != KindFile {
		t.Errorf("Stat(/a/x) = %v, %v", kind, err)
	}
	if _, err := tr.Stat(p("/a/x/z")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat() through a file error = %v, want %v", err, ErrNotFound)
	}

	names, err := tr.List(p("/a"))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !slices.Equal(names, []string{"x", "y"}) {
		t.Errorf("List() = %v, want [x y]", names)
	}
	if _, err := tr.List(p("/a/x")); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("List() on file error = %v, want %v", err, ErrNotDirectory)
	}
	if _, err := tr.List(p("/nope")); !errors.Is(err, ErrNotFound) {
		t.Errorf("List() on missing error = %v, want %v", err, ErrNotFound)
	}
}

func TestTree_Remove(t *testing.T) {
	tr := NewTree()
	_, _ = tr.Insert(p("/a"), KindDirectory, nil)
	_, _ = tr.Insert(p("/a/x"), KindFile, nil)

	var removedKind Kind = -1
	if err := tr.Remove(p("/a"), func(k Kind) error { removedKind = k; return nil }); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if removedKind != KindDirectory {
		t.Errorf("cleanup saw kind %v, want directory", removedKind)
	}
	if _, err := tr.Stat(p("/a/x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat() after Remove error = %v", err)
	}

	if err := tr.Remove(p("/a"), nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove() error = %v, want %v", err, ErrNotFound)
	}
	if err := tr.Remove(dfs_path.Root(), nil); !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("Remove(/) error = %v, want %v", err, ErrInvalidRoot)
	}
}

func TestTree_RemoveKeepsDetachOnCleanupFailure(t *testing.T) {
	tr := NewTree()
	_, _ = tr.Insert(p("/f"), KindFile, nil)
	boom := errors.New("remote delete failed")

	if err := tr.Remove(p("/f"), func(Kind) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Remove() error = %v, want %v", err, boom)
	}
	if _, err := tr.Stat(p("/f")); !errors.Is(err, ErrNotFound) {
		t.Errorf("node reattached after cleanup failure: %v", err)
	}
}

func TestTree_Graft(t *testing.T) {
	tr := NewTree()
	_, _ = tr.Insert(p("/p"), KindDirectory, nil)
	_, _ = tr.Insert(p("/p/q"), KindFile, nil)

	var accepted []string
	rejected := tr.Graft(
		[]dfs_path.Path{dfs_path.Root(), p("/p/q"), p("/new/path"), p("/p/q/under-file"), p("/new/path")},
		func(f dfs_path.Path) { accepted = append(accepted, f.String()) },
	)

	var got []string
	for _, r := range rejected {
		got = append(got, r.String())
	}
	if want := []string{"/p/q", "/p/q/under-file", "/new/path"}; !slices.Equal(got, want) {
		t.Errorf("rejected = %v, want %v", got, want)
	}
	if !slices.Equal(accepted, []string{"/new/path"}) {
		t.Errorf("accepted = %v, want [/new/path]", accepted)
	}

	kind, err := tr.Stat(p("/new"))
	if err != nil || kind != KindDirectory {
		t.Errorf("intermediate directory = %v, %v", kind, err)
	}
	kind, err = tr.Stat(p("/new/path"))
	if err != nil || kind != KindFile {
		t.Errorf("grafted file = %v, %v", kind, err)
	}
}

func TestTree_ConcurrentInsertsAndGrafts(t *testing.T) {
	tr := NewTree()
	_, _ = tr.Insert(p("/shared"), KindDirectory, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = tr.Insert(p(fmt.Sprintf("/shared/f%d", i)), KindFile, nil)
		}(i)
		go func(i int) {
			defer wg.Done()
			tr.Graft([]dfs_path.Path{p(fmt.Sprintf("/shared/g%d/file", i))}, nil)
		}(i)
	}
	wg.Wait()

	names, err := tr.List(p("/shared"))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 40 {
		t.Errorf("List() returned %d entries, want 40", len(names))
	}
}
