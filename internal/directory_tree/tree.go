package directory_tree

import (
	"fmt"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
)

// Tree is the in-memory namespace of the naming server. Every method walks
// from the root taking shared latches on the proper ancestors of its target
// and the requested mode on the target itself, releasing in reverse order.
type Tree struct {
	root *Node
}

func NewTree() *Tree {
	return &Tree{root: newNode("", KindDirectory)}
}

// latchPath acquires the latch chain for p. The returned slice runs from the
// root to the node for p.
func (t *Tree) latchPath(p dfs_path.Path, exclusive bool) ([]*Node, error) {
	components := p.Components()
	chain := make([]*Node, 0, len(components)+1)

	cur := t.root
	for _, c := range components {
		cur.latch.RLock()
		chain = append(chain, cur)

		next, ok := cur.child(c)
		if !ok {
			releaseShared(chain)
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		cur = next
	}

	if exclusive {
		cur.latch.Lock()
	} else {
		cur.latch.RLock()
	}
	return append(chain, cur), nil
}

func (t *Tree) unlatch(chain []*Node, exclusive bool) {
	target := chain[len(chain)-1]
	if exclusive {
		target.latch.Unlock()
	} else {
		target.latch.RUnlock()
	}
	releaseShared(chain[:len(chain)-1])
}

func releaseShared(nodes []*Node) {
	for i := len(nodes) - 1; i >= 0; i-- {
		nodes[i].latch.RUnlock()
	}
}

// Stat returns the kind of the node at p.
func (t *Tree) Stat(p dfs_path.Path) (Kind, error) {
	chain, err := t.latchPath(p, false)
	if err != nil {
		return 0, err
	}
	defer t.unlatch(chain, false)

	return chain[len(chain)-1].kind, nil
}

// List returns the sorted names of the immediate children of directory p.
func (t *Tree) List(p dfs_path.Path) ([]string, error) {
	chain, err := t.latchPath(p, false)
	if err != nil {
		return nil, err
	}
	defer t.unlatch(chain, false)

	dir := chain[len(chain)-1]
	if !dir.IsDirectory() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, p)
	}
	return dir.childNames(), nil
}

// Insert adds a node of the given kind at p. It returns false when an entry
// with that name already exists. commit, when non-nil, runs while the parent
// is latched exclusively and before the node becomes visible; if it fails the
// tree is left untouched.
func (t *Tree) Insert(p dfs_path.Path, kind Kind, commit func() error) (bool, error) {
	if p.IsRoot() {
		return false, ErrInvalidRoot
	}
	parent, _ := p.Parent()
	name, _ := p.Last()

	chain, err := t.latchPath(parent, true)
	if err != nil {
		return false, err
	}
	defer t.unlatch(chain, true)

	dir := chain[len(chain)-1]
	if !dir.IsDirectory() {
		return false, fmt.Errorf("%w: parent of %s is a file", ErrNotFound, p)
	}
	if _, exists := dir.child(name); exists {
		return false, nil
	}

	if commit != nil {
		if err := commit(); err != nil {
			return false, err
		}
	}

	dir.children[name] = newNode(name, kind)
	return true, nil
}

// Remove detaches the node at p from its parent, then runs cleanup with the
// kind of the removed node while the parent is still latched. A cleanup
// failure is returned but the detach is not undone.
func (t *Tree) Remove(p dfs_path.Path, cleanup func(kind Kind) error) error {
	if p.IsRoot() {
		return ErrInvalidRoot
	}
	parent, _ := p.Parent()
	name, _ := p.Last()

	chain, err := t.latchPath(parent, true)
	if err != nil {
		return err
	}
	defer t.unlatch(chain, true)

	dir := chain[len(chain)-1]
	removed, ok := dir.child(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	delete(dir.children, name)

	if cleanup == nil {
		return nil
	}
	return cleanup(removed.kind)
}

// Graft adds a file node for every path in files, creating missing
// intermediate directories. Paths that collide with an existing node, or that
// run through an existing file, are returned as rejected. accept is called
// for every grafted path while the tree is still latched. The root is
// skipped.
func (t *Tree) Graft(files []dfs_path.Path, accept func(dfs_path.Path)) []dfs_path.Path {
	t.root.latch.Lock()
	defer t.root.latch.Unlock()

	var rejected []dfs_path.Path
	for _, file := range files {
		if file.IsRoot() {
			continue
		}
		if !t.graftOne(file) {
			rejected = append(rejected, file)
			continue
		}
		if accept != nil {
			accept(file)
		}
	}
	return rejected
}

// graftOne must be called with the root latched exclusively. That keeps every
// other tree operation out, but LockCoordinator reads single nodes under their
// own latch, so writes below the root still take the node's latch.
func (t *Tree) graftOne(file dfs_path.Path) bool {
	components := file.Components()
	cur := t.root
	for _, c := range components[:len(components)-1] {
		next, ok := cur.child(c)
		if !ok {
			next = newNode(c, KindDirectory)
			t.attach(cur, next)
		}
		if !next.IsDirectory() {
			return false
		}
		cur = next
	}

	name := components[len(components)-1]
	if _, exists := cur.child(name); exists {
		return false
	}
	t.attach(cur, newNode(name, KindFile))
	return true
}

func (t *Tree) attach(dir, n *Node) {
	if dir != t.root {
		dir.latch.Lock()
		defer dir.latch.Unlock()
	}
	dir.children[n.name] = n
}
