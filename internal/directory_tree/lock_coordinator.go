package directory_tree

import (
	"fmt"

	"github.com/AnishMulay/sanddfs/internal/dfs_path"
)

// LockCoordinator implements the client-visible locking protocol: a shared
// lock on every proper ancestor in root-to-leaf order, then the requested
// mode on the target. Paths that must be held together are acquired in
// increasing dfs_path.Path.Compare order.
type LockCoordinator struct {
	tree *Tree
}

func NewLockCoordinator(tree *Tree) *LockCoordinator {
	return &LockCoordinator{tree: tree}
}

func (lc *LockCoordinator) Lock(p dfs_path.Path, exclusive bool) error {
	components := p.Components()
	held := make([]*Node, 0, len(components))

	cur := lc.tree.root
	for _, c := range components {
		cur.lock.Lock(false)
		held = append(held, cur)

		next, ok := readChild(cur, c)
		if !ok {
			for i := len(held) - 1; i >= 0; i-- {
				_ = held[i].lock.Unlock(false)
			}
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		cur = next
	}

	cur.lock.Lock(exclusive)
	return nil
}

// Unlock releases the target first and then the ancestors from leaf to root.
// Nothing is released if the target is not held in the given mode or an
// ancestor holds no shared lock. A concurrent mismatched Unlock can still
// empty an ancestor between that check and the release; the chain is then
// left partially released and the error says so.
func (lc *LockCoordinator) Unlock(p dfs_path.Path, exclusive bool) error {
	chain, err := lc.resolve(p)
	if err != nil {
		return err
	}

	target := len(chain) - 1
	if !chain[target].lock.held(exclusive) {
		return fmt.Errorf("unlock %s: %w", p, ErrInvalidState)
	}
	for i := target - 1; i >= 0; i-- {
		if !chain[i].lock.held(false) {
			return fmt.Errorf("unlock %s: ancestor %d not held: %w", p, i, ErrInvalidState)
		}
	}

	if err := chain[target].lock.Unlock(exclusive); err != nil {
		return fmt.Errorf("unlock %s: %w", p, err)
	}
	for i := target - 1; i >= 0; i-- {
		if err := chain[i].lock.Unlock(false); err != nil {
			return fmt.Errorf("unlock %s: partially released, ancestor %d: %w", p, i, err)
		}
	}
	return nil
}

func (lc *LockCoordinator) resolve(p dfs_path.Path) ([]*Node, error) {
	components := p.Components()
	chain := make([]*Node, 0, len(components)+1)

	cur := lc.tree.root
	chain = append(chain, cur)
	for _, c := range components {
		next, ok := readChild(cur, c)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		cur = next
		chain = append(chain, cur)
	}
	return chain, nil
}

func readChild(n *Node, name string) (*Node, bool) {
	n.latch.RLock()
	defer n.latch.RUnlock()
	return n.child(name)
}
