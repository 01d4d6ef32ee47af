package directory_tree

import (
	"sort"
	"sync"
)

type Kind int

const (
	KindDirectory Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "directory"
}

// Node is one entry of the tree. Nodes hold no parent pointer; ancestors are
// found again by walking from the root.
//
// lock is the client-visible lock driven by Lock/Unlock. latch guards the
// children map and is only held for the duration of a single tree operation.
type Node struct {
	name     string
	kind     Kind
	children map[string]*Node

	lock  *RWLock
	latch sync.RWMutex
}

func newNode(name string, kind Kind) *Node {
	n := &Node{
		name: name,
		kind: kind,
		lock: NewRWLock(),
	}
	if kind == KindDirectory {
		n.children = make(map[string]*Node)
	}
	return n
}

func (n *Node) Name() string { return n.name }

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) IsDirectory() bool { return n.kind == KindDirectory }

// child must be called with n.latch held.
func (n *Node) child(name string) (*Node, bool) {
	if n.children == nil {
		return nil, false
	}
	c, ok := n.children[name]
	return c, ok
}

// childNames must be called with n.latch held.
func (n *Node) childNames() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
