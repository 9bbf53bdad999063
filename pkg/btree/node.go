package btree

import (
	"storedb/pkg/key"
	"storedb/pkg/locator"
)

// node is one B+-tree node. Leaves carry parallel keys/locs slices (one
// locator per key entry, duplicates allowed) and a next-leaf sibling
// pointer; internal nodes carry one more child than key, with child ci
// holding all keys in [keys[i-1], keys[i]).
type node struct {
	leaf     bool
	keys     []key.Key
	locs     []locator.Locator // leaf only, parallel to keys
	children []*node           // internal only, len == len(keys)+1
	next     *node             // leaf only: next_leaf sibling pointer
	parent   *node             // non-owning back-reference for split propagation
}

func newLeaf() *node { return &node{leaf: true} }

func newInternal() *node { return &node{leaf: false} }

func (n *node) isLeaf() bool { return n.leaf }

func (n *node) keyCount() int { return len(n.keys) }

func (n *node) childCount() int { return len(n.children) }

// childIndex finds the descent index for k: the smallest i such that
// k < keys[i], else the last child.
func (n *node) childIndex(k key.Key) int {
	for i, nk := range n.keys {
		if k.Compare(nk) < 0 {
			return i
		}
	}
	return len(n.children) - 1
}

// leafInsertAt inserts (k, loc) into a leaf's sorted parallel arrays,
// keeping duplicates in insertion order among equal keys.
func (n *node) leafInsertAt(k key.Key, loc locator.Locator) {
	i := 0
	for i < len(n.keys) && n.keys[i].Compare(k) <= 0 {
		i++
	}
	n.keys = append(n.keys, key.Key{})
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = k

	n.locs = append(n.locs, locator.Locator{})
	copy(n.locs[i+1:], n.locs[i:])
	n.locs[i] = loc
}

// childPosition returns the index of child within its parent's children
// slice, or -1 if not found.
func (parent *node) childPosition(child *node) int {
	for i, c := range parent.children {
		if c == child {
			return i
		}
	}
	return -1
}
