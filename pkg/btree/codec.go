package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"storedb/pkg/dberr"
	"storedb/pkg/key"
	"storedb/pkg/locator"
)

// Serialize encodes t as a single index file image: a header (table
// name, column name, order, total entry count), a length-prefixed recursive
// node encoding, and a trailing 8-byte xxhash checksum (additive integrity
// check) over everything before it.
func Serialize(t *Tree, table, column string) []byte {
	var out []byte
	out = appendLPString(out, table)
	out = appendLPString(out, column)
	out = appendI32(out, int32(t.order))
	out = appendI32(out, int32(countEntries(t.root)))

	blob := serializeNode(t.root, t.order)
	out = appendI32(out, int32(len(blob)))
	out = append(out, blob...)

	sum := xxhash.Sum64(out)
	sumBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(sumBuf, sum)
	return append(out, sumBuf...)
}

// Deserialize reverses Serialize, verifying the trailing checksum and
// repairing the full left-to-right next_leaf chain across the whole tree
// (not just siblings under one internal node).
func Deserialize(buf []byte) (tree *Tree, table, column string, err error) {
	if len(buf) < 8 {
		return nil, "", "", fmt.Errorf("%w: btree index file truncated", dberr.ErrDecodeFailure)
	}
	body := buf[:len(buf)-8]
	wantSum := binary.LittleEndian.Uint64(buf[len(buf)-8:])
	if xxhash.Sum64(body) != wantSum {
		return nil, "", "", fmt.Errorf("%w: btree index file checksum mismatch", dberr.ErrDecodeFailure)
	}

	off := 0
	table, n, err := readLPString(body[off:])
	if err != nil {
		return nil, "", "", err
	}
	off += n
	column, n, err = readLPString(body[off:])
	if err != nil {
		return nil, "", "", err
	}
	off += n

	order, n, err := readI32(body[off:])
	if err != nil {
		return nil, "", "", err
	}
	off += n
	_, n, err = readI32(body[off:]) // entry count, informational only
	if err != nil {
		return nil, "", "", err
	}
	off += n

	blobLen, n, err := readI32(body[off:])
	if err != nil {
		return nil, "", "", err
	}
	off += n
	if off+int(blobLen) > len(body) {
		return nil, "", "", fmt.Errorf("%w: btree tree blob truncated", dberr.ErrDecodeFailure)
	}
	blob := body[off : off+int(blobLen)]

	root, _, err := deserializeNode(blob)
	if err != nil {
		return nil, "", "", err
	}
	assignParents(root, nil)
	relinkLeaves(root)

	return &Tree{order: int(order), root: root}, table, column, nil
}

func countEntries(n *node) int {
	if n.isLeaf() {
		return n.keyCount()
	}
	total := 0
	for _, c := range n.children {
		total += countEntries(c)
	}
	return total
}

func serializeNode(n *node, order int) []byte {
	var out []byte
	out = append(out, 1) // present marker
	if n.leaf {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = appendI32(out, int32(order))
	out = appendI32(out, int32(n.keyCount()))
	for _, k := range n.keys {
		out = append(out, k.Encode()...)
	}
	if n.leaf {
		out = appendI32(out, int32(len(n.locs)))
		for _, loc := range n.locs {
			out = appendI32(out, loc.PageID)
			out = appendI32(out, loc.SlotID)
		}
	} else {
		out = appendI32(out, int32(len(n.children)))
		for _, c := range n.children {
			out = append(out, serializeNode(c, order)...)
		}
	}
	return out
}

func deserializeNode(buf []byte) (*node, int, error) {
	if len(buf) < 1 {
		return nil, 0, fmt.Errorf("%w: btree node truncated", dberr.ErrDecodeFailure)
	}
	off := 0
	present := buf[off]
	off++
	if present == 0 {
		return nil, off, nil
	}
	if off >= len(buf) {
		return nil, 0, fmt.Errorf("%w: btree node truncated", dberr.ErrDecodeFailure)
	}
	isLeaf := buf[off] == 1
	off++

	_, n, err := readI32(buf[off:]) // order, same for every node
	if err != nil {
		return nil, 0, err
	}
	off += n

	keyCount, n, err := readI32(buf[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n

	nd := &node{leaf: isLeaf}
	nd.keys = make([]key.Key, 0, keyCount)
	for i := int32(0); i < keyCount; i++ {
		k, consumed, err := key.Decode(buf[off:])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", dberr.ErrDecodeFailure, err)
		}
		off += consumed
		nd.keys = append(nd.keys, k)
	}

	if isLeaf {
		valCount, n, err := readI32(buf[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		nd.locs = make([]locator.Locator, 0, valCount)
		for i := int32(0); i < valCount; i++ {
			pageID, n, err := readI32(buf[off:])
			if err != nil {
				return nil, 0, err
			}
			off += n
			slotID, n, err := readI32(buf[off:])
			if err != nil {
				return nil, 0, err
			}
			off += n
			nd.locs = append(nd.locs, locator.Locator{PageID: pageID, SlotID: slotID})
		}
	} else {
		childCount, n, err := readI32(buf[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		nd.children = make([]*node, 0, childCount)
		for i := int32(0); i < childCount; i++ {
			child, consumed, err := deserializeNode(buf[off:])
			if err != nil {
				return nil, 0, err
			}
			off += consumed
			nd.children = append(nd.children, child)
		}
	}

	return nd, off, nil
}

func assignParents(n *node, parent *node) {
	n.parent = parent
	if !n.isLeaf() {
		for _, c := range n.children {
			assignParents(c, n)
		}
	}
}

// relinkLeaves repairs the full next_leaf chain across the whole tree with
// one left-to-right walk, rather than relinking only the immediate
// siblings under each internal node.
func relinkLeaves(root *node) {
	var leaves []*node
	var walk func(n *node)
	walk = func(n *node) {
		if n.isLeaf() {
			leaves = append(leaves, n)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(root)
	for i, l := range leaves {
		if i+1 < len(leaves) {
			l.next = leaves[i+1]
		} else {
			l.next = nil
		}
	}
}

func appendI32(out []byte, v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return append(out, b...)
}

func readI32(buf []byte) (int32, int, error) {
	if len(buf) < 4 {
		return 0, 0, fmt.Errorf("%w: i32 truncated", dberr.ErrDecodeFailure)
	}
	return int32(binary.LittleEndian.Uint32(buf[0:4])), 4, nil
}

func appendLPString(out []byte, s string) []byte {
	out = appendI32(out, int32(len(s)))
	return append(out, s...)
}

func readLPString(buf []byte) (string, int, error) {
	n, consumed, err := readI32(buf)
	if err != nil {
		return "", 0, err
	}
	if consumed+int(n) > len(buf) {
		return "", 0, fmt.Errorf("%w: string body truncated", dberr.ErrDecodeFailure)
	}
	return string(buf[consumed : consumed+int(n)]), consumed + int(n), nil
}
