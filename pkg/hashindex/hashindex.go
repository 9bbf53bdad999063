// Package hashindex implements the static-bucket hash index: an array of B
// unordered collision chains, keyed by a polynomial rolling hash of the
// key's stringified form. One Index backs one (table, column) secondary
// index and is persisted as a single file (see codec.go).
package hashindex

import (
	"storedb/pkg/key"
	"storedb/pkg/locator"
)

// DefaultBuckets is the bucket count used when none is given.
const DefaultBuckets = 200

type entry struct {
	key key.Key
	loc locator.Locator
}

// Index is a static-bucket hash index over one (table, column). Not safe
// for concurrent use.
type Index struct {
	buckets [][]entry
}

// New returns an empty index with the given bucket count.
func New(bucketCount int) *Index {
	if bucketCount < 1 {
		bucketCount = DefaultBuckets
	}
	return &Index{buckets: make([][]entry, bucketCount)}
}

// BucketCount returns the number of buckets.
func (ix *Index) BucketCount() int { return len(ix.buckets) }

// EntryCount returns the total number of entries across all buckets.
func (ix *Index) EntryCount() int {
	n := 0
	for _, b := range ix.buckets {
		n += len(b)
	}
	return n
}

// HashKey computes the bucket id for k under the given bucket count: a
// base-31 polynomial rolling hash over k's stringified form (None -> "NULL",
// numbers -> decimal, strings -> themselves), modulo 2^32, then modulo B.
// This is a wire contract: tests may rely on specific bucket assignments.
func HashKey(k key.Key, bucketCount int) int {
	var h uint32
	for _, b := range []byte(k.String()) {
		h = h*31 + uint32(b)
	}
	return int(h % uint32(bucketCount))
}

// Insert appends (k, loc) to the appropriate bucket. No uniqueness check:
// duplicate keys coexist.
func (ix *Index) Insert(k key.Key, loc locator.Locator) {
	b := HashKey(k, len(ix.buckets))
	ix.buckets[b] = append(ix.buckets[b], entry{key: k, loc: loc})
}

// Search returns every locator in k's bucket whose stored key structurally
// equals k.
func (ix *Index) Search(k key.Key) []locator.Locator {
	b := HashKey(k, len(ix.buckets))
	var out []locator.Locator
	for _, e := range ix.buckets[b] {
		if e.key.Equal(k) {
			out = append(out, e.loc)
		}
	}
	return out
}

// Delete removes the first entry matching both key and locator. Returns
// whether one was found.
func (ix *Index) Delete(k key.Key, loc locator.Locator) bool {
	b := HashKey(k, len(ix.buckets))
	for i, e := range ix.buckets[b] {
		if e.key.Equal(k) && e.loc == loc {
			ix.buckets[b] = append(ix.buckets[b][:i], ix.buckets[b][i+1:]...)
			return true
		}
	}
	return false
}

// Update is delete(oldKey, loc) followed by insert(newKey, loc), performed
// unconditionally even when oldKey equals newKey.
func (ix *Index) Update(oldKey, newKey key.Key, loc locator.Locator) {
	ix.Delete(oldKey, loc)
	ix.Insert(newKey, loc)
}
