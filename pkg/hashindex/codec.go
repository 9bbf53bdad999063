package hashindex

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"storedb/pkg/dberr"
	"storedb/pkg/key"
	"storedb/pkg/locator"
)

// Serialize encodes ix as a single index file image: a header (table
// name, column name, bucket count, total entry count), then per non-empty
// bucket a bucket id, its entry count, and its entries, followed by a
// trailing 8-byte xxhash checksum over everything before it.
func Serialize(ix *Index, table, column string) []byte {
	var out []byte
	out = appendLPString(out, table)
	out = appendLPString(out, column)
	out = appendI32(out, int32(len(ix.buckets)))
	out = appendI32(out, int32(ix.EntryCount()))

	for id, bucket := range ix.buckets {
		if len(bucket) == 0 {
			continue
		}
		out = appendI32(out, int32(id))
		out = appendI32(out, int32(len(bucket)))
		for _, e := range bucket {
			out = append(out, e.key.Encode()...)
			out = appendI32(out, e.loc.PageID)
			out = appendI32(out, e.loc.SlotID)
		}
	}

	sum := xxhash.Sum64(out)
	sumBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(sumBuf, sum)
	return append(out, sumBuf...)
}

// Deserialize reverses Serialize, verifying the trailing checksum.
func Deserialize(buf []byte) (ix *Index, table, column string, err error) {
	if len(buf) < 8 {
		return nil, "", "", fmt.Errorf("%w: hash index file truncated", dberr.ErrDecodeFailure)
	}
	body := buf[:len(buf)-8]
	wantSum := binary.LittleEndian.Uint64(buf[len(buf)-8:])
	if xxhash.Sum64(body) != wantSum {
		return nil, "", "", fmt.Errorf("%w: hash index file checksum mismatch", dberr.ErrDecodeFailure)
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

	bucketCount, n, err := readI32(body[off:])
	if err != nil {
		return nil, "", "", err
	}
	off += n
	entryCount, n, err := readI32(body[off:])
	if err != nil {
		return nil, "", "", err
	}
	off += n

	ix = New(int(bucketCount))
	seen := 0
	for seen < int(entryCount) {
		if off >= len(body) {
			return nil, "", "", fmt.Errorf("%w: hash index file truncated mid-bucket", dberr.ErrDecodeFailure)
		}
		bucketID, n, err := readI32(body[off:])
		if err != nil {
			return nil, "", "", err
		}
		off += n
		bucketEntryCount, n, err := readI32(body[off:])
		if err != nil {
			return nil, "", "", err
		}
		off += n
		for i := int32(0); i < bucketEntryCount; i++ {
			k, consumed, err := key.Decode(body[off:])
			if err != nil {
				return nil, "", "", fmt.Errorf("%w: %v", dberr.ErrDecodeFailure, err)
			}
			off += consumed
			pageID, n, err := readI32(body[off:])
			if err != nil {
				return nil, "", "", err
			}
			off += n
			slotID, n, err := readI32(body[off:])
			if err != nil {
				return nil, "", "", err
			}
			off += n
			ix.buckets[bucketID] = append(ix.buckets[bucketID], entry{key: k, loc: locator.Locator{PageID: pageID, SlotID: slotID}})
			seen++
		}
	}

	return ix, table, column, nil
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
