// Package codec implements the primitive column encodings: fixed-width
// integer, fixed-width float, fixed-length padded text, and length-prefixed
// variable text. These are pure functions over byte buffers; pkg/row
// composes them per schema.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"storedb/pkg/dberr"
)

// IntSize is the encoded width of an int column.
const IntSize = 4

// FloatSize is the encoded width of a float column.
const FloatSize = 4

// VarcharLenPrefixSize is the width of a varchar's length prefix.
const VarcharLenPrefixSize = 4

// EncodeInt packs v as 4 little-endian bytes.
func EncodeInt(v int32) []byte {
	buf := make([]byte, IntSize)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

// DecodeInt reverses EncodeInt.
func DecodeInt(buf []byte) (int32, error) {
	if len(buf) < IntSize {
		return 0, fmt.Errorf("%w: int needs %d bytes, got %d", dberr.ErrDecodeFailure, IntSize, len(buf))
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
}

// EncodeFloat packs v as 4 bytes, IEEE-754 single precision.
func EncodeFloat(v float32) []byte {
	buf := make([]byte, FloatSize)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

// DecodeFloat reverses EncodeFloat, rounding to two fractional decimal
// digits. This is a documented, lossy contract: callers must not expect
// bit-exact round trips of arbitrary float32 values.
func DecodeFloat(buf []byte) (float32, error) {
	if len(buf) < FloatSize {
		return 0, fmt.Errorf("%w: float needs %d bytes, got %d", dberr.ErrDecodeFailure, FloatSize, len(buf))
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(buf))
	rounded := math.Round(float64(v)*100) / 100
	return float32(rounded), nil
}

// EncodeChar UTF-8 encodes v, truncates to n bytes, and right-pads with NUL
// to exactly n bytes.
func EncodeChar(v string, n int) []byte {
	buf := make([]byte, n)
	b := []byte(v)
	if len(b) > n {
		b = b[:n]
	}
	copy(buf, b)
	return buf
}

// DecodeChar strips trailing NUL padding.
func DecodeChar(buf []byte) string {
	return strings.TrimRight(string(buf), "\x00")
}

// EncodeVarchar UTF-8 encodes v, truncates to maxN bytes, and prepends a
// 4-byte LE length.
func EncodeVarchar(v string, maxN int) []byte {
	b := []byte(v)
	if len(b) > maxN {
		b = b[:maxN]
	}
	out := make([]byte, VarcharLenPrefixSize+len(b))
	binary.LittleEndian.PutUint32(out, uint32(len(b)))
	copy(out[VarcharLenPrefixSize:], b)
	return out
}

// DecodeVarchar reads the length prefix then that many bytes, returning the
// decoded string and the total bytes consumed.
func DecodeVarchar(buf []byte) (string, int, error) {
	if len(buf) < VarcharLenPrefixSize {
		return "", 0, fmt.Errorf("%w: varchar length prefix truncated", dberr.ErrDecodeFailure)
	}
	n := int(binary.LittleEndian.Uint32(buf))
	end := VarcharLenPrefixSize + n
	if end > len(buf) {
		return "", 0, fmt.Errorf("%w: varchar body truncated: need %d bytes, have %d", dberr.ErrDecodeFailure, end, len(buf))
	}
	return string(buf[VarcharLenPrefixSize:end]), end, nil
}
