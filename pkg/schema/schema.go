// Package schema implements the attribute/schema data model and the
// table-name-to-schema catalog, including schema.dat persistence.
package schema

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"sync"

	"storedb/pkg/dberr"
)

// Attribute types recognized by the codec.
const (
	TypeInt     = "int"
	TypeFloat   = "float"
	TypeChar    = "char"
	TypeVarchar = "varchar"
)

// Attribute is a (name, type, declared-size) triple.
type Attribute struct {
	Name string
	Type string
	Size int
}

// Schema is an ordered sequence of attributes with unique names.
type Schema struct {
	Attributes []Attribute
}

// New builds a Schema, rejecting duplicate attribute names.
func New(attrs ...Attribute) (*Schema, error) {
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		if seen[a.Name] {
			return nil, fmt.Errorf("%w: duplicate attribute %q", dberr.ErrDecodeFailure, a.Name)
		}
		seen[a.Name] = true
	}
	cp := make([]Attribute, len(attrs))
	copy(cp, attrs)
	return &Schema{Attributes: cp}, nil
}

// Find returns the attribute with the given name.
func (s *Schema) Find(name string) (Attribute, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Names returns attribute names in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Attributes))
	for i, a := range s.Attributes {
		out[i] = a.Name
	}
	return out
}

// RowLength computes l_r deterministically from the schema: int=4, float=4,
// char=declared-size, varchar=4+floor(declared-size/2).
func (s *Schema) RowLength() int {
	total := 0
	for _, a := range s.Attributes {
		switch a.Type {
		case TypeInt, TypeFloat:
			total += 4
		case TypeChar:
			total += a.Size
		case TypeVarchar:
			total += 4 + a.Size/2
		}
	}
	return total
}

// Encode serializes the schema to its self-describing byte form: attribute
// count (2 bytes LE), then per attribute a length-prefixed UTF-8 name,
// length-prefixed UTF-8 type tag, and a 2-byte LE declared size.
func (s *Schema) Encode() []byte {
	var out []byte
	out = append(out, le16(uint16(len(s.Attributes)))...)
	for _, a := range s.Attributes {
		out = append(out, le16(uint16(len(a.Name)))...)
		out = append(out, a.Name...)
		out = append(out, le16(uint16(len(a.Type)))...)
		out = append(out, a.Type...)
		out = append(out, le16(uint16(a.Size))...)
	}
	return out
}

// Decode parses Encode's byte form.
func Decode(buf []byte) (*Schema, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: schema blob truncated", dberr.ErrDecodeFailure)
	}
	n := int(binary.LittleEndian.Uint16(buf[0:2]))
	off := 2
	attrs := make([]Attribute, 0, n)
	for i := 0; i < n; i++ {
		name, consumed, err := readLPString(buf[off:])
		if err != nil {
			return nil, err
		}
		off += consumed
		typ, consumed, err := readLPString(buf[off:])
		if err != nil {
			return nil, err
		}
		off += consumed
		if off+2 > len(buf) {
			return nil, fmt.Errorf("%w: schema blob truncated at declared size", dberr.ErrDecodeFailure)
		}
		size := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
		attrs = append(attrs, Attribute{Name: name, Type: typ, Size: size})
	}
	return New(attrs...)
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func readLPString(buf []byte) (string, int, error) {
	if len(buf) < 2 {
		return "", 0, fmt.Errorf("%w: length-prefixed string truncated", dberr.ErrDecodeFailure)
	}
	n := int(binary.LittleEndian.Uint16(buf[0:2]))
	if 2+n > len(buf) {
		return "", 0, fmt.Errorf("%w: length-prefixed string body truncated", dberr.ErrDecodeFailure)
	}
	return string(buf[2 : 2+n]), 2 + n, nil
}

// Catalog maps table name to Schema. Table names are case-sensitive (see
// storage's heap-file lookup, which is not). A Catalog is owned by exactly
// one storage.Manager for its lifetime.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*Schema
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*Schema)}
}

// Put registers or replaces a table's schema.
func (c *Catalog) Put(table string, s *Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[table] = s
}

// Get returns the schema for table, and whether it was found.
func (c *Catalog) Get(table string) (*Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.tables[table]
	return s, ok
}

// Delete removes table from the catalog.
func (c *Catalog) Delete(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, table)
}

// Names returns all table names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tables))
	for name := range c.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Save writes the catalog in schema.dat's layout: i32 LE table count, then
// per table an i32 LE name length + name bytes and an i32 LE schema-blob
// length + schema blob.
func (c *Catalog) Save(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := writeI32(w, int32(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		if err := writeI32(w, int32(len(name))); err != nil {
			return err
		}
		if _, err := w.Write([]byte(name)); err != nil {
			return err
		}
		blob := c.tables[name].Encode()
		if err := writeI32(w, int32(len(blob))); err != nil {
			return err
		}
		if _, err := w.Write(blob); err != nil {
			return err
		}
	}
	return nil
}

// LoadCatalog reads schema.dat's layout produced by Save.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	count, err := readI32(r)
	if err != nil {
		return nil, err
	}
	cat := NewCatalog()
	for i := int32(0); i < count; i++ {
		nameLen, err := readI32(r)
		if err != nil {
			return nil, err
		}
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return nil, fmt.Errorf("%w: table name truncated: %v", dberr.ErrDecodeFailure, err)
		}
		blobLen, err := readI32(r)
		if err != nil {
			return nil, err
		}
		blob := make([]byte, blobLen)
		if _, err := io.ReadFull(r, blob); err != nil {
			return nil, fmt.Errorf("%w: schema blob truncated: %v", dberr.ErrDecodeFailure, err)
		}
		s, err := Decode(blob)
		if err != nil {
			return nil, err
		}
		cat.Put(string(nameBuf), s)
	}
	return cat, nil
}

func writeI32(w io.Writer, v int32) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	_, err := w.Write(b)
	return err
}

func readI32(r io.Reader) (int32, error) {
	b := make([]byte, 4)
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("%w: i32 truncated: %v", dberr.ErrDecodeFailure, err)
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}
