// Package row implements the schema-driven record serializer: it
// concatenates per-column codec encodings into a single record byte string
// and decodes that string back into a name-to-value mapping. The serialized
// form is not self-describing; it requires the schema to interpret.
package row

import (
	"fmt"

	"storedb/pkg/codec"
	"storedb/pkg/dberr"
	"storedb/pkg/schema"
)

// Record is an attribute-name to value mapping. Values are int32, float32,
// or string, matching the schema's int/float/char/varchar attribute types.
type Record map[string]interface{}

// Serialize encodes rec as a single byte string, iterating s's attributes in
// schema order.
func Serialize(s *schema.Schema, rec Record) ([]byte, error) {
	var out []byte
	for _, attr := range s.Attributes {
		v, ok := rec[attr.Name]
		if !ok {
			return nil, fmt.Errorf("%w: record missing attribute %q", dberr.ErrDecodeFailure, attr.Name)
		}
		switch attr.Type {
		case schema.TypeInt:
			iv, err := toInt32(v)
			if err != nil {
				return nil, fmt.Errorf("%w: attribute %q: %v", dberr.ErrDecodeFailure, attr.Name, err)
			}
			out = append(out, codec.EncodeInt(iv)...)
		case schema.TypeFloat:
			fv, err := toFloat32(v)
			if err != nil {
				return nil, fmt.Errorf("%w: attribute %q: %v", dberr.ErrDecodeFailure, attr.Name, err)
			}
			out = append(out, codec.EncodeFloat(fv)...)
		case schema.TypeChar:
			sv, err := toString(v)
			if err != nil {
				return nil, fmt.Errorf("%w: attribute %q: %v", dberr.ErrDecodeFailure, attr.Name, err)
			}
			out = append(out, codec.EncodeChar(sv, attr.Size)...)
		case schema.TypeVarchar:
			sv, err := toString(v)
			if err != nil {
				return nil, fmt.Errorf("%w: attribute %q: %v", dberr.ErrDecodeFailure, attr.Name, err)
			}
			out = append(out, codec.EncodeVarchar(sv, attr.Size)...)
		default:
			return nil, fmt.Errorf("%w: attribute %q has unknown type %q", dberr.ErrDecodeFailure, attr.Name, attr.Type)
		}
	}
	return out, nil
}

// Deserialize reverses Serialize, advancing an offset cursor through buf
// according to s's attribute order.
func Deserialize(s *schema.Schema, buf []byte) (Record, error) {
	rec := make(Record, len(s.Attributes))
	off := 0
	for _, attr := range s.Attributes {
		switch attr.Type {
		case schema.TypeInt:
			if off+codec.IntSize > len(buf) {
				return nil, fmt.Errorf("%w: record truncated at %q", dberr.ErrDecodeFailure, attr.Name)
			}
			v, err := codec.DecodeInt(buf[off : off+codec.IntSize])
			if err != nil {
				return nil, err
			}
			rec[attr.Name] = v
			off += codec.IntSize
		case schema.TypeFloat:
			if off+codec.FloatSize > len(buf) {
				return nil, fmt.Errorf("%w: record truncated at %q", dberr.ErrDecodeFailure, attr.Name)
			}
			v, err := codec.DecodeFloat(buf[off : off+codec.FloatSize])
			if err != nil {
				return nil, err
			}
			rec[attr.Name] = v
			off += codec.FloatSize
		case schema.TypeChar:
			if off+attr.Size > len(buf) {
				return nil, fmt.Errorf("%w: record truncated at %q", dberr.ErrDecodeFailure, attr.Name)
			}
			rec[attr.Name] = codec.DecodeChar(buf[off : off+attr.Size])
			off += attr.Size
		case schema.TypeVarchar:
			v, consumed, err := codec.DecodeVarchar(buf[off:])
			if err != nil {
				return nil, err
			}
			rec[attr.Name] = v
			off += consumed
		default:
			return nil, fmt.Errorf("%w: attribute %q has unknown type %q", dberr.ErrDecodeFailure, attr.Name, attr.Type)
		}
	}
	return rec, nil
}

func toInt32(v interface{}) (int32, error) {
	switch n := v.(type) {
	case int32:
		return n, nil
	case int:
		return int32(n), nil
	case int64:
		return int32(n), nil
	default:
		return 0, fmt.Errorf("value %v is not an int", v)
	}
}

func toFloat32(v interface{}) (float32, error) {
	switch n := v.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	default:
		return 0, fmt.Errorf("value %v is not a float", v)
	}
}

func toString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("value %v is not a string", v)
	}
	return s, nil
}
