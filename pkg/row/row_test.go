package row

import (
	"testing"

	"storedb/pkg/schema"
)

func studentSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(
		schema.Attribute{Name: "StudentID", Type: schema.TypeInt, Size: 4},
		schema.Attribute{Name: "FullName", Type: schema.TypeVarchar, Size: 50},
		schema.Attribute{Name: "GPA", Type: schema.TypeFloat, Size: 4},
	)
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	s := studentSchema(t)
	rec := Record{
		"StudentID": int32(999),
		"FullName":  "Test Student",
		"GPA":       float32(3.75),
	}

	buf, err := Serialize(s, rec)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	wantLen := 4 + (4 + len("Test Student")) + 4
	if len(buf) != wantLen {
		t.Fatalf("serialized length %d, want %d", len(buf), wantLen)
	}

	got, err := Deserialize(s, buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got["StudentID"].(int32) != 999 {
		t.Errorf("StudentID: got %v", got["StudentID"])
	}
	if got["FullName"].(string) != "Test Student" {
		t.Errorf("FullName: got %v", got["FullName"])
	}
	if got["GPA"].(float32) != 3.75 {
		t.Errorf("GPA: got %v", got["GPA"])
	}
}

func TestSerializeMissingAttribute(t *testing.T) {
	s := studentSchema(t)
	_, err := Serialize(s, Record{"StudentID": int32(1)})
	if err == nil {
		t.Fatal("expected error for missing attribute")
	}
}

func TestVarcharTruncation(t *testing.T) {
	s, _ := schema.New(schema.Attribute{Name: "Name", Type: schema.TypeVarchar, Size: 4})
	buf, err := Serialize(s, Record{"Name": "abcdef"})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(s, buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got["Name"].(string) != "abcd" {
		t.Errorf("expected truncation to 'abcd', got %q", got["Name"])
	}
}

func TestFloatRoundedToTwoDecimals(t *testing.T) {
	s, _ := schema.New(schema.Attribute{Name: "X", Type: schema.TypeFloat, Size: 4})
	buf, err := Serialize(s, Record{"X": float32(3.14159)})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(s, buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got["X"].(float32) != 3.14 {
		t.Errorf("expected 3.14, got %v", got["X"])
	}
}
