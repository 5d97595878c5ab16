package bytecode

import (
	"bytes"
	"reflect"
	"testing"
)

func TestWireRoundTripNested(t *testing.T) {
	c := sampleCode()

	data, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if !bytes.Equal(got.Code, c.Code) {
		t.Errorf("Code mismatch")
	}
	if !reflect.DeepEqual(got.Handlers, c.Handlers) {
		t.Errorf("Handlers = %+v, want %+v", got.Handlers, c.Handlers)
	}
	fn := got.Constants[0].Code
	if fn == nil || fn.Name != "f" || !reflect.DeepEqual(fn.Params, []string{"a", "b"}) {
		t.Errorf("nested code = %+v", fn)
	}
}

func TestWireCanonical(t *testing.T) {
	a, err := Marshal(sampleCode())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(sampleCode())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding of equal code objects differs")
	}
}

func TestUnmarshalRejects(t *testing.T) {
	if _, err := Unmarshal([]byte{0xFF, 0x00}); err == nil {
		t.Error("garbage should not decode")
	}

	c := sampleCode()
	c.Version = FormatVersion + 1
	data, err := Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(data); err == nil {
		t.Error("future version should be rejected")
	}
}
