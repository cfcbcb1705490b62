package otio

import (
	"testing"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

func TestAnyDictionaryTypedAccess(t *testing.T) {
	d := NewAnyDictionary()
	d.SetInteger("int", 1)
	d.SetNumber("float", 1)
	d.SetBool("bool", true)
	d.SetString("string", "x")

	if v, err := d.GetInteger("int"); err != nil || v != 1 {
		t.Fatalf("GetInteger() = %v, %v", v, err)
	}
	if v, err := d.GetNumber("float"); err != nil || v != 1 {
		t.Fatalf("GetNumber() = %v, %v", v, err)
	}

	tests := []struct {
		name string
		get  func() error
		want Outcome
	}{
		{"integer read as number", func() error { _, err := d.GetNumber("int"); return err }, BadAnyCast},
		{"number read as integer", func() error { _, err := d.GetInteger("float"); return err }, BadAnyCast},
		{"bool read as integer", func() error { _, err := d.GetInteger("bool"); return err }, BadAnyCast},
		{"string read as bool", func() error { _, err := d.GetBool("string"); return err }, BadAnyCast},
		{"missing key", func() error { _, err := d.GetString("nope"); return err }, KeyNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantOutcome(t, tt.get(), tt.want)
		})
	}

	_, err := d.GetString("nope")
	if err.Error() != "key not found" {
		t.Fatalf("Error() = %q, want %q", err.Error(), "key not found")
	}
	_, err = d.GetBool("int")
	if err.Error() != "bad any cast" {
		t.Fatalf("Error() = %q, want %q", err.Error(), "bad any cast")
	}
}

func TestAnyDictionarySetNormalizes(t *testing.T) {
	d := NewAnyDictionary()
	if err := d.Set("small", int32(7)); err != nil {
		t.Fatalf("Set(int32) error = %v", err)
	}
	if err := d.Set("single", float32(0.5)); err != nil {
		t.Fatalf("Set(float32) error = %v", err)
	}
	if err := d.Set("time", opentime.NewRationalTime(12, 24)); err != nil {
		t.Fatalf("Set(RationalTime) error = %v", err)
	}
	wantOutcome(t, d.Set("bad", make(chan int)), TypeMismatch)

	if v, err := d.GetInteger("small"); err != nil || v != 7 {
		t.Fatalf("GetInteger(small) = %v, %v", v, err)
	}
	if v, err := d.GetNumber("single"); err != nil || v != 0.5 {
		t.Fatalf("GetNumber(single) = %v, %v", v, err)
	}
	if v, err := d.GetRationalTime("time"); err != nil || !v.Equal(opentime.NewRationalTime(12, 24)) {
		t.Fatalf("GetRationalTime(time) = %v, %v", v, err)
	}
}

func TestAnyDictionaryKeys(t *testing.T) {
	d := NewAnyDictionary()
	d.SetString("b", "1")
	d.SetString("a", "2")
	d.SetString("b", "3")

	keys := d.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("Keys() = %v, want [b a]", keys)
	}
	if !d.HasKey("a") || d.HasKey("c") {
		t.Fatal("HasKey() mismatch")
	}
	if !d.Delete("b") || d.Delete("b") {
		t.Fatal("Delete() mismatch")
	}
	if d.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", d.Len())
	}

	var nilDict *AnyDictionary
	if nilDict.HasKey("a") {
		t.Fatal("HasKey() on nil dictionary = true")
	}
}

func TestAnyDictionaryClone(t *testing.T) {
	inner := NewAnyDictionary()
	inner.SetInteger("n", 1)
	d := NewAnyDictionary()
	d.SetDictionary("inner", inner)

	cp := d.Clone()
	inner.SetInteger("n", 2)

	got, err := cp.GetDictionary("inner")
	if err != nil {
		t.Fatalf("GetDictionary() error = %v", err)
	}
	if n, _ := got.GetInteger("n"); n != 1 {
		t.Fatalf("clone shares nested dictionary: n = %d", n)
	}
}
