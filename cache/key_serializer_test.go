package cache

import (
	"testing"
	"time"
)

func TestSerializeKeyNoArgs(t *testing.T) {
	s := NewDefaultKeySerializer()
	if got := s.SerializeKey("clients.find_all"); got != "clients.find_all" {
		t.Errorf("got %q, want bare operation name", got)
	}
}

func TestSerializeKeyScalars(t *testing.T) {
	s := NewDefaultKeySerializer()

	tests := []struct {
		name string
		op   string
		args []any
		want string
	}{
		{"string", "clients.by_device_id", []any{"900123"}, "clients.by_device_id::900123"},
		{"int64", "clients.by_id", []any{int64(42)}, "clients.by_id::42"},
		{"int", "products.by_id", []any{7}, "products.by_id::7"},
		{"bool", "op", []any{true}, "op::true"},
		{"multiple args", "licences.by_client_and_product", []any{int64(1), int64(2)}, "licences.by_client_and_product::1::2"},
		{"nil arg", "op", []any{nil}, "op::nil"},
		{"slice", "op", []any{[]int{3, 1, 2}}, "op::[3,1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SerializeKey(tt.op, tt.args...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerializeKeyTimeIsUTC(t *testing.T) {
	s := NewDefaultKeySerializer()

	loc := time.FixedZone("CET", 3600)
	local := time.Date(2025, 3, 10, 13, 0, 0, 0, loc)
	utc := local.UTC()

	if s.SerializeKey("op", local) != s.SerializeKey("op", utc) {
		t.Error("equal instants in different zones produced different keys")
	}
}

func TestSerializeKeyNilPointer(t *testing.T) {
	s := NewDefaultKeySerializer()

	var p *int
	if got := s.SerializeKey("op", p); got != "op::nil" {
		t.Errorf("got %q, want op::nil", got)
	}

	v := 9
	if got := s.SerializeKey("op", &v); got != "op::9" {
		t.Errorf("got %q, want pointer dereferenced to op::9", got)
	}
}

func TestSerializeKeyMapOrderStable(t *testing.T) {
	s := NewDefaultKeySerializer()

	m := map[string]int{"b": 2, "a": 1, "c": 3}
	want := "op::{a=1,b=2,c=3}"
	// Run repeatedly so a map-iteration-order dependency would show up.
	for i := 0; i < 20; i++ {
		if got := s.SerializeKey("op", m); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestSerializeKeyStructFallback(t *testing.T) {
	s := NewDefaultKeySerializer()

	type filter struct {
		Code   string `json:"code"`
		Active bool   `json:"active"`
	}
	a := s.SerializeKey("op", filter{Code: "trendfx", Active: true})
	b := s.SerializeKey("op", filter{Code: "trendfx", Active: true})
	if a != b {
		t.Errorf("identical structs produced different keys: %q vs %q", a, b)
	}
	if a == s.SerializeKey("op", filter{Code: "other"}) {
		t.Error("different structs produced the same key")
	}
}
