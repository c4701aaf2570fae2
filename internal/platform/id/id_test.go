package id

import "testing"

func TestNewLengthAndCase(t *testing.T) {
	value, err := New()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if len(value) != 26 {
		t.Fatalf("expected 26 characters, got %d (%s)", len(value), value)
	}
	for _, c := range value {
		if (c < 'a' || c > 'z') && (c < '2' || c > '7') {
			t.Fatalf("unexpected character %q in id %s", c, value)
		}
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		value, err := New()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if seen[value] {
			t.Fatalf("duplicate id generated: %s", value)
		}
		seen[value] = true
	}
}
