package cache

import (
	"context"
	"strings"
	"testing"
)

func TestKey(t *testing.T) {
	a := Key([]string{"Mt 4,1-11", "Gn 2,7-9"})
	b := Key([]string{"Gn 2,7-9", "Mt 4,1-11", "Gn 2,7-9"})
	if a != b {
		t.Errorf("Key depends on order or duplicates: %q != %q", a, b)
	}
	if !strings.HasPrefix(a, keyPrefix) {
		t.Errorf("Key = %q, want prefix %q", a, keyPrefix)
	}
	if len(a) != len(keyPrefix)+64 {
		t.Errorf("Key length = %d, want %d", len(a), len(keyPrefix)+64)
	}
	if Key([]string{"Mt 4,1-11"}) == a {
		t.Error("different reference sets share a key")
	}
}

func TestKeyDoesNotMutateInput(t *testing.T) {
	refs := []string{"Mt 4,1-11", "Gn 2,7-9"}
	Key(refs)
	if refs[0] != "Mt 4,1-11" {
		t.Errorf("Key reordered its argument: %q", refs)
	}
}

func TestNewRequiresAddress(t *testing.T) {
	if _, err := New(context.Background(), Options{}, nil); err == nil {
		t.Error("expected error for empty address")
	}
}
