package ordered

import "testing"

func TestMap_InsertionOrder(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("c", 3)
	m.Set("a", 1)
	m.Set("b", 2)

	keys := m.Keys()
	want := []string{"c", "a", "b"}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], k)
		}
	}
}

func TestMap_ReplaceKeepsPosition(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	replaced := m.Set("a", 10)
	if !replaced {
		t.Error("expected replace")
	}
	if m.Len() != 2 {
		t.Errorf("len = %d, want 2", m.Len())
	}
	if m.Keys()[0] != "a" {
		t.Errorf("expected a to keep first position, got %v", m.Keys())
	}
	if v, _ := m.Get("a"); v != 10 {
		t.Errorf("a = %d, want 10", v)
	}
}

func TestMap_Delete(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	if !m.Delete("b") {
		t.Error("expected delete to succeed")
	}
	if m.Delete("b") {
		t.Error("expected second delete to fail")
	}

	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Errorf("keys = %v, want [a c]", keys)
	}
}

func TestMap_Values(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)

	vals := m.Values()
	if len(vals) != 2 || vals[0] != 1 || vals[1] != 2 {
		t.Errorf("values = %v, want [1 2]", vals)
	}
}

func TestMap_Clear(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("a", 1)
	m.Clear()
	if m.Len() != 0 || len(m.Keys()) != 0 {
		t.Error("expected empty map after clear")
	}
}
