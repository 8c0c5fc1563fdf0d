package recog

import "testing"

func TestRegistryFirstRegisteredIsSelected(t *testing.T) {
	registry := NewRegistry()
	if _, ok := registry.Current(); ok {
		t.Fatal("empty registry must have no selection")
	}

	first := NewMockRecognizer()
	second := NewMockRecognizer()
	registry.Register("first", first)
	registry.Register("second", second)

	current, ok := registry.Current()
	if !ok {
		t.Fatal("expected a selection")
	}
	if current != first {
		t.Fatal("expected the first registered backend to be selected")
	}
}

func TestRegistrySelect(t *testing.T) {
	registry := NewRegistry()
	first := NewMockRecognizer()
	second := NewMockRecognizer()
	registry.Register("first", first)
	registry.Register("second", second)

	if err := registry.Select("second"); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	current, _ := registry.Current()
	if current != second {
		t.Fatal("expected the selected backend to be current")
	}

	if err := registry.Select("missing"); err == nil {
		t.Fatal("expected error selecting an unknown backend")
	}
}

func TestRegistryNames(t *testing.T) {
	registry := NewRegistry()
	registry.Register("b", NewMockRecognizer())
	registry.Register("a", NewMockRecognizer())
	registry.Register("b", NewMockRecognizer()) // replace, not duplicate

	names := registry.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("unexpected names %v", names)
	}
}
