package catalog

import "testing"

func TestNewRejectsInvalidModifiers(t *testing.T) {
	cases := []struct {
		name      string
		modifiers []Modifier
	}{
		{"empty id", []Modifier{{ID: " ", Name: "X", MaxLevel: 1}}},
		{"empty name", []Modifier{{ID: "x", MaxLevel: 1}}},
		{"zero max level", []Modifier{{ID: "x", Name: "X", MaxLevel: 0}}},
		{"duplicate id", []Modifier{
			{ID: "x", Name: "X", MaxLevel: 1},
			{ID: "x", Name: "X again", MaxLevel: 1},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.modifiers); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewPreservesOrder(t *testing.T) {
	cat, err := New([]Modifier{
		{ID: "b", Name: "B", MaxLevel: 1},
		{ID: "a", Name: "A", MaxLevel: 2},
	})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	all := cat.All()
	if len(all) != 2 || all[0].ID != "b" || all[1].ID != "a" {
		t.Fatalf("unexpected order %v", all)
	}
}

func TestBuiltin(t *testing.T) {
	cat, err := Builtin()
	if err != nil {
		t.Fatalf("load builtin catalog: %v", err)
	}
	if cat.Len() == 0 {
		t.Fatal("expected non-empty builtin catalog")
	}

	elite, ok := cat.Get("elite")
	if !ok {
		t.Fatal("expected elite modifier")
	}
	if elite.MaxLevel <= 1 {
		t.Fatalf("expected elite to carry levels, got max level %d", elite.MaxLevel)
	}
	for _, modifier := range cat.All() {
		if modifier.MaxLevel < 1 {
			t.Fatalf("modifier %q has invalid max level %d", modifier.ID, modifier.MaxLevel)
		}
	}
}

func TestGetMissing(t *testing.T) {
	cat, err := New(nil)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	if _, ok := cat.Get("nope"); ok {
		t.Fatal("expected miss for unknown id")
	}
}
