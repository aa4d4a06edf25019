package option

import "testing"

func TestKindRoundTrip(t *testing.T) {
	kinds := []Kind{KindResourceClaim, KindPureInterest, KindInformational}
	for _, kind := range kinds {
		if got := ParseKind(kind.String()); got != kind {
			t.Fatalf("round trip for %v yielded %v", kind, got)
		}
	}
	if ParseKind("nonsense") != KindUnspecified {
		t.Fatal("expected unknown label to parse as unspecified")
	}
}

func TestSetAccessors(t *testing.T) {
	set, err := Definition{Custom: []Option{
		{Key: "interested", Kind: KindPureInterest},
		{Key: "keyA", Kind: KindResourceClaim},
	}}.Resolve(nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if set.Len() != 2 {
		t.Fatalf("expected 2 options, got %d", set.Len())
	}
	keys := set.Keys()
	if keys[0] != "interested" || keys[1] != "keyA" {
		t.Fatalf("unexpected key order %v", keys)
	}
	opt, ok := set.Get("keyA")
	if !ok || opt.Kind != KindResourceClaim {
		t.Fatalf("unexpected option %+v ok=%v", opt, ok)
	}
	if _, ok := set.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
	if opt.Display.Name != "keyA" {
		t.Fatalf("expected display name to default to key, got %q", opt.Display.Name)
	}
}
