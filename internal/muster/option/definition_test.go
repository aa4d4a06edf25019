package option

import (
	"errors"
	"testing"

	apperrors "github.com/louisbranch/musterpoint/internal/errors"
	"github.com/louisbranch/musterpoint/internal/muster/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Modifier{
		{ID: "elite", Name: "Elite", MaxLevel: 3},
		{ID: "keyowner", Name: "Key Owner", MaxLevel: 1},
	})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return cat
}

func TestResolveCustom(t *testing.T) {
	set, err := Definition{Custom: []Option{
		{Key: "keyA", Kind: KindResourceClaim, QualifierCandidates: []string{"elite"}},
	}}.Resolve(testCatalog(t))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	opt, _ := set.Get("keyA")
	if len(opt.QualifierCandidates) != 1 || opt.QualifierCandidates[0] != "elite" {
		t.Fatalf("unexpected qualifier candidates %v", opt.QualifierCandidates)
	}
}

func TestResolveCustomValidation(t *testing.T) {
	cat := testCatalog(t)
	cases := []struct {
		name    string
		options []Option
		code    apperrors.Code
	}{
		{"empty key", []Option{{Key: " ", Kind: KindPureInterest}}, apperrors.CodeOptionSetDuplicateKey},
		{"duplicate key", []Option{
			{Key: "a", Kind: KindPureInterest},
			{Key: "a", Kind: KindPureInterest},
		}, apperrors.CodeOptionSetDuplicateKey},
		{"missing kind", []Option{{Key: "a"}}, apperrors.CodeOptionSetUnknownKind},
		{"unknown tag", []Option{
			{Key: "a", Kind: KindResourceClaim, QualifierCandidates: []string{"nope"}},
		}, apperrors.CodeOptionSetUnknownTag},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Definition{Custom: tc.options}.Resolve(cat)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, apperrors.New(tc.code, "")) {
				t.Fatalf("expected code %s, got %v", tc.code, err)
			}
		})
	}
}

func TestResolveAmbiguousDefinition(t *testing.T) {
	if _, err := (Definition{}).Resolve(nil); !errors.Is(err, ErrDefinitionAmbiguous) {
		t.Fatalf("expected ambiguous definition error, got %v", err)
	}
	both := Definition{BuiltIn: "weekly-raid", Custom: []Option{{Key: "a", Kind: KindPureInterest}}}
	if _, err := both.Resolve(nil); !errors.Is(err, ErrDefinitionAmbiguous) {
		t.Fatalf("expected ambiguous definition error, got %v", err)
	}
}

func TestResolveBuiltinPreset(t *testing.T) {
	cat, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("builtin catalog: %v", err)
	}

	set, err := Definition{BuiltIn: "weekly-raid"}.Resolve(cat)
	if err != nil {
		t.Fatalf("resolve preset: %v", err)
	}
	if set.Len() == 0 {
		t.Fatal("expected preset options")
	}
	if _, ok := set.Get("interested"); !ok {
		t.Fatal("expected interested option in preset")
	}

	if _, err := (Definition{BuiltIn: "no-such-preset"}).Resolve(cat); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected unknown preset error, got %v", err)
	}
}
