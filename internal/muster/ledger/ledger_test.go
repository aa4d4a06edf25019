package ledger

import (
	"errors"
	"reflect"
	"testing"
)

func TestAddRejectsUnknownOption(t *testing.T) {
	l := New([]string{"keyA"})
	err := l.Add("keyB", Claim{ParticipantID: "p1"})
	if !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected unknown option error, got %v", err)
	}
}

func TestAddRejectsDuplicateParticipant(t *testing.T) {
	l := New([]string{"keyA"})
	if err := l.Add("keyA", Claim{ParticipantID: "p1"}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := l.Add("keyA", Claim{ParticipantID: "p1", Qualifiers: []Qualifier{{Name: "Elite", Level: 2}}})
	if !errors.Is(err, ErrDuplicateClaim) {
		t.Fatalf("expected duplicate claim error, got %v", err)
	}
	if l.CountFor("keyA") != 1 {
		t.Fatalf("expected 1 claim, got %d", l.CountFor("keyA"))
	}
}

func TestSameOptionDifferentParticipants(t *testing.T) {
	l := New([]string{"keyA"})
	for _, participant := range []string{"p1", "p2", "p3"} {
		if err := l.Add("keyA", Claim{ParticipantID: participant}); err != nil {
			t.Fatalf("add %s: %v", participant, err)
		}
	}
	if l.CountFor("keyA") != 3 {
		t.Fatalf("expected 3 claims, got %d", l.CountFor("keyA"))
	}
}

func TestAllClaimsOrdering(t *testing.T) {
	l := New([]string{"interested", "keyA"})
	if err := l.Add("keyA", Claim{ParticipantID: "p2"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.Add("interested", Claim{ParticipantID: "p1"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.Add("keyA", Claim{ParticipantID: "p3"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	flattened := l.AllClaims()
	want := []struct {
		option      string
		participant string
	}{
		{"interested", "p1"},
		{"keyA", "p2"},
		{"keyA", "p3"},
	}
	if len(flattened) != len(want) {
		t.Fatalf("expected %d claims, got %d", len(want), len(flattened))
	}
	for i, expected := range want {
		if flattened[i].OptionKey != expected.option || flattened[i].Claim.ParticipantID != expected.participant {
			t.Fatalf("claim %d: got (%s, %s), want (%s, %s)",
				i, flattened[i].OptionKey, flattened[i].Claim.ParticipantID, expected.option, expected.participant)
		}
	}
}

func TestClaimsForReturnsCopy(t *testing.T) {
	l := New([]string{"keyA"})
	if err := l.Add("keyA", Claim{ParticipantID: "p1"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	claims := l.ClaimsFor("keyA")
	claims[0].ParticipantID = "mutated"
	if l.ClaimsFor("keyA")[0].ParticipantID != "p1" {
		t.Fatal("expected ledger state to be unaffected by caller mutation")
	}
}

func TestQualifierLabel(t *testing.T) {
	cases := []struct {
		qualifier Qualifier
		want      string
	}{
		{Qualifier{Name: "Elite", Level: 2}, "Elite 2"},
		{Qualifier{Name: "Hard Mode"}, "Hard Mode"},
		{Qualifier{Name: "unspecified"}, "unspecified"},
	}
	for _, tc := range cases {
		if got := tc.qualifier.Label(); got != tc.want {
			t.Fatalf("label for %+v: got %q, want %q", tc.qualifier, got, tc.want)
		}
	}
}

func TestReplayReproducesFlattenedClaims(t *testing.T) {
	original := New([]string{"interested", "keyA"})
	_ = original.Add("keyA", Claim{ParticipantID: "p2", Qualifiers: []Qualifier{{Name: "Elite", Level: 2}}})
	_ = original.Add("interested", Claim{ParticipantID: "p1"})
	_ = original.Add("keyA", Claim{ParticipantID: "p3"})

	flattened := original.AllClaims()

	replayed := New([]string{"interested", "keyA"})
	for _, entry := range flattened {
		if err := replayed.Add(entry.OptionKey, entry.Claim); err != nil {
			t.Fatalf("replay add: %v", err)
		}
	}

	if !reflect.DeepEqual(flattened, replayed.AllClaims()) {
		t.Fatal("expected replayed ledger to flatten identically")
	}
}
