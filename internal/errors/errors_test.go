package errors

import (
	stderrors "errors"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	first := New(CodeClaimDuplicate, "claim already recorded")
	second := New(CodeClaimDuplicate, "different message, same code")

	if !stderrors.Is(first, second) {
		t.Fatal("expected errors with equal codes to match")
	}

	other := New(CodeClaimUnknownOption, "unknown option")
	if stderrors.Is(first, other) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	wrapped := Wrap(CodePersistenceFailure, "persist snapshot", cause)

	if !stderrors.Is(wrapped, cause) {
		t.Fatal("expected wrapped error to match its cause")
	}
	if wrapped.Error() != "persist snapshot" {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}
}

func TestWithMetadata(t *testing.T) {
	err := WithMetadata(CodeInvalidForState, "end not allowed", map[string]string{
		"status": "ABORTED",
		"action": "END",
	})
	if err.Metadata["status"] != "ABORTED" {
		t.Fatalf("unexpected metadata %v", err.Metadata)
	}
}
