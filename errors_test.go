package simplewallet

import (
	"errors"
	"fmt"
	"testing"
)

var errTest = errors.New("amount exceeds balance")

func TestInvalidTransactionError(t *testing.T) {
	err := NewInvalidTransaction(errTest)

	expected := "invalid transaction: amount exceeds balance"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, errTest) {
		t.Error("expected InvalidTransactionError to unwrap to its cause")
	}
}

func TestIsInvalidTransaction(t *testing.T) {
	rejected := NewInvalidTransaction(errTest)

	// Direct.
	e, ok := IsInvalidTransaction(rejected)
	if !ok {
		t.Fatal("expected IsInvalidTransaction to return true")
	}
	if e.Err != errTest {
		t.Errorf("unexpected cause: %v", e.Err)
	}

	// Wrapped.
	wrapped := fmt.Errorf("apply: %w", rejected)
	if _, ok := IsInvalidTransaction(wrapped); !ok {
		t.Fatal("expected IsInvalidTransaction to unwrap wrapped error")
	}

	// Internal errors are not rejections.
	if _, ok := IsInvalidTransaction(NewInternalError(errTest)); ok {
		t.Fatal("expected IsInvalidTransaction to return false for internal error")
	}

	// Nil.
	if _, ok := IsInvalidTransaction(nil); ok {
		t.Fatal("expected IsInvalidTransaction to return false for nil")
	}
}

func TestIsInternal(t *testing.T) {
	internal := NewInternalError(errTest)

	if internal.Error() != "internal error: amount exceeds balance" {
		t.Errorf("unexpected message: %q", internal.Error())
	}

	e, ok := IsInternal(fmt.Errorf("state: %w", internal))
	if !ok {
		t.Fatal("expected IsInternal to unwrap wrapped error")
	}
	if !errors.Is(e, errTest) {
		t.Error("expected InternalError to unwrap to its cause")
	}

	if _, ok := IsInternal(fmt.Errorf("just a regular error")); ok {
		t.Fatal("expected IsInternal to return false for plain error")
	}
}
