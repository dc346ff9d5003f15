package astroerr

import (
	"fmt"
	"testing"
)

func TestArgumentErrorMessage(t *testing.T) {
	err := New("dec", "dec should be of same type as RA, and have same length")
	want := `invalid argument "dec": dec should be of same type as RA, and have same length`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsArgumentErrorWrapped(t *testing.T) {
	wrapped := fmt.Errorf("failed to convert: %w", Newf("az", "got %d fields", 4))

	ae, ok := IsArgumentError(wrapped)
	if !ok {
		t.Fatal("Expected wrapped ArgumentError to be found")
	}
	if ae.Param != "az" {
		t.Errorf("Param = %q, want az", ae.Param)
	}
	if ae.Message != "got 4 fields" {
		t.Errorf("Message = %q, want %q", ae.Message, "got 4 fields")
	}

	if _, ok := IsArgumentError(fmt.Errorf("plain error")); ok {
		t.Error("Plain error should not be reported as ArgumentError")
	}
	if _, ok := IsArgumentError(nil); ok {
		t.Error("nil should not be reported as ArgumentError")
	}
}
