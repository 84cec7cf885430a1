package sheets

import (
	"context"
	"testing"
)

func TestNewRequiresSpreadsheetID(t *testing.T) {
	// The id comes from the caller; a value in the environment is not a
	// substitute.
	t.Setenv("GOOGLE_SPREADSHEET_ID", "env-sheet")

	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("New() with a blank spreadsheet id should fail")
	}
	if _, err := New(context.Background(), "   "); err == nil {
		t.Fatal("New() with a whitespace spreadsheet id should fail")
	}
}
