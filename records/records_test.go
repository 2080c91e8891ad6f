package records

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewErrorRecord(t *testing.T) {
	cause := errors.New("file does not exist")
	rec := NewErrorRecord(cause, "FileNotFound,Get-Item", CategoryObjectNotFound)

	if rec.Error() != cause.Error() {
		t.Errorf("Error() = %q, want %q", rec.Error(), cause.Error())
	}
	if !errors.Is(rec, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if rec.CategoryInfo.Category != CategoryObjectNotFound {
		t.Errorf("unexpected category %v", rec.CategoryInfo.Category)
	}
}

func TestErrorRecordWithoutCause(t *testing.T) {
	rec := &ErrorRecord{FullyQualifiedErrorID: "UnknownFailure"}
	if rec.Error() != "UnknownFailure" {
		t.Errorf("Error() = %q, want the error id", rec.Error())
	}
	if rec.Unwrap() != nil {
		t.Error("Unwrap() should be nil without a cause")
	}
}

func TestErrorCategoryString(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     string
	}{
		{CategoryNotSpecified, "NotSpecified"},
		{CategoryInvalidArgument, "InvalidArgument"},
		{CategoryPermissionDenied, "PermissionDenied"},
		{CategoryResourceUnavailable, "ResourceUnavailable"},
		{ErrorCategory(99), "Unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.category.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.category), got, tt.want)
		}
	}
}

func TestNewProgressRecordDefaults(t *testing.T) {
	rec := NewProgressRecord(1, "Copying files", "12 of 40")

	if rec.ParentActivityID != -1 || rec.PercentComplete != -1 || rec.SecondsRemaining != -1 {
		t.Errorf("optional fields should default to -1: %+v", rec)
	}
	if rec.RecordType != ProgressRecordTypeProcessing {
		t.Errorf("new record should be processing, got %v", rec.RecordType)
	}
}

func TestProgressRecordCompleted(t *testing.T) {
	rec := NewProgressRecord(7, "Scanning", "halfway")
	rec.PercentComplete = 50

	done := rec.Completed()
	if done.RecordType != ProgressRecordTypeCompleted {
		t.Error("Completed() should mark the copy completed")
	}
	if done.ActivityID != 7 || done.PercentComplete != 50 {
		t.Errorf("Completed() should preserve fields: %+v", done)
	}
	if rec.RecordType != ProgressRecordTypeProcessing {
		t.Error("Completed() must not mutate the original")
	}
}

func ExampleNewProgressRecord() {
	rec := NewProgressRecord(1, "Copying files", "12 of 40")
	rec.PercentComplete = 30
	fmt.Printf("%s: %s (%d%%)\n", rec.Activity, rec.StatusDescription, rec.PercentComplete)
	// Output: Copying files: 12 of 40 (30%)
}
