// Package records defines the record types carried by the host emit API.
//
// These are Go representations of the informational objects a command
// handler or script reports through the host: error records with full
// context, progress updates, and informational messages.
//
// # ErrorRecord
//
// ErrorRecord represents a command error with full context:
//
//	rec := records.NewErrorRecord(err, "FileNotFound", records.CategoryObjectNotFound)
//	rec.TargetObject = path
//
// # ProgressRecord
//
// ProgressRecord represents a progress update for a long-running activity:
//
//	rec := records.NewProgressRecord(1, "Copying files", "12 of 40")
//	rec.PercentComplete = 30
package records

import "fmt"

// ErrorCategory classifies an error record.
type ErrorCategory int

// Error categories, mirroring the hosting environment's taxonomy.
const (
	CategoryNotSpecified ErrorCategory = iota
	CategoryOpenError
	CategoryCloseError
	CategoryDeviceError
	CategoryDeadlockDetected
	CategoryInvalidArgument
	CategoryInvalidData
	CategoryInvalidOperation
	CategoryInvalidResult
	CategoryInvalidType
	CategoryMetadataError
	CategoryNotImplemented
	CategoryNotInstalled
	CategoryObjectNotFound
	CategoryOperationStopped
	CategoryOperationTimeout
	CategorySyntaxError
	CategoryParserError
	CategoryPermissionDenied
	CategoryResourceBusy
	CategoryResourceExists
	CategoryResourceUnavailable
)

// String returns a string representation of the category.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryNotSpecified:
		return "NotSpecified"
	case CategoryOpenError:
		return "OpenError"
	case CategoryCloseError:
		return "CloseError"
	case CategoryDeviceError:
		return "DeviceError"
	case CategoryDeadlockDetected:
		return "DeadlockDetected"
	case CategoryInvalidArgument:
		return "InvalidArgument"
	case CategoryInvalidData:
		return "InvalidData"
	case CategoryInvalidOperation:
		return "InvalidOperation"
	case CategoryInvalidResult:
		return "InvalidResult"
	case CategoryInvalidType:
		return "InvalidType"
	case CategoryMetadataError:
		return "MetadataError"
	case CategoryNotImplemented:
		return "NotImplemented"
	case CategoryNotInstalled:
		return "NotInstalled"
	case CategoryObjectNotFound:
		return "ObjectNotFound"
	case CategoryOperationStopped:
		return "OperationStopped"
	case CategoryOperationTimeout:
		return "OperationTimeout"
	case CategorySyntaxError:
		return "SyntaxError"
	case CategoryParserError:
		return "ParserError"
	case CategoryPermissionDenied:
		return "PermissionDenied"
	case CategoryResourceBusy:
		return "ResourceBusy"
	case CategoryResourceExists:
		return "ResourceExists"
	case CategoryResourceUnavailable:
		return "ResourceUnavailable"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// CategoryInfo describes the classification of an error record.
type CategoryInfo struct {
	Category   ErrorCategory
	Activity   string
	Reason     string
	TargetName string
	TargetType string
}

// ErrorRecord represents a command error with full context.
type ErrorRecord struct {
	// Err is the underlying failure.
	Err error
	// FullyQualifiedErrorID uniquely identifies the error condition,
	// e.g. "FileNotFound,Copy-Item".
	FullyQualifiedErrorID string
	// TargetObject is the object being operated on when the error occurred.
	TargetObject interface{}
	CategoryInfo CategoryInfo
	// ScriptStackTrace holds the script-side stack, if any.
	ScriptStackTrace string
}

// NewErrorRecord creates an ErrorRecord wrapping err.
func NewErrorRecord(err error, errorID string, category ErrorCategory) *ErrorRecord {
	return &ErrorRecord{
		Err:                   err,
		FullyQualifiedErrorID: errorID,
		CategoryInfo:          CategoryInfo{Category: category},
	}
}

// Error implements the error interface.
func (r *ErrorRecord) Error() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.FullyQualifiedErrorID
}

// Unwrap returns the underlying failure for errors.Is/As.
func (r *ErrorRecord) Unwrap() error {
	return r.Err
}

// ProgressRecordType indicates the type of progress record.
type ProgressRecordType int

const (
	// ProgressRecordTypeProcessing indicates the activity is ongoing.
	ProgressRecordTypeProcessing ProgressRecordType = iota
	// ProgressRecordTypeCompleted indicates the activity has finished.
	ProgressRecordTypeCompleted
)

// ProgressRecord represents a progress update for a long-running activity.
type ProgressRecord struct {
	ActivityID        int
	ParentActivityID  int
	Activity          string
	StatusDescription string
	CurrentOperation  string
	PercentComplete   int
	SecondsRemaining  int
	RecordType        ProgressRecordType
}

// NewProgressRecord creates a ProgressRecord with the optional numeric
// fields set to their "not provided" defaults.
func NewProgressRecord(activityID int, activity, status string) *ProgressRecord {
	return &ProgressRecord{
		ActivityID:        activityID,
		ParentActivityID:  -1,
		Activity:          activity,
		StatusDescription: status,
		PercentComplete:   -1,
		SecondsRemaining:  -1,
	}
}

// Completed returns a copy of the record marked as completed.
func (r *ProgressRecord) Completed() *ProgressRecord {
	c := *r
	c.RecordType = ProgressRecordTypeCompleted
	return &c
}

// InformationRecord represents an informational message with provenance.
type InformationRecord struct {
	MessageData   interface{}
	Source        string
	TimeGenerated string
	Tags          []string
}
