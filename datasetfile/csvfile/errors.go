package csvfile

import "fmt"

// Kind classifies a ValidationError.
type Kind int

const (
	DecodingError Kind = iota + 1
	StructuralParseError
	HeaderError
	RowLengthError
	RequiredValueError
	DuplicateIDError
	RowCountLimitError
)

var kindNames = map[Kind]string{
	DecodingError:        "decoding",
	StructuralParseError: "structural parse",
	HeaderError:          "header",
	RowLengthError:       "row length",
	RequiredValueError:   "required value",
	DuplicateIDError:     "duplicate id",
	RowCountLimitError:   "row count limit",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ValidationError reports the first rule a file violates. Msg is user facing.
type ValidationError struct {
	Kind Kind
	// Row is the 1-based record number (the header is row 1). Zero for decoding errors.
	Row int
	// Offset is the byte offset of the offending input byte, only set for decoding errors.
	Offset int64
	Msg    string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func newValidationError(kind Kind, row int, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Kind: kind,
		Row:  row,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func newDecodingError(offset int64) *ValidationError {
	return &ValidationError{
		Kind:   DecodingError,
		Offset: offset,
		Msg:    fmt.Sprintf("Bad character encoding at byte %d", offset),
	}
}

func newParseError(row int, detail string) *ValidationError {
	return newValidationError(StructuralParseError, row, "Bad CSV format in row %d: %s", row, detail)
}
