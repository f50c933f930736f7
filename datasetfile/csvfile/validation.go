package csvfile

import (
	"errors"
	"io"
)

// MaxDataRows is the largest number of data rows a dataset file may hold.
const MaxDataRows = 500000

// Summary describes a file that passed validation.
type Summary struct {
	Header []string
	Rows   int
}

// Validate checks that r holds a well formed dataset file and returns the first
// violation found as a *ValidationError.
func Validate(r io.Reader, dialect Dialect, contract HeaderContract) (Summary, error) {
	reader, err := NewReader(r, dialect)
	if err != nil {
		return Summary{}, err
	}

	validator := NewValidator(contract)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return validator.Summary(), err
		}
		if err := validator.Accept(record); err != nil {
			return validator.Summary(), err
		}
	}

	if err := validator.Finish(); err != nil {
		return validator.Summary(), err
	}
	return validator.Summary(), nil
}

// Validator applies the dataset file rules to a record sequence, one record at a time.
type Validator struct {
	contract HeaderContract
	header   []string
	required []int
	idColumn int
	ids      map[string]struct{}
	rows     int
}

// NewValidator returns a Validator expecting the header as its first record.
func NewValidator(contract HeaderContract) *Validator {
	return &Validator{
		contract: contract,
		idColumn: -1,
		ids:      map[string]struct{}{},
	}
}

// Accept checks the next record.
func (v *Validator) Accept(record []string) error {
	if v.header == nil {
		return v.acceptHeader(record)
	}

	row := v.rows + 2
	if len(record) != len(v.header) {
		return newValidationError(RowLengthError, row, "Row %d does not match header length", row)
	}

	for _, column := range v.required {
		if record[column] == "" {
			return newValidationError(RequiredValueError, row, "Row %d has invalid value for %s", row, v.header[column])
		}
	}

	if v.idColumn >= 0 {
		if id := record[v.idColumn]; id != "" {
			if _, seen := v.ids[id]; seen {
				return newValidationError(DuplicateIDError, row, "Row %d has duplicate id '%s'", row, id)
			}
			v.ids[id] = struct{}{}
		}
	}

	v.rows++
	if v.rows > MaxDataRows {
		return newValidationError(RowCountLimitError, row, "CSV has more than 500,000 data rows")
	}
	return nil
}

// Finish reports an error if no header was seen.
func (v *Validator) Finish() error {
	if v.header == nil {
		return newValidationError(HeaderError, 1, "No headers in file")
	}
	return nil
}

// Summary returns the header and the number of data rows accepted so far.
func (v *Validator) Summary() Summary {
	return Summary{Header: v.header, Rows: v.rows}
}

func (v *Validator) acceptHeader(header []string) error {
	if err := v.contract.check(header); err != nil {
		return err
	}

	for _, name := range v.contract.Required {
		v.required = append(v.required, indexOf(header, name))
	}
	if v.contract.IDField != "" {
		v.idColumn = indexOf(header, v.contract.IDField)
	}
	v.header = header
	return nil
}

func indexOf(list []string, value string) int {
	for i, v := range list {
		if v == value {
			return i
		}
	}
	return -1
}
