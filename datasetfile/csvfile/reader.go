package csvfile

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FieldSizeLimit is the largest field, in characters, the reader accepts.
const FieldSizeLimit = 131072

type parserState int

const (
	startRecord parserState = iota
	startField
	escapedChar
	inField
	inQuotedField
	escapeInQuotedField
	quoteInQuotedField
)

// Reader reads records from delimited text described by a Dialect.
//
// Unlike encoding/csv it supports a configurable quote character, escape character
// and the none/nonnumeric quoting modes, and it is strict: a character following a
// closing quote must be a delimiter or a line break, and end of input inside a
// quoted field is an error. Blank lines are skipped.
type Reader struct {
	src     *runeSource
	dialect Dialect
	records int

	state   parserState
	fields  []string
	field   strings.Builder
	length  int
	numeric bool
}

// NewReader returns a Reader decoding r with the dialect's encoding.
func NewReader(r io.Reader, dialect Dialect) (*Reader, error) {
	if err := dialect.Validate(); err != nil {
		return nil, err
	}
	src, err := newRuneSource(r, dialect.Encoding)
	if err != nil {
		return nil, err
	}
	return &Reader{src: src, dialect: dialect}, nil
}

// RecordsRead returns the number of records returned so far.
func (r *Reader) RecordsRead() int {
	return r.records
}

// Read returns the next record, or io.EOF once the input is exhausted.
// Malformed input is reported as a *ValidationError.
func (r *Reader) Read() ([]string, error) {
	r.state = startRecord
	r.fields = nil
	r.resetField()

	for {
		c, err := r.src.next()
		if errors.Is(err, io.EOF) {
			return r.finish()
		}
		if err != nil {
			return nil, err
		}

		done, err := r.process(c)
		if err != nil {
			return nil, err
		}
		if done {
			return r.emit(), nil
		}
	}
}

func (r *Reader) finish() ([]string, error) {
	switch r.state {
	case startRecord:
		return nil, io.EOF
	case inQuotedField, escapedChar, escapeInQuotedField:
		return nil, r.parseError("unexpected end of data")
	}
	if err := r.saveField(); err != nil {
		return nil, err
	}
	return r.emit(), nil
}

func (r *Reader) process(c rune) (bool, error) {
	d := r.dialect
	quoting := d.Quoting != QuoteNone

	switch r.state {
	case startRecord:
		if isLineBreak(c) {
			return false, nil
		}
		r.state = startField
		return r.process(c)

	case startField:
		switch {
		case isLineBreak(c):
			return true, r.saveField()
		case quoting && c == d.QuoteChar:
			r.state = inQuotedField
		case d.EscapeChar != 0 && c == d.EscapeChar:
			r.state = escapedChar
		case c == ' ' && d.SkipInitialSpace:
		case c == d.Delimiter:
			return false, r.saveField()
		default:
			r.numeric = d.Quoting == QuoteNonNumeric
			r.state = inField
			return false, r.addChar(c)
		}

	case escapedChar:
		r.state = inField
		return false, r.addChar(c)

	case inField:
		switch {
		case isLineBreak(c):
			return true, r.saveField()
		case d.EscapeChar != 0 && c == d.EscapeChar:
			r.state = escapedChar
		case c == d.Delimiter:
			r.state = startField
			return false, r.saveField()
		default:
			return false, r.addChar(c)
		}

	case inQuotedField:
		switch {
		case d.EscapeChar != 0 && c == d.EscapeChar:
			r.state = escapeInQuotedField
		case quoting && c == d.QuoteChar:
			if d.DoubleQuote {
				r.state = quoteInQuotedField
			} else {
				r.state = inField
			}
		default:
			return false, r.addChar(c)
		}

	case escapeInQuotedField:
		r.state = inQuotedField
		return false, r.addChar(c)

	case quoteInQuotedField:
		switch {
		case quoting && c == d.QuoteChar:
			r.state = inQuotedField
			return false, r.addChar(c)
		case c == d.Delimiter:
			r.state = startField
			return false, r.saveField()
		case isLineBreak(c):
			return true, r.saveField()
		default:
			return false, r.parseError(fmt.Sprintf("'%c' expected after '%c'", d.Delimiter, d.QuoteChar))
		}
	}

	return false, nil
}

func (r *Reader) addChar(c rune) error {
	if r.length >= FieldSizeLimit {
		return r.parseError(fmt.Sprintf("field larger than field limit (%d)", FieldSizeLimit))
	}
	r.field.WriteRune(c)
	r.length++
	return nil
}

func (r *Reader) saveField() error {
	value := r.field.String()
	if r.numeric {
		if !parsesAsFloat(value) {
			return r.parseError(fmt.Sprintf("could not convert string to float: '%s'", value))
		}
	}
	r.fields = append(r.fields, value)
	r.resetField()
	return nil
}

func (r *Reader) resetField() {
	r.field.Reset()
	r.length = 0
	r.numeric = false
}

func (r *Reader) emit() []string {
	r.records++
	return r.fields
}

func (r *Reader) parseError(detail string) error {
	return newParseError(r.records+1, detail)
}

// parsesAsFloat accepts what Python's float() accepts: surrounding whitespace,
// a single sign, inf/infinity/nan in any case, and underscores between digits.
// Hexadecimal notation is rejected and out of range values count as infinite.
func parsesAsFloat(value string) bool {
	s := strings.TrimSpace(value)
	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 || body == "" {
		return false
	}
	if strings.EqualFold(body, "nan") {
		return true
	}
	if strings.ContainsAny(body, "xXpP") {
		return false
	}
	if strings.Contains(body, "_") {
		if !underscoresBetweenDigits(body) {
			return false
		}
		s = strings.ReplaceAll(s, "_", "")
	}

	_, err := strconv.ParseFloat(s, 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}

func underscoresBetweenDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
