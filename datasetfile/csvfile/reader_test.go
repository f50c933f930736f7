package csvfile

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, input string, dialect Dialect) ([][]string, error) {
	t.Helper()

	reader, err := NewReader(strings.NewReader(input), dialect)
	require.NoError(t, err)

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}

func TestReader_Read(t *testing.T) {
	withDialect := func(modify func(*Dialect)) Dialect {
		d := DefaultDialect()
		modify(&d)
		return d
	}

	tests := []struct {
		name    string
		input   string
		dialect Dialect
		want    [][]string
	}{
		{
			name:    "simple rows",
			input:   "a,b,c\n1,2,3\n",
			dialect: DefaultDialect(),
			want:    [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name:    "no trailing newline",
			input:   "a,b\n1,2",
			dialect: DefaultDialect(),
			want:    [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:    "crlf and lone cr line endings",
			input:   "a,b\r\n1,2\r3,4\r\n",
			dialect: DefaultDialect(),
			want:    [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}},
		},
		{
			name:    "quoted delimiter newline and doubled quote",
			input:   "\"a,b\",\"line\nbreak\",\"say \"\"hi\"\"\"\n",
			dialect: DefaultDialect(),
			want:    [][]string{{"a,b", "line\nbreak", "say \"hi\""}},
		},
		{
			name:    "empty fields",
			input:   ",,\n",
			dialect: DefaultDialect(),
			want:    [][]string{{"", "", ""}},
		},
		{
			name:    "quote in the middle of a field is literal",
			input:   "ab\"c,d\n",
			dialect: DefaultDialect(),
			want:    [][]string{{"ab\"c", "d"}},
		},
		{
			name:    "skip initial space",
			input:   "a, b,  c\n",
			dialect: withDialect(func(d *Dialect) { d.SkipInitialSpace = true }),
			want:    [][]string{{"a", "b", "c"}},
		},
		{
			name:  "escape char without double quote",
			input: "\"a\\\"b\",c\\,d\n",
			dialect: withDialect(func(d *Dialect) {
				d.DoubleQuote = false
				d.EscapeChar = '\\'
			}),
			want: [][]string{{"a\"b", "c,d"}},
		},
		{
			name:    "custom quote char",
			input:   "'a,b';c\n",
			dialect: withDialect(func(d *Dialect) { d.Delimiter = ';'; d.QuoteChar = '\'' }),
			want:    [][]string{{"a,b", "c"}},
		},
		{
			name:    "quoting none keeps quotes",
			input:   "\"a\",b\n",
			dialect: withDialect(func(d *Dialect) { d.Quoting = QuoteNone }),
			want:    [][]string{{"\"a\"", "b"}},
		},
		{
			name:    "multibyte characters",
			input:   "Zoë,Ægir,東京\n",
			dialect: DefaultDialect(),
			want:    [][]string{{"Zoë", "Ægir", "東京"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readAll(t, tt.input, tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReader_ErrorRowIsRecordsReadPlusOne(t *testing.T) {
	reader, err := NewReader(strings.NewReader("a,b\n\"c\"d,e\n"), DefaultDialect())
	require.NoError(t, err)

	_, err = reader.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, reader.RecordsRead())

	_, err = reader.Read()
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 2, validationErr.Row)
	assert.Equal(t, StructuralParseError, validationErr.Kind)
}

func TestReader_EscapeAtEndOfInput(t *testing.T) {
	dialect := DefaultDialect()
	dialect.EscapeChar = '\\'

	_, err := readAll(t, "a,b\\", dialect)
	require.EqualError(t, err, "Bad CSV format in row 1: unexpected end of data")
}

func TestNewReader_InvalidDialect(t *testing.T) {
	dialect := DefaultDialect()
	dialect.QuoteChar = ','

	_, err := NewReader(strings.NewReader(""), dialect)
	require.EqualError(t, err, "delimiter and quotechar must differ")
}

func TestParsesAsFloat(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "42", want: true},
		{value: " -1.5e3 ", want: true},
		{value: ".5", want: true},
		{value: "1_000", want: true},
		{value: "1_000.000_1", want: true},
		{value: "inf", want: true},
		{value: "-Infinity", want: true},
		{value: "iNfInItY", want: true},
		{value: "nan", want: true},
		{value: "+NaN", want: true},
		{value: "1e999", want: true},
		{value: "", want: false},
		{value: "old", want: false},
		{value: "_1000", want: false},
		{value: "1000_", want: false},
		{value: "1__000", want: false},
		{value: "0x1p-2", want: false},
		{value: "--1", want: false},
		{value: "+", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parsesAsFloat(tt.value))
		})
	}
}
