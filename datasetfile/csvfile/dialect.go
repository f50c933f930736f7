package csvfile

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Quoting controls how the reader treats quote characters.
type Quoting int

const (
	QuoteMinimal Quoting = iota
	QuoteAll
	QuoteNonNumeric
	QuoteNone
)

var quotingNames = map[string]Quoting{
	"minimal":    QuoteMinimal,
	"all":        QuoteAll,
	"nonnumeric": QuoteNonNumeric,
	"none":       QuoteNone,
}

// ParseQuoting maps a quoting mode name (minimal, all, nonnumeric, none) to a Quoting value.
func ParseQuoting(name string) (Quoting, error) {
	q, ok := quotingNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown quoting mode '%s'", name)
	}
	return q, nil
}

func (q Quoting) String() string {
	for name, v := range quotingNames {
		if v == q {
			return name
		}
	}
	return fmt.Sprintf("Quoting(%d)", int(q))
}

// Dialect describes how an input file is encoded and delimited.
type Dialect struct {
	Encoding  string
	Delimiter rune
	QuoteChar rune
	// EscapeChar is disabled when zero.
	EscapeChar       rune
	Quoting          Quoting
	DoubleQuote      bool
	SkipInitialSpace bool
}

// DefaultDialect returns comma separated UTF-8 with minimal quoting.
func DefaultDialect() Dialect {
	return Dialect{
		Encoding:    "utf-8",
		Delimiter:   ',',
		QuoteChar:   '"',
		Quoting:     QuoteMinimal,
		DoubleQuote: true,
	}
}

// Validate checks the dialect for characters the reader cannot work with.
func (d Dialect) Validate() error {
	if d.Delimiter == 0 {
		return fmt.Errorf("delimiter must be set")
	}
	if isLineBreak(d.Delimiter) || isLineBreak(d.QuoteChar) || isLineBreak(d.EscapeChar) {
		return fmt.Errorf("delimiter, quotechar and escapechar must not be line breaks")
	}
	if d.QuoteChar == 0 && d.Quoting != QuoteNone {
		return fmt.Errorf("quotechar must be set if quoting enabled")
	}
	if d.Quoting != QuoteNone && d.QuoteChar == d.Delimiter {
		return fmt.Errorf("delimiter and quotechar must differ")
	}
	if d.EscapeChar != 0 && d.EscapeChar == d.Delimiter {
		return fmt.Errorf("delimiter and escapechar must differ")
	}
	return nil
}

// ParseChar turns a command line dialect character into a rune. Backslash escapes
// such as "\t" are unescaped. An empty value yields zero.
func ParseChar(value string) (rune, error) {
	if value == "" {
		return 0, nil
	}
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		return r, nil
	}

	unquoted, err := strconv.Unquote(`"` + strings.ReplaceAll(value, `"`, `\"`) + `"`)
	if err != nil {
		return 0, fmt.Errorf("invalid character '%s': %w", value, err)
	}
	if utf8.RuneCountInString(unquoted) != 1 {
		return 0, fmt.Errorf("'%s' must be a single character", value)
	}
	r, _ := utf8.DecodeRuneInString(unquoted)
	return r, nil
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}
