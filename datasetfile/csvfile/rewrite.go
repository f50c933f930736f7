package csvfile

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// Rewrite reads r under dialect and writes every record to w as comma separated
// UTF-8 with minimal quoting and CRLF record terminators. Field contents, including
// embedded line breaks, are written unchanged. Records are validated again while
// streaming, so a source that changed since Validate still fails cleanly.
// It returns the number of data rows written.
func Rewrite(ctx context.Context, r io.Reader, dialect Dialect, contract HeaderContract, w io.Writer) (int, error) {
	reader, err := NewReader(r, dialect)
	if err != nil {
		return 0, err
	}

	validator := NewValidator(contract)
	writer := newRecordWriter(w)

	for {
		if err := ctx.Err(); err != nil {
			return validator.Summary().Rows, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return validator.Summary().Rows, err
		}
		if err := validator.Accept(record); err != nil {
			return validator.Summary().Rows, err
		}
		if err := writer.Write(record); err != nil {
			return validator.Summary().Rows, err
		}
	}

	if err := validator.Finish(); err != nil {
		return 0, err
	}

	return validator.Summary().Rows, writer.Flush()
}

// recordWriter writes the canonical output dialect. encoding/csv is not used
// because its CRLF mode rewrites line breaks inside quoted fields.
type recordWriter struct {
	w *bufio.Writer
}

func newRecordWriter(w io.Writer) *recordWriter {
	return &recordWriter{w: bufio.NewWriterSize(w, readBufferSize)}
}

func (rw *recordWriter) Write(record []string) error {
	for i, field := range record {
		if i > 0 {
			if err := rw.w.WriteByte(','); err != nil {
				return err
			}
		}

		// A lone empty field is quoted so the record does not read back as a blank line.
		if !needsQuotes(field) && !(len(record) == 1 && field == "") {
			if _, err := rw.w.WriteString(field); err != nil {
				return err
			}
			continue
		}

		if err := rw.w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := rw.w.WriteString(strings.ReplaceAll(field, `"`, `""`)); err != nil {
			return err
		}
		if err := rw.w.WriteByte('"'); err != nil {
			return err
		}
	}

	_, err := rw.w.WriteString("\r\n")
	return err
}

func (rw *recordWriter) Flush() error {
	return rw.w.Flush()
}

func needsQuotes(field string) bool {
	return strings.ContainsAny(field, ",\"\r\n")
}
