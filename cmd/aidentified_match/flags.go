package main

import (
	"fmt"

	"github.com/aidentified/go-matching-api/datasetfile"
	"github.com/aidentified/go-matching-api/datasetfile/csvfile"
	"github.com/aidentified/go-matching-api/datasetfile/network"
)

// CSVFlags describe the dialect of a file to upload.
type CSVFlags struct {
	Encoding         string `name:"csv-encoding" default:"utf-8" help:"Character encoding of the file."`
	Delimiter        string `name:"csv-delimiter" default:"," help:"Field delimiter, backslash escapes are accepted."`
	QuoteChar        string `name:"csv-quotechar" help:"Quote character (default: double quote)."`
	EscapeChar       string `name:"csv-escapechar" help:"Escape character, disabled by default."`
	Quoting          string `name:"csv-quoting" default:"minimal" enum:"minimal,all,nonnumeric,none" help:"Quoting mode (${enum})."`
	NoDoubleQuote    bool   `name:"csv-no-doublequote" help:"Do not treat two quote characters inside a quoted field as one."`
	SkipInitialSpace bool   `name:"csv-skipinitialspace" help:"Ignore whitespace immediately following the delimiter."`
}

// Dialect converts the flags to a csvfile.Dialect.
func (f CSVFlags) Dialect() (csvfile.Dialect, error) {
	dialect := csvfile.DefaultDialect()
	dialect.Encoding = f.Encoding
	dialect.DoubleQuote = !f.NoDoubleQuote
	dialect.SkipInitialSpace = f.SkipInitialSpace

	var err error
	if dialect.Delimiter, err = csvfile.ParseChar(f.Delimiter); err != nil {
		return csvfile.Dialect{}, fmt.Errorf("--csv-delimiter: %w", err)
	}
	if f.QuoteChar != "" {
		if dialect.QuoteChar, err = csvfile.ParseChar(f.QuoteChar); err != nil {
			return csvfile.Dialect{}, fmt.Errorf("--csv-quotechar: %w", err)
		}
	}
	if dialect.EscapeChar, err = csvfile.ParseChar(f.EscapeChar); err != nil {
		return csvfile.Dialect{}, fmt.Errorf("--csv-escapechar: %w", err)
	}
	if dialect.Quoting, err = csvfile.ParseQuoting(f.Quoting); err != nil {
		return csvfile.Dialect{}, err
	}

	if err := dialect.Validate(); err != nil {
		return csvfile.Dialect{}, err
	}
	return dialect, nil
}

// AWSFlags are used when a download goes to S3.
type AWSFlags struct {
	AWSRegion          string         `name:"aws-region" env:"AWS_REGION" help:"Region of the target bucket."`
	AWSAccessKeyID     string         `name:"aws-access-key-id" env:"AWS_ACCESS_KEY_ID" help:"AWS access key ID."`
	AWSSecretAccessKey network.Secret `name:"aws-secret-access-key" env:"AWS_SECRET_ACCESS_KEY" help:"AWS secret access key."`
}

func (f AWSFlags) downloadInput(destination string) datasetfile.DownloadInput {
	return datasetfile.DownloadInput{
		Destination:        destination,
		AWSRegion:          f.AWSRegion,
		AWSAccessKeyID:     f.AWSAccessKeyID,
		AWSSecretAccessKey: string(f.AWSSecretAccessKey),
	}
}
