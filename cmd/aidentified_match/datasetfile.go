package main

import (
	"fmt"

	"github.com/aidentified/go-matching-api/datasetfile"
	"github.com/aidentified/go-matching-api/datasetfile/network"
	"github.com/aidentified/go-matching-api/datasetfile/network/partuploader"
	"github.com/docker/go-units"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// DatasetFileCommands ...
type DatasetFileCommands struct {
	List     DatasetFileListCommand     `cmd:"" help:"List the files of a dataset."`
	Create   DatasetFileCreateCommand   `cmd:"" help:"Create a dataset file."`
	Upload   DatasetFileUploadCommand   `cmd:"" help:"Validate and upload a CSV file to a dataset file."`
	Abort    DatasetFileAbortCommand    `cmd:"" help:"Abort an unfinished upload."`
	Download DatasetFileDownloadCommand `cmd:"" help:"Download the matched output of a dataset file."`
	Delete   DatasetFileDeleteCommand   `cmd:"" help:"Delete a dataset file."`
	Delta    DeltaCommands              `cmd:"" help:"List and download daily delta files."`
	Event    EventCommands              `cmd:"" help:"List and download daily event files."`
}

// DatasetFileSelector names a dataset file.
type DatasetFileSelector struct {
	DatasetName     string `name:"dataset-name" required:"" help:"Name of the dataset."`
	DatasetFileName string `name:"dataset-file-name" required:"" help:"Name of the dataset file."`
}

// DatasetFileListCommand ...
type DatasetFileListCommand struct {
	DatasetName string `name:"dataset-name" required:"" help:"Name of the dataset."`
	Filter      string `help:"Only list files whose name matches a glob pattern."`
}

// DatasetFileCreateCommand ...
type DatasetFileCreateCommand struct {
	DatasetFileSelector
}

// DatasetFileUploadCommand ...
type DatasetFileUploadCommand struct {
	DatasetFileSelector
	CSVFlags

	DatasetFilePath   string `name:"dataset-file-path" required:"" type:"existingfile" help:"CSV file to upload, optionally gzip or zstd compressed."`
	UploadPartSize    int    `name:"upload-part-size" default:"100" help:"Size of upload parts in MB, at least 5."`
	ConcurrentUploads int    `name:"concurrent-uploads" default:"4" help:"Number of parts uploaded at the same time."`
}

// DatasetFileAbortCommand ...
type DatasetFileAbortCommand struct {
	DatasetFileSelector
}

// DatasetFileDownloadCommand ...
type DatasetFileDownloadCommand struct {
	DatasetFileSelector
	AWSFlags

	DatasetFilePath string `name:"dataset-file-path" required:"" help:"Local path or s3://bucket/key URL to write to."`
}

// DatasetFileDeleteCommand ...
type DatasetFileDeleteCommand struct {
	DatasetFileSelector
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Run ...
func (cmd *DatasetFileListCommand) Run(app *App) error {
	files, err := app.client.ListDatasetFiles(app.ctx, cmd.DatasetName)
	if err != nil {
		return err
	}
	files, err = datasetfile.FilterByName(files, cmd.Filter)
	if err != nil {
		return err
	}
	return app.Print(files)
}

// Run ...
func (cmd *DatasetFileCreateCommand) Run(app *App) error {
	file, err := app.client.CreateDatasetFile(app.ctx, cmd.DatasetName, cmd.DatasetFileName)
	if err != nil {
		return err
	}
	return app.Print(file)
}

// Run ...
func (cmd *DatasetFileUploadCommand) Run(app *App) error {
	if int64(cmd.UploadPartSize)*units.MiB < partuploader.MinPartSizeBytes {
		return fmt.Errorf("--upload-part-size must be at least %d", partuploader.MinPartSizeBytes/units.MiB)
	}
	if cmd.ConcurrentUploads < 1 {
		return fmt.Errorf("--concurrent-uploads must be positive")
	}

	dialect, err := cmd.Dialect()
	if err != nil {
		return err
	}

	uploader := datasetfile.NewUploader(app.client, nil, app.logger)
	file, err := uploader.Upload(app.ctx, datasetfile.UploadInput{
		DatasetName:     cmd.DatasetName,
		DatasetFileName: cmd.DatasetFileName,
		FilePath:        cmd.DatasetFilePath,
		PartSizeMB:      cmd.UploadPartSize,
		Concurrency:     cmd.ConcurrentUploads,
		Dialect:         dialect,
	})
	if err != nil {
		return err
	}
	return app.Print(file)
}

// Run ...
func (cmd *DatasetFileAbortCommand) Run(app *App) error {
	file, err := app.client.AbortDatasetFileUpload(app.ctx, cmd.DatasetName, cmd.DatasetFileName)
	if err != nil {
		return err
	}
	return app.Print(file)
}

// Run ...
func (cmd *DatasetFileDownloadCommand) Run(app *App) error {
	downloader := datasetfile.NewDownloader(app.client, nil, app.logger)
	return downloader.Download(app.ctx, cmd.DatasetName, cmd.DatasetFileName, cmd.downloadInput(cmd.DatasetFilePath))
}

// Run ...
func (cmd *DatasetFileDeleteCommand) Run(app *App) error {
	return app.client.DeleteDatasetFile(app.ctx, cmd.DatasetName, cmd.DatasetFileName)
}

///////////////////////////////////////////////////////////////////////////////
// DAILY FILES

// DeltaCommands ...
type DeltaCommands struct {
	List     DeltaListCommand     `cmd:"" help:"List delta files."`
	Download DeltaDownloadCommand `cmd:"" help:"Download a delta file."`
}

// EventCommands ...
type EventCommands struct {
	List     EventListCommand     `cmd:"" help:"List event files."`
	Download EventDownloadCommand `cmd:"" help:"Download an event file."`
}

// DailyListFlags select delta or event files.
type DailyListFlags struct {
	DatasetFileSelector
	FileDate string `name:"file-date" placeholder:"YYYY-MM-DD" help:"Only list files of this day."`
}

// DailyDownloadFlags ...
type DailyDownloadFlags struct {
	DailyListFlags
	AWSFlags

	DatasetFilePath string `name:"dataset-file-path" required:"" help:"Local path or s3://bucket/key URL to write to."`
}

// DeltaListCommand ...
type DeltaListCommand struct{ DailyListFlags }

// DeltaDownloadCommand ...
type DeltaDownloadCommand struct{ DailyDownloadFlags }

// EventListCommand ...
type EventListCommand struct{ DailyListFlags }

// EventDownloadCommand ...
type EventDownloadCommand struct{ DailyDownloadFlags }

// Run ...
func (cmd *DeltaListCommand) Run(app *App) error {
	return cmd.run(app, network.DatasetDeltaFileRoute)
}

// Run ...
func (cmd *DeltaDownloadCommand) Run(app *App) error {
	return cmd.run(app, network.DatasetDeltaFileRoute)
}

// Run ...
func (cmd *EventListCommand) Run(app *App) error {
	return cmd.run(app, network.DatasetEventsFileRoute)
}

// Run ...
func (cmd *EventDownloadCommand) Run(app *App) error {
	return cmd.run(app, network.DatasetEventsFileRoute)
}

func (cmd *DailyListFlags) query() network.DailyFileQuery {
	return network.DailyFileQuery{
		DatasetName:     cmd.DatasetName,
		DatasetFileName: cmd.DatasetFileName,
		FileDate:        cmd.FileDate,
	}
}

func (cmd *DailyListFlags) run(app *App, route string) error {
	files, err := app.client.ListDailyFiles(app.ctx, route, cmd.query())
	if err != nil {
		return err
	}
	return app.Print(files)
}

func (cmd *DailyDownloadFlags) run(app *App, route string) error {
	downloader := datasetfile.NewDownloader(app.client, nil, app.logger)
	return downloader.DownloadDaily(app.ctx, route, cmd.query(), cmd.downloadInput(cmd.DatasetFilePath))
}
