package main

import (
	"github.com/aidentified/go-matching-api/datasetfile"
)

// DatasetCommands ...
type DatasetCommands struct {
	List   DatasetListCommand   `cmd:"" help:"List datasets."`
	Create DatasetCreateCommand `cmd:"" help:"Create a dataset."`
	Delete DatasetDeleteCommand `cmd:"" help:"Delete a dataset."`
}

// DatasetListCommand ...
type DatasetListCommand struct {
	Filter string `help:"Only list datasets whose name matches a glob pattern."`
}

// DatasetCreateCommand ...
type DatasetCreateCommand struct {
	Name string `required:"" help:"Name of the dataset."`
}

// DatasetDeleteCommand ...
type DatasetDeleteCommand struct {
	Name string `required:"" help:"Name of the dataset."`
}

// Run ...
func (cmd *DatasetListCommand) Run(app *App) error {
	datasets, err := app.client.ListDatasets(app.ctx)
	if err != nil {
		return err
	}
	datasets, err = datasetfile.FilterByName(datasets, cmd.Filter)
	if err != nil {
		return err
	}
	return app.Print(datasets)
}

// Run ...
func (cmd *DatasetCreateCommand) Run(app *App) error {
	dataset, err := app.client.CreateDataset(app.ctx, cmd.Name)
	if err != nil {
		return err
	}
	return app.Print(dataset)
}

// Run ...
func (cmd *DatasetDeleteCommand) Run(app *App) error {
	return app.client.DeleteDataset(app.ctx, cmd.Name)
}
