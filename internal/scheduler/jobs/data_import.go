package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/voltarget/internal/marketdata"
	"github.com/wonny/voltarget/pkg/logger"
)

// SeriesImporter stores loaded inputs
type SeriesImporter interface {
	Import(ctx context.Context, in marketdata.Inputs, names marketdata.Names) (int, error)
}

// DataImportJob copies the CSV inputs into the market series table
type DataImportJob struct {
	source   marketdata.Source
	importer SeriesImporter
	names    marketdata.Names
	schedule string
	logger   *logger.Logger
}

// NewDataImportJob creates a new data import job
func NewDataImportJob(source marketdata.Source, importer SeriesImporter, names marketdata.Names, schedule string, log *logger.Logger) *DataImportJob {
	if log == nil {
		log = logger.Nop()
	}
	return &DataImportJob{
		source:   source,
		importer: importer,
		names:    names,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DataImportJob) Name() string {
	return "data_import"
}

// Schedule returns the cron schedule
func (j *DataImportJob) Schedule() string {
	return j.schedule
}

// Run executes the job
func (j *DataImportJob) Run(ctx context.Context) error {
	j.logger.WithField("source", j.source.Describe()).Info("Starting scheduled data import")

	in, err := j.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load inputs: %w", err)
	}

	n, err := j.importer.Import(ctx, in, j.names)
	if err != nil {
		return fmt.Errorf("import series: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"rows":      n,
		"price":     in.Price.Len(),
		"vol_index": in.VolIndex.Len(),
		"rate":      in.Rate.Len(),
	}).Info("Data import completed")

	return nil
}
